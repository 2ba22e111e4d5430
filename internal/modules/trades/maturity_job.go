package trades

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/mkrallis/swapbook/internal/domain"
)

// MaturitySweepJob marks active trades whose maturity date has passed as
// MATURED. The version stays in place; maturing is a status observation,
// not an amendment.
type MaturitySweepJob struct {
	repo *Repository
	log  zerolog.Logger
}

// NewMaturitySweepJob creates the maturity sweep job.
func NewMaturitySweepJob(repo *Repository, log zerolog.Logger) *MaturitySweepJob {
	return &MaturitySweepJob{
		repo: repo,
		log:  log.With().Str("job", "maturity_sweep").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *MaturitySweepJob) Name() string {
	return "maturity_sweep"
}

// Run implements scheduler.Job.
func (j *MaturitySweepJob) Run() error {
	trades, err := j.repo.ListActive("")
	if err != nil {
		return err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	matured := 0
	for _, t := range trades {
		if t.MaturityDate == nil || t.MaturityDate.After(today) {
			continue
		}
		switch t.Status {
		case domain.StatusTerminated, domain.StatusCancelled, domain.StatusMatured:
			continue
		}

		if err := j.repo.UpdateStatus(t.RowID, domain.StatusMatured); err != nil {
			j.log.Error().Err(err).Int64("tradeId", t.TradeID).Msg("Failed to mark trade matured")
			continue
		}
		matured++
	}

	if matured > 0 {
		j.log.Info().Int("matured", matured).Msg("Maturity sweep completed")
	}
	return nil
}
