package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mkrallis/swapbook/internal/database"
)

// MaintenanceJob runs the nightly database housekeeping: integrity check
// on every database, then a WAL checkpoint to keep the log files bounded.
type MaintenanceJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewMaintenanceJob creates the nightly maintenance job.
func NewMaintenanceJob(databases map[string]*database.DB, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		log:       log.With().Str("job", "maintenance").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run executes the maintenance pass. A corrupt booking database is fatal
// for the job; a failed checkpoint is only logged since the next
// checkpoint will catch up.
func (j *MaintenanceJob) Run() error {
	startTime := time.Now()

	for name, db := range j.databases {
		j.log.Debug().Str("database", name).Msg("Running integrity check")
		if err := db.IntegrityCheck(); err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("Integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", name, err)
		}
	}

	for name, db := range j.databases {
		if err := db.CheckpointWAL(); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Int("databases", len(j.databases)).
		Msg("Maintenance completed")
	return nil
}

// BackupJob creates and uploads a backup archive, then rotates old ones.
type BackupJob struct {
	backups       *BackupService
	retentionDays int
	timeout       time.Duration
	log           zerolog.Logger
}

// NewBackupJob creates the scheduled backup job.
func NewBackupJob(backups *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		backups:       backups,
		retentionDays: retentionDays,
		timeout:       30 * time.Minute,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *BackupJob) Name() string {
	return "backup"
}

// Run implements scheduler.Job.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.backups.CreateAndUploadBackup(ctx); err != nil {
		return err
	}
	if err := j.backups.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}
