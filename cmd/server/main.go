package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mkrallis/swapbook/internal/config"
	"github.com/mkrallis/swapbook/internal/database"
	"github.com/mkrallis/swapbook/internal/events"
	"github.com/mkrallis/swapbook/internal/modules/additionalinfo"
	"github.com/mkrallis/swapbook/internal/modules/authz"
	"github.com/mkrallis/swapbook/internal/modules/cashflows"
	"github.com/mkrallis/swapbook/internal/modules/refdata"
	"github.com/mkrallis/swapbook/internal/modules/trades"
	"github.com/mkrallis/swapbook/internal/modules/validation"
	"github.com/mkrallis/swapbook/internal/reliability"
	"github.com/mkrallis/swapbook/internal/scheduler"
	"github.com/mkrallis/swapbook/internal/server"
	"github.com/mkrallis/swapbook/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("dataDir", cfg.DataDir).Msg("Starting swapbook")

	// The booking ledger gets the durable profile; reference data is
	// read-mostly; the cache database is disposable.
	bookingDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "booking.db"),
		Profile: database.ProfileLedger,
		Name:    "booking",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open booking database")
	}
	defer bookingDB.Close()

	refdataDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "refdata.db"),
		Profile: database.ProfileStandard,
		Name:    "refdata",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open refdata database")
	}
	defer refdataDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	databases := map[string]*database.DB{
		"booking": bookingDB,
		"refdata": refdataDB,
		"cache":   cacheDB,
	}
	for name, db := range databases {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", name).Msg("Failed to run migrations")
		}
	}

	if err := refdata.Seed(refdataDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed reference data")
	}

	// Wire the modules.
	refdataRepo := refdata.NewRepository(refdataDB.Conn(), log)
	snapshotCache := refdata.NewSnapshotCache(cacheDB.Conn(), log)

	eventManager := events.NewManager(log)

	additionalInfoRepo := additionalinfo.NewRepository(bookingDB.Conn(), log)
	additionalInfoSvc := additionalinfo.NewService(additionalInfoRepo, log)

	tradeRepo := trades.NewRepository(bookingDB.Conn(), log)
	tradeService := trades.NewService(
		bookingDB.Conn(),
		tradeRepo,
		cashflows.NewRepository(bookingDB.Conn(), log),
		cashflows.NewGenerator(cfg.StubAtMaturity, log),
		validation.NewEngine(log),
		authz.NewEngine(cfg.OwnerlessTraderFallback, log),
		refdataRepo,
		additionalInfoSvc,
		eventManager,
		log,
	)

	// Background jobs.
	sched := scheduler.New(log)

	maintenance := reliability.NewMaintenanceJob(databases, log)
	if err := sched.AddJob("0 0 2 * * *", maintenance); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}

	maturitySweep := trades.NewMaturitySweepJob(tradeRepo, log)
	if err := sched.AddJob("0 30 0 * * *", maturitySweep); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maturity sweep job")
	}

	if cfg.Backup.Enabled {
		store, err := reliability.NewObjectStoreClient(cfg.Backup, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create object store client")
		}
		backups := reliability.NewBackupService(databases, store, cfg.DataDir, log)
		backupJob := reliability.NewBackupJob(backups, 30, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	} else {
		log.Info().Msg("Backups disabled, no bucket configured")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server.
	srv := server.New(server.Deps{
		Config:          cfg,
		Log:             log,
		Databases:       databases,
		TradeHandlers:   trades.NewHandlers(tradeService, additionalInfoSvc, log),
		RefdataHandlers: refdata.NewHandlers(refdataRepo, snapshotCache, log),
		Identity:        refdataRepo,
		Events:          eventManager,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Swapbook started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Stopped")
}
