package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/otis-tran/demo-service/internal/config"
	"github.com/otis-tran/demo-service/internal/connectivity"
	"github.com/otis-tran/demo-service/internal/events"
	"github.com/otis-tran/demo-service/internal/platform/notifyhub"
	"github.com/otis-tran/demo-service/internal/platform/postgres"
	"github.com/otis-tran/demo-service/internal/service/calculator"
	"github.com/otis-tran/demo-service/internal/service/datasync"
	"github.com/otis-tran/demo-service/internal/service/playback"
	"github.com/otis-tran/demo-service/internal/task"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore    task.TaskStore
	scheduler    *task.ConstrainedScheduler
	eventEmitter *events.InMemoryEventEmitter
	monitor      *connectivity.Monitor

	syncService *datasync.Service
	calculator  *calculator.Service
	playback    *playback.Service
	hub         *notifyhub.Hub
}

// newApplication creates a new application instance with all dependencies initialized.
// db may be nil, in which case tasks are tracked in memory.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	if db != nil {
		app.taskStore = postgres.NewPostgresTaskStore(db)
	} else {
		app.taskStore = task.NewMemoryTaskStore()
	}

	var err error
	app.scheduler, err = task.NewConstrainedScheduler(app.taskStore, task.SchedulerConfig{
		WorkerCount:       cfg.Task.WorkerCount,
		QueueSize:         cfg.Task.QueueSize,
		FinishedRetention: cfg.Task.FinishedRetention,
		MaxFinished:       cfg.Task.MaxFinished,
		InitialConditions: map[task.Condition]bool{
			task.ConditionNetworkConnected: cfg.Connectivity.InitiallyConnected,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := app.scheduler.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	// Connectivity feeds the scheduler's network condition
	var prober connectivity.Prober
	if cfg.Connectivity.ProbeAddress != "" {
		prober = connectivity.DialProber{
			Address: cfg.Connectivity.ProbeAddress,
			Timeout: cfg.Connectivity.Timeout,
		}
	}
	app.monitor = connectivity.NewMonitor(prober, cfg.Connectivity.Interval, cfg.Connectivity.InitiallyConnected, logger)
	app.monitor.Subscribe(func(connected bool) {
		app.scheduler.SetCondition(task.ConditionNetworkConnected, connected)
	})

	// Deferred sync requests travel as events to the scheduler
	worker := datasync.NewWorker(cfg.Worker, logger)
	factoryHandler := task.NewTaskFactoryEventHandler(app.scheduler, logger)
	factoryHandler.RegisterFactory(task.TaskTypeDataSync, datasync.NewWorkerTaskFactory(worker))
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(factoryHandler)

	app.syncService = datasync.NewService(cfg.DataSync, logger)
	app.calculator = calculator.NewService(logger)

	app.hub = notifyhub.New(logger)
	app.playback = playback.NewService(
		playback.Notifiers{playback.NewLogNotifier(logger), app.hub},
		playback.NewLogResources(logger),
		playback.PausePolicy(cfg.Playback.PauseWhenStopped),
		logger,
	)

	logger.Info("application initialized successfully")
	return app, nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	ctx := context.Background()

	app.playback.Close(ctx)
	app.hub.Close()
	app.calculator.Close()
	app.syncService.Destroy()
	app.scheduler.Stop()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
