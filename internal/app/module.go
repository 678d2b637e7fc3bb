package app

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/tgcon/tgcon/internal/config"
	"github.com/tgcon/tgcon/internal/event"
	"github.com/tgcon/tgcon/internal/input"
	"github.com/tgcon/tgcon/internal/lock"
	"github.com/tgcon/tgcon/internal/logging"
	"github.com/tgcon/tgcon/internal/remote"
	"github.com/tgcon/tgcon/internal/render"
	"github.com/tgcon/tgcon/internal/session"
	"github.com/tgcon/tgcon/internal/state"
	"github.com/tgcon/tgcon/internal/status"
	"github.com/tgcon/tgcon/internal/store"
	intsync "github.com/tgcon/tgcon/internal/sync"
	"github.com/tgcon/tgcon/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
}

// Module returns the fx module for the client, composing all providers
// and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("tgcon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideQueue,
			provideLock,
			provideCredentials,
			provideViewStore,
			provideStateMachine,
			provideAdapter,
			provideReconciler,
			provideDispatcher,
			provideCache,
			provideTUI,
			provideScheduler,
			provideEngine,
			provideWatcher,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

// provideConfig loads ~/.tgcon/config.toml, writing a default one on
// first run so there is always a file to edit and watch.
func provideConfig(logger *zap.Logger) (*config.Config, error) {
	path := session.ConfigPath()
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg = config.Default()
	if err := config.Save(path, cfg); err != nil {
		return nil, err
	}
	logger.Info("wrote default config", zap.String("path", path))
	return cfg, nil
}

func provideQueue(cfg *config.Config) *event.Queue {
	return event.NewQueue(cfg.QueueSize)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName), p.SessionName)
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideCredentials(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.CredentialsDBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("credential store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideViewStore(p Params, logger *zap.Logger) *state.Store {
	s := state.NewStore(logger)
	s.SetSession(p.SessionName)
	return s
}

func provideStateMachine(q *event.Queue) *status.Machine {
	return status.NewMachine(q)
}

func provideAdapter(q *event.Queue, m *status.Machine, db *store.DB, logger *zap.Logger) remote.Adapter {
	return remote.NewDemoAdapter(q, m, db, logger)
}

func provideReconciler(s *state.Store, logger *zap.Logger) *intsync.Reconciler {
	return intsync.NewReconciler(s, logger)
}

func provideDispatcher(s *state.Store, logger *zap.Logger) *input.Dispatcher {
	return input.NewDispatcher(s, logger)
}

func provideCache() *render.ImageCache {
	return render.NewImageCache(render.DefaultCacheSize)
}

func provideTUI(q *event.Queue, logger *zap.Logger) *tui.App {
	return tui.NewApp(q, logger)
}

func provideScheduler(s *state.Store, ui *tui.App, cache *render.ImageCache, q *event.Queue, cfg *config.Config, logger *zap.Logger) *render.Scheduler {
	return render.NewScheduler(s, ui, cache, q, logger, render.Options{
		ImageWidth:   cfg.ImageWidth,
		RenderBudget: time.Duration(cfg.RenderBudgetMs) * time.Millisecond,
		TickInterval: time.Duration(cfg.TickMs) * time.Millisecond,
	})
}

func provideEngine(q *event.Queue, s *state.Store, rec *intsync.Reconciler, disp *input.Dispatcher, sched *render.Scheduler, adapter remote.Adapter, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(q, s, rec, disp, sched, adapter, logger)
}

func provideWatcher(q *event.Queue, logger *zap.Logger) *config.Watcher {
	return config.NewWatcher(session.ConfigPath(), q, logger)
}

func registerLifecycle(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	queue *event.Queue,
	engine *intsync.Engine,
	sched *render.Scheduler,
	ui *tui.App,
	watcher *config.Watcher,
	adapter remote.Adapter,
	lk *lock.Lock,
	logger *zap.Logger,
) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := ui.Run(runCtx); err != nil {
					logger.Error("terminal loop failed", zap.Error(err))
				}
				// The terminal closing always ends the session.
				_ = shutdowner.Shutdown()
			}()

			go func() {
				if err := sched.Run(runCtx); err != nil {
					logger.Error("render scheduler failed", zap.Error(err))
				}
			}()

			go func() {
				if err := watcher.Run(runCtx); err != nil {
					logger.Warn("config watcher stopped", zap.Error(err))
				}
			}()

			go func() {
				err := engine.Run(runCtx)
				if err != nil {
					logger.Error("session ended with failure", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
					return
				}
				_ = shutdowner.Shutdown()
			}()

			if err := adapter.Start(runCtx); err != nil {
				return err
			}

			logger.Info("client started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			queue.Close()
			if err := adapter.Close(ctx); err != nil {
				logger.Warn("adapter close", zap.Error(err))
			}
			ui.Stop()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
