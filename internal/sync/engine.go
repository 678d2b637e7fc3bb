package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/tgcon/tgcon/internal/config"
	"github.com/tgcon/tgcon/internal/event"
	"github.com/tgcon/tgcon/internal/input"
	"github.com/tgcon/tgcon/internal/remote"
	"github.com/tgcon/tgcon/internal/render"
	"github.com/tgcon/tgcon/internal/state"
	"github.com/tgcon/tgcon/internal/status"
	"go.uber.org/zap"
)

// flashDuration is how long transient status-line notices stay visible.
const flashDuration = 4 * time.Second

// Engine is the single consumer of the event queue. Every event, whatever
// its origin, is applied to the view state store from this one goroutine;
// after each event that changed state it publishes a fresh snapshot and
// marks the render scheduler dirty. Producers never touch the store.
type Engine struct {
	queue      *event.Queue
	store      *state.Store
	reconciler *Reconciler
	dispatcher *input.Dispatcher
	scheduler  *render.Scheduler
	adapter    remote.Adapter
	logger     *zap.Logger
}

// NewEngine wires the central loop.
func NewEngine(
	queue *event.Queue,
	store *state.Store,
	reconciler *Reconciler,
	dispatcher *input.Dispatcher,
	scheduler *render.Scheduler,
	adapter remote.Adapter,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		queue:      queue,
		store:      store,
		reconciler: reconciler,
		dispatcher: dispatcher,
		scheduler:  scheduler,
		adapter:    adapter,
		logger:     logger,
	}
}

// Run consumes the queue until the context is cancelled, the user quits,
// or a fatal adapter event arrives. A nil return means a clean shutdown;
// a fatal event is returned as an error so the process can exit non-zero.
func (e *Engine) Run(ctx context.Context) error {
	e.store.Publish()
	e.scheduler.MarkDirty()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.queue.Done():
			// Shutdown: anything still queued no longer matters.
			return nil
		case evt := <-e.queue.Events():
			quit, err := e.handle(ctx, evt)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// handle applies one event. It returns quit=true for a user-initiated
// shutdown and a non-nil error only for fatal adapter failures.
func (e *Engine) handle(ctx context.Context, evt event.Event) (bool, error) {
	before := e.store.Version()

	switch evt.Kind {
	case event.KindKey:
		key, ok := evt.Payload.(input.Key)
		if !ok {
			e.badPayload(evt)
			break
		}
		out := e.dispatcher.Handle(key)
		e.sendCommands(ctx, out)
		if out.Quit {
			e.publishIfChanged(before)
			return true, nil
		}

	case event.KindResize:
		rs, ok := evt.Payload.(input.Resize)
		if !ok {
			e.badPayload(evt)
			break
		}
		e.store.SetPaneHeights(rs.LeftHeight, rs.RightHeight)
		// A taller pane can expose messages that were below the fold.
		e.sendCommands(ctx, e.dispatcher.ViewportChanged())

	case event.KindSnapshot, event.KindFolderChanged, event.KindChatChanged,
		event.KindMessageUpsert, event.KindMessageDeleted, event.KindTyping:
		e.reconciler.Apply(evt)

	case event.KindCacheFill:
		fill, ok := evt.Payload.(render.CacheFill)
		if !ok {
			e.badPayload(evt)
			break
		}
		e.scheduler.Fill(fill)

	case event.KindStatusChanged:
		ch, ok := evt.Payload.(status.Change)
		if !ok {
			e.badPayload(evt)
			break
		}
		e.store.SetRuntime(string(ch.To))
		if ch.From == status.AuthRequired && ch.To != status.AuthRequired {
			e.store.SetAuth(nil)
		}
		e.logger.Info("session status changed",
			zap.String("from", string(ch.From)),
			zap.String("to", string(ch.To)))

	case event.KindAuthChallenge:
		// Carries either the challenge to display or the completed login.
		switch p := evt.Payload.(type) {
		case remote.AuthChallenge:
			e.store.SetAuth(&state.AuthChallenge{Message: p.Message, Code: p.Code})
		case remote.Authorized:
			e.store.SetAuth(nil)
			e.store.SetFlash(fmt.Sprintf("logged in as %s", p.Name), flashDuration)
		default:
			e.badPayload(evt)
		}

	case event.KindFatal:
		ferr, ok := evt.Payload.(remote.FatalError)
		if !ok {
			e.badPayload(evt)
			break
		}
		e.store.SetFlash(ferr.Error(), flashDuration)
		e.store.Publish()
		e.scheduler.MarkDirty()
		return false, ferr

	case event.KindConfigChanged:
		cfg, ok := evt.Payload.(config.Config)
		if !ok {
			e.badPayload(evt)
			break
		}
		e.scheduler.ApplyConfig(cfg.ImageWidth)
		e.store.SetFlash("configuration reloaded", flashDuration)
		e.logger.Info("configuration reloaded", zap.Int("image_width", cfg.ImageWidth))

	default:
		e.logger.Warn("unhandled event kind", zap.String("kind", string(evt.Kind)))
	}

	e.publishIfChanged(before)
	return false, nil
}

func (e *Engine) publishIfChanged(before uint64) {
	if e.store.Version() == before {
		return
	}
	e.store.Publish()
	e.scheduler.MarkDirty()
}

// sendCommands forwards outbound commands to the adapter off the engine
// goroutine, so a slow remote call never stalls event handling. Failures
// are logged; the view already reflects the optimistic local state.
func (e *Engine) sendCommands(ctx context.Context, out input.Outcome) {
	for _, cmd := range out.Fetch {
		go func(cmd remote.FetchMore) {
			if err := e.adapter.FetchMore(ctx, cmd); err != nil {
				e.logger.Warn("fetch more failed",
					zap.String("request_id", cmd.RequestID),
					zap.Int64("chat_id", cmd.ChatID),
					zap.Error(err))
			}
		}(cmd)
	}
	for _, cmd := range out.Read {
		go func(cmd remote.MarkRead) {
			if err := e.adapter.MarkRead(ctx, cmd); err != nil {
				e.logger.Warn("mark read failed",
					zap.String("request_id", cmd.RequestID),
					zap.Int64("chat_id", cmd.ChatID),
					zap.Error(err))
			}
		}(cmd)
	}
}

func (e *Engine) badPayload(evt event.Event) {
	e.logger.Error("event payload has wrong type",
		zap.String("kind", string(evt.Kind)),
		zap.Any("payload", evt.Payload))
}
