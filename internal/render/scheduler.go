package render

import (
	"context"
	"sync"
	"time"

	"github.com/tgcon/tgcon/internal/event"
	"github.com/tgcon/tgcon/internal/imagetext"
	"github.com/tgcon/tgcon/internal/state"
	"go.uber.org/zap"
)

// Renderer is the terminal drawing collaborator; it draws exactly the
// frame it is handed.
type Renderer interface {
	Draw(*Frame)
}

// Converter turns image bytes into a character grid. Pure; may be slow.
type Converter func(data []byte, width int) ([]string, error)

// Options configure the scheduler.
type Options struct {
	ImageWidth   int
	RenderBudget time.Duration
	TickInterval time.Duration
}

func (o *Options) fill() {
	if o.ImageWidth <= 0 {
		o.ImageWidth = imagetext.DefaultWidth
	}
	if o.RenderBudget <= 0 {
		o.RenderBudget = 50 * time.Millisecond
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
}

// Scheduler drives the renderer on a fixed tick or a dirty signal. Each
// pass reads the latest published snapshot, so a concurrent mutation can
// never tear a frame. Image conversions run in workers under the render
// budget; a slow conversion renders a placeholder now and comes back as a
// cache-fill event through the queue.
type Scheduler struct {
	store    *state.Store
	renderer Renderer
	cache    *ImageCache
	convert  Converter
	queue    *event.Queue
	logger   *zap.Logger

	dirty chan struct{}

	mu       sync.Mutex
	width    int
	budget   time.Duration
	interval time.Duration
	inflight map[int64]chan []string

	// deadline for the frame currently being built (scheduler goroutine only)
	frameDeadline time.Time
}

// NewScheduler creates the render scheduler.
func NewScheduler(store *state.Store, renderer Renderer, cache *ImageCache, queue *event.Queue, logger *zap.Logger, opts Options) *Scheduler {
	opts.fill()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		store:    store,
		renderer: renderer,
		cache:    cache,
		convert:  imagetext.Convert,
		queue:    queue,
		logger:   logger,
		dirty:    make(chan struct{}, 1),
		width:    opts.ImageWidth,
		budget:   opts.RenderBudget,
		interval: opts.TickInterval,
		inflight: make(map[int64]chan []string),
	}
}

// SetConverter overrides the image conversion function (tests).
func (s *Scheduler) SetConverter(c Converter) { s.convert = c }

// MarkDirty requests an immediate redraw. Coalesces.
func (s *Scheduler) MarkDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// Fill stores a completed conversion. Called from the event loop when a
// cache-fill event arrives, keeping cache writes on the single-writer path.
func (s *Scheduler) Fill(f CacheFill) {
	s.cache.Put(f.MessageID, f.Grid)
	s.mu.Lock()
	delete(s.inflight, f.MessageID)
	s.mu.Unlock()
	s.MarkDirty()
}

// ApplyConfig updates the image width after a config reload.
func (s *Scheduler) ApplyConfig(imageWidth int) {
	if imageWidth <= 0 {
		return
	}
	s.mu.Lock()
	s.width = imageWidth
	s.mu.Unlock()
	s.MarkDirty()
}

// Run draws until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.RenderOnce()
		case <-s.dirty:
			s.RenderOnce()
		}
	}
}

// RenderOnce builds and draws a single frame from the latest snapshot.
func (s *Scheduler) RenderOnce() {
	snap := s.store.Latest()
	if snap == nil {
		return
	}
	s.mu.Lock()
	budget := s.budget
	s.mu.Unlock()
	s.frameDeadline = time.Now().Add(budget)

	frame := s.BuildFrame(snap)
	s.renderer.Draw(frame)
}

// BuildFrame converts a state snapshot into display rows.
func (s *Scheduler) BuildFrame(snap *state.Snapshot) *Frame {
	now := time.Now()
	s.pinVisible(snap)

	frame := &Frame{
		Left:   s.buildPane(snap.Left, now),
		Right:  s.buildPane(snap.Right, now),
		Status: statusLine(snap.Status, now),
		Help:   helpLine,
	}
	if snap.Status.Auth != nil {
		// The auth view replaces pane content; the renderer decides layout.
		frame.Right.Title = "Authentication"
		frame.Auth = &AuthPrompt{
			Message: snap.Status.Auth.Message,
			Code:    snap.Status.Auth.Code,
		}
	}
	return frame
}

func (s *Scheduler) buildPane(ps state.PaneSnapshot, now time.Time) Pane {
	pane := Pane{
		Title:   ps.Title,
		Cursor:  ps.Cursor,
		Scroll:  ps.Scroll,
		Focused: ps.Focused,
		Rows:    make([]Row, 0, len(ps.Items)),
	}
	for i, it := range ps.Items {
		var row Row
		if ps.Level == state.LevelMessages {
			row = s.messageRow(it, now)
		} else {
			row = listRow(ps.Level, it, now)
		}
		row.Selected = i == ps.Cursor
		pane.Rows = append(pane.Rows, row)
	}
	return pane
}

// pinVisible protects the grids of on-screen image messages from eviction.
func (s *Scheduler) pinVisible(snap *state.Snapshot) {
	ps := snap.Right
	if ps.Level != state.LevelMessages {
		s.cache.SetVisible(nil)
		return
	}
	var ids []int64
	end := ps.Scroll + ps.Height
	for i := ps.Scroll; i < end && i < len(ps.Items); i++ {
		if len(ps.Items[i].Image) > 0 {
			ids = append(ids, ps.Items[i].ID)
		}
	}
	s.cache.SetVisible(ids)
}

// imageLines returns the rendered grid for a message image: cached if
// available, converted within the remaining frame budget if quick enough,
// otherwise a placeholder while a worker finishes in the background.
func (s *Scheduler) imageLines(id int64, data []byte) []string {
	if grid, ok := s.cache.Get(id); ok {
		return grid
	}

	done := s.startConversion(id, data)

	wait := time.Until(s.frameDeadline)
	if wait > 0 {
		select {
		case grid := <-done:
			return grid
		case <-time.After(wait):
		}
	}
	// Budget exceeded: recoverable. The worker's cache-fill event will
	// trigger the next draw.
	return []string{"[rendering image...]"}
}

// startConversion launches (or joins) the conversion worker for a message
// and returns a channel that yields the grid.
func (s *Scheduler) startConversion(id int64, data []byte) <-chan []string {
	s.mu.Lock()
	if ch, running := s.inflight[id]; running {
		s.mu.Unlock()
		return ch
	}
	ch := make(chan []string, 2)
	s.inflight[id] = ch
	width := s.width
	s.mu.Unlock()

	go func() {
		grid, err := s.convert(data, width)
		if err != nil {
			s.logger.Warn("image conversion failed", zap.Int64("msg_id", id), zap.Error(err))
			grid = []string{"[image unavailable]"}
		}
		ch <- grid
		// Deliver through the queue so the single-writer loop owns the
		// cache fill; drop silently on shutdown.
		_ = s.queue.Push(event.New(event.KindCacheFill, CacheFill{MessageID: id, Grid: grid}))
	}()
	return ch
}
