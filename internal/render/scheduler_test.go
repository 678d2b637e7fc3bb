package render

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tgcon/tgcon/internal/event"
	"github.com/tgcon/tgcon/internal/state"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

var errDecode = errors.New("decode failed")

type captureRenderer struct {
	mu   sync.Mutex
	last *Frame
}

func (r *captureRenderer) Draw(f *Frame) {
	r.mu.Lock()
	r.last = f
	r.mu.Unlock()
}

func (r *captureRenderer) frame() *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// openImageChat seeds a store with one chat holding a text message and an
// image message, navigated into the messages pane.
func openImageChat(t *testing.T) *state.Store {
	t.Helper()
	store := state.NewStore(nil)
	store.UpsertMessage(1, state.Message{
		ID: 1, Sender: "alice", SentAt: baseTime, Body: "look at this",
	})
	store.UpsertMessage(1, state.Message{
		ID: 2, Sender: "alice", SentAt: baseTime.Add(time.Minute), Image: []byte{0xff, 0xd8},
	})
	if !store.OpenSelected() || !store.OpenSelected() {
		t.Fatal("navigation failed")
	}
	return store
}

func newTestScheduler(store *state.Store, opts Options) (*Scheduler, *captureRenderer, *event.Queue) {
	r := &captureRenderer{}
	q := event.NewQueue(16)
	s := NewScheduler(store, r, NewImageCache(8), q, nil, opts)
	return s, r, q
}

func paneText(p Pane) string {
	var b strings.Builder
	for _, row := range p.Rows {
		for _, line := range row.Lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func TestBuildFrameMarksSelection(t *testing.T) {
	store := openImageChat(t)
	store.Publish()
	s, _, _ := newTestScheduler(store, Options{})

	frame := s.BuildFrame(store.Latest())
	if len(frame.Right.Rows) != 2 {
		t.Fatalf("message rows = %d, want 2", len(frame.Right.Rows))
	}
	if !frame.Right.Rows[0].Selected {
		t.Error("cursor row not marked selected")
	}
	if frame.Right.Rows[1].Selected {
		t.Error("non-cursor row marked selected")
	}
	if frame.Help == "" {
		t.Error("help line empty")
	}
	if !strings.Contains(frame.Right.Rows[0].Lines[0], "alice") {
		t.Errorf("message header = %q", frame.Right.Rows[0].Lines[0])
	}
}

func TestImageConvertedWithinBudget(t *testing.T) {
	store := openImageChat(t)
	store.Publish()
	s, r, _ := newTestScheduler(store, Options{RenderBudget: time.Second})
	s.SetConverter(func(data []byte, width int) ([]string, error) {
		return []string{"ascii art"}, nil
	})

	s.RenderOnce()

	frame := r.frame()
	if frame == nil {
		t.Fatal("nothing drawn")
	}
	if !strings.Contains(paneText(frame.Right), "ascii art") {
		t.Errorf("image grid missing:\n%s", paneText(frame.Right))
	}
}

func TestSlowImageRendersPlaceholderThenFills(t *testing.T) {
	store := openImageChat(t)
	store.Publish()
	s, r, q := newTestScheduler(store, Options{RenderBudget: 5 * time.Millisecond})
	s.SetConverter(func(data []byte, width int) ([]string, error) {
		time.Sleep(100 * time.Millisecond)
		return []string{"late art"}, nil
	})

	s.RenderOnce()
	if !strings.Contains(paneText(r.frame().Right), "[rendering image...]") {
		t.Fatalf("placeholder missing:\n%s", paneText(r.frame().Right))
	}

	// The worker delivers the finished grid through the queue.
	select {
	case evt := <-q.Events():
		fill, ok := evt.Payload.(CacheFill)
		if !ok || evt.Kind != event.KindCacheFill {
			t.Fatalf("event = %v", evt)
		}
		s.Fill(fill)
	case <-time.After(2 * time.Second):
		t.Fatal("cache fill never arrived")
	}

	s.RenderOnce()
	if !strings.Contains(paneText(r.frame().Right), "late art") {
		t.Errorf("grid missing after fill:\n%s", paneText(r.frame().Right))
	}
}

func TestConversionFailureShowsFallback(t *testing.T) {
	store := openImageChat(t)
	store.Publish()
	s, r, _ := newTestScheduler(store, Options{RenderBudget: time.Second})
	s.SetConverter(func(data []byte, width int) ([]string, error) {
		return nil, errDecode
	})

	s.RenderOnce()
	if !strings.Contains(paneText(r.frame().Right), "[image unavailable]") {
		t.Errorf("fallback missing:\n%s", paneText(r.frame().Right))
	}
}

func TestVisibleImagesArePinned(t *testing.T) {
	store := openImageChat(t)
	store.Publish()
	s, _, _ := newTestScheduler(store, Options{})
	s.SetConverter(func([]byte, int) ([]string, error) {
		return []string{"pinned"}, nil
	})

	s.BuildFrame(store.Latest())
	// The image message (id 2) is on screen, so even a flood of puts
	// must not evict its grid.
	s.cache.Put(2, []string{"pinned"})
	for id := int64(100); id < 120; id++ {
		s.cache.Put(id, grid(id))
	}
	if _, ok := s.cache.Get(2); !ok {
		t.Error("visible grid was evicted")
	}
}

func TestAuthChallengeTakesOverRightPane(t *testing.T) {
	store := state.NewStore(nil)
	store.SetAuth(&state.AuthChallenge{Message: "scan", Code: "tg://login"})
	store.Publish()
	s, _, _ := newTestScheduler(store, Options{})

	frame := s.BuildFrame(store.Latest())
	if frame.Right.Title != "Authentication" {
		t.Errorf("right pane title = %q", frame.Right.Title)
	}
	if frame.Auth == nil || frame.Auth.Code != "tg://login" {
		t.Errorf("auth prompt = %+v", frame.Auth)
	}
}

func TestApplyConfigMarksDirty(t *testing.T) {
	store := state.NewStore(nil)
	store.Publish()
	s, _, _ := newTestScheduler(store, Options{})

	s.ApplyConfig(72)
	select {
	case <-s.dirty:
	default:
		t.Error("config change did not mark the scheduler dirty")
	}
}

func TestDeletedMessageRendersTombstone(t *testing.T) {
	store := openImageChat(t)
	store.MarkDeleted(1, 1)
	store.Publish()
	s, _, _ := newTestScheduler(store, Options{})

	frame := s.BuildFrame(store.Latest())
	if frame.Right.Rows[0].Lines[0] != "[message deleted]" {
		t.Errorf("tombstone row = %q", frame.Right.Rows[0].Lines[0])
	}
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	if got := formatTimestamp(now.Add(-2*time.Hour), now); got != "16:00" {
		t.Errorf("same day = %q, want 16:00", got)
	}
	if got := formatTimestamp(now.AddDate(0, 0, -3), now); got != "02/26" {
		t.Errorf("older = %q, want 02/26", got)
	}
}
