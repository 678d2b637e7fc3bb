package input

import (
	"time"

	"github.com/google/uuid"
	"github.com/tgcon/tgcon/internal/remote"
	"github.com/tgcon/tgcon/internal/state"
	"go.uber.org/zap"
)

// fetchThreshold is how close to the top of the loaded message window the
// cursor may get before older history is requested.
const fetchThreshold = 3

// fetchCooldown limits how often a fetch is issued per chat, so holding
// the Up key at the boundary does not hammer the adapter.
const fetchCooldown = 2 * time.Second

// fetchPageSize is the page size requested from the adapter.
const fetchPageSize = 50

// Outcome is what a single key press produced besides store mutations:
// outbound commands for the session adapter and the quit signal.
type Outcome struct {
	Quit  bool
	Fetch []remote.FetchMore
	Read  []remote.MarkRead
}

// Dispatcher turns decoded keys into state store mutations and outbound
// commands, based on current focus and pane contents. It runs only on the
// engine goroutine.
type Dispatcher struct {
	store     *state.Store
	logger    *zap.Logger
	lastFetch map[int64]time.Time
	now       func() time.Time
}

// NewDispatcher creates the dispatcher.
func NewDispatcher(store *state.Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		store:     store,
		logger:    logger,
		lastFetch: make(map[int64]time.Time),
		now:       time.Now,
	}
}

// Handle applies one key press. Keys on an empty pane fall through as
// no-ops; unknown keys are ignored.
func (d *Dispatcher) Handle(key Key) Outcome {
	var out Outcome

	switch key {
	case KeyQuit:
		out.Quit = true

	case KeyTab:
		d.store.ToggleFocus()
		d.markReadVisible(&out)

	case KeyUp:
		d.move(-1, &out)

	case KeyDown:
		d.move(1, &out)

	case KeyPageUp:
		d.move(-d.pageSize(), &out)

	case KeyPageDown:
		d.move(d.pageSize(), &out)

	case KeyEnter:
		if d.store.OpenSelected() {
			d.markReadVisible(&out)
		}

	case KeyEsc:
		d.store.GoBack()

	case KeyUnknown:
		// Undecodable keys are ignored by contract.
	}

	return out
}

func (d *Dispatcher) move(delta int, out *Outcome) {
	pane := d.store.FocusedPane()
	moved := d.store.MoveCursor(pane, delta)
	if pane != state.PaneMessages {
		return
	}
	if moved {
		d.markReadVisible(out)
	}
	if delta < 0 {
		d.maybeFetchMore(out)
	}
}

// ViewportChanged reacts to the viewport itself changing shape (a terminal
// resize): messages that just scrolled into view get marked read as if the
// cursor had reached them.
func (d *Dispatcher) ViewportChanged() Outcome {
	var out Outcome
	d.markReadVisible(&out)
	return out
}

func (d *Dispatcher) pageSize() int {
	p := d.store.PanelSnapshot(d.store.FocusedPane())
	if p.Height > 1 {
		return p.Height - 1
	}
	return state.DefaultViewportHeight - 1
}

// markReadVisible marks every unread message inside the viewport read,
// locally and remotely, when the messages pane is focused. Seeing a
// message counts as reading it, not just landing the cursor on it.
func (d *Dispatcher) markReadVisible(out *Outcome) {
	if d.store.FocusedPane() != state.PaneMessages {
		return
	}
	for _, m := range d.store.VisibleUnreadMessages() {
		d.store.MarkRead(m.ChatID, m.ID)
		out.Read = append(out.Read, remote.MarkRead{
			RequestID: uuid.NewString(),
			ChatID:    m.ChatID,
			MessageID: m.ID,
		})
	}
}

// maybeFetchMore requests an older history page when the cursor is near
// the top of the loaded window.
func (d *Dispatcher) maybeFetchMore(out *Outcome) {
	chatID, ok := d.store.OpenChatID()
	if !ok {
		return
	}
	p := d.store.PanelSnapshot(state.PaneMessages)
	if p.Cursor < 0 || p.Cursor >= fetchThreshold {
		return
	}
	oldest, ok := d.store.OldestLoadedMessage(chatID)
	if !ok {
		return
	}
	if last, seen := d.lastFetch[chatID]; seen && d.now().Sub(last) < fetchCooldown {
		return
	}
	d.lastFetch[chatID] = d.now()

	cmd := remote.FetchMore{
		RequestID:       uuid.NewString(),
		ChatID:          chatID,
		BeforeMessageID: oldest,
		Limit:           fetchPageSize,
	}
	out.Fetch = append(out.Fetch, cmd)
	d.logger.Debug("requesting older history",
		zap.String("request_id", cmd.RequestID),
		zap.Int64("chat_id", chatID),
		zap.Int64("before", oldest))
}
