package input

import (
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/tgcon/tgcon/internal/state"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// seedStore loads one folder with one chat holding n messages and
// navigates into the messages pane.
func seedStore(t *testing.T, n int) *state.Store {
	t.Helper()
	store := state.NewStore(nil)
	for i := 1; i <= n; i++ {
		store.UpsertMessage(1, state.Message{
			ID:     int64(i),
			Sender: "alice",
			SentAt: baseTime.Add(time.Duration(i) * time.Minute),
			Body:   "m",
		})
	}
	if !store.OpenSelected() { // All Chats -> chat list
		t.Fatal("open folder failed")
	}
	if !store.OpenSelected() { // chat -> messages
		t.Fatal("open chat failed")
	}
	return store
}

func TestQuitKey(t *testing.T) {
	d := NewDispatcher(state.NewStore(nil), nil)
	if out := d.Handle(KeyQuit); !out.Quit {
		t.Error("Ctrl+Q did not request quit")
	}
}

func TestUnknownKeyIgnored(t *testing.T) {
	store := state.NewStore(nil)
	d := NewDispatcher(store, nil)
	before := store.Version()
	out := d.Handle(KeyUnknown)
	if out.Quit || len(out.Fetch) != 0 || len(out.Read) != 0 {
		t.Errorf("unknown key produced outcome %+v", out)
	}
	if store.Version() != before {
		t.Error("unknown key mutated state")
	}
}

func TestTabTogglesFocus(t *testing.T) {
	store := state.NewStore(nil)
	d := NewDispatcher(store, nil)

	if store.FocusedPane() != state.PaneNav {
		t.Fatal("navigation pane should start focused")
	}
	d.Handle(KeyTab)
	if store.FocusedPane() != state.PaneMessages {
		t.Error("Tab did not move focus to the messages pane")
	}
	d.Handle(KeyTab)
	if store.FocusedPane() != state.PaneNav {
		t.Error("Tab did not move focus back")
	}
}

func TestEnterOpensAndMarksRead(t *testing.T) {
	store := seedStore(t, 3)
	d := NewDispatcher(store, nil)

	// seedStore already opened the chat via OpenSelected, so simulate a
	// fresh Enter from the chat list instead.
	store.GoBack()
	out := d.Handle(KeyEnter)

	if store.FocusedPane() != state.PaneMessages {
		t.Error("Enter on a chat did not focus the messages pane")
	}
	// All three messages fit the viewport, so opening reads all of them.
	if len(out.Read) != 3 {
		t.Fatalf("read commands = %d, want 3", len(out.Read))
	}
	if out.Read[0].ChatID != 1 {
		t.Errorf("mark read chat = %d, want 1", out.Read[0].ChatID)
	}
}

func TestOpeningMarksOnlyViewportRead(t *testing.T) {
	store := seedStore(t, 30)
	store.SetPaneHeights(10, 10)
	store.GoBack()
	d := NewDispatcher(store, nil)

	out := d.Handle(KeyEnter)
	if len(out.Read) != 10 {
		t.Fatalf("read commands = %d, want the 10 visible messages", len(out.Read))
	}
	seen := make(map[int64]bool)
	for _, r := range out.Read {
		seen[r.MessageID] = true
	}
	for id := int64(1); id <= 10; id++ {
		if !seen[id] {
			t.Errorf("message %d is in the viewport but was not marked read", id)
		}
	}
	if seen[11] {
		t.Error("message 11 is below the fold but was marked read")
	}
}

func TestResizeMarksNewlyVisibleRead(t *testing.T) {
	store := seedStore(t, 30)
	store.SetPaneHeights(10, 10)
	store.GoBack()
	d := NewDispatcher(store, nil)
	d.Handle(KeyEnter)

	// Growing the pane exposes ten more messages.
	store.SetPaneHeights(20, 20)
	out := d.ViewportChanged()
	if len(out.Read) != 10 {
		t.Fatalf("read commands after resize = %d, want 10", len(out.Read))
	}

	// A second report with nothing newly visible is silent.
	if again := d.ViewportChanged(); len(again.Read) != 0 {
		t.Errorf("repeat resize produced %d read commands, want 0", len(again.Read))
	}
}

func TestEscGoesBack(t *testing.T) {
	store := seedStore(t, 3)
	d := NewDispatcher(store, nil)

	depth := store.BackDepth()
	d.Handle(KeyEsc)
	if store.BackDepth() != depth-1 {
		t.Errorf("back depth = %d, want %d", store.BackDepth(), depth-1)
	}
}

func TestMovementMarksReadInMessagesPane(t *testing.T) {
	store := seedStore(t, 3)
	d := NewDispatcher(store, nil)

	p := store.PanelSnapshot(state.PaneMessages)
	before := p.Cursor
	out := d.Handle(KeyDown)
	p = store.PanelSnapshot(state.PaneMessages)
	if p.Cursor != before+1 {
		t.Errorf("cursor = %d, want %d", p.Cursor, before+1)
	}
	// The chat was entered without the dispatcher, so the first move
	// catches up on everything in view.
	if len(out.Read) != 3 {
		t.Errorf("read commands = %d, want 3", len(out.Read))
	}
	// Nothing unread remains, so further movement is silent.
	if out = d.Handle(KeyDown); len(out.Read) != 0 {
		t.Errorf("read commands on second move = %d, want 0", len(out.Read))
	}
}

func TestMovementInNavPaneSendsNoCommands(t *testing.T) {
	store := seedStore(t, 3)
	store.SetFocus(state.PaneNav)
	d := NewDispatcher(store, nil)

	out := d.Handle(KeyUp)
	if len(out.Read) != 0 || len(out.Fetch) != 0 {
		t.Errorf("nav movement produced commands %+v", out)
	}
}

func TestFetchMoreNearTopOfWindow(t *testing.T) {
	store := seedStore(t, 10)
	d := NewDispatcher(store, nil)

	var fetch []struct {
		before int64
		limit  int
	}
	// The cursor opens at the top of the window, inside the fetch
	// threshold. Repeated Ups must trigger exactly one fetch thanks to
	// the cooldown.
	for i := 0; i < 12; i++ {
		out := d.Handle(KeyUp)
		for _, f := range out.Fetch {
			fetch = append(fetch, struct {
				before int64
				limit  int
			}{f.BeforeMessageID, f.Limit})
		}
	}

	if len(fetch) != 1 {
		t.Fatalf("fetch commands = %d, want 1", len(fetch))
	}
	if fetch[0].before != 1 {
		t.Errorf("fetch before = %d, want oldest id 1", fetch[0].before)
	}
	if fetch[0].limit != fetchPageSize {
		t.Errorf("fetch limit = %d, want %d", fetch[0].limit, fetchPageSize)
	}
}

func TestFetchCooldownExpires(t *testing.T) {
	store := seedStore(t, 10)
	d := NewDispatcher(store, nil)

	now := baseTime
	d.now = func() time.Time { return now }

	// Drive the cursor into the threshold zone.
	var total int
	for i := 0; i < 12; i++ {
		total += len(d.Handle(KeyUp).Fetch)
	}
	if total != 1 {
		t.Fatalf("fetch commands = %d, want 1", total)
	}

	now = now.Add(fetchCooldown + time.Second)
	out := d.Handle(KeyUp) // cursor clamped at top, still inside threshold
	if len(out.Fetch) != 1 {
		t.Errorf("fetch after cooldown = %d, want 1", len(out.Fetch))
	}
}

func TestPageDownUsesViewportHeight(t *testing.T) {
	store := seedStore(t, 30)
	store.SetPaneHeights(10, 10)
	// Put the cursor at the top first.
	d := NewDispatcher(store, nil)
	for i := 0; i < 35; i++ {
		d.Handle(KeyUp)
	}

	before := store.PanelSnapshot(state.PaneMessages).Cursor
	d.Handle(KeyPageDown)
	after := store.PanelSnapshot(state.PaneMessages).Cursor
	if after-before != 9 {
		t.Errorf("page moved %d rows, want 9", after-before)
	}
}

func TestDecode(t *testing.T) {
	cases := []struct {
		ev   *tcell.EventKey
		want Key
	}{
		{tcell.NewEventKey(tcell.KeyTab, 0, tcell.ModNone), KeyTab},
		{tcell.NewEventKey(tcell.KeyBacktab, 0, tcell.ModShift), KeyTab},
		{tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), KeyUp},
		{tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone), KeyDown},
		{tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), KeyEnter},
		{tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), KeyEsc},
		{tcell.NewEventKey(tcell.KeyCtrlQ, 0, tcell.ModCtrl), KeyQuit},
		{tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone), KeyUnknown},
	}
	for _, tc := range cases {
		if got := Decode(tc.ev); got != tc.want {
			t.Errorf("Decode(%v) = %v, want %v", tc.ev.Key(), got, tc.want)
		}
	}
}
