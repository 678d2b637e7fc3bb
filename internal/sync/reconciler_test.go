package sync

import (
	"testing"
	"time"

	"github.com/tgcon/tgcon/internal/event"
	"github.com/tgcon/tgcon/internal/remote"
	"github.com/tgcon/tgcon/internal/state"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func msg(id int64, body string) state.Message {
	return state.Message{
		ID:     id,
		Sender: "alice",
		SentAt: baseTime.Add(time.Duration(id) * time.Minute),
		Body:   body,
	}
}

func testSnapshot() remote.Snapshot {
	return remote.Snapshot{
		Folders: []state.Folder{
			{ID: 10, Title: "Work", ChatIDs: []int64{1}},
		},
		Chats: []state.Chat{
			{ID: 1, Title: "Team", UnreadCount: 2, LastMessageAt: baseTime.Add(2 * time.Minute)},
			{ID: 2, Title: "Alice", LastMessageAt: baseTime.Add(time.Minute)},
		},
		Messages: map[int64][]state.Message{
			1: {msg(1, "hello"), msg(2, "world")},
			2: {msg(3, "hi")},
		},
	}
}

func TestApplySnapshot(t *testing.T) {
	store := state.NewStore(nil)
	rec := NewReconciler(store, nil)

	rec.Apply(event.New(event.KindSnapshot, testSnapshot()))

	snap := store.Publish()
	// Folder pane: All Chats plus the one server folder.
	if got := len(snap.Left.Items); got != 2 {
		t.Fatalf("folder rows = %d, want 2", got)
	}
	if snap.Left.Items[1].Title != "Work" {
		t.Errorf("folder title = %q", snap.Left.Items[1].Title)
	}
}

func TestSnapshotUnreadCountsAreAuthoritative(t *testing.T) {
	store := state.NewStore(nil)
	rec := NewReconciler(store, nil)

	rec.Apply(event.New(event.KindSnapshot, testSnapshot()))

	// All Chats aggregates per-chat unread. Message ingestion must not
	// have double-counted on top of the chat records.
	snap := store.Publish()
	if got := snap.Left.Items[0].Unread; got != 2 {
		t.Errorf("aggregate unread = %d, want 2", got)
	}
}

func TestFolderChangeDelete(t *testing.T) {
	store := state.NewStore(nil)
	rec := NewReconciler(store, nil)
	rec.Apply(event.New(event.KindSnapshot, testSnapshot()))

	rec.Apply(event.New(event.KindFolderChanged, remote.FolderChange{
		Folder:  state.Folder{ID: 10},
		Deleted: true,
	}))

	snap := store.Publish()
	if got := len(snap.Left.Items); got != 1 {
		t.Fatalf("folder rows = %d, want 1", got)
	}
	if snap.Left.Items[0].ID != state.AllChatsID {
		t.Errorf("remaining folder = %d, want All Chats", snap.Left.Items[0].ID)
	}
}

func TestMessageUpsertForUnknownChat(t *testing.T) {
	store := state.NewStore(nil)
	rec := NewReconciler(store, nil)

	rec.Apply(event.New(event.KindMessageUpsert, remote.MessageUpsert{
		ChatID:  7,
		Message: msg(40, "first contact"),
	}))

	// The chat must now exist in All Chats.
	if !store.OpenSelected() {
		t.Fatal("could not open All Chats")
	}
	id, ok := store.SelectedID(state.PaneNav)
	if !ok || id != 7 {
		t.Errorf("selected chat = %d (ok=%v), want 7", id, ok)
	}
}

func TestMessageDeleteTombstones(t *testing.T) {
	store := state.NewStore(nil)
	rec := NewReconciler(store, nil)
	rec.Apply(event.New(event.KindSnapshot, testSnapshot()))

	rec.Apply(event.New(event.KindMessageDeleted, remote.MessageDelete{
		ChatID:    1,
		MessageID: 1,
	}))

	// Chat 1 is closed, so the tombstone compacts immediately.
	if _, ok := store.OldestLoadedMessage(1); !ok {
		t.Fatal("chat 1 has no messages left")
	}
	if oldest, _ := store.OldestLoadedMessage(1); oldest != 2 {
		t.Errorf("oldest message = %d, want 2", oldest)
	}
}

func TestTypingShowsInStatus(t *testing.T) {
	store := state.NewStore(nil)
	rec := NewReconciler(store, nil)
	rec.Apply(event.New(event.KindSnapshot, testSnapshot()))

	// Open chat 1 (All Chats -> first chat by recency).
	store.OpenSelected()
	store.OpenSelected()
	openID, _ := store.OpenChatID()

	rec.Apply(event.New(event.KindTyping, remote.Typing{
		ChatID:    openID,
		Sender:    "alice",
		ExpiresAt: time.Now().Add(5 * time.Second),
	}))

	snap := store.Publish()
	if snap.Status.Typing == "" {
		t.Error("typing indicator missing from status")
	}
}

func TestBadPayloadIsDropped(t *testing.T) {
	store := state.NewStore(nil)
	rec := NewReconciler(store, nil)

	before := store.Version()
	rec.Apply(event.New(event.KindMessageUpsert, "not a message"))
	if store.Version() != before {
		t.Error("malformed payload mutated the store")
	}
}
