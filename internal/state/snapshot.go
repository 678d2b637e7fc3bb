package state

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Snapshot is an immutable, point-in-time copy of everything the renderer
// needs. It is built by the event loop after a mutation and handed to the
// render scheduler via an atomic pointer, so a concurrent draw can never
// observe a half-applied update.
type Snapshot struct {
	Version uint64
	Left    PaneSnapshot
	Right   PaneSnapshot
	Status  StatusSnapshot
}

// PaneSnapshot describes one pane: its ordered items plus cursor, scroll
// and focus markers.
type PaneSnapshot struct {
	Level   Level
	Title   string
	Items   []Item
	Cursor  int
	Scroll  int
	Height  int
	Focused bool
}

// Item is one display row's worth of entity data. Which fields are set
// depends on the pane level.
type Item struct {
	ID      int64
	Title   string
	Preview string
	Unread  int

	Sender  string
	SentAt  time.Time
	Body    string
	Image   []byte // shared reference; image payloads are never mutated
	Read    bool
	Edited  bool
	Deleted bool
}

// StatusSnapshot feeds the status line and the auth view.
type StatusSnapshot struct {
	Session string
	Runtime string
	Flash   string
	Typing  string // "<sender> is typing" for the open chat, if current
	Auth    *AuthChallenge
	Depth   int
}

type snapshotBox struct {
	ptr atomic.Pointer[Snapshot]
}

// Publish builds a fresh snapshot and makes it the one readers see.
// Must be called from the event loop goroutine only.
func (s *Store) Publish() *Snapshot {
	snap := &Snapshot{
		Version: s.version,
		Left:    s.paneSnapshot(PaneNav),
		Right:   s.paneSnapshot(PaneMessages),
		Status: StatusSnapshot{
			Session: s.session,
			Runtime: s.runtime,
			Flash:   s.currentFlash(),
			Typing:  s.currentTyping(),
			Auth:    s.auth,
			Depth:   len(s.stack),
		},
	}
	s.latest.ptr.Store(snap)
	return snap
}

// Latest returns the most recently published snapshot, or nil before the
// first Publish. Safe from any goroutine.
func (s *Store) Latest() *Snapshot {
	return s.latest.ptr.Load()
}

func (s *Store) paneSnapshot(pane PaneID) PaneSnapshot {
	p := s.panel(pane)
	seq := s.sequence(pane)

	ps := PaneSnapshot{
		Level:   p.Level,
		Cursor:  p.Cursor,
		Scroll:  p.Scroll,
		Height:  p.Height,
		Focused: p.Focused,
		Items:   make([]Item, 0, len(seq)),
	}

	switch p.Level {
	case LevelFolders:
		ps.Title = "Folders"
		for _, id := range seq {
			ps.Items = append(ps.Items, s.folderItem(id))
		}
	case LevelChats:
		ps.Title = s.folderTitle(p.ParentID)
		for _, id := range seq {
			ps.Items = append(ps.Items, s.chatItem(id))
		}
	case LevelMessages:
		ps.Title = s.chatTitle(p.ParentID)
		byID := s.messages[p.ParentID]
		for _, id := range seq {
			if m := byID[id]; m != nil {
				ps.Items = append(ps.Items, messageItem(m))
			}
		}
	}
	return ps
}

func (s *Store) folderItem(id int64) Item {
	if id == AllChatsID {
		unread := 0
		for _, c := range s.chats {
			unread += c.UnreadCount
		}
		return Item{ID: id, Title: "All Chats", Unread: unread, Preview: fmt.Sprintf("%d chats", len(s.chats))}
	}
	f := s.folders[id]
	if f == nil {
		return Item{ID: id, Title: fmt.Sprintf("Folder %d", id)}
	}
	return Item{
		ID:      id,
		Title:   f.Title,
		Unread:  f.UnreadCount,
		Preview: fmt.Sprintf("%d chats", len(f.ChatIDs)),
	}
}

func (s *Store) chatItem(id int64) Item {
	c := s.chats[id]
	if c == nil {
		return Item{ID: id, Title: fmt.Sprintf("Chat %d", id)}
	}
	return Item{
		ID:      id,
		Title:   s.chatTitle(id),
		Preview: c.Preview,
		Unread:  c.UnreadCount,
		SentAt:  c.LastMessageAt,
	}
}

func messageItem(m *Message) Item {
	return Item{
		ID:      m.ID,
		Sender:  m.Sender,
		SentAt:  m.SentAt,
		Body:    m.Body,
		Image:   m.Image,
		Read:    m.Read,
		Edited:  m.Edited,
		Deleted: m.Deleted,
	}
}

func (s *Store) folderTitle(id int64) string {
	if id == AllChatsID {
		return "All Chats"
	}
	if f, ok := s.folders[id]; ok && f.Title != "" {
		return f.Title
	}
	return fmt.Sprintf("Folder %d", id)
}

func (s *Store) chatTitle(id int64) string {
	if c, ok := s.chats[id]; ok && c.Title != "" {
		return c.Title
	}
	return fmt.Sprintf("Chat %d", id)
}

func (s *Store) currentFlash() string {
	if time.Now().After(s.flashUntil) {
		return ""
	}
	return s.flash
}

func (s *Store) currentTyping() string {
	id, ok := s.OpenChatID()
	if !ok {
		return ""
	}
	t, ok := s.typing[id]
	if !ok || time.Now().After(t.Until) {
		return ""
	}
	return t.Sender + " is typing..."
}
