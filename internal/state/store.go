package state

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// Store owns all view state: entities, both panel states and the
// navigation back-stack. Mutations must only be called from the central
// event loop goroutine (single-writer discipline); concurrent readers use
// the immutable snapshots published via Publish/Latest.
type Store struct {
	logger *zap.Logger

	folders     map[int64]*Folder
	folderOrder []int64
	chats       map[int64]*Chat
	chatOrder   []int64 // every known chat, most recently active first
	messages    map[int64]map[int64]*Message

	left  PanelState
	right PanelState
	stack []navFrame

	session    string
	runtime    string
	flash      string
	flashUntil time.Time
	auth       *AuthChallenge
	typing     map[int64]typingState

	version uint64
	latest  snapshotBox
}

// AuthChallenge is what the auth view must display while the session
// adapter waits for the user to authenticate.
type AuthChallenge struct {
	Message string
	Code    string // login token/URL rendered as a QR grid by the UI
}

type typingState struct {
	Sender string
	Until  time.Time
}

// NewStore creates an empty store. The nav pane starts focused on the
// folder list.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:   logger,
		folders:  make(map[int64]*Folder),
		chats:    make(map[int64]*Chat),
		messages: make(map[int64]map[int64]*Message),
		typing:   make(map[int64]typingState),
		left: PanelState{
			Level: LevelFolders,
			// The folder list always contains the synthetic All Chats entry.
			Cursor:  0,
			Height:  DefaultViewportHeight,
			Focused: true,
		},
		right: PanelState{
			Level:  LevelMessages,
			Cursor: -1,
			Height: DefaultViewportHeight,
		},
	}
}

// Version increases on every state change; the render scheduler compares
// it to decide whether anything needs redrawing.
func (s *Store) Version() uint64 { return s.version }

func (s *Store) bump() { s.version++ }

// --- sequences ---------------------------------------------------------

// sequence returns the ordered entity IDs a pane currently renders.
func (s *Store) sequence(pane PaneID) []int64 {
	p := s.panel(pane)
	switch p.Level {
	case LevelFolders:
		seq := make([]int64, 0, len(s.folderOrder)+1)
		seq = append(seq, AllChatsID)
		seq = append(seq, s.folderOrder...)
		return seq
	case LevelChats:
		if p.ParentID == AllChatsID {
			return append([]int64(nil), s.chatOrder...)
		}
		if f, ok := s.folders[p.ParentID]; ok {
			return append([]int64(nil), f.ChatIDs...)
		}
		return nil
	case LevelMessages:
		if c, ok := s.chats[p.ParentID]; ok {
			return append([]int64(nil), c.MessageIDs...)
		}
		return nil
	}
	return nil
}

func (s *Store) panel(pane PaneID) *PanelState {
	if pane == PaneMessages {
		return &s.right
	}
	return &s.left
}

// captureSeqs snapshots both rendered sequences before a remote mutation.
func (s *Store) captureSeqs() (left, right []int64) {
	return s.sequence(PaneNav), s.sequence(PaneMessages)
}

// reanchor re-derives cursor and scroll for both panes after the rendered
// sequences may have changed. Identity for updates that did not touch the
// sequences, so edits and flag changes never move the viewport.
func (s *Store) reanchor(oldLeft, oldRight []int64) {
	s.reanchorPane(&s.left, oldLeft, s.sequence(PaneNav))
	s.reanchorPane(&s.right, oldRight, s.sequence(PaneMessages))
	s.assertCursors()
}

func (s *Store) reanchorPane(p *PanelState, oldSeq, newSeq []int64) {
	p.Cursor = reanchorCursor(oldSeq, newSeq, p.Cursor)
	p.Scroll = reanchorScroll(oldSeq, newSeq, p.Scroll)
}

// assertCursors enforces the cursor validity invariant. A violation is a
// programming error: DPanic in development, clamp and log in production.
func (s *Store) assertCursors() {
	for _, pane := range []PaneID{PaneNav, PaneMessages} {
		p := s.panel(pane)
		n := len(s.sequence(pane))
		valid := (n == 0 && p.Cursor == -1) || (p.Cursor >= 0 && p.Cursor < n)
		if !valid {
			s.logger.DPanic("invalid cursor state",
				zap.Int("pane", int(pane)),
				zap.Int("cursor", p.Cursor),
				zap.Int("len", n))
			if n == 0 {
				p.Cursor = -1
			} else {
				p.Cursor = clamp(p.Cursor, 0, n-1)
			}
		}
		if n == 0 {
			p.Scroll = 0
		} else {
			p.Scroll = clamp(p.Scroll, 0, n-1)
		}
	}
	if s.left.Focused == s.right.Focused {
		s.logger.DPanic("focus invariant violated")
		s.left.Focused = true
		s.right.Focused = false
	}
}

// --- remote mutations --------------------------------------------------

// UpsertFolder inserts or replaces a folder. New folders append to the
// display order; existing ones keep their position.
func (s *Store) UpsertFolder(f Folder) {
	oldL, oldR := s.captureSeqs()

	existing, ok := s.folders[f.ID]
	if !ok {
		cp := f
		cp.ChatIDs = append([]int64(nil), f.ChatIDs...)
		s.folders[f.ID] = &cp
		s.folderOrder = append(s.folderOrder, f.ID)
	} else {
		existing.Title = f.Title
		existing.ChatIDs = append(existing.ChatIDs[:0], f.ChatIDs...)
		existing.UnreadCount = f.UnreadCount
	}

	s.reanchor(oldL, oldR)
	s.bump()
}

// RemoveFolder drops a folder. Policy for a folder deleted while its chats
// are on screen: navigate back to the folder list rather than show stale
// contents, and forget back-stack frames that can no longer be restored.
func (s *Store) RemoveFolder(id int64) {
	if _, ok := s.folders[id]; !ok {
		return
	}
	viewing := s.left.Level == LevelChats && s.left.ParentID == id
	oldL, oldR := s.captureSeqs()

	delete(s.folders, id)
	if idx := indexOf(s.folderOrder, id); idx >= 0 {
		s.folderOrder = append(s.folderOrder[:idx], s.folderOrder[idx+1:]...)
	}

	kept := s.stack[:0]
	for _, fr := range s.stack {
		if fr.Left.Level == LevelChats && fr.Left.ParentID == id {
			continue
		}
		kept = append(kept, fr)
	}
	s.stack = kept

	if viewing {
		if !s.GoBack() {
			focused := s.left.Focused
			s.left = PanelState{
				Level:   LevelFolders,
				Cursor:  0,
				Height:  s.left.Height,
				Focused: focused,
			}
			s.assertCursors()
			s.bump()
		}
		return
	}

	s.reanchor(oldL, oldR)
	s.bump()
}

// UpsertChat inserts or updates a chat. The loaded message window is
// preserved on update; the all-chats ordering follows LastMessageAt.
func (s *Store) UpsertChat(c Chat) {
	oldL, oldR := s.captureSeqs()

	existing, ok := s.chats[c.ID]
	if !ok {
		cp := c
		// The loaded window is built by UpsertMessage only; an ID list
		// arriving on the chat itself would reference messages we have
		// not been handed yet.
		cp.MessageIDs = nil
		s.chats[c.ID] = &cp
		s.chatOrder = append(s.chatOrder, c.ID)
	} else {
		if c.Title != "" {
			existing.Title = c.Title
		}
		existing.Preview = c.Preview
		existing.UnreadCount = c.UnreadCount
		if c.LastMessageAt.After(existing.LastMessageAt) {
			existing.LastMessageAt = c.LastMessageAt
		}
	}
	s.sortChats()

	s.reanchor(oldL, oldR)
	s.bump()
}

// RemoveChat drops a chat and its messages everywhere it appears.
func (s *Store) RemoveChat(id int64) {
	if _, ok := s.chats[id]; !ok {
		return
	}
	oldL, oldR := s.captureSeqs()

	delete(s.chats, id)
	delete(s.messages, id)
	delete(s.typing, id)
	if idx := indexOf(s.chatOrder, id); idx >= 0 {
		s.chatOrder = append(s.chatOrder[:idx], s.chatOrder[idx+1:]...)
	}
	for _, f := range s.folders {
		if idx := indexOf(f.ChatIDs, id); idx >= 0 {
			f.ChatIDs = append(f.ChatIDs[:idx], f.ChatIDs[idx+1:]...)
		}
	}
	if s.right.Level == LevelMessages && s.right.ParentID == id {
		s.right.ParentID = 0
	}

	s.reanchor(oldL, oldR)
	s.bump()
}

// UpsertMessage inserts a message at its chronological position, or
// replaces mutable fields in place when the ID is already loaded. An
// unknown chat is created implicitly rather than the update discarded.
func (s *Store) UpsertMessage(chatID int64, m Message) {
	oldL, oldR := s.captureSeqs()

	chat, ok := s.chats[chatID]
	if !ok {
		chat = &Chat{ID: chatID}
		s.chats[chatID] = chat
		s.chatOrder = append(s.chatOrder, chatID)
	}
	byID := s.messages[chatID]
	if byID == nil {
		byID = make(map[int64]*Message)
		s.messages[chatID] = byID
	}

	m.ChatID = chatID
	if existing, seen := byID[m.ID]; seen {
		// Edit in place: position and local read state are preserved.
		existing.Sender = m.Sender
		existing.Body = m.Body
		existing.Edited = m.Edited
		existing.Deleted = m.Deleted
		if m.Image != nil {
			existing.Image = m.Image
		}
	} else {
		cp := m
		byID[m.ID] = &cp
		chat.MessageIDs = insertChronological(chat.MessageIDs, byID, m.ID)
		if !m.Read && !s.isChatVisible(chatID) {
			chat.UnreadCount++
		}
	}

	if m.SentAt.After(chat.LastMessageAt) {
		chat.LastMessageAt = m.SentAt
		chat.Preview = previewOf(m)
	}
	s.sortChats()

	s.reanchor(oldL, oldR)
	s.bump()
}

// MarkDeleted tombstones a message. When the chat is open the entry stays
// rendered (and addressable) so indices remain stable; otherwise it is
// compacted away immediately.
func (s *Store) MarkDeleted(chatID, msgID int64) {
	byID := s.messages[chatID]
	if byID == nil {
		return
	}
	m, ok := byID[msgID]
	if !ok {
		return
	}
	m.Deleted = true
	m.Body = ""
	m.Image = nil
	if !s.isChatOpen(chatID) {
		s.compactChat(chatID)
	}
	s.bump()
}

// MarkRead flips the local read flag and decrements the chat unread count.
func (s *Store) MarkRead(chatID, msgID int64) {
	byID := s.messages[chatID]
	if byID == nil {
		return
	}
	m, ok := byID[msgID]
	if !ok || m.Read {
		return
	}
	m.Read = true
	if c, ok := s.chats[chatID]; ok && c.UnreadCount > 0 {
		c.UnreadCount--
	}
	s.bump()
}

// SetTyping records a typing indicator that expires on its own; the render
// tick picks the expiry up without a further event.
func (s *Store) SetTyping(chatID int64, sender string, until time.Time) {
	s.typing[chatID] = typingState{Sender: sender, Until: until}
	s.bump()
}

// compactChat physically removes tombstoned messages that are not inside
// the messages pane's current viewport.
func (s *Store) compactChat(chatID int64) {
	chat, ok := s.chats[chatID]
	if !ok {
		return
	}
	byID := s.messages[chatID]

	open := s.isChatOpen(chatID)
	lo, hi := -1, -1
	if open {
		lo, hi = s.right.Scroll, s.right.visibleEnd()
	}

	oldL, oldR := s.captureSeqs()
	kept := chat.MessageIDs[:0]
	for i, id := range chat.MessageIDs {
		m := byID[id]
		visible := open && i >= lo && i < hi
		if m != nil && m.Deleted && !visible {
			delete(byID, id)
			continue
		}
		kept = append(kept, id)
	}
	chat.MessageIDs = kept
	s.reanchor(oldL, oldR)
}

func (s *Store) isChatOpen(chatID int64) bool {
	return s.right.Level == LevelMessages && s.right.ParentID == chatID
}

// isChatVisible reports whether the chat's messages are open and focused,
// in which case arrivals do not count as unread.
func (s *Store) isChatVisible(chatID int64) bool {
	return s.isChatOpen(chatID) && s.right.Focused
}

func (s *Store) sortChats() {
	sort.SliceStable(s.chatOrder, func(i, j int) bool {
		a, b := s.chats[s.chatOrder[i]], s.chats[s.chatOrder[j]]
		return a.LastMessageAt.After(b.LastMessageAt)
	})
}

func insertChronological(seq []int64, byID map[int64]*Message, id int64) []int64 {
	m := byID[id]
	pos := sort.Search(len(seq), func(i int) bool {
		o := byID[seq[i]]
		if o.SentAt.Equal(m.SentAt) {
			return o.ID > m.ID
		}
		return o.SentAt.After(m.SentAt)
	})
	seq = append(seq, 0)
	copy(seq[pos+1:], seq[pos:])
	seq[pos] = id
	return seq
}

func previewOf(m Message) string {
	if m.Deleted {
		return ""
	}
	if m.Body != "" {
		return m.Body
	}
	if m.HasImage() {
		return "[photo]"
	}
	return ""
}

// --- navigation --------------------------------------------------------

// FocusedPane returns the pane that currently owns the cursor keys.
func (s *Store) FocusedPane() PaneID {
	if s.right.Focused {
		return PaneMessages
	}
	return PaneNav
}

// SetFocus gives focus to one pane and removes it from the other.
func (s *Store) SetFocus(pane PaneID) {
	s.left.Focused = pane == PaneNav
	s.right.Focused = pane == PaneMessages
	s.bump()
}

// ToggleFocus flips focus between the two panes.
func (s *Store) ToggleFocus() {
	if s.left.Focused {
		s.SetFocus(PaneMessages)
	} else {
		s.SetFocus(PaneNav)
	}
}

// MoveCursor moves the focused pane's cursor by delta, clamped to bounds
// with no wraparound. Reports whether the cursor actually moved.
func (s *Store) MoveCursor(pane PaneID, delta int) bool {
	p := s.panel(pane)
	seq := s.sequence(pane)
	if len(seq) == 0 {
		return false
	}
	next := clamp(p.Cursor+delta, 0, len(seq)-1)
	if next == p.Cursor {
		return false
	}
	p.Cursor = next
	s.ensureVisible(p)
	if pane == PaneMessages {
		s.compactChat(p.ParentID)
	}
	s.bump()
	return true
}

func (s *Store) ensureVisible(p *PanelState) {
	h := p.Height
	if h <= 0 {
		h = DefaultViewportHeight
	}
	if p.Cursor < p.Scroll {
		p.Scroll = p.Cursor
	} else if p.Cursor >= p.Scroll+h {
		p.Scroll = p.Cursor - h + 1
	}
	if p.Scroll < 0 {
		p.Scroll = 0
	}
}

// SelectedID returns the entity under the pane's cursor.
func (s *Store) SelectedID(pane PaneID) (int64, bool) {
	p := s.panel(pane)
	seq := s.sequence(pane)
	if p.Cursor < 0 || p.Cursor >= len(seq) {
		return 0, false
	}
	return seq[p.Cursor], true
}

// VisibleUnreadMessages returns copies of the unread, non-deleted
// messages currently inside the messages pane viewport, oldest first.
func (s *Store) VisibleUnreadMessages() []Message {
	if s.right.Level != LevelMessages {
		return nil
	}
	seq := s.sequence(PaneMessages)
	byID := s.messages[s.right.ParentID]
	var out []Message
	for i := s.right.Scroll; i < s.right.visibleEnd() && i < len(seq); i++ {
		m := byID[seq[i]]
		if m == nil || m.Read || m.Deleted {
			continue
		}
		out = append(out, *m)
	}
	return out
}

// OpenChatID returns the chat open in the messages pane, if any.
func (s *Store) OpenChatID() (int64, bool) {
	if s.right.Level == LevelMessages && s.right.ParentID != 0 {
		return s.right.ParentID, true
	}
	return 0, false
}

// OldestLoadedMessage returns the first loaded message ID of a chat, used
// as the pagination anchor for fetch-more.
func (s *Store) OldestLoadedMessage(chatID int64) (int64, bool) {
	c, ok := s.chats[chatID]
	if !ok || len(c.MessageIDs) == 0 {
		return 0, false
	}
	return c.MessageIDs[0], true
}

// PanelSnapshot returns a copy of a pane's navigation state.
func (s *Store) PanelSnapshot(pane PaneID) PanelState {
	return *s.panel(pane)
}

// OpenSelected descends one navigation level: a folder opens its chat
// list in the nav pane, a chat opens its messages in the messages pane and
// focuses it. A no-op on an empty pane or when the messages pane is
// focused. Reports whether navigation happened.
func (s *Store) OpenSelected() bool {
	if !s.left.Focused {
		return false
	}
	id, ok := s.SelectedID(PaneNav)
	if !ok {
		return false
	}

	switch s.left.Level {
	case LevelFolders:
		s.pushFrame()
		s.left = PanelState{
			Level:    LevelChats,
			ParentID: id,
			Height:   s.left.Height,
			Focused:  true,
		}
		s.resetCursor(&s.left, PaneNav)
	case LevelChats:
		if _, known := s.chats[id]; !known {
			return false
		}
		s.pushFrame()
		s.right = PanelState{
			Level:    LevelMessages,
			ParentID: id,
			Height:   s.right.Height,
		}
		s.resetCursor(&s.right, PaneMessages)
		s.SetFocus(PaneMessages)
	default:
		return false
	}
	s.assertCursors()
	s.bump()
	return true
}

func (s *Store) resetCursor(p *PanelState, pane PaneID) {
	if len(s.sequence(pane)) == 0 {
		p.Cursor = -1
	} else {
		p.Cursor = 0
	}
	p.Scroll = 0
}

// GoBack pops one back-stack frame, restoring both panes and focus to
// exactly what they were before the matching OpenSelected. A no-op when
// the stack is empty.
func (s *Store) GoBack() bool {
	if len(s.stack) == 0 {
		return false
	}
	fr := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]

	leftH, rightH := s.left.Height, s.right.Height
	s.left, s.right = fr.Left, fr.Right
	s.left.Height, s.right.Height = leftH, rightH

	// Entities may have changed while we were a level deeper; map the
	// saved positions onto the current sequences by ID.
	s.reanchor(fr.LeftSeq, fr.RightSeq)
	s.bump()
	return true
}

// BackDepth returns the current navigation depth.
func (s *Store) BackDepth() int { return len(s.stack) }

func (s *Store) pushFrame() {
	s.stack = append(s.stack, navFrame{
		Left:     s.left,
		Right:    s.right,
		LeftSeq:  s.sequence(PaneNav),
		RightSeq: s.sequence(PaneMessages),
	})
}

// SetPaneHeights records the viewport geometry reported by the renderer.
func (s *Store) SetPaneHeights(left, right int) {
	if left > 0 {
		s.left.Height = left
	}
	if right > 0 {
		s.right.Height = right
	}
	s.ensureVisible(&s.left)
	s.ensureVisible(&s.right)
	s.bump()
}

// --- status ------------------------------------------------------------

// SetSession records the session name for the status line.
func (s *Store) SetSession(name string) {
	s.session = name
	s.bump()
}

// SetRuntime records the session runtime state for the status line.
func (s *Store) SetRuntime(state string) {
	s.runtime = state
	s.bump()
}

// SetFlash shows a transient status-line message.
func (s *Store) SetFlash(msg string, d time.Duration) {
	s.flash = msg
	s.flashUntil = time.Now().Add(d)
	s.bump()
}

// SetAuth installs or clears the pending auth challenge.
func (s *Store) SetAuth(a *AuthChallenge) {
	s.auth = a
	s.bump()
}
