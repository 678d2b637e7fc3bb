package state

import "time"

// AllChatsID is the synthetic folder that always lists every known chat,
// most recently active first. The server never assigns folder ID 0.
const AllChatsID int64 = 0

// Folder is a server-defined chat folder. The ChatIDs slice defines
// display order inside the folder.
type Folder struct {
	ID          int64
	Title       string
	ChatIDs     []int64
	UnreadCount int
}

// Chat is a conversation. MessageIDs holds the currently loaded message
// window in chronological order (oldest first); it is owned by the store
// and only ever references messages that have actually been loaded.
type Chat struct {
	ID            int64
	Title         string
	Preview       string
	UnreadCount   int
	LastMessageAt time.Time
	MessageIDs    []int64
}

// Message is a single message. Once inserted it keeps its position; later
// upserts with the same ID replace fields in place, and deletes only set
// the tombstone until a compaction pass physically removes the entry.
type Message struct {
	ID      int64
	ChatID  int64
	Sender  string
	SentAt  time.Time
	Body    string
	Image   []byte
	Read    bool
	Edited  bool
	Deleted bool
}

// HasImage reports whether the message carries an image payload.
func (m *Message) HasImage() bool {
	return len(m.Image) > 0
}
