package remote

import (
	"fmt"
	"time"

	"github.com/tgcon/tgcon/internal/state"
)

// Snapshot is the initial full state delivered once at startup, before
// steady-state updates begin.
type Snapshot struct {
	Folders  []state.Folder
	Chats    []state.Chat
	Messages map[int64][]state.Message // most recent window per chat
}

// FolderChange creates, updates or deletes a folder.
type FolderChange struct {
	Folder  state.Folder
	Deleted bool
}

// ChatChange creates, updates or deletes a chat. Unread counts and
// previews carried here are authoritative server state.
type ChatChange struct {
	Chat    state.Chat
	Deleted bool
}

// MessageUpsert inserts a new message or edits an existing one in place.
type MessageUpsert struct {
	ChatID  int64
	Message state.Message
}

// MessageDelete tombstones a message.
type MessageDelete struct {
	ChatID    int64
	MessageID int64
}

// Typing reports that someone is typing in a chat.
type Typing struct {
	ChatID    int64
	Sender    string
	ExpiresAt time.Time
}

// AuthChallenge asks the user to authenticate, either by scanning the
// login code as a QR grid or by following the message instructions.
type AuthChallenge struct {
	Message string
	Code    string
}

// Authorized reports a completed login.
type Authorized struct {
	UserID int64
	Phone  string
	Name   string
}

// FatalError signals an unrecoverable adapter failure; the loop shuts
// down and the process exits non-zero.
type FatalError struct {
	Err error
}

func (f FatalError) Error() string {
	return fmt.Sprintf("session adapter failed: %v", f.Err)
}

func (f FatalError) Unwrap() error { return f.Err }
