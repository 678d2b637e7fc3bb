package event

import "time"

// Kind identifies the family and type of an event on the queue.
type Kind string

const (
	// Produced by the terminal input driver.
	KindKey Kind = "input.key"
	// Produced by the terminal renderer when pane geometry changes.
	KindResize Kind = "input.resize"

	// Produced by the session adapter.
	KindSnapshot       Kind = "remote.snapshot"
	KindFolderChanged  Kind = "remote.folder_changed"
	KindChatChanged    Kind = "remote.chat_changed"
	KindMessageUpsert  Kind = "remote.message_upsert"
	KindMessageDeleted Kind = "remote.message_deleted"
	KindTyping         Kind = "remote.typing"

	// Produced by the image conversion worker.
	KindCacheFill Kind = "render.cache_fill"

	// Produced by the session state machine and the adapter.
	KindStatusChanged Kind = "session.status_changed"
	KindAuthChallenge Kind = "session.auth_challenge"
	KindFatal         Kind = "session.fatal"

	// Produced by the config watcher.
	KindConfigChanged Kind = "config.changed"
)

// Event is a single unit of work for the central loop. Payload types are
// owned by the producing package (remote, input, status, config).
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Payload   any
}

// New builds an event stamped with the current time.
func New(kind Kind, payload any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), Payload: payload}
}
