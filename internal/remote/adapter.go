package remote

import "context"

// FetchMore asks the adapter for an older page of messages. The reply
// arrives as ordinary MessageUpsert events on the queue; RequestID ties
// the batch to the request in logs.
type FetchMore struct {
	RequestID       string
	ChatID          int64
	BeforeMessageID int64
	Limit           int
}

// MarkRead tells the remote service a message has been seen.
type MarkRead struct {
	RequestID string
	ChatID    int64
	MessageID int64
}

// Adapter is the session adapter: it owns transport and authentication
// with the messaging service, produces events into the queue (an initial
// Snapshot, then updates), and accepts outbound commands. Implementations
// never mutate view state directly.
type Adapter interface {
	// Start begins producing events. It must deliver a Snapshot event
	// before any steady-state update.
	Start(ctx context.Context) error
	FetchMore(ctx context.Context, cmd FetchMore) error
	MarkRead(ctx context.Context, cmd MarkRead) error
	// Close stops the event stream. Events pushed after Close are dropped
	// by the queue.
	Close(ctx context.Context) error
}
