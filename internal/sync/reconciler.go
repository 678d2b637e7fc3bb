package sync

import (
	"github.com/tgcon/tgcon/internal/event"
	"github.com/tgcon/tgcon/internal/remote"
	"github.com/tgcon/tgcon/internal/state"
	"go.uber.org/zap"
)

// Reconciler merges remote updates into the view state store. Position
// preservation itself lives in the store's mutation entry points; the
// reconciler's job is routing, payload validation and snapshot ingestion.
// It runs only on the engine goroutine.
type Reconciler struct {
	store  *state.Store
	logger *zap.Logger
}

// NewReconciler creates a reconciler bound to the store.
func NewReconciler(store *state.Store, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{store: store, logger: logger}
}

// Apply merges one remote event. Malformed payloads are logged and
// dropped: a bad update must never leave the store mid-mutation.
func (r *Reconciler) Apply(evt event.Event) {
	switch evt.Kind {
	case event.KindSnapshot:
		snap, ok := evt.Payload.(remote.Snapshot)
		if !ok {
			r.badPayload(evt)
			return
		}
		r.applySnapshot(snap)

	case event.KindFolderChanged:
		fc, ok := evt.Payload.(remote.FolderChange)
		if !ok {
			r.badPayload(evt)
			return
		}
		if fc.Deleted {
			r.store.RemoveFolder(fc.Folder.ID)
		} else {
			r.store.UpsertFolder(fc.Folder)
		}

	case event.KindChatChanged:
		cc, ok := evt.Payload.(remote.ChatChange)
		if !ok {
			r.badPayload(evt)
			return
		}
		if cc.Deleted {
			r.store.RemoveChat(cc.Chat.ID)
		} else {
			r.store.UpsertChat(cc.Chat)
		}

	case event.KindMessageUpsert:
		mu, ok := evt.Payload.(remote.MessageUpsert)
		if !ok {
			r.badPayload(evt)
			return
		}
		// An unknown chat is an implicit upsert inside the store, never
		// a discard.
		r.store.UpsertMessage(mu.ChatID, mu.Message)

	case event.KindMessageDeleted:
		md, ok := evt.Payload.(remote.MessageDelete)
		if !ok {
			r.badPayload(evt)
			return
		}
		r.store.MarkDeleted(md.ChatID, md.MessageID)

	case event.KindTyping:
		ty, ok := evt.Payload.(remote.Typing)
		if !ok {
			r.badPayload(evt)
			return
		}
		r.store.SetTyping(ty.ChatID, ty.Sender, ty.ExpiresAt)

	default:
		r.logger.Warn("reconciler got non-remote event", zap.String("kind", string(evt.Kind)))
	}
}

// applySnapshot ingests the startup snapshot. Messages go in before chats
// so the authoritative unread counts carried by the chats overwrite the
// store's own arrival counting.
func (r *Reconciler) applySnapshot(snap remote.Snapshot) {
	for _, f := range snap.Folders {
		r.store.UpsertFolder(f)
	}
	for chatID, msgs := range snap.Messages {
		for _, m := range msgs {
			r.store.UpsertMessage(chatID, m)
		}
	}
	for _, c := range snap.Chats {
		r.store.UpsertChat(c)
	}
	r.logger.Info("snapshot applied",
		zap.Int("folders", len(snap.Folders)),
		zap.Int("chats", len(snap.Chats)))
}

func (r *Reconciler) badPayload(evt event.Event) {
	r.logger.Error("unexpected payload for event kind",
		zap.String("kind", string(evt.Kind)))
}
