package remote

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tgcon/tgcon/internal/event"
	"github.com/tgcon/tgcon/internal/state"
	"github.com/tgcon/tgcon/internal/status"
	"github.com/tgcon/tgcon/internal/store"
	"go.uber.org/zap"
)

// Demo adapter timing. Fast enough to feel live, slow enough to watch.
const (
	demoAuthDelay  = 2 * time.Second
	demoSyncDelay  = 300 * time.Millisecond
	demoUpdateTick = 3 * time.Second
	demoFetchPage  = 20
)

// DemoAdapter is a scripted session adapter: it fakes the login flow,
// delivers a snapshot, then drips steady-state updates forever. It backs
// the --demo flag so the client can be exercised without an account.
type DemoAdapter struct {
	queue   *event.Queue
	machine *status.Machine
	db      *store.DB // nil disables credential persistence
	logger  *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDemoAdapter creates the demo adapter.
func NewDemoAdapter(queue *event.Queue, machine *status.Machine, db *store.DB, logger *zap.Logger) *DemoAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemoAdapter{queue: queue, machine: machine, db: db, logger: logger}
}

// Start runs the script on its own goroutine and returns immediately.
func (a *DemoAdapter) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(ctx)
	}()
	return nil
}

// Close stops the script and waits for it to finish.
func (a *DemoAdapter) Close(context.Context) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	return nil
}

// FetchMore synthesizes an older history page below the requested message.
func (a *DemoAdapter) FetchMore(_ context.Context, cmd FetchMore) error {
	a.logger.Info("demo fetch more",
		zap.String("request_id", cmd.RequestID),
		zap.Int64("chat_id", cmd.ChatID),
		zap.Int64("before", cmd.BeforeMessageID))

	limit := cmd.Limit
	if limit <= 0 || limit > demoFetchPage {
		limit = demoFetchPage
	}
	for i := 0; i < limit; i++ {
		id := cmd.BeforeMessageID - int64(i) - 1
		if id <= 0 {
			break
		}
		if err := a.queue.Push(event.New(event.KindMessageUpsert, MessageUpsert{
			ChatID:  cmd.ChatID,
			Message: demoMessage(cmd.ChatID, id, fmt.Sprintf("older message %d", id)),
		})); err != nil {
			return err
		}
	}
	return nil
}

// MarkRead is acknowledged and forgotten; there is no remote to tell.
func (a *DemoAdapter) MarkRead(_ context.Context, cmd MarkRead) error {
	a.logger.Debug("demo mark read",
		zap.Int64("chat_id", cmd.ChatID),
		zap.Int64("message_id", cmd.MessageID))
	return nil
}

func (a *DemoAdapter) run(ctx context.Context) {
	if !a.authenticate(ctx) {
		return
	}
	if !a.transition(status.Syncing) {
		return
	}
	if !sleepCtx(ctx, demoSyncDelay) {
		return
	}
	a.push(event.New(event.KindSnapshot, demoSnapshot()))
	if !a.transition(status.Ready) {
		return
	}

	ticker := time.NewTicker(demoUpdateTick)
	defer ticker.Stop()

	step := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.scriptStep(step)
			step++
		}
	}
}

// authenticate either replays a stored identity or walks the QR login
// script. Returns false when interrupted.
func (a *DemoAdapter) authenticate(ctx context.Context) bool {
	if acct := a.storedAccount(ctx); acct != nil {
		a.logger.Info("demo session already authorized", zap.String("name", acct.Name))
		if !a.transition(status.Connecting) {
			return false
		}
		a.push(event.New(event.KindAuthChallenge, Authorized{
			UserID: acct.UserID, Phone: acct.Phone, Name: acct.Name,
		}))
		return sleepCtx(ctx, demoSyncDelay)
	}

	if !a.transition(status.AuthRequired) {
		return false
	}
	a.push(event.New(event.KindAuthChallenge, AuthChallenge{
		Message: "Scan this code with the mobile app to log in",
		Code:    "tg://login?token=" + uuid.NewString(),
	}))
	if !sleepCtx(ctx, demoAuthDelay) {
		return false
	}

	acct := store.Account{UserID: 777000, Phone: "+15550100", Name: "Demo User"}
	if a.db != nil {
		if err := a.db.SaveAccount(ctx, acct); err != nil {
			a.logger.Warn("persist demo account", zap.Error(err))
		}
	}
	a.push(event.New(event.KindAuthChallenge, Authorized{
		UserID: acct.UserID, Phone: acct.Phone, Name: acct.Name,
	}))
	return a.transition(status.Connecting)
}

func (a *DemoAdapter) storedAccount(ctx context.Context) *store.Account {
	if a.db == nil {
		return nil
	}
	acct, err := a.db.Account(ctx)
	if err != nil {
		a.logger.Warn("load demo account", zap.Error(err))
		return nil
	}
	return acct
}

// scriptStep drips one steady-state update per tick, cycling through the
// interesting reconciliation cases.
func (a *DemoAdapter) scriptStep(step int) {
	const chatID = 2 // "Alice"
	msgID := int64(200 + step)

	switch step % 5 {
	case 0:
		a.push(event.New(event.KindTyping, Typing{
			ChatID: chatID, Sender: "Alice", ExpiresAt: time.Now().Add(demoUpdateTick),
		}))
	case 1:
		a.push(event.New(event.KindMessageUpsert, MessageUpsert{
			ChatID:  chatID,
			Message: demoMessage(chatID, msgID, fmt.Sprintf("live update #%d", step)),
		}))
	case 2:
		// Edit the previous message in place.
		m := demoMessage(chatID, msgID-1, fmt.Sprintf("live update #%d (now with a correction)", step-1))
		m.Edited = true
		a.push(event.New(event.KindMessageUpsert, MessageUpsert{ChatID: chatID, Message: m}))
	case 3:
		m := demoMessage(chatID, msgID, "a picture for you")
		m.Image = demoImage()
		a.push(event.New(event.KindMessageUpsert, MessageUpsert{ChatID: chatID, Message: m}))
	case 4:
		a.push(event.New(event.KindMessageDeleted, MessageDelete{
			ChatID: chatID, MessageID: msgID - 1,
		}))
	}
}

func (a *DemoAdapter) transition(to status.State) bool {
	if err := a.machine.Transition(to); err != nil {
		a.logger.Error("demo status transition", zap.Error(err))
		return false
	}
	return true
}

func (a *DemoAdapter) push(evt event.Event) {
	if err := a.queue.Push(evt); err != nil {
		a.logger.Debug("demo event dropped", zap.String("kind", string(evt.Kind)))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// --- scripted data ------------------------------------------------------

var demoEpoch = time.Now().Add(-24 * time.Hour)

func demoMessage(chatID, id int64, body string) state.Message {
	sender := "Alice"
	if id%3 == 0 {
		sender = "Demo User"
	}
	return state.Message{
		ID:     id,
		ChatID: chatID,
		Sender: sender,
		SentAt: demoEpoch.Add(time.Duration(id) * time.Minute),
		Body:   body,
	}
}

func demoSnapshot() Snapshot {
	messages := map[int64][]state.Message{
		1: {
			demoMessage(1, 101, "standup moved to 10am"),
			demoMessage(1, 102, "ship it"),
		},
		2: {
			demoMessage(2, 103, "hey!"),
			demoMessage(2, 104, "are you around this weekend?"),
		},
		3: {
			demoMessage(3, 105, "dinner at eight"),
		},
	}

	pic := demoMessage(2, 106, "look at this")
	pic.Image = demoImage()
	messages[2] = append(messages[2], pic)

	return Snapshot{
		Folders: []state.Folder{
			{ID: 10, Title: "Work", ChatIDs: []int64{1}},
			{ID: 11, Title: "Personal", ChatIDs: []int64{2, 3}, UnreadCount: 3},
		},
		Chats: []state.Chat{
			{ID: 1, Title: "Team", Preview: "ship it", LastMessageAt: demoEpoch.Add(102 * time.Minute)},
			{ID: 2, Title: "Alice", Preview: "look at this", UnreadCount: 3, LastMessageAt: demoEpoch.Add(106 * time.Minute)},
			{ID: 3, Title: "Mom", Preview: "dinner at eight", LastMessageAt: demoEpoch.Add(105 * time.Minute)},
		},
		Messages: messages,
	}
}

// demoImage renders a small diagonal gradient PNG so the ASCII pipeline
// has something real to chew on.
func demoImage() []byte {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Pix[y*img.Stride+x] = uint8((x + y) * 2)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil
	}
	return buf.Bytes()
}
