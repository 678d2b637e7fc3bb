package event

import (
	"testing"
	"time"
)

func TestPushPreservesOrder(t *testing.T) {
	q := NewQueue(16)

	for _, k := range []Kind{KindKey, KindMessageUpsert, KindKey, KindTyping} {
		if err := q.Push(New(k, nil)); err != nil {
			t.Fatal(err)
		}
	}

	want := []Kind{KindKey, KindMessageUpsert, KindKey, KindTyping}
	for i, w := range want {
		select {
		case evt := <-q.Events():
			if evt.Kind != w {
				t.Errorf("event %d: got kind %q, want %q", i, evt.Kind, w)
			}
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for event")
		}
	}
}

func TestPushAfterClose(t *testing.T) {
	q := NewQueue(1)
	q.Close()

	if err := q.Push(New(KindKey, nil)); err != ErrClosed {
		t.Errorf("Push after Close = %v, want ErrClosed", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	q := NewQueue(1)
	q.Close()
	q.Close()

	select {
	case <-q.Done():
	default:
		t.Error("Done not closed after Close")
	}
}

func TestTryPushDropsWhenFull(t *testing.T) {
	q := NewQueue(1)

	if !q.TryPush(New(KindTyping, "a")) {
		t.Fatal("first TryPush should succeed")
	}
	if q.TryPush(New(KindTyping, "b")) {
		t.Error("second TryPush should drop on full buffer")
	}

	evt := <-q.Events()
	if evt.Payload != "a" {
		t.Errorf("got payload %v, want a", evt.Payload)
	}
}

func TestQueuedEventsReadableAfterClose(t *testing.T) {
	q := NewQueue(4)
	if err := q.Push(New(KindKey, nil)); err != nil {
		t.Fatal(err)
	}
	q.Close()

	select {
	case evt := <-q.Events():
		if evt.Kind != KindKey {
			t.Errorf("got kind %q, want %q", evt.Kind, KindKey)
		}
	case <-time.After(time.Second):
		t.Fatal("queued event lost after Close")
	}
}
