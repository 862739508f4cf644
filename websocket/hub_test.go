package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/session"
)

type fakeConn struct {
	mu     sync.Mutex
	got    []session.Event
	fail   bool
	closed bool
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.got = append(f.got, v.(session.Event))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) events() []session.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.Event(nil), f.got...)
}

func TestRegisterCountsPerTest(t *testing.T) {
	h := NewHub()
	a := NewClient(42, 7, &fakeConn{})
	b := NewClient(42, 7, &fakeConn{})
	other := NewClient(42, 8, &fakeConn{})
	h.Register(a)
	h.Register(b)
	h.Register(other)

	if left := h.Unregister(a); left != 1 {
		t.Fatalf("left after first = %d, want 1", left)
	}
	if left := h.Unregister(b); left != 0 {
		t.Fatalf("left after second = %d, want 0", left)
	}
}

func TestDeliverTargetsStudentAndTest(t *testing.T) {
	h := NewHub()
	mine := &fakeConn{}
	otherTest := &fakeConn{}
	otherStudent := &fakeConn{}
	h.Register(NewClient(42, 7, mine))
	h.Register(NewClient(42, 8, otherTest))
	h.Register(NewClient(43, 7, otherStudent))

	h.deliver(envelope{studentID: 42, ev: session.Event{Type: session.EventTick, TestID: 7, Remaining: 59}})

	if got := mine.events(); len(got) != 1 || got[0].Remaining != 59 {
		t.Fatalf("mine = %+v", got)
	}
	if len(otherTest.events()) != 0 || len(otherStudent.events()) != 0 {
		t.Fatal("event leaked to another connection")
	}
}

func TestDeliverDropsBrokenConnections(t *testing.T) {
	h := NewHub()
	broken := &fakeConn{fail: true}
	c := NewClient(42, 7, broken)
	h.Register(c)

	h.deliver(envelope{studentID: 42, ev: session.Event{Type: session.EventTick, TestID: 7}})

	if !broken.closed {
		t.Fatal("broken connection not closed")
	}
	if left := h.Unregister(NewClient(42, 7, &fakeConn{})); left != 0 {
		t.Fatalf("broken client still registered: %d", left)
	}
}

func TestRunDeliversPublished(t *testing.T) {
	h := NewHub()
	conn := &fakeConn{}
	h.Register(NewClient(42, 7, conn))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	h.Publish(42, session.Event{Type: session.EventNavigate, TestID: 7, Route: "/review-test/100"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := conn.events(); len(got) == 1 {
			if got[0].Route != "/review-test/100" {
				t.Fatalf("route = %q", got[0].Route)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("event not delivered")
}

func TestNavigateSurvivesFullQueue(t *testing.T) {
	h := NewHub()
	conn := &fakeConn{}
	h.Register(NewClient(42, 7, conn))

	for i := 0; i < cap(h.broadcast)+10; i++ {
		h.Publish(43, session.Event{Type: session.EventTick, TestID: 7, Remaining: i})
	}
	h.Publish(42, session.Event{Type: session.EventAlert, TestID: 7, Message: "locked"})
	h.Publish(42, session.Event{Type: session.EventNavigate, TestID: 7, Route: "/review-test/100"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := conn.events(); len(got) == 2 {
			if got[0].Type != session.EventAlert || got[1].Type != session.EventNavigate || got[1].Route != "/review-test/100" {
				t.Fatalf("events = %+v", got)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("events delivered = %+v, want alert then navigate", conn.events())
}

func TestTicksDropWhenQueueFull(t *testing.T) {
	h := NewHub()
	for i := 0; i < cap(h.broadcast)+10; i++ {
		h.Publish(42, session.Event{Type: session.EventTick, TestID: 7})
	}
	if n := len(h.broadcast); n != cap(h.broadcast) {
		t.Fatalf("queued ticks = %d, want %d", n, cap(h.broadcast))
	}
}
