package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "system.updated", Data: map[string]string{"system": "Sol"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: system.updated") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"system":"Sol"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishSystemUpdate_TreeThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	addr := int64(10477373803)
	// First update triggers tree.updated, the second one is throttled.
	b.PublishSystemUpdate(SystemUpdate{System: "Sol", Address: &addr, Event: "Scan", Created: 1})
	b.PublishSystemUpdate(SystemUpdate{System: "Sol", Address: &addr, Event: "SAASignalsFound"})

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	treeCount := 0
	systemCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "tree.updated") {
				treeCount++
			} else {
				systemCount++
			}
		default:
			break loop
		}
	}

	if systemCount != 2 {
		t.Errorf("system events = %d, want 2", systemCount)
	}
	if treeCount != 1 {
		t.Errorf("tree events = %d, want 1 (throttled)", treeCount)
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	// Start handler in background.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/api/events/stream", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "system.updated", Data: map[string]string{"system": "Achenar"}})
	time.Sleep(50 * time.Millisecond)

	// Cancel context to disconnect.
	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: system.updated") {
		t.Errorf("handler output missing event: %q", body)
	}

	// Client should be cleaned up.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 0 {
		t.Errorf("client not cleaned up after disconnect")
	}
}

func TestPublishDropsOnFullBuffer(t *testing.T) {
	b := NewBroker(time.Second)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// Fill buffer (capacity 64) and then one more should not block.
	for i := 0; i < 70; i++ {
		b.Publish(Event{Type: "test", Data: map[string]string{"i": "x"}})
	}
	// If we reach here without deadlock, the test passes.
}

func TestCloseClosesSubscribersAndStopsOperations(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected subscriber channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}

	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after close")
	}

	// Should be safe no-op after close.
	b.Publish(Event{Type: "system.updated", Data: map[string]string{"system": "Achenar"}})
	b.PublishSystemUpdate(SystemUpdate{System: "Achenar", Event: "Scan"})
}

func TestSystemUpdateMatches(t *testing.T) {
	addr := int64(10477373803)
	upd := SystemUpdate{System: "Sol", Address: &addr}
	tests := []struct {
		key  string
		want bool
	}{
		{"", true},
		{"sol", true},
		{"10477373803", true},
		{"42", false},
		{"Achenar", false},
	}
	for _, tt := range tests {
		if got := upd.Matches(tt.key); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestSubscribeSystem_Filters(t *testing.T) {
	b := NewBroker(time.Hour)
	defer b.Close()
	sol := b.SubscribeSystem("Sol")
	defer b.Unsubscribe(sol)

	b.PublishSystemUpdate(SystemUpdate{System: "Achenar", Event: "Scan", Created: 1})
	b.PublishSystemUpdate(SystemUpdate{System: "Sol", Event: "Scan", Created: 1})

	// tree.updated from the first update, then Sol's system.updated.
	var got []string
	for len(got) < 2 {
		select {
		case msg := <-sol:
			got = append(got, string(msg))
		case <-time.After(time.Second):
			t.Fatalf("timeout, got %q", got)
		}
	}
	if !strings.Contains(got[0], "tree.updated") {
		t.Errorf("first message = %q, want tree.updated", got[0])
	}
	if !strings.Contains(got[1], `"system":"Sol"`) {
		t.Errorf("second message = %q, want Sol update", got[1])
	}
	select {
	case msg := <-sol:
		t.Errorf("unexpected message %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}
