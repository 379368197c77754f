// Package sse implements a Server-Sent Events broker for real-time updates.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// heartbeatInterval spaces keep-alive comment lines on idle streams.
const heartbeatInterval = 15 * time.Second

// Event represents an SSE event to broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SystemUpdate describes a change to one system's scan tree.
type SystemUpdate struct {
	System  string `json:"system"`
	Address *int64 `json:"address,omitempty"`
	Event   string `json:"event"`
	Created int    `json:"created"`
}

// Matches reports whether the update concerns the system named by key, a
// decimal address or a case-insensitive name. An empty key matches all.
func (u SystemUpdate) Matches(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}
	if addr, err := strconv.ParseInt(key, 10, 64); err == nil && u.Address != nil {
		return *u.Address == addr
	}
	return strings.EqualFold(u.System, key)
}

type subscription struct {
	ch     chan []byte
	system string
}

// Broker manages SSE client connections and broadcasts events.
//
// A single internal event loop owns the client set and the tree throttle
// timestamp. Public methods talk to it over channels. A client may follow a
// single system; tree.updated and plain events still reach every client.
type Broker struct {
	treeMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	systemCh      chan SystemUpdate
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a new SSE broker with the given tree.updated throttle
// interval.
func NewBroker(treeThrottle time.Duration) *Broker {
	if treeThrottle <= 0 {
		treeThrottle = 2 * time.Second
	}

	b := &Broker{
		treeMin:       treeThrottle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		systemCh:      make(chan SystemUpdate, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	// Each client maps to the system it follows, "" for all.
	clients := make(map[chan []byte]string)
	var lastTree time.Time

	broadcast := func(event Event, upd *SystemUpdate) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		msg := fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload)
		raw := []byte(msg)

		for ch, system := range clients {
			if upd != nil && !upd.Matches(system) {
				continue
			}
			select {
			case ch <- raw:
			default:
				// slow client, drop
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.system

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event, nil)

		case upd := <-b.systemCh:
			broadcast(Event{Type: "system.updated", Data: upd}, &upd)

			now := time.Now()
			if now.Sub(lastTree) >= b.treeMin {
				lastTree = now
				broadcast(Event{Type: "tree.updated", Data: map[string]string{}}, nil)
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	return b.SubscribeSystem("")
}

// SubscribeSystem adds a client that only receives system.updated events
// for the system named by key (an address or a name).
func (b *Broker) SubscribeSystem(key string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, system: key}:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishSystemUpdate publishes a system.updated event followed by a
// throttled tree.updated event.
func (b *Broker) PublishSystemUpdate(upd SystemUpdate) {
	if b.closed.Load() {
		return
	}
	select {
	case b.systemCh <- upd:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events/stream). The
// optional ?system= query restricts system.updated events to one system.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.SubscribeSystem(r.URL.Query().Get("system"))
	defer b.Unsubscribe(ch)

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			_, _ = w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
