// Package sse streams store and table changes to browsers as Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// StatsUpdated tells clients to refetch store statistics.
const StatsUpdated = "stats.updated"

const (
	clientBuffer = 64
	queueSize    = 256
)

// Event is one named SSE message with a JSON payload.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// hub is owned by the broker goroutine; ops run against it one at a time.
type hub struct {
	clients   map[chan []byte]struct{}
	statsMin  time.Duration
	lastStats time.Time
}

func (h *hub) send(ev Event) {
	frame, err := encode(ev)
	if err != nil {
		return
	}
	for ch := range h.clients {
		select {
		case ch <- frame:
		default: // slow client, drop
		}
	}
}

func (h *hub) storeEvent(kind, id string) {
	data := map[string]string{}
	if id != "" {
		data["id"] = id
	}
	h.send(Event{Type: kind, Data: data})

	if now := time.Now(); now.Sub(h.lastStats) >= h.statsMin {
		h.lastStats = now
		h.send(Event{Type: StatsUpdated, Data: map[string]string{}})
	}
}

func encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "event: %s\ndata: %s\n\n", ev.Type, data)
	return buf.Bytes(), nil
}

// Broker fans events out to subscribed clients. Every method is safe for
// concurrent use and becomes a no-op after Close.
type Broker struct {
	ops  chan func(*hub)
	quit chan struct{}
	done chan struct{}
	stop sync.Once
}

// NewBroker starts a broker that emits stats.updated at most once per
// statsThrottle.
func NewBroker(statsThrottle time.Duration) *Broker {
	if statsThrottle <= 0 {
		statsThrottle = 2 * time.Second
	}
	b := &Broker{
		ops:  make(chan func(*hub), queueSize),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go b.loop(&hub{clients: make(map[chan []byte]struct{}), statsMin: statsThrottle})
	return b
}

func (b *Broker) loop(h *hub) {
	defer close(b.done)
	for {
		select {
		case <-b.quit:
			for ch := range h.clients {
				close(ch)
			}
			return
		case op := <-b.ops:
			op(h)
		}
	}
}

// do queues op for the broker goroutine and reports whether it was accepted.
func (b *Broker) do(op func(*hub)) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	select {
	case b.ops <- op:
		return true
	case <-b.done:
		return false
	}
}

// Close stops the broker and closes every client channel.
func (b *Broker) Close() {
	b.stop.Do(func() { close(b.quit) })
	<-b.done
}

// Subscribe registers a client. The returned channel is closed by
// Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, clientBuffer)
	added := make(chan struct{})
	if b.do(func(h *hub) {
		h.clients[ch] = struct{}{}
		close(added)
	}) {
		select {
		case <-added:
			return ch
		case <-b.done:
		}
	}
	select {
	case <-added:
		// Registered, then closed by the shutting down loop.
	default:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.do(func(h *hub) {
		if _, ok := h.clients[ch]; ok {
			delete(h.clients, ch)
			close(ch)
		}
	})
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	n := make(chan int, 1)
	if !b.do(func(h *hub) { n <- len(h.clients) }) {
		return 0
	}
	select {
	case c := <-n:
		return c
	case <-b.done:
		return 0
	}
}

// Publish sends event to all clients.
func (b *Broker) Publish(event Event) {
	b.do(func(h *hub) { h.send(event) })
}

// PublishStoreEvent sends kind with an {"id": id} payload, followed by a
// throttled stats.updated. Its signature matches spanservice.Notifier.
func (b *Broker) PublishStoreEvent(kind, id string) {
	b.do(func(h *hub) { h.storeEvent(kind, id) })
}

// ServeHTTP streams events to one client until it disconnects.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fl, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("Connection", "keep-alive")
	hdr.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	fl.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, open := <-ch:
			if !open {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
			fl.Flush()
		}
	}
}
