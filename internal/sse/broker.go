// Package sse pushes journal changes to open pages as Server-Sent Events.
package sse

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Event is one named SSE frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Change kinds accepted by PublishMomentEvent.
const (
	KindCreated  = "created"
	KindUpdated  = "updated"
	KindDeleted  = "deleted"
	KindReloaded = "reloaded"
)

// keepAlive is the comment frame written to idle streams so proxies keep
// the connection open.
const keepAlive = 25 * time.Second

// Broker fans journal changes out to subscribed pages.
//
// Every subscriber owns a buffered frame channel. A subscriber that falls
// behind loses frames rather than blocking writers.
type Broker struct {
	throttle time.Duration
	now      func() time.Time

	mu         sync.Mutex
	subs       map[chan []byte]struct{}
	lastReview time.Time
	closed     bool
}

// NewBroker creates a broker that emits review.updated at most once per
// reviewThrottle (2s when unset).
func NewBroker(reviewThrottle time.Duration) *Broker {
	if reviewThrottle <= 0 {
		reviewThrottle = 2 * time.Second
	}
	return &Broker{
		throttle: reviewThrottle,
		now:      time.Now,
		subs:     make(map[chan []byte]struct{}),
	}
}

// Close ends every stream. Further publishes are dropped.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	clear(b.subs)
}

// Subscribe registers a page. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe drops a page and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// ClientCount reports how many pages are subscribed.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish sends ev to every page.
func (b *Broker) Publish(ev Event) {
	frame, ok := encodeFrame(ev)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendLocked(frame)
}

// PublishMomentEvent announces a moment change. Unknown kinds are ignored.
// Accepted changes are followed by review.updated unless one went out
// within the throttle window.
func (b *Broker) PublishMomentEvent(kind, id string) {
	var ev Event
	switch kind {
	case KindCreated, KindUpdated, KindDeleted:
		ev = Event{Type: "moment." + kind, Data: map[string]string{"id": id}}
	case KindReloaded:
		ev = Event{Type: "moments.reloaded", Data: struct{}{}}
	default:
		return
	}
	frame, ok := encodeFrame(ev)
	if !ok {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.sendLocked(frame)

	if t := b.now(); t.Sub(b.lastReview) >= b.throttle {
		b.lastReview = t
		review, _ := encodeFrame(Event{Type: "review.updated", Data: struct{}{}})
		b.sendLocked(review)
	}
}

// PublishSettings broadcasts the current appearance preferences.
func (b *Broker) PublishSettings(prefs any) {
	b.Publish(Event{Type: "settings.updated", Data: prefs})
}

func (b *Broker) sendLocked(frame []byte) {
	for ch := range b.subs {
		select {
		case ch <- frame:
		default:
		}
	}
}

func encodeFrame(ev Event) ([]byte, bool) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, false
	}
	var buf bytes.Buffer
	buf.WriteString("event: ")
	buf.WriteString(ev.Type)
	buf.WriteString("\ndata: ")
	buf.Write(data)
	buf.WriteString("\n\n")
	return buf.Bytes(), true
}

// ServeHTTP streams frames to one page until it disconnects or the broker
// closes.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	frames := b.Subscribe()
	defer b.Unsubscribe(frames)

	ping := time.NewTicker(keepAlive)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, open := <-frames:
			if !open {
				return
			}
			if _, err := w.Write(frame); err != nil {
				return
			}
		case <-ping.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}
