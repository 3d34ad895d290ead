package logging

import "sync"

// FinishedMarker prefixes the line published when a session reaches a
// terminal state. Stream consumers match on it to detect session end
// structurally instead of parsing progress text; the state name
// follows the marker.
const FinishedMarker = "__SESSION_FINISHED__:"

// Sink receives human-readable progress lines from the crawl. The core
// pushes lines and never learns how they are transported to consumers.
type Sink interface {
	Publish(line string)
}

// NopSink discards all lines. Used by the CLI, where logrus output to
// stderr already covers progress display.
type NopSink struct{}

// Publish implements Sink
func (NopSink) Publish(string) {}

// Broadcaster fans published lines out to any number of subscribers.
// Publishing never blocks: a subscriber that falls behind loses lines
// rather than stalling the crawl loop.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewBroadcaster creates an empty Broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan string]struct{})}
}

// Publish implements Sink
func (b *Broadcaster) Publish(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- line:
		default: // Subscriber buffer full, drop the line for that subscriber
		}
	}
}

// Subscribe registers a new subscriber with the given buffer size and
// returns its channel. The caller must Unsubscribe when done.
func (b *Broadcaster) Subscribe(buf int) chan string {
	ch := make(chan string, buf)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel
func (b *Broadcaster) Unsubscribe(ch chan string) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}
