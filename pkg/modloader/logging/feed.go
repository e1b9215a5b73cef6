package logging

import (
	"sync"
	"time"
)

// LogEntry is a status message as published to subscribers.
type LogEntry struct {
	Time      time.Time
	Level     Level
	Component string
	Message   string
}

// feedBuffer bounds each subscription. A slow subscriber loses entries
// instead of stalling the operation that logs them.
const feedBuffer = 100

var feed = struct {
	mu   sync.Mutex
	subs []chan LogEntry
}{}

// Subscribe returns a channel receiving every entry that passes its
// component's level, from any goroutine, until Unsubscribe or Close.
func Subscribe() <-chan LogEntry {
	ch := make(chan LogEntry, feedBuffer)
	feed.mu.Lock()
	feed.subs = append(feed.subs, ch)
	feed.mu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch. Entries already buffered stay readable.
func Unsubscribe(ch <-chan LogEntry) {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	for i, sub := range feed.subs {
		if sub == ch {
			feed.subs = append(feed.subs[:i], feed.subs[i+1:]...)
			return
		}
	}
}

func publish(e LogEntry) {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	for _, ch := range feed.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func closeSubscribers() {
	feed.mu.Lock()
	defer feed.mu.Unlock()
	for _, ch := range feed.subs {
		close(ch)
	}
	feed.subs = nil
}
