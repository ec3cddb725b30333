package events

import (
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 100

// subscription は購読者ごとの配信条件
// typesがnilの場合は全イベントを受け取る
type subscription struct {
	types map[EventType]struct{}
}

func (s subscription) wants(t EventType) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus はプローブ/フォールト系イベントのpub/subバス
//
// 購読はイベント種別で絞り込める。配信はノンブロッキングで、
// バッファの溢れた購読者へのイベントは落とされ、dropカウンタに計上される。
type Bus struct {
	mu          sync.RWMutex
	subscribers map[chan Event]subscription
	bufferSize  int
	dropped     atomic.Uint64
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[chan Event]subscription),
		bufferSize:  defaultBufferSize,
	}
}

// Subscribe returns a channel that receives all events
func (b *Bus) Subscribe() <-chan Event {
	return b.subscribe(nil)
}

// SubscribeTypes returns a channel that receives only the given event types
func (b *Bus) SubscribeTypes(types ...EventType) <-chan Event {
	set := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return b.subscribe(set)
}

// SubscribeProbe returns a channel scoped to probe outcome events
func (b *Bus) SubscribeProbe() <-chan Event {
	return b.SubscribeTypes(EventProbeSuccess, EventProbeFailure)
}

// SubscribeFault returns a channel scoped to kill and termination events
func (b *Bus) SubscribeFault() <-chan Event {
	return b.SubscribeTypes(
		EventKillSent,
		EventKillReceived,
		EventTerminationStarted,
		EventTerminationSuppressed,
	)
}

func (b *Bus) subscribe(types map[EventType]struct{}) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)
	b.subscribers[ch] = subscription{types: types}
	return ch
}

// Unsubscribe removes a subscriber channel
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subscribers {
		if sub == ch {
			delete(b.subscribers, sub)
			close(sub)
			return
		}
	}
}

// Publish sends an event to every subscriber whose scope matches
// Non-blocking: if a subscriber's buffer is full, the event is dropped for that subscriber
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch, sub := range b.subscribers {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case ch <- event:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of events dropped due to full subscriber buffers
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of active subscribers
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Close closes all subscriber channels
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, ch)
	}
}
