// Package events fans message status changes out to in-process subscribers.
package events

import (
	"sync"

	"uiforge/uiforge/utils/types"
)

const subscriberBuffer = 8

type Broker struct {
	mu   sync.Mutex
	next int
	subs map[string]map[int]chan types.MessageEvent
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[int]chan types.MessageEvent)}
}

// Subscribe returns a channel of events for messageID and a cancel func that
// closes it. Cancel is safe to call more than once.
func (b *Broker) Subscribe(messageID string) (<-chan types.MessageEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan types.MessageEvent, subscriberBuffer)
	if b.subs[messageID] == nil {
		b.subs[messageID] = make(map[int]chan types.MessageEvent)
	}
	b.subs[messageID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[messageID], id)
			if len(b.subs[messageID]) == 0 {
				delete(b.subs, messageID)
			}
			close(ch)
		})
	}
}

// Publish never blocks; a subscriber with a full buffer misses the event and
// can re-read the message.
func (b *Broker) Publish(ev types.MessageEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[ev.MessageID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
