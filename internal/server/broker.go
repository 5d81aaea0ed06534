package server

import (
	"encoding/json"
	"sync"

	"github.com/playperu/bonuslights/internal/garland"
)

// Message is one encoded event as written to the stream.
type Message struct {
	Event string
	Data  []byte
}

// Broker is an in-process pub/sub that fans garland events out to SSE
// subscribers. It is the bonus machine's event sink.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan Message]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[chan Message]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events.
func (b *Broker) Subscribe() chan Message {
	ch := make(chan Message, 32)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(ch chan Message) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Publish sends an event to every subscriber.
func (b *Broker) Publish(e garland.Event) {
	data, _ := json.Marshal(e)
	msg := Message{Event: string(e.Type), Data: data}
	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

func (b *Broker) subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
