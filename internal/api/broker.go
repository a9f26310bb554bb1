package api

import (
	"sync"

	"qroute/internal/model"
)

// pathsTopic carries every path generation event.
const pathsTopic = "paths"

// EventBroker fans path events out to subscribers of a topic.
type EventBroker interface {
	Subscribe(topic string) chan model.PathEvent
	Unsubscribe(topic string, ch chan model.PathEvent)
	Publish(topic string, evt model.PathEvent)
}

// Broker is the in-process EventBroker. Slow subscribers drop events.
type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan model.PathEvent]struct{} // topic -> set of channels
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan model.PathEvent]struct{}{}}
}

func (b *Broker) Subscribe(topic string) chan model.PathEvent {
	ch := make(chan model.PathEvent, 8)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = map[chan model.PathEvent]struct{}{}
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch chan model.PathEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.subs[topic]
	if _, ok := m[ch]; !ok {
		return
	}
	delete(m, ch)
	if len(m) == 0 {
		delete(b.subs, topic)
	}
	close(ch)
}

func (b *Broker) Publish(topic string, evt model.PathEvent) {
	b.mu.Lock()
	for ch := range b.subs[topic] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
