// Package realtime fans row-change events out to in-process subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
)

const (
	KindInsert = "insert"
	KindUpdate = "update"
	KindDelete = "delete"

	defaultBuffer = 64
)

// Event is one change notification on a topic. Data is the JSON encoded row.
type Event struct {
	Topic string          `json:"topic"`
	Kind  string          `json:"kind"`
	Data  json.RawMessage `json:"data"`
}

// Publisher accepts change events. Hub and RedisRelay both implement it.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// ConversationTopic is the topic of message changes in one conversation.
func ConversationTopic(conversationID string) string {
	return "conversation:" + conversationID
}

// ProfileTopic is the topic of membership changes for one profile.
func ProfileTopic(profileID string) string {
	return "profile:" + profileID
}

// Hub keeps the live subscriptions of this process.
//
// Delivery never blocks: a subscriber whose queue is full misses the event.
// Subscriptions are independent, two subscriptions on one topic both receive every event.
type Hub struct {
	log zerolog.Logger

	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:    log,
		topics: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a subscription on topic. Only events published afterwards are observed.
func (h *Hub) Subscribe(topic string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	sub := &Subscription{
		hub:    h,
		topic:  topic,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}

	h.mu.Lock()
	subs := h.topics[topic]
	if subs == nil {
		subs = make(map[*Subscription]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	h.log.Debug().Str("topic", topic).Msg("realtime.subscribe")
	return sub
}

// Publish delivers ev to the local subscribers of ev.Topic.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.Deliver(ev)
	return nil
}

// Deliver fans ev out without blocking and reports how many subscribers received it.
func (h *Hub) Deliver(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.topics[ev.Topic] {
		select {
		case sub.events <- ev:
			delivered++
			eventsDelivered.WithLabelValues(ev.Kind).Inc()
		default:
			eventsDropped.WithLabelValues(ev.Kind).Inc()
			h.log.Debug().Str("topic", ev.Topic).Str("kind", ev.Kind).Msg("realtime.drop")
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, sub.topic)
		}
	}
	// Deliver sends under the read lock, so closing under the write lock cannot race a send.
	close(sub.events)
}

// Subscription is a handle on one topic. The caller owns it and must Close it.
type Subscription struct {
	hub    *Hub
	topic  string
	events chan Event

	done      chan struct{}
	closeOnce sync.Once
}

// Events yields events until the subscription is closed.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed once Close has been called.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) Topic() string { return s.topic }

// Close unregisters the subscription. It is idempotent.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		close(s.done)
		s.hub.remove(s)
		s.hub.log.Debug().Str("topic", s.topic).Msg("realtime.unsubscribe")
	})
}
