package messenger

import (
	"context"
	"encoding/json"

	"lise-messenger/model"
	"lise-messenger/realtime"
)

// MessageEvent is an insert or update of one message row.
type MessageEvent struct {
	Kind    string        `json:"kind"`
	Message model.Message `json:"message"`
}

// ConversationEvent carries the hydrated summary of a conversation the actor just joined.
type ConversationEvent struct {
	Kind    string                    `json:"kind"`
	Summary model.ConversationSummary `json:"summary"`
}

// Subscription is a typed view over a realtime subscription. The caller owns it and
// must Close it; Events is closed afterwards.
type Subscription[T any] struct {
	raw    *realtime.Subscription
	events chan T
}

func (s *Subscription[T]) Events() <-chan T { return s.events }

func (s *Subscription[T]) Close() { s.raw.Close() }

// bridge decodes raw events with convert; convert returning false skips the event.
func bridge[T any](raw *realtime.Subscription, buffer int, convert func(realtime.Event) (T, bool)) *Subscription[T] {
	sub := &Subscription[T]{raw: raw, events: make(chan T, buffer)}
	go func() {
		defer close(sub.events)
		for ev := range raw.Events() {
			out, ok := convert(ev)
			if !ok {
				continue
			}
			select {
			case sub.events <- out:
			case <-raw.Done():
			}
		}
	}()
	return sub
}

// SubscribeToMessages streams message inserts and updates of a conversation the actor belongs to.
// Only changes after the call are observed. The stream ends when the actor leaves the conversation.
func (s *Service) SubscribeToMessages(ctx context.Context, conversationID string) (*Subscription[MessageEvent], error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.membership(ctx, s.db, conversationID, actor); err != nil {
		return nil, err
	}

	raw := s.hub.Subscribe(realtime.ConversationTopic(conversationID), s.buffer)
	go s.closeOnLeave(raw, s.hub.Subscribe(realtime.ProfileTopic(actor), s.buffer), conversationID)
	s.log.Debug().Str("conversation_id", conversationID).Str("profile_id", actor).Msg("messenger.subscribe.messages")
	return bridge(raw, s.buffer, func(ev realtime.Event) (MessageEvent, bool) {
		var msg model.Message
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			s.log.Warn().Err(err).Str("topic", ev.Topic).Msg("messenger.subscribe.decode_failed")
			return MessageEvent{}, false
		}
		return MessageEvent{Kind: ev.Kind, Message: msg}, true
	}), nil
}

// closeOnLeave ends a message subscription once its profile is removed from the conversation.
func (s *Service) closeOnLeave(sub, membership *realtime.Subscription, conversationID string) {
	defer membership.Close()
	for {
		select {
		case <-sub.Done():
			return
		case ev, ok := <-membership.Events():
			if !ok {
				return
			}
			if ev.Kind != realtime.KindDelete {
				continue
			}
			var p model.Participant
			if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID != conversationID {
				continue
			}
			s.log.Debug().Str("conversation_id", conversationID).Str("profile_id", p.ProfileID).Msg("messenger.subscribe.left")
			sub.Close()
			return
		}
	}
}

// SubscribeToConversations streams conversations the actor is added to. Each event is
// re-read from the conversation list view; events that cannot be hydrated are skipped.
func (s *Service) SubscribeToConversations(ctx context.Context) (*Subscription[ConversationEvent], error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}

	// Hydration runs for the subscription's lifetime, past the request that opened it.
	hydrateCtx := context.WithoutCancel(ctx)
	raw := s.hub.Subscribe(realtime.ProfileTopic(actor), s.buffer)
	s.log.Debug().Str("profile_id", actor).Msg("messenger.subscribe.conversations")
	return bridge(raw, s.buffer, func(ev realtime.Event) (ConversationEvent, bool) {
		if ev.Kind != realtime.KindInsert {
			return ConversationEvent{}, false
		}
		var p model.Participant
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			s.log.Warn().Err(err).Str("topic", ev.Topic).Msg("messenger.subscribe.decode_failed")
			return ConversationEvent{}, false
		}
		summary, err := s.summary(hydrateCtx, p.ConversationID, actor)
		if err != nil {
			s.log.Warn().Err(err).Str("conversation_id", p.ConversationID).Msg("messenger.subscribe.hydrate_failed")
			return ConversationEvent{}, false
		}
		return ConversationEvent{Kind: ev.Kind, Summary: summary}, true
	}), nil
}

func (s *Service) summary(ctx context.Context, conversationID, profileID string) (model.ConversationSummary, error) {
	var row model.ConversationSummary
	err := s.db.WithContext(ctx).
		Where("id = ? AND profile_id = ?", conversationID, profileID).
		Take(&row).Error
	return row, err
}
