// Package messenger is the conversation and messaging access layer: conversation lifecycle,
// membership, message CRUD, read receipts and change subscriptions.
package messenger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"lise-messenger/model"
	"lise-messenger/realtime"
	"lise-messenger/session"
	"lise-messenger/utils"
)

// Actions emitted to the domain event bus.
const (
	ActionConversationCreated = "conversation.created"
	ActionConversationUpdated = "conversation.updated"
	ActionConversationDeleted = "conversation.deleted"
	ActionParticipantAdded    = "conversation.participant.added"
	ActionParticipantRemoved  = "conversation.participant.removed"
	ActionMessageCreated      = "message.created"
	ActionMessageUpdated      = "message.updated"
	ActionMessageDeleted      = "message.deleted"
)

// Emitter receives domain events after the change is committed.
type Emitter interface {
	Emit(ctx context.Context, action string, payload any) error
}

type Service struct {
	db        *gorm.DB
	log       zerolog.Logger
	hub       *realtime.Hub
	publisher realtime.Publisher
	emitter   Emitter
	now       func() time.Time
	buffer    int
}

type Option func(*Service)

// WithPublisher routes change events through p instead of straight into the hub,
// e.g. a realtime.RedisRelay shared by several instances.
func WithPublisher(p realtime.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithEmitter(e Emitter) Option {
	return func(s *Service) { s.emitter = e }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSubscriptionBuffer sets the queue length of every new subscription.
func WithSubscriptionBuffer(n int) Option {
	return func(s *Service) { s.buffer = n }
}

func NewService(db *gorm.DB, hub *realtime.Hub, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		db:     db,
		log:    log.With().Str("component", "messenger").Logger(),
		hub:    hub,
		now:    time.Now,
		buffer: 64,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = hub
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

func (s *Service) actor(ctx context.Context) (string, error) {
	return session.CurrentUserID(ctx)
}

// backendFailed logs err and wraps it for the caller.
func (s *Service) backendFailed(op string, err error) error {
	s.log.Error().Err(err).Str("op", op).Msg("messenger.backend_failed")
	return utils.BackendFailed(op, err)
}

// conversation loads a conversation row, NotFound when it does not exist.
func (s *Service) conversation(ctx context.Context, tx *gorm.DB, id string) (model.Conversation, error) {
	var conv model.Conversation
	err := tx.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return conv, utils.NotFound("conversation not found")
	}
	if err != nil {
		return conv, s.backendFailed("load conversation", err)
	}
	return conv, nil
}

// membership returns the actor's participant row. A missing conversation is NotFound,
// an existing one the actor is not part of is PermissionDenied.
func (s *Service) membership(ctx context.Context, tx *gorm.DB, conversationID, profileID string) (model.Participant, error) {
	if _, err := s.conversation(ctx, tx, conversationID); err != nil {
		return model.Participant{}, err
	}

	var p model.Participant
	err := tx.WithContext(ctx).
		Where("conversation_id = ? AND profile_id = ?", conversationID, profileID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, utils.Forbidden("not a participant of this conversation")
	}
	if err != nil {
		return p, s.backendFailed("load participant", err)
	}
	return p, nil
}

// publish sends a change event. The change is already committed, so failures are only logged.
func (s *Service) publish(ctx context.Context, topic, kind string, row any) {
	data, err := json.Marshal(row)
	if err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Msg("messenger.publish.encode_failed")
		return
	}
	ev := realtime.Event{Topic: topic, Kind: kind, Data: data}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Msg("messenger.publish_failed")
	}
}

func (s *Service) emit(ctx context.Context, action string, payload any) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(ctx, action, payload); err != nil {
		s.log.Warn().Err(err).Str("action", action).Msg("messenger.emit_failed")
	}
}
