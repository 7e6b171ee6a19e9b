package listener

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"lise-messenger/event"
	"lise-messenger/messenger"
)

// Actions accepted on the api queue.
const (
	ActionParticipantAdd    = "conversation.participant.add"
	ActionParticipantRemove = "conversation.participant.remove"
	ActionMessageModerate   = "message.moderate"
)

// Service is the part of messenger.Service that back-office requests drive.
type Service interface {
	SystemAddParticipant(ctx context.Context, conversationID, profileID string, isAdmin bool) error
	SystemRemoveParticipant(ctx context.Context, conversationID, profileID string) (bool, error)
	ModerateMessage(ctx context.Context, messageID string) (messenger.MutationResult, error)
}

type participantRequest struct {
	ConversationID string `json:"conversation_id"`
	ProfileID      string `json:"profile_id"`
	IsAdmin        bool   `json:"is_admin"`
}

type moderateRequest struct {
	MessageID string `json:"message_id"`
}

// API applies back-office requests from the api queue.
type API struct {
	Channel chan event.Delivery

	svc Service
	log zerolog.Logger
}

func NewAPI(svc Service, log zerolog.Logger) *API {
	return &API{
		Channel: make(chan event.Delivery),
		svc:     svc,
		log:     log.With().Str("component", "listener.api").Logger(),
	}
}

func (a *API) Listener(queue string) event.Listener {
	return event.Listener{Queue: queue, Channel: a.Channel}
}

// Run handles deliveries until ctx is done. Handler errors are logged; the delivery is already acked.
func (a *API) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-a.Channel:
			if err := a.Handle(ctx, d); err != nil {
				a.log.Error().Err(err).Str("action", d.Action).Msg("listener.api.failed")
			}
		}
	}
}

func (a *API) Handle(ctx context.Context, d event.Delivery) error {
	ctx = event.WithOut(ctx, d.Out)

	switch d.Action {
	case ActionParticipantAdd:
		var req participantRequest
		if err := decode(d, &req); err != nil {
			return err
		}
		return a.svc.SystemAddParticipant(ctx, req.ConversationID, req.ProfileID, req.IsAdmin)

	case ActionParticipantRemove:
		var req participantRequest
		if err := decode(d, &req); err != nil {
			return err
		}
		removed, err := a.svc.SystemRemoveParticipant(ctx, req.ConversationID, req.ProfileID)
		if err != nil {
			return err
		}
		if !removed {
			a.log.Info().Str("conversation_id", req.ConversationID).Str("profile_id", req.ProfileID).Msg("listener.api.not_a_member")
		}
		return nil

	case ActionMessageModerate:
		var req moderateRequest
		if err := decode(d, &req); err != nil {
			return err
		}
		res, err := a.svc.ModerateMessage(ctx, req.MessageID)
		if err != nil {
			return err
		}
		return res.Err()
	}

	a.log.Debug().Str("action", d.Action).Msg("listener.api.ignored")
	return nil
}

func decode(d event.Delivery, v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("decode %s: %w", d.Action, err)
	}
	return nil
}
