package messenger

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lise-messenger/model"
	"lise-messenger/realtime"
	"lise-messenger/utils"
)

const (
	DefaultMessageLimit = 50
	MaxMessageLimit     = 200
)

// Outcome tells an ownership-scoped mutation that changed a row apart from one that matched nothing.
type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeForbidden Outcome = "forbidden"
)

type MutationResult struct {
	Outcome Outcome        `json:"outcome"`
	Message *model.Message `json:"message,omitempty"`
}

func (r MutationResult) Applied() bool { return r.Outcome == OutcomeUpdated }

// Err converts a non-applied outcome into the matching AppError.
func (r MutationResult) Err() error {
	switch r.Outcome {
	case OutcomeUpdated:
		return nil
	case OutcomeForbidden:
		return utils.Forbidden("only the sender can change this message")
	default:
		return utils.NotFound("message not found")
	}
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// SendMessage stores content verbatim from the actor. Every participant, the sender included,
// gets an unread receipt row. The returned message carries the sender's public profile.
func (s *Service) SendMessage(ctx context.Context, conversationID, content string) (model.Message, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return model.Message{}, err
	}
	if _, err := s.membership(ctx, s.db, conversationID, actor); err != nil {
		return model.Message{}, err
	}

	now := s.clock()
	msg := model.Message{
		ConversationID: conversationID,
		SenderID:       actor,
		Content:        content,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&msg).Error; err != nil {
			return err
		}

		var members []string
		if err := tx.Model(&model.Participant{}).Where("conversation_id = ?", conversationID).Pluck("profile_id", &members).Error; err != nil {
			return err
		}
		receipts := make([]model.MessageReadStatus, 0, len(members))
		for _, id := range members {
			receipts = append(receipts, model.MessageReadStatus{MessageID: msg.ID, ProfileID: id})
		}
		if len(receipts) > 0 {
			if err := tx.Create(&receipts).Error; err != nil {
				return err
			}
		}

		return tx.Model(&model.Conversation{}).Where("id = ?", conversationID).Update("updated_at", now).Error
	})
	if err != nil {
		return model.Message{}, s.backendFailed("send message", err)
	}

	if err := s.db.WithContext(ctx).Where("id = ?", msg.SenderID).Take(&msg.Sender).Error; err != nil {
		s.log.Warn().Err(err).Str("message_id", msg.ID).Msg("messenger.sender_lookup_failed")
	}

	s.log.Debug().Str("conversation_id", conversationID).Str("message_id", msg.ID).Msg("message.send")
	s.publish(ctx, realtime.ConversationTopic(conversationID), realtime.KindInsert, msg)
	s.emit(ctx, ActionMessageCreated, msg)
	return msg, nil
}

// GetMessages returns a page of live messages, newest first, and marks them read for the actor.
func (s *Service) GetMessages(ctx context.Context, conversationID string, limit, offset int) ([]model.Message, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.membership(ctx, s.db, conversationID, actor); err != nil {
		return nil, err
	}

	limit, offset = clampPage(limit, offset)
	messages := make([]model.Message, 0, limit)
	err = s.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, s.backendFailed("get messages", err)
	}

	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	s.MarkMessagesRead(ctx, ids)
	return messages, nil
}

// EditMessage replaces the content of the actor's own live message.
func (s *Service) EditMessage(ctx context.Context, messageID, content string) (MutationResult, error) {
	return s.mutateOwn(ctx, messageID, map[string]any{
		"content":   content,
		"is_edited": true,
	}, ActionMessageUpdated, "message.edit")
}

// DeleteMessage soft deletes the actor's own live message. Deleted is terminal.
func (s *Service) DeleteMessage(ctx context.Context, messageID string) (MutationResult, error) {
	return s.mutateOwn(ctx, messageID, map[string]any{
		"is_deleted": true,
	}, ActionMessageDeleted, "message.delete")
}

func (s *Service) mutateOwn(ctx context.Context, messageID string, changes map[string]any, action, logEvent string) (MutationResult, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return MutationResult{}, err
	}

	changes["updated_at"] = s.clock()
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND sender_id = ? AND is_deleted = ?", messageID, actor, false).
		Updates(changes)
	if res.Error != nil {
		return MutationResult{}, s.backendFailed(logEvent, res.Error)
	}
	if res.RowsAffected == 0 {
		outcome, err := s.classifyMiss(ctx, messageID)
		if err != nil {
			return MutationResult{}, err
		}
		s.log.Debug().Str("message_id", messageID).Str("outcome", string(outcome)).Msg(logEvent + ".skipped")
		return MutationResult{Outcome: outcome}, nil
	}

	return s.afterMutation(ctx, messageID, action, logEvent)
}

// ModerateMessage soft deletes any live message regardless of sender. Callers gate it behind RBAC.
func (s *Service) ModerateMessage(ctx context.Context, messageID string) (MutationResult, error) {
	res := s.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND is_deleted = ?", messageID, false).
		Updates(map[string]any{"is_deleted": true, "updated_at": s.clock()})
	if res.Error != nil {
		return MutationResult{}, s.backendFailed("moderate message", res.Error)
	}
	if res.RowsAffected == 0 {
		return MutationResult{Outcome: OutcomeNotFound}, nil
	}
	return s.afterMutation(ctx, messageID, ActionMessageDeleted, "message.moderate")
}

// classifyMiss explains why an ownership-scoped update matched no row.
func (s *Service) classifyMiss(ctx context.Context, messageID string) (Outcome, error) {
	var msg model.Message
	err := s.db.WithContext(ctx).Select("id", "is_deleted").Where("id = ?", messageID).Take(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return OutcomeNotFound, nil
	}
	if err != nil {
		return "", s.backendFailed("load message", err)
	}
	if msg.IsDeleted {
		return OutcomeNotFound, nil
	}
	return OutcomeForbidden, nil
}

func (s *Service) afterMutation(ctx context.Context, messageID, action, logEvent string) (MutationResult, error) {
	var msg model.Message
	if err := s.db.WithContext(ctx).Preload("Sender").Where("id = ?", messageID).Take(&msg).Error; err != nil {
		return MutationResult{}, s.backendFailed("reload message", err)
	}

	s.log.Info().Str("conversation_id", msg.ConversationID).Str("message_id", msg.ID).Msg(logEvent)
	s.publish(ctx, realtime.ConversationTopic(msg.ConversationID), realtime.KindUpdate, msg)
	s.emit(ctx, action, msg)
	return MutationResult{Outcome: OutcomeUpdated, Message: &msg}, nil
}
