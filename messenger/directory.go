package messenger

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lise-messenger/model"
	"lise-messenger/realtime"
	"lise-messenger/utils"
)

// DirectKey is the canonical key of the direct conversation between two profiles.
// It does not depend on argument order.
func DirectKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// normalizeParticipants trims and de-duplicates ids and puts the actor first.
func normalizeParticipants(actor string, ids []string) []string {
	seen := map[string]bool{actor: true}
	out := []string{actor}
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ListConversations returns userID's conversation summaries, most recent activity first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]model.ConversationSummary, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, utils.InvalidArgument("user id is required")
	}

	rows := make([]model.ConversationSummary, 0)
	err := s.db.WithContext(ctx).
		Where("profile_id = ?", userID).
		Order("COALESCE(latest_message_time, updated_at) DESC").
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, s.backendFailed("list conversations", err)
	}
	return rows, nil
}

// CreateConversation creates a conversation with the actor as admin. A direct conversation
// between two profiles is created once; later calls return the existing one.
func (s *Service) CreateConversation(ctx context.Context, title *string, isGroup bool, participantIDs []string) (model.Conversation, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return model.Conversation{}, err
	}

	ids := normalizeParticipants(actor, participantIDs)
	if !isGroup {
		if len(ids) != 2 {
			return model.Conversation{}, utils.InvalidArgument("a direct conversation needs exactly two participants")
		}
		conv, found, err := s.findByDirectKey(ctx, DirectKey(ids[0], ids[1]))
		if err != nil {
			return model.Conversation{}, err
		}
		if found {
			return s.rejoinDirect(ctx, conv, actor, ids)
		}
	}

	var known int64
	if err := s.db.WithContext(ctx).Model(&model.Profile{}).Where("id IN ?", ids).Count(&known).Error; err != nil {
		return model.Conversation{}, s.backendFailed("check participants", err)
	}
	if int(known) != len(ids) {
		return model.Conversation{}, utils.InvalidArgument("unknown participant")
	}

	now := s.clock()
	conv := model.Conversation{Title: title, IsGroup: isGroup, CreatedAt: now, UpdatedAt: now}
	if !isGroup {
		key := DirectKey(ids[0], ids[1])
		conv.DirectKey = &key
	}

	participants := make([]model.Participant, 0, len(ids))
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&conv).Error; err != nil {
			return err
		}
		for _, id := range ids {
			participants = append(participants, model.Participant{
				ConversationID: conv.ID,
				ProfileID:      id,
				IsAdmin:        id == actor,
				JoinedAt:       now,
			})
		}
		return tx.Omit(clause.Associations).Create(&participants).Error
	})
	if err != nil {
		// A concurrent create of the same direct pair wins the unique key; return its row.
		if conv.DirectKey != nil {
			if existing, found, findErr := s.findByDirectKey(ctx, *conv.DirectKey); findErr == nil && found {
				return existing, nil
			}
		}
		return model.Conversation{}, s.backendFailed("create conversation", err)
	}

	conv.Participants = participants
	s.log.Info().Str("conversation_id", conv.ID).Bool("is_group", isGroup).Int("participants", len(ids)).Msg("conversation.create")
	for _, p := range participants {
		s.publish(ctx, realtime.ProfileTopic(p.ProfileID), realtime.KindInsert, p)
	}
	s.emit(ctx, ActionConversationCreated, conv)
	return conv, nil
}

// FindDirectConversation looks up the direct conversation of a pair with a single keyed query.
// It only reports a conversation both profiles still belong to, with no one else in it.
func (s *Service) FindDirectConversation(ctx context.Context, userA, userB string) (model.Conversation, bool, error) {
	userA, userB = strings.TrimSpace(userA), strings.TrimSpace(userB)
	if userA == "" || userB == "" || userA == userB {
		return model.Conversation{}, false, nil
	}
	return s.directQuery(ctx, DirectKey(userA, userB), func(db *gorm.DB) *gorm.DB {
		return db.
			Where("(SELECT COUNT(*) FROM conversation_participants p WHERE p.conversation_id = conversations.id AND p.profile_id IN ?) = 2", []string{userA, userB}).
			Where("(SELECT COUNT(*) FROM conversation_participants p WHERE p.conversation_id = conversations.id) = 2")
	})
}

// findByDirectKey returns the conversation holding the pair's key whatever its current members.
func (s *Service) findByDirectKey(ctx context.Context, key string) (model.Conversation, bool, error) {
	return s.directQuery(ctx, key, func(db *gorm.DB) *gorm.DB { return db })
}

func (s *Service) directQuery(ctx context.Context, key string, scope func(*gorm.DB) *gorm.DB) (model.Conversation, bool, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at, profile_id") }).
		Scopes(scope).
		Where("direct_key = ? AND is_group = ?", key, false).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Conversation{}, false, nil
	}
	if err != nil {
		return model.Conversation{}, false, s.backendFailed("find direct conversation", err)
	}
	return conv, true, nil
}

// rejoinDirect returns the pair's existing direct conversation. A member who left it is added
// back, so the key keeps naming one live channel.
func (s *Service) rejoinDirect(ctx context.Context, conv model.Conversation, actor string, ids []string) (model.Conversation, error) {
	present := make(map[string]bool, len(conv.Participants))
	for _, p := range conv.Participants {
		present[p.ProfileID] = true
	}

	rejoined := false
	for _, id := range ids {
		if present[id] {
			continue
		}
		if err := s.addParticipant(ctx, conv.ID, id, id == actor); err != nil {
			return model.Conversation{}, err
		}
		rejoined = true
	}
	if !rejoined {
		return conv, nil
	}

	again, found, err := s.findByDirectKey(ctx, *conv.DirectKey)
	if err != nil {
		return model.Conversation{}, err
	}
	if !found {
		return model.Conversation{}, utils.NotFound("conversation not found")
	}
	return again, nil
}

// GetConversationDetails returns the conversation with its participants and their profiles.
func (s *Service) GetConversationDetails(ctx context.Context, id string) (model.Conversation, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return model.Conversation{}, err
	}
	if _, err := s.membership(ctx, s.db, id, actor); err != nil {
		return model.Conversation{}, err
	}
	return s.details(ctx, id)
}

func (s *Service) details(ctx context.Context, id string) (model.Conversation, error) {
	var conv model.Conversation
	err := s.db.WithContext(ctx).
		Preload("Participants", func(db *gorm.DB) *gorm.DB { return db.Order("joined_at, profile_id") }).
		Preload("Participants.Profile").
		Where("id = ?", id).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return conv, utils.NotFound("conversation not found")
	}
	if err != nil {
		return conv, s.backendFailed("load conversation details", err)
	}
	return conv, nil
}

// UpdateConversationTitle sets the title; an empty title clears it. Any participant may rename.
func (s *Service) UpdateConversationTitle(ctx context.Context, id, title string) (model.Conversation, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return model.Conversation{}, err
	}
	if _, err := s.membership(ctx, s.db, id, actor); err != nil {
		return model.Conversation{}, err
	}

	var value *string
	if t := strings.TrimSpace(title); t != "" {
		value = &t
	}
	err = s.db.WithContext(ctx).Model(&model.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{"title": value, "updated_at": s.clock()}).Error
	if err != nil {
		return model.Conversation{}, s.backendFailed("update conversation title", err)
	}

	conv, err := s.details(ctx, id)
	if err != nil {
		return model.Conversation{}, err
	}
	s.emit(ctx, ActionConversationUpdated, conv)
	return conv, nil
}

// DeleteConversation hard deletes a conversation together with its participants,
// messages and read receipts. Only a conversation admin may delete.
func (s *Service) DeleteConversation(ctx context.Context, id string) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}
	p, err := s.membership(ctx, s.db, id, actor)
	if err != nil {
		return err
	}
	if !p.IsAdmin {
		return utils.Forbidden("only a conversation admin can delete it")
	}
	return s.purgeConversation(ctx, id)
}

// purgeConversation removes every row of a conversation in one transaction.
func (s *Service) purgeConversation(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		messageIDs := tx.Model(&model.Message{}).Select("id").Where("conversation_id = ?", id)
		if err := tx.Where("message_id IN (?)", messageIDs).Delete(&model.MessageReadStatus{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", id).Delete(&model.Participant{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.Conversation{}).Error
	})
	if err != nil {
		return s.backendFailed("delete conversation", err)
	}

	s.log.Info().Str("conversation_id", id).Msg("conversation.delete")
	s.emit(ctx, ActionConversationDeleted, map[string]string{"id": id})
	return nil
}

// PurgeConversation is the moderation variant of DeleteConversation: no membership check.
// Callers gate it behind RBAC.
func (s *Service) PurgeConversation(ctx context.Context, id string) error {
	if _, err := s.conversation(ctx, s.db, id); err != nil {
		return err
	}
	return s.purgeConversation(ctx, id)
}
