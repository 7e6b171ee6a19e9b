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

// AddParticipant adds profileID to a conversation the actor belongs to. Adding an existing
// member is a no-op. A direct conversation never grows past its two members.
func (s *Service) AddParticipant(ctx context.Context, conversationID, profileID string, isAdmin bool) error {
	actor, err := s.actor(ctx)
	if err != nil {
		return err
	}
	if _, err := s.membership(ctx, s.db, conversationID, actor); err != nil {
		return err
	}
	return s.addParticipant(ctx, conversationID, profileID, isAdmin)
}

func (s *Service) addParticipant(ctx context.Context, conversationID, profileID string, isAdmin bool) error {
	profileID = strings.TrimSpace(profileID)
	if profileID == "" {
		return utils.InvalidArgument("profile id is required")
	}
	if _, err := s.GetProfile(ctx, profileID); err != nil {
		return err
	}

	p := model.Participant{
		ConversationID: conversationID,
		ProfileID:      profileID,
		IsAdmin:        isAdmin,
		JoinedAt:       s.clock(),
	}
	var inserted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		conv, err := s.conversation(ctx, tx, conversationID)
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&model.Participant{}).
			Where("conversation_id = ? AND profile_id = ?", conversationID, profileID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		if !conv.IsGroup {
			if conv.DirectKey != nil && !inDirectPair(*conv.DirectKey, profileID) {
				return utils.FailedPrecondition("only the two profiles of a direct conversation can join it")
			}
			var members int64
			if err := tx.Model(&model.Participant{}).Where("conversation_id = ?", conversationID).Count(&members).Error; err != nil {
				return err
			}
			if members >= 2 {
				return utils.FailedPrecondition("a direct conversation has exactly two participants")
			}
		}

		res := tx.Omit(clause.Associations).Clauses(clause.OnConflict{DoNothing: true}).Create(&p)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return s.backendFailed("add participant", err)
	}
	if !inserted {
		return nil
	}

	s.log.Info().Str("conversation_id", conversationID).Str("profile_id", profileID).Msg("conversation.member.join")
	s.publish(ctx, realtime.ProfileTopic(profileID), realtime.KindInsert, p)
	s.emit(ctx, ActionParticipantAdded, p)
	return nil
}

// inDirectPair reports whether profileID is one side of a DirectKey.
func inDirectPair(key, profileID string) bool {
	a, b, ok := strings.Cut(key, ":")
	return ok && (profileID == a || profileID == b)
}

// RemoveParticipant removes a member. Members may leave; removing someone else needs admin.
// It reports whether a row was removed. The conversation survives its last member.
func (s *Service) RemoveParticipant(ctx context.Context, conversationID, profileID string) (bool, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return false, err
	}
	me, err := s.membership(ctx, s.db, conversationID, actor)
	if err != nil {
		return false, err
	}
	if profileID != actor && !me.IsAdmin {
		return false, utils.Forbidden("only a conversation admin can remove other participants")
	}
	return s.removeParticipant(ctx, conversationID, profileID)
}

func (s *Service) removeParticipant(ctx context.Context, conversationID, profileID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("conversation_id = ? AND profile_id = ?", conversationID, profileID).
		Delete(&model.Participant{})
	if res.Error != nil {
		return false, s.backendFailed("remove participant", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	s.log.Info().Str("conversation_id", conversationID).Str("profile_id", profileID).Msg("conversation.member.leave")
	s.publish(ctx, realtime.ProfileTopic(profileID), realtime.KindDelete, model.Participant{
		ConversationID: conversationID,
		ProfileID:      profileID,
	})
	s.emit(ctx, ActionParticipantRemoved, map[string]string{
		"conversation_id": conversationID,
		"profile_id":      profileID,
	})
	return true, nil
}

// GetParticipants returns every member of the conversation with public profile fields.
func (s *Service) GetParticipants(ctx context.Context, conversationID string) ([]model.Participant, error) {
	actor, err := s.actor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.membership(ctx, s.db, conversationID, actor); err != nil {
		return nil, err
	}

	participants := make([]model.Participant, 0)
	err = s.db.WithContext(ctx).
		Preload("Profile").
		Where("conversation_id = ?", conversationID).
		Order("joined_at, profile_id").
		Find(&participants).Error
	if err != nil {
		return nil, s.backendFailed("list participants", err)
	}
	return participants, nil
}

// SystemAddParticipant and SystemRemoveParticipant apply membership changes requested by
// trusted back-office consumers; they skip the actor checks.
func (s *Service) SystemAddParticipant(ctx context.Context, conversationID, profileID string, isAdmin bool) error {
	return s.addParticipant(ctx, conversationID, profileID, isAdmin)
}

func (s *Service) SystemRemoveParticipant(ctx context.Context, conversationID, profileID string) (bool, error) {
	if _, err := s.conversation(ctx, s.db, conversationID); err != nil {
		return false, err
	}
	return s.removeParticipant(ctx, conversationID, profileID)
}
