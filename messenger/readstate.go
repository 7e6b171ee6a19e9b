package messenger

import (
	"context"

	"lise-messenger/model"
)

// MarkMessagesRead marks the actor's receipts for messageIDs as read. It is best effort:
// failures are logged and never returned, and an empty list does not touch the database.
// A receipt already read keeps its first read_at.
func (s *Service) MarkMessagesRead(ctx context.Context, messageIDs []string) {
	if len(messageIDs) == 0 {
		return
	}
	actor, err := s.actor(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("messenger.read.no_identity")
		return
	}

	now := s.clock()
	res := s.db.WithContext(ctx).Model(&model.MessageReadStatus{}).
		Where("profile_id = ? AND message_id IN ? AND is_read = ?", actor, messageIDs, false).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if res.Error != nil {
		s.log.Warn().Err(res.Error).Str("profile_id", actor).Int("messages", len(messageIDs)).Msg("messenger.read.mark_failed")
		return
	}
	s.log.Debug().Str("profile_id", actor).Int64("marked", res.RowsAffected).Msg("messenger.read.mark")
}
