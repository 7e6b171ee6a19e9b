package database

import (
	"fmt"

	"lise-messenger/model"

	"gorm.io/gorm"
)

// conversationListView is the per-participant conversation aggregate read by the list operation.
// The SQL stays within what both Postgres and SQLite accept.
const conversationListView = `
CREATE VIEW conversation_list_view AS
SELECT c.id AS id,
       cp.profile_id AS profile_id,
       c.title AS title,
       c.is_group AS is_group,
       cp.is_admin AS is_admin,
       c.created_at AS created_at,
       c.updated_at AS updated_at,
       (SELECT COUNT(*) FROM conversation_participants p2
         WHERE p2.conversation_id = c.id) AS participant_count,
       lm.id AS latest_message_id,
       lm.content AS latest_message_content,
       lm.sender_id AS latest_message_sender_id,
       lm.created_at AS latest_message_time,
       (SELECT COUNT(*) FROM message_read_status rs
          JOIN messages m2 ON m2.id = rs.message_id
         WHERE m2.conversation_id = c.id
           AND m2.is_deleted = FALSE
           AND rs.profile_id = cp.profile_id
           AND rs.is_read = FALSE) AS unread_count
  FROM conversations c
  JOIN conversation_participants cp ON cp.conversation_id = c.id
  LEFT JOIN messages lm ON lm.id = (
        SELECT m.id FROM messages m
         WHERE m.conversation_id = c.id AND m.is_deleted = FALSE
         ORDER BY m.created_at DESC
         LIMIT 1)`

// Migrate creates the messenger tables and recreates conversation_list_view.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Profile{},
		&model.Conversation{},
		&model.Participant{},
		&model.Message{},
		&model.MessageReadStatus{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.Exec(`DROP VIEW IF EXISTS conversation_list_view`).Error; err != nil {
		return fmt.Errorf("drop conversation_list_view: %w", err)
	}
	if err := db.Exec(conversationListView).Error; err != nil {
		return fmt.Errorf("create conversation_list_view: %w", err)
	}
	return nil
}
