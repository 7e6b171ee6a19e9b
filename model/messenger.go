package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Conversation struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Title     *string   `json:"title"`
	IsGroup   bool      `gorm:"not null;default:false" json:"is_group"`
	DirectKey *string   `gorm:"uniqueIndex;size:80" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Participants []Participant `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"participants,omitempty"`
	Messages     []Message     `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE" json:"-"`
}

func (c *Conversation) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// Participant is the membership edge between a profile and a conversation.
type Participant struct {
	ConversationID string    `gorm:"primaryKey;size:36" json:"conversation_id"`
	ProfileID      string    `gorm:"primaryKey;size:36;index" json:"profile_id"`
	IsAdmin        bool      `gorm:"not null;default:false" json:"is_admin"`
	JoinedAt       time.Time `json:"joined_at"`

	Profile PublicProfile `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"profile"`
}

func (Participant) TableName() string { return "conversation_participants" }

// Message is soft deleted: IsDeleted hides it from reads but the row stays.
type Message struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	ConversationID string    `gorm:"not null;size:36;index:idx_messages_conversation_created,priority:1" json:"conversation_id"`
	SenderID       string    `gorm:"not null;size:36;index" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	IsEdited       bool      `gorm:"not null;default:false" json:"is_edited"`
	IsDeleted      bool      `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt      time.Time `gorm:"index:idx_messages_conversation_created,priority:2" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Sender       PublicProfile       `gorm:"foreignKey:SenderID" json:"sender"`
	ReadStatuses []MessageReadStatus `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
}

func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// MessageReadStatus is the per-profile read receipt of one message.
type MessageReadStatus struct {
	MessageID string     `gorm:"primaryKey;size:36" json:"message_id"`
	ProfileID string     `gorm:"primaryKey;size:36;index" json:"profile_id"`
	IsRead    bool       `gorm:"not null;default:false" json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
}

func (MessageReadStatus) TableName() string { return "message_read_status" }

// ConversationSummary is one row of conversation_list_view: a conversation as seen by one participant.
type ConversationSummary struct {
	ID                    string     `json:"id"`
	ProfileID             string     `json:"profile_id"`
	Title                 *string    `json:"title"`
	IsGroup               bool       `json:"is_group"`
	IsAdmin               bool       `json:"is_admin"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	ParticipantCount      int64      `json:"participant_count"`
	LatestMessageID       *string    `json:"latest_message_id"`
	LatestMessageContent  *string    `json:"latest_message_content"`
	LatestMessageSenderID *string    `json:"latest_message_sender_id"`
	LatestMessageTime     *time.Time `json:"latest_message_time"`
	UnreadCount           int64      `json:"unread_count"`
}

func (ConversationSummary) TableName() string { return "conversation_list_view" }
