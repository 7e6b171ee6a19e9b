package controller

import (
	"github.com/gofiber/fiber/v2"

	"lise-messenger/messenger"
	"lise-messenger/session"
)

type ConversationCreateInput struct {
	Title          *string  `json:"title"`
	IsGroup        bool     `json:"is_group"`
	ParticipantIDs []string `json:"participant_ids"`
}

type ConversationTitleInput struct {
	Title string `json:"title"`
}

type ParticipantAddInput struct {
	ProfileID string `json:"profile_id"`
	IsAdmin   bool   `json:"is_admin"`
}

type MessageInput struct {
	Content string `json:"content"`
}

type MessagesReadInput struct {
	MessageIDs []string `json:"message_ids"`
}

type Messenger struct {
	svc *messenger.Service
}

func NewMessenger(svc *messenger.Service) *Messenger {
	return &Messenger{svc: svc}
}

func (m *Messenger) ListConversations(c *fiber.Ctx) error {
	actor, err := session.CurrentUserID(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	rows, err := m.svc.ListConversations(c.UserContext(), actor)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, rows)
}

func (m *Messenger) CreateConversation(c *fiber.Ctx) error {
	input := new(ConversationCreateInput)
	if err := c.BodyParser(input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}
	conv, err := m.svc.CreateConversation(c.UserContext(), input.Title, input.IsGroup, input.ParticipantIDs)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, conv)
}

func (m *Messenger) FindDirectConversation(c *fiber.Ctx) error {
	actor, err := session.CurrentUserID(c.UserContext())
	if err != nil {
		return serviceError(c, err)
	}
	conv, found, err := m.svc.FindDirectConversation(c.UserContext(), actor, c.Params("profileId"))
	if err != nil {
		return serviceError(c, err)
	}
	if !found {
		return failure(c, fiber.StatusNotFound, "conversation not found")
	}
	return success(c, conv)
}

func (m *Messenger) GetConversation(c *fiber.Ctx) error {
	conv, err := m.svc.GetConversationDetails(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, conv)
}

func (m *Messenger) UpdateConversationTitle(c *fiber.Ctx) error {
	input := new(ConversationTitleInput)
	if err := c.BodyParser(input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}
	conv, err := m.svc.UpdateConversationTitle(c.UserContext(), c.Params("id"), input.Title)
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, conv)
}

func (m *Messenger) DeleteConversation(c *fiber.Ctx) error {
	if err := m.svc.DeleteConversation(c.UserContext(), c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return success(c, nil)
}

func (m *Messenger) GetParticipants(c *fiber.Ctx) error {
	participants, err := m.svc.GetParticipants(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, participants)
}

func (m *Messenger) AddParticipant(c *fiber.Ctx) error {
	input := new(ParticipantAddInput)
	if err := c.BodyParser(input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}
	if err := m.svc.AddParticipant(c.UserContext(), c.Params("id"), input.ProfileID, input.IsAdmin); err != nil {
		return serviceError(c, err)
	}
	return success(c, nil)
}

func (m *Messenger) RemoveParticipant(c *fiber.Ctx) error {
	removed, err := m.svc.RemoveParticipant(c.UserContext(), c.Params("id"), c.Params("profileId"))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, fiber.Map{"removed": removed})
}

func (m *Messenger) GetMessages(c *fiber.Ctx) error {
	msgs, err := m.svc.GetMessages(c.UserContext(), c.Params("id"), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, msgs)
}

func (m *Messenger) SendMessage(c *fiber.Ctx) error {
	input := new(MessageInput)
	if err := c.BodyParser(input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}
	msg, err := m.svc.SendMessage(c.UserContext(), c.Params("id"), input.Content)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"status":  "success",
		"message": nil,
		"data":    msg,
	})
}

func (m *Messenger) EditMessage(c *fiber.Ctx) error {
	input := new(MessageInput)
	if err := c.BodyParser(input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}
	res, err := m.svc.EditMessage(c.UserContext(), c.Params("id"), input.Content)
	return mutation(c, res, err)
}

func (m *Messenger) DeleteMessage(c *fiber.Ctx) error {
	res, err := m.svc.DeleteMessage(c.UserContext(), c.Params("id"))
	return mutation(c, res, err)
}

func (m *Messenger) MarkRead(c *fiber.Ctx) error {
	input := new(MessagesReadInput)
	if err := c.BodyParser(input); err != nil {
		return failure(c, fiber.StatusBadRequest, "Review your input")
	}
	m.svc.MarkMessagesRead(c.UserContext(), input.MessageIDs)
	return success(c, nil)
}

// Moderate soft deletes any message. Mounted under /v1/admin behind RBAC.
func (m *Messenger) Moderate(c *fiber.Ctx) error {
	res, err := m.svc.ModerateMessage(c.UserContext(), c.Params("id"))
	return mutation(c, res, err)
}

// Purge hard deletes any conversation. Mounted under /v1/admin behind RBAC.
func (m *Messenger) Purge(c *fiber.Ctx) error {
	if err := m.svc.PurgeConversation(c.UserContext(), c.Params("id")); err != nil {
		return serviceError(c, err)
	}
	return success(c, nil)
}

func mutation(c *fiber.Ctx, res messenger.MutationResult, err error) error {
	if err != nil {
		return serviceError(c, err)
	}
	if !res.Applied() {
		return serviceError(c, res.Err())
	}
	return success(c, res.Message)
}
