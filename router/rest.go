package router

import (
	"github.com/casbin/casbin/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"lise-messenger/controller"
	"lise-messenger/middleware"
)

type Handlers struct {
	Auth      *controller.Auth
	Messenger *controller.Messenger
	Profiles  *controller.Profiles
	Health    *controller.Health

	AccessKey string
	Enforcer  *casbin.Enforcer
}

func Rest(app *fiber.App, h Handlers) {
	app.Get("/healthz", h.Health.Live)
	app.Get("/readyz", h.Health.Ready)
	app.Get("/metrics", middleware.MetricsHandler())

	api := app.Group("/v1", logger.New(), middleware.Metrics())

	jwt := middleware.JWT(h.AccessKey)
	session := []fiber.Handler{jwt, middleware.OTP(), middleware.Identity()}

	// Auth
	auth := api.Group("/auth")
	auth.Post("/signup", h.Auth.Signup)
	auth.Post("/signin", h.Auth.Signin)
	auth.Post("/token/renew", h.Auth.TokenRenew)
	auth.Post("/2fa/secret", jwt, middleware.OTP(), h.Auth.OtpSecret)
	auth.Post("/2fa/verify", jwt, middleware.OTP(), h.Auth.OtpVerify)
	auth.Post("/2fa/validate", jwt, h.Auth.OtpValidate)
	auth.Post("/2fa/disable", jwt, middleware.OTP(), h.Auth.OtpDisable)

	// User
	user := api.Group("/user", session...)
	user.Get("/profile", h.Auth.Me)

	// Profiles
	profiles := api.Group("/profiles", session...)
	profiles.Get("/search", h.Profiles.Search)
	profiles.Get("/by-username/:username", h.Profiles.ByUsername)
	profiles.Get("/:id", h.Profiles.ByID)

	// Conversations
	conversations := api.Group("/conversations", session...)
	conversations.Get("", h.Messenger.ListConversations)
	conversations.Post("", h.Messenger.CreateConversation)
	conversations.Get("/direct/:profileId", h.Messenger.FindDirectConversation)
	conversations.Get("/:id", h.Messenger.GetConversation)
	conversations.Patch("/:id", h.Messenger.UpdateConversationTitle)
	conversations.Delete("/:id", h.Messenger.DeleteConversation)
	conversations.Get("/:id/participants", h.Messenger.GetParticipants)
	conversations.Post("/:id/participants", h.Messenger.AddParticipant)
	conversations.Delete("/:id/participants/:profileId", h.Messenger.RemoveParticipant)
	conversations.Get("/:id/messages", h.Messenger.GetMessages)
	conversations.Post("/:id/messages", h.Messenger.SendMessage)

	// Messages
	messages := api.Group("/messages", session...)
	messages.Post("/read", h.Messenger.MarkRead)
	messages.Patch("/:id", h.Messenger.EditMessage)
	messages.Delete("/:id", h.Messenger.DeleteMessage)

	// Admin
	admin := api.Group("/admin", append(session, middleware.RBAC(h.Enforcer))...)
	admin.Delete("/messages/:id", h.Messenger.Moderate)
	admin.Delete("/conversations/:id", h.Messenger.Purge)
}
