package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"lise-messenger/messenger"
)

// Me returns the caller's own profile.
func (a *Auth) Me(c *fiber.Ctx) error {
	profile, err := a.profile(c)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return failure(c, fiber.StatusNotFound, "profile not found")
	}
	if err != nil {
		return internalError(c)
	}

	return success(c, fiber.Map{
		"id":         profile.ID,
		"created":    profile.CreatedAt.Unix(),
		"username":   profile.Username,
		"full_name":  profile.FullName,
		"avatar_url": profile.AvatarURL,
		"email":      profile.Email,
		"role":       profile.Role,
		"otp":        profile.OtpEnabled,
	})
}

// Profiles serves the profile directory used to pick conversation participants.
type Profiles struct {
	svc *messenger.Service
}

func NewProfiles(svc *messenger.Service) *Profiles {
	return &Profiles{svc: svc}
}

func (p *Profiles) Search(c *fiber.Ctx) error {
	profiles, err := p.svc.SearchProfiles(c.UserContext(), c.Query("q"), c.QueryInt("limit"))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, profiles)
}

func (p *Profiles) ByUsername(c *fiber.Ctx) error {
	profile, err := p.svc.FindProfileByUsername(c.UserContext(), c.Params("username"))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, profile)
}

func (p *Profiles) ByID(c *fiber.Ctx) error {
	profile, err := p.svc.GetProfile(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return success(c, profile)
}
