package messenger

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"lise-messenger/model"
	"lise-messenger/utils"
)

const maxProfileSearch = 20

func (s *Service) GetProfile(ctx context.Context, id string) (model.PublicProfile, error) {
	return s.findProfile(ctx, "id = ?", strings.TrimSpace(id))
}

func (s *Service) FindProfileByUsername(ctx context.Context, username string) (model.PublicProfile, error) {
	return s.findProfile(ctx, "LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username)))
}

func (s *Service) findProfile(ctx context.Context, cond, value string) (model.PublicProfile, error) {
	var p model.PublicProfile
	if value == "" {
		return p, utils.InvalidArgument("profile lookup value is required")
	}
	err := s.db.WithContext(ctx).Where(cond, value).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p, utils.NotFound("profile not found")
	}
	if err != nil {
		return p, s.backendFailed("load profile", err)
	}
	return p, nil
}

// SearchProfiles matches a case-insensitive prefix of username or full name.
func (s *Service) SearchProfiles(ctx context.Context, query string, limit int) ([]model.PublicProfile, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []model.PublicProfile{}, nil
	}
	if limit <= 0 || limit > maxProfileSearch {
		limit = maxProfileSearch
	}

	pattern := escapeLike(query) + "%"
	profiles := make([]model.PublicProfile, 0, limit)
	err := s.db.WithContext(ctx).
		Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(full_name) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("username").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, s.backendFailed("search profiles", err)
	}
	return profiles, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
