// Package session carries the acting profile identity through a request context.
package session

import (
	"context"
	"strings"

	"lise-messenger/utils"
)

type profileKey struct{}

// WithProfile returns a copy of ctx that carries profileID as the acting identity.
func WithProfile(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileKey{}, strings.TrimSpace(profileID))
}

// CurrentUserID returns the acting profile id or utils.ErrAuthenticationRequired.
func CurrentUserID(ctx context.Context) (string, error) {
	if ctx == nil {
		return "", utils.ErrAuthenticationRequired
	}
	id, _ := ctx.Value(profileKey{}).(string)
	if id == "" {
		return "", utils.ErrAuthenticationRequired
	}
	return id, nil
}
