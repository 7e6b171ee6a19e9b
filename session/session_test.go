package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lise-messenger/utils"
)

func TestCurrentUserID(t *testing.T) {
	id, err := CurrentUserID(WithProfile(context.Background(), " p-1 "))
	require.NoError(t, err)
	assert.Equal(t, "p-1", id)
}

func TestCurrentUserID_NoSession(t *testing.T) {
	_, err := CurrentUserID(context.Background())
	assert.ErrorIs(t, err, utils.ErrAuthenticationRequired)

	_, err = CurrentUserID(WithProfile(context.Background(), "  "))
	assert.ErrorIs(t, err, utils.ErrAuthenticationRequired)
}
