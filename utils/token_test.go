package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTokens = TokenConfig{
	AccessKey:     "access-secret",
	AccessExpire:  15 * time.Minute,
	RefreshKey:    "refresh-secret",
	RefreshExpire: time.Hour,
}

func TestGenerateTokens_RoundTrip(t *testing.T) {
	tokens, err := GenerateTokens(testTokens, "p1", true)
	require.NoError(t, err)

	meta, err := CheckAndExtractTokenMetadata(tokens.Access, testTokens.AccessKey)
	require.NoError(t, err)
	assert.Equal(t, "p1", meta.Id)
	assert.True(t, meta.Otp)
	assert.Greater(t, meta.Exp, time.Now().Unix())

	meta, err = CheckAndExtractTokenMetadata(tokens.Refresh, testTokens.RefreshKey)
	require.NoError(t, err)
	assert.Equal(t, "p1", meta.Id)
}

func TestCheckAndExtractTokenMetadata_Rejects(t *testing.T) {
	tokens, err := GenerateTokens(testTokens, "p1", false)
	require.NoError(t, err)

	_, err = CheckAndExtractTokenMetadata(tokens.Access, testTokens.RefreshKey)
	assert.Error(t, err)

	expired := testTokens
	expired.AccessExpire = -time.Minute
	old, err := GenerateTokens(expired, "p1", false)
	require.NoError(t, err)
	_, err = CheckAndExtractTokenMetadata(old.Access, testTokens.AccessKey)
	assert.Error(t, err)

	_, err = CheckAndExtractTokenMetadata("garbage", testTokens.AccessKey)
	assert.Error(t, err)
}
