package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("JWT_ACCESS_EXPIRE", "")

	s := Load()

	assert.Equal(t, "8080", s.ServerPort)
	assert.Equal(t, []int{0, 1, 2}, s.RedisDB)
	assert.Equal(t, 15, s.JWTAccessExpire)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("REDIS_DB", "3, 4,x,5")
	t.Setenv("JWT_ACCESS_EXPIRE", "-1")
	t.Setenv("APP_ENV", "Development")

	s := Load()

	assert.Equal(t, "9000", s.ServerPort)
	assert.Equal(t, []int{3, 4, 5}, s.RedisDB)
	assert.Equal(t, 15, s.JWTAccessExpire)
	assert.True(t, s.Development())
}

func TestLoad_EventSettings(t *testing.T) {
	t.Setenv("RABBITMQ_ENABLED", "false")
	t.Setenv("EVENT_TARGET_QUEUE", "")

	s := Load()

	assert.False(t, s.RabbitMQEnabled)
	assert.Equal(t, "backoffice", s.EventTarget)
	assert.Equal(t, "api", s.EventInbound)
}
