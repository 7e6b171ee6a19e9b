package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lise-messenger/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Logical Redis databases used by the service.
const (
	RedisTokens   = 0
	RedisSocketIO = 1
	RedisRealtime = 2
)

// RedisConnect opens one client per configured logical database and pings each.
func RedisConnect(ctx context.Context, cfg config.Settings, log zerolog.Logger) (map[int]*redis.Client, error) {
	clients := make(map[int]*redis.Client, len(cfg.RedisDB))

	for _, db := range cfg.RedisDB {
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       db,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			for _, c := range clients {
				_ = c.Close()
			}
			_ = client.Close()
			return nil, fmt.Errorf("connect redis db %d: %w", db, err)
		}
		clients[db] = client
	}

	log.Info().Ints("dbs", cfg.RedisDB).Msg("redis.connected")
	return clients, nil
}

// ErrNoRefreshToken is returned when no refresh token is stored for a profile.
var ErrNoRefreshToken = errors.New("refresh token not found")

// TokenStore keeps the single valid refresh token of each profile.
type TokenStore struct {
	client *redis.Client
}

func NewTokenStore(client *redis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func refreshKey(profileID string) string {
	return "refresh:" + profileID
}

func (s *TokenStore) SaveRefresh(ctx context.Context, profileID, token string, ttl time.Duration) error {
	return s.client.Set(ctx, refreshKey(profileID), token, ttl).Err()
}

func (s *TokenStore) Refresh(ctx context.Context, profileID string) (string, error) {
	token, err := s.client.Get(ctx, refreshKey(profileID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoRefreshToken
	}
	return token, err
}
