package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const DefaultRelayChannel = "messenger:realtime"

type relayEnvelope struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// RedisRelay shares events between service instances. Publish delivers to the local hub
// right away and forwards to Redis; Run feeds events from other instances into the hub.
type RedisRelay struct {
	client  *redis.Client
	channel string
	hub     *Hub
	log     zerolog.Logger
	origin  string
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub, log zerolog.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{
		client:  client,
		channel: channel,
		hub:     hub,
		log:     log,
		origin:  uuid.NewString(),
	}
}

func (r *RedisRelay) Publish(ctx context.Context, ev Event) error {
	r.hub.Deliver(ev)

	payload, err := json.Marshal(relayEnvelope{Origin: r.origin, Event: ev})
	if err != nil {
		return fmt.Errorf("encode relay event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish relay event: %w", err)
	}
	return nil
}

// Run blocks until ctx is done, relaying remote events into the local hub.
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.log.Info().Str("channel", r.channel).Msg("realtime.relay.start")

	msgs := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("realtime.relay.stop")
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			ev, remote := r.inbound(msg.Payload)
			if remote {
				relayReceived.Inc()
				r.hub.Deliver(ev)
			}
		}
	}
}

// inbound decodes a relayed payload; it reports false for this instance's own echoes
// and for payloads that do not decode.
func (r *RedisRelay) inbound(payload string) (Event, bool) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.log.Warn().Err(err).Msg("realtime.relay.bad_payload")
		return Event{}, false
	}
	if env.Origin == r.origin || env.Event.Topic == "" {
		return Event{}, false
	}
	return env.Event, true
}
