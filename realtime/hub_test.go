package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(topic, kind string) Event {
	return Event{Topic: topic, Kind: kind, Data: json.RawMessage(`{"id":"m1"}`)}
}

func receive(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestHub_PublishReachesTopicSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sub := hub.Subscribe(ConversationTopic("c1"), 4)
	defer sub.Close()
	other := hub.Subscribe(ConversationTopic("c2"), 4)
	defer other.Close()

	require.NoError(t, hub.Publish(context.Background(), testEvent(ConversationTopic("c1"), KindInsert)))

	ev := receive(t, sub)
	assert.Equal(t, KindInsert, ev.Kind)
	assert.JSONEq(t, `{"id":"m1"}`, string(ev.Data))
	assert.Empty(t, other.Events())
}

func TestHub_SubscriptionsAreNotDeduplicated(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	first := hub.Subscribe(ConversationTopic("c1"), 4)
	defer first.Close()
	second := hub.Subscribe(ConversationTopic("c1"), 4)
	defer second.Close()

	n := hub.Deliver(testEvent(ConversationTopic("c1"), KindUpdate))

	assert.Equal(t, 2, n)
	assert.Equal(t, KindUpdate, receive(t, first).Kind)
	assert.Equal(t, KindUpdate, receive(t, second).Kind)
}

func TestHub_FullQueueDrops(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sub := hub.Subscribe("t", 1)
	defer sub.Close()

	assert.Equal(t, 1, hub.Deliver(testEvent("t", KindInsert)))
	assert.Equal(t, 0, hub.Deliver(testEvent("t", KindUpdate)))

	assert.Equal(t, KindInsert, receive(t, sub).Kind)
	assert.Empty(t, sub.Events())
}

func TestHub_NoReplayForLateSubscribers(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	hub.Deliver(testEvent("t", KindInsert))

	sub := hub.Subscribe("t", 4)
	defer sub.Close()
	assert.Empty(t, sub.Events())
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	sub := hub.Subscribe("t", 4)
	require.Equal(t, 1, hub.Subscribers("t"))

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, hub.Subscribers("t"))
	_, ok := <-sub.Events()
	assert.False(t, ok)
	<-sub.Done()

	assert.Equal(t, 0, hub.Deliver(testEvent("t", KindInsert)))
}

func TestRedisRelay_InboundSkipsOwnEcho(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	relay := NewRedisRelay(nil, "", hub, zerolog.Nop())
	assert.Equal(t, DefaultRelayChannel, relay.channel)

	own, err := json.Marshal(relayEnvelope{Origin: relay.origin, Event: testEvent("t", KindInsert)})
	require.NoError(t, err)
	_, ok := relay.inbound(string(own))
	assert.False(t, ok)

	remote, err := json.Marshal(relayEnvelope{Origin: "other-instance", Event: testEvent("t", KindUpdate)})
	require.NoError(t, err)
	ev, ok := relay.inbound(string(remote))
	require.True(t, ok)
	assert.Equal(t, "t", ev.Topic)
	assert.Equal(t, KindUpdate, ev.Kind)
	assert.JSONEq(t, `{"id":"m1"}`, string(ev.Data))

	_, ok = relay.inbound("not json")
	assert.False(t, ok)
}
