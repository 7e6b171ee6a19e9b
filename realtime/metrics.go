package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_delivered_total",
			Help: "Events handed to local subscribers",
		},
		[]string{"kind"},
	)

	eventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_dropped_total",
			Help: "Events lost because a subscriber queue was full",
		},
		[]string{"kind"},
	)

	relayReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realtime_relay_received_total",
			Help: "Events received from other instances through Redis",
		},
	)
)
