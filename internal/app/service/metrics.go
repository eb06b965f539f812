package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Committed opens and clicks, by kind.
	eventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailpulse",
			Name:      "events_recorded_total",
			Help:      "Engagement events committed to the store.",
		},
		[]string{"kind"},
	)

	// Recording attempts that failed and were swallowed, by kind.
	eventFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailpulse",
			Name:      "event_record_failures_total",
			Help:      "Engagement events that could not be recorded.",
		},
		[]string{"kind"},
	)

	// Geolocation outcomes: skipped, cached, resolved, failed.
	geoLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailpulse",
			Name:      "geolocation_lookups_total",
			Help:      "Geolocation lookups by outcome.",
		},
		[]string{"result"},
	)

	// Outgoing emails: sent, failed.
	emailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mailpulse",
			Name:      "emails_sent_total",
			Help:      "Tracked emails handed to the mail sender, by outcome.",
		},
		[]string{"result"},
	)
)
