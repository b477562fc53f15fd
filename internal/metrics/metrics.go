package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	SuccessfulRequests *prometheus.CounterVec
	BadRequests        *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	Signups            prometheus.Counter
	Logins             *prometheus.CounterVec
	MessagesSent       prometheus.Counter
	MessagesDeleted    prometheus.Counter
	FollowRequests     prometheus.Counter
	UnfollowRequests   prometheus.Counter
	LikesToggled       *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SuccessfulRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warbler_successful_requests_total",
				Help: "Total number of successful (2xx/3xx) HTTP requests",
			},
			[]string{"route"},
		),
		BadRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warbler_unsuccessful_requests_total",
				Help: "Total number of unsuccessful (4xx/5xx) HTTP requests",
			},
			[]string{"route"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warbler_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		Signups: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warbler_signups_total",
				Help: "Total number of accounts created",
			},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warbler_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		MessagesSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warbler_messages_sent_total",
				Help: "Total number of successfully posted messages",
			},
		),
		MessagesDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warbler_messages_deleted_total",
				Help: "Total number of deleted messages",
			},
		),
		FollowRequests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warbler_follows_total",
				Help: "Total number of successful follow requests",
			},
		),
		UnfollowRequests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warbler_unfollows_total",
				Help: "Total number of successful unfollow requests",
			},
		),
		LikesToggled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warbler_likes_toggled_total",
				Help: "Like toggles by resulting state",
			},
			[]string{"state"},
		),
	}

	reg.MustRegister(
		m.SuccessfulRequests,
		m.BadRequests,
		m.RequestDuration,
		m.Signups,
		m.Logins,
		m.MessagesSent,
		m.MessagesDeleted,
		m.FollowRequests,
		m.UnfollowRequests,
		m.LikesToggled,
	)

	return m
}

// ObserveStatus counts a finished request as successful or bad.
func (m *Metrics) ObserveStatus(route string, status int) {
	if status >= 400 {
		m.BadRequests.WithLabelValues(route).Inc()
		return
	}
	m.SuccessfulRequests.WithLabelValues(route).Inc()
}
