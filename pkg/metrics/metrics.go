// Package metrics holds the Prometheus collectors for the session lifecycle.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Profile resolution outcomes.
const (
	OutcomeFound   = "found"
	OutcomeCreated = "created"
	OutcomeFailed  = "failed"
)

// Metrics holds Prometheus collectors for session state and auth actions.
type Metrics struct {
	SessionActions     *prometheus.CounterVec
	AuthEvents         *prometheus.CounterVec
	DroppedEvents      *prometheus.CounterVec
	ProfileResolutions *prometheus.CounterVec
	ActionDuration     *prometheus.HistogramVec
	ActionFailures     *prometheus.CounterVec
	Authenticated      prometheus.Gauge
	StaleDispatches    prometheus.Counter
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SessionActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storytime_session_actions_total",
			Help: "Total number of actions applied to the session store",
		}, []string{"kind"}),
		AuthEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storytime_auth_events_total",
			Help: "Total number of auth provider events handled by the reconciler",
		}, []string{"kind"}),
		DroppedEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storytime_auth_events_dropped_total",
			Help: "Total number of auth provider events lost by a slow handler",
		}, []string{"kind"}),
		ProfileResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storytime_profile_resolutions_total",
			Help: "Total number of profile fetch-or-create round trips by outcome",
		}, []string{"outcome"}),
		ActionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storytime_action_duration_seconds",
			Help:    "Duration of user-facing auth actions",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"action"}),
		ActionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "storytime_action_failures_total",
			Help: "Total number of failed user-facing auth actions",
		}, []string{"action"}),
		Authenticated: factory.NewGauge(prometheus.GaugeOpts{
			Name: "storytime_session_authenticated",
			Help: "1 while a user is signed in",
		}),
		StaleDispatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "storytime_stale_initializations_total",
			Help: "Initializations discarded because a logout happened meanwhile",
		}),
	}
}

func (m *Metrics) ActionApplied(kind string, authenticated bool) {
	m.SessionActions.WithLabelValues(kind).Inc()
	if authenticated {
		m.Authenticated.Set(1)
	} else {
		m.Authenticated.Set(0)
	}
}

func (m *Metrics) EventHandled(kind string) {
	m.AuthEvents.WithLabelValues(kind).Inc()
}

// EventDropped counts an auth event a handler never received.
func (m *Metrics) EventDropped(kind string) {
	m.DroppedEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) ProfileResolved(outcome string) {
	m.ProfileResolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) InitializationDiscarded() {
	m.StaleDispatches.Inc()
}

// ActionFinished records an action's duration and, when err is non-nil,
// a failure.
func (m *Metrics) ActionFinished(action string, started time.Time, err error) {
	m.ActionDuration.WithLabelValues(action).Observe(time.Since(started).Seconds())
	if err != nil {
		m.ActionFailures.WithLabelValues(action).Inc()
	}
}
