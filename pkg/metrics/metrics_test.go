package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storytime/pkg/metrics"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ActionApplied("LOGIN_SUCCESS", true)
	m.ActionApplied("LOGIN_SUCCESS", true)
	assert.InDelta(t, 2, testutil.ToFloat64(m.SessionActions.WithLabelValues("LOGIN_SUCCESS")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Authenticated), 0)

	m.ActionApplied("LOGOUT", false)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Authenticated), 0)

	m.EventHandled("SIGNED_IN")
	m.ProfileResolved(metrics.OutcomeCreated)
	m.InitializationDiscarded()
	m.EventDropped("SIGNED_OUT")
	assert.InDelta(t, 1, testutil.ToFloat64(m.AuthEvents.WithLabelValues("SIGNED_IN")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.ProfileResolutions.WithLabelValues(metrics.OutcomeCreated)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.StaleDispatches), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.DroppedEvents.WithLabelValues("SIGNED_OUT")), 0)

	m.ActionFinished("login", time.Now(), nil)
	m.ActionFinished("login", time.Now(), errors.New("boom"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.ActionFailures.WithLabelValues("login")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.ActionDuration))

	count, err := testutil.GatherAndCount(reg, "storytime_action_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNew_DuplicateRegistrationPanics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics.New(reg)
	assert.Panics(t, func() { metrics.New(reg) })
}
