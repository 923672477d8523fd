package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestInitializeIsIdempotent(t *testing.T) {
	assert.Same(t, Initialize(), Get())
}

func TestCounters(t *testing.T) {
	m := Get()

	before := testutil.ToFloat64(m.NotificationsDispatched.WithLabelValues("follow", "stored"))
	m.NotificationsDispatched.WithLabelValues("follow", "stored").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(m.NotificationsDispatched.WithLabelValues("follow", "stored")))

	m.WebSocketConnections.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(m.WebSocketConnections))
	m.WebSocketConnections.Set(0)
}
