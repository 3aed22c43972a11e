package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountsRequestsAndErrors(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/tickets/:id", "GET", 200, 5*time.Millisecond)
	m.RecordRequest("/api/tickets/:id", "GET", 200, 7*time.Millisecond)
	m.RecordError("/api/tickets/:id", "GET", "NOT_FOUND")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/tickets/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("GET", "/api/tickets/:id", "NOT_FOUND")))
}

func TestMetrics_HubCounters(t *testing.T) {
	m := NewMetrics()
	m.ClientConnected()
	m.ClientConnected()
	m.ClientDisconnected()
	m.EnvelopesDelivered("TICKET_CREATED", 3)
	m.EnvelopesDropped("TICKET_CREATED", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.wsClients))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.envelopes.WithLabelValues("TICKET_CREATED", "delivered")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("/", "GET", 200, time.Millisecond)
		m.RecordError("/", "GET", "X")
		m.RecordBotInteraction("create", "ok")
		m.ClientConnected()
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordBotInteraction("ticket create", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "helpdesk_bot_interactions_total")
}
