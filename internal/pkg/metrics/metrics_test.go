package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	m.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := New("stay_test")

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/v1/properties/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/v1/properties/abc", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	body := scrape(t, m)
	assert.Contains(t, body, `stay_test_http_requests_total{method="GET",route="/v1/properties/:id",status="200"} 3`)
}

func TestBookingCounters(t *testing.T) {
	m := New("stay_test")
	m.BookingCreated("pending")
	m.BookingCreated("pending")
	m.BookingConflict("dates_unavailable")
	m.BookingTransitioned("pending", "confirmed")
	m.EventPublishFailed()

	body := scrape(t, m)
	assert.Contains(t, body, `stay_test_bookings_created_total{status="pending"} 2`)
	assert.Contains(t, body, `stay_test_booking_conflicts_total{reason="dates_unavailable"} 1`)
	assert.Contains(t, body, `stay_test_booking_transitions_total{from="pending",to="confirmed"} 1`)
	assert.Contains(t, body, "stay_test_event_publish_failures_total 1")
}
