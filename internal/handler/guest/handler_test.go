package guest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

type fakeGuestService struct {
	appointment *model.Appointment
	err         error
	cancels     int
}

func (f *fakeGuestService) GuestView(ctx context.Context, bookingID, rawToken string) (*model.Appointment, error) {
	return f.appointment, f.err
}

func (f *fakeGuestService) GuestCancel(ctx context.Context, bookingID, rawToken string) (*model.Appointment, error) {
	f.cancels++
	return f.appointment, f.err
}

func newGuestRouter(svc *fakeGuestService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler.RegisterValidations()

	m := metrics.NewMetrics(prometheus.NewRegistry(), "booking", "test")
	limiter := middleware.NewTokenRateLimiter(600, 100, m)
	h := NewHandler(svc, limiter)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestViewAppointment(t *testing.T) {
	svc := &fakeGuestService{appointment: &model.Appointment{BookingID: "BK7QW2ND"}}
	r := newGuestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/manage/BK7QW2ND?token=abc", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestViewMissingToken(t *testing.T) {
	svc := &fakeGuestService{appointment: &model.Appointment{}}
	r := newGuestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/manage/BK7QW2ND", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestViewMalformedBookingCode(t *testing.T) {
	svc := &fakeGuestService{appointment: &model.Appointment{}}
	r := newGuestRouter(svc)

	// Lowercase and wrong length both fail the booking code format and get
	// the same 401 as a bad token.
	for _, code := range []string{"bk7qw2nd", "SHORT", "BK7QW2NDX"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/manage/"+code+"?token=abc", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "code %q", code)
	}
}

func TestCancelInvalidToken(t *testing.T) {
	svc := &fakeGuestService{err: apperrors.NewInvalidToken()}
	r := newGuestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/manage/BK7QW2ND/cancel?token=bad", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 1, svc.cancels)
}
