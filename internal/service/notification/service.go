package notification

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/booking-api/internal/config"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/messaging"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// Event types published on the booking events channel.
const (
	EventAppointmentCreated       = "appointment.created"
	EventAppointmentCanceled      = "appointment.canceled"
	EventAppointmentStatusChanged = "appointment.status_changed"
)

const eventsChannel = "bookings.events"

// Dispatcher delivers appointment lifecycle notifications. Delivery is
// best-effort: failures are logged and counted, never propagated to the
// booking path.
type Dispatcher interface {
	Dispatch(ctx context.Context, eventType string, appointment *model.Appointment)
}

type EventPayload struct {
	Appointment *model.Appointment `json:"appointment"`
}

type Service struct {
	broker  messaging.Broker
	smtp    config.SMTPConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(broker messaging.Broker, smtp config.SMTPConfig, logger *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{broker: broker, smtp: smtp, logger: logger, metrics: m}
}

func (s *Service) Dispatch(ctx context.Context, eventType string, appointment *model.Appointment) {
	msg := messaging.Message{
		Type:       eventType,
		OccurredAt: time.Now(),
		Payload:    EventPayload{Appointment: appointment},
	}

	if err := s.broker.Publish(ctx, eventsChannel, msg); err != nil {
		s.metrics.NotificationFailures.WithLabelValues(eventType).Inc()
		s.logger.Error(err, "failed to publish booking event",
			"event_type", eventType,
			"booking_id", appointment.BookingID)
	} else {
		s.metrics.NotificationsDispatched.WithLabelValues(eventType).Inc()
	}

	if s.smtp.Enabled && appointment.GuestEmail != nil {
		if err := s.sendGuestEmail(eventType, appointment); err != nil {
			s.metrics.NotificationFailures.WithLabelValues(eventType).Inc()
			s.logger.Error(err, "failed to send guest email",
				"booking_id", appointment.BookingID)
		}
	}
}

func (s *Service) sendGuestEmail(eventType string, appointment *model.Appointment) error {
	subject, body := guestEmailContent(eventType, appointment)
	if subject == "" {
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.smtp.From)
	m.SetHeader("To", *appointment.GuestEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.smtp.Host, s.smtp.Port, s.smtp.Username, s.smtp.Password)
	return d.DialAndSend(m)
}

func guestEmailContent(eventType string, appointment *model.Appointment) (string, string) {
	when := appointment.SlotStart.Format(time.RFC1123)
	switch eventType {
	case EventAppointmentCreated:
		return fmt.Sprintf("Booking %s confirmed", appointment.BookingID),
			fmt.Sprintf("Your appointment is confirmed for %s.", when)
	case EventAppointmentCanceled:
		return fmt.Sprintf("Booking %s canceled", appointment.BookingID),
			fmt.Sprintf("Your appointment on %s has been canceled.", when)
	case EventAppointmentStatusChanged:
		return fmt.Sprintf("Booking %s updated", appointment.BookingID),
			fmt.Sprintf("Your appointment on %s is now %s.", when, appointment.Status)
	}
	return "", ""
}
