package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

// Service writes the appointment audit trail. A failed write never aborts
// the state change that triggered it, but it is alarmed loudly: the trail
// is a correctness-adjacent guarantee for the business.
type Service struct {
	repo    repository.AuditRepository
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewService(repo repository.AuditRepository, logger *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{repo: repo, logger: logger, metrics: m}
}

// Record persists one entry. Errors are swallowed after alarming.
func (s *Service) Record(ctx context.Context, entry *model.AuditLogEntry) {
	if err := s.repo.Create(ctx, entry); err != nil {
		s.metrics.AuditWriteFailures.Inc()
		s.logger.ZL.Error().
			Err(err).
			Str("appointment_id", entry.AppointmentID.String()).
			Str("action", entry.Action).
			Msg("AUDIT WRITE FAILED: state change persisted without audit entry")
	}
}

func (s *Service) List(ctx context.Context, appointmentID uuid.UUID) ([]*model.AuditLogEntry, error) {
	return s.repo.ListByAppointment(ctx, appointmentID)
}

// BackfillActor attributes the latest null-actor entry to an authenticated
// actor. Best-effort; a miss is not an error.
func (s *Service) BackfillActor(ctx context.Context, appointmentID, actorID uuid.UUID, actorEmail string) {
	updated, err := s.repo.BackfillActor(ctx, appointmentID, actorID, actorEmail)
	if err != nil {
		s.logger.Error(err, "failed to back-fill audit actor")
		return
	}
	if updated {
		s.logger.Debug("back-filled audit actor",
			"appointment_id", appointmentID.String())
	}
}
