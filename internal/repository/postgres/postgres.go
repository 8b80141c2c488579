package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/booking-api/internal/repository"
)

type reservationRepository struct {
	BaseRepository
}

type appointmentRepository struct {
	BaseRepository
}

type auditRepository struct {
	BaseRepository
}

func NewReservationRepository(db *sqlx.DB) repository.ReservationRepository {
	return &reservationRepository{BaseRepository: NewBaseRepository(db)}
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{BaseRepository: NewBaseRepository(db)}
}

func NewAuditRepository(db *sqlx.DB) repository.AuditRepository {
	return &auditRepository{BaseRepository: NewBaseRepository(db)}
}
