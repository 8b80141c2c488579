package tenant

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

// Resolver is the boundary to the tenant-configuration platform. It is the
// single source of truth for per-service booking limits; the booking core
// takes the resolved values as parameters and never re-derives them.
type Resolver interface {
	// ResolveServiceID canonicalizes a service identifier (UUID or slug)
	// into its UUID. The core only ever sees canonical ids.
	ResolveServiceID(ctx context.Context, businessID uuid.UUID, identifier string) (uuid.UUID, error)
	// MaxSimultaneousBookings returns the capacity ceiling for a service.
	MaxSimultaneousBookings(ctx context.Context, businessID, serviceID uuid.UUID) (int, error)
}

// Static is a fixed-capacity resolver used until the platform's tenant
// configuration service is wired in. It accepts UUID identifiers only.
type Static struct {
	Capacity int
}

func (s *Static) ResolveServiceID(ctx context.Context, businessID uuid.UUID, identifier string) (uuid.UUID, error) {
	id, err := uuid.Parse(identifier)
	if err != nil {
		return uuid.Nil, apperrors.NewValidation("invalid service identifier", "service_id")
	}
	return id, nil
}

func (s *Static) MaxSimultaneousBookings(ctx context.Context, businessID, serviceID uuid.UUID) (int, error) {
	return s.Capacity, nil
}
