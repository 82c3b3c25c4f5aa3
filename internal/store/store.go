// Package store provides persistence for the current platform session.
package store

import (
	"context"

	"github.com/nbadran/instadm/internal/domain"
)

// CurrentSlot is the single logical session key. The engine is
// single-tenant: one live session per process, one persisted record.
const CurrentSlot = "current"

// Repository persists the session blob for the current slot.
type Repository interface {
	// GetSession retrieves the persisted session, or nil if absent.
	GetSession(ctx context.Context) (*domain.StoredSession, error)

	// SaveSession writes the session record for the current slot,
	// replacing any previous one. Blobs are sanitized before the write.
	SaveSession(ctx context.Context, s *domain.StoredSession) error

	// DeleteSession removes the persisted record. Deleting an absent
	// record is not an error.
	DeleteSession(ctx context.Context) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
