package streak

import (
	"context"
)

// Repository defines the interface for streak profile persistence.
type Repository interface {
	// GetByUser returns the user's profile or shared.ErrProfileNotFound.
	GetByUser(ctx context.Context, userID string) (*Profile, error)

	// Create stores a new profile. It returns shared.ErrProfileAlreadyExists if
	// the user already has one.
	Create(ctx context.Context, p *Profile) error

	// Update replaces the stored profile. The write succeeds only if the stored
	// version equals p.Version; on success p.Version is incremented. A mismatch
	// returns shared.ErrProfileVersionStale.
	Update(ctx context.Context, p *Profile) error

	// ListUserIDs returns all users that have a profile. Used by batch jobs.
	ListUserIDs(ctx context.Context) ([]string, error)
}

// Locker serializes profile mutations per user.
type Locker interface {
	// Lock blocks until the caller holds the user's lock or ctx is done.
	// The returned function releases the lock.
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}
