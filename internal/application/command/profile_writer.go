package command

import (
	"context"
	"fmt"

	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/pkg/keylock"
	"github.com/yogaii/yogaii-streak/pkg/logger"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE WRITER
// Every profile read-modify-write goes through here. It holds the per-user lock
// for the whole cycle and re-reads on optimistic version conflicts, so a
// profile is never mutated by two callers at once.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileWriterConfig contains configuration for the writer.
type ProfileWriterConfig struct {
	// DefaultWeeklyGoal is applied to profiles created on first access.
	DefaultWeeklyGoal int

	// MaxAttempts bounds re-reads after a version conflict. A conflict only
	// happens when another process wrote the profile without sharing the lock.
	MaxAttempts int
}

// DefaultProfileWriterConfig returns default configuration.
func DefaultProfileWriterConfig() ProfileWriterConfig {
	return ProfileWriterConfig{
		DefaultWeeklyGoal: streak.DefaultWeeklyGoal,
		MaxAttempts:       3,
	}
}

// ProfileWriter serializes profile mutations per user.
type ProfileWriter struct {
	profiles  streak.Repository
	locker    streak.Locker
	publisher shared.EventPublisher
	clock     timeutil.Clock
	log       *logger.Logger
	config    ProfileWriterConfig
}

// NewProfileWriter creates a ProfileWriter. A nil locker falls back to an
// in-process per-user mutex, which is enough for a single instance.
func NewProfileWriter(
	profiles streak.Repository,
	locker streak.Locker,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
	config ProfileWriterConfig,
) *ProfileWriter {
	if locker == nil {
		locker = keylock.New()
	}
	if publisher == nil {
		publisher = shared.NoopPublisher{}
	}
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Nop()
	}
	if config.DefaultWeeklyGoal == 0 {
		config.DefaultWeeklyGoal = streak.DefaultWeeklyGoal
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	return &ProfileWriter{
		profiles:  profiles,
		locker:    locker,
		publisher: publisher,
		clock:     clock,
		log:       log.With(logger.Component("profile_writer")),
		config:    config,
	}
}

// MutationResult is the outcome of Mutate.
type MutationResult struct {
	Profile *streak.Profile
	Created bool
}

// Mutate loads (or creates) the user's profile, applies fn to a copy, and
// saves it. fn may run more than once if a version conflict forces a re-read,
// so it must only touch the profile it is given.
//
// Store failures are returned as StoreUnavailable errors whose Op names the step.
// Errors returned by fn are passed through unchanged.
func (w *ProfileWriter) Mutate(ctx context.Context, userID string, fn func(p *streak.Profile) error) (*MutationResult, error) {
	unlock, err := w.locker.Lock(ctx, userID)
	if err != nil {
		return nil, shared.WrapError("streak", StepLockProfile, shared.ErrStoreUnavailable, "could not acquire profile lock", err)
	}
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= w.config.MaxAttempts; attempt++ {
		current, created, err := w.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return nil, err
		}

		err = w.profiles.Update(ctx, next)
		if err == nil {
			return &MutationResult{Profile: next, Created: created}, nil
		}
		if !shared.IsConflict(err) {
			return nil, shared.NewStoreUnavailableError("streak", StepSaveProfile, err)
		}

		lastErr = err
		w.log.Warn("profile version conflict, re-reading",
			logger.UserID(userID),
			logger.Int("attempt", attempt),
		)
	}

	return nil, shared.WrapError("streak", StepSaveProfile, shared.ErrConcurrentModification,
		fmt.Sprintf("gave up after %d conflicting attempts", w.config.MaxAttempts), lastErr)
}

// GetOrCreate returns the user's profile, creating it with defaults if absent.
// The existing-profile path does not take the lock.
func (w *ProfileWriter) GetOrCreate(ctx context.Context, userID string) (*streak.Profile, error) {
	p, err := w.profiles.GetByUser(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !shared.IsNotFound(err) {
		return nil, shared.NewStoreUnavailableError("streak", StepLoadProfile, err)
	}

	unlock, err := w.locker.Lock(ctx, userID)
	if err != nil {
		return nil, shared.WrapError("streak", StepLockProfile, shared.ErrStoreUnavailable, "could not acquire profile lock", err)
	}
	defer unlock()

	p, _, err = w.loadOrCreate(ctx, userID)
	return p, err
}

// loadOrCreate must be called with the user's lock held.
func (w *ProfileWriter) loadOrCreate(ctx context.Context, userID string) (*streak.Profile, bool, error) {
	p, err := w.profiles.GetByUser(ctx, userID)
	if err == nil {
		return p, false, nil
	}
	if !shared.IsNotFound(err) {
		return nil, false, shared.NewStoreUnavailableError("streak", StepLoadProfile, err)
	}

	p, err = streak.NewProfile(userID, w.config.DefaultWeeklyGoal, w.clock().UTC())
	if err != nil {
		return nil, false, err
	}

	if err := w.profiles.Create(ctx, p); err != nil {
		if !shared.IsAlreadyExists(err) {
			return nil, false, shared.NewStoreUnavailableError("streak", StepCreateProfile, err)
		}
		// Another instance created it without sharing our lock.
		p, err = w.profiles.GetByUser(ctx, userID)
		if err != nil {
			return nil, false, shared.NewStoreUnavailableError("streak", StepLoadProfile, err)
		}
		return p, false, nil
	}

	w.log.Info("streak profile created", logger.UserID(userID))
	if err := w.publisher.Publish(shared.NewProfileCreatedEvent(userID, p.WeeklyGoal)); err != nil {
		w.log.Warn("failed to publish profile created event", logger.UserID(userID), logger.Err(err))
	}
	return p, true, nil
}
