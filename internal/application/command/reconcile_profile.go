package command

import (
	"context"
	"errors"
	"strings"

	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/pkg/logger"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECONCILE PROFILE
// Rebuilds a profile's engine counters from the full activity history. Repairs
// drift caused by activities written outside the engine or by profile updates
// lost to partial failures.
//
// Run it while the user is idle: an activity that is stored but not yet applied
// by a concurrent engine call would be counted twice.
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileProfileCommand selects the user to rebuild.
type ReconcileProfileCommand struct {
	UserID string

	// DryRun computes the diff without saving.
	DryRun bool
}

// ReconcileProfileResult describes what changed.
type ReconcileProfileResult struct {
	Profile    *streak.Profile
	Diff       streak.Diff
	Activities int
	Applied    bool
}

// ReconcileProfileHandler handles the ReconcileProfileCommand.
type ReconcileProfileHandler struct {
	activities     activity.Repository
	writer         *ProfileWriter
	eventPublisher shared.EventPublisher
	clock          timeutil.Clock
	log            *logger.Logger
}

// NewReconcileProfileHandler creates a new ReconcileProfileHandler.
func NewReconcileProfileHandler(
	activities activity.Repository,
	writer *ProfileWriter,
	eventPublisher shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
) *ReconcileProfileHandler {
	if eventPublisher == nil {
		eventPublisher = shared.NoopPublisher{}
	}
	if clock == nil {
		clock = timeutil.SystemClock
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ReconcileProfileHandler{
		activities:     activities,
		writer:         writer,
		eventPublisher: eventPublisher,
		clock:          clock,
		log:            log.With(logger.Component("reconcile_profile")),
	}
}

// errDryRun aborts the mutation without saving.
var errDryRun = shared.NewDomainError("streak", "reconcile", shared.ErrValidation, "dry run")

// Handle executes the command.
func (h *ReconcileProfileHandler) Handle(ctx context.Context, cmd ReconcileProfileCommand) (*ReconcileProfileResult, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return nil, shared.NewValidationError("streak", "reconcile", "user id is required")
	}

	result := &ReconcileProfileResult{}

	// History is read under the profile lock so an activity recorded
	// concurrently is either replayed here or applied after we save.
	res, err := h.writer.Mutate(ctx, userID, func(p *streak.Profile) error {
		history, err := h.activities.ListByUser(ctx, userID)
		if err != nil {
			return shared.NewStoreUnavailableError("practice", "list_activities", err)
		}
		result.Activities = len(history)

		rebuilt := streak.Rebuild(p, history, h.clock().UTC())
		result.Diff = streak.Compare(p, rebuilt)
		result.Profile = rebuilt

		if cmd.DryRun || result.Diff.IsZero() {
			return errDryRun
		}
		*p = *rebuilt
		return nil
	})
	switch {
	case errors.Is(err, errDryRun):
		return result, nil
	case err != nil:
		return nil, err
	}

	result.Profile = res.Profile
	result.Applied = true

	h.log.Info("profile reconciled",
		logger.UserID(userID),
		logger.Int("total_days_diff", result.Diff.TotalDays),
		logger.Int("xp_diff", result.Diff.XP),
	)
	if err := h.eventPublisher.Publish(shared.NewProfileReconciledEvent(userID, result.Diff.TotalDays, result.Diff.XP)); err != nil {
		h.log.Warn("failed to publish reconcile event", logger.UserID(userID), logger.Err(err))
	}
	return result, nil
}
