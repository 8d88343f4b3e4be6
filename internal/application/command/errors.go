// Package command contains write operations (CQRS - Commands).
package command

import (
	"errors"
	"fmt"

	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
)

// Profile steps that can fail after an activity was already stored.
const (
	StepLockProfile   = "lock_profile"
	StepLoadProfile   = "load_profile"
	StepCreateProfile = "create_profile"
	StepSaveProfile   = "save_profile"
)

// PartialFailureError reports that the activity was persisted but the profile
// was not updated. Activity holds the stored record so the caller can retry
// only the profile step via RecordActivityHandler.ApplyToProfile.
type PartialFailureError struct {
	Step     string
	Activity *activity.DailyActivity
	Err      error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("record_activity: activity %s stored but profile %s failed: %v", e.Activity.ID, e.Step, e.Err)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Err
}

// Is matches shared.ErrPartialFailure.
func (e *PartialFailureError) Is(target error) bool {
	return target == shared.ErrPartialFailure
}

// AsPartialFailure extracts a PartialFailureError from err.
func AsPartialFailure(err error) (*PartialFailureError, bool) {
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		return pf, true
	}
	return nil, false
}

// stepOf returns the Op of the outermost DomainError in err.
func stepOf(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Op
	}
	return StepSaveProfile
}
