package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yogaii/yogaii-streak/config"
	"github.com/yogaii/yogaii-streak/internal/application/command"
	"github.com/yogaii/yogaii-streak/internal/application/query"
	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/internal/interface/http/handlers"
	"github.com/yogaii/yogaii-streak/pkg/logger"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// handleRoot returns basic API information.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"name":    "Yogaii Streak API",
		"version": s.config.Version,
		"status":  "running",
	})
}

// handleHealth returns detailed health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := s.deps.HealthChecker.Check(ctx)

	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, health)
}

// handleReady reports whether every dependency answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	health := s.deps.HealthChecker.Check(ctx)
	if !health.Ready {
		writeJSONError(w, r, http.StatusServiceUnavailable, "not_ready", health.Message)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive is a liveness probe; it never touches dependencies.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": s.Uptime().String(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVITY ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// RecordActivityRequest is the body of POST /api/v1/activities.
type RecordActivityRequest struct {
	// UserID defaults to the token subject.
	UserID string `json:"userId"`

	// Date is YYYY-MM-DD or RFC 3339.
	Date     string   `json:"date"`
	Duration int      `json:"duration"`
	Poses    []string `json:"poses"`
	Quality  string   `json:"quality"`
}

// RecordActivityResponse is returned after a session was stored and applied.
type RecordActivityResponse struct {
	Activity       *activity.DailyActivity `json:"activity"`
	Streak         *streak.Profile         `json:"streak"`
	Transition     streak.Transition       `json:"transition"`
	LeveledUp      bool                    `json:"leveledUp"`
	PreviousLevel  int                     `json:"previousLevel"`
	ProfileCreated bool                    `json:"profileCreated"`
}

func (s *Server) handleRecordActivity(w http.ResponseWriter, r *http.Request) {
	if s.deps.RecordActivity == nil {
		writeJSONError(w, r, http.StatusNotImplemented, "not_implemented", "Activity recording is not configured")
		return
	}

	var req RecordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	var date time.Time
	if req.Date != "" {
		d, err := timeutil.ParseDate(req.Date)
		if err != nil {
			writeJSONError(w, r, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		date = d
	}

	res, err := s.deps.RecordActivity.Handle(r.Context(), command.RecordActivityCommand{
		UserID:          userIDOr(req.UserID, r),
		Date:            date,
		DurationMinutes: req.Duration,
		Poses:           req.Poses,
		Quality:         req.Quality,
		CorrelationID:   getRequestID(r.Context()),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, RecordActivityResponse{
		Activity:       res.Activity,
		Streak:         res.Profile,
		Transition:     res.Transition,
		LeveledUp:      res.LeveledUp,
		PreviousLevel:  res.PreviousLevel,
		ProfileCreated: res.ProfileCreated,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// STREAK ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.GetStreak.Handle(r.Context(), query.GetStreakQuery{UserID: r.PathValue("userId")})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// handleGetWeeklyActivities accepts an optional ?date= selecting the week.
func (s *Server) handleGetWeeklyActivities(w http.ResponseWriter, r *http.Request) {
	q := query.GetWeeklyActivitiesQuery{UserID: r.PathValue("userId")}
	if raw := r.URL.Query().Get("date"); raw != "" {
		at, err := timeutil.ParseDate(raw)
		if err != nil {
			writeJSONError(w, r, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		if timeutil.IsBareDate(raw) {
			q.Date = at
		} else {
			q.At = at
		}
	}

	week, err := s.deps.GetWeeklyActivities.Handle(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, week)
}

func (s *Server) handleGetAchievements(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.GetAchievements.Handle(r.Context(), query.GetAchievementsQuery{UserID: r.PathValue("userId")})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (s *Server) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if !s.featureEnabled(config.FeatureDashboard, userID) {
		writeJSONError(w, r, http.StatusNotFound, "feature_disabled", "Dashboard is not enabled")
		return
	}

	dash, err := s.deps.GetDashboard.Handle(r.Context(), query.GetDashboardQuery{UserID: userID})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dash)
}

// UpdateWeeklyGoalRequest is the body of PUT .../weekly-goal.
type UpdateWeeklyGoalRequest struct {
	WeeklyGoal int `json:"weeklyGoal"`
}

func (s *Server) handleUpdateWeeklyGoal(w http.ResponseWriter, r *http.Request) {
	var req UpdateWeeklyGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_body", "Request body must be valid JSON")
		return
	}

	p, err := s.deps.UpdateWeeklyGoal.Handle(r.Context(), command.UpdateWeeklyGoalCommand{
		UserID:     r.PathValue("userId"),
		WeeklyGoal: req.WeeklyGoal,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, p)
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN ENDPOINTS
// ══════════════════════════════════════════════════════════════════════════════

// ReconcileResponse reports the drift between stored and rebuilt counters.
type ReconcileResponse struct {
	Profile    *streak.Profile `json:"profile"`
	Diff       DiffDTO         `json:"diff"`
	Drifted    bool            `json:"drifted"`
	Activities int             `json:"activities"`
	Applied    bool            `json:"applied"`
}

// DiffDTO is rebuilt minus stored.
type DiffDTO struct {
	TotalDays     int `json:"totalDays"`
	XP            int `json:"xp"`
	CurrentStreak int `json:"currentStreak"`
	LongestStreak int `json:"longestStreak"`
}

// handleReconcileProfile rebuilds a profile from its activities. ?dryRun=true
// only reports the diff.
func (s *Server) handleReconcileProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if s.deps.ReconcileProfile == nil || !s.featureEnabled(config.FeatureReconcileAPI, userID) {
		writeJSONError(w, r, http.StatusNotFound, "feature_disabled", "Reconciliation is not enabled")
		return
	}

	dryRun := false
	if raw := r.URL.Query().Get("dryRun"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSONError(w, r, http.StatusBadRequest, "invalid_query", "dryRun must be a boolean")
			return
		}
		dryRun = v
	}

	res, err := s.deps.ReconcileProfile.Handle(r.Context(), command.ReconcileProfileCommand{UserID: userID, DryRun: dryRun})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, ReconcileResponse{
		Profile:    res.Profile,
		Diff:       DiffDTO(res.Diff),
		Drifted:    !res.Diff.IsZero(),
		Activities: res.Activities,
		Applied:    res.Applied,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps application errors onto HTTP statuses. A partial
// failure carries the stored activity so the client does not resubmit it.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if pf, ok := command.AsPartialFailure(err); ok {
		logger.FromContext(r.Context()).Error("activity stored but profile not updated",
			logger.ActivityID(pf.Activity.ID),
			logger.UserID(pf.Activity.UserID),
			logger.String("step", pf.Step),
			logger.Err(pf.Err),
		)
		writeJSONErrorWithData(w, r, http.StatusServiceUnavailable, &APIError{
			Code:    "partial_failure",
			Message: "Activity was saved but the streak could not be updated",
			Details: pf.Step,
		}, map[string]interface{}{"activity": pf.Activity})
		return
	}

	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed", logger.Err(err))
		message = "An unexpected error occurred"
	}
	writeJSONError(w, r, status, code, message)
}

func statusFor(err error) (int, string) {
	switch {
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, "already_exists"
	case shared.IsConflict(err), errors.Is(err, shared.ErrLockNotAcquired):
		return http.StatusConflict, "conflict"
	case shared.IsStoreUnavailable(err):
		return http.StatusServiceUnavailable, "store_unavailable"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// userIDOr returns id, or the authenticated subject when id is blank.
func userIDOr(id string, r *http.Request) string {
	if strings.TrimSpace(id) != "" {
		return id
	}
	return handlers.SubjectFromContext(r.Context())
}

func (s *Server) featureEnabled(name, userID string) bool {
	if s.deps.Features == nil {
		return true
	}
	return s.deps.Features.IsEnabled(name, userID)
}
