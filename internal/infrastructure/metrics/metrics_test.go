package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectors_Engine(t *testing.T) {
	c := New()

	c.ActivityRecorded("good", 120)
	c.ActivityRecorded("excellent", 30)
	c.LevelUp(3)
	c.StreakTransition("extended")
	c.EngineFailure("save_profile")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.activitiesTotal.WithLabelValues("good")))
	assert.Equal(t, 150.0, testutil.ToFloat64(c.xpAwardedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.levelUpsTotal.WithLabelValues("3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitionsTotal.WithLabelValues("extended")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.engineFailures.WithLabelValues("save_profile")))
}

func TestCollectors_BusAndJobs(t *testing.T) {
	c := New()

	c.EventPublished("progress.level_up")
	c.HandlerExecuted("progress.level_up", time.Millisecond, errors.New("x"))
	c.HandlerExecuted("progress.level_up", time.Millisecond, nil)
	c.JobRun("refresh_weekly_progress", time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.eventsPublished.WithLabelValues("progress.level_up")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.handlerFailures.WithLabelValues("progress.level_up")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobRuns.WithLabelValues("refresh_weekly_progress", "success")))
}

func TestCollectors_HTTPAndHandler(t *testing.T) {
	c := New()
	c.ObserveHTTP("/api/v1/streaks/{userId}", http.MethodGet, http.StatusUnauthorized, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.authRejections.WithLabelValues("401_unauthorized")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
	assert.Contains(t, rec.Body.String(), "yogaii_xp_awarded_total")
}
