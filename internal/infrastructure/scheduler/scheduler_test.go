package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name    string
	runs    atomic.Int32
	err     error
	block   chan struct{}
	started chan struct{}
}

func (j *countingJob) Name() string        { return j.name }
func (j *countingJob) Description() string { return "test job" }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.started != nil {
		j.started <- struct{}{}
	}
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return j.err
}

type panicJob struct{}

func (panicJob) Name() string        { return "panics" }
func (panicJob) Description() string { return "" }

func (panicJob) Run(ctx context.Context) error {
	panic("boom")
}

type recorder struct {
	mu   sync.Mutex
	runs map[string]int
	errs int
}

func (r *recorder) JobRun(job string, d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.runs == nil {
		r.runs = map[string]int{}
	}
	r.runs[job]++
	if err != nil {
		r.errs++
	}
}

func TestScheduler_Register(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())

	require.NoError(t, s.Register(&countingJob{name: "a"}, Every(time.Hour)))
	assert.ErrorIs(t, s.Register(&countingJob{name: "a"}, Every(time.Hour)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, Every(time.Hour)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&countingJob{name: "b"}, nil), ErrNilSchedule)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "@every 1h0m0s", jobs[0].Schedule)
	assert.True(t, jobs[0].Enabled)
}

func TestScheduler_RunNow(t *testing.T) {
	rec := &recorder{}
	cfg := DefaultSchedulerConfig()
	cfg.Recorder = rec
	s := NewScheduler(cfg)

	ok := &countingJob{name: "ok"}
	bad := &countingJob{name: "bad", err: errors.New("failed")}
	require.NoError(t, s.Register(ok, Every(time.Hour)))
	require.NoError(t, s.Register(bad, Every(time.Hour)))
	require.NoError(t, s.Register(panicJob{}, Every(time.Hour)))

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)
	assert.Equal(t, int32(1), ok.runs.Load())

	res, err = s.RunNow(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, res.Success)

	_, err = s.RunNow(context.Background(), "panics")
	assert.ErrorIs(t, err, ErrJobPanicked)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	assert.Equal(t, 1, rec.runs["ok"])
	assert.Equal(t, 2, rec.errs)
	assert.Len(t, s.GetHistory(0), 3)
	assert.Len(t, s.GetHistory(1), 1)

	for _, info := range s.ListJobs() {
		if info.Name == "bad" {
			assert.Equal(t, int64(1), info.FailCount)
			require.NotNil(t, info.LastResult)
		}
	}
}

func TestScheduler_StartRunsDueJobs(t *testing.T) {
	cfg := DefaultSchedulerConfig()
	cfg.TickInterval = 5 * time.Millisecond
	s := NewScheduler(cfg)

	job := &countingJob{name: "tick"}
	require.NoError(t, s.Register(job, Every(10*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return job.runs.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer s.cancel()

	job := &countingJob{name: "slow", block: make(chan struct{}), started: make(chan struct{}, 4)}
	require.NoError(t, s.Register(job, Every(time.Millisecond)))

	now := time.Now().Add(time.Second)
	s.dispatchDue(now)
	<-job.started

	s.dispatchDue(now.Add(time.Second))
	assert.Equal(t, int32(1), job.runs.Load())

	close(job.block)
	s.wg.Wait()

	s.dispatchDue(now.Add(2 * time.Second))
	s.wg.Wait()
	assert.Equal(t, int32(2), job.runs.Load())
}

func TestScheduler_DisabledJobNotDispatched(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	s.ctx, s.cancel = context.WithCancel(context.Background())
	defer s.cancel()

	job := &countingJob{name: "off"}
	require.NoError(t, s.Register(job, Every(time.Millisecond)))
	require.NoError(t, s.DisableJob("off"))

	s.dispatchDue(time.Now().Add(time.Hour))
	s.wg.Wait()
	assert.Equal(t, int32(0), job.runs.Load())

	require.NoError(t, s.EnableJob("off"))
	assert.ErrorIs(t, s.EnableJob("nope"), ErrJobNotFound)
}

func TestParseCron(t *testing.T) {
	tests := []struct {
		name string
		expr string
		from time.Time
		want time.Time
	}{
		{
			name: "hourly at minute 5",
			expr: "5 * * * *",
			from: time.Date(2024, 3, 4, 10, 5, 0, 0, time.UTC),
			want: time.Date(2024, 3, 4, 11, 5, 0, 0, time.UTC),
		},
		{
			name: "daily at 03:30",
			expr: "30 3 * * *",
			from: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 5, 3, 30, 0, 0, time.UTC),
		},
		{
			name: "monday midnight",
			expr: "0 0 * * 1",
			from: time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "every 15 minutes",
			expr: "*/15 * * * *",
			from: time.Date(2024, 3, 4, 10, 16, 30, 0, time.UTC),
			want: time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC),
		},
		{
			name: "list and range",
			expr: "0 9-10,18 * * 1-5",
			from: time.Date(2024, 3, 8, 18, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "year rollover",
			expr: "0 0 1 1 *",
			from: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := ParseCron(tt.expr, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cs.Next(tt.from))
			assert.Equal(t, tt.expr, cs.String())
		})
	}
}

func TestParseCron_Location(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	cs := MustParseCron("0 0 * * *", loc)

	next := cs.Next(time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 3, 4, 19, 0, 0, 0, time.UTC), next.UTC())
}

func TestParseCron_Invalid(t *testing.T) {
	for _, expr := range []string{"", "* * * *", "60 * * * *", "* 24 * * *", "*/0 * * * *", "5-1 * * * *", "a * * * *", "* * 0 * *"} {
		_, err := ParseCron(expr, nil)
		assert.Error(t, err, expr)
	}
	assert.Panics(t, func() { MustParseCron("bad", nil) })
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("1h", nil)
	require.NoError(t, err)
	assert.Equal(t, "@every 1h0m0s", s.String())

	s, err = ParseSchedule("@every 15m", nil)
	require.NoError(t, err)
	assert.IsType(t, &IntervalSchedule{}, s)

	s, err = ParseSchedule("30 3 * * *", time.UTC)
	require.NoError(t, err)
	from := time.Date(2024, 3, 6, 4, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 7, 3, 30, 0, 0, time.UTC), s.Next(from))

	_, err = ParseSchedule("-5m", nil)
	assert.Error(t, err)

	_, err = ParseSchedule("every hour", nil)
	assert.Error(t, err)
}
