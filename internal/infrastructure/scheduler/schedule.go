package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// IntervalSchedule runs a job at a fixed interval.
type IntervalSchedule struct {
	Interval time.Duration
}

// Every returns an IntervalSchedule.
func Every(interval time.Duration) *IntervalSchedule {
	return &IntervalSchedule{Interval: interval}
}

func (s *IntervalSchedule) Next(t time.Time) time.Time { return t.Add(s.Interval) }
func (s *IntervalSchedule) String() string             { return "@every " + s.Interval.String() }

// CronSchedule is a five-field cron expression: minute hour day-of-month
// month day-of-week. Fields accept *, n, n-m, a,b,c and */s or n-m/s.
// When both day fields are restricted a time must match both.
type CronSchedule struct {
	raw      string
	loc      *time.Location
	minutes  []int
	hours    []int
	days     []int
	months   []int
	weekdays []int
}

// ParseCron parses expr. Times are evaluated in loc (UTC when nil).
func ParseCron(expr string, loc *time.Location) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron %q: expected 5 fields, got %d", expr, len(fields))
	}
	if loc == nil {
		loc = time.UTC
	}

	specs := []struct {
		name     string
		min, max int
		dst      *[]int
	}{
		{"minute", 0, 59, nil},
		{"hour", 0, 23, nil},
		{"day", 1, 31, nil},
		{"month", 1, 12, nil},
		{"weekday", 0, 6, nil},
	}

	cs := &CronSchedule{raw: expr, loc: loc}
	specs[0].dst, specs[1].dst, specs[2].dst, specs[3].dst, specs[4].dst =
		&cs.minutes, &cs.hours, &cs.days, &cs.months, &cs.weekdays

	for i, spec := range specs {
		vals, err := parseCronField(fields[i], spec.min, spec.max)
		if err != nil {
			return nil, fmt.Errorf("cron %q: %s field: %w", expr, spec.name, err)
		}
		*spec.dst = vals
	}
	return cs, nil
}

// ParseSchedule accepts a Go duration ("1h", "@every 15m") or a cron expression.
func ParseSchedule(expr string, loc *time.Location) (Schedule, error) {
	expr = strings.TrimSpace(expr)
	if d, err := time.ParseDuration(strings.TrimPrefix(expr, "@every ")); err == nil {
		if d <= 0 {
			return nil, fmt.Errorf("schedule %q: interval must be positive", expr)
		}
		return Every(d), nil
	}
	return ParseCron(expr, loc)
}

// MustParseCron parses a constant expression or panics.
func MustParseCron(expr string, loc *time.Location) *CronSchedule {
	cs, err := ParseCron(expr, loc)
	if err != nil {
		panic(err)
	}
	return cs
}

func parseCronField(field string, min, max int) ([]int, error) {
	seen := map[int]bool{}
	for _, part := range strings.Split(field, ",") {
		lo, hi, step := min, max, 1

		rangePart := part
		if i := strings.Index(part, "/"); i >= 0 {
			s, err := strconv.Atoi(part[i+1:])
			if err != nil || s <= 0 {
				return nil, fmt.Errorf("invalid step %q", part)
			}
			step = s
			rangePart = part[:i]
		}

		switch {
		case rangePart == "*":
		case strings.Contains(rangePart, "-"):
			bounds := strings.SplitN(rangePart, "-", 2)
			a, errA := strconv.Atoi(bounds[0])
			b, errB := strconv.Atoi(bounds[1])
			if errA != nil || errB != nil || a > b {
				return nil, fmt.Errorf("invalid range %q", rangePart)
			}
			lo, hi = a, b
		default:
			v, err := strconv.Atoi(rangePart)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q", rangePart)
			}
			lo = v
			if step == 1 {
				hi = v
			}
		}

		if lo < min || hi > max {
			return nil, fmt.Errorf("%q out of range [%d-%d]", part, min, max)
		}
		for v := lo; v <= hi; v += step {
			seen[v] = true
		}
	}

	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

// Next returns the first matching minute after t, or the zero time if none
// matches within a year.
func (c *CronSchedule) Next(t time.Time) time.Time {
	next := t.In(c.loc).Truncate(time.Minute).Add(time.Minute)
	end := next.AddDate(1, 0, 0)

	for next.Before(end) {
		if !has(c.months, int(next.Month())) {
			next = time.Date(next.Year(), next.Month()+1, 1, 0, 0, 0, 0, c.loc)
			continue
		}
		if !has(c.days, next.Day()) || !has(c.weekdays, int(next.Weekday())) {
			next = time.Date(next.Year(), next.Month(), next.Day()+1, 0, 0, 0, 0, c.loc)
			continue
		}
		if !has(c.hours, next.Hour()) {
			next = time.Date(next.Year(), next.Month(), next.Day(), next.Hour()+1, 0, 0, 0, c.loc)
			continue
		}
		if !has(c.minutes, next.Minute()) {
			next = next.Add(time.Minute)
			continue
		}
		return next
	}
	return time.Time{}
}

func (c *CronSchedule) String() string { return c.raw }

func has(vals []int, v int) bool {
	i := sort.SearchInts(vals, v)
	return i < len(vals) && vals[i] == v
}
