// Package schedule computes when recurring triggers fire and keeps one armed
// timer per enabled schedule.
package schedule

import (
	"errors"
	"fmt"
	"slices"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"

	"github.com/dukex/nodeflow/pkg/models"
)

var (
	ErrInvalidSchedule = errors.New("invalid schedule")
	// ErrScheduleEnded means the next fire would fall after the end date.
	ErrScheduleEnded = errors.New("schedule has ended")
)

// Standard five-field cron plus descriptors such as @daily. A CRON_TZ= or
// TZ= prefix overrides the schedule timezone.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NextRunAt returns the first fire instant strictly after ref, in UTC. A
// start date later than ref acts as a floor: the start date itself is
// eligible.
func NextRunAt(cfg *models.Schedule, ref time.Time) (time.Time, error) {
	loc, err := cfg.Location()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timezone %q: %w", ErrInvalidSchedule, cfg.Timezone, err)
	}

	from := ref
	if cfg.StartDate != nil && cfg.StartDate.After(ref) {
		from = cfg.StartDate.Add(-time.Nanosecond)
	}

	from = from.In(loc)

	var next time.Time

	switch cfg.ScheduleType {
	case models.ScheduleTypeInterval:
		next, err = nextInterval(cfg, from)
	case models.ScheduleTypeDaily:
		next = nextDaily(cfg, from)
	case models.ScheduleTypeWeekly:
		next, err = nextWeekly(cfg, from)
	case models.ScheduleTypeMonthly:
		next, err = nextMonthly(cfg, from)
	case models.ScheduleTypeCron:
		next, err = nextCron(cfg, from)
	default:
		err = fmt.Errorf("%w: unknown schedule type %q", ErrInvalidSchedule, cfg.ScheduleType)
	}

	if err != nil {
		return time.Time{}, err
	}

	if cfg.EndDate != nil && next.After(*cfg.EndDate) {
		return time.Time{}, ErrScheduleEnded
	}

	return next.UTC(), nil
}

func nextInterval(cfg *models.Schedule, from time.Time) (time.Time, error) {
	if cfg.IntervalValue <= 0 {
		return time.Time{}, fmt.Errorf("%w: intervalValue must be positive", ErrInvalidSchedule)
	}

	var unit time.Duration

	switch cfg.IntervalUnit {
	case models.IntervalUnitMinutes:
		unit = time.Minute
	case models.IntervalUnitHours:
		unit = time.Hour
	case models.IntervalUnitDays:
		unit = 24 * time.Hour
	default:
		return time.Time{}, fmt.Errorf("%w: unknown interval unit %q", ErrInvalidSchedule, cfg.IntervalUnit)
	}

	// A future start date is the first fire itself.
	if cfg.StartDate != nil && cfg.StartDate.After(from) {
		return *cfg.StartDate, nil
	}

	return from.Add(time.Duration(cfg.IntervalValue) * unit), nil
}

func at(day time.Time, cfg *models.Schedule) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), cfg.Hour, cfg.Minute, 0, 0, day.Location())
}

func nextDaily(cfg *models.Schedule, from time.Time) time.Time {
	candidate := at(from, cfg)
	if !candidate.After(from) {
		candidate = at(from.AddDate(0, 0, 1), cfg)
	}

	return candidate
}

func nextWeekly(cfg *models.Schedule, from time.Time) (time.Time, error) {
	if len(cfg.DaysOfWeek) == 0 {
		return time.Time{}, fmt.Errorf("%w: daysOfWeek is empty", ErrInvalidSchedule)
	}

	for offset := range 8 {
		day := at(from.AddDate(0, 0, offset), cfg)
		if slices.Contains(cfg.DaysOfWeek, int(day.Weekday())) && day.After(from) {
			return day, nil
		}
	}

	return at(from.AddDate(0, 0, 7), cfg), nil
}

// monthDay clamps day to the length of the month.
func monthDay(year int, month time.Month, day int, cfg *models.Schedule, loc *time.Location) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()

	return time.Date(year, month, min(day, last), cfg.Hour, cfg.Minute, 0, 0, loc)
}

func nextMonthly(cfg *models.Schedule, from time.Time) (time.Time, error) {
	if cfg.DayOfMonth < 1 || cfg.DayOfMonth > 31 {
		return time.Time{}, fmt.Errorf("%w: dayOfMonth must be within 1..31", ErrInvalidSchedule)
	}

	candidate := monthDay(from.Year(), from.Month(), cfg.DayOfMonth, cfg, from.Location())
	if !candidate.After(from) {
		firstOfNext := time.Date(from.Year(), from.Month()+1, 1, 0, 0, 0, 0, from.Location())
		candidate = monthDay(firstOfNext.Year(), firstOfNext.Month(), cfg.DayOfMonth, cfg, from.Location())
	}

	return candidate, nil
}

func nextCron(cfg *models.Schedule, from time.Time) (time.Time, error) {
	spec, err := cronParser.Parse(cfg.CronExpression)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cron expression %q: %w", ErrInvalidSchedule, cfg.CronExpression, err)
	}

	next := spec.Next(from)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("%w: cron expression %q never fires", ErrInvalidSchedule, cfg.CronExpression)
	}

	return next, nil
}
