package models

import (
	"time"
)

// ScheduleType selects how the next run of a schedule is computed.
type ScheduleType string

const (
	ScheduleTypeInterval ScheduleType = "INTERVAL"
	ScheduleTypeDaily    ScheduleType = "DAILY"
	ScheduleTypeWeekly   ScheduleType = "WEEKLY"
	ScheduleTypeMonthly  ScheduleType = "MONTHLY"
	ScheduleTypeCron     ScheduleType = "CRON"
)

// IntervalUnit is the unit of an INTERVAL schedule.
type IntervalUnit string

const (
	IntervalUnitMinutes IntervalUnit = "minutes"
	IntervalUnitHours   IntervalUnit = "hours"
	IntervalUnitDays    IntervalUnit = "days"
)

// Schedule is the recurring trigger attached to a scheduler trigger node.
// There is at most one schedule per (WorkflowID, NodeID).
type Schedule struct {
	ID         string `json:"id"          validate:"required"`
	WorkflowID string `json:"workflowId"  validate:"required"`
	NodeID     string `json:"nodeId"      validate:"required"`

	ScheduleType ScheduleType `json:"scheduleType" validate:"required,oneof=INTERVAL DAILY WEEKLY MONTHLY CRON"`
	// Timezone is an IANA zone name; empty means UTC.
	Timezone string `json:"timezone,omitempty" validate:"omitempty,timezone"`

	IntervalValue int          `json:"intervalValue,omitempty" validate:"required_if=ScheduleType INTERVAL,min=0"`
	IntervalUnit  IntervalUnit `json:"intervalUnit,omitempty"  validate:"required_if=ScheduleType INTERVAL"`

	Hour   int `json:"hour"   validate:"min=0,max=23"`
	Minute int `json:"minute" validate:"min=0,max=59"`

	// DaysOfWeek uses 0 for Sunday through 6 for Saturday.
	DaysOfWeek []int `json:"daysOfWeek,omitempty" validate:"required_if=ScheduleType WEEKLY,dive,min=0,max=6"`
	DayOfMonth int   `json:"dayOfMonth,omitempty" validate:"required_if=ScheduleType MONTHLY,min=0,max=31"`

	CronExpression string `json:"cronExpression,omitempty" validate:"required_if=ScheduleType CRON"`

	Enabled   bool       `json:"enabled"`
	NextRunAt *time.Time `json:"nextRunAt,omitempty"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Location resolves the schedule's timezone, defaulting to UTC.
func (s *Schedule) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}

	return time.LoadLocation(s.Timezone)
}
