package biz

import (
	"fmt"
	"time"

	"PostLane/internal/conf"
)

// maxScanHours bounds occurrence searches to one week plus a day of slack.
const maxScanHours = 8 * 24

// ScheduleDefinition declares the UTC weekdays and hours during which a job is due.
type ScheduleDefinition struct {
	JobName  string
	Weekdays []time.Weekday
	HoursUTC []int
}

// ValidateSchedule rejects empty or out-of-range weekdays and hours.
func ValidateSchedule(def ScheduleDefinition) error {
	if def.JobName == "" {
		return &ConfigurationError{Field: "schedule.job_name", Message: "must not be empty"}
	}
	if len(def.Weekdays) == 0 {
		return &ConfigurationError{Field: "schedule." + def.JobName + ".weekdays", Message: "must not be empty"}
	}
	if len(def.HoursUTC) == 0 {
		return &ConfigurationError{Field: "schedule." + def.JobName + ".hours_utc", Message: "must not be empty"}
	}
	for _, d := range def.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return &ConfigurationError{Field: "schedule." + def.JobName + ".weekdays", Message: fmt.Sprintf("weekday %d out of range 0-6", d)}
		}
	}
	for _, h := range def.HoursUTC {
		if h < 0 || h > 23 {
			return &ConfigurationError{Field: "schedule." + def.JobName + ".hours_utc", Message: fmt.Sprintf("hour %d out of range 0-23", h)}
		}
	}
	return nil
}

// IsDue reports whether now falls on an allowed weekday and hour, evaluated in UTC.
func IsDue(def ScheduleDefinition, now time.Time) bool {
	now = now.UTC()
	return containsWeekday(def.Weekdays, now.Weekday()) && containsHour(def.HoursUTC, now.Hour())
}

// NextOccurrence returns the earliest instant at or after from that is due:
// from itself when it is due, otherwise the start of the next due hour.
func NextOccurrence(def ScheduleDefinition, from time.Time) (time.Time, error) {
	if err := ValidateSchedule(def); err != nil {
		return time.Time{}, err
	}
	from = from.UTC()
	if IsDue(def, from) {
		return from, nil
	}
	t := from.Truncate(time.Hour)
	for i := 0; i < maxScanHours; i++ {
		t = t.Add(time.Hour)
		if IsDue(def, t) {
			return t, nil
		}
	}
	return time.Time{}, &ConfigurationError{Field: "schedule." + def.JobName, Message: "no occurrence within 8 days"}
}

// PreviousOccurrence returns the start of the most recent due hour at or before at.
func PreviousOccurrence(def ScheduleDefinition, at time.Time) (time.Time, error) {
	if err := ValidateSchedule(def); err != nil {
		return time.Time{}, err
	}
	t := at.UTC().Truncate(time.Hour)
	for i := 0; i <= maxScanHours; i++ {
		if IsDue(def, t) {
			return t, nil
		}
		t = t.Add(-time.Hour)
	}
	return time.Time{}, &ConfigurationError{Field: "schedule." + def.JobName, Message: "no occurrence within 8 days"}
}

// SchedulesFromConfig converts and validates the configured schedules.
func SchedulesFromConfig(bc *conf.Bootstrap) ([]ScheduleDefinition, error) {
	defs := make([]ScheduleDefinition, 0, len(bc.Schedules))
	seen := make(map[string]bool, len(bc.Schedules))
	for _, s := range bc.Schedules {
		if s == nil {
			continue
		}
		def := ScheduleDefinition{
			JobName:  s.JobName,
			HoursUTC: append([]int(nil), s.HoursUTC...),
		}
		for _, d := range s.Weekdays {
			def.Weekdays = append(def.Weekdays, time.Weekday(d))
		}
		if err := ValidateSchedule(def); err != nil {
			return nil, err
		}
		if seen[def.JobName] {
			return nil, &ConfigurationError{Field: "schedule." + def.JobName, Message: "duplicate schedule"}
		}
		seen[def.JobName] = true
		defs = append(defs, def)
	}
	return defs, nil
}

func containsWeekday(days []time.Weekday, d time.Weekday) bool {
	for _, v := range days {
		if v == d {
			return true
		}
	}
	return false
}

func containsHour(hours []int, h int) bool {
	for _, v := range hours {
		if v == h {
			return true
		}
	}
	return false
}
