// Package schedule computes bookable slots from business hours and calendar
// busy intervals. Pure functions only; no clock or I/O.
package schedule

import (
	"fmt"
	"time"

	"bookline/agent/contract"
)

// DefaultGranularityMinutes is the spacing between candidate slot starts.
const DefaultGranularityMinutes = 30

// FreeSlots returns the bookable slots on one calendar day, ordered by
// strictly increasing start time.
//
// date is a "2006-01-02" day in the business's location. day carries the
// open/close window for that weekday; a closed day yields no slots. busy
// intervals are half-open [start, end). A candidate [s, s+d) is accepted iff
// it ends by close and overlaps no busy interval.
func FreeSlots(
	date string,
	loc *time.Location,
	day contract.DayHours,
	busy []contract.BusyInterval,
	durationMin int,
	granularityMin int,
) ([]contract.Slot, error) {
	if durationMin <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d", contract.ErrValidation, durationMin)
	}
	if granularityMin <= 0 {
		granularityMin = DefaultGranularityMinutes
	}
	if loc == nil {
		loc = time.UTC
	}
	if day.Closed() {
		return nil, nil
	}

	workStart, err := atLocalTime(date, *day.Open, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: bad open time %q: %v", contract.ErrValidation, *day.Open, err)
	}
	workEnd, err := atLocalTime(date, *day.Close, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: bad close time %q: %v", contract.ErrValidation, *day.Close, err)
	}

	duration := time.Duration(durationMin) * time.Minute
	step := time.Duration(granularityMin) * time.Minute

	var slots []contract.Slot
	for start := workStart; !start.Add(duration).After(workEnd); start = start.Add(step) {
		end := start.Add(duration)
		if overlapsAny(start, end, busy) {
			continue
		}
		slots = append(slots, contract.Slot{Start: start, End: end})
	}
	return slots, nil
}

// overlapsAny applies the half-open interval overlap test:
// [start, end) intersects [b.Start, b.End) iff start < b.End && end > b.Start.
func overlapsAny(start, end time.Time, busy []contract.BusyInterval) bool {
	for _, b := range busy {
		if start.Before(b.End) && end.After(b.Start) {
			return true
		}
	}
	return false
}

func atLocalTime(date, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}
