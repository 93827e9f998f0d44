package care

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparsableSchedule is returned when a cadence string does not match
// "<positive integer><optional whitespace><day|week|month>[s]".
var ErrUnparsableSchedule = errors.New("unparsable schedule")

type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
)

type Interval struct {
	Count int  `json:"count"`
	Unit  Unit `json:"unit"`
}

func (i Interval) String() string {
	if i.Count == 1 {
		return "1 " + string(i.Unit)
	}
	return fmt.Sprintf("%d %ss", i.Count, i.Unit)
}

// maxCount caps each unit at roughly a century so due dates stay in range.
var maxCount = map[Unit]int{
	UnitDay:   36500,
	UnitWeek:  5200,
	UnitMonth: 1200,
}

var schedulePattern = regexp.MustCompile(`(?i)^(\d+)\s*(day|week|month)s?$`)

// ParseSchedule turns free text such as "2 weeks", "1Month" or "10 Days" into
// a normalized Interval.
func ParseSchedule(text string) (Interval, error) {
	m := schedulePattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Interval{}, fmt.Errorf("%w: %q", ErrUnparsableSchedule, text)
	}
	count, err := strconv.Atoi(m[1])
	if err != nil || count <= 0 {
		return Interval{}, fmt.Errorf("%w: %q (count must be a positive integer)", ErrUnparsableSchedule, text)
	}
	unit := Unit(strings.ToLower(m[2]))
	if count > maxCount[unit] {
		return Interval{}, fmt.Errorf("%w: %q (at most %d %ss)", ErrUnparsableSchedule, text, maxCount[unit], unit)
	}
	return Interval{Count: count, Unit: unit}, nil
}

// NextDue advances lastPerformed by the interval. A nil lastPerformed yields a
// nil due date: a subject that was never fertilized has nothing due yet.
func NextDue(lastPerformed *time.Time, interval Interval) *time.Time {
	if lastPerformed == nil {
		return nil
	}
	due := Advance(*lastPerformed, interval)
	return &due
}

// Advance adds count units to t. Days and weeks move by calendar days so the
// wall-clock time survives DST changes. Months move by calendar month and clamp
// to the last day of the target month, so Jan 31 + 1 month is Feb 28 or 29.
func Advance(t time.Time, interval Interval) time.Time {
	switch interval.Unit {
	case UnitDay:
		return t.AddDate(0, 0, interval.Count)
	case UnitWeek:
		return t.AddDate(0, 0, 7*interval.Count)
	case UnitMonth:
		return addMonths(t, interval.Count)
	default:
		return t
	}
}

func addMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
