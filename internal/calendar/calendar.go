// Package calendar holds the date and hour arithmetic shared by the slot
// availability query and booking admission. All day computations happen in
// the policy's reference location, never in UTC, so a bare "YYYY-MM-DD"
// always maps to the calendar day the customer picked.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of booking dates.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when a date string is not a well-formed calendar date.
var ErrInvalidDate = errors.New("invalid date")

// ─── Clock ──────────────────────────────────────────────────

// Clock abstracts "now" so availability and admission can be tested
// against a fixed instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// ─── Policy ─────────────────────────────────────────────────

// Policy is the immutable slot configuration. The same value must be given to
// the availability query and to admission control, otherwise slots could be
// quoted that submission then rejects.
type Policy struct {
	FirstHour       int // first bookable hour bucket, inclusive
	LastHour        int // last bookable hour bucket, inclusive
	MinAdvanceHours int
	CapacityPerHour int
	HorizonDays     int
	Location        *time.Location
}

// DefaultPolicy returns 07:00–23:00, one hour notice, two bookings per hour,
// sixty days ahead, in the host's local zone.
func DefaultPolicy() Policy {
	return Policy{
		FirstHour:       7,
		LastHour:        23,
		MinAdvanceHours: 1,
		CapacityPerHour: 2,
		HorizonDays:     60,
		Location:        time.Local,
	}
}

// Validate rejects inconsistent policies at startup.
func (p Policy) Validate() error {
	switch {
	case p.FirstHour < 0 || p.LastHour > 23 || p.FirstHour > p.LastHour:
		return fmt.Errorf("slot hours must satisfy 0 <= first (%d) <= last (%d) <= 23", p.FirstHour, p.LastHour)
	case p.MinAdvanceHours < 0:
		return fmt.Errorf("minimum advance hours must be >= 0, got %d", p.MinAdvanceHours)
	case p.CapacityPerHour < 1:
		return fmt.Errorf("capacity per hour must be >= 1, got %d", p.CapacityPerHour)
	case p.HorizonDays < 0:
		return fmt.Errorf("horizon days must be >= 0, got %d", p.HorizonDays)
	}
	return nil
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// InOperatingHours reports whether hour is a bookable bucket.
func (p Policy) InOperatingHours(hour int) bool {
	return hour >= p.FirstHour && hour <= p.LastHour
}

// Hours returns the operating hours in ascending order.
func (p Policy) Hours() []int {
	hours := make([]int, 0, p.LastHour-p.FirstHour+1)
	for h := p.FirstHour; h <= p.LastHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// ─── Date arithmetic ────────────────────────────────────────

// ParseDate parses "YYYY-MM-DD" as midnight in the policy location.
func (p Policy) ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), p.location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders the calendar day of t in the policy location.
func (p Policy) FormatDate(t time.Time) string {
	return t.In(p.location()).Format(DateLayout)
}

// StartOfDay truncates t to midnight of its calendar day in the policy location.
func (p Policy) StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(p.location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.location())
}

// Bounds returns the inclusive first and last instant of t's calendar day.
func (p Policy) Bounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.In(p.location()).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, p.location())
	end := time.Date(y, m, d, 23, 59, 59, 999999999, p.location())
	return start, end
}

// DayBounds parses date and returns its inclusive day bounds.
func (p Policy) DayBounds(date string) (time.Time, time.Time, error) {
	day, err := p.ParseDate(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, end := p.Bounds(day)
	return start, end, nil
}

// IsToday reports whether day falls on the same calendar day as now.
func (p Policy) IsToday(day, now time.Time) bool {
	return p.StartOfDay(day).Equal(p.StartOfDay(now))
}

// IsWithinBookableRange reports whether day is neither before today nor more
// than HorizonDays after it.
func (p Policy) IsWithinBookableRange(day, now time.Time) bool {
	d := p.StartOfDay(day)
	today := p.StartOfDay(now)
	if d.Before(today) {
		return false
	}
	return !d.After(today.AddDate(0, 0, p.HorizonDays))
}

// SlotStart returns the instant hour:00 on day.
func (p Policy) SlotStart(day time.Time, hour int) time.Time {
	y, m, d := day.In(p.location()).Date()
	return time.Date(y, m, d, hour, 0, 0, 0, p.location())
}

// MeetsAdvanceNotice reports whether the slot (day, hour) starts at least
// MinAdvanceHours after now.
func (p Policy) MeetsAdvanceNotice(day time.Time, hour int, now time.Time) bool {
	earliest := now.Add(time.Duration(p.MinAdvanceHours) * time.Hour)
	return !p.SlotStart(day, hour).Before(earliest)
}

// BufferCutoff returns the last hour withheld from the availability listing
// for day. Hours <= cutoff are never offered; -1 means nothing is withheld.
func (p Policy) BufferCutoff(day, now time.Time) int {
	if !p.IsToday(day, now) {
		return -1
	}
	return now.In(p.location()).Hour() + p.MinAdvanceHours
}

// ─── Display ────────────────────────────────────────────────

// FormatHour renders a 24-hour bucket as "7:00 AM", "12:00 PM", "11:00 PM".
func FormatHour(hour int) string {
	display := hour % 12
	if display == 0 {
		display = 12
	}
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	return fmt.Sprintf("%d:00 %s", display, suffix)
}
