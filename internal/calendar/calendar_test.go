package calendar

import (
	"errors"
	"testing"
	"time"
)

func nassau(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Nassau")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return loc
}

func TestFormatHour(t *testing.T) {
	cases := map[int]string{
		0:  "12:00 AM",
		1:  "1:00 AM",
		7:  "7:00 AM",
		11: "11:00 AM",
		12: "12:00 PM",
		13: "1:00 PM",
		23: "11:00 PM",
	}
	for hour, want := range cases {
		if got := FormatHour(hour); got != want {
			t.Errorf("FormatHour(%d) = %q, want %q", hour, got, want)
		}
	}
}

func TestFormatHour_UnambiguousAcrossDay(t *testing.T) {
	seen := make(map[string]int)
	for h := 0; h < 24; h++ {
		s := FormatHour(h)
		if prev, ok := seen[s]; ok {
			t.Fatalf("FormatHour(%d) and FormatHour(%d) both render %q", prev, h, s)
		}
		seen[s] = h
	}
}

func TestParseDate_UsesPolicyLocation(t *testing.T) {
	// A zone west of UTC is where naive UTC parsing shifts the day backward.
	p := DefaultPolicy()
	p.Location = nassau(t)

	day, err := p.ParseDate("2026-03-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if got := p.FormatDate(day); got != "2026-03-15" {
		t.Fatalf("FormatDate(ParseDate) = %s, want 2026-03-15", got)
	}
	if day.Location() != p.Location {
		t.Fatalf("parsed location = %v, want %v", day.Location(), p.Location)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	p := DefaultPolicy()
	for _, in := range []string{"", "2026-02-30", "15/03/2026", "2026-3-5", "tomorrow"} {
		if _, err := p.ParseDate(in); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) err = %v, want ErrInvalidDate", in, err)
		}
	}
}

func TestDayBounds(t *testing.T) {
	p := DefaultPolicy()
	p.Location = time.FixedZone("EST", -5*3600)

	start, end, err := p.DayBounds("2026-11-02")
	if err != nil {
		t.Fatalf("DayBounds: %v", err)
	}
	wantStart := time.Date(2026, 11, 2, 0, 0, 0, 0, p.Location)
	if !start.Equal(wantStart) {
		t.Errorf("start = %v, want %v", start, wantStart)
	}
	if end.Day() != 2 || end.Hour() != 23 || end.Minute() != 59 {
		t.Errorf("end = %v, want last instant of 2026-11-02", end)
	}
	if !end.After(start) || end.Sub(start) >= 24*time.Hour {
		t.Errorf("bounds span %v, want just under a day", end.Sub(start))
	}

	if _, _, err := p.DayBounds("nope"); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("DayBounds(nope) err = %v, want ErrInvalidDate", err)
	}
}

func TestIsToday(t *testing.T) {
	p := DefaultPolicy()
	p.Location = time.FixedZone("EST", -5*3600)
	now := time.Date(2026, 10, 19, 23, 30, 0, 0, p.Location)

	if !p.IsToday(time.Date(2026, 10, 19, 0, 0, 0, 0, p.Location), now) {
		t.Error("same calendar day should be today")
	}
	// 04:30 UTC on the 20th is still the 19th in EST.
	if !p.IsToday(now, now.UTC()) {
		t.Error("now compared to itself in UTC should be today")
	}
	if p.IsToday(time.Date(2026, 10, 20, 0, 0, 0, 0, p.Location), now) {
		t.Error("next day should not be today")
	}
}

func TestIsWithinBookableRange(t *testing.T) {
	p := DefaultPolicy()
	p.Location = time.UTC
	now := time.Date(2026, 10, 19, 15, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time {
		return time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}

	cases := []struct {
		name   string
		offset int
		want   bool
	}{
		{"yesterday", -1, false},
		{"today", 0, true},
		{"ten days", 10, true},
		{"horizon edge", 60, true},
		{"past horizon", 61, false},
		{"ninety days", 90, false},
	}
	for _, tc := range cases {
		if got := p.IsWithinBookableRange(day(tc.offset), now); got != tc.want {
			t.Errorf("%s: IsWithinBookableRange = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBufferCutoffAndAdvanceNotice_Agree(t *testing.T) {
	p := DefaultPolicy()
	p.Location = time.UTC
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	for minute := 0; minute < 60; minute += 15 {
		now := time.Date(2026, 10, 19, 10, minute, 0, 0, time.UTC)
		cutoff := p.BufferCutoff(day, now)
		if cutoff != 11 {
			t.Fatalf("BufferCutoff at 10:%02d = %d, want 11", minute, cutoff)
		}
		for h := cutoff + 1; h <= p.LastHour; h++ {
			if !p.MeetsAdvanceNotice(day, h, now) {
				t.Errorf("hour %d offered at 10:%02d but fails advance notice", h, minute)
			}
		}
	}

	if got := p.BufferCutoff(day.AddDate(0, 0, 1), time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)); got != -1 {
		t.Errorf("BufferCutoff for tomorrow = %d, want -1", got)
	}
}

func TestMeetsAdvanceNotice(t *testing.T) {
	p := DefaultPolicy()
	p.Location = time.UTC
	day := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC)

	if p.MeetsAdvanceNotice(day, 11, now) {
		t.Error("11:00 is 30 minutes away, should fail one hour notice")
	}
	if !p.MeetsAdvanceNotice(day, 12, now) {
		t.Error("12:00 is 90 minutes away, should pass")
	}
	exact := time.Date(2026, 10, 19, 11, 0, 0, 0, time.UTC)
	if !p.MeetsAdvanceNotice(day, 12, exact) {
		t.Error("exactly one hour ahead should pass")
	}
}

func TestPolicyValidate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
	bad := []Policy{
		{FirstHour: 10, LastHour: 9, CapacityPerHour: 1},
		{FirstHour: 0, LastHour: 24, CapacityPerHour: 1},
		{FirstHour: 7, LastHour: 23, CapacityPerHour: 0},
		{FirstHour: 7, LastHour: 23, CapacityPerHour: 1, MinAdvanceHours: -1},
		{FirstHour: 7, LastHour: 23, CapacityPerHour: 1, HorizonDays: -1},
	}
	for i, p := range bad {
		if err := p.Validate(); err == nil {
			t.Errorf("case %d: Validate() = nil, want error", i)
		}
	}
}

func TestHours(t *testing.T) {
	p := Policy{FirstHour: 7, LastHour: 9}
	got := p.Hours()
	if len(got) != 3 || got[0] != 7 || got[2] != 9 {
		t.Fatalf("Hours() = %v, want [7 8 9]", got)
	}
	if !p.InOperatingHours(7) || !p.InOperatingHours(9) || p.InOperatingHours(6) || p.InOperatingHours(10) {
		t.Fatal("InOperatingHours bounds wrong")
	}
}
