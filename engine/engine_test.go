package engine

import (
	"testing"
	"time"

	"engagement-engine/models"
)

// noSurge never rolls below any surge chance; alwaysSurge always does.
const (
	noSurge     = FixedRandom(1)
	alwaysSurge = FixedRandom(0)
)

func newTestEngine(t *testing.T, rnd RandomSource) *Engine {
	t.Helper()
	e, err := New(DefaultRules(), nil, rnd)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return e
}

// at returns noon UTC on 2026-03-10 plus days.
func at(days int) time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC).AddDate(0, 0, days)
}

func countEvents(events []models.Event, typ models.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestNewRejectsInvalidRules(t *testing.T) {
	cases := []func(r *Rules){
		func(r *Rules) { r.ResetHour = 24 },
		func(r *Rules) { r.MaxHP = 0 },
		func(r *Rules) { r.SurgeChance = 1.5 },
		func(r *Rules) { r.MinHPThreshold = 500 },
		func(r *Rules) { r.FreezeDuration = 0 },
	}
	for i, mutate := range cases {
		rules := DefaultRules()
		mutate(&rules)
		if _, err := New(rules, nil, nil); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestNewUserProgress(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := e.NewUserProgress("user-1")
	if p.ID == "" || p.ExternalUserID != "user-1" {
		t.Fatalf("ids not set: %+v", p)
	}
	if p.XP != 0 || p.Level != 1 || p.Rank != models.RankE || p.HP != 100 {
		t.Fatalf("unexpected initial state: %+v", p)
	}
}

func TestDayOfUsesResetHour(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC), "2026-03-09"},
		{time.Date(2026, 3, 10, 3, 59, 59, 0, time.UTC), "2026-03-09"},
		{time.Date(2026, 3, 10, 4, 0, 0, 0, time.UTC), "2026-03-10"},
		{time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC), "2026-03-10"},
	}
	for _, tc := range cases {
		if got := rules.DayOf(tc.at); got != tc.want {
			t.Errorf("DayOf(%v) = %s, want %s", tc.at, got, tc.want)
		}
	}
}

func TestDayOfRespectsLocation(t *testing.T) {
	rules := DefaultRules()
	rules.Location = time.FixedZone("UTC+9", 9*3600)
	// 20:00 UTC is 05:00 next day at +9, after the 04:00 reset
	got := rules.DayOf(time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC))
	if got != "2026-03-11" {
		t.Fatalf("DayOf = %s, want 2026-03-11", got)
	}
}

func TestDaysBetween(t *testing.T) {
	cases := []struct {
		from, to string
		want     int
		ok       bool
	}{
		{"2026-03-10", "2026-03-11", 1, true},
		{"2026-03-10", "2026-03-13", 3, true},
		{"2026-03-10", "2026-03-10", 0, true},
		{"2026-03-10", "2026-03-08", -2, true},
		{"2026-02-28", "2026-03-01", 1, true},
		{"garbage", "2026-03-01", 0, false},
	}
	for _, tc := range cases {
		got, ok := DaysBetween(tc.from, tc.to)
		if got != tc.want || ok != tc.ok {
			t.Errorf("DaysBetween(%s, %s) = %d,%v want %d,%v", tc.from, tc.to, got, ok, tc.want, tc.ok)
		}
	}
}
