package engine

import (
	"reflect"
	"testing"
	"time"

	"engagement-engine/models"
)

func activeUser(e *Engine, streak int, lastDay time.Time) *models.UserProgress {
	p := e.NewUserProgress("u")
	p.Streak = streak
	p.LongestStreak = streak
	p.LastActiveDay = e.DayOf(lastDay)
	return p
}

func TestTouchFirstEver(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := e.NewUserProgress("u")

	res := e.Touch(p, at(0))
	if p.Streak != 1 || p.LongestStreak != 1 || p.LastActiveDay != "2026-03-10" {
		t.Fatalf("state=%+v", p)
	}
	if !res.Continued || res.Lost || res.Noop {
		t.Fatalf("result=%+v", res)
	}
}

func TestTouchConsecutiveDay(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := activeUser(e, 5, at(0))

	res := e.Touch(p, at(1))
	if p.Streak != 6 || p.LongestStreak < 6 {
		t.Fatalf("streak=%d longest=%d, want 6", p.Streak, p.LongestStreak)
	}
	if !res.Continued || res.Lost || countEvents(res.Events, models.EventStreakContinued) != 1 {
		t.Fatalf("result=%+v", res)
	}
}

func TestTouchBreaksAfterGap(t *testing.T) {
	e := newTestEngine(t, noSurge)
	for _, prior := range []int{1, 5, 250} {
		p := activeUser(e, prior, at(0))
		res := e.Touch(p, at(3))
		if p.Streak != 1 || !res.Lost {
			t.Fatalf("prior %d: streak=%d lost=%v", prior, p.Streak, res.Lost)
		}
		if p.LongestStreak != prior {
			t.Fatalf("longest streak changed to %d", p.LongestStreak)
		}
		if countEvents(res.Events, models.EventStreakLost) != 1 || res.Events[0].PreviousStreak != prior {
			t.Fatalf("events=%+v", res.Events)
		}
	}
}

func TestTouchSameDayIsIdempotent(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := activeUser(e, 3, at(-1))

	e.Touch(p, time.Date(2026, 3, 10, 23, 0, 0, 0, time.UTC))
	first := p.Clone()

	// 02:00 next calendar day is still the same app day under the 04:00 reset
	res := e.Touch(p, time.Date(2026, 3, 11, 2, 0, 0, 0, time.UTC))
	if !res.Noop || !res.Continued {
		t.Fatalf("result=%+v", res)
	}
	if !reflect.DeepEqual(first, p) {
		t.Fatalf("second touch changed state:\n%+v\n%+v", first, p)
	}
}

func TestTouchToleratesClockSkew(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := activeUser(e, 4, at(0))

	res := e.Touch(p, at(-2))
	if p.Streak != 4 || res.Lost || !res.Noop {
		t.Fatalf("skew changed streak: %d %+v", p.Streak, res)
	}
}

func TestTouchMilestoneBonus(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := activeUser(e, 6, at(0))

	res := e.Touch(p, at(1))
	if p.Streak != 7 || res.Milestone == nil {
		t.Fatalf("streak=%d milestone=%v", p.Streak, res.Milestone)
	}
	if res.Milestone.Coins != 50 || res.Milestone.Gems != 2 {
		t.Fatalf("milestone=%+v", res.Milestone)
	}
	if p.Coins != 0 {
		t.Fatalf("touch must not pay the milestone itself")
	}

	res = e.Touch(p, at(2))
	if res.Milestone != nil {
		t.Fatalf("unexpected milestone at streak 8")
	}
}

func TestFreezeScenario(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := e.NewUserProgress("u")
	p.Gems = 5
	now := at(0)

	res := e.Freeze(p, now)
	if !res.Success || p.Gems != 0 {
		t.Fatalf("first freeze: %+v gems=%d", res, p.Gems)
	}
	if p.StreakFreezeExpiry == nil || !p.StreakFreezeExpiry.Equal(now.Add(24*time.Hour)) {
		t.Fatalf("expiry=%v", p.StreakFreezeExpiry)
	}

	// drop the active freeze to reach the gem check
	p.StreakFreezeExpiry = nil
	res = e.Freeze(p, now)
	if res.Success || res.Reason != DeclineInsufficientGems || p.Gems != 0 || p.StreakFreezeExpiry != nil {
		t.Fatalf("second freeze: %+v gems=%d", res, p.Gems)
	}
}

func TestFreezeDeclinedWhileActive(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := e.NewUserProgress("u")
	p.Gems = 20

	e.Freeze(p, at(0))
	res := e.Freeze(p, at(0).Add(time.Hour))
	if res.Success || res.Reason != DeclineFreezeActive || p.Gems != 15 {
		t.Fatalf("res=%+v gems=%d", res, p.Gems)
	}
}

func TestFreezeHoldsStreak(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := activeUser(e, 9, at(-3))
	expiry := at(0).Add(6 * time.Hour)
	p.StreakFreezeExpiry = &expiry

	for i := 0; i < 5; i++ {
		res := e.Touch(p, at(0).Add(time.Duration(i)*time.Hour))
		if !res.Frozen || !res.Continued || res.Lost {
			t.Fatalf("touch %d: %+v", i, res)
		}
		if p.Streak != 9 {
			t.Fatalf("streak moved to %d under freeze", p.Streak)
		}
	}
}

func TestFreezeCoversMissedDay(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := activeUser(e, 5, at(0))
	p.Gems = 5

	// bought in the evening of an active day, user skips the next day entirely
	e.Freeze(p, at(0).Add(8*time.Hour))
	res := e.Touch(p, at(2))
	if res.Lost || p.Streak != 6 {
		t.Fatalf("freeze did not bridge the missed day: streak=%d res=%+v", p.Streak, res)
	}
	if p.StreakFreezeExpiry != nil {
		t.Fatalf("expired freeze not cleared")
	}
}

func TestFreezeExpiringTodayStillCountsToday(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := activeUser(e, 5, at(0))
	p.Gems = 5

	// bought at 10:00 on an active day, expires 10:00 the next day
	e.Freeze(p, at(0).Add(-2*time.Hour))
	res := e.Touch(p, at(1))
	if res.Noop || !res.Continued || p.Streak != 6 {
		t.Fatalf("next-day touch after expiry: streak=%d res=%+v", p.Streak, res)
	}
	if p.LastActiveDay != e.DayOf(at(1)) || p.StreakFreezeExpiry != nil {
		t.Fatalf("lastActive=%s expiry=%v", p.LastActiveDay, p.StreakFreezeExpiry)
	}
}

func TestExpiredFreezeDoesNotRescueLongAbsence(t *testing.T) {
	e := newTestEngine(t, noSurge)
	p := activeUser(e, 5, at(0))
	p.Gems = 5

	e.Freeze(p, at(0))
	res := e.Touch(p, at(6))
	if !res.Lost || p.Streak != 1 {
		t.Fatalf("streak=%d res=%+v", p.Streak, res)
	}
}
