package engine

import (
	"time"

	"engagement-engine/models"
)

// TouchResult describes what a day-activity touch did to the streak.
type TouchResult struct {
	Day       string
	Continued bool
	Lost      bool
	Frozen    bool // a freeze absorbed the touch
	Noop      bool // streak state unchanged (same day, clock skew or freeze)

	// Milestone is the bonus earned by reaching a milestone streak. The caller
	// pays it through the reward distributor; it is not streak state.
	Milestone *models.RewardBundle
	Events    []models.Event
}

// Touch records activity at now.
//
// While a freeze is active the streak neither grows nor resets. Once a freeze
// has expired it is cleared and the day it expired on counts as covered, so
// the missed day it was bought for does not break the streak. This relaxes the
// plain break rule: a gap of more than one day does not reset the streak when
// an expired freeze covers the missing day. The covered day only counts when
// it is strictly before today; a freeze that ran out earlier today leaves the
// touch to the ordinary next-day rule.
func (e *Engine) Touch(p *models.UserProgress, now time.Time) TouchResult {
	today := e.rules.DayOf(now)
	res := TouchResult{Day: today}

	if p.StreakFreezeExpiry != nil {
		if now.Before(*p.StreakFreezeExpiry) {
			res.Continued, res.Frozen, res.Noop = true, true, true
			return res
		}
		covered := e.rules.DayOf(*p.StreakFreezeExpiry)
		p.StreakFreezeExpiry = nil
		if p.LastActiveDay != "" {
			gap, ok := DaysBetween(p.LastActiveDay, covered)
			ahead, okToday := DaysBetween(covered, today)
			if ok && okToday && gap > 0 && gap <= freezeBridgeDays(e.rules.FreezeDuration) && ahead >= 1 {
				p.LastActiveDay = covered
			}
		}
	}

	if p.LastActiveDay == today {
		res.Continued, res.Noop = true, true
		return res
	}

	gap, ok := DaysBetween(p.LastActiveDay, today)
	switch {
	case p.LastActiveDay == "" || !ok:
		// first touch ever; an unreadable stored day is treated the same way
		p.Streak = 1
		p.LastActiveDay = today
		if p.LongestStreak < 1 {
			p.LongestStreak = 1
		}
		res.Continued = true
		res.Events = append(res.Events, e.streakEvent(p, models.EventStreakContinued, 0, now))

	case gap <= 0:
		// clock went backwards: never decrement on skew
		res.Continued, res.Noop = true, true

	case gap == 1:
		p.Streak++
		if p.Streak > p.LongestStreak {
			p.LongestStreak = p.Streak
		}
		p.LastActiveDay = today
		res.Continued = true
		res.Events = append(res.Events, e.streakEvent(p, models.EventStreakContinued, p.Streak-1, now))
		if bonus, ok := e.catalog.MilestoneFor(p.Streak); ok {
			b := bonus
			res.Milestone = &b
		}

	default:
		prev := p.Streak
		p.Streak = 1
		p.LastActiveDay = today
		if p.LongestStreak < 1 {
			p.LongestStreak = 1
		}
		res.Lost = true
		res.Events = append(res.Events, e.streakEvent(p, models.EventStreakLost, prev, now))
	}
	return res
}

// freezeBridgeDays is how far a freeze can carry the last active day forward.
func freezeBridgeDays(d time.Duration) int {
	days := int((d + 24*time.Hour - 1) / (24 * time.Hour))
	return days + 1
}

func (e *Engine) streakEvent(p *models.UserProgress, t models.EventType, prev int, now time.Time) models.Event {
	ev := event(p, t, now)
	ev.Streak = p.Streak
	ev.PreviousStreak = prev
	return ev
}

// FreezeResult is the outcome of a freeze purchase.
type FreezeResult struct {
	Success bool
	Reason  DeclineReason
	Expiry  time.Time
	Events  []models.Event
}

// Freeze spends FreezeCostGems to protect the streak for FreezeDuration.
// Insufficient gems or an already active freeze decline without changing state.
func (e *Engine) Freeze(p *models.UserProgress, now time.Time) FreezeResult {
	if p.StreakFreezeExpiry != nil && now.Before(*p.StreakFreezeExpiry) {
		return FreezeResult{Reason: DeclineFreezeActive, Expiry: *p.StreakFreezeExpiry}
	}
	if p.Gems < e.rules.FreezeCostGems {
		return FreezeResult{Reason: DeclineInsufficientGems}
	}

	p.Gems -= e.rules.FreezeCostGems
	expiry := now.Add(e.rules.FreezeDuration)
	p.StreakFreezeExpiry = &expiry

	ev := event(p, models.EventStreakFrozen, now)
	ev.Gems = -e.rules.FreezeCostGems
	ev.Streak = p.Streak
	return FreezeResult{Success: true, Expiry: expiry, Events: []models.Event{ev}}
}

// FreezeActive reports whether a freeze protects the streak at now.
func (e *Engine) FreezeActive(p *models.UserProgress, now time.Time) bool {
	return p.StreakFreezeExpiry != nil && now.Before(*p.StreakFreezeExpiry)
}
