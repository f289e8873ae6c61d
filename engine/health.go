package engine

import (
	"time"

	"engagement-engine/models"
)

// Decay removes MissPenalty HP per missed mission, clamped to [0, MaxHP].
func (e *Engine) Decay(p *models.UserProgress, missedMissions int, now time.Time) []models.Event {
	if missedMissions <= 0 {
		return e.setHP(p, p.HP, "", now)
	}
	return e.setHP(p, p.HP-missedMissions*e.rules.MissPenalty, "missed_missions", now)
}

// Recover adds amount HP, clamped to [0, MaxHP].
func (e *Engine) Recover(p *models.UserProgress, amount int, now time.Time) []models.Event {
	return e.setHP(p, p.HP+amount, "mission_completed", now)
}

// CanAccessPremiumFeature gates premium features on HP. No side effects.
func (e *Engine) CanAccessPremiumFeature(p *models.UserProgress) bool {
	return p.HP >= e.rules.MinHPThreshold
}

func (e *Engine) setHP(p *models.UserProgress, hp int, reason string, now time.Time) []models.Event {
	hp = clampInt(hp, 0, e.rules.MaxHP)
	delta := hp - p.HP
	p.HP = hp
	if delta == 0 {
		return nil
	}
	ev := event(p, models.EventHPChanged, now)
	ev.HP = hp
	ev.HPDelta = delta
	ev.Reason = reason
	return []models.Event{ev}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
