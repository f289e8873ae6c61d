package engine

import (
	"math"
	"time"

	"engagement-engine/models"
)

// XPPerLevelUnit is the scale of the level curve: level = floor(sqrt(xp/1000)) + 1.
const XPPerLevelUnit = 1000

// MaxXP caps cumulative XP. Credits saturate here instead of wrapping.
const MaxXP int64 = 1 << 53

// LevelFor derives the level from cumulative XP. Non-decreasing in xp.
func LevelFor(xp int64) int {
	if xp <= 0 {
		return 1
	}
	return int(isqrt(xp/XPPerLevelUnit)) + 1
}

// isqrt is floor(sqrt(q)) for q >= 0. Comparisons divide instead of
// multiplying so they cannot overflow.
func isqrt(q int64) int64 {
	if q <= 0 {
		return 0
	}
	n := int64(math.Sqrt(float64(q)))
	for n > 0 && n > q/n {
		n--
	}
	for n+1 <= q/(n+1) {
		n++
	}
	return n
}

// XPForLevel is the cumulative XP at which level begins.
func XPForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	n := int64(level - 1)
	return n * n * XPPerLevelUnit
}

// RankThresholds: minimum cumulative XP for each rank, in RankOrder.
var RankThresholds = map[models.Rank]int64{
	models.RankE:  0,
	models.RankD:  1_000,
	models.RankC:  5_000,
	models.RankB:  15_000,
	models.RankA:  40_000,
	models.RankS:  100_000,
	models.RankSS: 250_000,
}

// RankFor maps any xp >= 0 onto exactly one rank.
func RankFor(xp int64) models.Rank {
	for i := len(models.RankOrder) - 1; i >= 0; i-- {
		r := models.RankOrder[i]
		if xp >= RankThresholds[r] {
			return r
		}
	}
	return models.RankE
}

// XPThreshold returns the XP at which rank begins.
func XPThreshold(rank models.Rank) int64 {
	return RankThresholds[rank]
}

// XPGain is the amount actually credited by ApplyXP.
type XPGain struct {
	Amount int64
	Surge  bool
}

// ApplyXP credits amount XP, doubling it on a surge roll. A non-positive
// amount is a no-op.
func (e *Engine) ApplyXP(p *models.UserProgress, amount int64, reason string, now time.Time) (XPGain, []models.Event) {
	if amount <= 0 {
		return XPGain{}, nil
	}
	surge := e.rnd.Float64() < e.rules.SurgeChance
	return e.creditXP(p, amount, surge, reason, now)
}

// GrantXP credits amount XP without a surge roll.
func (e *Engine) GrantXP(p *models.UserProgress, amount int64, reason string, now time.Time) (XPGain, []models.Event) {
	if amount <= 0 {
		return XPGain{}, nil
	}
	return e.creditXP(p, amount, false, reason, now)
}

func (e *Engine) creditXP(p *models.UserProgress, amount int64, surge bool, reason string, now time.Time) (XPGain, []models.Event) {
	actual := amount
	if surge {
		if actual > MaxXP/2 {
			actual = MaxXP
		} else {
			actual *= 2
		}
	}
	room := MaxXP - p.XP
	if room <= 0 {
		return XPGain{}, nil
	}
	if actual > room {
		actual = room
	}

	oldLevel, oldRank := p.Level, p.Rank
	p.XP += actual
	p.Level = LevelFor(p.XP)
	p.Rank = RankFor(p.XP)

	gained := event(p, models.EventXPGained, now)
	gained.XP = actual
	gained.Surge = surge
	gained.Reason = reason
	events := []models.Event{gained}

	if p.Level > oldLevel {
		t := now
		p.LastLevelUpAt = &t
		ev := event(p, models.EventLeveledUp, now)
		ev.Level = p.Level
		events = append(events, ev)
	}

	// lastRankUpXP stops a replayed crossing of the same boundary from firing twice
	if p.Rank.Above(oldRank) && XPThreshold(p.Rank) > p.LastRankUpXP {
		t := now
		p.LastRankUpXP = p.XP
		p.LastRankUpAt = &t
		ev := event(p, models.EventRankedUp, now)
		ev.Rank = p.Rank
		events = append(events, ev)
	}

	return XPGain{Amount: actual, Surge: surge}, events
}

// ApplyCoins adds delta coins, clamping the balance at zero. It returns the
// change actually applied.
func (e *Engine) ApplyCoins(p *models.UserProgress, delta int64, reason string, now time.Time) (int64, []models.Event) {
	applied := clampedAdd(&p.Coins, delta)
	if applied <= 0 {
		return applied, nil
	}
	ev := event(p, models.EventCoinsGained, now)
	ev.Coins = applied
	ev.Reason = reason
	return applied, []models.Event{ev}
}

// ApplyGems adds delta gems, clamping the balance at zero.
func (e *Engine) ApplyGems(p *models.UserProgress, delta int64, reason string, now time.Time) (int64, []models.Event) {
	applied := clampedAdd(&p.Gems, delta)
	if applied <= 0 {
		return applied, nil
	}
	ev := event(p, models.EventGemsGained, now)
	ev.Gems = applied
	ev.Reason = reason
	return applied, []models.Event{ev}
}

func clampedAdd(balance *int64, delta int64) int64 {
	next := *balance + delta
	if next < 0 {
		next = 0
	}
	applied := next - *balance
	*balance = next
	return applied
}
