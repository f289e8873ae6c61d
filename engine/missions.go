package engine

import (
	"time"

	"engagement-engine/models"

	"github.com/google/uuid"
)

var missionNamespace = uuid.MustParse("6f1c7a52-3b0e-5d8a-9e43-2a61c0d9b7f4")

// MissionID is the deterministic id of a user's mission of kind on day.
func MissionID(externalUserID, day string, kind models.MissionKind) string {
	return uuid.NewSHA1(missionNamespace, []byte(externalUserID+"/"+day+"/"+string(kind))).String()
}

// RolloverResult reports what a day-boundary check did.
type RolloverResult struct {
	Day        string
	RolledOver bool // a previous day's set was superseded
	Generated  bool
	Missed     int // incomplete missions penalized from the previous day
	Events     []models.Event
}

// Rollover lazily moves the user's missions onto the day of now. When the
// stored set belongs to an earlier day, HP decay is computed against that set
// first and only then is the new set generated. Same-day calls and calls where
// the clock appears to have gone backwards are no-ops.
func (e *Engine) Rollover(p *models.UserProgress, now time.Time) RolloverResult {
	today := e.rules.DayOf(now)
	res := RolloverResult{Day: today}

	if p.MissionDay != "" {
		gap, ok := DaysBetween(p.MissionDay, today)
		if ok && (gap < 0 || (gap == 0 && len(p.Missions) > 0)) {
			return res
		}
		if ok && gap > 0 {
			res.RolledOver = true
			for _, m := range p.Missions {
				if !m.Completed {
					res.Missed++
				}
			}
			res.Events = append(res.Events, e.Decay(p, res.Missed, now)...)
		}
	}

	p.Missions = e.GenerateMissions(p, today)
	p.MissionDay = today
	res.Generated = true

	ev := event(p, models.EventMissionsGenerated, now)
	ev.Level = p.Level
	res.Events = append(res.Events, ev)
	return res
}

// GenerateMissions builds the mission set for day from the stored level.
// The same user, day and level always produce the same set.
func (e *Engine) GenerateMissions(p *models.UserProgress, day string) []models.Mission {
	level := p.Level
	if level < 1 {
		level = 1
	}
	tier := e.catalog.TierFor(level)

	missions := make([]models.Mission, 0, len(e.catalog.Missions))
	for _, ms := range e.catalog.Missions {
		if level < ms.MinLevel {
			continue
		}
		target := ms.TargetBase + ms.TargetPerLevel*level
		if target < 1 {
			target = 1
		}
		missions = append(missions, models.Mission{
			ID:         MissionID(p.ExternalUserID, day, ms.Kind),
			Code:       ms.Code,
			Title:      ms.Title,
			Kind:       ms.Kind,
			Day:        day,
			Target:     target,
			Reward:     scaleReward(ms.Reward, tier.Multiplier),
			Difficulty: tier.Difficulty,
			WarmupTag:  ms.WarmupTag,
		})
	}
	return missions
}
