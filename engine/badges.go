package engine

import (
	"time"

	"engagement-engine/models"
)

// AwardBadges checks all badge triggers after a progress update and awards
// the ones newly met. Each badge is awarded at most once.
func (e *Engine) AwardBadges(p *models.UserProgress, now time.Time) []models.Event {
	var events []models.Event
	for _, trigger := range models.BadgeTriggers {
		if p.HasBadge(trigger.Code) || !meetsThreshold(p, trigger.Threshold) {
			continue
		}
		p.Badges = append(p.Badges, trigger.Code)
		ev := event(p, models.EventBadgeAwarded, now)
		ev.Badge = trigger.Code
		events = append(events, ev)
	}
	return events
}

func meetsThreshold(p *models.UserProgress, req map[string]int64) bool {
	if len(req) == 0 {
		return false
	}
	for key, required := range req {
		var have int64
		switch key {
		case models.ThresholdLevel:
			have = int64(p.Level)
		case models.ThresholdRank:
			have = int64(p.Rank.Index())
		case models.ThresholdStreak:
			have = int64(p.Streak)
		case models.ThresholdLongestStreak:
			have = int64(p.LongestStreak)
		case models.ThresholdMissionsCompleted:
			have = p.TotalMissionsCompleted
		default:
			return false
		}
		if have < required {
			return false
		}
	}
	return true
}
