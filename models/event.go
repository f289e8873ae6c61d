package models

import "time"

// EventType names a progression event delivered to UI/analytics observers.
type EventType string

const (
	EventXPGained          EventType = "xp_gained"
	EventLeveledUp         EventType = "leveled_up"
	EventRankedUp          EventType = "ranked_up"
	EventCoinsGained       EventType = "coins_gained"
	EventGemsGained        EventType = "gems_gained"
	EventMissionCompleted  EventType = "mission_completed"
	EventMissionsGenerated EventType = "missions_generated"
	EventStreakContinued   EventType = "streak_continued"
	EventStreakLost        EventType = "streak_lost"
	EventStreakFrozen      EventType = "streak_frozen"
	EventHPChanged         EventType = "hp_changed"
	EventBadgeAwarded      EventType = "badge_awarded"
)

// Event is a flat, typed record of something that happened during a transition.
// Only the fields relevant to Type are populated.
type Event struct {
	Type       EventType `json:"type"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`

	XP     int64  `json:"xp,omitempty"`
	Coins  int64  `json:"coins,omitempty"`
	Gems   int64  `json:"gems,omitempty"`
	Surge  bool   `json:"surge,omitempty"`
	Reason string `json:"reason,omitempty"`

	Level int  `json:"level,omitempty"`
	Rank  Rank `json:"rank,omitempty"`

	Streak         int `json:"streak,omitempty"`
	PreviousStreak int `json:"previous_streak,omitempty"`

	HP      int `json:"hp,omitempty"`
	HPDelta int `json:"hp_delta,omitempty"`

	MissionID   string        `json:"mission_id,omitempty"`
	MissionKind MissionKind   `json:"mission_kind,omitempty"`
	Reward      *RewardBundle `json:"reward,omitempty"`

	Badge string `json:"badge,omitempty"`
}
