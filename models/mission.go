package models

import "time"

type MissionKind string

const (
	MissionInput        MissionKind = "input"
	MissionExercises    MissionKind = "exercises"
	MissionJanus        MissionKind = "janus"
	MissionForgeMandate MissionKind = "forgeMandate"
)

// Valid reports whether k is one of the known mission kinds.
func (k MissionKind) Valid() bool {
	switch k {
	case MissionInput, MissionExercises, MissionJanus, MissionForgeMandate:
		return true
	}
	return false
}

type Difficulty string

const (
	DifficultyLow    Difficulty = "low"
	DifficultyMedium Difficulty = "medium"
	DifficultyHigh   Difficulty = "high"
)

// RewardBundle is what a mission or milestone pays out.
type RewardBundle struct {
	XP    int64 `json:"xp" yaml:"xp"`
	Coins int64 `json:"coins" yaml:"coins"`
	Gems  int64 `json:"gems" yaml:"gems"`
}

// IsZero reports whether the bundle pays nothing.
func (b RewardBundle) IsZero() bool {
	return b.XP == 0 && b.Coins == 0 && b.Gems == 0
}

// Mission is one daily goal. Once Completed is set, Current and Reward never change.
type Mission struct {
	ID          string       `json:"id"`
	Code        string       `json:"code"` // e.g. "forge-mandate"
	Title       string       `json:"title"`
	Kind        MissionKind  `json:"kind"`
	Day         string       `json:"day"`
	Target      int          `json:"target"`
	Current     int          `json:"current"`
	Reward      RewardBundle `json:"reward"`
	Difficulty  Difficulty   `json:"difficulty"`
	WarmupTag   string       `json:"warmup_tag,omitempty"` // opaque, passed through to the UI
	Completed   bool         `json:"completed"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
}

func (m Mission) clone() Mission {
	if m.CompletedAt != nil {
		t := *m.CompletedAt
		m.CompletedAt = &t
	}
	return m
}

// MissionCompletionRecord is an append-only audit row, never updated except for the archive flag.
type MissionCompletionRecord struct {
	ID             string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ExternalUserID string       `gorm:"index;not null" json:"external_user_id"`
	MissionID      string       `gorm:"uniqueIndex;not null" json:"mission_id"`
	MissionKind    MissionKind  `gorm:"type:varchar(16);not null" json:"mission_kind"`
	Day            string       `gorm:"type:varchar(10);index" json:"day"`
	CompletedAt    time.Time    `gorm:"not null" json:"completed_at"`
	RewardEarned   RewardBundle `gorm:"embedded;embeddedPrefix:reward_" json:"reward_earned"`
	Surge          bool         `json:"surge"`

	// Set once the record has been shipped to the R2 archive.
	ArchivedAt *time.Time `gorm:"index" json:"-"`
}
