package models

import (
	"time"

	"gorm.io/gorm"
)

// Rank is the letter tier derived from cumulative XP. Ordering follows RankOrder.
type Rank string

const (
	RankE  Rank = "E"
	RankD  Rank = "D"
	RankC  Rank = "C"
	RankB  Rank = "B"
	RankA  Rank = "A"
	RankS  Rank = "S"
	RankSS Rank = "SS"
)

// RankOrder lists ranks from lowest to highest.
var RankOrder = []Rank{RankE, RankD, RankC, RankB, RankA, RankS, RankSS}

// Index returns the position of r in RankOrder, or -1 for an unknown rank.
func (r Rank) Index() int {
	for i, v := range RankOrder {
		if v == r {
			return i
		}
	}
	return -1
}

// Above reports whether r is strictly higher than other.
func (r Rank) Above(other Rank) bool {
	return r.Index() > other.Index()
}

// UserProgress is the per-user aggregate root for progression and engagement.
// It is persisted as one row; missions and badges ride along as JSON columns.
type UserProgress struct {
	ID             string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to profile service

	// Core progression
	XP           int64 `json:"xp" gorm:"default:0"`
	Level        int   `json:"level" gorm:"default:1"`
	Rank         Rank  `json:"rank" gorm:"type:varchar(4);default:'E'"`
	LastRankUpXP int64 `json:"last_rank_up_xp" gorm:"default:0"`

	// Currencies
	Coins int64 `json:"coins" gorm:"default:0"`
	Gems  int64 `json:"gems" gorm:"default:0"`

	HP int `json:"hp"`

	// Streak. LastActiveDay is a "2006-01-02" day key under the reset-hour rule;
	// empty means the user has never been active.
	Streak             int        `json:"streak" gorm:"default:0"`
	LongestStreak      int        `json:"longest_streak" gorm:"default:0"`
	LastActiveDay      string     `json:"last_active_day,omitempty" gorm:"type:varchar(10)"`
	StreakFreezeExpiry *time.Time `json:"streak_freeze_expiry,omitempty"`

	// Daily missions, superseded wholesale at each day boundary.
	MissionDay string    `json:"mission_day,omitempty" gorm:"type:varchar(10)"`
	Missions   []Mission `json:"missions" gorm:"type:text;serializer:json"`

	TotalMissionsCompleted int64    `json:"total_missions_completed" gorm:"default:0"`
	Badges                 []string `json:"badges" gorm:"type:text;serializer:json"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`
	LastRankUpAt  *time.Time `json:"last_rank_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Clone returns a deep copy so a transition can be computed without touching the loaded value.
func (p *UserProgress) Clone() *UserProgress {
	cp := *p
	if p.StreakFreezeExpiry != nil {
		t := *p.StreakFreezeExpiry
		cp.StreakFreezeExpiry = &t
	}
	if p.LastLevelUpAt != nil {
		t := *p.LastLevelUpAt
		cp.LastLevelUpAt = &t
	}
	if p.LastRankUpAt != nil {
		t := *p.LastRankUpAt
		cp.LastRankUpAt = &t
	}
	if p.Missions != nil {
		cp.Missions = make([]Mission, len(p.Missions))
		for i, m := range p.Missions {
			cp.Missions[i] = m.clone()
		}
	}
	if p.Badges != nil {
		cp.Badges = make([]string, len(p.Badges))
		copy(cp.Badges, p.Badges)
	}
	return &cp
}

// HasBadge reports whether code was already awarded.
func (p *UserProgress) HasBadge(code string) bool {
	for _, b := range p.Badges {
		if b == code {
			return true
		}
	}
	return false
}

// MissionByID returns a pointer into p.Missions, or nil.
func (p *UserProgress) MissionByID(id string) *Mission {
	for i := range p.Missions {
		if p.Missions[i].ID == id {
			return &p.Missions[i]
		}
	}
	return nil
}

// MissionByKind returns the first mission of the given kind, or nil.
func (p *UserProgress) MissionByKind(kind MissionKind) *Mission {
	for i := range p.Missions {
		if p.Missions[i].Kind == kind {
			return &p.Missions[i]
		}
	}
	return nil
}
