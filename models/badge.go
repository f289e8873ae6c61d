package models

// BadgeType: static badge definition. Threshold keys are progress counters,
// all of which must be met.
type BadgeType struct {
	Code        string           `json:"code" yaml:"code"` // e.g., "WEEK_STREAK"
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	Rarity      string           `json:"rarity" yaml:"rarity"` // common, rare, epic, legendary
	Threshold   map[string]int64 `json:"threshold" yaml:"threshold"`
}

// Threshold keys understood by the badge evaluator.
const (
	ThresholdLevel             = "level"
	ThresholdRank              = "rank" // index into RankOrder
	ThresholdStreak            = "streak"
	ThresholdLongestStreak     = "longest_streak"
	ThresholdMissionsCompleted = "missions_completed"
)

// Predefined badge triggers
var BadgeTriggers = []BadgeType{
	{
		Code:        "FIRST_MISSION",
		Name:        "First Steps",
		Description: "Completed your first daily mission",
		Rarity:      "common",
		Threshold:   map[string]int64{ThresholdMissionsCompleted: 1},
	},
	{
		Code:        "WEEK_STREAK",
		Name:        "Week Warrior",
		Description: "Kept a 7 day streak",
		Rarity:      "common",
		Threshold:   map[string]int64{ThresholdLongestStreak: 7},
	},
	{
		Code:        "MONTH_STREAK",
		Name:        "Creature of Habit",
		Description: "Kept a 30 day streak",
		Rarity:      "rare",
		Threshold:   map[string]int64{ThresholdLongestStreak: 30},
	},
	{
		Code:        "CENTURY_STREAK",
		Name:        "Unbroken",
		Description: "Kept a 100 day streak",
		Rarity:      "legendary",
		Threshold:   map[string]int64{ThresholdLongestStreak: 100},
	},
	{
		Code:        "LEVEL_5",
		Name:        "Finding Your Voice",
		Description: "Reached level 5",
		Rarity:      "common",
		Threshold:   map[string]int64{ThresholdLevel: 5},
	},
	{
		Code:        "RANK_B",
		Name:        "Conversationalist",
		Description: "Reached rank B",
		Rarity:      "epic",
		Threshold:   map[string]int64{ThresholdRank: 3},
	},
	{
		Code:        "MISSIONS_100",
		Name:        "Mission Control",
		Description: "Completed 100 daily missions",
		Rarity:      "epic",
		Threshold:   map[string]int64{ThresholdMissionsCompleted: 100},
	},
}
