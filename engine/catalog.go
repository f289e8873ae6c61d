package engine

import (
	_ "embed"
	"fmt"
	"math"
	"sort"

	"engagement-engine/models"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// MissionSpec describes how one mission kind is generated.
type MissionSpec struct {
	Kind           models.MissionKind  `yaml:"kind"`
	Name           string              `yaml:"name"`
	Warmup         string              `yaml:"warmup"`
	MinLevel       int                 `yaml:"min_level"`
	TargetBase     int                 `yaml:"target_base"`
	TargetPerLevel int                 `yaml:"target_per_level"`
	Reward         models.RewardBundle `yaml:"reward"`

	// Derived at load time.
	Code      string `yaml:"-"`
	Title     string `yaml:"-"`
	WarmupTag string `yaml:"-"`
}

// DifficultyTier maps levels up to MaxLevel onto a difficulty. MaxLevel 0 means unbounded.
type DifficultyTier struct {
	Difficulty models.Difficulty `yaml:"difficulty"`
	MaxLevel   int               `yaml:"max_level"`
	Multiplier float64           `yaml:"multiplier"`
}

type StreakMilestone struct {
	Days   int                 `yaml:"days"`
	Reward models.RewardBundle `yaml:"reward"`
}

// Catalog is the static table of missions, difficulty tiers and streak milestones.
type Catalog struct {
	DifficultyTiers  []DifficultyTier  `yaml:"difficulty_tiers"`
	Missions         []MissionSpec     `yaml:"missions"`
	StreakMilestones []StreakMilestone `yaml:"streak_milestones"`
}

// DefaultCatalog parses the embedded catalog. It panics on a malformed embed,
// which can only happen at build time.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", ErrInvalidInput, err)
	}
	if len(c.DifficultyTiers) == 0 {
		return nil, fmt.Errorf("%w: catalog has no difficulty tiers", ErrInvalidInput)
	}
	sort.SliceStable(c.DifficultyTiers, func(i, j int) bool {
		a, b := c.DifficultyTiers[i].MaxLevel, c.DifficultyTiers[j].MaxLevel
		if a == 0 {
			return false
		}
		return b == 0 || a < b
	})

	title := cases.Title(language.English)
	seen := make(map[models.MissionKind]bool)
	for i := range c.Missions {
		m := &c.Missions[i]
		if !m.Kind.Valid() {
			return nil, fmt.Errorf("%w: unknown mission kind %q", ErrInvalidInput, m.Kind)
		}
		if seen[m.Kind] {
			return nil, fmt.Errorf("%w: duplicate mission kind %q", ErrInvalidInput, m.Kind)
		}
		seen[m.Kind] = true
		if m.TargetBase < 0 || m.TargetPerLevel < 0 {
			return nil, fmt.Errorf("%w: negative target for %q", ErrInvalidInput, m.Kind)
		}
		if m.Reward.XP < 0 || m.Reward.Coins < 0 || m.Reward.Gems < 0 {
			return nil, fmt.Errorf("%w: negative reward for %q", ErrInvalidInput, m.Kind)
		}
		if m.MinLevel < 1 {
			m.MinLevel = 1
		}
		if m.Name == "" {
			m.Name = string(m.Kind)
		}
		m.Code = slug.Make(m.Name)
		m.Title = title.String(m.Name)
		m.WarmupTag = slug.Make(m.Warmup)
	}

	sort.Slice(c.StreakMilestones, func(i, j int) bool {
		return c.StreakMilestones[i].Days < c.StreakMilestones[j].Days
	})
	return &c, nil
}

// TierFor returns the difficulty tier for level.
func (c *Catalog) TierFor(level int) DifficultyTier {
	for _, t := range c.DifficultyTiers {
		if t.MaxLevel == 0 || level <= t.MaxLevel {
			return t
		}
	}
	return c.DifficultyTiers[len(c.DifficultyTiers)-1]
}

// MilestoneFor returns the bonus for reaching exactly streak days, if any.
func (c *Catalog) MilestoneFor(streak int) (models.RewardBundle, bool) {
	for _, m := range c.StreakMilestones {
		if m.Days == streak {
			return m.Reward, true
		}
	}
	return models.RewardBundle{}, false
}

func scaleReward(b models.RewardBundle, mult float64) models.RewardBundle {
	if mult <= 0 {
		mult = 1
	}
	scale := func(v int64) int64 { return int64(math.Round(float64(v) * mult)) }
	return models.RewardBundle{XP: scale(b.XP), Coins: scale(b.Coins), Gems: scale(b.Gems)}
}
