package engine

import (
	"fmt"
	"time"
)

// Rules holds the tunable numbers of the engagement economy.
type Rules struct {
	ResetHour int
	Location  *time.Location

	MaxHP             int
	MissPenalty       int // HP lost per incomplete mission at rollover
	RecoverPerMission int
	MinHPThreshold    int

	SurgeChance float64

	FreezeCostGems int64
	FreezeDuration time.Duration
}

func DefaultRules() Rules {
	return Rules{
		ResetHour:         4,
		Location:          time.UTC,
		MaxHP:             100,
		MissPenalty:       10,
		RecoverPerMission: 5,
		MinHPThreshold:    30,
		SurgeChance:       0.10,
		FreezeCostGems:    5,
		FreezeDuration:    24 * time.Hour,
	}
}

// Validate rejects rule sets that would break the engine's invariants.
func (r Rules) Validate() error {
	if r.ResetHour < 0 || r.ResetHour > 23 {
		return fmt.Errorf("%w: reset hour %d outside 0..23", ErrInvalidInput, r.ResetHour)
	}
	if r.MaxHP <= 0 {
		return fmt.Errorf("%w: max hp must be positive", ErrInvalidInput)
	}
	if r.MissPenalty < 0 || r.RecoverPerMission < 0 {
		return fmt.Errorf("%w: hp penalty and recovery must be non-negative", ErrInvalidInput)
	}
	if r.MinHPThreshold < 0 || r.MinHPThreshold > r.MaxHP {
		return fmt.Errorf("%w: min hp threshold %d outside 0..%d", ErrInvalidInput, r.MinHPThreshold, r.MaxHP)
	}
	if r.SurgeChance < 0 || r.SurgeChance > 1 {
		return fmt.Errorf("%w: surge chance %v outside [0,1]", ErrInvalidInput, r.SurgeChance)
	}
	if r.FreezeCostGems < 0 || r.FreezeDuration <= 0 {
		return fmt.Errorf("%w: invalid freeze cost or duration", ErrInvalidInput)
	}
	return nil
}
