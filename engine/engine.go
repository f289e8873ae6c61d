// Package engine is the pure progression and engagement core: XP ledger,
// streak tracker, health economy, daily missions and reward distribution.
// Every transition mutates the *models.UserProgress it is given and returns
// the events it produced. Nothing here performs I/O or reads the wall clock.
package engine

import (
	"time"

	"engagement-engine/models"

	"github.com/google/uuid"
)

type Engine struct {
	rules   Rules
	catalog *Catalog
	rnd     RandomSource
}

// New builds an engine. A nil catalog or random source falls back to the defaults.
func New(rules Rules, catalog *Catalog, rnd RandomSource) (*Engine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if rules.Location == nil {
		rules.Location = time.UTC
	}
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if rnd == nil {
		rnd = DefaultRandom()
	}
	return &Engine{rules: rules, catalog: catalog, rnd: rnd}, nil
}

func (e *Engine) Rules() Rules { return e.rules }

func (e *Engine) Catalog() *Catalog { return e.catalog }

func (e *Engine) DayOf(t time.Time) string { return e.rules.DayOf(t) }

// NewUserProgress returns the initial state for a user: zeroed counters, full HP.
func (e *Engine) NewUserProgress(externalUserID string) *models.UserProgress {
	return &models.UserProgress{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		Level:          1,
		Rank:           models.RankE,
		HP:             e.rules.MaxHP,
		Missions:       []models.Mission{},
		Badges:         []string{},
	}
}

func event(p *models.UserProgress, t models.EventType, now time.Time) models.Event {
	return models.Event{Type: t, UserID: p.ExternalUserID, OccurredAt: now}
}
