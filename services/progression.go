package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"time"

	"engagement-engine/engine"
	"engagement-engine/locks"
	"engagement-engine/models"

	"github.com/google/uuid"
)

// EventSink receives events after the state that produced them is saved.
// Publish must not block.
type EventSink interface {
	Publish(evts ...models.Event)
}

type discardSink struct{}

func (discardSink) Publish(...models.Event) {}

// Result is the outcome of one command. Noop means nothing was written;
// Declined names the reason when a valid command had nothing to do.
type Result struct {
	State    *models.UserProgress
	Events   []models.Event
	Noop     bool
	Declined engine.DeclineReason

	Touch      *engine.TouchResult
	Rollover   *engine.RolloverResult
	Mission    *models.Mission
	Record     *models.MissionCompletionRecord
	FreezeEnds *time.Time
}

// ProgressionService is the only entry point for callers. Every command for
// one user runs lock → load → compute → save → publish.
type ProgressionService struct {
	engine   *engine.Engine
	store    Store
	locker   locks.Locker
	sink     EventSink
	clock    engine.Clock
	LockWait time.Duration
}

// NewProgressionService wires the orchestrator. Nil locker, sink or clock
// fall back to an in-process mutex, a discarding sink and the system clock.
func NewProgressionService(eng *engine.Engine, store Store, locker locks.Locker, sink EventSink, clock engine.Clock) *ProgressionService {
	if locker == nil {
		locker = locks.NewKeyedMutex()
	}
	if sink == nil {
		sink = discardSink{}
	}
	if clock == nil {
		clock = engine.SystemClock{}
	}
	return &ProgressionService{
		engine:   eng,
		store:    store,
		locker:   locker,
		sink:     sink,
		clock:    clock,
		LockWait: 5 * time.Second,
	}
}

func (s *ProgressionService) Engine() *engine.Engine { return s.engine }

func (s *ProgressionService) lock(ctx context.Context, externalUserID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.LockWait)
	defer cancel()
	return s.locker.Lock(lockCtx, "progress:"+externalUserID)
}

// EnsureProgressRecord ensures a UserProgress row exists (idempotent)
func (s *ProgressionService) EnsureProgressRecord(ctx context.Context, externalUserID string) (*models.UserProgress, error) {
	if externalUserID == "" {
		return nil, fmt.Errorf("%w: empty user id", engine.ErrInvalidInput)
	}
	unlock, err := s.lock(ctx, externalUserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	prog, err := s.store.Load(ctx, externalUserID)
	if err == nil {
		return prog, nil
	}
	if !errors.Is(err, engine.ErrNotFound) {
		return nil, err
	}

	prog = s.engine.NewUserProgress(externalUserID)
	if err := s.store.Create(ctx, prog); err != nil {
		log.Printf("❌ [PROGRESSION] create record for %s failed: %v", externalUserID, err)
		return nil, err
	}
	log.Printf("🎮 [PROGRESSION] Created progress record for %s", externalUserID)
	return prog, nil
}

// GetProgress loads the stored state without side effects.
func (s *ProgressionService) GetProgress(ctx context.Context, externalUserID string) (*models.UserProgress, error) {
	if externalUserID == "" {
		return nil, fmt.Errorf("%w: empty user id", engine.ErrInvalidInput)
	}
	return s.store.Load(ctx, externalUserID)
}

// Snapshot is the read model served to clients.
type Snapshot struct {
	State            *models.UserProgress `json:"state"`
	Day              string               `json:"day"`
	NextLevelXP      int64                `json:"next_level_xp"`
	NextRank         models.Rank          `json:"next_rank,omitempty"`
	NextRankXP       int64                `json:"next_rank_xp,omitempty"`
	MaxHP            int                  `json:"max_hp"`
	CanAccessPremium bool                 `json:"can_access_premium"`
	FreezeActive     bool                 `json:"freeze_active"`
	TodayMissions    []models.Mission     `json:"today_missions"`
}

// GetSnapshot returns the stored state plus derived read-only fields. Missions
// from a previous day are not reported as today's; rollover only happens on a command.
func (s *ProgressionService) GetSnapshot(ctx context.Context, externalUserID string) (*Snapshot, error) {
	prog, err := s.GetProgress(ctx, externalUserID)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	snap := &Snapshot{
		State:            prog,
		Day:              s.engine.DayOf(now),
		NextLevelXP:      engine.XPForLevel(prog.Level + 1),
		MaxHP:            s.engine.Rules().MaxHP,
		CanAccessPremium: s.engine.CanAccessPremiumFeature(prog),
		FreezeActive:     s.engine.FreezeActive(prog, now),
		TodayMissions:    []models.Mission{},
	}
	if idx := prog.Rank.Index(); idx >= 0 && idx+1 < len(models.RankOrder) {
		snap.NextRank = models.RankOrder[idx+1]
		snap.NextRankXP = engine.XPThreshold(snap.NextRank)
	}
	if prog.MissionDay == snap.Day {
		snap.TodayMissions = prog.Missions
	}
	return snap, nil
}

// DailyCheckIn touches the streak and rolls the mission set onto today.
func (s *ProgressionService) DailyCheckIn(ctx context.Context, externalUserID string) (*Result, error) {
	return s.mutate(ctx, externalUserID, func(p *models.UserProgress, now time.Time, res *Result) {
		touch, rollover := s.prepareDay(p, now, res)
		if touch.Noop && !touch.Frozen && !rollover.Generated {
			res.Declined = engine.DeclineSameDay
		}
	})
}

// FreezeStreak buys a streak freeze with gems.
func (s *ProgressionService) FreezeStreak(ctx context.Context, externalUserID string) (*Result, error) {
	return s.mutate(ctx, externalUserID, func(p *models.UserProgress, now time.Time, res *Result) {
		fr := s.engine.Freeze(p, now)
		res.Events = append(res.Events, fr.Events...)
		if !fr.Success {
			res.Declined = fr.Reason
		}
		if !fr.Expiry.IsZero() {
			expiry := fr.Expiry
			res.FreezeEnds = &expiry
		}
	})
}

// RecordExerciseProgress advances today's mission of kind by delta. A mission
// that reaches its target is completed and paid.
func (s *ProgressionService) RecordExerciseProgress(ctx context.Context, externalUserID string, kind models.MissionKind, delta int) (*Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown mission kind %q", engine.ErrInvalidInput, kind)
	}
	if delta <= 0 {
		return nil, fmt.Errorf("%w: progress delta must be positive, got %d", engine.ErrInvalidInput, delta)
	}
	return s.mutate(ctx, externalUserID, func(p *models.UserProgress, now time.Time, res *Result) {
		s.prepareDay(p, now, res)
		pr := s.engine.RecordProgress(p, kind, delta, now)
		res.Events = append(res.Events, pr.Events...)
		res.Mission = pr.Mission
		res.Declined = pr.Reason
		if pr.Completion != nil && pr.Completion.Completed {
			res.Record = pr.Completion.Record
		}
	})
}

// CompleteMission pays a mission of today's set exactly once.
func (s *ProgressionService) CompleteMission(ctx context.Context, externalUserID, missionID string) (*Result, error) {
	if _, err := uuid.Parse(missionID); err != nil {
		return nil, fmt.Errorf("%w: malformed mission id %q", engine.ErrInvalidInput, missionID)
	}
	return s.mutate(ctx, externalUserID, func(p *models.UserProgress, now time.Time, res *Result) {
		s.prepareDay(p, now, res)
		cr := s.engine.CompleteMission(p, missionID, now)
		res.Events = append(res.Events, cr.Events...)
		res.Declined = cr.Reason
		res.Record = cr.Record
		if m := p.MissionByID(missionID); m != nil {
			cp := *m
			res.Mission = &cp
		}
	})
}

// GrantXP credits XP from an administrator. No surge roll, no streak touch.
func (s *ProgressionService) GrantXP(ctx context.Context, externalUserID string, amount int64, reason string) (*Result, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: xp grant must be positive, got %d", engine.ErrInvalidInput, amount)
	}
	if amount > engine.MaxXP {
		return nil, fmt.Errorf("%w: xp grant %d exceeds cap %d", engine.ErrInvalidInput, amount, engine.MaxXP)
	}
	if reason == "" {
		reason = "admin_grant"
	}
	return s.mutate(ctx, externalUserID, func(p *models.UserProgress, now time.Time, res *Result) {
		_, evs := s.engine.GrantXP(p, amount, reason, now)
		res.Events = append(res.Events, evs...)
	})
}

// ListCompletions returns a page of the user's completion history and the total count.
func (s *ProgressionService) ListCompletions(ctx context.Context, externalUserID string, page, size int) ([]models.MissionCompletionRecord, int64, error) {
	if externalUserID == "" {
		return nil, 0, fmt.Errorf("%w: empty user id", engine.ErrInvalidInput)
	}
	return s.store.ListCompletions(ctx, externalUserID, page, size)
}

// prepareDay is the activity step shared by check-in and mission commands:
// touch the streak, pay any milestone, then lazily roll the missions over.
func (s *ProgressionService) prepareDay(p *models.UserProgress, now time.Time, res *Result) (engine.TouchResult, engine.RolloverResult) {
	touch := s.engine.Touch(p, now)
	res.Events = append(res.Events, touch.Events...)
	if touch.Milestone != nil {
		_, evs := s.engine.PayBundle(p, *touch.Milestone, "streak_milestone", now)
		res.Events = append(res.Events, evs...)
	}

	rollover := s.engine.Rollover(p, now)
	res.Events = append(res.Events, rollover.Events...)

	res.Touch = &touch
	res.Rollover = &rollover
	return touch, rollover
}

// mutate runs one serialized read-compute-write cycle. Events reach the sink
// only after the save succeeded.
func (s *ProgressionService) mutate(ctx context.Context, externalUserID string, apply func(p *models.UserProgress, now time.Time, res *Result)) (*Result, error) {
	if externalUserID == "" {
		return nil, fmt.Errorf("%w: empty user id", engine.ErrInvalidInput)
	}
	unlock, err := s.lock(ctx, externalUserID)
	if err != nil {
		log.Printf("⏳ [PROGRESSION] lock for %s not acquired: %v", externalUserID, err)
		return nil, err
	}
	defer unlock()

	loaded, err := s.store.Load(ctx, externalUserID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	next := loaded.Clone()
	res := &Result{}
	apply(next, now, res)
	res.Events = append(res.Events, s.engine.AwardBadges(next, now)...)

	if reflect.DeepEqual(loaded, next) {
		res.Noop = true
		res.State = loaded
		return res, nil
	}

	var records []models.MissionCompletionRecord
	if res.Record != nil {
		records = append(records, *res.Record)
	}
	if err := s.store.Save(ctx, next, records); err != nil {
		log.Printf("❌ [PROGRESSION] save for %s failed, %d events withheld: %v", externalUserID, len(res.Events), err)
		if !errors.Is(err, engine.ErrPersistence) {
			err = fmt.Errorf("%w: %v", engine.ErrPersistence, err)
		}
		return nil, err
	}

	res.State = next
	s.sink.Publish(res.Events...)
	return res, nil
}
