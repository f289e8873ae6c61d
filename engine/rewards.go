package engine

import (
	"time"

	"engagement-engine/models"

	"github.com/google/uuid"
)

// CompletionResult is the outcome of completing a mission.
type CompletionResult struct {
	Completed bool
	Reason    DeclineReason
	Record    *models.MissionCompletionRecord
	Events    []models.Event
}

// CompleteMission pays a mission's reward exactly once. Unknown, stale or
// already completed missions decline with no state change.
func (e *Engine) CompleteMission(p *models.UserProgress, missionID string, now time.Time) CompletionResult {
	m := p.MissionByID(missionID)
	if m == nil || m.Day != p.MissionDay || m.Day != e.rules.DayOf(now) {
		return CompletionResult{Reason: DeclineMissionNotFound}
	}
	if m.Completed {
		return CompletionResult{Reason: DeclineAlreadyCompleted}
	}

	completedAt := now
	m.Completed = true
	m.CompletedAt = &completedAt
	m.Current = m.Target
	mission := *m

	var events []models.Event
	earned, surge, payEvents := e.pay(p, mission.Reward, true, "mission_"+mission.Code, now)
	events = append(events, payEvents...)
	events = append(events, e.Recover(p, e.rules.RecoverPerMission, now)...)
	p.TotalMissionsCompleted++

	record := &models.MissionCompletionRecord{
		ID:             uuid.NewString(),
		ExternalUserID: p.ExternalUserID,
		MissionID:      mission.ID,
		MissionKind:    mission.Kind,
		Day:            mission.Day,
		CompletedAt:    now,
		RewardEarned:   earned,
		Surge:          surge,
	}

	ev := event(p, models.EventMissionCompleted, now)
	ev.MissionID = mission.ID
	ev.MissionKind = mission.Kind
	ev.Reward = &earned
	ev.Surge = surge
	events = append(events, ev)

	return CompletionResult{Completed: true, Record: record, Events: events}
}

// ProgressResult is the outcome of recording exercise progress.
type ProgressResult struct {
	Mission    *models.Mission
	Reason     DeclineReason
	Completion *CompletionResult
	Events     []models.Event
}

// RecordProgress advances the current day's mission of kind by delta, capped
// at its target. Reaching the target completes the mission through
// CompleteMission. delta must be positive; validation is the caller's job.
func (e *Engine) RecordProgress(p *models.UserProgress, kind models.MissionKind, delta int, now time.Time) ProgressResult {
	m := p.MissionByKind(kind)
	if m == nil || m.Day != e.rules.DayOf(now) {
		return ProgressResult{Reason: DeclineMissionNotFound}
	}
	if m.Completed {
		cp := *m
		return ProgressResult{Mission: &cp, Reason: DeclineAlreadyCompleted}
	}

	m.Current += delta
	if m.Current > m.Target {
		m.Current = m.Target
	}
	res := ProgressResult{}
	if m.Current >= m.Target {
		c := e.CompleteMission(p, m.ID, now)
		res.Completion = &c
		res.Events = c.Events
	}
	cp := *p.MissionByID(m.ID)
	res.Mission = &cp
	return res
}

// PayBundle credits a bonus bundle such as a streak milestone. XP from a bonus
// bundle never surges.
func (e *Engine) PayBundle(p *models.UserProgress, b models.RewardBundle, reason string, now time.Time) (models.RewardBundle, []models.Event) {
	earned, _, events := e.pay(p, b, false, reason, now)
	return earned, events
}

func (e *Engine) pay(p *models.UserProgress, b models.RewardBundle, allowSurge bool, reason string, now time.Time) (models.RewardBundle, bool, []models.Event) {
	var (
		gain   XPGain
		events []models.Event
		evs    []models.Event
	)
	if allowSurge {
		gain, evs = e.ApplyXP(p, b.XP, reason, now)
	} else {
		gain, evs = e.GrantXP(p, b.XP, reason, now)
	}
	events = append(events, evs...)

	coins, evs := e.ApplyCoins(p, b.Coins, reason, now)
	events = append(events, evs...)
	gems, evs := e.ApplyGems(p, b.Gems, reason, now)
	events = append(events, evs...)

	return models.RewardBundle{XP: gain.Amount, Coins: coins, Gems: gems}, gain.Surge, events
}
