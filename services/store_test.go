package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"engagement-engine/engine"
	"engagement-engine/models"
	"engagement-engine/testutil"

	"github.com/google/uuid"
)

func TestGormStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore(testutil.OpenTestDB(t))

	if _, err := store.Load(ctx, "nobody"); !errors.Is(err, engine.ErrNotFound) {
		t.Fatalf("Load unknown err=%v", err)
	}

	eng, err := engine.New(engine.DefaultRules(), nil, engine.FixedRandom(1))
	if err != nil {
		t.Fatal(err)
	}
	p := eng.NewUserProgress("user-1")
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	eng.Touch(p, now)
	eng.Rollover(p, now)
	cr := eng.CompleteMission(p, p.Missions[0].ID, now)
	eng.AwardBadges(p, now)
	if err := store.Save(ctx, p, []models.MissionCompletionRecord{*cr.Record}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.ID != p.ID || got.XP != 30 || got.Streak != 1 || got.LastActiveDay != "2026-03-10" {
		t.Fatalf("got=%+v", got)
	}
	if len(got.Missions) != 3 || !got.Missions[0].Completed || got.Missions[0].CompletedAt == nil {
		t.Fatalf("missions not persisted: %+v", got.Missions)
	}
	if !got.HasBadge("FIRST_MISSION") {
		t.Fatalf("badges=%v", got.Badges)
	}

	records, total, err := store.ListCompletions(ctx, "user-1", 1, 10)
	if err != nil || total != 1 || len(records) != 1 {
		t.Fatalf("records=%v total=%d err=%v", records, total, err)
	}
	if records[0].RewardEarned.XP != 30 || records[0].MissionID != p.Missions[0].ID {
		t.Fatalf("record=%+v", records[0])
	}
}

func TestGormStoreCompletionPagingAndArchive(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore(testutil.OpenTestDB(t))
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	var recs []models.MissionCompletionRecord
	for i := 0; i < 5; i++ {
		recs = append(recs, models.MissionCompletionRecord{
			ID:             uuid.NewString(),
			ExternalUserID: "user-1",
			MissionID:      uuid.NewString(),
			MissionKind:    models.MissionInput,
			Day:            base.AddDate(0, 0, i).Format(engine.DayLayout),
			CompletedAt:    base.AddDate(0, 0, i),
			RewardEarned:   models.RewardBundle{XP: 30, Coins: 15},
		})
	}
	if err := store.DB.Create(&recs).Error; err != nil {
		t.Fatal(err)
	}

	page2, total, err := store.ListCompletions(ctx, "user-1", 2, 2)
	if err != nil || total != 5 || len(page2) != 2 {
		t.Fatalf("page2=%d total=%d err=%v", len(page2), total, err)
	}
	if page2[0].Day != "2026-03-12" {
		t.Fatalf("newest-first paging broken: first on page 2 is %s", page2[0].Day)
	}

	pending, err := store.ListUnarchived(ctx, 3)
	if err != nil || len(pending) != 3 || pending[0].Day != "2026-03-10" {
		t.Fatalf("pending=%v err=%v", pending, err)
	}
	ids := []string{pending[0].ID, pending[1].ID, pending[2].ID}
	if err := store.MarkArchived(ctx, ids, base); err != nil {
		t.Fatalf("MarkArchived: %v", err)
	}
	rest, err := store.ListUnarchived(ctx, 10)
	if err != nil || len(rest) != 2 {
		t.Fatalf("rest=%d err=%v", len(rest), err)
	}
}

func TestGormStoreRejectsSecondRecordForMission(t *testing.T) {
	ctx := context.Background()
	store := NewGormStore(testutil.OpenTestDB(t))
	eng, err := engine.New(engine.DefaultRules(), nil, engine.FixedRandom(1))
	if err != nil {
		t.Fatal(err)
	}
	p := eng.NewUserProgress("user-1")
	if err := store.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	eng.Touch(p, now)
	eng.Rollover(p, now)
	cr := eng.CompleteMission(p, p.Missions[0].ID, now)
	if err := store.Save(ctx, p, []models.MissionCompletionRecord{*cr.Record}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// a stale writer replaying the same completion under a new record id
	dup := *cr.Record
	dup.ID = uuid.NewString()
	p.XP += 30
	if err := store.Save(ctx, p, []models.MissionCompletionRecord{dup}); !errors.Is(err, engine.ErrPersistence) {
		t.Fatalf("duplicate save err=%v", err)
	}

	got, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.XP != 30 {
		t.Fatalf("duplicate save was not rolled back: xp=%d", got.XP)
	}
	_, total, err := store.ListCompletions(ctx, "user-1", 1, 10)
	if err != nil || total != 1 {
		t.Fatalf("total=%d err=%v", total, err)
	}
}

func TestGormStoreArchiveErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenTestDB(t)
	store := NewGormStore(db)
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatal(err)
	}
	_ = sqlDB.Close()

	if _, err := store.ListUnarchived(ctx, 10); !errors.Is(err, engine.ErrPersistence) {
		t.Fatalf("ListUnarchived err=%v", err)
	}
	if err := store.MarkArchived(ctx, []string{uuid.NewString()}, time.Now()); !errors.Is(err, engine.ErrPersistence) {
		t.Fatalf("MarkArchived err=%v", err)
	}
}
