package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"engagement-engine/models"

	"github.com/google/uuid"
)

// ArchiveSource is the part of the store the archiver reads and flags.
type ArchiveSource interface {
	ListUnarchived(ctx context.Context, limit int) ([]models.MissionCompletionRecord, error)
	MarkArchived(ctx context.Context, ids []string, at time.Time) error
}

// ObjectUploader stores one object; utils.R2Client implements it.
type ObjectUploader interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// CompletionArchiver ships completion records to object storage as NDJSON,
// one object per mission day per run.
type CompletionArchiver struct {
	Source    ArchiveSource
	Uploader  ObjectUploader
	BatchSize int
	Now       func() time.Time
}

func NewCompletionArchiver(source ArchiveSource, uploader ObjectUploader, batchSize int) *CompletionArchiver {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &CompletionArchiver{Source: source, Uploader: uploader, BatchSize: batchSize, Now: time.Now}
}

// RunOnce archives one batch and returns how many records were shipped.
// A day whose upload fails stays unarchived and is retried next run.
func (a *CompletionArchiver) RunOnce(ctx context.Context) (int, error) {
	records, err := a.Source.ListUnarchived(ctx, a.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list unarchived: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	byDay := make(map[string][]models.MissionCompletionRecord)
	for _, r := range records {
		byDay[r.Day] = append(byDay[r.Day], r)
	}
	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	shipped := 0
	var firstErr error
	for _, day := range days {
		group := byDay[day]
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		ids := make([]string, 0, len(group))
		for _, r := range group {
			if err := enc.Encode(r); err != nil {
				return shipped, fmt.Errorf("encode record %s: %w", r.ID, err)
			}
			ids = append(ids, r.ID)
		}

		key := fmt.Sprintf("completions/%s/%s.ndjson", day, uuid.NewString())
		if err := a.Uploader.Put(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
			log.Printf("❌ [ARCHIVE] upload %s failed: %v", key, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if err := a.Source.MarkArchived(ctx, ids, a.Now()); err != nil {
			// the object exists but the rows were not flagged; the next run re-ships them
			log.Printf("❌ [ARCHIVE] mark %d records archived failed: %v", len(ids), err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		shipped += len(ids)
		log.Printf("✅ [ARCHIVE] Shipped %d completion(s) to %s", len(ids), key)
	}
	return shipped, firstErr
}
