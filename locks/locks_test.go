package locks

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"engagement-engine/engine"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(context.Background(), "user-1")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()
	if counter != 50 {
		t.Fatalf("counter=%d, want 50 (lost updates)", counter)
	}
}

func TestKeyedMutexHonorsContext(t *testing.T) {
	m := NewKeyedMutex()
	unlock, err := m.Lock(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.Lock(ctx, "user-1"); !errors.Is(err, engine.ErrLockTimeout) || !engine.IsRetryable(err) {
		t.Fatalf("err=%v, want retryable lock timeout", err)
	}

	other, err := m.Lock(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("independent key blocked: %v", err)
	}
	other()
}

func TestKeyedMutexUnlockIsIdempotent(t *testing.T) {
	m := NewKeyedMutex()
	unlock, _ := m.Lock(context.Background(), "k")
	unlock()
	unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	again, err := m.Lock(ctx, "k")
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}

func TestKeyedMutexPrune(t *testing.T) {
	m := NewKeyedMutex()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	release, _ := m.Lock(context.Background(), "idle")
	release()
	held, _ := m.Lock(context.Background(), "held")
	defer held()

	now = now.Add(time.Hour)
	if n := m.Prune(10 * time.Minute); n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	if m.Len() != 1 {
		t.Fatalf("len=%d, held key must survive", m.Len())
	}
}

func TestRedisLocker(t *testing.T) {
	url := os.Getenv("ENGAGE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("ENGAGE_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	client, err := Connect(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unreachable: %v", err)
	}

	l := NewRedisLocker(client, 5*time.Second)
	unlock, err := l.Lock(ctx, "test-user")
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(short, "test-user"); !errors.Is(err, engine.ErrLockTimeout) {
		t.Fatalf("second lock err=%v", err)
	}

	unlock()
	again, err := l.Lock(ctx, "test-user")
	if err != nil {
		t.Fatalf("relock after release: %v", err)
	}
	again()
}
