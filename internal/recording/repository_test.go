package recording

import (
	"errors"
	"sync"
	"testing"
	"time"

	"record-gateway/internal/record"
)

func placed(id, vhost, app string, created time.Time) *record.Record {
	rec := record.New(record.Request{ID: id, StreamName: "s"})
	rec.Place(vhost, app)
	rec.Update(func(t *record.Telemetry) { t.CreatedTime = created })
	return rec
}

func TestInMemoryRepository_Add(t *testing.T) {
	repo := NewInMemoryRepository()
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		if err := repo.Add(placed("r1", "default", "app", now)); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if _, ok := repo.Get("default", "app", "r1"); !ok {
			t.Error("record not found after Add")
		}
	})

	t.Run("duplicate_id_rejected_across_apps", func(t *testing.T) {
		err := repo.Add(placed("r1", "default", "other", now))
		if !errors.Is(err, ErrRecordExists) {
			t.Errorf("expected ErrRecordExists, got %v", err)
		}
	})
}

func TestInMemoryRepository_Get_scoped_to_vhost_app(t *testing.T) {
	repo := NewInMemoryRepository()
	_ = repo.Add(placed("r1", "default", "app", time.Now()))

	if _, ok := repo.Get("default", "other", "r1"); ok {
		t.Error("record should not be visible from another app")
	}
	if _, ok := repo.Get("studio", "app", "r1"); ok {
		t.Error("record should not be visible from another vhost")
	}
	if _, ok := repo.Get("default", "app", "missing"); ok {
		t.Error("expected ok false for missing id")
	}
}

func TestInMemoryRepository_List(t *testing.T) {
	repo := NewInMemoryRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = repo.Add(placed("c", "default", "app", base.Add(2*time.Second)))
	_ = repo.Add(placed("b", "default", "app", base))
	_ = repo.Add(placed("a", "default", "app", base))
	_ = repo.Add(placed("x", "default", "other", base))

	got := repo.List("default", "app")
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].ID() != "a" || got[1].ID() != "b" || got[2].ID() != "c" {
		t.Errorf("expected order a,b,c got %s,%s,%s", got[0].ID(), got[1].ID(), got[2].ID())
	}

	if n := len(repo.List("studio", "app")); n != 0 {
		t.Errorf("expected empty list, got %d", n)
	}
}

func TestInMemoryRepository_Remove_and_ActiveCount(t *testing.T) {
	repo := NewInMemoryRepository()
	r1 := placed("r1", "default", "app", time.Now())
	r2 := placed("r2", "default", "app", time.Now())
	_ = repo.Add(r1)
	_ = repo.Add(r2)

	if n := repo.ActiveCount(); n != 2 {
		t.Errorf("ActiveCount = %d, want 2", n)
	}

	r2.Update(func(t *record.Telemetry) { t.State = record.StateStopped })
	if n := repo.ActiveCount(); n != 1 {
		t.Errorf("ActiveCount after stop = %d, want 1", n)
	}

	repo.Remove("r2")
	repo.Remove("missing")
	if _, ok := repo.Get("default", "app", "r2"); ok {
		t.Error("r2 should be removed")
	}
}

func TestInMemoryRepository_concurrent_access(t *testing.T) {
	repo := NewInMemoryRepository()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = repo.Add(placed(string(rune('a'+i)), "default", "app", time.Now()))
		}(i)
		go func() {
			defer wg.Done()
			_ = repo.List("default", "app")
			_ = repo.ActiveCount()
		}()
	}
	wg.Wait()

	if n := len(repo.List("default", "app")); n != 20 {
		t.Errorf("expected 20 records, got %d", n)
	}
}
