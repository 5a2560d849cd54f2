package recording

import (
	"errors"
	"sort"
	"sync"

	"record-gateway/internal/record"
)

// Repository is the concurrency-safe tracking table of recording tasks.
type Repository interface {
	// Add registers rec. It fails with ErrRecordExists when a record with the
	// same id is already tracked, in any virtual host or application.
	Add(rec *record.Record) error

	// Get returns the record with the given id owned by vhost/app.
	Get(vhost, app, id string) (*record.Record, bool)

	// List returns the records owned by vhost/app ordered by creation time,
	// then id.
	List(vhost, app string) []*record.Record

	// Remove drops a record from the table. Removing an unknown id is a no-op.
	Remove(id string)

	// ActiveCount returns the number of records that have not finished.
	// Used for metrics.
	ActiveCount() int
}

var (
	// ErrRecordExists is returned when starting a record whose id is taken.
	ErrRecordExists = errors.New("record already exists")

	// ErrRecordNotFound is returned when no record matches the id.
	ErrRecordNotFound = errors.New("record not found")
)

// InMemoryRepository is a concurrency-safe Repository over a Store.
type InMemoryRepository struct {
	mu    sync.RWMutex
	store Store
}

// NewInMemoryRepository constructs a repository with a default in-memory store.
func NewInMemoryRepository() *InMemoryRepository {
	return NewInMemoryRepositoryWithStore(NewInMemoryStore())
}

// NewInMemoryRepositoryWithStore constructs a repository that uses the given Store.
func NewInMemoryRepositoryWithStore(store Store) *InMemoryRepository {
	return &InMemoryRepository{store: store}
}

// Add implements Repository.Add.
func (r *InMemoryRepository) Add(rec *record.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.store.GetRecord(rec.ID()); exists {
		return ErrRecordExists
	}
	r.store.SetRecord(rec)
	return nil
}

// Get implements Repository.Get.
func (r *InMemoryRepository) Get(vhost, app, id string) (*record.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.store.GetRecord(id)
	if !ok || rec.VHost() != vhost || rec.Application() != app {
		return nil, false
	}
	return rec, true
}

// List implements Repository.List.
func (r *InMemoryRepository) List(vhost, app string) []*record.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type entry struct {
		rec  *record.Record
		snap record.Snapshot
	}
	var entries []entry
	for _, id := range r.store.ListRecordIDs() {
		rec, ok := r.store.GetRecord(id)
		if !ok {
			continue
		}
		snap := rec.Snapshot()
		if snap.VHost != vhost || snap.Application != app {
			continue
		}
		entries = append(entries, entry{rec: rec, snap: snap})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].snap, entries[j].snap
		if !a.Telemetry.CreatedTime.Equal(b.Telemetry.CreatedTime) {
			return a.Telemetry.CreatedTime.Before(b.Telemetry.CreatedTime)
		}
		return a.Request.ID < b.Request.ID
	})

	out := make([]*record.Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.rec)
	}
	return out
}

// Remove implements Repository.Remove.
func (r *InMemoryRepository) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store.DeleteRecord(id)
}

// ActiveCount implements Repository.ActiveCount.
func (r *InMemoryRepository) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, id := range r.store.ListRecordIDs() {
		if rec, ok := r.store.GetRecord(id); ok && !rec.State().Finished() {
			n++
		}
	}
	return n
}
