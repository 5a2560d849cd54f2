package recording

import "record-gateway/internal/record"

// Store is the persistence abstraction behind the tracking table.
// Implementations need not be safe for concurrent use; the Repository
// serializes access.
type Store interface {
	GetRecord(id string) (*record.Record, bool)
	SetRecord(rec *record.Record)
	DeleteRecord(id string)
	ListRecordIDs() []string
}

// InMemoryStore is an in-memory implementation of Store keyed by record id.
type InMemoryStore struct {
	records map[string]*record.Record
}

// NewInMemoryStore returns a new empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*record.Record),
	}
}

// GetRecord implements Store.GetRecord.
func (s *InMemoryStore) GetRecord(id string) (*record.Record, bool) {
	rec, ok := s.records[id]
	return rec, ok
}

// SetRecord implements Store.SetRecord.
func (s *InMemoryStore) SetRecord(rec *record.Record) {
	s.records[rec.ID()] = rec
}

// DeleteRecord implements Store.DeleteRecord.
func (s *InMemoryStore) DeleteRecord(id string) {
	delete(s.records, id)
}

// ListRecordIDs implements Store.ListRecordIDs.
func (s *InMemoryStore) ListRecordIDs() []string {
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	return ids
}
