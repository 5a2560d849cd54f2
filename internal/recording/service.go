package recording

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"record-gateway/internal/record"
	"record-gateway/internal/serdes"
)

var (
	// ErrStreamNameRequired is returned when a start request names no stream.
	ErrStreamNameRequired = errors.New("stream name is required")

	// ErrSplitConflict is returned when both interval and schedule are set.
	ErrSplitConflict = errors.New("interval and schedule cannot be used together")

	// ErrInvalidInterval is returned for a negative split interval.
	ErrInvalidInterval = errors.New("interval must not be negative")

	// ErrIDRequired is returned when a stop request carries no id.
	ErrIDRequired = errors.New("record id is required")

	// ErrNotRecording is returned when stopping a record that already finished.
	ErrNotRecording = errors.New("record is not recording")

	// ErrStillRecording is returned when removing a record that has not finished.
	ErrStillRecording = errors.New("record is still recording")
)

// Archiver keeps the final status document of finished records.
type Archiver interface {
	Save(ctx context.Context, vhost, app, id, state string, doc []byte) error
}

// Service owns the tracking table and hands records to the engine.
type Service struct {
	repo    Repository
	engine  Engine
	archive Archiver
	log     *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService returns a Service. archive may be nil to disable archiving.
func NewService(repo Repository, engine Engine, archive Archiver, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:    repo,
		engine:  engine,
		archive: archive,
		log:     log,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
}

// Start validates a decoded record, places it under vhost/app, registers it
// and hands it to the engine. A record the engine refuses is kept in the
// error state.
func (s *Service) Start(ctx context.Context, vhost, app string, rec *record.Record) error {
	req := rec.Request()
	if err := validate(req); err != nil {
		return err
	}

	rec.AssignID(s.newID())
	rec.Place(vhost, app)
	created := s.now()
	rec.Update(func(t *record.Telemetry) {
		t.State = record.StateReady
		t.CreatedTime = created
	})

	if err := s.repo.Add(rec); err != nil {
		return fmt.Errorf("start record %s: %w", rec.ID(), err)
	}

	if err := s.engine.Start(ctx, rec); err != nil {
		s.fail(ctx, rec)
		return fmt.Errorf("start record %s: %w", rec.ID(), err)
	}
	return nil
}

// Stop asks the engine to stop the record with the given id and archives it
// once it has finished.
func (s *Service) Stop(ctx context.Context, vhost, app, id string) (*record.Record, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	rec, ok := s.repo.Get(vhost, app, id)
	if !ok {
		return nil, fmt.Errorf("stop record %s: %w", id, ErrRecordNotFound)
	}
	if !rec.BeginStop() {
		return rec, fmt.Errorf("stop record %s: %w", id, ErrNotRecording)
	}

	if err := s.engine.Stop(ctx, rec); err != nil {
		s.fail(ctx, rec)
		return rec, fmt.Errorf("stop record %s: %w", id, err)
	}

	if rec.State().Finished() {
		s.archiveRecord(ctx, rec)
	}
	return rec, nil
}

// Get returns one tracked record.
func (s *Service) Get(vhost, app, id string) (*record.Record, error) {
	rec, ok := s.repo.Get(vhost, app, id)
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec, nil
}

// List returns the tracked records of vhost/app.
func (s *Service) List(vhost, app string) []*record.Record {
	return s.repo.List(vhost, app)
}

// Remove drops a finished record from the tracking table.
func (s *Service) Remove(vhost, app, id string) error {
	rec, ok := s.repo.Get(vhost, app, id)
	if !ok {
		return ErrRecordNotFound
	}
	if !rec.State().Finished() {
		return ErrStillRecording
	}
	s.repo.Remove(id)
	return nil
}

// ActiveCount returns the number of unfinished records.
func (s *Service) ActiveCount() int {
	return s.repo.ActiveCount()
}

func validate(req record.Request) error {
	if req.StreamName == "" {
		return ErrStreamNameRequired
	}
	if req.Interval < 0 {
		return ErrInvalidInterval
	}
	if req.Interval > 0 && req.Schedule != "" {
		return ErrSplitConflict
	}
	return nil
}

func (s *Service) fail(ctx context.Context, rec *record.Record) {
	now := s.now()
	rec.Update(func(t *record.Telemetry) {
		t.State = record.StateError
		if t.RecordStopTime.IsZero() {
			t.RecordStopTime = now
		}
	})
	s.archiveRecord(ctx, rec)
}

func (s *Service) archiveRecord(ctx context.Context, rec *record.Record) {
	if s.archive == nil {
		return
	}
	snap := rec.Snapshot()
	doc, err := json.Marshal(serdes.JSONFromRecord(rec))
	if err != nil {
		s.log.Warn("encode record for archive failed",
			slog.String("id", snap.Request.ID),
			slog.String("error", err.Error()))
		return
	}
	if err := s.archive.Save(ctx, snap.VHost, snap.Application, snap.Request.ID, snap.Telemetry.State.String(), doc); err != nil {
		s.log.Warn("archive record failed",
			slog.String("id", snap.Request.ID),
			slog.String("error", err.Error()))
	}
}
