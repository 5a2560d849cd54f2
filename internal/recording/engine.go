package recording

import (
	"context"
	"time"

	"record-gateway/internal/record"
)

// Engine is the recording engine the service hands records to. It owns the
// telemetry view of each record and drives its state machine.
type Engine interface {
	Start(ctx context.Context, rec *record.Record) error
	Stop(ctx context.Context, rec *record.Record) error
}

// NopEngine performs the state transitions of a recording without writing
// any media. Used when no recorder is attached to the gateway.
type NopEngine struct {
	now func() time.Time
}

// NewNopEngine returns a NopEngine using the wall clock.
func NewNopEngine() *NopEngine {
	return &NopEngine{now: time.Now}
}

// Start moves rec to recording and stamps its start time.
func (e *NopEngine) Start(ctx context.Context, rec *record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	now := e.now()
	rec.Update(func(t *record.Telemetry) {
		t.State = record.StateRecording
		t.RecordStartTime = now
	})
	return nil
}

// Stop moves rec through stopping to stopped and stamps its stop time. The
// service has usually claimed the stopping state already.
func (e *NopEngine) Stop(ctx context.Context, rec *record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec.Update(func(t *record.Telemetry) { t.State = record.StateStopping })

	now := e.now()
	rec.Update(func(t *record.Telemetry) {
		t.State = record.StateStopped
		t.RecordStopTime = now
	})
	return nil
}
