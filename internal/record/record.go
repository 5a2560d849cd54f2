package record

import (
	"sync"
	"time"
)

// State is the lifecycle state of a recording task.
type State int

const (
	StateReady State = iota
	StateStarted
	StateRecording
	StateStopping
	StateStopped
	StateError
)

// String returns the lowercase wire name of the state.
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateStarted:
		return "started"
	case StateRecording:
		return "recording"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Active reports whether the engine has begun producing output, i.e. whether
// byte/time counters and the start time carry meaning.
func (s State) Active() bool {
	switch s {
	case StateRecording, StateStopping, StateStopped, StateError:
		return true
	}
	return false
}

// Finished reports whether the task has concluded (successfully or not).
func (s State) Finished() bool {
	return s == StateStopped || s == StateError
}

// Segmentation rules for split recording.
const (
	SegmentationContinuity    = "continuity"
	SegmentationDiscontinuity = "discontinuity"

	DefaultSegmentationRule = SegmentationDiscontinuity
)

// ValidSegmentationRule reports whether rule is one of the accepted literals.
func ValidSegmentationRule(rule string) bool {
	return rule == SegmentationContinuity || rule == SegmentationDiscontinuity
}

// Request is the request-authorable part of a record: everything a start
// request may set.
type Request struct {
	ID               string
	StreamName       string
	TrackIDs         []int
	TrackNames       []string
	FilePath         string
	InfoPath         string
	Interval         int // milliseconds; 0 disables interval splitting
	Schedule         string
	SegmentationRule string
	Metadata         string
}

// Telemetry is the engine-owned part of a record. Only the recording engine
// writes it, through Record.Update.
type Telemetry struct {
	State            State
	OutputFilePath   string
	OutputInfoPath   string
	CreatedTime      time.Time
	RecordStartTime  time.Time
	RecordStopTime   time.Time
	RecordBytes      int64
	RecordTime       int64
	RecordTotalBytes int64
	RecordTotalTime  int64
	Sequence         int
}

// Snapshot is a consistent copy of a record taken under its read lock.
type Snapshot struct {
	Request     Request
	VHost       string
	Application string
	Telemetry   Telemetry
}

// Record is one recording task. The request view is fixed at construction
// (apart from a system-assigned id); the telemetry view is mutated in place
// by the engine. Safe for concurrent use.
type Record struct {
	mu          sync.RWMutex
	request     Request
	vhost       string
	application string
	telemetry   Telemetry
}

// New returns a record in StateReady built from req.
func New(req Request) *Record {
	req.TrackIDs = append([]int(nil), req.TrackIDs...)
	req.TrackNames = append([]string(nil), req.TrackNames...)
	return &Record{request: req}
}

// ID returns the record id.
func (r *Record) ID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.request.ID
}

// AssignID sets the id of a record whose request did not carry one.
// It is a no-op when an id is already present.
func (r *Record) AssignID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.request.ID == "" {
		r.request.ID = id
	}
}

// Place records the owning virtual host and application.
func (r *Record) Place(vhost, application string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vhost = vhost
	r.application = application
}

// VHost returns the owning virtual host name.
func (r *Record) VHost() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.vhost
}

// Application returns the owning application name.
func (r *Record) Application() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.application
}

// State returns the current lifecycle state.
func (r *Record) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.telemetry.State
}

// Request returns a copy of the request view.
func (r *Record) Request() Request {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return copyRequest(r.request)
}

// Update applies fn to the telemetry view under the write lock.
func (r *Record) Update(fn func(t *Telemetry)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.telemetry)
}

// BeginStop moves the record to StateStopping and reports whether it did.
// It returns false when the record is already stopping or finished, so only
// one caller wins the stop.
func (r *Record) BeginStop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.telemetry.State == StateStopping || r.telemetry.State.Finished() {
		return false
	}
	r.telemetry.State = StateStopping
	return true
}

// Snapshot returns a copy of the whole record taken under one read lock.
func (r *Record) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		Request:     copyRequest(r.request),
		VHost:       r.vhost,
		Application: r.application,
		Telemetry:   r.telemetry,
	}
}

func copyRequest(req Request) Request {
	req.TrackIDs = append([]int(nil), req.TrackIDs...)
	req.TrackNames = append([]string(nil), req.TrackNames...)
	return req
}
