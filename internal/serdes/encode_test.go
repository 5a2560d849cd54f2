package serdes

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-gateway/internal/record"
)

var (
	created = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	started = time.Date(2024, 3, 1, 10, 0, 5, 250_000_000, time.UTC)
	stopped = time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
)

var telemetryKeys = []string{
	"recordBytes", "recordTime", "totalRecordBytes", "totalRecordTime",
	"sequence", "startTime", "finishTime",
}

func newRecord(req record.Request, tm record.Telemetry) *record.Record {
	rec := record.New(req)
	rec.Place("default", "app")
	rec.Update(func(t *record.Telemetry) { *t = tm })
	return rec
}

// fullTelemetry sets every engine-owned counter and time to a meaningful value.
func fullTelemetry(state record.State) record.Telemetry {
	return record.Telemetry{
		State:            state,
		OutputFilePath:   "/out/rec_1.mp4",
		OutputInfoPath:   "/out/rec.xml",
		CreatedTime:      created,
		RecordStartTime:  started,
		RecordStopTime:   stopped,
		RecordBytes:      1024,
		RecordTime:       5000,
		RecordTotalBytes: 4096,
		RecordTotalTime:  20000,
		Sequence:         3,
	}
}

func toMap(t *testing.T, obj *Object) map[string]any {
	t.Helper()
	b, err := json.Marshal(obj)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestJSONFromRecord_required_fields_always_present(t *testing.T) {
	obj := JSONFromRecord(record.New(record.Request{}))

	for _, key := range []string{"state", "id", "vhost", "app", "filePath", "outputFilePath", "infoPath", "outputInfoPath"} {
		assert.True(t, obj.Has(key), "missing %s", key)
	}
	v, _ := obj.Get("state")
	assert.Equal(t, "ready", v)
}

func TestJSONFromRecord_emission_order(t *testing.T) {
	rec := newRecord(record.Request{
		ID:               "r1",
		Metadata:         "k=v",
		Interval:         60000,
		SegmentationRule: "continuity",
	}, fullTelemetry(record.StateStopped))

	want := []string{
		"state", "id", "metadata", "vhost", "app", "stream",
		"filePath", "outputFilePath", "infoPath", "outputInfoPath",
		"interval", "segmentationRule", "createdTime",
		"recordBytes", "recordTime", "totalRecordBytes", "totalRecordTime",
		"sequence", "startTime", "finishTime",
	}
	if diff := cmp.Diff(want, JSONFromRecord(rec).Keys()); diff != "" {
		t.Errorf("key order mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONFromRecord_stopped_document(t *testing.T) {
	rec := newRecord(record.Request{
		ID:               "r1",
		StreamName:       "stream_o",
		TrackIDs:         []int{101, 102},
		TrackNames:       []string{"h264"},
		FilePath:         "rec_${Sequence}.mp4",
		InfoPath:         "rec.xml",
		Schedule:         "*/10 * *",
		SegmentationRule: "discontinuity",
	}, fullTelemetry(record.StateStopped))

	want := map[string]any{
		"state":    "stopped",
		"id":       "r1",
		"vhost":    "default",
		"app":      "app",
		"stream": map[string]any{
			"name":       "stream_o",
			"trackIds":   []any{float64(101), float64(102)},
			"trackNames": []any{"h264"},
		},
		"filePath":         "rec_${Sequence}.mp4",
		"outputFilePath":   "/out/rec_1.mp4",
		"infoPath":         "rec.xml",
		"outputInfoPath":   "/out/rec.xml",
		"schedule":         "*/10 * *",
		"segmentationRule": "discontinuity",
		"createdTime":      "2024-03-01T10:00:00.000Z",
		"recordBytes":      float64(1024),
		"recordTime":       float64(5000),
		"totalRecordBytes": float64(4096),
		"totalRecordTime":  float64(20000),
		"sequence":         float64(3),
		"startTime":        "2024-03-01T10:00:05.250Z",
		"finishTime":       "2024-03-01T11:00:00.000Z",
	}
	if diff := cmp.Diff(want, toMap(t, JSONFromRecord(rec))); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONFromRecord_state_gating(t *testing.T) {
	cases := []struct {
		state      record.State
		telemetry  bool
		finishTime bool
	}{
		{record.StateReady, false, false},
		{record.StateStarted, false, false},
		{record.StateRecording, true, false},
		{record.StateStopping, true, false},
		{record.StateStopped, true, true},
		{record.StateError, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.state.String(), func(t *testing.T) {
			obj := JSONFromRecord(newRecord(record.Request{ID: "r"}, fullTelemetry(tc.state)))

			for _, key := range telemetryKeys[:6] {
				assert.Equal(t, tc.telemetry, obj.Has(key), key)
			}
			assert.Equal(t, tc.finishTime, obj.Has("finishTime"))
			assert.True(t, obj.Has("createdTime"))
		})
	}
}

func TestJSONFromRecord_recording_omits_zero_sequence(t *testing.T) {
	rec := newRecord(record.Request{ID: "r"}, record.Telemetry{
		State:       record.StateRecording,
		RecordBytes: 1024,
		Sequence:    0,
	})
	obj := JSONFromRecord(rec)

	v, ok := obj.Get("recordBytes")
	require.True(t, ok)
	assert.Equal(t, int64(1024), v)
	assert.False(t, obj.Has("sequence"))
	assert.False(t, obj.Has("recordTime"))
	assert.False(t, obj.Has("startTime"))
}

func TestJSONFromRecord_finish_time_only_when_finished(t *testing.T) {
	tm := record.Telemetry{State: record.StateStopped, RecordStopTime: stopped}
	assert.True(t, JSONFromRecord(newRecord(record.Request{}, tm)).Has("finishTime"))

	tm.State = record.StateRecording
	assert.False(t, JSONFromRecord(newRecord(record.Request{}, tm)).Has("finishTime"))

	tm.State = record.StateError
	tm.RecordStopTime = time.Unix(0, 0)
	assert.False(t, JSONFromRecord(newRecord(record.Request{}, tm)).Has("finishTime"))
}

func TestJSONFromRecord_negative_counters_omitted(t *testing.T) {
	obj := JSONFromRecord(newRecord(record.Request{}, record.Telemetry{
		State:            record.StateRecording,
		RecordBytes:      -1,
		RecordTime:       -1,
		RecordTotalBytes: -1,
		RecordTotalTime:  -1,
		Sequence:         -1,
	}))
	for _, key := range telemetryKeys {
		assert.False(t, obj.Has(key), key)
	}
}

func TestJSONFromRecord_metadata(t *testing.T) {
	assert.False(t, JSONFromRecord(newRecord(record.Request{Metadata: ""}, record.Telemetry{})).Has("metadata"))

	v, ok := JSONFromRecord(newRecord(record.Request{Metadata: "k=v"}, record.Telemetry{})).Get("metadata")
	require.True(t, ok)
	assert.Equal(t, "k=v", v)
}

func TestJSONFromRecord_optional_config_fields(t *testing.T) {
	obj := JSONFromRecord(newRecord(record.Request{}, record.Telemetry{CreatedTime: time.Unix(0, 0)}))
	for _, key := range []string{"interval", "schedule", "segmentationRule", "createdTime"} {
		assert.False(t, obj.Has(key), key)
	}

	obj = JSONFromRecord(newRecord(record.Request{Interval: -5}, record.Telemetry{}))
	assert.False(t, obj.Has("interval"))
}

func TestJSONFromRecord_empty_stream_lists(t *testing.T) {
	b, err := json.Marshal(JSONFromRecord(record.New(record.Request{})))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"stream":{"name":"","trackIds":[],"trackNames":[]}`)
}

func TestRoundTrip_fresh_record_omits_telemetry(t *testing.T) {
	v, err := ParseJSON([]byte(`{
		"id": "r1",
		"stream": {"name": "s", "tracks": [101, 102]},
		"interval": 1000,
		"metadata": "m"
	}`))
	require.NoError(t, err)

	obj := JSONFromRecord(RecordFromJSON(v))
	for _, key := range telemetryKeys {
		assert.False(t, obj.Has(key), key)
	}

	m := toMap(t, obj)
	assert.Equal(t, "ready", m["state"])
	assert.Equal(t, float64(1000), m["interval"])
	assert.Equal(t, "discontinuity", m["segmentationRule"])
	assert.Equal(t, []any{float64(101), float64(102)}, m["stream"].(map[string]any)["trackIds"])
}

func TestRecordListJSON(t *testing.T) {
	list := RecordListJSON([]*record.Record{
		record.New(record.Request{ID: "a"}),
		record.New(record.Request{ID: "b"}),
	})
	require.Len(t, list, 2)
	id, _ := list[1].Get("id")
	assert.Equal(t, "b", id)

	assert.Empty(t, RecordListJSON(nil))
}
