package serdes

import (
	"record-gateway/internal/record"
)

// Start request:
//
//	{
//		"id": "<custom id, optional>",
//		"stream": {
//			"name": "<output stream name>",
//			"trackIds": [101, 102],
//			"trackNames": ["h264_720p", "aac"]
//		},
//		"interval": 60000,
//		"schedule": "*/10 * *",
//		"segmentationRule": "continuity | discontinuity",
//		"filePath": "rec_${Sequence}.mp4",
//		"infoPath": "rec.xml",
//		"metadata": "<free form>"
//	}
//
// Only one of interval and schedule should be used. stream.tracks is the
// deprecated spelling of stream.trackIds.
//
// Stop request:
//
//	{ "id": "<id>" }

// RecordFromJSON builds a new record from a parsed start or stop request.
// It never fails: members that are missing or of the wrong type are skipped
// or defaulted.
func RecordFromJSON(body any) *record.Record {
	req := record.Request{
		SegmentationRule: record.DefaultSegmentationRule,
	}

	if id := lookup(body, "id"); !isEmpty(id) {
		if s, ok := asString(id); ok {
			req.ID = s
		}
	}

	// The two checks overlap (a non-empty value or an object), so the block
	// runs for any stream value other than null and [], including scalars;
	// member lookups on those find nothing.
	// TODO: decide whether a non-object stream should be rejected by the
	// start handler instead of being accepted with no stream members.
	if stream := lookup(body, "stream"); !isEmpty(stream) || isObject(stream) {
		decodeStream(stream, &req)
	}

	if v := lookup(body, "filePath"); !isEmpty(v) {
		if s, ok := asString(v); ok {
			req.FilePath = s
		}
	}

	if v := lookup(body, "infoPath"); !isEmpty(v) {
		if s, ok := asString(v); ok {
			req.InfoPath = s
		}
	}

	if v := lookup(body, "interval"); !isEmpty(v) {
		if n, ok := asInt(v); ok {
			req.Interval = n
		}
	}

	if v := lookup(body, "schedule"); !isEmpty(v) {
		if s, ok := asString(v); ok {
			req.Schedule = s
		}
	}

	if v := lookup(body, "metadata"); !isEmpty(v) {
		if s, ok := asString(v); ok {
			req.Metadata = s
		}
	}

	if v := lookup(body, "segmentationRule"); !isEmpty(v) {
		if s, ok := asString(v); ok && record.ValidSegmentationRule(s) {
			req.SegmentationRule = s
		}
	}

	return record.New(req)
}

func decodeStream(stream any, req *record.Request) {
	if v := lookup(stream, "name"); !isEmpty(v) {
		if s, ok := asString(v); ok {
			req.StreamName = s
		}
	}

	trackIDs, present := member(stream, "trackIds")
	if !present || trackIDs == nil {
		trackIDs = lookup(stream, "tracks")
	}
	if !isEmpty(trackIDs) && isArray(trackIDs) {
		for _, item := range trackIDs.([]any) {
			if n, ok := asInt(item); ok {
				req.TrackIDs = append(req.TrackIDs, n)
			}
		}
	}

	if v := lookup(stream, "trackNames"); !isEmpty(v) && isArray(v) {
		for _, item := range v.([]any) {
			if s, ok := asString(item); ok {
				req.TrackNames = append(req.TrackNames, s)
			}
		}
	}
}

// JSONFromRecord renders the status document of rec. Counters and times are
// only emitted once the state gives them meaning.
func JSONFromRecord(rec *record.Record) *Object {
	return jsonFromSnapshot(rec.Snapshot())
}

// RecordListJSON renders the status documents of recs in order.
func RecordListJSON(recs []*record.Record) []*Object {
	out := make([]*Object, 0, len(recs))
	for _, rec := range recs {
		out = append(out, JSONFromRecord(rec))
	}
	return out
}

func jsonFromSnapshot(s record.Snapshot) *Object {
	req, tm := s.Request, s.Telemetry
	obj := NewObject()

	setString(obj, "state", tm.State.String(), required)
	setString(obj, "id", req.ID, required)
	setString(obj, "metadata", req.Metadata, optional)
	setString(obj, "vhost", s.VHost, required)
	setString(obj, "app", s.Application, required)
	setStream(obj, "stream", req)
	setString(obj, "filePath", req.FilePath, required)
	setString(obj, "outputFilePath", tm.OutputFilePath, required)
	setString(obj, "infoPath", req.InfoPath, required)
	setString(obj, "outputInfoPath", tm.OutputInfoPath, required)

	if req.Interval > 0 {
		setInt(obj, "interval", req.Interval)
	}
	setString(obj, "schedule", req.Schedule, optional)
	setString(obj, "segmentationRule", req.SegmentationRule, optional)
	setTimestamp(obj, "createdTime", tm.CreatedTime, optional)

	if tm.State.Active() {
		if tm.RecordBytes > 0 {
			setInt64(obj, "recordBytes", tm.RecordBytes)
		}
		if tm.RecordTime > 0 {
			setInt64(obj, "recordTime", tm.RecordTime)
		}
		if tm.RecordTotalBytes > 0 {
			setInt64(obj, "totalRecordBytes", tm.RecordTotalBytes)
		}
		if tm.RecordTotalTime > 0 {
			setInt64(obj, "totalRecordTime", tm.RecordTotalTime)
		}
		if tm.Sequence > 0 {
			setInt(obj, "sequence", tm.Sequence)
		}
		setTimestamp(obj, "startTime", tm.RecordStartTime, optional)
	}

	if tm.State.Finished() {
		setTimestamp(obj, "finishTime", tm.RecordStopTime, optional)
	}

	return obj
}

// setStream always emits the stream object; its members are required so the
// object is never empty.
func setStream(obj *Object, key string, req record.Request) {
	stream := NewObject()
	setString(stream, "name", req.StreamName, required)

	ids := req.TrackIDs
	if ids == nil {
		ids = []int{}
	}
	stream.Set("trackIds", ids)

	names := req.TrackNames
	if names == nil {
		names = []string{}
	}
	stream.Set("trackNames", names)

	obj.Set(key, stream)
}
