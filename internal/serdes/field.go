package serdes

import "time"

// TimestampLayout is the ISO 8601 layout used for every timestamp member.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

const (
	required = false
	optional = true
)

// setField writes v under key, unless the field is optional and v is the zero
// value of its type.
func setField[T comparable](obj *Object, key string, v T, isOptional bool) {
	var zero T
	if isOptional && v == zero {
		return
	}
	obj.Set(key, v)
}

func setString(obj *Object, key, v string, isOptional bool) {
	setField(obj, key, v, isOptional)
}

func setInt(obj *Object, key string, v int) {
	obj.Set(key, v)
}

func setInt64(obj *Object, key string, v int64) {
	obj.Set(key, v)
}

func setTimestamp(obj *Object, key string, t time.Time, isOptional bool) {
	if isOptional && timeUnset(t) {
		return
	}
	obj.Set(key, FormatTimestamp(t))
}

// FormatTimestamp renders t the way status documents carry timestamps.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// timeUnset treats both the Go zero time and the Unix epoch as "never set".
func timeUnset(t time.Time) bool {
	return t.IsZero() || t.Equal(time.Unix(0, 0))
}
