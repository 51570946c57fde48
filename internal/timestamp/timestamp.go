// Package timestamp normalizes the timestamp shapes found in notification
// documents (Firestore timestamps, ISO strings, epoch numbers) into
// millisecond precision values.
package timestamp

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

type Format string

const (
	FormatISO    Format = "iso"
	FormatMillis Format = "millis"
)

const isoLayout = "2006-01-02T15:04:05.000Z07:00"

var fallbackLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// now is swapped in tests.
var now = time.Now

// timeAccessor matches protobuf timestamps (timestamppb.Timestamp).
type timeAccessor interface {
	AsTime() time.Time
}

type dateAccessor interface {
	ToDate() time.Time
}

// ToMillis converts value to epoch milliseconds. Nil or unparseable input
// yields the current time rather than an error.
func ToMillis(value any) int64 {
	if t, ok := Parse(value); ok {
		return t.UnixMilli()
	}
	return now().UnixMilli()
}

// ToTime is ToMillis returning a time.Time.
func ToTime(value any) time.Time {
	return time.UnixMilli(ToMillis(value)).UTC()
}

// Parse interprets value as a point in time. Zero times count as missing.
func Parse(value any) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		return v, !v.IsZero()
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false
		}
		return *v, true
	case timeAccessor:
		t := v.AsTime()
		return t, !t.IsZero()
	case dateAccessor:
		t := v.ToDate()
		return t, !t.IsZero()
	case map[string]any:
		return parseSecondsMap(v)
	case string:
		return parseString(v)
	case json.Number:
		return parseString(v.String())
	case int:
		return time.UnixMilli(int64(v)), true
	case int32:
		return time.UnixMilli(int64(v)), true
	case int64:
		return time.UnixMilli(v), true
	case uint32:
		return time.UnixMilli(int64(v)), true
	case uint64:
		if v > math.MaxInt64 {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v)), true
	case float32:
		return fromFloat(float64(v))
	case float64:
		return fromFloat(v)
	}
	return time.Time{}, false
}

// Serialize renders value as an ISO-8601 string or epoch millis. Nil and
// unparseable values serialize to nil.
func Serialize(value any, format Format) any {
	t, ok := Parse(value)
	if !ok {
		return nil
	}
	if format == FormatMillis {
		return t.UnixMilli()
	}
	return t.UTC().Format(isoLayout)
}

// Deserialize is the inverse of Serialize, truncated to millisecond precision.
func Deserialize(value any) (time.Time, bool) {
	t, ok := Parse(value)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(t.UnixMilli()).UTC(), true
}

func fromFloat(f float64) (time.Time, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(f)), true
}

func parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return fromFloat(f)
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseSecondsMap handles timestamps that went through JSON, e.g.
// {"seconds": 1700000000, "nanoseconds": 0} or the "_seconds" admin SDK form.
func parseSecondsMap(m map[string]any) (time.Time, bool) {
	secs, ok := numberField(m, "seconds", "_seconds")
	if !ok {
		return time.Time{}, false
	}
	nanos, _ := numberField(m, "nanoseconds", "_nanoseconds")
	return time.Unix(int64(secs), int64(nanos)), true
}

func numberField(m map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		switch n := m[key].(type) {
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		case float64:
			return n, true
		case json.Number:
			f, err := n.Float64()
			return f, err == nil
		}
	}
	return 0, false
}
