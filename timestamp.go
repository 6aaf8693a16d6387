package persistexpire

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/goccy/go-reflect"
)

// TimestampDecoder converts a value stored at the persisted-at key into a point in time.
// It returns false if the value cannot be converted.
type TimestampDecoder interface {
	DecodeTimestamp(any) (time.Time, bool)
}

// TimestampDecoderFunc is a function type that implements the TimestampDecoder interface.
type TimestampDecoderFunc func(any) (time.Time, bool)

// DecodeTimestamp calls the function.
func (f TimestampDecoderFunc) DecodeTimestamp(v any) (time.Time, bool) {
	return f(v)
}

// DefaultTimestampDecoder decodes the values accepted by TimestampMillis.
var DefaultTimestampDecoder TimestampDecoder = TimestampDecoderFunc(func(v any) (time.Time, bool) {
	ms, ok := TimestampMillis(v)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
})

type unixMilliser interface {
	UnixMilli() int64
}

// TimestampMillis converts the value into milliseconds since the Unix epoch.
//
// Numbers of any integer or floating point kind are taken as milliseconds.
// time.Time (and anything else with a UnixMilli method) is converted as is.
// Strings are parsed as RFC 3339 dates or as a number of milliseconds.
// It returns false for nil, NaN, infinities, and values of any other type.
func TimestampMillis(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case *time.Time:
		if t == nil {
			return 0, false
		}
		return t.UnixMilli(), true
	case unixMilliser:
		return t.UnixMilli(), true
	case json.Number:
		return parseMillis(string(t))
	case string:
		if tm, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return tm.UnixMilli(), true
		}
		return parseMillis(t)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		return floatMillis(rv.Float())
	default:
		return 0, false
	}
}

func parseMillis(s string) (int64, bool) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return floatMillis(f)
}

func floatMillis(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
