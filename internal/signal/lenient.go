package signal

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// The wire types below decode upstream fields leniently. A field that is
// missing, null or of the wrong type decodes to its zero value instead of
// failing the whole envelope, so one malformed counter cannot blank a source.

// maxCount bounds decoded counters so that sums of them cannot overflow.
const maxCount = math.MaxInt32

// count is a non-negative integer. Values above maxCount are malformed.
type count int

func (c *count) UnmarshalJSON(b []byte) error {
	*c = 0
	if n, ok := decodeNumber(b); ok && n > 0 && n <= maxCount {
		*c = count(math.Floor(n))
	}
	return nil
}

// optionalNumber is a float that remembers whether it was present.
type optionalNumber struct {
	value float64
	valid bool
}

func (o *optionalNumber) UnmarshalJSON(b []byte) error {
	o.value, o.valid = decodeNumber(b)
	return nil
}

func (o optionalNumber) ptr() *float64 {
	if !o.valid {
		return nil
	}
	v := o.value
	return &v
}

// optionalBool is a bool that remembers whether it was present.
type optionalBool struct {
	value bool
	valid bool
}

func (o *optionalBool) UnmarshalJSON(b []byte) error {
	o.value, o.valid = false, false
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case bool:
		o.value, o.valid = x, true
	case string:
		if parsed, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
			o.value, o.valid = parsed, true
		}
	}
	return nil
}

func (o optionalBool) or(fallback bool) bool {
	if !o.valid {
		return fallback
	}
	return o.value
}

// timestamp accepts RFC 3339 strings or unix milliseconds.
type timestamp struct {
	t     time.Time
	valid bool
}

func (ts *timestamp) UnmarshalJSON(b []byte) error {
	ts.t, ts.valid = time.Time{}, false
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	switch x := v.(type) {
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(x)); err == nil {
			ts.t, ts.valid = parsed.UTC(), true
		}
	case float64:
		if x > 0 {
			ts.t, ts.valid = time.UnixMilli(int64(x)).UTC(), true
		}
	}
	return nil
}

func (ts timestamp) ptr() *time.Time {
	if !ts.valid {
		return nil
	}
	t := ts.t
	return &t
}

func decodeNumber(b []byte) (float64, bool) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return 0, false
	}
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func normalizeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
