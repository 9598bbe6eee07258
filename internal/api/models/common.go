// Package models defines the request and response bodies of the console API.
package models

import "time"

// HealthStatus is the coarse status reported by ops endpoints.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp formats time.Time as RFC 3339 in UTC.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler for Timestamp.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || len(data) < 2 {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, string(data[1:len(data)-1]))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// TimestampPtr converts an optional time, mapping nil and the zero time to nil.
func TimestampPtr(t *time.Time) *Timestamp {
	if t == nil || t.IsZero() {
		return nil
	}
	ts := Timestamp(*t)
	return &ts
}
