package domain

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// WireLayout is the layout used when sending timestamps to the server.
const WireLayout = "2006-01-02T15:04:05"

// DateLayout is the calendar-date layout used for slot queries and grouping.
const DateLayout = "2006-01-02"

// Layouts accepted when decoding timestamps. Values without a zone are
// interpreted in time.Local.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000000Z",
	WireLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Timestamp is a point in time as exchanged with the remote service.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// ParseTimestamp parses a wire timestamp. Zone-less values are local time.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, ErrInvalidTimestamp.WithDetails("empty value")
	}
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, ErrInvalidTimestamp.WithDetails(s)
}

// ParseDate parses a YYYY-MM-DD date at local midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, ErrInvalidDate.WithDetails(s).WithCause(err)
	}
	return t, nil
}

// Wire formats the timestamp in local time without a zone, the form the server accepts.
func (t Timestamp) Wire() string {
	return t.Local().Format(WireLayout)
}

// MarshalJSON encodes the wire form, or null when unset.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Wire())
}

// UnmarshalJSON decodes any accepted layout; null leaves the zero value.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidTimestamp.WithCause(err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
