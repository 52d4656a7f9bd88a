package eas

import (
	"fmt"
	"strings"
	"time"
)

// localDateTimeLayout is the wire format for every timestamp this client
// sends: ISO-8601 with no fractional seconds and no UTC offset. The server
// treats these as zone-free local times.
const localDateTimeLayout = "2006-01-02T15:04:05"

// LocalDateTime is a timestamp with no timezone attached. Constructing one
// from a time.Time keeps the wall-clock reading and discards the zone and
// any sub-second component.
type LocalDateTime struct {
	t time.Time
}

// NewLocalDateTime builds a LocalDateTime from t's wall-clock reading.
func NewLocalDateTime(t time.Time) LocalDateTime {
	return LocalDateTime{time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)}
}

// Midnight truncates the time-of-day component.
func (l LocalDateTime) Midnight() LocalDateTime {
	y, m, d := l.t.Date()
	return LocalDateTime{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Time returns the wall-clock reading as a UTC time.Time.
func (l LocalDateTime) Time() time.Time { return l.t }

func (l LocalDateTime) IsZero() bool { return l.t.IsZero() }

func (l LocalDateTime) Equal(o LocalDateTime) bool { return l.t.Equal(o.t) }

func (l LocalDateTime) String() string { return l.t.Format(localDateTimeLayout) }

func (l LocalDateTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.t.Format(localDateTimeLayout) + `"`), nil
}

// localDateTimeParseLayouts covers the formats servers have been observed to
// reply with; whatever parses is normalised to the zone-free reading.
var localDateTimeParseLayouts = []string{
	localDateTimeLayout,
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02",
}

func (l *LocalDateTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" || s == "" {
		*l = LocalDateTime{}
		return nil
	}
	for _, layout := range localDateTimeParseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*l = NewLocalDateTime(t)
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}
