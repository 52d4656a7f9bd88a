package eas

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// LoadTime selects the load data a simulation reads: either a single fixed
// point in time or a period. The two implementations are FixedTime and
// TimePeriod.
type LoadTime interface {
	isLoadTime()
}

// ─── Fixed time ───────────────────────────────────────────────────────────────

// FixedTimeLoadOverride replaces the recorded load readings of a single
// load for a fixed-time run.
type FixedTimeLoadOverride struct {
	LoadWattsOverride []float64 `json:"loadWattsOverride"`
	GenWattsOverride  []float64 `json:"genWattsOverride"`
	LoadVarOverride   []float64 `json:"loadVarOverride"`
	GenVarOverride    []float64 `json:"genVarOverride"`
}

// FixedTimeLoadOverrides maps load ids to their overrides. On the wire this
// is a list of objects carrying the id in a loadId field, emitted in sorted
// id order for determinism.
type FixedTimeLoadOverrides map[string]FixedTimeLoadOverride

type fixedTimeLoadOverrideEntry struct {
	LoadID string `json:"loadId"`
	FixedTimeLoadOverride
}

func (o FixedTimeLoadOverrides) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	entries := make([]fixedTimeLoadOverrideEntry, 0, len(o))
	for id, ov := range o {
		entries = append(entries, fixedTimeLoadOverrideEntry{LoadID: id, FixedTimeLoadOverride: ov})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].LoadID < entries[j].LoadID })
	return json.Marshal(entries)
}

func (o *FixedTimeLoadOverrides) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = nil
		return nil
	}
	var entries []fixedTimeLoadOverrideEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	m := make(FixedTimeLoadOverrides, len(entries))
	for _, e := range entries {
		m[e.LoadID] = e.FixedTimeLoadOverride
	}
	*o = m
	return nil
}

// FixedTime reads load data at a single point in time. The timezone of the
// provided time is discarded; the server interprets the wall-clock reading
// in the network's local time.
type FixedTime struct {
	LoadTime      LocalDateTime          `json:"loadTime"`
	LoadOverrides FixedTimeLoadOverrides `json:"overrides" graphql:"overrides { loadId loadWattsOverride genWattsOverride loadVarOverride genVarOverride }"`
}

// NewFixedTime builds a FixedTime from t's wall-clock reading.
func NewFixedTime(t time.Time, overrides FixedTimeLoadOverrides) *FixedTime {
	return &FixedTime{LoadTime: NewLocalDateTime(t), LoadOverrides: overrides}
}

func (*FixedTime) isLoadTime() {}

// ─── Time period ──────────────────────────────────────────────────────────────

// TimePeriodLoadOverride replaces the recorded load profile of a single
// load across a time-period run.
type TimePeriodLoadOverride struct {
	LoadWattsOverride []float64 `json:"loadWattsOverride"`
	GenWattsOverride  []float64 `json:"genWattsOverride"`
	LoadVarOverride   []float64 `json:"loadVarOverride"`
	GenVarOverride    []float64 `json:"genVarOverride"`
}

// TimePeriodLoadOverrides maps load ids to their overrides; wire shape as
// for FixedTimeLoadOverrides.
type TimePeriodLoadOverrides map[string]TimePeriodLoadOverride

type timePeriodLoadOverrideEntry struct {
	LoadID string `json:"loadId"`
	TimePeriodLoadOverride
}

func (o TimePeriodLoadOverrides) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}
	entries := make([]timePeriodLoadOverrideEntry, 0, len(o))
	for id, ov := range o {
		entries = append(entries, timePeriodLoadOverrideEntry{LoadID: id, TimePeriodLoadOverride: ov})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].LoadID < entries[j].LoadID })
	return json.Marshal(entries)
}

func (o *TimePeriodLoadOverrides) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = nil
		return nil
	}
	var entries []timePeriodLoadOverrideEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	m := make(TimePeriodLoadOverrides, len(entries))
	for _, e := range entries {
		m[e.LoadID] = e.TimePeriodLoadOverride
	}
	*o = m
	return nil
}

// Allowed span of a TimePeriod, inclusive at both ends.
const (
	minTimePeriodSpan = 24 * time.Hour
	maxTimePeriodSpan = 366 * 24 * time.Hour
)

// TimePeriod reads load data across a span of days. Both ends are truncated
// to midnight; use NewTimePeriod, which enforces the valid span.
type TimePeriod struct {
	StartTime     LocalDateTime           `json:"startTime"`
	EndTime       LocalDateTime           `json:"endTime"`
	LoadOverrides TimePeriodLoadOverrides `json:"overrides" graphql:"overrides { loadId loadWattsOverride genWattsOverride loadVarOverride genVarOverride }"`
}

// NewTimePeriod builds a TimePeriod covering [start, end). The time-of-day
// components are truncated to midnight before validation; after truncation
// the span must be at least one day and at most 366 days.
func NewTimePeriod(start, end time.Time, overrides TimePeriodLoadOverrides) (*TimePeriod, error) {
	s := NewLocalDateTime(start).Midnight()
	e := NewLocalDateTime(end).Midnight()
	span := e.Time().Sub(s.Time())
	switch {
	case span < 0:
		return nil, fmt.Errorf("invalid time period: end %s is before start %s", e, s)
	case span < minTimePeriodSpan:
		return nil, fmt.Errorf("invalid time period: span from %s to %s is shorter than one day", s, e)
	case span > maxTimePeriodSpan:
		return nil, fmt.Errorf("invalid time period: span from %s to %s is longer than 366 days", s, e)
	}
	return &TimePeriod{StartTime: s, EndTime: e, LoadOverrides: overrides}, nil
}

func (*TimePeriod) isLoadTime() {}

// ─── Wire union ───────────────────────────────────────────────────────────────

// loadTimeSection is the wire shape of a load-time selection: exactly one
// of the two keys is present.
type loadTimeSection struct {
	FixedTime  *FixedTime  `json:"fixedTime,omitzero"`
	TimePeriod *TimePeriod `json:"timePeriod,omitzero"`
}

func newLoadTimeSection(lt LoadTime) loadTimeSection {
	switch v := lt.(type) {
	case *FixedTime:
		return loadTimeSection{FixedTime: v}
	case *TimePeriod:
		return loadTimeSection{TimePeriod: v}
	case nil:
		return loadTimeSection{}
	default:
		panic(fmt.Sprintf("eas: unsupported LoadTime implementation %T", lt))
	}
}
