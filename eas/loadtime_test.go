package eas_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/zepben/eas-go/eas"
)

// ─── TimePeriod validation ────────────────────────────────────────────────────

func TestNewTimePeriodSpanBounds(t *testing.T) {
	day := func(offset int) time.Time {
		return time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}

	cases := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr string
	}{
		{"one day is the minimum", day(0), day(1), ""},
		{"366 days is the maximum", day(0), day(366), ""},
		{"zero span", day(0), day(0), "shorter than one day"},
		{"end before start", day(1), day(0), "before start"},
		{"367 days", day(0), day(367), "longer than 366 days"},
		{"sub-day span truncates to zero", day(0), day(0).Add(23 * time.Hour), "shorter than one day"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eas.NewTimePeriod(tc.start, tc.end, nil)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error mentioning %q, got %q", tc.wantErr, err)
			}
		})
	}
}

func TestNewTimePeriodTruncatesToMidnight(t *testing.T) {
	tp, err := eas.NewTimePeriod(
		time.Date(2022, 4, 1, 13, 45, 0, 0, time.UTC),
		time.Date(2023, 4, 1, 2, 30, 0, 0, time.UTC),
		nil,
	)
	if err != nil {
		t.Fatalf("NewTimePeriod: %v", err)
	}
	if got := tp.StartTime.String(); got != "2022-04-01T00:00:00" {
		t.Errorf("start: expected midnight, got %s", got)
	}
	if got := tp.EndTime.String(); got != "2023-04-01T00:00:00" {
		t.Errorf("end: expected midnight, got %s", got)
	}
}

// ─── Override serialization ───────────────────────────────────────────────────

func TestTimePeriodOverridesWireShape(t *testing.T) {
	tp, err := eas.NewTimePeriod(
		time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
		eas.TimePeriodLoadOverrides{
			"meter2": {LoadWattsOverride: []float64{5.0}},
			"meter1": {
				LoadWattsOverride: []float64{1.0},
				GenWattsOverride:  []float64{2.0},
				LoadVarOverride:   []float64{3.0},
				GenVarOverride:    []float64{4.0},
			},
		},
	)
	if err != nil {
		t.Fatalf("NewTimePeriod: %v", err)
	}

	raw, err := json.Marshal(tp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"startTime":"2022-04-01T00:00:00","endTime":"2023-04-01T00:00:00",` +
		`"overrides":[` +
		`{"loadId":"meter1","loadWattsOverride":[1],"genWattsOverride":[2],"loadVarOverride":[3],"genVarOverride":[4]},` +
		`{"loadId":"meter2","loadWattsOverride":[5],"genWattsOverride":null,"loadVarOverride":null,"genVarOverride":null}]}`
	if string(raw) != want {
		t.Errorf("wire shape mismatch:\nexpected %s\ngot      %s", want, raw)
	}
}

func TestTimePeriodOverridesRoundTrip(t *testing.T) {
	in := `[{"loadId":"m1","loadWattsOverride":[1.5],"genWattsOverride":null,"loadVarOverride":null,"genVarOverride":null}]`
	var overrides eas.TimePeriodLoadOverrides
	if err := json.Unmarshal([]byte(in), &overrides); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	ov, ok := overrides["m1"]
	if !ok {
		t.Fatal("expected an entry for m1")
	}
	if len(ov.LoadWattsOverride) != 1 || ov.LoadWattsOverride[0] != 1.5 {
		t.Errorf("expected loadWattsOverride [1.5], got %v", ov.LoadWattsOverride)
	}
}

func TestFixedTimeWireShape(t *testing.T) {
	ft := eas.NewFixedTime(
		time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC),
		eas.FixedTimeLoadOverrides{
			"meter1": {
				LoadWattsOverride: []float64{1.0},
				GenWattsOverride:  []float64{2.0},
				LoadVarOverride:   []float64{3.0},
				GenVarOverride:    []float64{4.0},
			},
		},
	)

	raw, err := json.Marshal(ft)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"loadTime":"2022-04-01T00:00:00",` +
		`"overrides":[{"loadId":"meter1","loadWattsOverride":[1],"genWattsOverride":[2],"loadVarOverride":[3],"genVarOverride":[4]}]}`
	if string(raw) != want {
		t.Errorf("wire shape mismatch:\nexpected %s\ngot      %s", want, raw)
	}
}

func TestNilOverridesSerializeAsNull(t *testing.T) {
	ft := eas.NewFixedTime(time.Date(2022, 4, 1, 0, 0, 0, 0, time.UTC), nil)
	raw, err := json.Marshal(ft)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"overrides":null`) {
		t.Errorf("expected a null overrides key, got %s", raw)
	}
}
