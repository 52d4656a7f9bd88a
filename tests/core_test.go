// ============================================================================
// FILE:        tests/core_test.go
// PROJECT:     eas-go
// DESCRIPTION: Test suite covering the four core verification pillars:
//
//   1. Server Connectivity    — live HTTPS reachability of a configured EAS
//   2. Wire Integrity         — field naming, selection generation, null
//                               semantics, time period bounds (all offline)
//   3. Client Behaviour       — mock GraphQL server: auth header, error
//                               mapping, envelope handling, download redirect
//   4. Store Round Trip       — snapshot persistence through the bolt store
//
// TEST RUNNER:
//   go test -v -run TestServerConnectivity ./tests/
//   go test -v -run TestWireIntegrity      ./tests/
//   go test -v -run TestClientBehaviour    ./tests/
//   go test -v -run TestStoreRoundTrip     ./tests/
//   go test -v ./tests/                    (all four groups)
//
// CREDENTIALS:
//   Group 1 reads from config.json via config.Load().
//   Groups 2–4 are fully offline and never skip.
//   If config.json is missing or no host is set, group 1 skips
//   automatically with a descriptive message.
// ============================================================================

package tests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/zepben/eas-go/eas"
	"github.com/zepben/eas-go/eas/graphql"
	"github.com/zepben/eas-go/internal/config"
	"github.com/zepben/eas-go/internal/store"
)

// ─────────────────────────────────────────────────────────────────────────────
// Test Output Helpers
// ─────────────────────────────────────────────────────────────────────────────

const (
	checkPass = "  ✅"
	checkFail = "  ❌"
	divider   = "──────────────────────────────────────────────────────────────────────────"
	separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
)

// result tracks pass/fail tallies for a single test group.
type result struct {
	passed int
	failed int
}

func (r *result) pass(t *testing.T, label string) {
	t.Helper()
	r.passed++
	t.Logf("%s %s", checkPass, label)
}

func (r *result) fail(t *testing.T, label string, detail ...string) {
	t.Helper()
	r.failed++
	line := label
	if len(detail) > 0 && detail[0] != "" {
		line = fmt.Sprintf("%s  →  %s", label, detail[0])
	}
	t.Logf("%s %s", checkFail, line)
	t.Fail()
}

func (r *result) check(t *testing.T, condition bool, passLabel, failLabel string, detail ...string) {
	t.Helper()
	if condition {
		r.pass(t, passLabel)
	} else {
		r.fail(t, failLabel, detail...)
	}
}

func (r *result) summary(t *testing.T, groupName string) {
	t.Helper()
	total := r.passed + r.failed
	icon := "✅"
	if r.failed > 0 {
		icon = "❌"
	}
	t.Logf("%s", divider)
	t.Logf("  %s  %s: %d/%d checks passed", icon, groupName, r.passed, total)
	t.Logf("%s", separator)
}

func printBanner(t *testing.T, title string) {
	t.Helper()
	t.Logf("")
	t.Logf("%s", separator)
	t.Logf("  🔬  %s", title)
	t.Logf("%s", divider)
}

// configOrSkip loads config.json from the repo root (one level up from
// tests/). Skips the calling test if the file is missing or no host is
// configured.
func configOrSkip(t *testing.T) *config.Config {
	t.Helper()

	// Change to repo root so config.Load() finds config.json
	orig, _ := os.Getwd()
	os.Chdir(filepath.Join(orig, ".."))
	defer os.Chdir(orig)

	cfg, err := config.Load(config.Flags{})
	if err != nil || cfg.Host == "" {
		t.Skip("no config.json with a host found — skipping live connectivity checks")
	}
	return cfg
}

// mockClient builds a client pointed at an httptest server.
func mockClient(t *testing.T, srv *httptest.Server, mutate func(*eas.ClientConfig)) *eas.Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing server url: %v", err)
	}
	port, _ := strconv.Atoi(u.Port())
	cfg := eas.ClientConfig{
		Host:       u.Hostname(),
		Port:       port,
		Protocol:   u.Scheme,
		HTTPClient: srv.Client(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := eas.NewClient(cfg)
	if err != nil {
		t.Fatalf("eas.NewClient: %v", err)
	}
	return client
}

// ─────────────────────────────────────────────────────────────────────────────
// Group 1 — Server Connectivity (live, skips without config)
// ─────────────────────────────────────────────────────────────────────────────

func TestServerConnectivity(t *testing.T) {
	printBanner(t, "SERVER CONNECTIVITY")
	r := &result{}
	cfg := configOrSkip(t)

	client, err := eas.NewClient(eas.ClientConfig{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Protocol:    cfg.Protocol,
		AccessToken: cfg.AccessToken,
		CAFilename:  cfg.CAFile,
		Timeout:     15 * time.Second,
	})
	r.check(t, err == nil, "client builds from config.json", "client failed to build", fmt.Sprint(err))
	if err != nil {
		r.summary(t, "SERVER CONNECTIVITY")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	resp, err := client.GetWorkPackagesProgress(ctx)
	r.check(t, err == nil, "progress query reaches the server", "progress query failed", fmt.Sprint(err))
	if err == nil {
		env, envErr := resp.Envelope()
		r.check(t, envErr == nil, "response parses as a GraphQL envelope", "response is not a GraphQL envelope", fmt.Sprint(envErr))
		if envErr == nil {
			r.check(t, env.Data != nil || len(env.Errors) > 0,
				"envelope carries data or errors", "envelope is empty")
		}
	}

	r.summary(t, "SERVER CONNECTIVITY")
}

// ─────────────────────────────────────────────────────────────────────────────
// Group 2 — Wire Integrity (offline)
// ─────────────────────────────────────────────────────────────────────────────

func TestWireIntegrity(t *testing.T) {
	printBanner(t, "WIRE INTEGRITY")
	r := &result{}

	// Field naming follows the server's camelCase schema.
	for in, want := range map[string]string{
		"DownloadURL":     "downloadUrl",
		"WorkflowID":      "workflowId",
		"TotalCount":      "totalCount",
		"PFactorBaseLoad": "pFactorBaseLoad",
		"ID":              "id",
	} {
		got := graphql.FieldName(in)
		r.check(t, got == want,
			fmt.Sprintf("FieldName(%s) = %s", in, want),
			fmt.Sprintf("FieldName(%s) = %s, want %s", in, got, want))
	}

	// Selections are generated from struct shape, not hand-maintained strings.
	sel := graphql.Selection(eas.WorkPackagesProgress{})
	r.check(t, strings.HasPrefix(sel, "pending inProgress { id progressPercent"),
		"progress selection nests the in-progress shape",
		"progress selection malformed", sel)

	// Unset optional model fields serialize as explicit nulls; the lone
	// plain boolean stays false.
	raw, err := json.Marshal(eas.ModelConfig{})
	r.check(t, err == nil, "empty ModelConfig marshals", "empty ModelConfig failed to marshal", fmt.Sprint(err))
	if err == nil {
		var m map[string]json.RawMessage
		json.Unmarshal(raw, &m)
		nulls := 0
		for _, v := range m {
			if string(v) == "null" {
				nulls++
			}
		}
		r.check(t, nulls == len(m)-1,
			fmt.Sprintf("%d of %d model fields emit null", nulls, len(m)),
			fmt.Sprintf("expected %d nulls, got %d", len(m)-1, nulls))
	}

	// Time period bounds are enforced at construction.
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = eas.NewTimePeriod(start, start.AddDate(0, 0, 400), nil)
	r.check(t, err != nil, "400-day time period rejected", "400-day time period accepted")
	_, err = eas.NewTimePeriod(start, start.AddDate(0, 0, 30), nil)
	r.check(t, err == nil, "30-day time period accepted", "30-day time period rejected", fmt.Sprint(err))
	_, err = eas.NewTimePeriod(start, start, nil)
	r.check(t, err != nil, "zero-length time period rejected", "zero-length time period accepted")

	r.summary(t, "WIRE INTEGRITY")
}

// ─────────────────────────────────────────────────────────────────────────────
// Group 3 — Client Behaviour (mock GraphQL server)
// ─────────────────────────────────────────────────────────────────────────────

func TestClientBehaviour(t *testing.T) {
	printBanner(t, "CLIENT BEHAVIOUR")
	r := &result{}
	ctx := context.Background()

	// Access token forwarding. Auth refuses plain http, so this one leg
	// runs over the test server's TLS.
	var gotAuth string
	tlsSrv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotAuth = req.Header.Get("Authorization")
		fmt.Fprint(w, `{"data":{"getCalibrationSets":["summer","winter"]}}`)
	}))
	defer tlsSrv.Close()

	client := mockClient(t, tlsSrv, func(cfg *eas.ClientConfig) {
		cfg.AccessToken = "tok123"
	})
	resp, err := client.GetCalibrationSets(ctx)
	r.check(t, err == nil, "calibration sets query succeeds", "calibration sets query failed", fmt.Sprint(err))
	r.check(t, gotAuth == "Bearer tok123",
		"access token sent as Bearer header",
		fmt.Sprintf("authorization header = %q", gotAuth))
	if err == nil {
		var sets []string
		decodeErr := resp.DecodeData("getCalibrationSets", &sets)
		r.check(t, decodeErr == nil && len(sets) == 2,
			"calibration sets decode from envelope",
			"calibration sets failed to decode", fmt.Sprint(decodeErr))
	}

	// Non-2xx maps to HTTPError with the body preserved.
	errSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "upstream fell over", http.StatusBadGateway)
	}))
	defer errSrv.Close()
	_, err = mockClient(t, errSrv, nil).GetCalibrationSets(ctx)
	var httpErr *eas.HTTPError
	r.check(t, errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusBadGateway,
		"502 maps to HTTPError with status",
		fmt.Sprintf("error = %v", err))

	// GraphQL errors are data, not Go errors.
	gqlErrSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `{"data":null,"errors":[{"message":"feeder not found"}]}`)
	}))
	defer gqlErrSrv.Close()
	resp, err = mockClient(t, gqlErrSrv, nil).GetCalibrationSets(ctx)
	r.check(t, err == nil, "GraphQL errors do not fail the call", "GraphQL errors raised as Go error", fmt.Sprint(err))
	if err == nil {
		env, _ := resp.Envelope()
		r.check(t, len(env.Errors) == 1 && env.Errors[0].Message == "feeder not found",
			"GraphQL errors preserved in envelope",
			"GraphQL errors lost")
	}

	// Download endpoint: the redirect's Location is the answer, and the
	// redirect itself is never followed.
	var hits int
	dlSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		hits++
		w.Header().Set("Location", "https://blobs.example.com/model.zip")
		w.WriteHeader(http.StatusFound)
	}))
	defer dlSrv.Close()
	link, err := mockClient(t, dlSrv, nil).GetOpenDssModelDownloadURL(ctx, 1)
	r.check(t, err == nil && link == "https://blobs.example.com/model.zip",
		"302 Location returned as download url",
		"download url not resolved", fmt.Sprintf("link=%q err=%v", link, err))
	r.check(t, hits == 1, "redirect not followed", "redirect followed", fmt.Sprintf("server hit %d times", hits))

	r.summary(t, "CLIENT BEHAVIOUR")
}

// ─────────────────────────────────────────────────────────────────────────────
// Group 4 — Store Round Trip (offline)
// ─────────────────────────────────────────────────────────────────────────────

func TestStoreRoundTrip(t *testing.T) {
	printBanner(t, "STORE ROUND TRIP")
	r := &result{}

	db, err := store.Open(filepath.Join(t.TempDir(), "easctl.db"))
	r.check(t, err == nil, "store opens on a fresh path", "store failed to open", fmt.Sprint(err))
	if err != nil {
		r.summary(t, "STORE ROUND TRIP")
		return
	}
	defer db.Close()

	snap := store.ProgressSnapshot{
		ID:      store.NewProgressID(),
		TakenAt: time.Now().UTC(),
		Progress: eas.WorkPackagesProgress{
			Pending: []string{"wp-7"},
			InProgress: []eas.WorkPackageProgress{
				{ID: "wp-3", ProgressPercent: 40, Complete: []string{"f1"}},
			},
		},
	}
	err = db.PutProgress(snap)
	r.check(t, err == nil, "progress snapshot stored", "progress snapshot rejected", fmt.Sprint(err))

	got, found, err := db.GetProgress(snap.ID)
	r.check(t, err == nil && found, "progress snapshot retrieved", "progress snapshot missing", fmt.Sprint(err))
	if found {
		r.check(t, len(got.Progress.Pending) == 1 && got.Progress.InProgress[0].ProgressPercent == 40,
			"snapshot fields survive the round trip",
			"snapshot fields corrupted")
	}

	err = db.PutModels([]eas.OpenDssModel{{ID: 12, Name: "fdr-12"}, {ID: 3, Name: "fdr-3"}})
	r.check(t, err == nil, "models stored in one batch", "model batch rejected", fmt.Sprint(err))

	models, err := db.ListModels()
	r.check(t, err == nil && len(models) == 2 && models[0].Model.ID == 3,
		"models list back in numeric id order",
		"model order wrong", fmt.Sprintf("err=%v models=%v", err, len(models)))

	r.summary(t, "STORE ROUND TRIP")
}
