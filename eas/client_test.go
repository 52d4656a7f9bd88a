package eas_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/zepben/eas-go/eas"
	"github.com/zepben/eas-go/eas/auth"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// graphqlBody is the decoded JSON body of one captured /api/graphql POST.
type graphqlBody struct {
	raw       []byte
	Query     string
	Variables map[string]any
	// HasVariables records whether the variables key was present at all;
	// some operations must omit it rather than send null or {}.
	HasVariables bool
}

func decodeBody(t *testing.T, raw []byte) graphqlBody {
	t.Helper()
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	body := graphqlBody{raw: raw}
	if err := json.Unmarshal(keys["query"], &body.Query); err != nil {
		t.Fatalf("decode query: %v", err)
	}
	if vars, ok := keys["variables"]; ok {
		body.HasVariables = true
		if err := json.Unmarshal(vars, &body.Variables); err != nil {
			t.Fatalf("decode variables: %v", err)
		}
	}
	return body
}

// graphqlServer records every POST body and replies with the given JSON.
func graphqlServer(t *testing.T, reply string, bodies *[][]byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/graphql" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read request body: %v", err)
		}
		*bodies = append(*bodies, raw)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, reply)
	}))
}

// newTestClient points a client at srv, reusing its (possibly TLS-trusting)
// http client.
func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*eas.ClientConfig)) *eas.Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}
	cfg := eas.ClientConfig{
		Host:       u.Hostname(),
		Port:       port,
		Protocol:   u.Scheme,
		HTTPClient: srv.Client(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	client, err := eas.NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

// ─── Construction validation ──────────────────────────────────────────────────

func TestNewClientRejectsConflictingAuth(t *testing.T) {
	tokenSource := auth.Static("tok")
	creds := &auth.Credentials{ClientID: "id", TokenEndpoint: "https://issuer/token"}

	cases := []struct {
		name string
		cfg  eas.ClientConfig
		want string
	}{
		{
			"access token with credentials",
			eas.ClientConfig{Host: "eas.example.com", AccessToken: "tok", Credentials: creds},
			"access token",
		},
		{
			"access token with token source",
			eas.ClientConfig{Host: "eas.example.com", AccessToken: "tok", TokenSource: tokenSource},
			"access token",
		},
		{
			"token source with credentials",
			eas.ClientConfig{Host: "eas.example.com", TokenSource: tokenSource, Credentials: creds},
			"token source and credentials",
		},
		{
			"auth over plain http",
			eas.ClientConfig{Host: "eas.example.com", Protocol: "http", AccessToken: "tok"},
			"plain http",
		},
		{
			"no host",
			eas.ClientConfig{},
			"host",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := eas.NewClient(tc.cfg)
			if err == nil {
				t.Fatal("expected a construction error, got a client")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("expected error mentioning %q, got %q", tc.want, err)
			}
		})
	}
}

func TestNewClientAllowsSingleAuthMechanism(t *testing.T) {
	for name, cfg := range map[string]eas.ClientConfig{
		"access token": {Host: "eas.example.com", AccessToken: "tok"},
		"token source": {Host: "eas.example.com", TokenSource: auth.Static("tok")},
		"credentials":  {Host: "eas.example.com", Credentials: &auth.Credentials{ClientID: "id", TokenEndpoint: "https://issuer/token"}},
		"no auth":      {Host: "eas.example.com"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := eas.NewClient(cfg); err != nil {
				t.Errorf("expected a client, got %v", err)
			}
		})
	}
}

// ─── Auth header ──────────────────────────────────────────────────────────────

func TestAuthorizationHeader(t *testing.T) {
	var header string
	var present bool
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("authorization")
		_, present = r.Header["Authorization"]
		io.WriteString(w, `{"data":{}}`)
	}))
	defer srv.Close()

	t.Run("access token gets a Bearer prefix", func(t *testing.T) {
		client := newTestClient(t, srv, func(cfg *eas.ClientConfig) { cfg.AccessToken = "abc" })
		if _, err := client.GetCalibrationSets(t.Context()); err != nil {
			t.Fatalf("request: %v", err)
		}
		if header != "Bearer abc" {
			t.Errorf("expected \"Bearer abc\", got %q", header)
		}
	})

	t.Run("token source value is used verbatim", func(t *testing.T) {
		client := newTestClient(t, srv, func(cfg *eas.ClientConfig) {
			cfg.TokenSource = auth.TokenSourceFunc(func(context.Context) (string, error) {
				return "Custom xyz", nil
			})
		})
		if _, err := client.GetCalibrationSets(t.Context()); err != nil {
			t.Fatalf("request: %v", err)
		}
		if header != "Custom xyz" {
			t.Errorf("expected the source value verbatim, got %q", header)
		}
	})

	t.Run("no auth sends no header", func(t *testing.T) {
		client := newTestClient(t, srv, nil)
		if _, err := client.GetCalibrationSets(t.Context()); err != nil {
			t.Fatalf("request: %v", err)
		}
		if present {
			t.Errorf("expected no authorization header, got %q", header)
		}
	})
}

// ─── Error taxonomy ───────────────────────────────────────────────────────────

func TestHTTPErrorCarriesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	_, err := client.GetCalibrationSets(t.Context())
	var httpErr *eas.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode: expected 500, got %d", httpErr.StatusCode)
	}
	if !strings.Contains(httpErr.Body, "boom") {
		t.Errorf("Body: expected the server body, got %q", httpErr.Body)
	}
}

func TestGraphQLErrorsAreNotRaised(t *testing.T) {
	var bodies [][]byte
	srv := graphqlServer(t, `{"data":null,"errors":[{"message":"no such feeder"}]}`, &bodies)
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	resp, err := client.GetCalibrationSets(t.Context())
	if err != nil {
		t.Fatalf("graphql errors must not surface as Go errors, got %v", err)
	}
	env, err := resp.Envelope()
	if err != nil {
		t.Fatalf("Envelope: %v", err)
	}
	if len(env.Errors) != 1 || env.Errors[0].Message != "no such feeder" {
		t.Errorf("expected the error to be readable from the envelope, got %+v", env.Errors)
	}
}

// ─── Calibration wire shapes ──────────────────────────────────────────────────

func TestRunCalibrationVariables(t *testing.T) {
	var bodies [][]byte
	srv := graphqlServer(t, `{"data":{"runCalibration":"cal-1"}}`, &bodies)
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	_, err := client.RunCalibration(t.Context(), "TEST CALIBRATION",
		time.Date(2025, 7, 12, 0, 0, 0, 0, time.UTC), eas.CalibrationOptions{})
	if err != nil {
		t.Fatalf("RunCalibration: %v", err)
	}

	body := decodeBody(t, bodies[0])
	want := map[string]any{
		"calibrationName":      "TEST CALIBRATION",
		"calibrationTimeLocal": "2025-07-12T00:00:00",
		"feeders":              nil,
		"generatorConfig":      nil,
	}
	if !reflect.DeepEqual(body.Variables, want) {
		t.Errorf("variables mismatch:\nexpected %v\ngot      %v", want, body.Variables)
	}
}

func TestRunCalibrationStripsZoneAndSubsecond(t *testing.T) {
	var bodies [][]byte
	srv := graphqlServer(t, `{"data":{"runCalibration":"cal-1"}}`, &bodies)
	defer srv.Close()

	perth := time.FixedZone("AWST", 8*60*60)
	client := newTestClient(t, srv, nil)
	_, err := client.RunCalibration(t.Context(), "TEST CALIBRATION",
		time.Date(1902, 1, 28, 0, 0, 20, 555000000, perth), eas.CalibrationOptions{})
	if err != nil {
		t.Fatalf("RunCalibration: %v", err)
	}

	body := decodeBody(t, bodies[0])
	if got := body.Variables["calibrationTimeLocal"]; got != "1902-01-28T00:00:20" {
		t.Errorf("expected the zone-free wall clock reading, got %v", got)
	}
}

func TestRunCalibrationTapSettingsOverride(t *testing.T) {
	var bodies [][]byte
	srv := graphqlServer(t, `{"data":{"runCalibration":"cal-1"}}`, &bodies)
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	_, err := client.RunCalibration(t.Context(), "TEST CALIBRATION",
		time.Date(2025, 7, 12, 0, 0, 0, 0, time.UTC), eas.CalibrationOptions{
			Feeders:                []string{"one", "two"},
			TransformerTapSettings: eas.String("test_tap_settings"),
		})
	if err != nil {
		t.Fatalf("RunCalibration: %v", err)
	}

	body := decodeBody(t, bodies[0])
	gc, ok := body.Variables["generatorConfig"].(map[string]any)
	if !ok {
		t.Fatalf("expected a generatorConfig object, got %v", body.Variables["generatorConfig"])
	}
	for _, section := range []string{"solve", "rawResults", "nodeLevelResults"} {
		if gc[section] != nil {
			t.Errorf("%s: expected null, got %v", section, gc[section])
		}
	}
	model, ok := gc["model"].(map[string]any)
	if !ok {
		t.Fatalf("expected a model object, got %v", gc["model"])
	}
	if model["transformerTapSettings"] != "test_tap_settings" {
		t.Errorf("transformerTapSettings: expected the override, got %v", model["transformerTapSettings"])
	}
	if model["useSpanLevelThreshold"] != false {
		t.Errorf("useSpanLevelThreshold: expected false, got %v", model["useSpanLevelThreshold"])
	}
	// every other model field rides along as an explicit null
	if v, present := model["vmPu"]; !present || v != nil {
		t.Errorf("vmPu: expected an explicit null, present=%v value=%v", present, v)
	}
}

func TestRunCalibrationTapSettingsDoNotMutateCallerConfig(t *testing.T) {
	var bodies [][]byte
	srv := graphqlServer(t, `{"data":{"runCalibration":"cal-1"}}`, &bodies)
	defer srv.Close()

	gc := &eas.GeneratorConfig{Model: &eas.ModelConfig{TransformerTapSettings: eas.String("original")}}
	client := newTestClient(t, srv, nil)
	_, err := client.RunCalibration(t.Context(), "TEST CALIBRATION",
		time.Date(2025, 7, 12, 0, 0, 0, 0, time.UTC), eas.CalibrationOptions{
			TransformerTapSettings: eas.String("replacement"),
			GeneratorConfig:        gc,
		})
	if err != nil {
		t.Fatalf("RunCalibration: %v", err)
	}

	if *gc.Model.TransformerTapSettings != "original" {
		t.Errorf("caller's config was mutated: %q", *gc.Model.TransformerTapSettings)
	}
	body := decodeBody(t, bodies[0])
	model := body.Variables["generatorConfig"].(map[string]any)["model"].(map[string]any)
	if model["transformerTapSettings"] != "replacement" {
		t.Errorf("expected the override on the wire, got %v", model["transformerTapSettings"])
	}
}

func TestGetCalibrationSetsOmitsVariables(t *testing.T) {
	var bodies [][]byte
	srv := graphqlServer(t, `["one","two","three"]`, &bodies)
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	if _, err := client.GetCalibrationSets(t.Context()); err != nil {
		t.Fatalf("GetCalibrationSets: %v", err)
	}

	body := decodeBody(t, bodies[0])
	if body.Query != "query { getCalibrationSets }" {
		t.Errorf("unexpected query %q", body.Query)
	}
	if body.HasVariables {
		t.Errorf("expected no variables key at all, got %s", body.raw)
	}
}

// ─── Study upload ─────────────────────────────────────────────────────────────

func TestUploadStudyBody(t *testing.T) {
	var bodies [][]byte
	srv := graphqlServer(t, `{"data":{"addStudies":1}}`, &bodies)
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	_, err := client.UploadStudy(t.Context(), eas.Study{
		Name:        "TEST STUDY",
		Description: "A test study",
		Tags:        []string{"test"},
		Results:     []eas.Result{{Name: "Huge success"}},
		Styles:      []any{},
	})
	if err != nil {
		t.Fatalf("UploadStudy: %v", err)
	}

	body := decodeBody(t, bodies[0])
	if body.Query != "mutation uploadStudy($study: StudyInput!) { addStudies(studies: [$study]) }" {
		t.Errorf("unexpected query %q", body.Query)
	}
	want := map[string]any{
		"study": map[string]any{
			"name":        "TEST STUDY",
			"description": "A test study",
			"tags":        []any{"test"},
			"styles":      []any{},
			"results": []any{map[string]any{
				"name":           "Huge success",
				"geoJsonOverlay": nil,
				"stateOverlay":   nil,
				"sections":       []any{},
			}},
		},
	}
	if !reflect.DeepEqual(body.Variables, want) {
		t.Errorf("variables mismatch:\nexpected %v\ngot      %v", want, body.Variables)
	}
}
