package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zepben/eas-go/eas"
	"github.com/zepben/eas-go/eas/graphql"
	"github.com/zepben/eas-go/internal/render"
)

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// readJSONFile decodes a JSON file into v. Unknown fields are rejected so
// a typo in a config file fails loudly instead of silently dropping data.
func readJSONFile(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// checkGraphQLErrors surfaces server-side GraphQL errors as a command
// error. The library passes them through as data; at the CLI boundary
// a failed operation should fail the command.
func checkGraphQLErrors(resp *graphql.Response) error {
	env, err := resp.Envelope()
	if err != nil {
		return err
	}
	if len(env.Errors) == 0 {
		return nil
	}
	msgs := make([]string, len(env.Errors))
	for i, e := range env.Errors {
		msgs[i] = e.Message
	}
	return fmt.Errorf("server returned errors: %s", strings.Join(msgs, "; "))
}

// decodeField checks for GraphQL errors, then unmarshals one data field.
func decodeField(resp *graphql.Response, field string, v any) error {
	if err := checkGraphQLErrors(resp); err != nil {
		return err
	}
	return resp.DecodeData(field, v)
}

// emitRaw writes the raw GraphQL envelope as indented JSON. Used by
// commands whose result has no table shape.
func emitRaw(w io.Writer, resp *graphql.Response) error {
	if err := checkGraphQLErrors(resp); err != nil {
		return err
	}
	var pretty map[string]any
	if err := resp.Decode(&pretty); err != nil {
		return err
	}
	return render.JSON(w, pretty)
}

// parseIntID parses a string as a non-negative integer ID, with a
// descriptive label for errors.
func parseIntID(s, label string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a non-negative integer", label, s)
	}
	return id, nil
}

// splitCommaList splits a comma-separated flag value, trimming blanks and
// dropping empty entries.
func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadTimeFrom converts the read-side load time union into the write-side
// interface, or nil when neither branch is set. Time periods are rebuilt
// through the constructor so file-supplied values get the same midnight
// truncation and span validation as programmatic ones.
func loadTimeFrom(lt *eas.LoadTimeConfiguration) (eas.LoadTime, error) {
	if lt == nil {
		return nil, nil
	}
	if lt.FixedTime != nil {
		return lt.FixedTime, nil
	}
	if lt.TimePeriod != nil {
		period, err := eas.NewTimePeriod(
			lt.TimePeriod.StartTime.Time(),
			lt.TimePeriod.EndTime.Time(),
			lt.TimePeriod.LoadOverrides,
		)
		if err != nil {
			return nil, err
		}
		return period, nil
	}
	return nil, nil
}
