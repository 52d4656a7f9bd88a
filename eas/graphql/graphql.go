// Package graphql implements the wire layer shared by every Evolve App
// Server operation: the request/response envelope posted to /api/graphql,
// the camelCase naming rules for wire field names, and the generation of
// GraphQL field-selection strings from the declared shape of a response
// type.
package graphql

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Request is the JSON body of a GraphQL POST.
//
// Variables distinguishes "absent" from "empty": a nil map is omitted from
// the body entirely, while a non-nil empty map is sent as {}. Some server
// operations (e.g. getCalibrationSets) reject a variables key they were not
// expecting, so the distinction is part of the wire contract.
type Request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitzero"`
}

// Error is a single entry of a GraphQL errors array. Application-level
// errors are data, not client failures; they are surfaced for inspection,
// never turned into Go errors by the client.
type Error struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Envelope is the standard {data, errors} shape of a GraphQL response body.
type Envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []Error         `json:"errors,omitempty"`
}

// Response is the parsed body of a transport-level successful reply.
// The raw body is retained untouched so callers can inspect whatever the
// server sent, including GraphQL errors and non-envelope payloads.
type Response struct {
	Raw json.RawMessage
}

// Decode unmarshals the whole response body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

// Envelope parses the body as a standard GraphQL {data, errors} envelope.
func (r *Response) Envelope() (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(r.Raw, &env); err != nil {
		return nil, fmt.Errorf("parsing graphql envelope: %w", err)
	}
	return &env, nil
}

// DecodeData unmarshals a single field of the envelope's data object into v,
// e.g. DecodeData("pagedOpenDssModels", &page).
func (r *Response) DecodeData(field string, v any) error {
	env, err := r.Envelope()
	if err != nil {
		return err
	}
	if env.Data == nil {
		return fmt.Errorf("graphql response has no data for %q", field)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(env.Data, &fields); err != nil {
		return fmt.Errorf("parsing graphql data: %w", err)
	}
	raw, ok := fields[field]
	if !ok {
		return fmt.Errorf("graphql data has no field %q", field)
	}
	return json.Unmarshal(raw, v)
}

// ─── Wire field naming ────────────────────────────────────────────────────────

// fieldNameOverrides maps Go field names that do not decompose losslessly
// into camelCase words. The table is checked before the generic algorithm;
// it exists for acronyms whose wire casing differs from what the generic
// rule would produce.
var fieldNameOverrides = map[string]string{
	"DownloadURL": "downloadUrl",
	"WorkflowID":  "workflowId",
	"RunID":       "runId",
	"LoadID":      "loadId",
	"ScenarioID":  "scenarioId",
	"SourceURL":   "sourceUrl",
}

// FieldName converts an exported Go field name to its wire name.
//
// The override table wins outright. Otherwise the leading word is
// lowercased: for names opening with a run of capitals followed by a
// lowercase letter ("PFactorBaseImports"), the run minus its last letter is
// treated as the first word; a run that spans the whole name ("ID") is
// lowercased wholesale. Trailing acronyms such as SWER, CO2, LVKV and PLSI
// survive untouched, which is exactly what the server schema expects.
func FieldName(goName string) string {
	if wire, ok := fieldNameOverrides[goName]; ok {
		return wire
	}
	runes := []rune(goName)
	n := 0
	for n < len(runes) && unicode.IsUpper(runes[n]) {
		n++
	}
	switch {
	case n == 0:
		return goName
	case n == len(runes):
		// whole name is one uppercase run
		return strings.ToLower(goName)
	case n > 1:
		// leave the last capital of the run for the next word
		n--
	}
	return strings.ToLower(string(runes[:n])) + string(runes[n:])
}

// ─── Field selection generation ───────────────────────────────────────────────

var rawMessageType = reflect.TypeOf(json.RawMessage(nil))

// Selection generates the space-joined GraphQL field-selection string for a
// response type from its declared shape.
//
// The wire name of each exported field comes from its json tag, falling back
// to FieldName. A field whose type is (optionally behind one level of
// pointer, slice or map) itself a struct expands to `name { ... }`; exactly
// one level of such unwrapping is resolved — deeper generic nesting is not,
// a known limitation carried over from the shape of the server schema.
// Types with their own JSON encoding (custom marshalers, json.RawMessage)
// are leaves regardless of their Go kind. A `graphql` struct tag replaces
// the generated selection for that field verbatim.
func Selection(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("graphql: Selection of non-struct type %s", t))
	}
	return structSelection(t)
}

func structSelection(t reflect.Type) string {
	var parts []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			// Embedded unexported struct types still promote their exported
			// fields, matching encoding/json. The exported check must not
			// run first: reflect reports such types as unexported.
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				parts = append(parts, structSelection(ft))
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		if sel, ok := f.Tag.Lookup("graphql"); ok {
			parts = append(parts, sel)
			continue
		}
		name := wireName(f)
		if name == "" {
			continue
		}
		if nested, ok := nestedStruct(f.Type); ok {
			parts = append(parts, fmt.Sprintf("%s { %s }", name, structSelection(nested)))
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, " ")
}

// wireName resolves a field's wire name from its json tag, or FieldName
// when untagged. Returns "" for fields excluded from serialization.
func wireName(f reflect.StructField) string {
	tag, ok := f.Tag.Lookup("json")
	if !ok {
		return FieldName(f.Name)
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return FieldName(f.Name)
	}
	return name
}

// nestedStruct reports whether t is a config-model struct requiring a
// sub-selection, unwrapping at most one level of pointer, slice or map.
func nestedStruct(t reflect.Type) (reflect.Type, bool) {
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Map:
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, false
	}
	if selfEncoding(t) {
		return nil, false
	}
	return t, true
}

var jsonMarshalerType = reflect.TypeOf((*json.Marshaler)(nil)).Elem()

// selfEncoding reports whether t serializes as a scalar despite being a
// struct (custom marshalers such as LocalDateTime, and raw JSON blobs).
func selfEncoding(t reflect.Type) bool {
	if t == rawMessageType {
		return true
	}
	return t.Implements(jsonMarshalerType) || reflect.PointerTo(t).Implements(jsonMarshalerType)
}
