package eas

import (
	"context"
	"encoding/json"

	"github.com/zepben/eas-go/eas/graphql"
)

// GeoJsonOverlay is a GeoJSON feature collection layered over the network
// map for a study result. Data is forwarded verbatim; the server parses it.
type GeoJsonOverlay struct {
	Data             json.RawMessage `json:"data"`
	Styles           []string        `json:"styles"`
	SourceProperties any             `json:"sourceProperties"`
}

// StateOverlay recolours existing network equipment by state for a study
// result.
type StateOverlay struct {
	Data   json.RawMessage `json:"data"`
	Styles []string        `json:"styles"`
}

// Section is one tabular data block attached to a study result.
type Section struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Columns     any    `json:"columns"`
	Data        any    `json:"data"`
}

// Result is a single named result within a study. Both overlays are
// optional and serialize as explicit nulls when absent.
type Result struct {
	Name           string
	GeoJsonOverlay *GeoJsonOverlay
	StateOverlay   *StateOverlay
	Sections       []Section
}

// Study is a displayable bundle of results and map styles uploaded to the
// server as a unit.
type Study struct {
	Name        string
	Description string
	Tags        []string
	Results     []Result
	Styles      []any
}

// studyInput is the StudyInput wire shape. It is built field by field so
// that absent overlays become nulls and an absent sections list becomes an
// empty array rather than null.
func studyInput(study Study) map[string]any {
	results := make([]map[string]any, 0, len(study.Results))
	for _, result := range study.Results {
		sections := make([]map[string]any, 0, len(result.Sections))
		for _, section := range result.Sections {
			sections = append(sections, map[string]any{
				"type":        section.Type,
				"name":        section.Name,
				"description": section.Description,
				"columns":     section.Columns,
				"data":        section.Data,
			})
		}
		entry := map[string]any{
			"name":           result.Name,
			"geoJsonOverlay": nil,
			"stateOverlay":   nil,
			"sections":       sections,
		}
		if overlay := result.GeoJsonOverlay; overlay != nil {
			entry["geoJsonOverlay"] = map[string]any{
				"data":             overlay.Data,
				"sourceProperties": overlay.SourceProperties,
				"styles":           overlay.Styles,
			}
		}
		if overlay := result.StateOverlay; overlay != nil {
			entry["stateOverlay"] = map[string]any{
				"data":   overlay.Data,
				"styles": overlay.Styles,
			}
		}
		results = append(results, entry)
	}
	return map[string]any{
		"name":        study.Name,
		"description": study.Description,
		"tags":        study.Tags,
		"styles":      study.Styles,
		"results":     results,
	}
}

const uploadStudyQuery = "mutation uploadStudy($study: StudyInput!) { addStudies(studies: [$study]) }"

// UploadStudy uploads a study for display in the Evolve App Server UI.
func (c *Client) UploadStudy(ctx context.Context, study Study) (*graphql.Response, error) {
	return c.post(ctx, uploadStudyQuery, map[string]any{
		"study": studyInput(study),
	})
}
