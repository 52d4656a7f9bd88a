package eas

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/zepben/eas-go/eas/graphql"
)

// OpenDssModelState is the lifecycle state of an OpenDSS model export.
type OpenDssModelState string

const (
	OpenDssModelStateCreating  OpenDssModelState = "CREATING"
	OpenDssModelStateCompleted OpenDssModelState = "COMPLETED"
	OpenDssModelStateFailed    OpenDssModelState = "FAILED"
)

// ModelOptions pins an OpenDSS export to one feeder, scenario and year.
type ModelOptions struct {
	Feeder   string `json:"feeder"`
	Scenario string `json:"scenario"`
	Year     int    `json:"year"`
}

// LoadTimeConfiguration is the read-side view of an export's load-time
// selection. At most one branch is populated.
type LoadTimeConfiguration struct {
	FixedTime  *FixedTime  `json:"fixedTime"`
	TimePeriod *TimePeriod `json:"timePeriod"`
}

// OpenDssModulesConfiguration groups the load-time selection and generator
// settings of an export.
type OpenDssModulesConfiguration struct {
	Common    *LoadTimeConfiguration `json:"common"`
	Generator *GeneratorConfig       `json:"generator"`
}

// OpenDssGenerationSpec is the full specification an export was generated
// from, as echoed back by the server.
type OpenDssGenerationSpec struct {
	ModelOptions         *ModelOptions                `json:"modelOptions"`
	ModulesConfiguration *OpenDssModulesConfiguration `json:"modulesConfiguration"`
}

// OpenDssModel is the server's record of one OpenDSS model export.
type OpenDssModel struct {
	ID             int                    `json:"id"`
	Name           string                 `json:"name"`
	CreatedAt      *LocalDateTime         `json:"createdAt"`
	CreatedBy      string                 `json:"createdBy"`
	State          OpenDssModelState      `json:"state"`
	DownloadURL    *string                `json:"downloadUrl"`
	IsPublic       bool                   `json:"isPublic"`
	Errors         []string               `json:"errors"`
	GenerationSpec *OpenDssGenerationSpec `json:"generationSpec"`
}

// PagedOpenDssModels is one page of the export collection.
type PagedOpenDssModels struct {
	TotalCount int            `json:"totalCount"`
	Offset     int64          `json:"offset"`
	Models     []OpenDssModel `json:"models"`
}

// GetOpenDssModelsFilterInput narrows the export listing. Unset fields
// serialize as nulls, which the server treats as "no constraint".
type GetOpenDssModelsFilterInput struct {
	Name     *string             `json:"name"`
	IsPublic *bool               `json:"isPublic"`
	State    []OpenDssModelState `json:"state"`
}

// GetOpenDssModelsSortCriteriaInput orders the export listing. Each set
// field is a sort key with its direction.
type GetOpenDssModelsSortCriteriaInput struct {
	State     *Order `json:"state"`
	CreatedAt *Order `json:"createdAt"`
	Name      *Order `json:"name"`
	IsPublic  *Order `json:"isPublic"`
}

// OpenDssConfig describes an OpenDSS model export request.
type OpenDssConfig struct {
	ModelName       string
	IsPublic        bool
	Feeder          string
	Scenario        string
	Year            int
	LoadTime        LoadTime
	GeneratorConfig *GeneratorConfig
}

type openDssModulesConfigurationInput struct {
	Common    loadTimeSection  `json:"common"`
	Generator *GeneratorConfig `json:"generator"`
}

type openDssGenerationSpecInput struct {
	ModelOptions         ModelOptions                     `json:"modelOptions"`
	ModulesConfiguration openDssModulesConfigurationInput `json:"modulesConfiguration"`
}

type openDssModelInput struct {
	ModelName      string                     `json:"modelName"`
	IsPublic       bool                       `json:"isPublic"`
	GenerationSpec openDssGenerationSpecInput `json:"generationSpec"`
}

func newOpenDssModelInput(config OpenDssConfig) openDssModelInput {
	return openDssModelInput{
		ModelName: config.ModelName,
		IsPublic:  config.IsPublic,
		GenerationSpec: openDssGenerationSpecInput{
			ModelOptions: ModelOptions{
				Feeder:   config.Feeder,
				Scenario: config.Scenario,
				Year:     config.Year,
			},
			ModulesConfiguration: openDssModulesConfigurationInput{
				Common:    newLoadTimeSection(config.LoadTime),
				Generator: config.GeneratorConfig,
			},
		},
	}
}

// ModelNotFoundError reports that no OpenDSS model export with the
// requested id exists on the server.
type ModelNotFoundError struct {
	ID int
}

func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("opendss model %d not found", e.ID)
}

const createOpenDssModelQuery = "mutation createOpenDssModel($input: OpenDssModelInput!) { createOpenDssModel(input: $input) }"

var pagedOpenDssModelsQuery = fmt.Sprintf(
	"query pagedOpenDssModels($limit: Int, $offset: Long, $filter: GetOpenDssModelsFilterInput, $sort: GetOpenDssModelsSortCriteriaInput) "+
		"{ pagedOpenDssModels(limit: $limit, offset: $offset, filter: $filter, sort: $sort) { totalCount offset models { %s } } }",
	graphql.Selection(OpenDssModel{}))

// RunOpenDssExport asks the server to generate an OpenDSS model from the
// given configuration. The response carries the new export's id.
func (c *Client) RunOpenDssExport(ctx context.Context, config OpenDssConfig) (*graphql.Response, error) {
	return c.post(ctx, createOpenDssModelQuery, map[string]any{
		"input": newOpenDssModelInput(config),
	})
}

// GetPagedOpenDssModels lists one page of the export collection. All
// arguments are optional; unset ones are left out of the request entirely.
func (c *Client) GetPagedOpenDssModels(
	ctx context.Context,
	limit *int,
	offset *int64,
	filter *GetOpenDssModelsFilterInput,
	sort *GetOpenDssModelsSortCriteriaInput,
) (*graphql.Response, error) {
	variables := map[string]any{}
	if limit != nil {
		variables["limit"] = *limit
	}
	if offset != nil {
		variables["offset"] = *offset
	}
	if filter != nil {
		variables["filter"] = filter
	}
	if sort != nil {
		variables["sort"] = sort
	}
	return c.post(ctx, pagedOpenDssModelsQuery, variables)
}

// Page size used by GetOpenDssModel's scan of the export collection.
const openDssModelPageSize = 100

// GetOpenDssModel finds one export by id, walking the paged listing from
// offset zero until the id turns up or the server-reported total is
// reached. The offset is a plain integer, not a stable cursor, so a
// collection that mutates between pages can make the scan miss or repeat
// records. If no page contains the id a *ModelNotFoundError is returned.
func (c *Client) GetOpenDssModel(ctx context.Context, modelID int) (*OpenDssModel, error) {
	limit := openDssModelPageSize
	var offset int64
	for {
		resp, err := c.GetPagedOpenDssModels(ctx, &limit, &offset, nil, nil)
		if err != nil {
			return nil, err
		}
		var page PagedOpenDssModels
		if err := resp.DecodeData("pagedOpenDssModels", &page); err != nil {
			return nil, err
		}
		for i := range page.Models {
			if page.Models[i].ID == modelID {
				return &page.Models[i], nil
			}
		}
		offset += int64(len(page.Models))
		if len(page.Models) == 0 || offset >= int64(page.TotalCount) {
			return nil, &ModelNotFoundError{ID: modelID}
		}
	}
}

// GetOpenDssModelDownloadURL resolves the download location of a completed
// export. The server answers the endpoint with a redirect; the redirect is
// not followed, its Location header is the result. A plain 2xx carries no
// download location and yields an empty string.
func (c *Client) GetOpenDssModelDownloadURL(ctx context.Context, modelID int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(fmt.Sprintf("/api/opendss-model/%d", modelID)), nil)
	if err != nil {
		return "", err
	}
	if err := c.setAuth(ctx, req); err != nil {
		return "", err
	}
	resp, err := c.noRedirect.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusFound:
		return resp.Header.Get("Location"), nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return "", nil
	}
	body, _ := io.ReadAll(resp.Body)
	return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
}
