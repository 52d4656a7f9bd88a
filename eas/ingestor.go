package eas

import (
	"context"
	"fmt"

	"github.com/zepben/eas-go/eas/graphql"
)

// IngestorRunState is the lifecycle state of an ingestor run.
type IngestorRunState string

const (
	IngestorRunStateInitialized   IngestorRunState = "INITIALIZED"
	IngestorRunStateQueued        IngestorRunState = "QUEUED"
	IngestorRunStateStarted       IngestorRunState = "STARTED"
	IngestorRunStateRunning       IngestorRunState = "RUNNING"
	IngestorRunStateSuccess       IngestorRunState = "SUCCESS"
	IngestorRunStateFailure       IngestorRunState = "FAILURE"
	IngestorRunStateFailedToStart IngestorRunState = "FAILED_TO_START"
)

// IngestorRuntimeKind identifies the container runtime an ingestor run
// executes on.
type IngestorRuntimeKind string

const (
	IngestorRuntimeKindAzureContainerAppJob IngestorRuntimeKind = "AZURE_CONTAINER_APP_JOB"
	IngestorRuntimeKindDocker               IngestorRuntimeKind = "DOCKER"
	IngestorRuntimeKindEcs                  IngestorRuntimeKind = "ECS"
	IngestorRuntimeKindKubernetes           IngestorRuntimeKind = "KUBERNETES"
	IngestorRuntimeKindTemporalKubernetes   IngestorRuntimeKind = "TEMPORAL_KUBERNETES"
)

// IngestorConfigInput is one key/value setting passed to an ingestor run.
type IngestorConfigInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// IngestorRun is the server's record of one ingestor run.
type IngestorRun struct {
	ID                   int                 `json:"id"`
	ContainerRuntimeType IngestorRuntimeKind `json:"containerRuntimeType"`
	Payload              string              `json:"payload"`
	Token                string              `json:"token"`
	Status               IngestorRunState    `json:"status"`
	StartedAt            *LocalDateTime      `json:"startedAt"`
	StatusLastUpdatedAt  *LocalDateTime      `json:"statusLastUpdatedAt"`
	CompletedAt          *LocalDateTime      `json:"completedAt"`
}

// IngestorRunsFilterInput narrows the run listing. Unset fields serialize
// as nulls, which the server treats as "no constraint".
type IngestorRunsFilterInput struct {
	ID                   *int                  `json:"id"`
	Status               []IngestorRunState    `json:"status"`
	Completed            *bool                 `json:"completed"`
	ContainerRuntimeType []IngestorRuntimeKind `json:"containerRuntimeType"`
}

// IngestorRunsSortCriteriaInput orders the run listing.
type IngestorRunsSortCriteriaInput struct {
	Status               *Order `json:"status"`
	StartedAt            *Order `json:"startedAt"`
	StatusLastUpdatedAt  *Order `json:"statusLastUpdatedAt"`
	CompletedAt          *Order `json:"completedAt"`
	ContainerRuntimeType *Order `json:"containerRuntimeType"`
}

const executeIngestorQuery = "mutation executeIngestor($runConfig: [IngestorConfigInput!]) { executeIngestor(runConfig: $runConfig) }"

var (
	getIngestorRunQuery = fmt.Sprintf(
		"query getIngestorRun($id: Int!) { getIngestorRun(id: $id) { %s } }",
		graphql.Selection(IngestorRun{}))
	listIngestorRunsQuery = fmt.Sprintf(
		"query listIngestorRuns($filter: IngestorRunsFilterInput, $sort: IngestorRunsSortCriteriaInput) { listIngestorRuns(filter: $filter, sort: $sort) { %s } }",
		graphql.Selection(IngestorRun{}))
)

// RunIngestor queues an ingestor run with the given settings. The response
// carries the new run's id.
func (c *Client) RunIngestor(ctx context.Context, runConfig []IngestorConfigInput) (*graphql.Response, error) {
	return c.post(ctx, executeIngestorQuery, map[string]any{
		"runConfig": runConfig,
	})
}

// GetIngestorRun fetches one ingestor run by id.
func (c *Client) GetIngestorRun(ctx context.Context, id int) (*graphql.Response, error) {
	return c.post(ctx, getIngestorRunQuery, map[string]any{
		"id": id,
	})
}

// GetIngestorRunList lists ingestor runs. Both arguments are optional;
// unset ones are left out of the request entirely.
func (c *Client) GetIngestorRunList(ctx context.Context, filter *IngestorRunsFilterInput, sort *IngestorRunsSortCriteriaInput) (*graphql.Response, error) {
	variables := map[string]any{}
	if filter != nil {
		variables["filter"] = filter
	}
	if sort != nil {
		variables["sort"] = sort
	}
	return c.post(ctx, listIngestorRunsQuery, variables)
}
