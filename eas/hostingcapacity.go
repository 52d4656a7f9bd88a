package eas

import (
	"context"
	"fmt"
	"time"

	"github.com/zepben/eas-go/eas/graphql"
)

const (
	runWorkPackageQuery = "mutation runWorkPackage($input: WorkPackageInput!, $workPackageName: String!) " +
		"{ runWorkPackage(input: $input, workPackageName: $workPackageName) }"
	workPackageCostEstimationQuery = "query getWorkPackageCostEstimation($input: WorkPackageInput!) " +
		"{ getWorkPackageCostEstimation(input: $input) }"
	cancelWorkPackageQuery = "mutation cancelWorkPackage($workPackageId: ID!) { cancelWorkPackage(workPackageId: $workPackageId) }"
	runCalibrationQuery    = "mutation runCalibration($calibrationName: String!, $calibrationTimeLocal: LocalDateTime, $feeders: [String!], $generatorConfig: HcGeneratorConfigInput) " +
		"{ runCalibration(calibrationName: $calibrationName, calibrationTimeLocal: $calibrationTimeLocal, feeders: $feeders, generatorConfig: $generatorConfig) }"
	calibrationSetsQuery        = "query { getCalibrationSets }"
	transformerTapSettingsQuery = "query getTransformerTapSettings($calibrationName: String!, $feeder: String, $transformerMrid: String) " +
		"{ getTransformerTapSettings(calibrationName: $calibrationName, feeder: $feeder, transformerMrid: $transformerMrid) }"
)

var (
	workPackagesProgressQuery = fmt.Sprintf(
		"query { getWorkPackageProgress { %s } }",
		graphql.Selection(WorkPackagesProgress{}))
	calibrationRunQuery = fmt.Sprintf(
		"query getCalibrationRun($id: ID!) { getCalibrationRun(id: $id) { %s } }",
		graphql.Selection(CalibrationRun{}))
)

// RunWorkPackage starts a hosting capacity work package. The response
// carries the server-assigned work package id.
func (c *Client) RunWorkPackage(ctx context.Context, config WorkPackageConfig) (*graphql.Response, error) {
	return c.post(ctx, runWorkPackageQuery, map[string]any{
		"input":           newWorkPackageInput(config),
		"workPackageName": config.Name,
	})
}

// GetWorkPackageCostEstimation prices a work package configuration without
// running it. The input shape is identical to RunWorkPackage's.
func (c *Client) GetWorkPackageCostEstimation(ctx context.Context, config WorkPackageConfig) (*graphql.Response, error) {
	return c.post(ctx, workPackageCostEstimationQuery, map[string]any{
		"input": newWorkPackageInput(config),
	})
}

// CancelWorkPackage cancels a running work package by id.
func (c *Client) CancelWorkPackage(ctx context.Context, workPackageID string) (*graphql.Response, error) {
	return c.post(ctx, cancelWorkPackageQuery, map[string]any{
		"workPackageId": workPackageID,
	})
}

// GetWorkPackagesProgress reports the state of every queued and running
// work package.
func (c *Client) GetWorkPackagesProgress(ctx context.Context) (*graphql.Response, error) {
	return c.post(ctx, workPackagesProgressQuery, nil)
}

// CalibrationOptions are the optional arguments of RunCalibration.
// TransformerTapSettings, when set, takes precedence over any value
// already present on GeneratorConfig.Model.
type CalibrationOptions struct {
	Feeders                []string
	TransformerTapSettings *string
	GeneratorConfig        *GeneratorConfig
}

// calibrationGeneratorConfig resolves the generator config sent with a
// calibration run, overriding the model's transformer tap settings without
// mutating the caller's structs.
func calibrationGeneratorConfig(opts CalibrationOptions) *GeneratorConfig {
	if opts.TransformerTapSettings == nil {
		return opts.GeneratorConfig
	}
	gc := GeneratorConfig{}
	if opts.GeneratorConfig != nil {
		gc = *opts.GeneratorConfig
	}
	model := ModelConfig{}
	if gc.Model != nil {
		model = *gc.Model
	}
	model.TransformerTapSettings = opts.TransformerTapSettings
	gc.Model = &model
	return &gc
}

// RunCalibration starts a hosting capacity calibration run. The provided
// time is read as network-local wall-clock time; its timezone and
// sub-second components are dropped before serialization.
func (c *Client) RunCalibration(ctx context.Context, calibrationName string, calibrationTimeLocal time.Time, opts CalibrationOptions) (*graphql.Response, error) {
	return c.post(ctx, runCalibrationQuery, map[string]any{
		"calibrationName":      calibrationName,
		"calibrationTimeLocal": NewLocalDateTime(calibrationTimeLocal),
		"feeders":              opts.Feeders,
		"generatorConfig":      calibrationGeneratorConfig(opts),
	})
}

// GetCalibrationRun fetches one calibration run by id.
func (c *Client) GetCalibrationRun(ctx context.Context, id string) (*graphql.Response, error) {
	return c.post(ctx, calibrationRunQuery, map[string]any{
		"id": id,
	})
}

// GetCalibrationSets lists the names of all calibration sets.
func (c *Client) GetCalibrationSets(ctx context.Context) (*graphql.Response, error) {
	return c.post(ctx, calibrationSetsQuery, nil)
}

// GetTransformerTapSettings fetches the tap settings recorded by a
// calibration, optionally narrowed to one feeder or one transformer.
func (c *Client) GetTransformerTapSettings(ctx context.Context, calibrationName string, feeder, transformerMrid *string) (*graphql.Response, error) {
	return c.post(ctx, transformerTapSettingsQuery, map[string]any{
		"calibrationName": calibrationName,
		"feeder":          feeder,
		"transformerMrid": transformerMrid,
	})
}
