package eas

import (
	"context"
	"encoding/json"

	"github.com/zepben/eas-go/eas/graphql"
)

// Forecast defaults applied by NewFlaForecastConfig.
const (
	defaultPvUpgradeThreshold   = 5000
	defaultBessUpgradeThreshold = 5000
	defaultForecastSeed         = 123
)

// FlaForecastConfig is the forecast portion of a feeder load analysis:
// which scenario and year to project, and how aggressively customer sites
// gain PV and battery capacity during scenario application.
type FlaForecastConfig struct {
	ScenarioID           string `json:"scenarioId"`
	Year                 int    `json:"year"`
	PvUpgradeThreshold   *int   `json:"pvUpgradeThreshold"`
	BessUpgradeThreshold *int   `json:"bessUpgradeThreshold"`
	Seed                 *int   `json:"seed"`
}

// NewFlaForecastConfig builds a forecast config with the default upgrade
// thresholds and seed.
func NewFlaForecastConfig(scenarioID string, year int) *FlaForecastConfig {
	return &FlaForecastConfig{
		ScenarioID:           scenarioID,
		Year:                 year,
		PvUpgradeThreshold:   Int(defaultPvUpgradeThreshold),
		BessUpgradeThreshold: Int(defaultBessUpgradeThreshold),
		Seed:                 Int(defaultForecastSeed),
	}
}

// FeederLoadAnalysisInput configures a feeder load analysis report run.
// The four region selectors are mRID lists; dates are plain yyyy-mm-dd
// strings.
type FeederLoadAnalysisInput struct {
	Feeders                []string           `json:"feeders"`
	Substations            []string           `json:"substations"`
	SubGeographicalRegions []string           `json:"subGeographicalRegions"`
	GeographicalRegions    []string           `json:"geographicalRegions"`
	StartDate              string             `json:"startDate"`
	EndDate                string             `json:"endDate"`
	FetchLvNetwork         bool               `json:"fetchLvNetwork"`
	ProcessFeederLoads     bool               `json:"processFeederLoads"`
	ProcessCoincidentLoads bool               `json:"processCoincidentLoads"`
	ProduceBasicReport     bool               `json:"produceBasicReport"`
	ProduceConductorReport bool               `json:"produceConductorReport"`
	AggregateAtFeederLevel bool               `json:"aggregateAtFeederLevel"`
	Output                 string             `json:"output"`
	FlaForecastConfig      *FlaForecastConfig `json:"flaForecastConfig"`
}

const runFeederLoadAnalysisReportQuery = "mutation runFeederLoadAnalysisReport($input: FeederLoadAnalysisInput!) { runFeederLoadAnalysisReport(input: $input) }"

// feederLoadAnalysisVariables maps the input, copying feeders into the
// geographicalRegions wire field. The duplication is a compatibility shim
// the server schema expects; do not remove it.
func feederLoadAnalysisVariables(input FeederLoadAnalysisInput) (map[string]any, error) {
	raw, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}
	var mapped map[string]any
	if err := json.Unmarshal(raw, &mapped); err != nil {
		return nil, err
	}
	if input.Feeders != nil {
		mapped["geographicalRegions"] = input.Feeders
	}
	return map[string]any{"input": mapped}, nil
}

// RunFeederLoadAnalysisReport starts a feeder load analysis report run and
// stores the result under the input's output study name.
func (c *Client) RunFeederLoadAnalysisReport(ctx context.Context, input FeederLoadAnalysisInput) (*graphql.Response, error) {
	variables, err := feederLoadAnalysisVariables(input)
	if err != nil {
		return nil, err
	}
	return c.post(ctx, runFeederLoadAnalysisReportQuery, variables)
}
