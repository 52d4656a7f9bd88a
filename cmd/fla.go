package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zepben/eas-go/eas"
)

var flaCmd = &cobra.Command{
	Use:   "fla",
	Short: "Run feeder load analysis reports",
}

var (
	flaRunFeeders     string
	flaRunSubstations string
	flaRunSubRegions  string
	flaRunRegions     string
	flaRunStart       string
	flaRunEnd         string
	flaRunOutput      string
	flaRunScenario    string
	flaRunYear        int
	flaRunLvNetwork   bool
	flaRunFeederLoads bool
	flaRunCoincident  bool
	flaRunBasic       bool
	flaRunConductor   bool
	flaRunAggregate   bool
)

var flaRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a feeder load analysis report run",
	Example: `  easctl fla run --feeders f1,f2 --start 2024-01-01 --end 2024-12-31 --output "FLA 2024"
  easctl fla run --feeders f1 --start 2024-01-01 --end 2024-12-31 --output "FLA 2030" --scenario base --year 2030`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flaRunStart == "" || flaRunEnd == "" {
			return fmt.Errorf("--start and --end are required")
		}
		if flaRunOutput == "" {
			return fmt.Errorf("--output is required")
		}

		input := eas.FeederLoadAnalysisInput{
			Feeders:                splitCommaList(flaRunFeeders),
			Substations:            splitCommaList(flaRunSubstations),
			SubGeographicalRegions: splitCommaList(flaRunSubRegions),
			GeographicalRegions:    splitCommaList(flaRunRegions),
			StartDate:              flaRunStart,
			EndDate:                flaRunEnd,
			FetchLvNetwork:         flaRunLvNetwork,
			ProcessFeederLoads:     flaRunFeederLoads,
			ProcessCoincidentLoads: flaRunCoincident,
			ProduceBasicReport:     flaRunBasic,
			ProduceConductorReport: flaRunConductor,
			AggregateAtFeederLevel: flaRunAggregate,
			Output:                 flaRunOutput,
		}
		if flaRunScenario != "" {
			if flaRunYear == 0 {
				return fmt.Errorf("--year is required when --scenario is set")
			}
			input.FlaForecastConfig = eas.NewFlaForecastConfig(flaRunScenario, flaRunYear)
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		resp, err := deps.Client.RunFeederLoadAnalysisReport(cmd.Context(), input)
		if err != nil {
			return fmt.Errorf("running feeder load analysis: %w", err)
		}
		if err := checkGraphQLErrors(resp); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Started feeder load analysis, results under study %q\n", flaRunOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flaCmd)
	flaCmd.AddCommand(flaRunCmd)

	f := flaRunCmd.Flags()
	f.StringVar(&flaRunFeeders, "feeders", "", "comma-separated feeder mRIDs")
	f.StringVar(&flaRunSubstations, "substations", "", "comma-separated substation mRIDs")
	f.StringVar(&flaRunSubRegions, "sub-regions", "", "comma-separated sub-geographical region mRIDs")
	f.StringVar(&flaRunRegions, "regions", "", "comma-separated geographical region mRIDs")
	f.StringVar(&flaRunStart, "start", "", "start date, yyyy-mm-dd (required)")
	f.StringVar(&flaRunEnd, "end", "", "end date, yyyy-mm-dd (required)")
	f.StringVar(&flaRunOutput, "output", "", "name of the study the report is written to (required)")
	f.StringVar(&flaRunScenario, "scenario", "", "forecast scenario id (runs against forecast load)")
	f.IntVar(&flaRunYear, "year", 0, "forecast year (required with --scenario)")
	f.BoolVar(&flaRunLvNetwork, "lv-network", true, "fetch the LV network")
	f.BoolVar(&flaRunFeederLoads, "feeder-loads", true, "process per-feeder loads")
	f.BoolVar(&flaRunCoincident, "coincident-loads", false, "process coincident loads")
	f.BoolVar(&flaRunBasic, "basic-report", true, "produce the basic report")
	f.BoolVar(&flaRunConductor, "conductor-report", false, "produce the conductor report")
	f.BoolVar(&flaRunAggregate, "aggregate", false, "aggregate results at feeder level")
}
