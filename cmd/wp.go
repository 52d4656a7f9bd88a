package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/zepben/eas-go/eas"
	"github.com/zepben/eas-go/internal/config"
	"github.com/zepben/eas-go/internal/render"
)

var wpCmd = &cobra.Command{
	Use:   "wp",
	Short: "Run and monitor hosting capacity work packages",
	Long: `Work packages bundle feeder/scenario/year selections with generator and
result processing settings. Definitions are JSON files; see wp run --help.

  easctl wp run --file wp.json
  easctl wp progress
  easctl wp watch`,
}

// ─── Work package file schema ─────────────────────────────────────────────────

// workPackageFile is the on-disk JSON shape of a work package definition.
// Exactly one of forecast or feeders must be set.
type workPackageFile struct {
	Name                       string                     `json:"name"`
	Forecast                   *forecastSection           `json:"forecast"`
	Feeders                    []feederSection            `json:"feeders"`
	QualityAssuranceProcessing *bool                      `json:"qualityAssuranceProcessing"`
	GeneratorConfig            *eas.GeneratorConfig       `json:"generatorConfig"`
	ResultProcessorConfig      *eas.ResultProcessorConfig `json:"resultProcessorConfig"`
	Intervention               *eas.InterventionConfig    `json:"intervention"`
}

type forecastSection struct {
	Feeders   []string                   `json:"feeders"`
	Years     []int                      `json:"years"`
	Scenarios []string                   `json:"scenarios"`
	LoadTime  *eas.LoadTimeConfiguration `json:"loadTime"`
}

type feederSection struct {
	Feeder    string                     `json:"feeder"`
	Years     []int                      `json:"years"`
	Scenarios []string                   `json:"scenarios"`
	LoadTime  *eas.LoadTimeConfiguration `json:"loadTime"`
}

// toConfig converts the file shape into the client's WorkPackageConfig.
func (f *workPackageFile) toConfig() (eas.WorkPackageConfig, error) {
	if f.Name == "" {
		return eas.WorkPackageConfig{}, fmt.Errorf("work package file must set a name")
	}
	if (f.Forecast == nil) == (len(f.Feeders) == 0) {
		return eas.WorkPackageConfig{}, fmt.Errorf("work package file must set exactly one of forecast or feeders")
	}

	cfg := eas.WorkPackageConfig{
		Name:                       f.Name,
		QualityAssuranceProcessing: f.QualityAssuranceProcessing,
		GeneratorConfig:            f.GeneratorConfig,
		ResultProcessorConfig:      f.ResultProcessorConfig,
		Intervention:               f.Intervention,
	}
	if f.Forecast != nil {
		loadTime, err := loadTimeFrom(f.Forecast.LoadTime)
		if err != nil {
			return eas.WorkPackageConfig{}, fmt.Errorf("forecast load time: %w", err)
		}
		cfg.Syf = eas.ForecastConfig{
			Feeders:   f.Forecast.Feeders,
			Years:     f.Forecast.Years,
			Scenarios: f.Forecast.Scenarios,
			LoadTime:  loadTime,
		}
	} else {
		configs := make([]eas.FeederConfig, len(f.Feeders))
		for i, fc := range f.Feeders {
			loadTime, err := loadTimeFrom(fc.LoadTime)
			if err != nil {
				return eas.WorkPackageConfig{}, fmt.Errorf("feeder %q load time: %w", fc.Feeder, err)
			}
			configs[i] = eas.FeederConfig{
				Feeder:    fc.Feeder,
				Years:     fc.Years,
				Scenarios: fc.Scenarios,
				LoadTime:  loadTime,
			}
		}
		cfg.Syf = eas.FeederConfigs{Configs: configs}
	}
	return cfg, nil
}

// loadWorkPackage reads and converts a definition file.
func loadWorkPackage(path string) (eas.WorkPackageConfig, error) {
	var f workPackageFile
	if err := readJSONFile(path, &f); err != nil {
		return eas.WorkPackageConfig{}, err
	}
	return f.toConfig()
}

// ─── wp run ───────────────────────────────────────────────────────────────────

var wpRunFile string

var wpRunCmd = &cobra.Command{
	Use:     "run",
	Short:   "Start a work package from a definition file",
	Example: `  easctl wp run --file wp.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadWorkPackage(wpRunFile)
		if err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		resp, err := deps.Client.RunWorkPackage(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("running work package: %w", err)
		}
		var id string
		if err := decodeField(resp, "runWorkPackage", &id); err != nil {
			return err
		}

		if deps.Config.Quiet {
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Started work package %q as %s\n", cfg.Name, id)
		return nil
	},
}

// ─── wp estimate ──────────────────────────────────────────────────────────────

var wpEstimateFile string

var wpEstimateCmd = &cobra.Command{
	Use:     "estimate",
	Short:   "Estimate the cost of a work package without running it",
	Example: `  easctl wp estimate --file wp.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadWorkPackage(wpEstimateFile)
		if err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		resp, err := deps.Client.GetWorkPackageCostEstimation(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("estimating work package: %w", err)
		}
		return emitRaw(cmd.OutOrStdout(), resp)
	},
}

// ─── wp cancel ────────────────────────────────────────────────────────────────

var wpCancelCmd = &cobra.Command{
	Use:     "cancel <ID>",
	Short:   "Cancel a running work package",
	Example: `  easctl wp cancel 7e1c...`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		resp, err := deps.Client.CancelWorkPackage(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("cancelling work package: %w", err)
		}
		if err := checkGraphQLErrors(resp); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cancelled work package %s\n", args[0])
		}
		return nil
	},
}

// ─── wp progress ──────────────────────────────────────────────────────────────

// fetchProgress runs the progress query and decodes the result.
func fetchProgress(cmd *cobra.Command, client *eas.Client) (*eas.WorkPackagesProgress, error) {
	resp, err := client.GetWorkPackagesProgress(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("fetching progress: %w", err)
	}
	var progress eas.WorkPackagesProgress
	if err := decodeField(resp, "getWorkPackageProgress", &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// writeProgress renders progress per the effective format.
func writeProgress(w io.Writer, format string, p *eas.WorkPackagesProgress) error {
	if format == render.FormatJSON {
		return render.JSON(w, p)
	}
	render.ProgressTable(w, p)
	return nil
}

var wpProgressCmd = &cobra.Command{
	Use:     "progress",
	Short:   "Show progress of all work packages",
	Example: `  easctl wp progress --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		progress, err := fetchProgress(cmd, deps.Client)
		if err != nil {
			return err
		}
		format := resolveFormat(deps.Config.Format)
		return render.To(globalFlags.Out, func(w io.Writer) error {
			return writeProgress(w, format, progress)
		})
	},
}

// ─── wp watch ─────────────────────────────────────────────────────────────────

var (
	wpWatchID   string
	wpWatchRate float64
)

var wpWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll progress until all work packages complete",
	Long: `Polls work package progress at a fixed rate until nothing is pending or
in progress (or, with --id, until that package disappears). Ctrl-C stops
the watch.`,
	Example: `  easctl wp watch
  easctl wp watch --id 7e1c... --rate 0.5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		pollRate := wpWatchRate
		if pollRate <= 0 {
			pollRate = config.DefaultPollRate
		}
		limiter := rate.NewLimiter(rate.Limit(pollRate), 1)

		format := resolveFormat(deps.Config.Format)
		out := cmd.OutOrStdout()
		for {
			if err := limiter.Wait(cmd.Context()); err != nil {
				return err
			}

			progress, err := fetchProgress(cmd, deps.Client)
			if err != nil {
				return err
			}
			if err := writeProgress(out, format, progress); err != nil {
				return err
			}

			if watchDone(progress, wpWatchID) {
				if !deps.Config.Quiet {
					fmt.Fprintln(out, "✓ Done")
				}
				return nil
			}
		}
	},
}

// watchDone reports whether the watch target has finished: with an ID,
// that package no longer appears anywhere; without one, nothing is left.
func watchDone(p *eas.WorkPackagesProgress, id string) bool {
	if id == "" {
		return len(p.Pending) == 0 && len(p.InProgress) == 0
	}
	for _, pending := range p.Pending {
		if pending == id {
			return false
		}
	}
	for _, wp := range p.InProgress {
		if wp.ID == id {
			return false
		}
	}
	return true
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(wpCmd)
	wpCmd.AddCommand(wpRunCmd)
	wpCmd.AddCommand(wpEstimateCmd)
	wpCmd.AddCommand(wpCancelCmd)
	wpCmd.AddCommand(wpProgressCmd)
	wpCmd.AddCommand(wpWatchCmd)

	wpRunCmd.Flags().StringVar(&wpRunFile, "file", "", "path to the work package JSON file (required)")
	wpRunCmd.MarkFlagRequired("file")

	wpEstimateCmd.Flags().StringVar(&wpEstimateFile, "file", "", "path to the work package JSON file (required)")
	wpEstimateCmd.MarkFlagRequired("file")

	wpWatchCmd.Flags().StringVar(&wpWatchID, "id", "", "watch a single work package instead of all")
	wpWatchCmd.Flags().Float64Var(&wpWatchRate, "rate", config.DefaultPollRate, "polls per second")
}
