package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/zepben/eas-go/eas"
	"github.com/zepben/eas-go/internal/render"
)

var calibrationCmd = &cobra.Command{
	Use:   "calibration",
	Short: "Run and inspect hosting capacity calibrations",
}

// ─── calibration run ──────────────────────────────────────────────────────────

var (
	calibrationRunName        string
	calibrationRunTime        string
	calibrationRunFeeders     string
	calibrationRunTapSettings string
	calibrationRunGeneratorFn string
)

var calibrationRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a calibration run",
	Example: `  easctl calibration run --name "JULY CAL" --time 2025-07-12T00:00:00
  easctl calibration run --name "JULY CAL" --time 2025-07-12T00:00:00 --feeders f1,f2 --tap-settings "SET A"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		calTime, err := time.Parse("2006-01-02T15:04:05", calibrationRunTime)
		if err != nil {
			return fmt.Errorf("invalid --time %q: expected yyyy-mm-ddThh:mm:ss", calibrationRunTime)
		}

		opts := eas.CalibrationOptions{
			Feeders: splitCommaList(calibrationRunFeeders),
		}
		if calibrationRunTapSettings != "" {
			opts.TransformerTapSettings = eas.String(calibrationRunTapSettings)
		}
		if calibrationRunGeneratorFn != "" {
			var gc eas.GeneratorConfig
			if err := readJSONFile(calibrationRunGeneratorFn, &gc); err != nil {
				return err
			}
			opts.GeneratorConfig = &gc
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		resp, err := deps.Client.RunCalibration(cmd.Context(), calibrationRunName, calTime, opts)
		if err != nil {
			return fmt.Errorf("running calibration: %w", err)
		}
		var id string
		if err := decodeField(resp, "runCalibration", &id); err != nil {
			return err
		}

		if deps.Config.Quiet {
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Started calibration %q as %s\n", calibrationRunName, id)
		return nil
	},
}

// ─── calibration get ──────────────────────────────────────────────────────────

var calibrationGetCmd = &cobra.Command{
	Use:     "get <ID>",
	Short:   "Show one calibration run",
	Example: `  easctl calibration get 42`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		resp, err := deps.Client.GetCalibrationRun(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("fetching calibration run: %w", err)
		}
		var run eas.CalibrationRun
		if err := decodeField(resp, "getCalibrationRun", &run); err != nil {
			return err
		}

		format := resolveFormat(deps.Config.Format)
		return render.To(globalFlags.Out, func(w io.Writer) error {
			if format == render.FormatJSON {
				return render.JSON(w, run)
			}
			render.CalibrationRunDetail(w, &run)
			return nil
		})
	},
}

// ─── calibration sets ─────────────────────────────────────────────────────────

var calibrationSetsCmd = &cobra.Command{
	Use:     "sets",
	Short:   "List all calibration set names",
	Example: `  easctl calibration sets`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		resp, err := deps.Client.GetCalibrationSets(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching calibration sets: %w", err)
		}
		var sets []string
		if err := decodeField(resp, "getCalibrationSets", &sets); err != nil {
			return err
		}

		format := resolveFormat(deps.Config.Format)
		return render.To(globalFlags.Out, func(w io.Writer) error {
			if format == render.FormatJSON {
				return render.JSON(w, sets)
			}
			for _, name := range sets {
				fmt.Fprintln(w, name)
			}
			return nil
		})
	},
}

// ─── calibration taps ─────────────────────────────────────────────────────────

var (
	calibrationTapsFeeder      string
	calibrationTapsTransformer string
)

var calibrationTapsCmd = &cobra.Command{
	Use:   "taps <calibration-name>",
	Short: "Show transformer tap settings recorded by a calibration",
	Example: `  easctl calibration taps "JULY CAL"
  easctl calibration taps "JULY CAL" --feeder f1 --transformer-mrid tx-9`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		var feeder, transformer *string
		if calibrationTapsFeeder != "" {
			feeder = eas.String(calibrationTapsFeeder)
		}
		if calibrationTapsTransformer != "" {
			transformer = eas.String(calibrationTapsTransformer)
		}

		resp, err := deps.Client.GetTransformerTapSettings(cmd.Context(), args[0], feeder, transformer)
		if err != nil {
			return fmt.Errorf("fetching tap settings: %w", err)
		}
		return render.To(globalFlags.Out, func(w io.Writer) error {
			return emitRaw(w, resp)
		})
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(calibrationCmd)
	calibrationCmd.AddCommand(calibrationRunCmd)
	calibrationCmd.AddCommand(calibrationGetCmd)
	calibrationCmd.AddCommand(calibrationSetsCmd)
	calibrationCmd.AddCommand(calibrationTapsCmd)

	calibrationRunCmd.Flags().StringVar(&calibrationRunName, "name", "", "calibration name (required)")
	calibrationRunCmd.Flags().StringVar(&calibrationRunTime, "time", "", "network-local calibration time, yyyy-mm-ddThh:mm:ss (required)")
	calibrationRunCmd.Flags().StringVar(&calibrationRunFeeders, "feeders", "", "comma-separated feeder mRIDs (default: all)")
	calibrationRunCmd.Flags().StringVar(&calibrationRunTapSettings, "tap-settings", "", "transformer tap settings name to apply")
	calibrationRunCmd.Flags().StringVar(&calibrationRunGeneratorFn, "generator-config", "", "path to a generator config JSON file")
	calibrationRunCmd.MarkFlagRequired("name")
	calibrationRunCmd.MarkFlagRequired("time")

	calibrationTapsCmd.Flags().StringVar(&calibrationTapsFeeder, "feeder", "", "narrow to one feeder mRID")
	calibrationTapsCmd.Flags().StringVar(&calibrationTapsTransformer, "transformer-mrid", "", "narrow to one transformer mRID")
}
