package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zepben/eas-go/eas"
	"github.com/zepben/eas-go/internal/render"
)

var ingestorCmd = &cobra.Command{
	Use:   "ingestor",
	Short: "Queue and inspect data ingestor runs",
}

// ─── ingestor run ─────────────────────────────────────────────────────────────

var ingestorRunConfig []string

var ingestorRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Queue an ingestor run",
	Example: `  easctl ingestor run --set source=sftp --set dataset=meter-reads
  easctl ingestor run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var runConfig []eas.IngestorConfigInput
		for _, kv := range ingestorRunConfig {
			key, value, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				return fmt.Errorf("invalid --set %q: expected key=value", kv)
			}
			runConfig = append(runConfig, eas.IngestorConfigInput{Key: key, Value: value})
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		resp, err := deps.Client.RunIngestor(cmd.Context(), runConfig)
		if err != nil {
			return fmt.Errorf("queuing ingestor run: %w", err)
		}
		var id int
		if err := decodeField(resp, "executeIngestor", &id); err != nil {
			return err
		}

		if deps.Config.Quiet {
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Queued ingestor run %d\n", id)
		return nil
	},
}

// ─── ingestor get ─────────────────────────────────────────────────────────────

var ingestorGetCmd = &cobra.Command{
	Use:     "get <ID>",
	Short:   "Show one ingestor run",
	Example: `  easctl ingestor get 17`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIntID(args[0], "run id")
		if err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		resp, err := deps.Client.GetIngestorRun(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("fetching ingestor run: %w", err)
		}
		var run eas.IngestorRun
		if err := decodeField(resp, "getIngestorRun", &run); err != nil {
			return err
		}

		format := resolveFormat(deps.Config.Format)
		return render.To(globalFlags.Out, func(w io.Writer) error {
			if format == render.FormatJSON {
				return render.JSON(w, run)
			}
			render.IngestorRunDetail(w, &run)
			return nil
		})
	},
}

// ─── ingestor list ────────────────────────────────────────────────────────────

var (
	ingestorListStatus    string
	ingestorListRuntime   string
	ingestorListCompleted bool
)

var ingestorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingestor runs",
	Example: `  easctl ingestor list
  easctl ingestor list --status RUNNING,QUEUED --completed=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		var filter *eas.IngestorRunsFilterInput
		if ingestorListStatus != "" || ingestorListRuntime != "" || cmd.Flags().Changed("completed") {
			filter = &eas.IngestorRunsFilterInput{}
			for _, s := range splitCommaList(ingestorListStatus) {
				filter.Status = append(filter.Status, eas.IngestorRunState(strings.ToUpper(s)))
			}
			for _, r := range splitCommaList(ingestorListRuntime) {
				filter.ContainerRuntimeType = append(filter.ContainerRuntimeType, eas.IngestorRuntimeKind(strings.ToUpper(r)))
			}
			if cmd.Flags().Changed("completed") {
				filter.Completed = eas.Bool(ingestorListCompleted)
			}
		}

		resp, err := deps.Client.GetIngestorRunList(cmd.Context(), filter, nil)
		if err != nil {
			return fmt.Errorf("listing ingestor runs: %w", err)
		}
		var runs []eas.IngestorRun
		if err := decodeField(resp, "listIngestorRuns", &runs); err != nil {
			return err
		}

		format := resolveFormat(deps.Config.Format)
		return render.To(globalFlags.Out, func(w io.Writer) error {
			if format == render.FormatJSON {
				return render.JSON(w, runs)
			}
			render.IngestorRunsTable(w, runs)
			return nil
		})
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(ingestorCmd)
	ingestorCmd.AddCommand(ingestorRunCmd)
	ingestorCmd.AddCommand(ingestorGetCmd)
	ingestorCmd.AddCommand(ingestorListCmd)

	ingestorRunCmd.Flags().StringArrayVar(&ingestorRunConfig, "set", nil, "run config entry as key=value (repeatable)")

	ingestorListCmd.Flags().StringVar(&ingestorListStatus, "status", "", "filter by status (comma-separated)")
	ingestorListCmd.Flags().StringVar(&ingestorListRuntime, "runtime", "", "filter by container runtime (comma-separated)")
	ingestorListCmd.Flags().BoolVar(&ingestorListCompleted, "completed", false, "filter by completion")
}
