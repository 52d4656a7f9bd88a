package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/zepben/eas-go/eas"
	"github.com/zepben/eas-go/internal/render"
	"github.com/zepben/eas-go/internal/store"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Capture server state into the local store",
	Long: `Snapshots accumulate server state in a local database for later
comparison: work package progress captures and OpenDSS model listings.

  easctl snapshot progress       # capture current work package progress
  easctl snapshot models         # store the current model listing
  easctl snapshot list
  easctl snapshot show <ID>`,
}

// ─── snapshot progress ────────────────────────────────────────────────────────

var snapshotProgressCmd = &cobra.Command{
	Use:     "progress",
	Short:   "Fetch and store current work package progress",
	Example: `  easctl snapshot progress`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		progress, err := fetchProgress(cmd, deps.Client)
		if err != nil {
			return err
		}

		snap := store.ProgressSnapshot{
			ID:       store.NewProgressID(),
			TakenAt:  time.Now().UTC(),
			Progress: *progress,
		}
		if err := deps.Store.PutProgress(snap); err != nil {
			return fmt.Errorf("saving snapshot: %w", err)
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved progress snapshot %s  (%d pending, %d in progress)\n",
				snap.ID, len(progress.Pending), len(progress.InProgress))
		}
		return nil
	},
}

// ─── snapshot models ──────────────────────────────────────────────────────────

var snapshotModelsLimit int

var snapshotModelsCmd = &cobra.Command{
	Use:     "models",
	Short:   "Fetch the model listing and store its records",
	Example: `  easctl snapshot models --limit 200`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		var limit *int
		if cmd.Flags().Changed("limit") {
			limit = eas.Int(snapshotModelsLimit)
		}
		resp, err := deps.Client.GetPagedOpenDssModels(cmd.Context(), limit, nil, nil, nil)
		if err != nil {
			return fmt.Errorf("listing models: %w", err)
		}
		var page eas.PagedOpenDssModels
		if err := decodeField(resp, "pagedOpenDssModels", &page); err != nil {
			return err
		}

		if err := deps.Store.PutModels(page.Models); err != nil {
			return fmt.Errorf("storing models: %w", err)
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Stored %d of %d models\n", len(page.Models), page.TotalCount)
		}
		return nil
	},
}

// ─── snapshot list ────────────────────────────────────────────────────────────

var snapshotListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List stored progress snapshots",
	Example: `  easctl snapshot list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		snaps, err := deps.Store.ListProgress()
		if err != nil {
			return fmt.Errorf("listing snapshots: %w", err)
		}
		if len(snaps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No snapshots stored.")
			fmt.Fprintln(cmd.OutOrStdout(), "  Use: easctl snapshot progress")
			return nil
		}

		render.SimpleTable(cmd.OutOrStdout(), []string{"ID", "TAKEN", "PENDING", "IN PROGRESS"}, func(add func(...string)) {
			for _, s := range snaps {
				add(s.ID,
					s.TakenAt.Format("2006-01-02 15:04"),
					fmt.Sprintf("%d", len(s.Progress.Pending)),
					fmt.Sprintf("%d", len(s.Progress.InProgress)))
			}
		})
		return nil
	},
}

// ─── snapshot show ────────────────────────────────────────────────────────────

var snapshotShowCmd = &cobra.Command{
	Use:     "show <ID>",
	Short:   "Show a stored progress snapshot",
	Example: `  easctl snapshot show 20250101120000abcd`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		snap, ok, err := deps.Store.GetProgress(args[0])
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		if !ok {
			return fmt.Errorf("snapshot %q not found", args[0])
		}

		format := resolveFormat(deps.Config.Format)
		return render.To(globalFlags.Out, func(w io.Writer) error {
			if format == render.FormatJSON {
				return render.JSON(w, snap)
			}
			fmt.Fprintf(w, "Taken %s\n", snap.TakenAt.Format(time.RFC3339))
			render.ProgressTable(w, &snap.Progress)
			return nil
		})
	},
}

// ─── snapshot delete ──────────────────────────────────────────────────────────

var snapshotDeleteCmd = &cobra.Command{
	Use:     "delete <ID>",
	Short:   "Delete a stored progress snapshot",
	Example: `  easctl snapshot delete 20250101120000abcd`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		_, ok, err := deps.Store.GetProgress(args[0])
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		if !ok {
			return fmt.Errorf("snapshot %q not found", args[0])
		}
		if err := deps.Store.DeleteProgress(args[0]); err != nil {
			return fmt.Errorf("deleting snapshot: %w", err)
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted snapshot %s\n", args[0])
		}
		return nil
	},
}

// ─── snapshot stats ───────────────────────────────────────────────────────────

var snapshotStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show local store contents and size",
	Example: `  easctl snapshot stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Store: %s\n", deps.Store.Path())
		render.SimpleTable(cmd.OutOrStdout(), []string{"BUCKET", "ROWS", "BYTES"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, fmt.Sprintf("%d", s.Count), fmt.Sprintf("%d", s.Bytes))
			}
		})
		return nil
	},
}

// ─── snapshot clear ───────────────────────────────────────────────────────────

var snapshotClearYes bool

var snapshotClearCmd = &cobra.Command{
	Use:     "clear",
	Short:   "Delete everything in the local store",
	Example: `  easctl snapshot clear --yes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !snapshotClearYes {
			return fmt.Errorf("refusing to clear without --yes")
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if err := deps.Store.ClearAll(); err != nil {
			return fmt.Errorf("clearing store: %w", err)
		}
		if !deps.Config.Quiet {
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared local store")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.AddCommand(snapshotProgressCmd)
	snapshotCmd.AddCommand(snapshotModelsCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotDeleteCmd)
	snapshotCmd.AddCommand(snapshotStatsCmd)
	snapshotCmd.AddCommand(snapshotClearCmd)

	snapshotModelsCmd.Flags().IntVar(&snapshotModelsLimit, "limit", 0, "page size (default: server default)")
	snapshotClearCmd.Flags().BoolVar(&snapshotClearYes, "yes", false, "confirm deletion")
}
