package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zepben/eas-go/eas"
	"github.com/zepben/eas-go/internal/render"
)

var opendssCmd = &cobra.Command{
	Use:   "opendss",
	Short: "Export and download OpenDSS models",
}

// ─── opendss export ───────────────────────────────────────────────────────────

// openDssExportFile is the on-disk JSON shape of an export request.
type openDssExportFile struct {
	ModelName       string                     `json:"modelName"`
	IsPublic        bool                       `json:"isPublic"`
	Feeder          string                     `json:"feeder"`
	Scenario        string                     `json:"scenario"`
	Year            int                        `json:"year"`
	LoadTime        *eas.LoadTimeConfiguration `json:"loadTime"`
	GeneratorConfig *eas.GeneratorConfig       `json:"generatorConfig"`
}

var opendssExportFile string

var opendssExportCmd = &cobra.Command{
	Use:     "export",
	Short:   "Start an OpenDSS model export from a definition file",
	Example: `  easctl opendss export --file export.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var f openDssExportFile
		if err := readJSONFile(opendssExportFile, &f); err != nil {
			return err
		}
		if f.ModelName == "" {
			return fmt.Errorf("export file must set modelName")
		}
		loadTime, err := loadTimeFrom(f.LoadTime)
		if err != nil {
			return fmt.Errorf("export load time: %w", err)
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		resp, err := deps.Client.RunOpenDssExport(cmd.Context(), eas.OpenDssConfig{
			ModelName:       f.ModelName,
			IsPublic:        f.IsPublic,
			Feeder:          f.Feeder,
			Scenario:        f.Scenario,
			Year:            f.Year,
			LoadTime:        loadTime,
			GeneratorConfig: f.GeneratorConfig,
		})
		if err != nil {
			return fmt.Errorf("starting export: %w", err)
		}
		if err := checkGraphQLErrors(resp); err != nil {
			return err
		}
		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Started export %q\n", f.ModelName)
		}
		return nil
	},
}

// ─── opendss list ─────────────────────────────────────────────────────────────

var (
	opendssListLimit  int
	opendssListOffset int64
	opendssListName   string
	opendssListState  string
	opendssListPublic bool
)

var opendssListCmd = &cobra.Command{
	Use:   "list",
	Short: "List OpenDSS model exports",
	Example: `  easctl opendss list --limit 20
  easctl opendss list --name "west feeder" --state COMPLETED`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		var limit *int
		var offset *int64
		if cmd.Flags().Changed("limit") {
			limit = eas.Int(opendssListLimit)
		}
		if cmd.Flags().Changed("offset") {
			offset = &opendssListOffset
		}

		var filter *eas.GetOpenDssModelsFilterInput
		if opendssListName != "" || opendssListState != "" || cmd.Flags().Changed("public") {
			filter = &eas.GetOpenDssModelsFilterInput{}
			if opendssListName != "" {
				filter.Name = eas.String(opendssListName)
			}
			if cmd.Flags().Changed("public") {
				filter.IsPublic = eas.Bool(opendssListPublic)
			}
			for _, s := range splitCommaList(opendssListState) {
				filter.State = append(filter.State, eas.OpenDssModelState(strings.ToUpper(s)))
			}
		}

		resp, err := deps.Client.GetPagedOpenDssModels(cmd.Context(), limit, offset, filter, nil)
		if err != nil {
			return fmt.Errorf("listing models: %w", err)
		}
		var page eas.PagedOpenDssModels
		if err := decodeField(resp, "pagedOpenDssModels", &page); err != nil {
			return err
		}

		format := resolveFormat(deps.Config.Format)
		return render.To(globalFlags.Out, func(w io.Writer) error {
			if format == render.FormatJSON {
				return render.JSON(w, page)
			}
			render.ModelsTable(w, &page)
			return nil
		})
	},
}

// ─── opendss get ──────────────────────────────────────────────────────────────

var opendssGetCmd = &cobra.Command{
	Use:     "get <ID>",
	Short:   "Show one model export",
	Example: `  easctl opendss get 42`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIntID(args[0], "model id")
		if err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		model, err := deps.Client.GetOpenDssModel(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("fetching model: %w", err)
		}

		format := resolveFormat(deps.Config.Format)
		return render.To(globalFlags.Out, func(w io.Writer) error {
			if format == render.FormatJSON {
				return render.JSON(w, model)
			}
			render.ModelDetail(w, model)
			return nil
		})
	},
}

// ─── opendss url ──────────────────────────────────────────────────────────────

var opendssURLCmd = &cobra.Command{
	Use:     "url <ID>",
	Short:   "Print the download URL for a completed model export",
	Example: `  easctl opendss url 42`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseIntID(args[0], "model id")
		if err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		url, err := deps.Client.GetOpenDssModelDownloadURL(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("fetching download url: %w", err)
		}
		if url == "" {
			return fmt.Errorf("model %d has no download url yet", id)
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(opendssCmd)
	opendssCmd.AddCommand(opendssExportCmd)
	opendssCmd.AddCommand(opendssListCmd)
	opendssCmd.AddCommand(opendssGetCmd)
	opendssCmd.AddCommand(opendssURLCmd)

	opendssExportCmd.Flags().StringVar(&opendssExportFile, "file", "", "path to the export JSON file (required)")
	opendssExportCmd.MarkFlagRequired("file")

	opendssListCmd.Flags().IntVar(&opendssListLimit, "limit", 0, "page size (default: server default)")
	opendssListCmd.Flags().Int64Var(&opendssListOffset, "offset", 0, "page offset")
	opendssListCmd.Flags().StringVar(&opendssListName, "name", "", "filter by model name")
	opendssListCmd.Flags().StringVar(&opendssListState, "state", "", "filter by state: CREATING|COMPLETED|FAILED (comma-separated)")
	opendssListCmd.Flags().BoolVar(&opendssListPublic, "public", false, "filter by public visibility")
}
