package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zepben/eas-go/eas"
)

var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Upload studies to the server",
}

// studyFile is the on-disk JSON shape of a study definition.
type studyFile struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	Results     []studyResult   `json:"results"`
	Styles      json.RawMessage `json:"styles"`
}

type studyResult struct {
	Name           string              `json:"name"`
	GeoJsonOverlay *eas.GeoJsonOverlay `json:"geoJsonOverlay"`
	StateOverlay   *eas.StateOverlay   `json:"stateOverlay"`
	Sections       []eas.Section       `json:"sections"`
}

// toStudy converts the file shape into the client's Study value.
func (f *studyFile) toStudy() (eas.Study, error) {
	study := eas.Study{
		Name:        f.Name,
		Description: f.Description,
		Tags:        f.Tags,
	}
	for _, r := range f.Results {
		study.Results = append(study.Results, eas.Result{
			Name:           r.Name,
			GeoJsonOverlay: r.GeoJsonOverlay,
			StateOverlay:   r.StateOverlay,
			Sections:       r.Sections,
		})
	}
	if len(f.Styles) > 0 {
		var styles []any
		if err := json.Unmarshal(f.Styles, &styles); err != nil {
			return eas.Study{}, fmt.Errorf("parsing styles: %w", err)
		}
		study.Styles = styles
	}
	return study, nil
}

var studyUploadFile string

var studyUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload a study defined in a JSON file",
	Example: `  easctl study upload --file study.json
  easctl study upload --file study.json --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var f studyFile
		if err := readJSONFile(studyUploadFile, &f); err != nil {
			return err
		}
		if f.Name == "" {
			return fmt.Errorf("study file must set a name")
		}
		study, err := f.toStudy()
		if err != nil {
			return err
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		resp, err := deps.Client.UploadStudy(cmd.Context(), study)
		if err != nil {
			return fmt.Errorf("uploading study: %w", err)
		}
		if err := checkGraphQLErrors(resp); err != nil {
			return err
		}

		if !deps.Config.Quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Uploaded study %q (%d results)\n", study.Name, len(study.Results))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(studyCmd)
	studyCmd.AddCommand(studyUploadCmd)

	studyUploadCmd.Flags().StringVar(&studyUploadFile, "file", "", "path to the study JSON file (required)")
	studyUploadCmd.MarkFlagRequired("file")
}
