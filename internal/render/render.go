// Package render converts client result values into human-readable tables or
// machine-parseable JSON. Each table shape is a separate function; commands
// pick the one matching the data they fetched.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/zepben/eas-go/eas"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// JSON writes v to w as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// To writes via fn to stdout by default; if path is non-empty, writes to file.
func To(path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return fn(f)
}

// newTable builds a tablewriter with the house style applied.
func newTable(w io.Writer, headers []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)
	return tw
}

// SimpleTable renders a table with headers; the fill callback appends rows.
func SimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := newTable(w, headers)
	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// KeyValue renders a two-column FIELD/VALUE table.
func KeyValue(w io.Writer, rows [][2]string) {
	tw := newTable(w, []string{"FIELD", "VALUE"})
	tw.SetColWidth(80)
	tw.SetAutoWrapText(true)
	for _, r := range rows {
		tw.Append([]string{r[0], r[1]})
	}
	tw.Render()
}

// ─── Work package progress ────────────────────────────────────────────────────

// ProgressTable renders pending and in-progress work packages.
func ProgressTable(w io.Writer, p *eas.WorkPackagesProgress) {
	if len(p.Pending) > 0 {
		fmt.Fprintf(w, "Pending: %d\n", len(p.Pending))
		for _, id := range p.Pending {
			fmt.Fprintf(w, "  %s\n", id)
		}
	}

	tw := newTable(w, []string{"ID", "PROGRESS", "PENDING", "GENERATION", "EXECUTION", "RESULTS", "FAILURES", "COMPLETE"})
	for _, wp := range p.InProgress {
		tw.Append([]string{
			wp.ID,
			strconv.Itoa(wp.ProgressPercent) + "%",
			strconv.Itoa(len(wp.Pending)),
			strconv.Itoa(len(wp.Generation)),
			strconv.Itoa(len(wp.Execution)),
			strconv.Itoa(len(wp.ResultProcessing)),
			strconv.Itoa(len(wp.FailureProcessing)),
			strconv.Itoa(len(wp.Complete)),
		})
	}
	tw.Render()
}

// ─── OpenDSS models ───────────────────────────────────────────────────────────

// ModelsTable renders a paged model listing with a trailing paging summary.
func ModelsTable(w io.Writer, page *eas.PagedOpenDssModels) {
	tw := newTable(w, []string{"ID", "NAME", "STATE", "PUBLIC", "CREATED"})
	for _, m := range page.Models {
		tw.Append([]string{
			strconv.Itoa(m.ID),
			m.Name,
			string(m.State),
			strconv.FormatBool(m.IsPublic),
			localTimePtr(m.CreatedAt),
		})
	}
	tw.Render()
	fmt.Fprintf(w, "Showing %d of %d (offset %d)\n", len(page.Models), page.TotalCount, page.Offset)
}

// ModelDetail renders one model as a field/value table.
func ModelDetail(w io.Writer, m *eas.OpenDssModel) {
	rows := [][2]string{
		{"ID", strconv.Itoa(m.ID)},
		{"Name", m.Name},
		{"State", string(m.State)},
		{"Public", strconv.FormatBool(m.IsPublic)},
		{"Created By", m.CreatedBy},
		{"Created", localTimePtr(m.CreatedAt)},
		{"Download URL", optString(m.DownloadURL)},
	}
	if len(m.Errors) > 0 {
		rows = append(rows, [2]string{"Errors", strconv.Itoa(len(m.Errors))})
	}
	KeyValue(w, rows)
}

// ─── Ingestor runs ────────────────────────────────────────────────────────────

// IngestorRunsTable renders a run listing.
func IngestorRunsTable(w io.Writer, runs []eas.IngestorRun) {
	tw := newTable(w, []string{"ID", "RUNTIME", "STATUS", "STARTED", "UPDATED", "COMPLETED"})
	for _, r := range runs {
		tw.Append([]string{
			strconv.Itoa(r.ID),
			string(r.ContainerRuntimeType),
			string(r.Status),
			localTimePtr(r.StartedAt),
			localTimePtr(r.StatusLastUpdatedAt),
			localTimePtr(r.CompletedAt),
		})
	}
	tw.Render()
}

// IngestorRunDetail renders one run as a field/value table.
func IngestorRunDetail(w io.Writer, r *eas.IngestorRun) {
	payload := r.Payload
	if len(payload) > 200 {
		payload = payload[:200] + "…"
	}
	KeyValue(w, [][2]string{
		{"ID", strconv.Itoa(r.ID)},
		{"Runtime", string(r.ContainerRuntimeType)},
		{"Status", string(r.Status)},
		{"Payload", payload},
		{"Started", localTimePtr(r.StartedAt)},
		{"Updated", localTimePtr(r.StatusLastUpdatedAt)},
		{"Completed", localTimePtr(r.CompletedAt)},
	})
}

// ─── Calibration ──────────────────────────────────────────────────────────────

// CalibrationRunDetail renders one calibration run as a field/value table.
func CalibrationRunDetail(w io.Writer, r *eas.CalibrationRun) {
	rows := [][2]string{
		{"ID", r.ID},
		{"Name", r.Name},
		{"Workflow", r.WorkflowID},
		{"Run", r.RunID},
		{"Calibration Time", localTimePtr(r.CalibrationTimeLocal)},
		{"Status", r.Status},
		{"Started", localTimePtr(r.StartAt)},
		{"Completed", localTimePtr(r.CompletedAt)},
	}
	if len(r.Feeders) > 0 {
		rows = append(rows, [2]string{"Feeders", strconv.Itoa(len(r.Feeders))})
	}
	KeyValue(w, rows)
}

// ─── Formatting helpers ───────────────────────────────────────────────────────

const timeDisplayLayout = "2006-01-02 15:04:05"

func localTimePtr(t *eas.LocalDateTime) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Time().Format(timeDisplayLayout)
}

func optString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
