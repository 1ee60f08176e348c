package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/techsift/techsift/entity"
	"github.com/techsift/techsift/pipeline"
)

// Write renders a pipeline result to w in the given format.
func Write(w io.Writer, format Format, res *pipeline.Result) error {
	switch format {
	case FormatTable:
		return writeTable(w, res)
	case FormatCSV:
		return writeCSV(w, res)
	case FormatJSON:
		return writeJSON(w, res)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

func writeTable(w io.Writer, res *pipeline.Result) error {
	fmt.Fprintf(w, "source: %s\nplatform: %s (confidence %.2f)\n",
		res.Source, res.Platform.Platform, res.Platform.Confidence)

	for _, kind := range entity.Kinds() {
		entities := res.Entities[kind]
		if len(entities) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n== %s (%d) ==\n", kind, len(entities))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		writeRow(tw, entity.ColumnsFor(kind))
		for _, e := range entities {
			writeRow(tw, e.Row())
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(res.Diagnostics) > 0 {
		fmt.Fprintf(w, "\n== diagnostics (%d) ==\n", len(res.Diagnostics))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		writeRow(tw, []string{"kind", "severity", "command", "message"})
		for _, d := range res.Diagnostics {
			writeRow(tw, []string{string(d.Kind), string(d.Severity), d.Command, d.Message})
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func writeRow(w io.Writer, cells []string) {
	for i, c := range cells {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c)
	}
	fmt.Fprintln(w)
}

// writeCSV streams every kind into one CSV stream, prefixing each row
// with the kind so a single stream stays self-describing. Per-kind
// files are handled by WriteCSVDir.
func writeCSV(w io.Writer, res *pipeline.Result) error {
	cw := csv.NewWriter(w)
	for _, kind := range entity.Kinds() {
		entities := res.Entities[kind]
		if len(entities) == 0 {
			continue
		}
		header := append([]string{"kind"}, entity.ColumnsFor(kind)...)
		if err := cw.Write(header); err != nil {
			return err
		}
		for _, e := range entities {
			row := append([]string{string(kind)}, e.Row()...)
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	for _, d := range res.Diagnostics {
		if err := cw.Write([]string{"diagnostic", string(d.Kind), string(d.Severity), d.Command, d.Message}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonEntity pairs an entity's columns with its row values so the
// document mirrors the tabular contract.
type jsonEntity struct {
	Kind   string            `json:"kind"`
	Fields map[string]string `json:"fields"`
	Extra  map[string]string `json:"vendor_extra,omitempty"`
}

type jsonDiagnostic struct {
	Kind     string `json:"kind"`
	Severity string `json:"severity"`
	Command  string `json:"command,omitempty"`
	Message  string `json:"message"`
}

type jsonDocument struct {
	RunID       string           `json:"run_id"`
	Source      string           `json:"source"`
	Platform    string           `json:"platform"`
	Confidence  float64          `json:"confidence"`
	Entities    []jsonEntity     `json:"entities"`
	Diagnostics []jsonDiagnostic `json:"diagnostics,omitempty"`
}

func writeJSON(w io.Writer, res *pipeline.Result) error {
	doc := jsonDocument{
		RunID:      res.RunID,
		Source:     res.Source,
		Platform:   string(res.Platform.Platform),
		Confidence: res.Platform.Confidence,
		Entities:   []jsonEntity{},
	}
	for _, kind := range entity.Kinds() {
		for _, e := range res.Entities[kind] {
			cols, row := e.Columns(), e.Row()
			fields := make(map[string]string, len(cols))
			for i, c := range cols {
				if c == "vendor_extra" {
					continue
				}
				if row[i] != "" {
					fields[c] = row[i]
				}
			}
			doc.Entities = append(doc.Entities, jsonEntity{
				Kind:   string(kind),
				Fields: fields,
				Extra:  e.Extra(),
			})
		}
	}
	for _, d := range res.Diagnostics {
		doc.Diagnostics = append(doc.Diagnostics, jsonDiagnostic{
			Kind:     string(d.Kind),
			Severity: string(d.Severity),
			Command:  d.Command,
			Message:  d.Message,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
