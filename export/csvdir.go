package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/techsift/techsift/entity"
	"github.com/techsift/techsift/pipeline"
)

// WriteCSVDir writes one CSV file per populated entity kind into dir,
// plus diagnostics.csv when there are diagnostics. Files are named
// after the kind.
func WriteCSVDir(dir string, res *pipeline.Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	for _, kind := range entity.Kinds() {
		entities := res.Entities[kind]
		if len(entities) == 0 {
			continue
		}
		path := filepath.Join(dir, string(kind)+".csv")
		if err := writeKindCSV(path, kind, entities); err != nil {
			return err
		}
	}

	if len(res.Diagnostics) == 0 {
		return nil
	}
	f, err := os.Create(filepath.Join(dir, "diagnostics.csv"))
	if err != nil {
		return fmt.Errorf("create diagnostics.csv: %w", err)
	}
	defer f.Close()
	cw := csv.NewWriter(f)
	if err := cw.Write([]string{"kind", "severity", "command", "message"}); err != nil {
		return err
	}
	for _, d := range res.Diagnostics {
		if err := cw.Write([]string{string(d.Kind), string(d.Severity), d.Command, d.Message}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeKindCSV(path string, kind entity.Kind, entities []entity.Entity) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(entity.ColumnsFor(kind)); err != nil {
		return err
	}
	for _, e := range entities {
		if err := cw.Write(e.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
