// Package export renders pipeline results in the supported output
// formats. Entities are tabular per kind (the canonical column
// contract), diagnostics get their own table.
package export

import (
	"fmt"
)

// Format identifies an export format.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatTable: {
		Name:        FormatTable,
		MIMEType:    "text/plain",
		Extension:   ".txt",
		Description: "Aligned plain-text tables, one per entity kind",
	},
	FormatCSV: {
		Name:        FormatCSV,
		MIMEType:    "text/csv",
		Extension:   ".csv",
		Description: "RFC 4180 CSV, one file or stream per entity kind",
	},
	FormatJSON: {
		Name:        FormatJSON,
		MIMEType:    "application/json",
		Extension:   ".json",
		Description: "Single JSON document with entities and diagnostics",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	f := Format(name)
	if _, ok := FormatRegistry[f]; !ok {
		return "", fmt.Errorf("unknown export format %q", name)
	}
	return f, nil
}
