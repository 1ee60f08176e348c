package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techsift/techsift/entity"
	"github.com/techsift/techsift/pipeline"
	"github.com/techsift/techsift/platform"
)

func sampleResult() *pipeline.Result {
	return &pipeline.Result{
		RunID:  "run-1",
		Source: "core-sw-01.txt",
		Platform: platform.Tag{
			Platform:   platform.CiscoIOS,
			Confidence: 0.66,
		},
		Entities: map[entity.Kind][]entity.Entity{
			entity.KindInterface: {
				entity.Interface{
					Name:    "GigabitEthernet0/1",
					Status:  entity.StatusUp,
					Address: netip.MustParsePrefix("10.10.1.1/24"),
					VendorExtra: map[string]string{
						"duplex": "full",
					},
				},
				entity.Interface{
					Name:   "GigabitEthernet0/2",
					Status: entity.StatusDown,
				},
			},
			entity.KindDeviceFact: {
				entity.DeviceFact{Hostname: "core-sw-01", Version: "15.2(2)E7"},
			},
		},
		Diagnostics: []entity.Diagnostic{
			{
				Kind:     entity.DiagNoGrammar,
				Severity: entity.SeverityInfo,
				Command:  "show weird-command",
				Message:  "no grammar registered",
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, name := range []string{"table", "csv", "json"} {
		f, err := ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, Format(name), f)

		info, ok := GetFormatInfo(f)
		require.True(t, ok)
		assert.NotEmpty(t, info.MIMEType)
		assert.NotEmpty(t, info.Extension)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "platform: cisco_ios (confidence 0.66)")
	assert.Contains(t, out, "== interface (2) ==")
	assert.Contains(t, out, "== device_fact (1) ==")
	assert.Contains(t, out, "GigabitEthernet0/1")
	assert.Contains(t, out, "10.10.1.1/24")
	assert.Contains(t, out, "== diagnostics (1) ==")
	assert.Contains(t, out, "show weird-command")
	// Interfaces render before device facts: kind order is stable.
	assert.Less(t, strings.Index(out, "== interface"), strings.Index(out, "== device_fact"))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleResult()))

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1 // row width varies per kind
	rows, err := r.ReadAll()
	require.NoError(t, err)
	// 1 interface header + 2 rows + 1 device header + 1 row + 1 diagnostic.
	require.Len(t, rows, 6)

	assert.Equal(t, "kind", rows[0][0])
	assert.Equal(t, "name", rows[0][1])
	assert.Equal(t, []string{"interface", "GigabitEthernet0/1"}, rows[1][:2])
	assert.Equal(t, "device_fact", rows[4][0])
	assert.Equal(t, "diagnostic", rows[5][0])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleResult()))

	var doc struct {
		RunID    string `json:"run_id"`
		Platform string `json:"platform"`
		Entities []struct {
			Kind   string            `json:"kind"`
			Fields map[string]string `json:"fields"`
			Extra  map[string]string `json:"vendor_extra"`
		} `json:"entities"`
		Diagnostics []struct {
			Kind string `json:"kind"`
		} `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "run-1", doc.RunID)
	assert.Equal(t, "cisco_ios", doc.Platform)
	require.Len(t, doc.Entities, 3)

	first := doc.Entities[0]
	assert.Equal(t, "interface", first.Kind)
	assert.Equal(t, "GigabitEthernet0/1", first.Fields["name"])
	assert.Equal(t, "10.10.1.1/24", first.Fields["address"])
	assert.Equal(t, "full", first.Extra["duplex"])
	// Empty fields are omitted, not rendered as "".
	_, hasDesc := first.Fields["description"]
	assert.False(t, hasDesc)

	require.Len(t, doc.Diagnostics, 1)
	assert.Equal(t, "no_grammar", doc.Diagnostics[0].Kind)
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("xml"), sampleResult()))
}

func TestWriteCSVDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteCSVDir(dir, sampleResult()))

	for _, name := range []string{"interface.csv", "device_fact.csv", "diagnostics.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
	// Kinds with no entities get no file.
	_, err := os.Stat(filepath.Join(dir, "route.csv"))
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(filepath.Join(dir, "interface.csv"))
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, entity.Interface{}.Columns(), rows[0])
}
