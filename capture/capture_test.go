package capture

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFromBytesUTF8Passthrough(t *testing.T) {
	text := "hostname sw1\ndescription café uplink\n"
	c, err := FromBytes("sw1.txt", []byte(text), "")
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if c.Text != text {
		t.Errorf("text mangled: %q", c.Text)
	}
	if c.ID == "" || c.Source != "sw1.txt" {
		t.Errorf("metadata not populated: id=%q source=%q", c.ID, c.Source)
	}
}

func TestFromBytesLatin1Fallback(t *testing.T) {
	// 0xE9 is é in latin-1 and invalid as a standalone UTF-8 byte.
	data := []byte("caf\xe9 uplink")
	c, err := FromBytes("legacy.txt", data, "")
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if c.Text != "café uplink" {
		t.Errorf("latin-1 decode = %q", c.Text)
	}
}

func TestFromBytesWindows1252(t *testing.T) {
	// 0x93/0x94 are curly quotes in cp1252.
	data := []byte("\x93quoted\x94")
	c, err := FromBytes("word.txt", data, "windows-1252")
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	if c.Text != "“quoted”" {
		t.Errorf("cp1252 decode = %q", c.Text)
	}
}

func TestFromBytesUnknownEncoding(t *testing.T) {
	if _, err := FromBytes("x.txt", []byte{0xff}, "ebcdic"); err == nil {
		t.Fatal("expected error for unsupported fallback encoding")
	}
}

func TestLinesStripCarriageReturns(t *testing.T) {
	c := New("crlf.txt", "line one\r\nline two\r\nline three")
	lines := c.Lines()
	if len(lines) != 3 {
		t.Fatalf("got %d lines", len(lines))
	}
	for i, l := range lines {
		if strings.ContainsRune(l, '\r') {
			t.Errorf("line %d kept its CR: %q", i, l)
		}
	}
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.txt")
	if err := os.WriteFile(path, []byte("show version\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := FromFile(path, "")
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if c.Source != path || c.Text != "show version\n" {
		t.Errorf("unexpected capture: source=%q text=%q", c.Source, c.Text)
	}

	if _, err := FromFile(filepath.Join(t.TempDir(), "missing.txt"), ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}
