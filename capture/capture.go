// Package capture defines the immutable input unit of the parsing
// pipeline: one device capture (a show-tech style dump or a live
// collection transcript) plus its metadata.
package capture

import (
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Capture is one device capture. It is read-only after construction;
// every downstream artifact is derived per pipeline run.
type Capture struct {
	// ID identifies this capture across logs and results.
	ID string

	// Source is the originating filename or connection descriptor.
	Source string

	// Timestamp records when the capture was taken or loaded.
	Timestamp time.Time

	// Text is the full decoded capture text.
	Text string
}

// New builds a Capture from already-decoded text.
func New(source, text string) Capture {
	return Capture{
		ID:        uuid.NewString(),
		Source:    source,
		Timestamp: time.Now().UTC(),
		Text:      text,
	}
}

// FromBytes builds a Capture from raw bytes. Valid UTF-8 is taken as
// is; otherwise the bytes are decoded with the declared fallback
// encoding ("" means latin-1). Decoding never fails: undecodable
// bytes are replaced so malformed input degrades instead of erroring.
func FromBytes(source string, data []byte, fallbackEncoding string) (Capture, error) {
	text, err := decode(data, fallbackEncoding)
	if err != nil {
		return Capture{}, fmt.Errorf("decode capture %s: %w", source, err)
	}
	return New(source, text), nil
}

// FromFile reads and decodes a capture file.
func FromFile(path, fallbackEncoding string) (Capture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Capture{}, fmt.Errorf("read capture: %w", err)
	}
	return FromBytes(path, data, fallbackEncoding)
}

// Lines splits the capture text into lines without allocating the
// text again. Trailing carriage returns are stripped so CRLF captures
// behave like LF ones.
func (c Capture) Lines() []string {
	lines := strings.Split(c.Text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func decode(data []byte, fallback string) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	enc, err := lookupEncoding(fallback)
	if err != nil {
		return "", err
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		// Replacement-mode decoders do not error on bad bytes; an
		// error here means the transform itself broke.
		return "", err
	}
	return string(decoded), nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	case "utf-16", "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	default:
		return nil, fmt.Errorf("unsupported fallback encoding: %q", name)
	}
}
