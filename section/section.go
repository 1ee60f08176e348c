// Package section splits a capture into per-command sections.
//
// A capture is a concatenation of command executions. Three boundary
// conventions are recognized: IOS show-tech dashed headers
// ("------------------ show version ------------------"), NX-OS
// backtick echoes ("`show version`"), and live prompt echoes
// ("SWITCH# show version"). Prompt boundaries lock onto the first
// hostname seen, so command output that merely contains '#' or '>'
// is not misread as a new section.
package section

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/techsift/techsift/capture"
	"github.com/techsift/techsift/entity"
	"github.com/techsift/techsift/platform"
)

// Section is the raw output attributable to one command. StartLine
// and EndLine are zero-based line offsets of the output within the
// capture (EndLine is exclusive). Output may be empty: the command
// ran and printed nothing, which is distinct from the command being
// absent from the capture entirely.
type Section struct {
	Command   string
	Output    string
	StartLine int
	EndLine   int
}

// Empty reports whether the section has no output text.
func (s Section) Empty() bool {
	return strings.TrimSpace(s.Output) == ""
}

var (
	// "------------------ show version ------------------"
	dashedHeader = regexp.MustCompile(`^-{18,}\s*(.*?)\s*-+$`)

	// "`show version`"
	backtickEcho = regexp.MustCompile("^\\s*`([^`]+)`\\s*$")

	// "HOSTNAME# show version", "HOSTNAME> ...", "HOSTNAME(config)# ..."
	promptEcho = regexp.MustCompile(`^([A-Za-z0-9][\w.\-]*(?:\([\w\-]+\))?)([#>])\s+(\S.*)$`)

	// Pagination continuation markers. Matched anywhere in a line and
	// stripped; whatever surrounds the marker is kept.
	moreMarker = regexp.MustCompile(`<?-+\s*[Mm]ore\s*-+>?`)
)

// Extract splits a capture into its ordered sections. It never fails:
// a capture whose boundary structure cannot be recognized degrades to
// a single catch-all section plus a diagnostic.
func Extract(c capture.Capture, tag platform.Tag) ([]Section, []entity.Diagnostic) {
	// Palo Alto captures are one XML document, not a prompt-bounded
	// transcript. The whole capture is the "config" section.
	if tag.Platform == platform.PaloAlto {
		lines := c.Lines()
		return []Section{{
			Command:   "config",
			Output:    c.Text,
			StartLine: 0,
			EndLine:   len(lines),
		}}, nil
	}

	lines := c.Lines()
	var (
		sections []Section
		diags    []entity.Diagnostic
		current  *Section
		body     []string
		hostname string // locked prompt hostname, "" until first sighting
	)

	flush := func(end int) {
		if current == nil {
			return
		}
		current.Output = strings.Join(body, "\n")
		current.EndLine = end
		sections = append(sections, *current)
		current = nil
		body = nil
	}

	for i, line := range lines {
		if moreMarker.MatchString(line) {
			line = strings.TrimSpace(moreMarker.ReplaceAllString(line, ""))
			if line == "" {
				continue
			}
		}

		if cmd, ok := boundary(line, &hostname); ok {
			flush(i)
			current = &Section{Command: cmd, StartLine: i + 1}
			continue
		}

		if current != nil {
			body = append(body, line)
		} else if strings.TrimSpace(line) != "" {
			// Preamble before the first recognized boundary (banner,
			// MOTD). Collect it into a command-less section so nothing
			// is dropped.
			current = &Section{Command: "", StartLine: i}
			body = append(body, line)
		}
	}
	flush(len(lines))

	if len(sections) == 1 && sections[0].Command == "" {
		diags = append(diags, entity.Diagnostic{
			Kind:     entity.DiagSectionBoundary,
			Severity: entity.SeverityWarning,
			Message:  fmt.Sprintf("no command boundaries recognized in %s; capture kept as one section", c.Source),
		})
	}

	return sections, diags
}

// boundary reports whether the line introduces a new command section
// and, if so, returns the command as issued.
func boundary(line string, hostname *string) (string, bool) {
	if m := dashedHeader.FindStringSubmatch(line); m != nil && m[1] != "" {
		return m[1], true
	}
	if m := backtickEcho.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if m := promptEcho.FindStringSubmatch(line); m != nil {
		base := promptBase(m[1])
		if *hostname == "" {
			// First prompt sighting: only lock on when the rest of the
			// line looks like a command, to avoid seizing on output
			// that happens to contain "word# text".
			if !looksLikeCommand(m[3]) {
				return "", false
			}
			*hostname = base
			return strings.TrimSpace(m[3]), true
		}
		if base == *hostname {
			return strings.TrimSpace(m[3]), true
		}
	}
	return "", false
}

// promptBase strips a config-mode suffix so "SW1(config)" and "SW1"
// lock to the same hostname.
func promptBase(prompt string) string {
	if i := strings.IndexByte(prompt, '('); i > 0 {
		return prompt[:i]
	}
	return prompt
}

// commandWords are the verbs that open device CLI commands. Used only
// for the first prompt sighting; once a hostname is locked, matching
// is by hostname.
var commandWords = map[string]bool{
	"show": true, "display": true, "admin": true, "dir": true,
	"more": true, "terminal": true, "ping": true, "traceroute": true,
}

func looksLikeCommand(rest string) bool {
	word, _, _ := strings.Cut(strings.TrimSpace(rest), " ")
	return commandWords[strings.ToLower(word)]
}
