// Package platform identifies which vendor/OS produced a capture.
//
// Identification evaluates a fixed, priority-ordered list of
// signature rules against the head of the capture. The first rule
// with enough matching signals wins; priority encodes specificity
// (an ASA-only marker outranks a generic IOS-looking prompt), so
// ties are never broken by comparing confidence between rules. The
// same capture always yields the same tag.
package platform

import (
	"strings"

	"github.com/techsift/techsift/capture"
)

// Platform is one of the closed set of supported vendor/OS tags.
type Platform string

// Supported platforms.
const (
	CiscoIOS  Platform = "cisco_ios"
	CiscoNXOS Platform = "cisco_nxos"
	CiscoASA  Platform = "cisco_asa"
	PaloAlto  Platform = "palo_alto"
	Unknown   Platform = "unknown"
)

// All returns the identifiable platforms in priority-independent
// display order.
func All() []Platform {
	return []Platform{CiscoIOS, CiscoNXOS, CiscoASA, PaloAlto}
}

// Tag is the identification result: a platform, a confidence score in
// [0,1], and the evidence strings that produced it. Unknown always
// has confidence 0 and selects no grammar.
type Tag struct {
	Platform   Platform
	Confidence float64
	Evidence   []string
}

// IsIdentified reports whether the tag names a real platform.
func (t Tag) IsIdentified() bool {
	return t.Platform != Unknown && t.Platform != ""
}

// headLines bounds how much of a capture identification scans. The
// discriminating markers all appear near the top of a dump.
const headLines = 1000

// signal is one discriminating marker checked by a rule.
type signal struct {
	name  string
	match func(head string) bool
}

func contains(substr string) func(string) bool {
	return func(head string) bool { return strings.Contains(head, substr) }
}

func containsFold(substr string) func(string) bool {
	lower := strings.ToLower(substr)
	return func(head string) bool {
		return strings.Contains(strings.ToLower(head), lower)
	}
}

// rule is one identification rule. A rule matches when at least
// minMatch of its signals fire; confidence is matched/len(signals).
type rule struct {
	platform Platform
	signals  []signal
	minMatch int
}

// rules is the fixed priority order. More specific signatures come
// first; the generic Cisco fallback is last.
var rules = []rule{
	{
		platform: PaloAlto,
		minMatch: 3,
		signals: []signal{
			{"xml-prolog", contains("<?xml")},
			{"config-element", func(h string) bool {
				return strings.Contains(h, "<config") || strings.Contains(h, "<show")
			}},
			{"panos-marker", func(h string) bool {
				l := strings.ToLower(h)
				return strings.Contains(l, "panos") ||
					strings.Contains(l, "pan-os") ||
					strings.Contains(l, "paloaltonetworks")
			}},
		},
	},
	{
		platform: CiscoASA,
		minMatch: 1,
		signals: []signal{
			{"asa-version", contains("ASA Version")},
			{"pix-version", contains("PIX Version")},
			{"asa-product", contains("Cisco Adaptive Security Appliance")},
		},
	},
	{
		platform: CiscoNXOS,
		minMatch: 1,
		signals: []signal{
			{"nxos-marker", contains("NX-OS")},
			{"nexus-marker", contains("Nexus")},
		},
	},
	{
		platform: CiscoIOS,
		minMatch: 1,
		signals: []signal{
			{"ios-software", contains("IOS Software")},
			{"cisco-ios-software", contains("Cisco IOS Software")},
			{"ios-xe", contains("IOS-XE")},
		},
	},
	{
		// Generic Cisco command echoes with no version marker. IOS is
		// the most common answer for such captures; the low signal
		// count keeps the confidence honest.
		platform: CiscoIOS,
		minMatch: 1,
		signals: []signal{
			{"running-config-echo", contains("show running-config")},
			{"startup-config-echo", contains("show startup-config")},
		},
	},
}

// Identify inspects a capture and returns its platform tag.
func Identify(c capture.Capture) Tag {
	return IdentifyText(c.Text)
}

// IdentifyText identifies from raw text (a capture body or a
// connection banner).
func IdentifyText(text string) Tag {
	head := headOf(text)

	for _, r := range rules {
		matched := 0
		var evidence []string
		for _, s := range r.signals {
			if s.match(head) {
				matched++
				evidence = append(evidence, s.name)
			}
		}
		if matched >= r.minMatch {
			return Tag{
				Platform:   r.platform,
				Confidence: float64(matched) / float64(len(r.signals)),
				Evidence:   evidence,
			}
		}
	}

	return Tag{Platform: Unknown, Confidence: 0}
}

// Hinted returns a full-confidence tag for a caller-declared
// platform, or the zero Tag if the hint names no known platform.
func Hinted(name string) Tag {
	p := Platform(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range All() {
		if p == known {
			return Tag{Platform: p, Confidence: 1, Evidence: []string{"caller hint"}}
		}
	}
	return Tag{}
}

func headOf(text string) string {
	n := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			n++
			if n >= headLines {
				return text[:i]
			}
		}
	}
	return text
}
