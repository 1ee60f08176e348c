package grammar

import (
	"fmt"
	"regexp"
	"strings"
)

// Action says what a matched rule does with the line.
type Action int

// Rule actions.
const (
	// ActionSkip ignores the line.
	ActionSkip Action = iota

	// ActionStart emits any in-progress record and begins a new one of
	// the rule's RecordType, seeded with the captured fields and any
	// stashed fields.
	ActionStart

	// ActionSet adds the captured fields to the in-progress record.
	ActionSet

	// ActionAppend appends each captured field to the in-progress
	// record with the rule's separator (continuation lines).
	ActionAppend

	// ActionEmit emits the in-progress record after applying any
	// captured fields.
	ActionEmit

	// ActionStash accumulates captured fields into a pending buffer
	// that seeds the next started record (e.g. ACL remarks that
	// describe the entry that follows them).
	ActionStash
)

// NoMatchPolicy says what a state does with a non-blank line no rule
// matched. Outer states skip noise; record-interior states fail so a
// malformed line is reported instead of silently mangling a record.
type NoMatchPolicy int

// No-match policies.
const (
	NoMatchSkip NoMatchPolicy = iota
	NoMatchFail
)

// Rule is one line-matching rule. Named capture groups become record
// fields. Next transitions the machine ("" stays in the current
// state).
type Rule struct {
	Pattern    *regexp.Regexp
	Action     Action
	RecordType string // for ActionStart
	Separator  string // for ActionAppend/ActionStash, default " "
	Next       string
}

// State is one machine state with its ordered rules.
type State struct {
	Name      string
	Rules     []Rule
	OnNoMatch NoMatchPolicy
}

// Machine is a line-oriented finite-state machine grammar: vendor
// outputs are not line-independent, so records spanning multiple
// lines (descriptions, wrapped routes, remark blocks) are reassembled
// across states before emission.
type Machine struct {
	Start  string
	States []State
}

// Validate checks state-name consistency. A broken machine is a
// configuration defect, not a data error.
func (m *Machine) Validate() error {
	if len(m.States) == 0 {
		return fmt.Errorf("machine has no states")
	}
	names := make(map[string]bool, len(m.States))
	for _, s := range m.States {
		if s.Name == "" {
			return fmt.Errorf("state with empty name")
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate state %q", s.Name)
		}
		names[s.Name] = true
	}
	start := m.Start
	if start == "" {
		start = m.States[0].Name
	}
	if !names[start] {
		return fmt.Errorf("start state %q not defined", start)
	}
	for _, s := range m.States {
		for i, r := range s.Rules {
			if r.Pattern == nil {
				return fmt.Errorf("state %q rule %d has nil pattern", s.Name, i)
			}
			if r.Next != "" && !names[r.Next] {
				return fmt.Errorf("state %q rule %d transitions to undefined state %q", s.Name, i, r.Next)
			}
			if r.Action == ActionStart && r.RecordType == "" {
				return fmt.Errorf("state %q rule %d starts a record without a type", s.Name, i)
			}
		}
	}
	return nil
}

// Run executes the machine over the section text. On a line that a
// NoMatchFail state cannot classify, the records finished so far
// (including the one in progress) are returned together with a
// *PartialParseError — one malformed line never discards a section.
func (m *Machine) Run(text string) ([]RawRecord, error) {
	stateByName := make(map[string]*State, len(m.States))
	for i := range m.States {
		stateByName[m.States[i].Name] = &m.States[i]
	}
	current := m.Start
	if current == "" {
		current = m.States[0].Name
	}

	var (
		records []RawRecord
		rec     *RawRecord
		stash   map[string]string
	)

	flush := func() {
		if rec != nil && rec.Len() > 0 {
			records = append(records, *rec)
		}
		rec = nil
	}

	lines := strings.Split(text, "\n")
	for lineno, line := range lines {
		line = strings.TrimRight(line, "\r")
		state := stateByName[current]

		matched := false
		for _, rule := range state.Rules {
			groups := match(rule.Pattern, line)
			if groups == nil {
				continue
			}
			matched = true
			switch rule.Action {
			case ActionSkip:
				// nothing
			case ActionStart:
				flush()
				r := NewRawRecord(rule.RecordType)
				for k, v := range stash {
					r.Set(k, v)
				}
				stash = nil
				for _, kv := range groups {
					r.Set(kv[0], kv[1])
				}
				rec = &r
			case ActionSet:
				if rec != nil {
					for _, kv := range groups {
						rec.Set(kv[0], kv[1])
					}
				}
			case ActionAppend:
				if rec != nil {
					sep := rule.Separator
					if sep == "" {
						sep = " "
					}
					for _, kv := range groups {
						rec.Append(kv[0], kv[1], sep)
					}
				}
			case ActionEmit:
				if rec != nil {
					for _, kv := range groups {
						rec.Set(kv[0], kv[1])
					}
				}
				flush()
			case ActionStash:
				sep := rule.Separator
				if sep == "" {
					sep = " | "
				}
				if stash == nil {
					stash = make(map[string]string)
				}
				for _, kv := range groups {
					if existing := stash[kv[0]]; existing != "" {
						stash[kv[0]] = existing + sep + kv[1]
					} else {
						stash[kv[0]] = kv[1]
					}
				}
			}
			if rule.Next != "" {
				current = rule.Next
			}
			break
		}

		if !matched && state.OnNoMatch == NoMatchFail && strings.TrimSpace(line) != "" {
			flush()
			return records, &PartialParseError{Line: line, LineNo: lineno + 1}
		}
	}
	flush()
	return records, nil
}

// match returns [field, value] pairs for the pattern's named groups
// in group order, or nil if the line does not match. Unnamed and
// empty groups are dropped.
func match(p *regexp.Regexp, line string) [][2]string {
	sub := p.FindStringSubmatch(line)
	if sub == nil {
		return nil
	}
	names := p.SubexpNames()
	groups := make([][2]string, 0, len(names))
	for i, name := range names {
		if i == 0 || name == "" {
			continue
		}
		if v := strings.TrimSpace(sub[i]); v != "" {
			groups = append(groups, [2]string{name, v})
		}
	}
	return groups
}
