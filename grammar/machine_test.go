package grammar

import (
	"errors"
	"regexp"
	"strings"
	"testing"
)

func rowMachine(failRows bool) *Machine {
	policy := NoMatchSkip
	if failRows {
		policy = NoMatchFail
	}
	return &Machine{
		Start: "preamble",
		States: []State{
			{
				Name:      "preamble",
				OnNoMatch: NoMatchSkip,
				Rules: []Rule{
					{Pattern: regexp.MustCompile(`^Name\s+Value`), Action: ActionSkip, Next: "rows"},
				},
			},
			{
				Name:      "rows",
				OnNoMatch: policy,
				Rules: []Rule{
					{Pattern: regexp.MustCompile(`^(?P<name>\w+)\s+(?P<value>\w+)$`), Action: ActionStart, RecordType: "row"},
				},
			},
		},
	}
}

func TestMachineRunEmitsOnePerRow(t *testing.T) {
	text := strings.Join([]string{
		"garbage before the table",
		"Name  Value",
		"alpha one",
		"beta two",
	}, "\n")

	records, err := rowMachine(true).Run(text)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if v, _ := records[0].Get("name"); v != "alpha" {
		t.Errorf("first record name = %q, want alpha", v)
	}
	if v, _ := records[1].Get("value"); v != "two" {
		t.Errorf("second record value = %q, want two", v)
	}
}

func TestMachineBlankLinesNeverFail(t *testing.T) {
	text := "Name  Value\nalpha one\n\n\nbeta two\n"
	records, err := rowMachine(true).Run(text)
	if err != nil {
		t.Fatalf("blank lines should not fail: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestMachinePartialParseKeepsRecords(t *testing.T) {
	text := "Name  Value\nalpha one\n%% malformed line here\nbeta two\n"
	records, err := rowMachine(true).Run(text)
	if err == nil {
		t.Fatal("expected a partial parse error")
	}
	if !errors.Is(err, ErrPartialParse) {
		t.Errorf("errors.Is(err, ErrPartialParse) = false for %v", err)
	}
	var partial *PartialParseError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *PartialParseError, got %T", err)
	}
	if partial.LineNo != 3 {
		t.Errorf("LineNo = %d, want 3", partial.LineNo)
	}
	// The record completed before the bad line must survive.
	if len(records) != 1 {
		t.Fatalf("expected 1 record kept, got %d", len(records))
	}
	if v, _ := records[0].Get("name"); v != "alpha" {
		t.Errorf("kept record name = %q, want alpha", v)
	}
}

func TestMachineStashSeedsNextRecord(t *testing.T) {
	m := &Machine{
		Start: "scan",
		States: []State{
			{
				Name:      "scan",
				OnNoMatch: NoMatchSkip,
				Rules: []Rule{
					{Pattern: regexp.MustCompile(`^remark (?P<remark>.+)$`), Action: ActionStash, Separator: " | "},
					{Pattern: regexp.MustCompile(`^entry (?P<name>\w+)$`), Action: ActionStart, RecordType: "entry"},
				},
			},
		},
	}

	records, err := m.Run("remark first\nremark second\nentry a\nentry b\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if v, _ := records[0].Get("remark"); v != "first | second" {
		t.Errorf("stashed remark = %q, want joined remarks", v)
	}
	// Stash applies once; the second record starts clean.
	if _, ok := records[1].Get("remark"); ok {
		t.Error("second record should not inherit the stash")
	}
}

func TestMachineAppendJoinsContinuations(t *testing.T) {
	m := &Machine{
		Start: "scan",
		States: []State{
			{
				Name:      "scan",
				OnNoMatch: NoMatchSkip,
				Rules: []Rule{
					{Pattern: regexp.MustCompile(`^route (?P<dest>\S+) via (?P<hop>\S+)$`), Action: ActionStart, RecordType: "route"},
					{Pattern: regexp.MustCompile(`^\s+via (?P<hop>\S+)$`), Action: ActionAppend, Separator: ", "},
				},
			},
		},
	}
	records, err := m.Run("route 10.0.0.0 via 1.1.1.1\n  via 2.2.2.2\n")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v, _ := records[0].Get("hop"); v != "1.1.1.1, 2.2.2.2" {
		t.Errorf("hop = %q, want joined hops", v)
	}
}

func TestMachineValidate(t *testing.T) {
	tests := []struct {
		name    string
		machine *Machine
	}{
		{
			"undefined transition",
			&Machine{Start: "a", States: []State{
				{Name: "a", Rules: []Rule{{Pattern: regexp.MustCompile(`x`), Action: ActionSkip, Next: "nowhere"}}},
			}},
		},
		{
			"start without record type",
			&Machine{Start: "a", States: []State{
				{Name: "a", Rules: []Rule{{Pattern: regexp.MustCompile(`x`), Action: ActionStart}}},
			}},
		},
		{
			"nil pattern",
			&Machine{Start: "a", States: []State{
				{Name: "a", Rules: []Rule{{Action: ActionSkip}}},
			}},
		},
		{
			"unknown start state",
			&Machine{Start: "missing", States: []State{{Name: "a"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.machine.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}
