// Package pipeline runs the full capture-to-entities flow: platform
// identification, section extraction, grammar dispatch, and
// normalization. Data-quality problems become diagnostics on the
// result; only configuration defects (a broken grammar or registry)
// abort a run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/techsift/techsift/capture"
	"github.com/techsift/techsift/entity"
	"github.com/techsift/techsift/grammar"
	"github.com/techsift/techsift/metric"
	"github.com/techsift/techsift/normalize"
	"github.com/techsift/techsift/platform"
	"github.com/techsift/techsift/section"
)

// Result is everything one capture produced.
type Result struct {
	RunID       string
	Source      string
	Platform    platform.Tag
	Sections    []section.Section
	Records     map[string][]grammar.RawRecord // keyed by section command
	Entities    map[entity.Kind][]entity.Entity
	Diagnostics []entity.Diagnostic
	Duration    time.Duration
}

// EntityCount returns the total entity count across kinds.
func (r *Result) EntityCount() int {
	total := 0
	for _, es := range r.Entities {
		total += len(es)
	}
	return total
}

// Pipeline wires the stages together. Safe for concurrent use.
type Pipeline struct {
	registry   *grammar.Registry
	normalizer *normalize.Normalizer
	hint       platform.Tag
	logger     *slog.Logger
	metrics    *metric.Bundle
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRegistry replaces the built-in grammar registry.
func WithRegistry(r *grammar.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// WithPlatformHint forces the platform instead of identifying it.
func WithPlatformHint(tag platform.Tag) Option {
	return func(p *Pipeline) { p.hint = tag }
}

// WithMetrics attaches a metrics bundle.
func WithMetrics(m *metric.Bundle) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a Pipeline with the built-in grammars.
func New(opts ...Option) (*Pipeline, error) {
	p := &Pipeline{logger: slog.Default()}
	for _, o := range opts {
		o(p)
	}
	if p.registry == nil {
		reg, err := grammar.NewRegistry(grammar.WithLogger(p.logger))
		if err != nil {
			return nil, fmt.Errorf("build grammar registry: %w", err)
		}
		p.registry = reg
	}
	if p.normalizer == nil {
		p.normalizer = normalize.New(normalize.WithLogger(p.logger))
	}
	return p, nil
}

// Run processes one capture end to end. The context is checked
// between sections so a cancelled run stops promptly; everything
// already parsed stays on the returned result.
func (p *Pipeline) Run(ctx context.Context, c capture.Capture) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:    uuid.NewString(),
		Source:   c.Source,
		Records:  make(map[string][]grammar.RawRecord),
		Entities: make(map[entity.Kind][]entity.Entity),
	}

	tag := p.hint
	if !tag.IsIdentified() {
		tag = platform.Identify(c)
	}
	res.Platform = tag
	if !tag.IsIdentified() {
		res.Diagnostics = append(res.Diagnostics, entity.Diagnostic{
			Kind:     entity.DiagUnidentifiedPlatform,
			Severity: entity.SeverityWarning,
			Message:  "platform could not be identified; sections extracted but not parsed",
		})
	}
	p.logger.Info("identified capture",
		"source", c.Source,
		"platform", tag.Platform,
		"confidence", tag.Confidence)

	sections, diags := section.Extract(c, tag)
	res.Sections = sections
	res.Diagnostics = append(res.Diagnostics, diags...)

	// Without a platform there is no grammar to dispatch to; the
	// extracted sections stand on their own under the single
	// unidentified-platform diagnostic.
	if tag.IsIdentified() {
		for _, sec := range sections {
			if err := ctx.Err(); err != nil {
				res.Duration = time.Since(start)
				return res, fmt.Errorf("run cancelled: %w", err)
			}
			if sec.Command == "" || sec.Empty() {
				continue
			}
			if err := p.runSection(tag, sec, res); err != nil {
				res.Duration = time.Since(start)
				return res, err
			}
		}
	}

	res.Duration = time.Since(start)
	if p.metrics != nil {
		p.metrics.ObserveRun(string(tag.Platform), res.EntityCount(), res.Diagnostics, res.Duration)
	}
	p.logger.Info("capture processed",
		"source", c.Source,
		"sections", len(sections),
		"entities", res.EntityCount(),
		"diagnostics", len(res.Diagnostics),
		"duration", res.Duration)
	return res, nil
}

func (p *Pipeline) runSection(tag platform.Tag, sec section.Section, res *Result) error {
	records, err := p.registry.Dispatch(tag, sec)
	if err != nil {
		var noGrammar *grammar.NoGrammarError
		var partial *grammar.PartialParseError
		switch {
		case errors.As(err, &noGrammar):
			res.Diagnostics = append(res.Diagnostics, entity.Diagnostic{
				Kind:     entity.DiagNoGrammar,
				Severity: entity.SeverityInfo,
				Message:  noGrammar.Error(),
				Command:  sec.Command,
			})
			return nil
		case errors.As(err, &partial):
			res.Diagnostics = append(res.Diagnostics, entity.Diagnostic{
				Kind:     entity.DiagPartialParse,
				Severity: entity.SeverityWarning,
				Message:  partial.Error(),
				Command:  sec.Command,
			})
			// records completed before the bad line are kept below
		case errors.Is(err, grammar.ErrConfigurationDefect):
			return fmt.Errorf("section %q: %w", sec.Command, err)
		default:
			res.Diagnostics = append(res.Diagnostics, entity.Diagnostic{
				Kind:     entity.DiagPartialParse,
				Severity: entity.SeverityWarning,
				Message:  err.Error(),
				Command:  sec.Command,
			})
		}
	}
	if len(records) == 0 {
		return nil
	}
	res.Records[sec.Command] = append(res.Records[sec.Command], records...)

	entities, diags := p.normalizer.Normalize(tag.Platform, sec.Command, records)
	res.Diagnostics = append(res.Diagnostics, diags...)
	for _, e := range entities {
		res.Entities[e.Kind()] = append(res.Entities[e.Kind()], e)
	}
	return nil
}

// Scan reports, without parsing, what a full run would cover: the
// identified platform, each extracted section, and whether a grammar
// exists for it.
type ScanEntry struct {
	Command    string
	Lines      int
	HasGrammar bool
}

// ScanResult summarizes a capture without parsing it.
type ScanResult struct {
	Platform platform.Tag
	Sections []ScanEntry
}

// Scan identifies and segments the capture, reporting grammar
// coverage per section.
func (p *Pipeline) Scan(c capture.Capture) *ScanResult {
	tag := p.hint
	if !tag.IsIdentified() {
		tag = platform.Identify(c)
	}
	sections, _ := section.Extract(c, tag)
	out := &ScanResult{Platform: tag}
	for _, sec := range sections {
		if sec.Command == "" {
			continue
		}
		_, ok := p.registry.Lookup(tag.Platform, sec.Command)
		out.Sections = append(out.Sections, ScanEntry{
			Command:    sec.Command,
			Lines:      sec.EndLine - sec.StartLine,
			HasGrammar: ok && tag.IsIdentified(),
		})
	}
	return out
}
