// Package grammar holds the static table of parsing grammars and
// dispatches sections to them.
//
// The registry maps (platform, normalized command) to a grammar
// definition. It is built once at startup from the built-in
// definitions plus caller options; there is no process-wide mutable
// lookup path. Command normalization is an aliasing table plus
// whitespace/case folding — deterministic, never fuzzy.
package grammar

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/techsift/techsift/platform"
	"github.com/techsift/techsift/section"
)

// Sentinel errors. ErrConfigurationDefect marks broken registry
// contents (a system defect, allowed to abort a run); the others are
// data-quality conditions the pipeline records and survives.
var (
	ErrNoGrammar           = errors.New("no grammar registered")
	ErrPartialParse        = errors.New("partial parse")
	ErrConfigurationDefect = errors.New("grammar configuration defect")
)

// NoGrammarError reports that no grammar covers (platform, command).
type NoGrammarError struct {
	Platform platform.Platform
	Command  string
}

func (e *NoGrammarError) Error() string {
	return fmt.Sprintf("no grammar registered for %s %q", e.Platform, e.Command)
}

// Unwrap makes errors.Is(err, ErrNoGrammar) work.
func (e *NoGrammarError) Unwrap() error { return ErrNoGrammar }

// PartialParseError reports a line the grammar could not classify.
// The dispatcher still returns every record completed before the
// line.
type PartialParseError struct {
	Line   string
	LineNo int
}

func (e *PartialParseError) Error() string {
	return fmt.Sprintf("unclassifiable line %d: %q", e.LineNo, e.Line)
}

// Unwrap makes errors.Is(err, ErrPartialParse) work.
func (e *PartialParseError) Unwrap() error { return ErrPartialParse }

// ParseFunc parses a whole section without a line machine. Used for
// formats that are not line-oriented (the Palo Alto XML config).
type ParseFunc func(text string) ([]RawRecord, error)

// Definition binds one (platform, command) pair to its grammar.
// Exactly one of Machine or Parse is set.
type Definition struct {
	Platform platform.Platform
	Command  string
	Machine  *Machine
	Parse    ParseFunc
}

type key struct {
	platform platform.Platform
	command  string
}

// Registry is the immutable grammar lookup table.
type Registry struct {
	defs    map[key]*Definition
	aliases map[key]string // normalized alias -> canonical command
	logger  *slog.Logger
}

// Option configures registry construction.
type Option func(*registryConfig)

type registryConfig struct {
	logger     *slog.Logger
	extraDefs  []*Definition
	extraAlias map[string]map[string]string // platform -> alias -> canonical
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *registryConfig) { c.logger = l }
}

// WithDefinition adds or overrides a grammar definition.
func WithDefinition(def *Definition) Option {
	return func(c *registryConfig) { c.extraDefs = append(c.extraDefs, def) }
}

// WithAliases adds command aliases for a platform (alias → canonical
// command, both in as-issued form).
func WithAliases(p platform.Platform, aliases map[string]string) Option {
	return func(c *registryConfig) {
		if c.extraAlias == nil {
			c.extraAlias = make(map[string]map[string]string)
		}
		m := c.extraAlias[string(p)]
		if m == nil {
			m = make(map[string]string)
			c.extraAlias[string(p)] = m
		}
		for a, canon := range aliases {
			m[a] = canon
		}
	}
}

// NewRegistry builds the registry from the built-in grammar
// definitions plus options. A malformed definition is a
// ConfigurationDefect.
func NewRegistry(opts ...Option) (*Registry, error) {
	cfg := registryConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Registry{
		defs:    make(map[key]*Definition),
		aliases: make(map[key]string),
		logger:  cfg.logger,
	}

	defs := builtinDefinitions()
	defs = append(defs, cfg.extraDefs...)
	for _, def := range defs {
		if err := r.add(def); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfigurationDefect, err)
		}
	}

	for p, aliases := range builtinAliases() {
		for alias, canonical := range aliases {
			r.aliases[key{p, NormalizeCommand(alias)}] = NormalizeCommand(canonical)
		}
	}
	for p, aliases := range cfg.extraAlias {
		for alias, canonical := range aliases {
			r.aliases[key{platform.Platform(p), NormalizeCommand(alias)}] = NormalizeCommand(canonical)
		}
	}

	return r, nil
}

func (r *Registry) add(def *Definition) error {
	if def == nil {
		return fmt.Errorf("nil definition")
	}
	if def.Command == "" {
		return fmt.Errorf("definition for %s has empty command", def.Platform)
	}
	if (def.Machine == nil) == (def.Parse == nil) {
		return fmt.Errorf("%s %q must set exactly one of Machine or Parse", def.Platform, def.Command)
	}
	if def.Machine != nil {
		if err := def.Machine.Validate(); err != nil {
			return fmt.Errorf("%s %q: %w", def.Platform, def.Command, err)
		}
	}
	r.defs[key{def.Platform, NormalizeCommand(def.Command)}] = def
	return nil
}

// Lookup resolves a platform and as-issued command to a grammar
// definition.
func (r *Registry) Lookup(p platform.Platform, command string) (*Definition, bool) {
	norm := NormalizeCommand(command)
	if canonical, ok := r.aliases[key{p, norm}]; ok {
		norm = canonical
	}
	def, ok := r.defs[key{p, norm}]
	return def, ok
}

// Commands lists the canonical commands registered for a platform.
func (r *Registry) Commands(p platform.Platform) []string {
	var out []string
	for k := range r.defs {
		if k.platform == p {
			out = append(out, k.command)
		}
	}
	return out
}

// Dispatch parses one section with the grammar registered for
// (tag, section command).
//
// Failure shapes: a *NoGrammarError when the command has no grammar
// (caller records a diagnostic and moves on), or a *PartialParseError
// alongside the records completed before the offending line. An
// unidentified tag never selects a grammar.
func (r *Registry) Dispatch(tag platform.Tag, sec section.Section) ([]RawRecord, error) {
	if !tag.IsIdentified() {
		return nil, &NoGrammarError{Platform: tag.Platform, Command: sec.Command}
	}
	def, ok := r.Lookup(tag.Platform, sec.Command)
	if !ok {
		return nil, &NoGrammarError{Platform: tag.Platform, Command: sec.Command}
	}

	r.logger.Debug("dispatching section",
		"platform", string(tag.Platform),
		"command", sec.Command,
		"lines", sec.EndLine-sec.StartLine)

	if def.Parse != nil {
		return def.Parse(sec.Output)
	}
	return def.Machine.Run(sec.Output)
}

// NormalizeCommand folds case and collapses internal whitespace so
// "Show  IP Interface Brief" and "show ip interface brief" hit the
// same registry key.
func NormalizeCommand(command string) string {
	return strings.Join(strings.Fields(strings.ToLower(command)), " ")
}

// builtinAliases is the command aliasing table. Aliases are exact
// normalized strings, not fuzzy matches, to keep dispatch
// deterministic.
func builtinAliases() map[platform.Platform]map[string]string {
	ciscoCommon := map[string]string{
		"show run":            "show running-config",
		"show running":        "show running-config",
		"show running-config": "show running-config",
		"show ver":            "show version",
	}
	ios := map[string]string{
		"show ip int brief":        "show ip interface brief",
		"show ip int brie":         "show ip interface brief",
		"show ip interface brie":   "show ip interface brief",
		"show interface":           "show interfaces",
		"show int":                 "show interfaces",
		"show cdp neighbor detail": "show cdp neighbors detail",
	}
	nxos := map[string]string{
		"show int brief":           "show interface brief",
		"show interfaces brief":    "show interface brief",
		"show cdp neighbor detail": "show cdp neighbors detail",
	}
	asa := map[string]string{}
	for a, canon := range ciscoCommon {
		ios[a] = canon
		nxos[a] = canon
		asa[a] = canon
	}
	return map[platform.Platform]map[string]string{
		platform.CiscoIOS:  ios,
		platform.CiscoNXOS: nxos,
		platform.CiscoASA:  asa,
	}
}

// builtinDefinitions gathers the per-platform grammar tables.
func builtinDefinitions() []*Definition {
	var defs []*Definition
	defs = append(defs, ciscoIOSDefinitions()...)
	defs = append(defs, ciscoNXOSDefinitions()...)
	defs = append(defs, ciscoASADefinitions()...)
	defs = append(defs, paloAltoDefinitions()...)
	return defs
}
