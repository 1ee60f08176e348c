package entity

// DiagnosticKind classifies a pipeline diagnostic.
type DiagnosticKind string

// Diagnostic kinds. All are data-quality conditions; none aborts a
// pipeline run.
const (
	DiagUnidentifiedPlatform DiagnosticKind = "unidentified_platform"
	DiagNoGrammar            DiagnosticKind = "no_grammar"
	DiagPartialParse         DiagnosticKind = "partial_parse"
	DiagValidationError      DiagnosticKind = "validation_error"
	DiagSectionBoundary      DiagnosticKind = "section_boundary"
	DiagEntityDropped        DiagnosticKind = "entity_dropped"
)

// Severity grades a diagnostic.
type Severity string

// Severity levels.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a structured note collected during a pipeline run.
// Command names the originating section's command when there is one.
type Diagnostic struct {
	Kind     DiagnosticKind
	Severity Severity
	Message  string
	Command  string
}
