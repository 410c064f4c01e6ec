package compiler

import (
	"fmt"
	"strings"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Diagnostics: error collection with a tolerance
// ---------------------------------------------------------------------------

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	}
	return "unknown"
}

// WarningLevel filters warnings: a warning is kept only if its level is at
// or below the collector's level.
type WarningLevel int

const (
	WarnNone WarningLevel = iota
	WarnLikelyErrors
	WarnPossibleErrors
	WarnParanoia
)

// ParseWarningLevel maps the configuration spelling to a level.
func ParseWarningLevel(s string) (WarningLevel, error) {
	switch strings.ToLower(s) {
	case "none":
		return WarnNone, nil
	case "", "likely":
		return WarnLikelyErrors, nil
	case "possible":
		return WarnPossibleErrors, nil
	case "paranoia":
		return WarnParanoia, nil
	}
	return WarnNone, fmt.Errorf("unknown warning level %q", s)
}

func (l WarningLevel) String() string {
	switch l {
	case WarnNone:
		return "none"
	case WarnLikelyErrors:
		return "likely"
	case WarnPossibleErrors:
		return "possible"
	case WarnParanoia:
		return "paranoia"
	}
	return "unknown"
}

// Diagnostic is one reported problem.
type Diagnostic struct {
	Severity Severity
	Span     Span
	Message  string
}

func (d Diagnostic) String() string {
	pos := d.Span.Start
	if d.Severity == SeverityWarning {
		return fmt.Sprintf("warning: line %d, column %d: %s", pos.Line, pos.Column, d.Message)
	}
	return fmt.Sprintf("line %d, column %d: %s", pos.Line, pos.Column, d.Message)
}

// CollectorOptions configure a Collector.
type CollectorOptions struct {
	Tolerance    int // errors collected before the phase aborts
	WarningLevel WarningLevel
}

// DefaultCollectorOptions returns a tolerance of 10 and likely-error warnings.
func DefaultCollectorOptions() CollectorOptions {
	return CollectorOptions{Tolerance: 10, WarningLevel: WarnLikelyErrors}
}

// AbortError ends a compile phase. It carries every diagnostic collected so far.
type AbortError struct {
	Diagnostics []Diagnostic
}

func (e *AbortError) Error() string {
	var errs []string
	for _, d := range e.Diagnostics {
		if d.Severity != SeverityWarning {
			errs = append(errs, d.String())
		}
	}
	switch len(errs) {
	case 0:
		return "compilation aborted"
	case 1:
		return "compilation failed: " + errs[0]
	}
	return fmt.Sprintf("compilation failed with %d errors:\n%s", len(errs), strings.Join(errs, "\n"))
}

// Collector accumulates diagnostics for one compilation. It is not safe for
// concurrent use.
type Collector struct {
	opts   CollectorOptions
	diags  []Diagnostic
	errors int
	log    commonlog.Logger
}

// NewCollector creates a collector with opts.
func NewCollector(opts CollectorOptions) *Collector {
	return &Collector{opts: opts, log: commonlog.GetLogger("dynlink.compiler")}
}

// Options returns the collector configuration.
func (c *Collector) Options() CollectorOptions { return c.opts }

// Error records an error at node. It returns an *AbortError once the number
// of errors exceeds the tolerance, nil otherwise.
func (c *Collector) Error(node Node, format string, args ...interface{}) error {
	c.add(SeverityError, node, format, args...)
	c.errors++
	if c.opts.Tolerance > 0 && c.errors > c.opts.Tolerance {
		c.log.Warningf("error tolerance %d exceeded", c.opts.Tolerance)
		return c.Abort()
	}
	return nil
}

// Fatal records an error at node and always returns an *AbortError.
func (c *Collector) Fatal(node Node, format string, args ...interface{}) error {
	c.add(SeverityFatal, node, format, args...)
	c.errors++
	return c.Abort()
}

// Warning records a warning of the given level unless the collector filters it.
func (c *Collector) Warning(level WarningLevel, node Node, format string, args ...interface{}) {
	if level == WarnNone || level > c.opts.WarningLevel {
		return
	}
	c.add(SeverityWarning, node, format, args...)
}

func (c *Collector) add(sev Severity, node Node, format string, args ...interface{}) {
	var span Span
	if node != nil {
		span = node.Span()
	}
	d := Diagnostic{Severity: sev, Span: span, Message: fmt.Sprintf(format, args...)}
	c.diags = append(c.diags, d)
	c.log.Debugf("%s", d)
}

// Abort returns an *AbortError over the diagnostics collected so far.
func (c *Collector) Abort() error {
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return &AbortError{Diagnostics: out}
}

// HasErrors reports whether any error has been recorded.
func (c *Collector) HasErrors() bool { return c.errors > 0 }

// ErrorCount returns the number of errors recorded.
func (c *Collector) ErrorCount() int { return c.errors }

// Diagnostics returns everything recorded, in order.
func (c *Collector) Diagnostics() []Diagnostic { return c.diags }

// Errors returns only the errors, as strings.
func (c *Collector) Errors() []string {
	var out []string
	for _, d := range c.diags {
		if d.Severity != SeverityWarning {
			out = append(out, d.String())
		}
	}
	return out
}

// Warnings returns only the warnings, as strings.
func (c *Collector) Warnings() []string {
	var out []string
	for _, d := range c.diags {
		if d.Severity == SeverityWarning {
			out = append(out, d.String())
		}
	}
	return out
}
