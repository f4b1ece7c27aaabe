package transform

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/wisp/internal/ast"
)

// Severity grades a diagnostic.
type Severity uint8

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic codes. Each one has a documentation page under the configured
// docs base URL.
const (
	CodeMissingReturn  = "missing-return"
	CodeComponentTag   = "component-tag"
	CodePropTag        = "prop-tag"
	CodeSpreadProps    = "spread-props"
	CodeDynamicI18nKey = "dynamic-i18n-key"
	CodeUnsupported    = "unsupported-syntax"
)

// Diagnostic is one message produced while transforming a file. Lines holds
// the message split into display lines; the first line is the summary.
type Diagnostic struct {
	Severity Severity
	Code     string
	Lines    []string
	DocsURL  string
	Path     string
	Loc      ast.Loc
}

// Message joins the diagnostic lines.
func (d Diagnostic) Message() string {
	return strings.Join(d.Lines, "\n")
}

func (d Diagnostic) String() string {
	where := d.Path
	if d.Loc.IsValid() {
		where = fmt.Sprintf("%s:%d:%d", d.Path, d.Loc.Line, d.Loc.Column)
	}
	return fmt.Sprintf("%s: %s [%s]: %s", where, d.Severity, d.Code, d.Message())
}

// Logger receives diagnostics as they are produced.
type Logger interface {
	Log(d Diagnostic)
}

// SlogLogger writes diagnostics to a slog.Logger. With Debug set every
// diagnostic is logged at debug level, for callers that print the Result's
// diagnostics themselves.
type SlogLogger struct {
	Logger *slog.Logger
	Debug  bool
}

func (l SlogLogger) Log(d Diagnostic) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelWarn
	switch {
	case l.Debug:
		level = slog.LevelDebug
	case d.Severity == SeverityError:
		level = slog.LevelError
	}
	attrs := []any{
		"code", d.Code,
		"path", d.Path,
	}
	if d.Loc.IsValid() {
		attrs = append(attrs, "line", d.Loc.Line, "column", d.Loc.Column)
	}
	if d.DocsURL != "" {
		attrs = append(attrs, "docs", d.DocsURL)
	}
	if len(d.Lines) > 1 {
		attrs = append(attrs, "detail", strings.Join(d.Lines[1:], "; "))
	}
	summary := ""
	if len(d.Lines) > 0 {
		summary = d.Lines[0]
	}
	logger.Log(context.Background(), level, summary, attrs...)
}

// Recorder keeps diagnostics in memory. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	diags []Diagnostic
}

func (r *Recorder) Log(d Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diags = append(r.diags, d)
}

// Diagnostics returns a copy of everything recorded so far.
func (r *Recorder) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diags))
	copy(out, r.diags)
	return out
}

// reporter stamps diagnostics with the file path and docs link, keeps them
// for the Result and forwards them to the configured Logger.
type reporter struct {
	path    string
	docsURL string
	logger  Logger
	diags   []Diagnostic
}

func (r *reporter) report(sev Severity, code string, loc ast.Loc, lines ...string) {
	d := Diagnostic{
		Severity: sev,
		Code:     code,
		Lines:    lines,
		Path:     r.path,
		Loc:      loc,
	}
	if r.docsURL != "" {
		d.DocsURL = strings.TrimSuffix(r.docsURL, "/") + "/diagnostics/" + code
	}
	r.diags = append(r.diags, d)
	if r.logger != nil {
		r.logger.Log(d)
	}
}

func (r *reporter) warnf(code string, loc ast.Loc, format string, args ...any) {
	r.report(SeverityWarning, code, loc, fmt.Sprintf(format, args...))
}
