package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: one component, the props it is
// mounted with, a sequence of updates and the assertions that must hold
// afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Exactly one of Source, File or Code provides the component. Source is
	// component source compiled before the run; File is a source file
	// relative to the scenario file; Code is already-compiled output that
	// is loaded as is.
	Source string `yaml:"source,omitempty"`
	File   string `yaml:"file,omitempty"`
	Code   string `yaml:"code,omitempty"`

	// Path is the logical file path used for compiling. Defaults to File,
	// or "component.jsx".
	Path string `yaml:"path,omitempty"`

	// Props are the initial prop values.
	Props map[string]any `yaml:"props,omitempty"`

	// Variant mounts a static variant such as "suspense" instead of the
	// component itself.
	Variant string `yaml:"variant,omitempty"`

	// Locale, Translations and Context configure the i18n and useContext
	// capabilities.
	Locale       string            `yaml:"locale,omitempty"`
	Translations map[string]string `yaml:"translations,omitempty"`
	Context      map[string]any    `yaml:"context,omitempty"`

	// MaxRuns overrides the per-update effect quota.
	MaxRuns int `yaml:"max_runs,omitempty"`

	// Steps are the updates applied after mount, in order.
	Steps []Step `yaml:"steps,omitempty"`

	// Assertions validate the compiled code, the trace and the final HTML.
	Assertions []Assertion `yaml:"assertions"`

	// dir is the directory the scenario was loaded from.
	dir string
}

// Step is one update. Exactly one field is set.
type Step struct {
	// Set assigns props by name.
	Set map[string]any `yaml:"set,omitempty"`

	// Emit dispatches an event to the first matching element.
	Emit *EmitStep `yaml:"emit,omitempty"`

	// Tick advances virtual time by this many milliseconds.
	Tick int `yaml:"tick,omitempty"`

	// Unmount disposes the component.
	Unmount bool `yaml:"unmount,omitempty"`
}

// EmitStep names the target element and the event.
type EmitStep struct {
	// Target is a tag name, #id or .class selector.
	Target  string         `yaml:"target"`
	Event   string         `yaml:"event"`
	Payload map[string]any `yaml:"payload,omitempty"`
}

// Assertion validates one aspect of a run.
type Assertion struct {
	// Type specifies the assertion type; see the Assert constants.
	Type string `yaml:"type"`

	// Kind restricts trace assertions to one event kind (log, call, set...).
	Kind string `yaml:"kind,omitempty"`

	// Message matches a trace event message exactly; Contains matches a
	// substring. Used by trace_contains and trace_count.
	Message  string `yaml:"message,omitempty"`
	Contains string `yaml:"contains,omitempty"`

	// Messages is the expected order for trace_order.
	Messages []string `yaml:"messages,omitempty"`

	// Count is the expected number for trace_count, diagnostic_count and
	// live_effects.
	Count int `yaml:"count,omitempty"`

	// HTML is the expected markup for html_equals and html_contains.
	HTML string `yaml:"html,omitempty"`

	// Text is the expected fragment for code_contains.
	Text string `yaml:"text,omitempty"`

	// Code is a diagnostic code for diagnostic_count, or a runtime error
	// code for error_code.
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains   = "trace_contains"
	AssertTraceOrder      = "trace_order"
	AssertTraceCount      = "trace_count"
	AssertHTMLEquals      = "html_equals"
	AssertHTMLContains    = "html_contains"
	AssertCodeContains    = "code_contains"
	AssertDiagnosticCount = "diagnostic_count"
	AssertLiveEffects     = "live_effects"
	AssertErrorCode       = "error_code"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	scenario.dir = filepath.Dir(path)
	if scenario.File != "" {
		if _, err := os.Stat(scenario.sourcePath()); err != nil {
			return nil, fmt.Errorf("%s: invalid scenario: component file: %w", path, err)
		}
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. File references resolve against the
// working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// Discover returns the scenario files under dir, sorted. A non-empty
// pattern filters by file base name using filepath.Match syntax.
func Discover(dir, pattern string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if pattern != "" {
			base := filepath.Base(path)
			ok, err := filepath.Match(pattern, base[:len(base)-len(ext)])
			if err != nil {
				return fmt.Errorf("filter %q: %w", pattern, err)
			}
			if !ok {
				return nil
			}
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover scenarios: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Scenario) sourcePath() string {
	if filepath.IsAbs(s.File) {
		return s.File
	}
	return filepath.Join(s.dir, s.File)
}

// logicalPath is the path the component is compiled under.
func (s *Scenario) logicalPath() string {
	switch {
	case s.Path != "":
		return s.Path
	case s.File != "":
		return filepath.ToSlash(s.File)
	}
	return "component.jsx"
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	sources := 0
	for _, v := range []string{s.Source, s.File, s.Code} {
		if v != "" {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("exactly one of source, file or code is required")
	}
	if s.MaxRuns < 0 {
		return fmt.Errorf("max_runs must be non-negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step Step) error {
	set := 0
	if step.Set != nil {
		set++
	}
	if step.Emit != nil {
		set++
		if step.Emit.Target == "" || step.Emit.Event == "" {
			return fmt.Errorf("steps[%d]: emit requires target and event", index)
		}
	}
	if step.Tick != 0 {
		set++
		if step.Tick < 0 {
			return fmt.Errorf("steps[%d]: tick must be positive", index)
		}
	}
	if step.Unmount {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of set, emit, tick or unmount is required", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Message == "" && a.Contains == "" {
			return fmt.Errorf("assertions[%d]: message or contains is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Messages) == 0 {
			return fmt.Errorf("assertions[%d]: messages list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Message == "" && a.Contains == "" && a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind, message or contains is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertHTMLEquals:
		// An empty html asserts that nothing rendered.
	case AssertHTMLContains:
		if a.HTML == "" {
			return fmt.Errorf("assertions[%d]: html is required for html_contains", index)
		}
	case AssertCodeContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for code_contains", index)
		}
	case AssertDiagnosticCount, AssertLiveEffects:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case AssertErrorCode:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for error_code", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
