// Package config loads compiler configuration from CUE.
//
// An embedded #Config schema carries every default. A user wisp.cue file is
// unified with the schema, validated as concrete data and decoded into
// Config, so a missing file and an empty file both yield Default().
package config

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// FileName is the conventional config file name looked up in a project root.
const FileName = "wisp.cue"

// Config is the decoded compiler configuration.
type Config struct {
	Runtime  Runtime  `json:"runtime"`
	Markup   Markup   `json:"markup"`
	Effects  Effects  `json:"effects"`
	Variants []string `json:"variants"`
	I18n     I18n     `json:"i18n"`
	Docs     Docs     `json:"docs"`
	Cache    Cache    `json:"cache"`
}

// Runtime names the client runtime entry points the output imports.
type Runtime struct {
	Module   string `json:"module"`
	Register string `json:"register"`
	On       string `json:"on"`
	Off      string `json:"off"`
}

// Markup configures markup lowering.
type Markup struct {
	Factories            []string `json:"factories"`
	Fragments            []string `json:"fragments"`
	EventPrefix          string   `json:"eventPrefix"`
	BooleanAttributes    []string `json:"booleanAttributes"`
	AllowedComponentTags []string `json:"allowedComponentTags"`
	NativePaths          []string `json:"nativePaths"`
}

type Effects struct {
	DependencyBase string `json:"dependencyBase"`
}

// I18n names the translation capability and the translate function.
type I18n struct {
	Capability       string `json:"capability"`
	Translate        string `json:"translate"`
	OverrideProperty string `json:"overrideProperty"`
}

type Docs struct {
	BaseURL string `json:"baseURL"`
}

type Cache struct {
	Dir     string `json:"dir"`
	Enabled bool   `json:"enabled"`
}

// Default returns the schema defaults.
func Default() *Config {
	cfg, err := Compile(nil, "")
	if err != nil {
		// The embedded schema is fixed at build time.
		panic(fmt.Sprintf("config: embedded schema: %v", err))
	}
	return cfg
}

// Load reads and compiles a CUE config file. An empty path yields the
// defaults.
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Compile(data, filename)
}

// Compile unifies src with the schema and decodes the result. A nil src
// yields the defaults.
func Compile(src []byte, filename string) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if len(src) > 0 {
		user := ctx.CompileBytes(src, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		v = v.Unify(user)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, formatCUEError(err)
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// check enforces constraints that are awkward to state in the schema.
func (c *Config) check() error {
	if len(c.Markup.Factories) == 0 {
		return &ConfigError{Field: "markup.factories", Message: "at least one factory is required"}
	}
	for _, pattern := range c.Markup.AllowedComponentTags {
		if _, err := path.Match(pattern, ""); err != nil {
			return &ConfigError{
				Field:   "markup.allowedComponentTags",
				Message: fmt.Sprintf("bad pattern %q: %v", pattern, err),
			}
		}
	}
	if c.Runtime.On == c.Runtime.Off {
		return &ConfigError{Field: "runtime.off", Message: "on and off sentinels must differ"}
	}
	return nil
}

// Digest identifies the configuration in cache keys. Two configs with the
// same decoded values share a digest.
func (c *Config) Digest() string {
	data, err := json.Marshal(c)
	if err != nil {
		panic(fmt.Sprintf("config: marshal: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	field := "cue"
	if p := first.Path(); len(p) > 0 {
		field = strings.Join(p, ".")
	}
	format, args := first.Msg()
	ce := &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
