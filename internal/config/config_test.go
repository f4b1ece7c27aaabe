package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "wisp/client", cfg.Runtime.Module)
	assert.Equal(t, "reactiveElement", cfg.Runtime.Register)
	assert.Equal(t, "_on", cfg.Runtime.On)
	assert.Equal(t, "_off", cfg.Runtime.Off)
	assert.Equal(t, []string{"jsx", "jsxs", "jsxDEV", "jsxsDEV"}, cfg.Markup.Factories)
	assert.Equal(t, []string{"Fragment"}, cfg.Markup.Fragments)
	assert.Equal(t, "on", cfg.Markup.EventPrefix)
	assert.Contains(t, cfg.Markup.BooleanAttributes, "checked")
	assert.Empty(t, cfg.Markup.AllowedComponentTags)
	assert.Equal(t, "r", cfg.Effects.DependencyBase)
	assert.Equal(t, []string{"suspense", "error"}, cfg.Variants)
	assert.Equal(t, "t", cfg.I18n.Translate)
	assert.Equal(t, ".wisp", cfg.Cache.Dir)
	assert.True(t, cfg.Cache.Enabled)
}

func TestCompileOverrides(t *testing.T) {
	cfg, err := Compile([]byte(`
runtime: register: "define"
markup: allowedComponentTags: ["Icon*", "ui.*"]
effects: dependencyBase: "dep"
variants: ["loading"]
cache: enabled: false
`), "wisp.cue")
	require.NoError(t, err)

	assert.Equal(t, "define", cfg.Runtime.Register)
	assert.Equal(t, "wisp/client", cfg.Runtime.Module, "untouched fields keep defaults")
	assert.Equal(t, []string{"Icon*", "ui.*"}, cfg.Markup.AllowedComponentTags)
	assert.Equal(t, "dep", cfg.Effects.DependencyBase)
	assert.Equal(t, []string{"loading"}, cfg.Variants)
	assert.False(t, cfg.Cache.Enabled)
}

func TestCompileRejectsUnknownField(t *testing.T) {
	_, err := Compile([]byte(`runtime: bogus: 1`), "wisp.cue")
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "bogus")
}

func TestCompileRejectsBadDependencyBase(t *testing.T) {
	_, err := Compile([]byte(`effects: dependencyBase: "1r"`), "wisp.cue")
	require.Error(t, err)

	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestCompileRejectsSyntaxError(t *testing.T) {
	_, err := Compile([]byte(`runtime: {`), "wisp.cue")
	require.Error(t, err)

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
	assert.Contains(t, ce.Error(), "wisp.cue:")
}

func TestCompileRejectsEqualSentinels(t *testing.T) {
	_, err := Compile([]byte(`runtime: { on: "x", off: "x" }`), "wisp.cue")

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "runtime.off", ce.Field)
}

func TestCompileRejectsBadGlob(t *testing.T) {
	_, err := Compile([]byte(`markup: allowedComponentTags: ["["]`), "wisp.cue")

	var ce *ConfigError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "markup.allowedComponentTags", ce.Field)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(`docs: baseURL: "https://example.test"`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test", cfg.Docs.BaseURL)

	_, err = Load(filepath.Join(dir, "missing.cue"))
	assert.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDigest(t *testing.T) {
	a := Default()
	b := Default()
	assert.Equal(t, a.Digest(), b.Digest())
	assert.Len(t, a.Digest(), 64)

	b.Runtime.Module = "other"
	assert.NotEqual(t, a.Digest(), b.Digest())
}
