package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wisp/internal/testutil"
)

func TestFindSources(t *testing.T) {
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{
		"b.jsx":                 "",
		"a.js":                  "",
		"lib/c.tsx":             "",
		"lib/d.mjs":             "",
		"lib/e.ts":              "",
		"notes.md":              "",
		"node_modules/x/y.js":   "",
		".git/hooks/pre.js":     "",
		".cache/z.js":           "",
		"build/.wisp/cached.js": "",
	})

	files, err := FindSources([]string{dir}, filepath.Join(dir, "build"))
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, filepath.ToSlash(f.Rel))
	}
	assert.Equal(t, []string{"a.js", "b.jsx", "lib/c.tsx", "lib/d.mjs", "lib/e.ts"}, rels)
}

func TestFindSourcesExplicitFiles(t *testing.T) {
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{
		"src/Counter.jsx": "",
		"src/widget.txt":  "",
	})
	counter := filepath.Join(dir, "src", "Counter.jsx")

	// Named files are taken regardless of extension and deduplicated.
	files, err := FindSources([]string{
		filepath.Join(dir, "src", "widget.txt"),
		counter,
		filepath.Join(dir, "src"),
	}, "")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, counter, files[0].Path)
	assert.Equal(t, "Counter.jsx", files[0].Rel)
	assert.Equal(t, "widget.txt", files[1].Rel)
}

func TestFindSourcesErrors(t *testing.T) {
	empty := testutil.WriteFiles(t, t.TempDir(), map[string]string{"README.md": ""})

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"missing", []string{filepath.Join(empty, "missing")}, ErrCodeNotFound},
		{"no sources", []string{empty}, ErrCodeNoFiles},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindSources(tt.args, "")
			require.Error(t, err)

			var loadErr *LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.code, loadErr.Code)

			code, _, _ := describeLoadError(err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestFindSourcesSkipsCacheDir(t *testing.T) {
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{
		"Counter.jsx":       "",
		"cache/Counter.jsx": "",
	})

	files, err := FindSources([]string{dir}, filepath.Join(dir, "cache"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "Counter.jsx", files[0].Rel)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, path, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, ".wisp", cfg.Cache.Dir)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := testutil.WriteFiles(t, t.TempDir(), map[string]string{"wisp.cue": "runtime: {"})

	_, _, err := LoadConfig(filepath.Join(dir, "wisp.cue"))
	require.Error(t, err)
	code, message, cause := describeLoadError(err)
	assert.Equal(t, ErrCodeConfigInvalid, code)
	assert.Equal(t, "invalid configuration", message)
	assert.Error(t, cause)
}
