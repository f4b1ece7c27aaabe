package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wisp/internal/engine"
)

var _ engine.IDGenerator = (*SequentialIDs)(nil)

func TestSequentialIDs(t *testing.T) {
	ids := NewSequentialIDs("scenario")
	assert.Equal(t, "scenario-1", ids.Generate())
	assert.Equal(t, "scenario-2", ids.Generate())

	ids.Reset()
	assert.Equal(t, "scenario-1", ids.Generate())

	assert.Equal(t, "run-1", NewSequentialIDs("").Generate())
}

func TestSequentialIDs_ConcurrentUnique(t *testing.T) {
	ids := NewSequentialIDs("")
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := ids.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 400)
}

func TestWriteFiles(t *testing.T) {
	dir := WriteFiles(t, t.TempDir(), map[string]string{
		"a.jsx":        "one",
		"nested/b.jsx": "two",
	})

	data, err := os.ReadFile(filepath.Join(dir, "nested", "b.jsx"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}
