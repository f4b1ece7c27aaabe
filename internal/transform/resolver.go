package transform

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/wisp/internal/parser"
)

// FileTagResolver resolves relative imports against the file system. An
// imported tag is native when its module matches one of NativePaths, or
// when the sibling file it resolves to does not export a component.
type FileTagResolver struct {
	NativePaths []string
	Parser      *parser.Parser
}

var resolveExtensions = []string{"", ".js", ".jsx", ".mjs", ".ts", ".tsx", "/index.js", "/index.jsx", "/index.ts", "/index.tsx"}

func (r *FileTagResolver) IsNative(fromPath, source, name string) bool {
	for _, marker := range r.NativePaths {
		if marker != "" && strings.Contains(source, marker) {
			return true
		}
	}
	if !strings.HasPrefix(source, "./") && !strings.HasPrefix(source, "../") {
		return false
	}

	base := filepath.Join(filepath.Dir(fromPath), filepath.FromSlash(source))
	for _, ext := range resolveExtensions {
		candidate := base + filepath.FromSlash(ext)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		src, err := os.ReadFile(candidate)
		if err != nil {
			return false
		}
		p := r.Parser
		if p == nil {
			p = parser.New()
		}
		prog, err := p.Parse(context.Background(), candidate, src)
		if err != nil {
			return false
		}
		return Locate(prog) == nil
	}
	return false
}
