package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/roach88/wisp/internal/config"
)

// sourceExtensions are the file extensions compiled when a directory is
// given.
var sourceExtensions = map[string]bool{
	".js":  true,
	".jsx": true,
	".mjs": true,
	".ts":  true,
	".tsx": true,
}

// skippedDirs are never descended into when scanning a directory.
var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
}

// SourceFile is one file selected for compilation.
type SourceFile struct {
	// Path is the file as found on disk.
	Path string
	// Rel is the path relative to the argument it was found under, used to
	// lay out the output directory.
	Rel string
}

// LoadError represents an error that occurred while locating inputs.
type LoadError struct {
	Code    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// FindSources expands file and directory arguments into the source files
// to compile, sorted and without duplicates. Files named explicitly are
// taken regardless of extension. Hidden directories, node_modules and the
// cache directory are skipped.
func FindSources(args []string, cacheDir string) ([]SourceFile, error) {
	seen := map[string]bool{}
	var files []SourceFile
	add := func(path, rel string) {
		clean := filepath.Clean(path)
		if seen[clean] {
			return
		}
		seen[clean] = true
		files = append(files, SourceFile{Path: clean, Rel: filepath.Clean(rel)})
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", arg), Err: err}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing %s", arg), Err: err}
		}
		if !info.IsDir() {
			add(arg, filepath.Base(arg))
			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path == arg {
					return nil
				}
				name := d.Name()
				if skippedDirs[name] || name[0] == '.' || (cacheDir != "" && sameDir(path, cacheDir)) {
					return filepath.SkipDir
				}
				return nil
			}
			if !sourceExtensions[filepath.Ext(path)] {
				return nil
			}
			rel, err := filepath.Rel(arg, path)
			if err != nil {
				return err
			}
			add(path, rel)
			return nil
		})
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning %s", arg), Err: err}
		}
	}

	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no source files found in %v", args)}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}

// LoadConfig loads the configuration named by path. With an empty path a
// wisp.cue in the working directory is used when present, and the defaults
// otherwise.
func LoadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		if _, err := os.Stat(config.FileName); err == nil {
			path = config.FileName
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, &LoadError{Code: ErrCodeConfigInvalid, Message: "invalid configuration", Err: err}
	}
	return cfg, path, nil
}

// describeLoadError returns the CLI error code and message carried by err
// and the underlying cause.
func describeLoadError(err error) (code, message string, cause error) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message, loadErr.Err
	}
	return ErrCodeGeneric, err.Error(), nil
}
