package walker

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrStop may be returned by a VisitFunc to end the walk early. Walk
// reports it as a clean stop, not as a failure.
var ErrStop = errors.New("walk stopped")

type FileInfo struct {
	Path string
	Size int64
}

// VisitFunc is called once per regular file, in walk order.
type VisitFunc func(FileInfo) error

type WalkResult struct {
	Visited int
	Stopped bool
	Errors  []error
}

// Walk traverses rootPath recursively and calls visit for every regular file
// that is not excluded. Unreadable entries below the root are recorded in the
// result and skipped; an unreadable root fails the walk.
func Walk(rootPath string, exclusions []string, visit VisitFunc) (*WalkResult, error) {
	result := &WalkResult{
		Errors: make([]error, 0),
	}

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// If error is on the root path, return it (don't continue walking)
			if path == rootPath {
				return err
			}
			// Skip permission errors and continue walking
			result.Errors = append(result.Errors, err)
			return nil
		}

		// Get relative path for matching
		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			result.Errors = append(result.Errors, err)
			return nil
		}

		if relPath != "." && shouldExclude(relPath, d, exclusions) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Sockets, devices and symlinks are not content we can compare
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			result.Errors = append(result.Errors, err)
			return nil
		}

		if err := visit(FileInfo{
			Path: path,
			Size: info.Size(),
		}); err != nil {
			if errors.Is(err, ErrStop) {
				result.Stopped = true
				return filepath.SkipAll
			}
			return err
		}
		result.Visited++

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return result, nil
}

func shouldExclude(relPath string, d fs.DirEntry, exclusions []string) bool {
	for _, pattern := range exclusions {
		// Handle directory exclusions (patterns ending with /)
		if strings.HasSuffix(pattern, "/") {
			dirPattern := strings.TrimSuffix(pattern, "/")
			// A file's own name is not a directory component
			parts := strings.Split(relPath, string(filepath.Separator))
			if !d.IsDir() {
				parts = parts[:len(parts)-1]
			}
			for _, part := range parts {
				if matched, _ := filepath.Match(dirPattern, part); matched {
					return true
				}
			}
		} else {
			matched, err := filepath.Match(pattern, filepath.Base(relPath))
			if err == nil && matched {
				return true
			}
			// Patterns with a separator match against the full relative path
			if strings.Contains(pattern, "/") {
				matched, err := filepath.Match(pattern, filepath.ToSlash(relPath))
				if err == nil && matched {
					return true
				}
			}
		}
	}
	return false
}
