package generate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/boyter/gocodewalker"

	"github.com/rlch/dbscaf/language/golang"
)

// writeFile writes content to path atomically: a temp file in the same
// directory followed by a rename. Unchanged files are left untouched so
// mtimes (and file watchers) stay quiet. Returns true when bytes moved.
func writeFile(path string, content []byte) (bool, error) {
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, content) {
		return false, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return false, fmt.Errorf("stage %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return false, fmt.Errorf("stage %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return false, fmt.Errorf("stage %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return false, fmt.Errorf("replace %s: %w", path, err)
	}

	return true, nil
}

// pruneStale removes previously generated files under root that this run no
// longer produces. Only files carrying the generation marker are candidates;
// hand-written files are never touched. Returns the removed paths.
func pruneStale(root string, keep map[string]bool) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}

	fileListQueue := make(chan *gocodewalker.File, 100)

	fileWalker := gocodewalker.NewFileWalker(root, fileListQueue)
	fileWalker.AllowListExtensions = []string{"go", "yaml"}

	var walkErr error
	fileWalker.SetErrorHandler(func(e error) bool {
		walkErr = e

		return true
	})

	var pruned []string
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for f := range fileListQueue {
			rel, err := filepath.Rel(root, f.Location)
			if err != nil || keep[rel] {
				continue
			}
			if !hasMarker(f.Location) {
				continue
			}
			if err := os.Remove(f.Location); err == nil {
				pruned = append(pruned, rel)
			}
		}
	}()

	if err := fileWalker.Start(); err != nil {
		return nil, err
	}
	wg.Wait()
	if walkErr != nil {
		return nil, walkErr
	}
	sort.Strings(pruned)

	return pruned, nil
}

// yamlMarker is the marker line used atop non-Go artifacts.
var yamlMarker = "# " + strings.TrimPrefix(golang.Marker, "// ")

// hasMarker reports whether the file starts with the generation marker.
func hasMarker(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	buf := make([]byte, len(golang.Marker)+2)
	n, _ := f.Read(buf)
	head := string(buf[:n])

	// YAML artifacts carry the marker as a comment.
	return strings.HasPrefix(head, golang.Marker) || strings.HasPrefix(head, yamlMarker)
}
