// Package bundle stages a processed dataset into a results directory that the
// simulator can be pointed at: every YAML file of the source directory
// (simulator configs, original lists and annotated lists) is copied over.
package bundle

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

const DefaultSuffix = "_topology_configuration"

// Dir returns the results directory used for src: a sibling named
// <src><suffix>.
func Dir(src, suffix string) string {
	return filepath.Clean(src) + suffix
}

// Stage copies the *.yaml files of src into dst, creating dst when needed.
// File modes and modification times are preserved. It returns the copied
// destination paths in name order.
func Stage(src, dst string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(src, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dst, err)
	}

	var copied []string
	for _, from := range matches {
		info, err := os.Stat(from)
		if err != nil {
			return copied, err
		}
		if info.IsDir() {
			continue
		}
		to := filepath.Join(dst, filepath.Base(from))
		if err := copyFile(from, to, info); err != nil {
			return copied, err
		}
		copied = append(copied, to)
	}
	return copied, nil
}

func copyFile(from, to string, info os.FileInfo) (err error) {
	in, err := os.Open(from)
	if err != nil {
		return fmt.Errorf("open %s: %w", from, err)
	}
	defer in.Close()

	out, err := os.OpenFile(to, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", to, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", to, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s: %w", from, to, err)
	}
	return os.Chtimes(to, info.ModTime(), info.ModTime())
}
