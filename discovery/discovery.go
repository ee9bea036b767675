// Package discovery locates the node-list and pod-list documents of an openb
// dataset directory.
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"openb-topology/document"
)

const (
	DefaultNodePattern    = "openb_node_list_*.yaml"
	DefaultPodPattern     = "openb_pod_list_*.yaml"
	DefaultDatasetPattern = "openb_pod_list_*"
)

var (
	ErrInvalidDirectory = errors.New("invalid directory")
	ErrMissingDocument  = errors.New("missing document")
)

// Patterns are glob patterns matched against file names (not paths).
type Patterns struct {
	Node string `yaml:"node"`
	Pod  string `yaml:"pod"`
}

func DefaultPatterns() Patterns {
	return Patterns{Node: DefaultNodePattern, Pod: DefaultPodPattern}
}

// Pair holds the discovered documents. Empty fields mean no match.
type Pair struct {
	NodeFile string
	PodFile  string
}

// Discover returns the first file in dir matching each pattern, in directory
// enumeration order. Files written by earlier runs are skipped. It fails with
// ErrInvalidDirectory when dir is not a directory and with
// ErrMissingDocument when either pattern has no match; the returned Pair
// still carries whatever was found.
func Discover(dir string, patterns Patterns) (Pair, error) {
	var pair Pair
	info, err := os.Stat(dir)
	if err != nil {
		return pair, fmt.Errorf("%w: %s: %v", ErrInvalidDirectory, dir, err)
	}
	if !info.IsDir() {
		return pair, fmt.Errorf("%w: %s is not a directory", ErrInvalidDirectory, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return pair, fmt.Errorf("%w: %s: %v", ErrInvalidDirectory, dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || document.IsOutput(e.Name()) {
			continue
		}
		if pair.NodeFile == "" && match(patterns.Node, e.Name()) {
			pair.NodeFile = filepath.Join(dir, e.Name())
		}
		if pair.PodFile == "" && match(patterns.Pod, e.Name()) {
			pair.PodFile = filepath.Join(dir, e.Name())
		}
	}

	if pair.NodeFile == "" || pair.PodFile == "" {
		return pair, fmt.Errorf("%w: could not find expected files in %s (expected %s and %s)",
			ErrMissingDocument, dir, patterns.Node, patterns.Pod)
	}
	return pair, nil
}

// ListDatasets returns the sorted names of sub-directories of root whose
// name matches pattern.
func ListDatasets(root, pattern string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDirectory, root, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && match(pattern, e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func match(pattern, name string) bool {
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}
