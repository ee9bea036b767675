// Package document reads and writes multi-document YAML streams as ordered
// yaml.Node trees so that record order, key order and comments survive a
// load/dump cycle.
package document

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	NodeSuffix = "_with_rack-quantity"
	PodSuffix  = "_with_skew-value"
)

var (
	ErrMalformedDocument = errors.New("malformed document")
	ErrWriteFailure      = errors.New("write failure")
)

// Load reads every document of the YAML stream at path. Empty documents
// (a bare separator with no content) are dropped.
func Load(path string) ([]*yaml.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	docs, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return docs, nil
}

// Decode reads all documents from r.
func Decode(r io.Reader) ([]*yaml.Node, error) {
	dec := yaml.NewDecoder(r)
	var docs []*yaml.Node
	for {
		doc := &yaml.Node{}
		err := dec.Decode(doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %v", ErrMalformedDocument, len(docs), err)
		}
		if isEmpty(doc) {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Dump writes docs to path as one stream, replacing any existing file.
func Dump(path string, docs []*yaml.Node) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", ErrWriteFailure, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %v", ErrWriteFailure, path, cerr)
		}
	}()

	if err := Encode(f, docs); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteFailure, path, err)
	}
	return nil
}

// Encode writes docs to w separated by "---" with two-space indentation.
func Encode(w io.Writer, docs []*yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	for i, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode document %d: %w", i, err)
		}
	}
	return enc.Close()
}

// OutputPath derives the output file name for input by inserting
// suffix and value between the stem and the extension:
// dir/openb_node_list_v1.yaml -> dir/openb_node_list_v1_with_rack-quantity2.yaml
func OutputPath(input, suffix string, value int) string {
	dir, base := filepath.Split(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+suffix+strconv.Itoa(value)+ext)
}

// IsOutput reports whether name looks like a file produced by OutputPath
// with one of the known suffixes.
func IsOutput(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, suffix := range []string{NodeSuffix, PodSuffix} {
		i := strings.LastIndex(stem, suffix)
		if i < 0 {
			continue
		}
		if _, err := strconv.Atoi(stem[i+len(suffix):]); err == nil {
			return true
		}
	}
	return false
}

func isEmpty(doc *yaml.Node) bool {
	if doc.Kind != yaml.DocumentNode {
		return false
	}
	if len(doc.Content) == 0 {
		return true
	}
	root := doc.Content[0]
	return root.Kind == yaml.ScalarNode && root.Tag == "!!null" && root.Value == "" &&
		root.HeadComment == "" && root.LineComment == "" && root.FootComment == ""
}
