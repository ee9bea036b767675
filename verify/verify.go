// Package verify re-reads annotated dataset files as typed Kubernetes objects
// and checks that the rack topology was applied consistently.
package verify

import (
	"errors"
	"fmt"

	yamlv3 "gopkg.in/yaml.v3"
	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	"openb-topology/discovery"
	"openb-topology/document"
	"openb-topology/k8s"
	"openb-topology/topology"
)

var ErrViolation = errors.New("topology violation")

type Report struct {
	NodeFile    string
	PodFile     string
	Nodes       int
	Racks       map[string]int
	Pods        int
	Constrained int
}

// Directory locates the outputs produced for the given parameters in dir and
// checks both of them.
func Directory(dir string, patterns discovery.Patterns, rackModulus, maxSkew int) (*Report, error) {
	pair, err := discovery.Discover(dir, patterns)
	if err != nil {
		return nil, err
	}
	report := &Report{
		NodeFile: document.OutputPath(pair.NodeFile, document.NodeSuffix, rackModulus),
		PodFile:  document.OutputPath(pair.PodFile, document.PodSuffix, maxSkew),
	}
	if report.Nodes, report.Racks, err = Nodes(report.NodeFile, rackModulus); err != nil {
		return report, err
	}
	if report.Pods, report.Constrained, err = Pods(report.PodFile, maxSkew); err != nil {
		return report, err
	}
	return report, nil
}

// Nodes checks that node i of the file carries rack-<i mod rackModulus> and
// returns the node count and rack distribution.
func Nodes(path string, rackModulus int) (int, map[string]int, error) {
	if rackModulus < 1 {
		return 0, nil, fmt.Errorf("%w: rack modulus must be positive, got %d", topology.ErrInvalidParameter, rackModulus)
	}
	docs, err := document.Load(path)
	if err != nil {
		return 0, nil, err
	}
	racks := make(map[string]int)
	for i, doc := range docs {
		var node v1.Node
		if err := decode(doc, &node); err != nil {
			return 0, nil, fmt.Errorf("%s: node %d: %w", path, i, err)
		}
		rack, ok := node.Labels[k8s.RackLabelKey]
		if !ok {
			return 0, nil, fmt.Errorf("%w: %s: node %d (%s) has no %s label", ErrViolation, path, i, node.Name, k8s.RackLabelKey)
		}
		if err := k8s.ValidateRackLabel(k8s.RackLabelKey, rack); err != nil {
			return 0, nil, fmt.Errorf("%w: %s: node %d: %v", ErrViolation, path, i, err)
		}
		if want := k8s.RackName(i, rackModulus); rack != want {
			return 0, nil, fmt.Errorf("%w: %s: node %d (%s) is on %s, expected %s", ErrViolation, path, i, node.Name, rack, want)
		}
		racks[rack]++
	}
	return len(docs), racks, nil
}

// Pods checks that every Pod of the file has exactly the rack spread
// constraint with maxSkew. It returns the record count and how many were
// Pods.
func Pods(path string, maxSkew int) (int, int, error) {
	if maxSkew < 1 || maxSkew > k8s.MaxSkewLimit {
		return 0, 0, fmt.Errorf("%w: max skew must be in [1, %d], got %d", topology.ErrInvalidParameter, k8s.MaxSkewLimit, maxSkew)
	}
	docs, err := document.Load(path)
	if err != nil {
		return 0, 0, err
	}
	want := k8s.NewSpreadConstraint(maxSkew)
	constrained := 0
	for i, doc := range docs {
		var meta metav1.TypeMeta
		if err := decode(doc, &meta); err != nil {
			return 0, 0, fmt.Errorf("%s: record %d: %w", path, i, err)
		}
		if meta.Kind != k8s.KindPod {
			continue
		}
		var pod v1.Pod
		if err := decode(doc, &pod); err != nil {
			return 0, 0, fmt.Errorf("%s: pod %d: %w", path, i, err)
		}
		if err := checkConstraints(pod.Spec.TopologySpreadConstraints, want); err != nil {
			return 0, 0, fmt.Errorf("%w: %s: pod %d (%s): %v", ErrViolation, path, i, pod.Name, err)
		}
		constrained++
	}
	return len(docs), constrained, nil
}

func checkConstraints(got []v1.TopologySpreadConstraint, want v1.TopologySpreadConstraint) error {
	if len(got) != 1 {
		return fmt.Errorf("expected 1 spread constraint, found %d", len(got))
	}
	c := got[0]
	switch {
	case c.MaxSkew != want.MaxSkew:
		return fmt.Errorf("maxSkew is %d, expected %d", c.MaxSkew, want.MaxSkew)
	case c.TopologyKey != want.TopologyKey:
		return fmt.Errorf("topologyKey is %q, expected %q", c.TopologyKey, want.TopologyKey)
	case c.WhenUnsatisfiable != want.WhenUnsatisfiable:
		return fmt.Errorf("whenUnsatisfiable is %q, expected %q", c.WhenUnsatisfiable, want.WhenUnsatisfiable)
	case c.LabelSelector == nil:
		return fmt.Errorf("labelSelector is missing")
	}
	sel, err := metav1.LabelSelectorAsSelector(c.LabelSelector)
	if err != nil {
		return fmt.Errorf("labelSelector: %v", err)
	}
	if !sel.Empty() {
		return fmt.Errorf("labelSelector %q is not empty", sel.String())
	}
	return nil
}

// decode converts a YAML document into a typed object using its JSON tags.
func decode(doc *yamlv3.Node, into any) error {
	raw, err := yamlv3.Marshal(doc)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, into)
}
