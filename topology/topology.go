// Package topology annotates simulator datasets with rack topology: nodes get
// a rack label assigned round-robin by position, pods get a spread constraint
// over that label.
package topology

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	v1 "k8s.io/api/core/v1"

	"openb-topology/k8s"
)

var ErrInvalidParameter = errors.New("invalid parameter")

// AssignRacks labels the node at position i with rack-<i mod rackModulus>.
// Existing labels are ignored and a previous rack label is overwritten.
// Records are not filtered by kind: the stream is expected to hold nodes only.
func AssignRacks(docs []*yaml.Node, rackModulus int) error {
	if rackModulus < 1 {
		return fmt.Errorf("%w: rack modulus must be positive, got %d", ErrInvalidParameter, rackModulus)
	}
	for i, doc := range docs {
		root, err := rootMapping(doc)
		if err != nil {
			return fmt.Errorf("node record %d: %w", i, err)
		}
		if kind := kindOf(root); kind != k8s.KindNode {
			logrus.Warnf("[RACK] record %d has kind %q, labelling it as a node anyway", i, kind)
		}
		metadata, err := ensureMapping(root, "metadata")
		if err != nil {
			return fmt.Errorf("node record %d: %w", i, err)
		}
		labels, err := ensureMapping(metadata, "labels")
		if err != nil {
			return fmt.Errorf("node record %d: %w", i, err)
		}
		set(labels, k8s.RackLabelKey, scalar("!!str", k8s.RackName(i, rackModulus)))
	}
	return nil
}

// InjectSpreadConstraints replaces spec.topologySpreadConstraints of every
// Pod record with a single rack spread constraint. Other kinds pass through
// untouched. It returns the number of records changed.
func InjectSpreadConstraints(docs []*yaml.Node, maxSkew int) (int, error) {
	if maxSkew < 1 || maxSkew > k8s.MaxSkewLimit {
		return 0, fmt.Errorf("%w: max skew must be in [1, %d], got %d", ErrInvalidParameter, k8s.MaxSkewLimit, maxSkew)
	}
	constraint := k8s.NewSpreadConstraint(maxSkew)
	changed := 0
	for i, doc := range docs {
		root, err := rootMapping(doc)
		if err != nil {
			return changed, fmt.Errorf("pod record %d: %w", i, err)
		}
		if kindOf(root) != k8s.KindPod {
			continue
		}
		spec, err := ensureMapping(root, "spec")
		if err != nil {
			return changed, fmt.Errorf("pod record %d: %w", i, err)
		}
		set(spec, "topologySpreadConstraints", &yaml.Node{
			Kind:    yaml.SequenceNode,
			Tag:     "!!seq",
			Content: []*yaml.Node{constraintNode(constraint)},
		})
		changed++
	}
	return changed, nil
}

// constraintNode renders c with keys in the order the simulator files use.
// Only selector-less constraints are produced, so the selector is always {}.
func constraintNode(c v1.TopologySpreadConstraint) *yaml.Node {
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
		Content: []*yaml.Node{
			scalar("!!str", "maxSkew"), scalar("!!int", strconv.Itoa(int(c.MaxSkew))),
			scalar("!!str", "topologyKey"), scalar("!!str", c.TopologyKey),
			scalar("!!str", "whenUnsatisfiable"), scalar("!!str", string(c.WhenUnsatisfiable)),
			scalar("!!str", "labelSelector"), {Kind: yaml.MappingNode, Tag: "!!map", Style: yaml.FlowStyle},
		},
	}
}
