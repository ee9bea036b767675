package k8s

import (
	"fmt"
	"math"
	"strings"

	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/validation"
)

// RackLabelKey is written on nodes by rack assignment and referenced by the
// spread constraint injected into pods. Both sides must use this key.
const RackLabelKey = "topology.kubernetes.io/rack"

// MaxSkewLimit is the largest skew the int32 maxSkew field can hold.
const MaxSkewLimit = math.MaxInt32

const (
	KindNode = "Node"
	KindPod  = "Pod"
)

// RackName returns the rack label value for the node at position index.
func RackName(index, rackModulus int) string {
	return fmt.Sprintf("rack-%d", index%rackModulus)
}

// NewSpreadConstraint builds the constraint attached to every pod: spread
// over racks with the given skew, best effort, no selector. maxSkew must be
// within [1, MaxSkewLimit].
func NewSpreadConstraint(maxSkew int) v1.TopologySpreadConstraint {
	return v1.TopologySpreadConstraint{
		MaxSkew:           int32(maxSkew),
		TopologyKey:       RackLabelKey,
		WhenUnsatisfiable: v1.ScheduleAnyway,
		LabelSelector:     &metav1.LabelSelector{},
	}
}

// ValidateRackLabel reports whether key/value form a legal node label.
func ValidateRackLabel(key, value string) error {
	var errs []string
	errs = append(errs, validation.IsQualifiedName(key)...)
	errs = append(errs, validation.IsValidLabelValue(value)...)
	if len(errs) > 0 {
		return fmt.Errorf("invalid label %s=%s: %s", key, value, strings.Join(errs, "; "))
	}
	return nil
}
