// Package processor runs the per-directory pipeline: discover the node and
// pod lists, load them, annotate them with rack topology and write the
// parameter-named outputs.
package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"openb-topology/discovery"
	"openb-topology/document"
	"openb-topology/k8s"
	"openb-topology/topology"
)

type State string

const (
	StateScanning   State = "Scanning"
	StateLoading    State = "Loading"
	StateAnnotating State = "Annotating"
	StateWriting    State = "Writing"
	StateDone       State = "Done"
	StateFailed     State = "Failed"
)

// Request describes one directory to process. It is passed by value and
// never modified by the processor.
type Request struct {
	Dir         string
	RackModulus int
	MaxSkew     int
	Patterns    discovery.Patterns
}

func (r Request) Validate() error {
	if r.Dir == "" {
		return fmt.Errorf("%w: directory is required", topology.ErrInvalidParameter)
	}
	if r.RackModulus < 1 {
		return fmt.Errorf("%w: rack modulus must be positive, got %d", topology.ErrInvalidParameter, r.RackModulus)
	}
	if r.MaxSkew < 1 || r.MaxSkew > k8s.MaxSkewLimit {
		return fmt.Errorf("%w: max skew must be in [1, %d], got %d", topology.ErrInvalidParameter, k8s.MaxSkewLimit, r.MaxSkew)
	}
	if r.Patterns.Node == "" || r.Patterns.Pod == "" {
		return fmt.Errorf("%w: node and pod patterns are required", topology.ErrInvalidParameter)
	}
	return nil
}

// Result reports how far a directory got and what it produced.
type Result struct {
	Dir        string
	State      State
	Inputs     discovery.Pair
	NodeOutput string
	PodOutput  string

	Nodes       int
	Pods        int // all records of the pod list, including non-Pod kinds
	Constrained int
	Racks       map[string]int
}

func (r *Result) enter(s State) {
	logrus.Debugf("[STATE] %s: %s -> %s", r.Dir, r.State, s)
	r.State = s
}

// ProcessDirectory runs the pipeline for req.Dir. On failure the returned
// Result is in StateFailed and the error wraps one of
// discovery.ErrInvalidDirectory, discovery.ErrMissingDocument,
// document.ErrMalformedDocument, document.ErrWriteFailure or
// topology.ErrInvalidParameter. No output is written unless both documents
// were found and loaded.
func ProcessDirectory(ctx context.Context, req Request) (*Result, error) {
	res := &Result{Dir: req.Dir, State: StateScanning}
	fail := func(err error) (*Result, error) {
		res.enter(StateFailed)
		return res, err
	}

	if err := req.Validate(); err != nil {
		return fail(err)
	}

	pair, err := discovery.Discover(req.Dir, req.Patterns)
	res.Inputs = pair
	if err != nil {
		return fail(err)
	}
	logrus.Infof("[FOUND] Node YAML: %s", pair.NodeFile)
	logrus.Infof("[FOUND] Pod YAML:  %s", pair.PodFile)

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	res.enter(StateLoading)
	nodes, err := document.Load(pair.NodeFile)
	if err != nil {
		return fail(err)
	}
	pods, err := document.Load(pair.PodFile)
	if err != nil {
		return fail(err)
	}
	res.Nodes, res.Pods = len(nodes), len(pods)

	res.enter(StateAnnotating)
	if err := topology.AssignRacks(nodes, req.RackModulus); err != nil {
		return fail(fmt.Errorf("%s: %w", pair.NodeFile, err))
	}
	res.Racks = rackDistribution(nodes, req.RackModulus)
	res.Constrained, err = topology.InjectSpreadConstraints(pods, req.MaxSkew)
	if err != nil {
		return fail(fmt.Errorf("%s: %w", pair.PodFile, err))
	}

	res.enter(StateWriting)
	res.NodeOutput = document.OutputPath(pair.NodeFile, document.NodeSuffix, req.RackModulus)
	if err := document.Dump(res.NodeOutput, nodes); err != nil {
		return fail(err)
	}
	logrus.Infof("[WRITE] Modified Node YAML -> %s (%d nodes over %d racks)", res.NodeOutput, res.Nodes, len(res.Racks))

	res.PodOutput = document.OutputPath(pair.PodFile, document.PodSuffix, req.MaxSkew)
	if err := document.Dump(res.PodOutput, pods); err != nil {
		return fail(err)
	}
	logrus.Infof("[WRITE] Modified Pod YAML -> %s (%d of %d records constrained)", res.PodOutput, res.Constrained, res.Pods)

	res.enter(StateDone)
	return res, nil
}

// ProcessBatch processes each request in order. A failing directory is
// logged and skipped unless strict is set, in which case the batch stops at
// the first failure. The returned error joins every directory failure.
func ProcessBatch(ctx context.Context, reqs []Request, strict bool) ([]*Result, error) {
	results := make([]*Result, 0, len(reqs))
	var errs []error
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := ProcessDirectory(ctx, req)
		results = append(results, res)
		if err == nil {
			continue
		}
		logrus.Errorf("[ERROR] %s: %v", req.Dir, err)
		errs = append(errs, fmt.Errorf("%s: %w", req.Dir, err))
		if strict {
			break
		}
	}
	return results, errors.Join(errs...)
}

func rackDistribution(nodes []*yaml.Node, rackModulus int) map[string]int {
	racks := make(map[string]int)
	for i := range nodes {
		racks[k8s.RackName(i, rackModulus)]++
	}
	return racks
}
