package processor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"openb-topology/discovery"
	"openb-topology/document"
	"openb-topology/k8s"
	"openb-topology/topology"
)

const nodeList = `apiVersion: v1
kind: Node
metadata:
  name: openb-node-0227
---
apiVersion: v1
kind: Node
metadata:
  name: openb-node-0228
  labels:
    topology.kubernetes.io/rack: rack-7
---
apiVersion: v1
kind: Node
metadata:
  name: openb-node-0229
`

const podList = `apiVersion: v1
kind: Pod
metadata:
  name: openb-pod-0017
spec:
  containers:
    - name: main
---
apiVersion: v1
kind: Pod
metadata:
  name: openb-pod-0018
---
apiVersion: v1
kind: ConfigMap
metadata:
  name: untouched
data:
  mode: keep
`

type record struct {
	Kind     string `yaml:"kind"`
	Metadata struct {
		Name   string            `yaml:"name"`
		Labels map[string]string `yaml:"labels"`
	} `yaml:"metadata"`
	Spec struct {
		TopologySpreadConstraints []struct {
			MaxSkew           int            `yaml:"maxSkew"`
			TopologyKey       string         `yaml:"topologyKey"`
			WhenUnsatisfiable string         `yaml:"whenUnsatisfiable"`
			LabelSelector     map[string]any `yaml:"labelSelector"`
		} `yaml:"topologySpreadConstraints"`
	} `yaml:"spec"`
	Data map[string]string `yaml:"data"`
}

func writeDataset(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func load(t *testing.T, path string) []record {
	t.Helper()
	docs, err := document.Load(path)
	require.NoError(t, err)
	out := make([]record, len(docs))
	for i, doc := range docs {
		require.NoError(t, doc.Decode(&out[i]))
	}
	return out
}

func request(dir string, racks, skew int) Request {
	return Request{Dir: dir, RackModulus: racks, MaxSkew: skew, Patterns: discovery.DefaultPatterns()}
}

func TestProcessDirectory(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"openb_node_list_v1.yaml": nodeList,
		"openb_pod_list_v1.yaml":  podList,
	})

	res, err := ProcessDirectory(context.Background(), request(dir, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, filepath.Join(dir, "openb_node_list_v1_with_rack-quantity2.yaml"), res.NodeOutput)
	assert.Equal(t, filepath.Join(dir, "openb_pod_list_v1_with_skew-value3.yaml"), res.PodOutput)
	assert.Equal(t, 3, res.Nodes)
	assert.Equal(t, 3, res.Pods)
	assert.Equal(t, 2, res.Constrained)
	assert.Equal(t, map[string]int{"rack-0": 2, "rack-1": 1}, res.Racks)

	nodes := load(t, res.NodeOutput)
	require.Len(t, nodes, 3)
	for i, want := range []string{"rack-0", "rack-1", "rack-0"} {
		assert.Equal(t, want, nodes[i].Metadata.Labels[k8s.RackLabelKey])
	}
	assert.Equal(t, []string{"openb-node-0227", "openb-node-0228", "openb-node-0229"},
		[]string{nodes[0].Metadata.Name, nodes[1].Metadata.Name, nodes[2].Metadata.Name})

	pods := load(t, res.PodOutput)
	require.Len(t, pods, 3)
	for _, pod := range pods[:2] {
		require.Len(t, pod.Spec.TopologySpreadConstraints, 1)
		c := pod.Spec.TopologySpreadConstraints[0]
		assert.Equal(t, 3, c.MaxSkew)
		assert.Equal(t, k8s.RackLabelKey, c.TopologyKey)
		assert.Equal(t, "ScheduleAnyway", c.WhenUnsatisfiable)
		assert.Empty(t, c.LabelSelector)
	}
	assert.Equal(t, "ConfigMap", pods[2].Kind)
	assert.Empty(t, pods[2].Spec.TopologySpreadConstraints)
	assert.Equal(t, map[string]string{"mode": "keep"}, pods[2].Data)

	// inputs untouched
	raw, err := os.ReadFile(filepath.Join(dir, "openb_node_list_v1.yaml"))
	require.NoError(t, err)
	assert.Equal(t, nodeList, string(raw))
}

func TestProcessDirectoryParametersCoexist(t *testing.T) {
	dir := writeDataset(t, map[string]string{
		"openb_node_list_v1.yaml": nodeList,
		"openb_pod_list_v1.yaml":  podList,
	})
	ctx := context.Background()

	first, err := ProcessDirectory(ctx, request(dir, 2, 1))
	require.NoError(t, err)
	firstBody, err := os.ReadFile(first.NodeOutput)
	require.NoError(t, err)

	// a rerun discovers the original inputs, not the previous outputs
	second, err := ProcessDirectory(ctx, request(dir, 5, 4))
	require.NoError(t, err)
	assert.Equal(t, first.Inputs, second.Inputs)
	assert.NotEqual(t, first.NodeOutput, second.NodeOutput)
	assert.NotEqual(t, first.PodOutput, second.PodOutput)

	// identical parameters overwrite with identical content
	again, err := ProcessDirectory(ctx, request(dir, 2, 1))
	require.NoError(t, err)
	againBody, err := os.ReadFile(again.NodeOutput)
	require.NoError(t, err)
	assert.Equal(t, string(firstBody), string(againBody))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 6)
}

func TestProcessDirectoryMissingPodList(t *testing.T) {
	dir := writeDataset(t, map[string]string{"openb_node_list_v1.yaml": nodeList})

	res, err := ProcessDirectory(context.Background(), request(dir, 2, 3))
	require.ErrorIs(t, err, discovery.ErrMissingDocument)
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, res.NodeOutput)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestProcessDirectoryFailures(t *testing.T) {
	ctx := context.Background()

	_, err := ProcessDirectory(ctx, request(filepath.Join(t.TempDir(), "absent"), 2, 3))
	require.ErrorIs(t, err, discovery.ErrInvalidDirectory)

	_, err = ProcessDirectory(ctx, request(t.TempDir(), 0, 3))
	require.ErrorIs(t, err, topology.ErrInvalidParameter)

	// maxSkew is an int32 field, larger values are refused before any write
	dir := writeDataset(t, map[string]string{
		"openb_node_list_v1.yaml": nodeList,
		"openb_pod_list_v1.yaml":  podList,
	})
	tooLarge := int64(k8s.MaxSkewLimit) + 1
	res, err := ProcessDirectory(ctx, request(dir, 2, int(tooLarge)))
	require.ErrorIs(t, err, topology.ErrInvalidParameter)
	assert.Equal(t, StateFailed, res.State)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	dir = writeDataset(t, map[string]string{
		"openb_node_list_v1.yaml": nodeList,
		"openb_pod_list_v1.yaml":  "kind: Pod\nspec: [oops\n",
	})
	res, err = ProcessDirectory(ctx, request(dir, 2, 3))
	require.ErrorIs(t, err, document.ErrMalformedDocument)
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, res.NodeOutput)
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	good := writeDataset(t, map[string]string{
		"openb_node_list_a.yaml": nodeList,
		"openb_pod_list_a.yaml":  podList,
	})
	missing := writeDataset(t, map[string]string{"openb_pod_list_a.yaml": podList})
	alsoGood := writeDataset(t, map[string]string{
		"openb_node_list_b.yaml": nodeList,
		"openb_pod_list_b.yaml":  podList,
	})
	reqs := []Request{request(good, 3, 1), request(missing, 3, 1), request(alsoGood, 3, 1)}

	results, err := ProcessBatch(context.Background(), reqs, false)
	require.ErrorIs(t, err, discovery.ErrMissingDocument)
	require.Len(t, results, 3)
	assert.Equal(t, StateDone, results[0].State)
	assert.Equal(t, StateFailed, results[1].State)
	assert.Equal(t, StateDone, results[2].State)

	results, err = ProcessBatch(context.Background(), reqs, true)
	require.ErrorIs(t, err, discovery.ErrMissingDocument)
	assert.Len(t, results, 2)
}

func TestProcessBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := ProcessBatch(ctx, []Request{request(t.TempDir(), 1, 1)}, false)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
}
