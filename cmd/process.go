package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"openb-topology/processor"
)

var strict bool

// ProcessCmd annotates one or more dataset directories
var ProcessCmd = &cobra.Command{
	Use:   "process DIR...",
	Short: "Add rack labels to nodes and spread constraints to pods",
	Long: `Process openb dataset directories. Each directory must contain one
openb_node_list_*.yaml and one openb_pod_list_*.yaml.

A directory that fails (not a directory, missing lists, malformed YAML,
unwritable output) is reported and the remaining directories are still
processed, unless --strict is set. The exit status is non-zero if any
directory failed.

Example:
  openb-topology process data/openb_pod_list_default --rack-mod 4 --max-skew 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	addTopologyFlags(ProcessCmd)
	ProcessCmd.Flags().BoolVar(&strict, "strict", false, "Stop at the first failing directory")
}

func runProcess(cmd *cobra.Command, args []string) error {
	racks, skew := topologyParams(cmd)
	reqs := make([]processor.Request, 0, len(args))
	for _, dir := range args {
		reqs = append(reqs, processor.Request{
			Dir:         dir,
			RackModulus: racks,
			MaxSkew:     skew,
			Patterns:    cfg.Patterns,
		})
	}

	results, err := processor.ProcessBatch(cmd.Context(), reqs, strict || cfg.Strict)
	done, failed := 0, 0
	for _, res := range results {
		switch res.State {
		case processor.StateDone:
			done++
		case processor.StateFailed:
			failed++
		}
	}
	logrus.Infof("Processed %d/%d directories (racks=%d, maxSkew=%d)", done, len(reqs), racks, skew)
	if skipped := len(reqs) - len(results); skipped > 0 {
		logrus.Warnf("Skipped %d directories", skipped)
	}
	if err != nil {
		return fmt.Errorf("%d of %d directories failed: %w", failed, len(reqs), err)
	}
	return nil
}
