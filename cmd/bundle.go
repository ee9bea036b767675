package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"openb-topology/bundle"
	"openb-topology/processor"
)

var bundleOut string

var BundleCmd = &cobra.Command{
	Use:   "bundle DIR",
	Short: "Process a dataset directory and stage it into a results directory",
	Long: `Process DIR like "process" does, then copy every YAML file of DIR (simulator
configs, original and annotated lists) into the results directory, by default
DIR_topology_configuration next to DIR.`,
	Args: cobra.ExactArgs(1),
	RunE: runBundle,
}

func init() {
	addTopologyFlags(BundleCmd)
	BundleCmd.Flags().StringVar(&bundleOut, "out", "", "Results directory (default <DIR><bundleSuffix>)")
}

func runBundle(cmd *cobra.Command, args []string) error {
	src := args[0]
	racks, skew := topologyParams(cmd)
	req := processor.Request{Dir: src, RackModulus: racks, MaxSkew: skew, Patterns: cfg.Patterns}
	if _, err := processor.ProcessDirectory(cmd.Context(), req); err != nil {
		return err
	}

	dst := bundleOut
	if dst == "" {
		dst = bundle.Dir(src, cfg.BundleSuffix)
	}
	copied, err := bundle.Stage(src, dst)
	if err != nil {
		return err
	}
	logrus.Infof("[BUNDLE] Staged %d files into %s", len(copied), dst)
	return nil
}
