package cmd

import (
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"openb-topology/verify"
)

var VerifyCmd = &cobra.Command{
	Use:   "verify DIR",
	Short: "Check the annotated outputs produced for the given parameters",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		racks, skew := topologyParams(cmd)
		report, err := verify.Directory(args[0], cfg.Patterns, racks, skew)
		if err != nil {
			return err
		}
		logrus.Infof("[VERIFY] %s: %d nodes on %d racks", report.NodeFile, report.Nodes, len(report.Racks))
		names := make([]string, 0, len(report.Racks))
		for name := range report.Racks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			logrus.Debugf("[VERIFY]   %s: %d", name, report.Racks[name])
		}
		logrus.Infof("[VERIFY] %s: %d of %d records constrained", report.PodFile, report.Constrained, report.Pods)
		return nil
	},
}

func init() {
	addTopologyFlags(VerifyCmd)
}
