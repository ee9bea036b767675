package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"openb-topology/discovery"
)

var ListCmd = &cobra.Command{
	Use:   "list [ROOT]",
	Short: "List dataset directories under the data root",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cfg.DataRoot
		if len(args) == 1 {
			root = args[0]
		}
		names, err := discovery.ListDatasets(root, cfg.DatasetPattern)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}
