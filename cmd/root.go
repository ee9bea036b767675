package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"openb-topology/config"
)

var (
	configFile string
	logLevel   string
	rackMod    int
	maxSkew    int

	cfg config.Config
)

var RootCmd = &cobra.Command{
	Use:   "openb-topology",
	Short: "Add rack topology to openb scheduler simulator datasets",
	Long: `openb-topology rewrites the node and pod lists of an openb dataset directory:
nodes get a topology.kubernetes.io/rack label assigned round-robin, pods get a
topologySpreadConstraint over that label. Outputs are written next to the inputs
with the parameters encoded in their names; the inputs are never modified.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultFile, "Path to config file")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	RootCmd.AddCommand(ProcessCmd)
	RootCmd.AddCommand(BundleCmd)
	RootCmd.AddCommand(ListCmd)
	RootCmd.AddCommand(VerifyCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// the default file is optional, an explicit --config must exist
	optional := !cmd.Flags().Changed("config")
	cfg, err = config.LoadConfig(configFile, optional)
	return err
}

// addTopologyFlags registers --rack-mod and --max-skew on cmd. Values from
// the config file apply unless the flag is given.
func addTopologyFlags(cmd *cobra.Command) {
	defaults := config.Default()
	cmd.Flags().IntVar(&rackMod, "rack-mod", defaults.RackModulus, "How many racks to cycle through")
	cmd.Flags().IntVar(&maxSkew, "max-skew", defaults.MaxSkew, "maxSkew value for topologySpreadConstraints")
}

func topologyParams(cmd *cobra.Command) (int, int) {
	racks, skew := cfg.RackModulus, cfg.MaxSkew
	if cmd.Flags().Changed("rack-mod") {
		racks = rackMod
	}
	if cmd.Flags().Changed("max-skew") {
		skew = maxSkew
	}
	return racks, skew
}
