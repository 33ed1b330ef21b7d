package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"smp/internal/platform/config"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:           "smpd",
		Short:         "Service metadata publisher for Peppol and BDXR participants",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: SMP_* environment variables only)")

	load := func() (config.Config, error) {
		return config.Load(cfgFile)
	}
	root.AddCommand(newServeCmd(load), newCheckConfigCmd(load))
	return root
}

func newCheckConfigCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok: backend=%s identifiers=%s audit=%s\n",
				cfg.Backend.Kind, cfg.SMP.IdentifierType, cfg.Audit.Sink)
			return nil
		},
	}
}
