package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"streamify/internal/config"
	"streamify/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		outputName string
		jsonOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "streamify",
		Short:         "Streamify stores video uploads and streams them back with range support",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				outputName = "json"
			}
			formatter, err := format.ForName(outputName)
			if err != nil {
				return err
			}
			outputFormatter = formatter

			warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVar(&outputName, "output", "text", "output format: text, json or yaml")
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON (shorthand for --output json)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newUploadCmd(cfg),
		newShowCmd(cfg),
		newListCmd(cfg),
		newRelatedCmd(cfg),
		newEditCmd(cfg),
		newRmCmd(cfg),
		newFetchCmd(cfg),
		newTokenCmd(),
		newBlobsCmd(cfg),
		newConfigCmd(cfg),
		newInfoCmd(cfg),
		newMigrateCmd(cfg),
	)

	return cmd
}
