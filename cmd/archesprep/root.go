package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// Every storage kind is available; the pipeline file picks one.
	_ "archesprep/internal/storage/all"
)

type rootOptions struct {
	verbose bool
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "archesprep",
		Short:         "Clean and reconcile survey CSVs for Arches import",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.log != nil {
				return nil
			}
			log, err := newLogger(opts.verbose)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			opts.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.log != nil {
				_ = opts.log.Sync()
			}
		},
	}
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "development logging at debug level")

	cmd.AddCommand(
		newRunCmd(opts),
		newValidateCmd(),
		newCardsCmd(),
		newProbeCmd(),
	)
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
