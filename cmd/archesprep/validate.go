package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"archesprep/internal/config"
)

func newValidateCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Lint a pipeline file and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			if err := report(cmd.OutOrStdout(), cfgPath, config.ValidatePipeline(p)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "pipeline file (.json, .yaml or .yml)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// report prints every issue and fails when any has error severity.
func report(w io.Writer, cfgPath string, issues []config.Issue) error {
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid: %s", cfgPath)
	}
	return nil
}
