package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"archesprep/internal/config"
	"archesprep/internal/metrics"
	"archesprep/internal/metrics/datadog"
	"archesprep/internal/metrics/prompush"
	"archesprep/internal/pipeline"
)

// defaultDogStatsDAddr is used when the datadog backend has no address.
const defaultDogStatsDAddr = "127.0.0.1:8125"

type runOptions struct {
	cfgPath        string
	metricsBackend string
	metricsAddr    string
}

func newRunCmd(root *rootOptions) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a pipeline file",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.Load(opts.cfgPath)
			if err != nil {
				return err
			}
			// Flags win over the file, then the environment fills gaps.
			if opts.metricsBackend != "" {
				p.Runtime.MetricsBackend = opts.metricsBackend
			}
			if opts.metricsAddr != "" {
				p.Runtime.MetricsAddr = opts.metricsAddr
			}
			if p.Runtime.MetricsAddr == "" && p.Runtime.MetricsBackend == "pushgateway" {
				p.Runtime.MetricsAddr = os.Getenv("PUSHGATEWAY_URL")
			}
			if err := report(cmd.ErrOrStderr(), opts.cfgPath, config.ValidatePipeline(p)); err != nil {
				return err
			}

			flush, err := setupMetrics(p, root.log)
			if err != nil {
				return err
			}
			defer flush()

			root.log.Info("pipeline",
				zap.String("config", opts.cfgPath),
				zap.String("source", p.Source.Location()),
				zap.String("storage", p.Storage.Kind))

			sum, err := pipeline.Execute(cmd.Context(), p, root.log)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), sum)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.cfgPath, "config", "c", "", "pipeline file (.json, .yaml or .yml)")
	cmd.Flags().StringVar(&opts.metricsBackend, "metrics-backend", "", "override runtime.metrics_backend (none, pushgateway, datadog)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "override runtime.metrics_addr (Pushgateway URL or DogStatsD address)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// setupMetrics installs the configured backend and returns the function that
// flushes it at exit. A backend that fails to start is logged and skipped;
// metrics never fail a run.
func setupMetrics(p config.Pipeline, log *zap.Logger) (func(), error) {
	var (
		b   metrics.Backend
		err error
	)
	switch p.Runtime.MetricsBackend {
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}, nil
	case "pushgateway":
		b, err = prompush.NewBackend(p.Job, p.Runtime.MetricsAddr)
	case "datadog":
		addr := p.Runtime.MetricsAddr
		if addr == "" {
			addr = defaultDogStatsDAddr
		}
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       addr,
			GlobalTags: []string{"job:" + p.Job},
		})
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", p.Runtime.MetricsBackend)
	}
	if err != nil {
		log.Warn("metrics backend unavailable; continuing without metrics",
			zap.String("backend", p.Runtime.MetricsBackend), zap.Error(err))
		return func() {}, nil
	}

	metrics.SetBackend(b)
	log.Info("metrics enabled",
		zap.String("backend", p.Runtime.MetricsBackend),
		zap.String("addr", p.Runtime.MetricsAddr))
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", zap.Error(err))
		}
	}, nil
}

func printSummary(w io.Writer, s pipeline.Summary) {
	fmt.Fprintf(w, "job:              %s\n", s.Job)
	fmt.Fprintf(w, "rows parsed:      %d (skipped %d)\n", s.Parsed, s.Skipped)
	if s.PassThrough {
		fmt.Fprintf(w, "reconciliation:   skipped, entity column missing\n")
	} else {
		fmt.Fprintf(w, "entities:         %d (%d split, %d reconciled, %d cells filled)\n",
			s.Reconcile.Groups, s.Reconcile.MultiRow, s.Reconcile.Reconciled, s.Reconcile.Filled)
	}
	fmt.Fprintf(w, "rows written:     %d\n", s.Written)
	fmt.Fprintf(w, "took:             %s\n", s.Duration.Round(time.Millisecond))
}
