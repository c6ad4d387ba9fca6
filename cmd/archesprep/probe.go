package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"archesprep/internal/config"
	"archesprep/internal/datasource/file"
	"archesprep/internal/datasource/httpds"
	"archesprep/internal/probe"
	"archesprep/internal/schema"
)

type probeOptions struct {
	input    string
	schema   string
	comma    string
	encoding string
	entity   string
	job      string
	maxBytes int
	insecure bool
}

func newProbeCmd() *cobra.Command {
	var opts probeOptions

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Sample a survey CSV and draft a pipeline file",
		Long: "Reads the head of a CSV (path or URL), prints a column report to stderr " +
			"and a starter pipeline as YAML to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			po := probe.Options{
				Location:       opts.input,
				MaxBytes:       opts.maxBytes,
				Encoding:       opts.encoding,
				EntityColumn:   opts.entity,
				Job:            opts.job,
				SchemaLocation: opts.schema,
			}
			if opts.comma != "" {
				po.Comma = []rune(opts.comma)[0]
			}

			client := httpds.NewClient(httpds.Config{InsecureSkipVerify: opts.insecure})
			open := func(loc string) (io.ReadCloser, error) {
				if httpds.IsURL(loc) {
					return httpds.NewSource(client, loc).Open(ctx)
				}
				return file.NewLocal(loc).Open(ctx)
			}

			if opts.schema != "" {
				rc, err := open(opts.schema)
				if err != nil {
					return &schema.LoadError{Source: opts.schema, Err: err}
				}
				idx, err := schema.Build(rc)
				_ = rc.Close()
				if err != nil {
					return err
				}
				po.Schema = idx
			}

			rc, err := open(opts.input)
			if err != nil {
				return err
			}
			defer rc.Close()

			rep, err := probe.Probe(ctx, rc, po)
			if err != nil {
				return err
			}
			printColumns(cmd.ErrOrStderr(), rep)
			return writePipelineYAML(cmd.OutOrStdout(), rep.Pipeline)
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "survey CSV path or URL")
	cmd.Flags().StringVarP(&opts.schema, "schema", "s", "", "resource model JSON path or URL")
	cmd.Flags().StringVar(&opts.comma, "comma", "", "field delimiter (default ,)")
	cmd.Flags().StringVar(&opts.encoding, "encoding", "", "input encoding; a BOM selects utf-8-sig")
	cmd.Flags().StringVar(&opts.entity, "entity-column", "", "entity identifier column (guessed when empty)")
	cmd.Flags().StringVar(&opts.job, "job", "", "job name (default: input base name)")
	cmd.Flags().IntVar(&opts.maxBytes, "bytes", probe.DefaultMaxBytes, "bytes to sample")
	cmd.Flags().BoolVar(&opts.insecure, "insecure", false, "skip TLS verification for URLs")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// printColumns writes one aligned line per column.
func printColumns(w io.Writer, rep probe.Report) {
	width := len("COLUMN")
	for _, c := range rep.Columns {
		if n := runewidth.StringWidth(c.Name); n > width {
			width = n
		}
	}
	fmt.Fprintf(w, "%d rows sampled, %d skipped, bom=%v\n", rep.Rows, rep.Skipped, rep.BOM)
	fmt.Fprintf(w, "%s  %-7s  %-6s  %s\n", runewidth.FillRight("COLUMN", width), "KIND", "FILLED", "NOTES")
	for _, c := range rep.Columns {
		var notes []string
		if c.Layout != "" {
			notes = append(notes, "layout "+c.Layout)
		}
		if c.Geometry {
			notes = append(notes, "geometry")
		}
		if c.Polygons {
			notes = append(notes, "polygons")
		}
		if c.InSchema {
			notes = append(notes, "in model")
		}
		fmt.Fprintf(w, "%s  %-7s  %6d  %s\n", runewidth.FillRight(c.Name, width), c.Kind, c.Filled, strings.Join(notes, ", "))
	}
}

func writePipelineYAML(w io.Writer, p config.Pipeline) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode pipeline: %w", err)
	}
	return enc.Close()
}
