package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"archesprep/internal/schema"
)

func newCardsCmd() *cobra.Command {
	var schemaPath string

	cmd := &cobra.Command{
		Use:   "cards",
		Short: "List cards that hold more than one geometry node",
		Long: "Prints, for every card of the resource model, its geometry nodes. " +
			"Cards with several geometry nodes are the ones whose entities end up split over rows.",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := schema.Load(cmd.Context(), schemaPath)
			if err != nil {
				return err
			}
			printCards(cmd.OutOrStdout(), idx.GeometryCards())
			return nil
		},
	}
	cmd.Flags().StringVarP(&schemaPath, "schema", "s", "", "resource model JSON")
	_ = cmd.MarkFlagRequired("schema")
	return cmd
}

// printCards writes one line per card, sorted by card id, with the geometry
// node names aligned by display width.
func printCards(w io.Writer, cards map[string][]string) {
	ids := make([]string, 0, len(cards))
	width := len("CARD")
	for id := range cards {
		ids = append(ids, id)
		if n := runewidth.StringWidth(id); n > width {
			width = n
		}
	}
	sort.Strings(ids)

	fmt.Fprintf(w, "%s  %s  %s\n", runewidth.FillRight("CARD", width), "N", "GEOMETRY NODES")
	for _, id := range ids {
		nodes := cards[id]
		fmt.Fprintf(w, "%s  %d  %s\n", runewidth.FillRight(id, width), len(nodes), strings.Join(nodes, "; "))
	}
}
