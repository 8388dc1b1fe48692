package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"pictor/internal/registry"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var health bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Registration counts and database health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, store *registry.Store) error {
				stats, err := store.Stats(runCtx)
				if err != nil {
					return fmt.Errorf("collect stats: %w", err)
				}

				out := cmd.OutOrStdout()
				rows := [][]string{
					{"Total", strconv.Itoa(stats.Total)},
					{"Flagged", strconv.Itoa(stats.Flagged)},
					{"Rated", strconv.Itoa(stats.Rated)},
				}
				sources := make([]string, 0, len(stats.BySource))
				for source := range stats.BySource {
					sources = append(sources, source)
				}
				sort.Strings(sources)
				for _, source := range sources {
					rows = append(rows, []string{"Source " + source, strconv.Itoa(stats.BySource[source])})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Metric", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
					isTerminal(out),
				))

				if !health {
					return nil
				}
				report, err := store.CheckHealth(runCtx)
				if err != nil {
					return fmt.Errorf("check health: %w", err)
				}
				fmt.Fprintf(out, "Database: %s\n", report.DBPath)
				fmt.Fprintf(out, "Integrity: %t\n", report.IntegrityCheck)
				if len(report.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %v\n", report.MissingColumns)
				}
				if report.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", report.Error)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&health, "health", false, "Include a database health check")
	return cmd
}
