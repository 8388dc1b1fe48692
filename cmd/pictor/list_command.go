package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"pictor/internal/registry"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var page int
	var pageSize int
	var rating int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered images, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if page < 1 {
				page = 1
			}
			if pageSize < 1 {
				pageSize = 20
			}
			byRating := cmd.Flags().Changed("rating")
			return ctx.withStore(func(runCtx context.Context, store *registry.Store) error {
				var (
					regs  []*registry.Registration
					total int
					err   error
				)
				if byRating {
					regs, err = store.Rated(runCtx, rating)
					total = len(regs)
					page = 1
					pageSize = total
				} else {
					offset := (page - 1) * pageSize
					regs, total, err = store.GetAll(runCtx, pageSize, offset)
				}
				if err != nil {
					return fmt.Errorf("list registrations: %w", err)
				}

				out := cmd.OutOrStdout()
				if total == 0 {
					fmt.Fprintln(out, "No registered images.")
					return nil
				}

				rows := make([][]string, 0, len(regs))
				for _, reg := range regs {
					rows = append(rows, []string{
						reg.ID,
						reg.DisplayName(),
						reg.Source,
						formatRating(reg.Rating),
						formatFlag(reg.Flagged),
						reg.CreatedTime().Format(time.DateTime),
						reg.ImagePath,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Source", "Rating", "Flag", "Created", "Path"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
					isTerminal(out),
				))

				pages := (total + pageSize - 1) / pageSize
				fmt.Fprintf(out, "Page %d of %d (%d registered)\n", page, pages, total)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "Rows per page")
	cmd.Flags().IntVar(&rating, "rating", 0, "Show only images with exactly this rating (-1, 0, or 1)")
	return cmd
}

func formatRating(rating int) string {
	if rating == 0 {
		return "-"
	}
	return strconv.Itoa(rating)
}

func formatFlag(flagged bool) string {
	if flagged {
		return "⚑"
	}
	return ""
}
