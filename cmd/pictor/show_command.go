package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"pictor/internal/registry"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|path>",
		Short: "Show one registration in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, store *registry.Store) error {
				reg, err := lookupRegistration(runCtx, store, args[0])
				if err != nil {
					return err
				}
				if reg == nil {
					return fmt.Errorf("no registration matches %q", args[0])
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:       %s\n", reg.ID)
				fmt.Fprintf(out, "Name:     %s\n", reg.DisplayName())
				fmt.Fprintf(out, "Path:     %s\n", reg.ImagePath)
				fmt.Fprintf(out, "Source:   %s\n", reg.Source)
				fmt.Fprintf(out, "Created:  %s\n", reg.CreatedTime().Format(time.RFC3339))
				fmt.Fprintf(out, "Flagged:  %t\n", reg.Flagged)
				fmt.Fprintf(out, "Rating:   %d\n", reg.Rating)
				if len(reg.Data) > 0 {
					fmt.Fprintln(out, "Data:")
					keys := make([]string, 0, len(reg.Data))
					for key := range reg.Data {
						keys = append(keys, key)
					}
					sort.Strings(keys)
					for _, key := range keys {
						fmt.Fprintf(out, "  %s: %s\n", key, reg.Data[key])
					}
				}
				return nil
			})
		},
	}
}

// lookupRegistration accepts either a registration identifier or an image
// path, trying the identifier first.
func lookupRegistration(ctx context.Context, store *registry.Store, key string) (*registry.Registration, error) {
	reg, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if reg != nil {
		return reg, nil
	}
	return store.GetByImagePath(ctx, key)
}
