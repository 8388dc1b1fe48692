package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pictor/internal/config"
	"pictor/internal/registry"
)

func newFlagCommand(ctx *commandContext) *cobra.Command {
	var clear bool
	var toggle bool

	cmd := &cobra.Command{
		Use:   "flag <id>",
		Short: "Flag a registration (or clear or toggle the flag)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, store *registry.Store) error {
				if toggle {
					flagged, err := store.ToggleFlag(runCtx, args[0])
					if err != nil {
						if errors.Is(err, registry.ErrNotFound) {
							return fmt.Errorf("no registration with id %q", args[0])
						}
						return err
					}
					if flagged {
						fmt.Fprintf(cmd.OutOrStdout(), "Flagged %s\n", args[0])
					} else {
						fmt.Fprintf(cmd.OutOrStdout(), "Cleared flag on %s\n", args[0])
					}
					return nil
				}
				if err := store.SetFlag(runCtx, args[0], !clear); err != nil {
					if errors.Is(err, registry.ErrNotFound) {
						return fmt.Errorf("no registration with id %q", args[0])
					}
					return err
				}
				if clear {
					fmt.Fprintf(cmd.OutOrStdout(), "Cleared flag on %s\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Flagged %s\n", args[0])
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the flag instead of setting it")
	cmd.Flags().BoolVar(&toggle, "toggle", false, "Invert the flag's current value")
	cmd.MarkFlagsMutuallyExclusive("clear", "toggle")
	return cmd
}

func newRateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <id> <rating>",
		Short: "Rate a registration (-1, 0, or 1)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("rating must be an integer: %w", err)
			}
			return ctx.withStore(func(runCtx context.Context, store *registry.Store) error {
				if err := store.SetRating(runCtx, args[0], rating); err != nil {
					if errors.Is(err, registry.ErrNotFound) {
						return fmt.Errorf("no registration with id %q", args[0])
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rated %s\n", args[0])
				return nil
			})
		},
	}
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a registration (the image file is left alone)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(runCtx context.Context, store *registry.Store) error {
				removed, err := store.Delete(runCtx, args[0])
				if err != nil {
					return err
				}
				if !removed {
					return fmt.Errorf("no registration with id %q", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove registrations whose backing files are gone",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.FileService.Mode != config.ModeLocal {
				return errors.New("cleanup requires local access to the artifact root; the configured file service is remote")
			}
			return ctx.withStore(func(runCtx context.Context, store *registry.Store) error {
				report, err := store.CleanupOrphans(runCtx, cfg.Paths.WatchDir, dryRun)
				if err != nil {
					return fmt.Errorf("cleanup orphans: %w", err)
				}

				out := cmd.OutOrStdout()
				if len(report.Orphaned) == 0 {
					fmt.Fprintln(out, "No orphaned registrations.")
					return nil
				}
				for _, path := range report.Orphaned {
					fmt.Fprintf(out, "  %s\n", path)
				}
				if report.DryRun {
					fmt.Fprintf(out, "%d orphaned registration(s); none removed (dry run)\n", len(report.Orphaned))
				} else {
					fmt.Fprintf(out, "Removed %d orphaned registration(s)\n", report.Deleted)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report orphans without deleting them")
	return cmd
}
