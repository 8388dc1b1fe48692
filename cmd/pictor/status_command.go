package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pictor/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show running daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return fmt.Errorf("query status: %w", err)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Running:    %t (pid %d)\n", status.Running, status.PID)
				fmt.Fprintf(out, "Mode:       %s\n", status.Mode)
				fmt.Fprintf(out, "Watch dir:  %s\n", status.WatchDir)
				fmt.Fprintf(out, "Database:   %s\n", status.DatabasePath)
				fmt.Fprintf(out, "Images:     %d\n", status.TotalImages)
				fmt.Fprintf(out, "Generating: %t\n", status.Generating)
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Ask the running daemon to shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return fmt.Errorf("stop daemon: %w", err)
				}
				if resp.Stopping {
					fmt.Fprintln(cmd.OutOrStdout(), "Shutdown requested.")
				}
				return nil
			})
		},
	}
}
