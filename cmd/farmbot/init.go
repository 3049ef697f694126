package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"hoardfarm.ai/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file with a fresh sender id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteDefault(configPath, uuid.NewString()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
			return nil
		},
	}
}

func newResetStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stats",
		Short: "Zero the overall counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := config.Open(configPath)
			if err != nil {
				return err
			}
			store.ResetCounters()
			if err := store.Save(); err != nil {
				return fmt.Errorf("save %s: %w", configPath, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "counters reset")
			return nil
		},
	}
}
