package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/pmguide/internal/cli"
	"github.com/aretw0/pmguide/internal/config"
	"github.com/aretw0/pmguide/internal/presentation/graph"
	"github.com/aretw0/pmguide/pkg/domain"
	"github.com/aretw0/pmguide/pkg/knowledge"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long:  `List, inspect, and remove sessions kept by the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(cmd, func(_ *config.Config, b *cli.Backend) error {
			sessions, err := b.Contexts.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Sessions:")
			for _, s := range sessions {
				fmt.Fprintln(cmd.OutOrStdout(), "- "+s)
			}
			return nil
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the context of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		return withBackend(cmd, func(cfg *config.Config, b *cli.Backend) error {
			cc, err := b.Contexts.Load(cmd.Context(), sessionID)
			if errors.Is(err, domain.ErrSessionNotFound) {
				return fmt.Errorf("session '%s' not found", sessionID)
			}
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", sessionID, err)
			}
			if asGraph, _ := cmd.Flags().GetBool("graph"); asGraph {
				kb := knowledge.Load(cfg.KnowledgePath, nil)
				fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(kb.Steps(), graph.OverlayFrom(cc.Progress)))
				return nil
			}
			data, err := json.MarshalIndent(cc, "", "  ")
			if err != nil {
				return fmt.Errorf("error marshaling context: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm [session-id]...",
	Short: "Remove one or more sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if len(args) == 0 && !all {
			return errors.New("requires at least one session id or --all")
		}
		return withBackend(cmd, func(_ *config.Config, b *cli.Backend) error {
			if all {
				ids, err := b.Contexts.List(cmd.Context())
				if err != nil {
					return fmt.Errorf("error listing sessions: %w", err)
				}
				args = ids
			}

			var errs []error
			for _, sessionID := range args {
				if err := b.Contexts.Delete(cmd.Context(), sessionID); err != nil {
					errs = append(errs, fmt.Errorf("error removing '%s': %w", sessionID, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", sessionID)
			}
			return errors.Join(errs...)
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
	sessionRmCmd.Flags().Bool("all", false, "Remove every stored session")
	sessionInspectCmd.Flags().Bool("graph", false, "Print the step flow as Mermaid with the session progress highlighted")
}

func withBackend(cmd *cobra.Command, fn func(*config.Config, *cli.Backend) error) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	b, err := cli.OpenBackend(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(cfg, b)
}
