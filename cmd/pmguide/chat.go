package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/aretw0/pmguide"
	"github.com/aretw0/pmguide/internal/cli"
	"github.com/aretw0/pmguide/internal/presentation/tui"
	"github.com/aretw0/pmguide/internal/validator"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the guide in the terminal",
	Long: `Starts an interactive chat. Replies are rendered as markdown when stdout is a terminal.
Use --session to resume a conversation kept by a persistent store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		sessionID, _ := cmd.Flags().GetString("session")
		userID, _ := cmd.Flags().GetString("user")
		if sessionID == "" {
			sessionID = uuid.NewString()
		} else if err := validator.SessionID(sessionID); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		backend, err := cli.OpenBackend(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		engine := cli.NewEngine(cfg, backend, logger)

		opts := cli.ChatOptions{
			SessionID: sessionID,
			UserID:    userID,
			In:        os.Stdin,
			Out:       os.Stdout,
			Render:    cli.TerminalRenderer(os.Stdout),
		}
		if cli.IsTerminal(os.Stdin) {
			opts.Prompt = "> "
		}
		if cli.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout, strings.TrimSpace(pmguide.Version))
			fmt.Fprintf(cmd.OutOrStdout(), ">>> Session '%s' active. Type /help for commands.\n", sessionID)
		}

		return cli.RunChat(ctx, engine, opts)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Session UUID to resume (default: a new one)")
	chatCmd.Flags().StringP("user", "u", "", "User identifier recorded on the session")
}
