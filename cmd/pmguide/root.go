package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/pmguide/internal/config"
	"github.com/aretw0/pmguide/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pmguide",
	Short: "pmguide is a guide for Privacy Mark certification",
	Long: `pmguide answers questions about the Privacy Mark certification process,
tracks where an applicant stands in the seven-step flow and serves the
application templates. It runs as an HTTP API, an MCP server or a terminal chat.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "Environment file loaded before reading configuration")
	rootCmd.PersistentFlags().String("knowledge", "", "Knowledge base YAML file (overrides KNOWLEDGE_PATH)")
	rootCmd.PersistentFlags().String("templates", "", "Template document directory (overrides TEMPLATES_DIR)")
	rootCmd.PersistentFlags().String("store", "", "Session store: memory, file, sqlite or redis (overrides STORE_DRIVER)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
}

// loadConfig reads the environment, applies flag overrides and builds the logger.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	envErr := godotenv.Load(envFile)

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	overrides := map[string]*string{
		"knowledge": &cfg.KnowledgePath,
		"templates": &cfg.TemplatesDir,
		"store":     &cfg.StoreDriver,
		"log-level": &cfg.LogLevel,
	}
	for name, target := range overrides {
		if v, _ := cmd.Flags().GetString(name); v != "" {
			*target = v
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	if envErr != nil && cmd.Flags().Changed("env-file") {
		logger.Warn("Environment file not loaded", "path", envFile, "err", envErr)
	}
	return cfg, logger, nil
}
