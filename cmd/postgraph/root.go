package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/postgraph/internal/config"
	"github.com/dshills/postgraph/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "postgraph",
	Short:         "Draft, review and publish social media posts",
	Long:          `postgraph researches a topic or URL, drafts a post for Twitter or LinkedIn, and waits for a human to approve, edit or redirect it before publishing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	addConfigFlags(rootCmd)
}

func addConfigFlags(cmd *cobra.Command) {
	fs := cmd.PersistentFlags()
	fs.StringP("config", "c", "", "YAML config file")
	fs.String("provider", "", "Model provider: anthropic, openai or google")
	fs.String("model", "", "Model name (provider default when empty)")
	fs.String("store", "", "Checkpoint store: memory, sqlite, mysql or redis")
	fs.String("dsn", "", "SQLite path or MySQL DSN")
	fs.String("log-level", "", "Log level: debug, info, warn or error")
	fs.String("log-format", "", "Log format: text or json")
}

// loadConfig reads the config file and environment, then applies any
// flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}

	overrides := map[string]*string{
		"provider":   &cfg.Model.Provider,
		"model":      &cfg.Model.Name,
		"store":      &cfg.Store.Backend,
		"dsn":        &cfg.Store.DSN,
		"log-level":  &cfg.Log.Level,
		"log-format": &cfg.Log.Format,
		"addr":       &cfg.Server.Addr,
	}
	for name, field := range overrides {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*field = f.Value.String()
		}
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := logging.ParseLevel(cfg.Log.Level)
	return logging.New(cfg.Log.Format, level)
}
