// Package cli implements the house-agents CLI commands.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/house-agents/internal/config"
	"github.com/rcliao/house-agents/internal/logging"
	"github.com/rcliao/house-agents/internal/store"
)

var (
	dbPath     string
	configPath string
	formatFlag string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "house-agents",
	Short: "Run the house profiles of a dating app",
	Long:  "Drives LLM-backed house profiles through swiping, matching, messaging and breakups. SQLite-backed, single binary.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $HOUSE_AGENTS_DB or ~/.house-agents/house.db)")
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./house-agents.toml if present)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
}

// loadConfig reads .env, the config file and the environment, in that order
// of increasing precedence, then applies --db.
func loadConfig() *config.Config {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		exitErr("load config", err)
	}
	if dbPath != "" {
		cfg.DB.Path = dbPath
	}
	return cfg
}

func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.DB.Path)
}

func newLogger(cfg *config.Config) *zap.Logger {
	log, err := logging.New(cfg.Logging)
	if err != nil {
		exitErr("logger", err)
	}
	return log
}

func textFormat() bool {
	return formatFlag == "text"
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
