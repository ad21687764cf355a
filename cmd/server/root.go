package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/S4nzh4r/ya-note/internal/config"
	"github.com/S4nzh4r/ya-note/internal/store"
	"github.com/S4nzh4r/ya-note/internal/store/boltstore"
	"github.com/S4nzh4r/ya-note/internal/store/sqlstore"
)

var (
	verbose    bool
	configPath string

	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ya-note",
	Short: "Private notes server",
	Long: `YaNote keeps private notes for registered users.
Each note has a unique slug and is visible only to its author.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		level, _ := cfg.SlogLevel()
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $CONFIG_FILE)")
}

// openStore opens the storage backend selected by the configuration.
func openStore(c *config.Config) (store.Store, error) {
	switch c.StoreBackend {
	case config.BackendBolt:
		slog.Debug("opening bolt store", "path", c.BoltPath)
		return boltstore.Open(c.BoltPath)
	default:
		slog.Debug("opening sql store", "driver", c.DBDriver)
		return sqlstore.New(c.DBDriver, c.DBConn)
	}
}
