package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/edubot/internal/config"
	"github.com/abhisek/edubot/internal/logging"
	"github.com/abhisek/edubot/internal/store"
)

var rootCmd = &cobra.Command{
	Use:           "edubot",
	Short:         "AI reading tutor in your terminal",
	Long:          "EduBot: create lessons from text, a topic or a file, take the generated quiz and ask a tutor about it.",
	SilenceUsage:  true,
	SilenceErrors: false,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Path to the config file (overrides EDUBOT_CONFIG)")
	flags.String("api-url", "", "Backend base URL (overrides api_url)")
	flags.String("db", "", "Path to SQLite database file (overrides EDUBOT_DB env var)")
	flags.Bool("offline", false, "Use the local store and an LLM provider instead of the backend")
	flags.String("log-file", "", "Write logs to this file (overrides log_file)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}

// loadConfig reads the config file and layers the global flags on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return config.Config{}, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if v, _ := cmd.Flags().GetString("api-url"); v != "" {
		cfg.APIURL = v
	}
	if cmd.Flags().Changed("offline") {
		cfg.Offline, _ = cmd.Flags().GetBool("offline")
	}
	if v, _ := cmd.Flags().GetString("log-file"); v != "" {
		cfg.LogFile = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBPath = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger opens the log file named by the config, or the default one.
func newLogger(cfg config.Config) (*logging.Logger, error) {
	path := cfg.LogFile
	if path == "" {
		p, err := logging.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return logging.New(logging.Options{Level: cfg.LogLevel, File: path})
}

// resolveDBPath returns the database path using --db / db_path (highest
// priority), then EDUBOT_DB env var, then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}
