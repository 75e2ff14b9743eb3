// Package cli holds the scrobblewatch commands.
package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/llehouerou/scrobblewatch/internal/config"
	"github.com/llehouerou/scrobblewatch/internal/errmsg"
	"github.com/llehouerou/scrobblewatch/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	cfg     *config.Config
	logger  *slog.Logger
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "scrobblewatch",
	Short: "Scrobble what a browser music player is playing to Last.fm",
	Long: `scrobblewatch watches a web music player through MPRIS or a browser
bridge, works out when tracks start, pause, loop and finish, and submits
the plays that count to Last.fm.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			_ = logFile.Close()
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.config/scrobblewatch/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides [log] level)")
}

func initConfig() error {
	if cfgFile != "" {
		if _, err := os.Stat(cfgFile); err != nil {
			return errmsg.Error(errmsg.OpConfigLoad, err)
		}
	}

	var err error
	cfg, err = config.LoadFrom(configPaths()...)
	if err != nil {
		return errmsg.Error(errmsg.OpConfigLoad, err)
	}

	lc := cfg.GetLogConfig()
	level := lc.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, logFile, err = logging.Setup(lc.File, logging.ParseLevel(level))
	if err != nil {
		return errmsg.Error(errmsg.OpLogSetup, err)
	}
	return nil
}

// configPaths are the files loaded and watched: the --config file alone
// when given, the default search path otherwise.
func configPaths() []string {
	if cfgFile != "" {
		return []string{cfgFile}
	}
	return config.DefaultPaths()
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
