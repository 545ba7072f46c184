package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Bradley1112/nurture/internal/config"
	"github.com/Bradley1112/nurture/internal/logging"
)

// runtime is what PersistentPreRunE prepares for every subcommand.
type runtime struct {
	cfg      config.Config
	log      *zap.Logger
	closeLog func() error
}

var rt *runtime

var rootCmd = &cobra.Command{
	Use:   "nurture",
	Short: "Adaptive session engine for the Nurture tutor",
	Long: `nurture decides how each tutoring session should run, grades finished
sessions, promotes students through expertise levels, and keeps per-topic
progress in SQLite or Redis.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if rt != nil && rt.closeLog != nil {
			return rt.closeLog()
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to nurture.yaml (default: ./nurture.yaml or $XDG_CONFIG_HOME/nurture)")
	pf.String("db", "", "Path to SQLite database file (overrides store.path and NURTURE_DB)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(decideCmd, startCmd, finishCmd, progressCmd, serveCmd, versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}

	// stdout carries command output; logs go to stderr
	log, closeLog, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	rt = &runtime{cfg: cfg, log: log, closeLog: closeLog}
	return nil
}
