package main

import (
	"fmt"
	"os"

	"mhdash/internal/config"
	"mhdash/internal/engine"
	"mhdash/internal/observability"

	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	flagData     string
	flagTimezone string

	// Loaded configuration
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "mhdash",
	Short:         "Mental health survey dashboard",
	Long:          `mhdash loads the mental health survey CSV into memory and serves filtered aggregates over HTTP or prints them from the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		f := cmd.Flags()
		if f.Changed("data") {
			c.DataPath = flagData
		}
		if f.Changed("timezone") {
			c.Timezone = flagTimezone
		}
		cfg = c
		observability.InitLogger("mhdash", cfg.Env, cfg.LogLevel)
		return nil
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./mhdash.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagData, "data", "", "survey CSV path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagTimezone, "timezone", "", "IANA timezone for timestamps (overrides config)")

	rootCmd.AddCommand(serveCmd, summaryCmd)
}

func openSource(c *config.Config) (*engine.Source, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return engine.NewSource(c.DataPath, engine.Options{
		Location:  loc,
		ChunkRows: c.ChunkRows,
		Workers:   c.Workers,
	}), nil
}
