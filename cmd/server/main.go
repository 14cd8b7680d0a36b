package main

import (
	"fmt"
	"os"

	"autoviz/internal/config"
	"autoviz/internal/logger"
	"autoviz/internal/logger/console"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "autoviz",
	Short: "AutoViz: upload a CSV, get it cleaned, profiled and charted",
	Long: `AutoViz cleans and profiles uploaded CSV files, asks a language model
which charts to draw, renders them and stores the results per user session.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if debug {
			c.LogDebug = true
		}
		cfg = c
		logger.Init(console.New(console.Params{Debug: cfg.LogDebug}))
		return nil
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, analyzeCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
