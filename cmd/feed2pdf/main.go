// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the feed2pdf CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the feed2pdf CLI.
var rootCmd = &cobra.Command{
	Use:   "feed2pdf",
	Short: "Convert a list of syndication feeds to PDF",
	Long: `feed2pdf reads a file of feed URLs, one per line, and runs an external
converter once per feed to render it as a PDF into an output directory.
Feeds are converted one at a time, in file order.

Configuration comes from ./feed2pdf.yaml or ~/.config/feed2pdf/feed2pdf.yaml,
FEED2PDF_* environment variables, and flags, in increasing priority.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./feed2pdf.yaml or ~/.config/feed2pdf/feed2pdf.yaml)")
	pf.String("history-db", "", "SQLite run history database (empty disables history)")
	pf.String("log-level", "info", "diagnostic log level: debug, info, warn, error")
	pf.String("log-format", "console", "diagnostic log format: console or json")

	bindFlags(viper.GetViper(), pf, map[string]string{
		keyHistoryDB: "history-db",
		keyLogLevel:  "log-level",
		keyLogFormat: "log-format",
	})
}

func initConfig() {
	setDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("feed2pdf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "feed2pdf"))
		}
	}

	viper.SetEnvPrefix("FEED2PDF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "warning: could not read config file %s: %v\n", cfgFile, err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
