// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf2pages CLI, which turns the
// pages of a PDF (typically an auction catalog) into numbered image files.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf2pages/internal/convert"
	"github.com/pdiddy/pdf2pages/internal/logging"
	"github.com/pdiddy/pdf2pages/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the pdf2pages CLI.
var rootCmd = &cobra.Command{
	Use:   "pdf2pages",
	Short: "Convert the pages of a PDF into PNG, JPEG or TIFF images",
	Long: `pdf2pages rasterizes every page of a PDF and writes one image per page
into an output directory, named {prefix}_{NNN}.{ext}.

Rendering uses poppler's pdftoppm by default. If it is not installed,
"pdf2pages install-poppler" fetches a private copy (Windows), or choose
--renderer pdfium, which needs no native tools.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(os.Stderr, viper.GetString("log-level"), !viper.GetBool("log-json"))

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logging.Debug("loaded secrets", "keys", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf2pages.yaml or ~/.config/pdf2pages/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON instead of console lines")
	rootCmd.PersistentFlags().String("history-db", "", "sqlite file recording conversions (empty disables history)")

	bindFlags(rootCmd.PersistentFlags(), "log-level", "log-json", "history-db")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdf2pages")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdf2pages"))
		}
	}

	viper.SetEnvPrefix("PDF2PAGES")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := convert.RemediationHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(1)
	}
}
