// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docflip CLI.
// docflip converts Word documents to PDF (with an optional watermark) and
// PDFs back to Word documents, from the command line or as an HTTP service.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docflip/internal/observability"
	"github.com/pdiddy/docflip/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// appConfig and logger are populated before any subcommand runs.
var (
	appConfig types.AppConfig
	logger    zerolog.Logger
)

// rootCmd is the base command for the docflip CLI.
var rootCmd = &cobra.Command{
	Use:   "docflip",
	Short: "Convert Word documents to PDF and PDFs to Word documents",
	Long: `docflip converts .docx files into paginated A4 PDFs, optionally stamped
with a diagonal watermark on every page, and extracts the text of PDFs into
plain .docx files with one paragraph per block of text.

Run one conversion with "docflip convert", or expose both directions over
HTTP with "docflip serve".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		appConfig = cfg
		logger = observability.NewLogger(cfg.Log, os.Stderr)
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug().Str("path", used).Msg("using config file")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docflip.yaml or ~/.config/docflip/docflip.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: console or json")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	// A .env file is optional; values already in the environment win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docflip")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docflip"))
		}
	}

	setDefaults(types.DefaultAppConfig())
	initEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintln(os.Stderr, "warning: reading config:", err)
		}
	}
}

// initEnv maps DOCFLIP_SERVER_ADDR and friends onto nested keys.
func initEnv() {
	viper.SetEnvPrefix("DOCFLIP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// setDefaults registers every key so that environment variables are seen
// by Unmarshal even when no config file mentions them.
func setDefaults(d types.AppConfig) {
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
	viper.SetDefault("render.backend", string(d.Render.Backend))
	viper.SetDefault("render.timeout", d.Render.Timeout)
	viper.SetDefault("render.no_sandbox", d.Render.NoSandbox)
	viper.SetDefault("render.browser_bin", d.Render.BrowserBin)
	viper.SetDefault("render.container_image", d.Render.ContainerImage)
	viper.SetDefault("extract.pdf_backend", string(d.Extract.PDFBackend))
	viper.SetDefault("server.addr", d.Server.Addr)
	viper.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	viper.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	viper.SetDefault("server.secrets_dir", d.Server.SecretsDir)
	viper.SetDefault("journal.enabled", d.Journal.Enabled)
	viper.SetDefault("journal.path", d.Journal.Path)
}

func loadConfig() (types.AppConfig, error) {
	var cfg types.AppConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.AppConfig{}, fmt.Errorf("decoding configuration: %w", err)
	}
	cfg.Normalize()
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
