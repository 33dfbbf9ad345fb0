// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docflip/internal/secrets"
	"github.com/pdiddy/docflip/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve both conversions over HTTP",
	Long: `Serve exposes the conversions as multipart upload endpoints:

  POST /api/convert    field "file" (.docx), optional "watermark"  -> PDF
  POST /api/pdf2word   field "file" (.pdf)                          -> DOCX
  GET  /health

When the secrets directory contains an api-token file, the /api routes
require "Authorization: Bearer <token>".`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	serveCmd.Flags().String("secrets-dir", "", "directory holding the api-token file (default .secrets/)")
	serveCmd.Flags().Bool("journal", false, "record conversion outcomes in the journal database")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.secrets_dir", serveCmd.Flags().Lookup("secrets-dir"))
	_ = viper.BindPFlag("journal.enabled", serveCmd.Flags().Lookup("journal"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	token, err := secrets.LoadToken(appConfig.Server.SecretsDir, logger)
	if err != nil {
		return err
	}

	p, closeFn, err := newPipeline(appConfig, true)
	if err != nil {
		return err
	}
	defer closeFn()

	return server.New(p, appConfig.Server, token, logger).ListenAndServe(ctx)
}
