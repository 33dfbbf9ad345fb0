// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docflip/internal/convert"
	"github.com/pdiddy/docflip/internal/journal"
	"github.com/pdiddy/docflip/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded conversions",
	Long: `History reads the conversion journal written by "docflip serve --journal"
and by conversions run with journal.enabled. Only metadata is recorded:
names, sizes, durations, and failure details.

Use --export to print the entries as YAML or JSON.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("journal-path", "", "journal database (default docflip.db)")
	historyCmd.Flags().String("direction", "", "filter by direction: docx-to-pdf or pdf-to-docx")
	historyCmd.Flags().Bool("failed", false, "only show failed conversions")
	historyCmd.Flags().Duration("since", 0, "only show conversions newer than this (e.g. 24h)")
	historyCmd.Flags().Int("limit", 0, "maximum entries (0 = default of 50)")
	historyCmd.Flags().String("export", "", "export format: yaml or json")

	_ = viper.BindPFlag("journal.path", historyCmd.Flags().Lookup("journal-path"))

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := journal.NewStore(appConfig.Journal)
	if err != nil {
		return err
	}
	defer store.Close()

	direction, _ := cmd.Flags().GetString("direction")
	failed, _ := cmd.Flags().GetBool("failed")
	since, _ := cmd.Flags().GetDuration("since")
	limit, _ := cmd.Flags().GetInt("limit")

	opts := journal.QueryOptions{
		Direction:  types.Direction(direction),
		FailedOnly: failed,
		Limit:      limit,
	}
	if since > 0 {
		opts.Since = time.Now().Add(-since)
	}

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	format, _ := cmd.Flags().GetString("export")
	switch format {
	case "":
	case "yaml":
		return store.ExportYAML(ctx, w, opts)
	case "json":
		return store.ExportJSON(ctx, w, opts)
	default:
		return fmt.Errorf("unknown export format %q (use yaml or json)", format)
	}

	outcomes, err := store.List(ctx, opts)
	if err != nil {
		return err
	}
	printOutcomes(w, outcomes)

	sum, err := store.Summarize(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\nJournal summary: %d succeeded, %d failed (total: %d)\n", sum.Succeeded, sum.Failed, sum.Total())
	return nil
}

func printOutcomes(w io.Writer, outcomes []convert.Outcome) {
	for _, o := range outcomes {
		status := "ok"
		if !o.Succeeded() {
			status = string(o.Kind)
		}
		fmt.Fprintf(w, "%s  %-11s  %-20s  %s", o.At.Local().Format(time.DateTime), o.Direction, status, o.SourceName)
		if o.OutputName != "" {
			fmt.Fprintf(w, " -> %s", o.OutputName)
		}
		fmt.Fprintf(w, "  (%s)\n", o.Duration.Round(time.Millisecond))
		if o.Detail != "" {
			fmt.Fprintf(w, "    %s\n", o.Detail)
		}
	}
}
