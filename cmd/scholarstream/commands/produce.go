// Package commands holds the scholarstream CLI commands.
package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/scholarstream/scholarstream/config"
	"github.com/scholarstream/scholarstream/firehose"
	"github.com/scholarstream/scholarstream/ingest"
	"github.com/scholarstream/scholarstream/logger"
	"github.com/scholarstream/scholarstream/openalex"
)

// RootCmd is the producer itself: fetch OpenAlex works, normalize them
// into canonical envelopes, and ship NDJSON batches to Firehose.
var RootCmd = &cobra.Command{
	Use:   "scholarstream",
	Short: "OpenAlex → Firehose ingestion producer",
	Long: `ScholarStream fetches OpenAlex works with cursor pagination, normalizes
them into a canonical envelope, and sends NDJSON batches to an Amazon
Kinesis Data Firehose delivery stream in front of the warehouse.

Configuration comes from the environment (OPENALEX_EMAIL, FIREHOSE_NAME,
AWS_REGION, PRODUCER_BATCH_SIZE, PRODUCER_SLEEP_SECONDS, SOURCE_TAG);
flags override the environment.

Examples:
  scholarstream --dry-run --batch-size 3 --max-pages 1
  scholarstream --batch-size 50 --batch-sleep 1
  scholarstream --updated-since 2026-08-01 --max-pages 10

Related commands:
  scholarstream sql        # Apply warehouse DDL scripts in order
  scholarstream dashboard  # Render the warehouse read views
  scholarstream version    # Show build information`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProduce(cmd)
	},
}

func init() {
	RootCmd.Flags().Int("per-page", 50, "OpenAlex page size")
	RootCmd.Flags().String("updated-since", "", "Filter works updated since (YYYY-MM-DD)")
	RootCmd.Flags().Int("max-pages", 0, "Stop after N pages (0 = until the cursor runs out)")
	RootCmd.Flags().Int("batch-size", 0, "Firehose batch size (<=500). Default from env PRODUCER_BATCH_SIZE or 50")
	RootCmd.Flags().Float64("batch-sleep", 0, "Sleep between OpenAlex pages (seconds). Default from env PRODUCER_SLEEP_SECONDS or 2")
	RootCmd.Flags().Bool("dry-run", false, "Do not send to Firehose, just print counts")
}

func runProduce(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override .env defaults, but env stays the fallback
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	}
	if cmd.Flags().Changed("batch-sleep") {
		cfg.SleepSeconds, _ = cmd.Flags().GetFloat64("batch-sleep")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	perPage, _ := cmd.Flags().GetInt("per-page")
	updatedSince, _ := cmd.Flags().GetString("updated-since")
	maxPages, _ := cmd.Flags().GetInt("max-pages")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	pterm.Info.Printfln("Producer starting | stream=%s | region=%s | per_page=%d | batch=%d | sleep=%gs | dry_run=%v",
		cfg.FirehoseName, cfg.AWSRegion, perPage, cfg.BatchSize, cfg.SleepSeconds, dryRun)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := openalex.NewClient(openalex.Config{
		BaseURL: cfg.OpenAlexBaseURL,
		Mailto:  cfg.OpenAlexEmail,
	})
	if err != nil {
		return err
	}

	var sink ingest.Sink
	if !dryRun {
		fhSink, err := firehose.NewSink(ctx, cfg.FirehoseName, cfg.AWSRegion)
		if err != nil {
			return err
		}
		sink = fhSink
	}

	producer, err := ingest.NewProducer(client.Works, sink, ingest.Options{
		PerPage:      perPage,
		UpdatedSince: updatedSince,
		MaxPages:     maxPages,
		BatchSize:    cfg.BatchSize,
		PageDelay:    time.Duration(cfg.SleepSeconds * float64(time.Second)),
		DryRun:       dryRun,
		Source:       cfg.Source,
	})
	if err != nil {
		return err
	}

	counters, err := producer.Run(ctx)
	if err != nil {
		logger.Errorw("Producer run failed", "error", err.Error())
		return err
	}

	printSummary(counters, dryRun)
	return nil
}

func printSummary(counters ingest.Counters, dryRun bool) {
	pterm.Println()
	table := pterm.TableData{
		{"Processed", "Sent", "Failed", "Skipped"},
		{
			fmt.Sprint(counters.Processed),
			fmt.Sprint(counters.TotalSent),
			fmt.Sprint(counters.TotalFailed),
			fmt.Sprint(counters.Skipped),
		},
	}
	pterm.DefaultTable.WithHasHeader().WithData(table).Render()

	if dryRun {
		pterm.Warning.Printfln("Dry-run: nothing was sent to Firehose")
	}
	if counters.TotalFailed > 0 {
		pterm.Warning.Printfln("Some records failed. Check Firehose CloudWatch Logs and the S3 error prefix for details.")
		for _, diag := range counters.FailureExamples {
			pterm.Printfln("  - %s: %s", diag.Code, diag.Message)
		}
	}
}
