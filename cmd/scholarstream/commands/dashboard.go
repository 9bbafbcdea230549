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
	"github.com/scholarstream/scholarstream/db"
	"github.com/scholarstream/scholarstream/warehouse"
)

// DashboardCmd renders the two warehouse read views in the terminal
var DashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the warehouse read views",
	Long: `Render the two read-only warehouse projections: rolling ingest latency
over the trailing 5-minute window, and the most recent normalized
records ordered by landing time.

Examples:
  scholarstream dashboard              # One snapshot
  scholarstream dashboard --limit 50   # Show more recent records
  scholarstream dashboard --watch 5    # Refresh every 5 seconds`,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		watch, _ := cmd.Flags().GetInt("watch")
		return runDashboard(limit, watch)
	},
}

func init() {
	DashboardCmd.Flags().Int("limit", 20, "Number of recent records to show")
	DashboardCmd.Flags().Int("watch", 0, "Refresh interval in seconds (0 = render once)")
}

func runDashboard(limit, watch int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	conn, err := db.Open(cfg.WarehouseDB, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	store := warehouse.NewStore(conn)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := renderOnce(ctx, store, limit); err != nil {
			return err
		}
		if watch <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Duration(watch) * time.Second):
		}
	}
}

func renderOnce(ctx context.Context, store *warehouse.Store, limit int) error {
	stats, err := store.LatencyStats(ctx)
	if err != nil {
		return err
	}
	works, err := store.RecentWorks(ctx, limit)
	if err != nil {
		return err
	}

	pterm.DefaultHeader.Printfln("ScholarStream — warehouse")
	pterm.Println()

	pterm.DefaultSection.Println("Ingest latency (trailing 5 minutes)")
	latency := pterm.TableData{
		{"Samples", "Avg (s)", "Min (s)", "Max (s)", "Window"},
		{
			fmt.Sprint(stats.SampleCount),
			nullSeconds(stats.AvgProcessingSeconds.Valid, stats.AvgProcessingSeconds.Float64),
			nullSeconds(stats.MinProcessingSeconds.Valid, stats.MinProcessingSeconds.Float64),
			nullSeconds(stats.MaxProcessingSeconds.Valid, stats.MaxProcessingSeconds.Float64),
			fmt.Sprintf("%s → %s", stats.WindowStart, stats.WindowEnd),
		},
	}
	pterm.DefaultTable.WithHasHeader().WithData(latency).Render()

	pterm.DefaultSection.Println("Recent works")
	rows := pterm.TableData{{"Landed", "Title", "Author", "Venue", "Year", "Load ID"}}
	for _, w := range works {
		rows = append(rows, []string{
			w.LoadedAt,
			truncate(w.Title.String, 48),
			w.PrimaryAuthor.String,
			truncate(w.HostVenue.String, 32),
			nullYear(w.PublicationYear.Valid, w.PublicationYear.Int64),
			w.LoadID.String,
		})
	}
	pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	pterm.Println()
	return nil
}

func nullSeconds(valid bool, v float64) string {
	if !valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func nullYear(valid bool, v int64) string {
	if !valid {
		return "-"
	}
	return fmt.Sprint(v)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
