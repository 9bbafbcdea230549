package commands

import (
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/scholarstream/scholarstream/config"
	"github.com/scholarstream/scholarstream/db"
	"github.com/scholarstream/scholarstream/logger"
)

// SqlCmd applies the warehouse DDL scripts in order
var SqlCmd = &cobra.Command{
	Use:   "sql",
	Short: "Apply warehouse SQL scripts in numeric prefix order",
	Long: `Apply the .sql scripts that define the warehouse landing table and
read views, in numeric prefix order (01_, 02_, ...).

The target database comes from WAREHOUSE_DB (default scholarstream.db).

Examples:
  scholarstream sql                             # Apply every script under ./sql
  scholarstream sql --dry-run                   # List the execution order only
  scholarstream sql --files 02_views.sql        # Apply specific scripts, order preserved
  scholarstream sql --continue-on-error         # Keep going past a failing script`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")
		files, _ := cmd.Flags().GetStringSlice("files")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		continueOnError, _ := cmd.Flags().GetBool("continue-on-error")

		return runSQL(dir, files, dryRun, continueOnError)
	},
}

func init() {
	SqlCmd.Flags().String("dir", "sql", "Directory containing the .sql scripts")
	SqlCmd.Flags().StringSlice("files", nil, "Specific scripts to execute (order preserved)")
	SqlCmd.Flags().Bool("dry-run", false, "List the execution order without executing")
	SqlCmd.Flags().Bool("continue-on-error", false, "Continue with the next script after a failure")
}

func runSQL(dir string, files []string, dryRun, continueOnError bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if dryRun {
		scripts, err := db.ResolveScripts(dir, files)
		if err != nil {
			return err
		}
		pterm.Info.Printfln("Execution order (%d scripts):", len(scripts))
		for _, s := range scripts {
			pterm.Printfln("  - %s", filepath.Base(s))
		}
		return nil
	}

	conn, err := db.Open(cfg.WarehouseDB, logger.Logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	applied, err := db.ApplyScripts(conn, dir, db.ApplyOptions{
		Files:           files,
		ContinueOnError: continueOnError,
	}, logger.Logger)
	if err != nil {
		return err
	}

	pterm.Success.Printfln("Applied %d scripts to %s", len(applied), cfg.WarehouseDB)
	return nil
}
