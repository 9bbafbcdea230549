package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/scholarstream/scholarstream/errors"
)

var numericPrefix = regexp.MustCompile(`^(\d+)`)

// ApplyOptions control a script run
type ApplyOptions struct {
	// Files restricts the run to specific scripts, order preserved.
	// Empty means every *.sql file in the directory.
	Files []string

	// DryRun lists the execution order without executing anything
	DryRun bool

	// ContinueOnError moves on to the next script after a failure
	// instead of stopping
	ContinueOnError bool
}

// ResolveScripts returns the scripts a run would execute, in order.
// Without an explicit selection, *.sql files in dir are ordered by their
// numeric prefix (01_, 02_, ...), then by name.
func ResolveScripts(dir string, selected []string) ([]string, error) {
	if len(selected) > 0 {
		paths := make([]string, 0, len(selected))
		for _, name := range selected {
			path := name
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, name)
			}
			if _, err := os.Stat(path); err != nil {
				return nil, errors.Wrapf(err, "script %q not found", name)
			}
			paths = append(paths, path)
		}
		return paths, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read script directory %q", dir)
	}

	var scripts []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".sql") {
			continue
		}
		scripts = append(scripts, filepath.Join(dir, entry.Name()))
	}
	sort.Slice(scripts, func(i, j int) bool {
		ni, nj := scriptOrder(scripts[i]), scriptOrder(scripts[j])
		if ni != nj {
			return ni < nj
		}
		return scripts[i] < scripts[j]
	})
	return scripts, nil
}

// scriptOrder extracts the numeric prefix of a script name; files
// without one sort last
func scriptOrder(path string) int {
	m := numericPrefix.FindString(filepath.Base(path))
	if m == "" {
		return 1 << 20
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 1 << 20
	}
	return n
}

// ApplyScripts executes SQL scripts against the warehouse in order.
// Each script may hold multiple statements. Returns the scripts that
// were applied successfully.
func ApplyScripts(db *sql.DB, dir string, opts ApplyOptions, logger *zap.SugaredLogger) ([]string, error) {
	scripts, err := ResolveScripts(dir, opts.Files)
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return nil, errors.Newf("no .sql files found in %q", dir)
	}

	if logger != nil {
		logger.Infow("Execution order", "scripts", len(scripts))
		for _, s := range scripts {
			logger.Infow("  - " + filepath.Base(s))
		}
	}

	if opts.DryRun {
		return nil, nil
	}

	var applied []string
	for _, script := range scripts {
		if err := executeScript(db, script, logger); err != nil {
			if logger != nil {
				logger.Errorw("Script failed",
					"script", filepath.Base(script),
					"error", err.Error(),
				)
			}
			if opts.ContinueOnError {
				continue
			}
			return applied, errors.Wrapf(err, "execute %s", filepath.Base(script))
		}
		applied = append(applied, script)
	}
	return applied, nil
}

// executeScript runs every statement of one script inside a transaction,
// so a half-applied script never leaves the warehouse inconsistent
func executeScript(db *sql.DB, path string, logger *zap.SugaredLogger) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read script")
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	if _, err := tx.Exec(string(content)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}

	if logger != nil {
		logger.Infow("Script applied", "script", filepath.Base(path))
	}
	return nil
}
