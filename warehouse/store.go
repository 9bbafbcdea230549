// Package warehouse reads the two projections the dashboard renders.
// It is strictly read-only; the producer's envelope schema is the sole
// source of the data these views summarize.
package warehouse

import (
	"context"
	"database/sql"

	"github.com/scholarstream/scholarstream/errors"
)

// LatencyStats summarizes ingest latency over the trailing 5-minute window
type LatencyStats struct {
	AvgProcessingSeconds sql.NullFloat64
	MinProcessingSeconds sql.NullFloat64
	MaxProcessingSeconds sql.NullFloat64
	SampleCount          int
	WindowStart          string
	WindowEnd            string
}

// RecentWork is one row of the recent-records projection
type RecentWork struct {
	ID              sql.NullString
	DOI             sql.NullString
	Title           sql.NullString
	PublicationYear sql.NullInt64
	HostVenue       sql.NullString
	PrimaryAuthor   sql.NullString
	Email           sql.NullString
	EventTS         sql.NullString
	IngestTS        sql.NullString
	Source          sql.NullString
	LoadID          sql.NullString
	LoadedAt        string
}

// Store wraps a warehouse connection for the dashboard's reads
type Store struct {
	db *sql.DB
}

// NewStore wraps an open warehouse database
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// LatencyStats reads the rolling latency view
func (s *Store) LatencyStats(ctx context.Context) (*LatencyStats, error) {
	const query = `
		SELECT avg_processing_seconds, min_processing_seconds, max_processing_seconds,
		       sample_count, window_start, window_end
		FROM v_ingest_latency`

	var stats LatencyStats
	err := s.db.QueryRowContext(ctx, query).Scan(
		&stats.AvgProcessingSeconds,
		&stats.MinProcessingSeconds,
		&stats.MaxProcessingSeconds,
		&stats.SampleCount,
		&stats.WindowStart,
		&stats.WindowEnd,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query ingest latency view")
	}
	return &stats, nil
}

// RecentWorks reads the most recent normalized records, newest first
func (s *Store) RecentWorks(ctx context.Context, limit int) ([]RecentWork, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT id, doi, title, publication_year, host_venue, primary_author,
		       email, event_ts, ingest_ts, source, load_id, loaded_at
		FROM v_recent_works
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query recent works view")
	}
	defer rows.Close()

	var works []RecentWork
	for rows.Next() {
		var w RecentWork
		if err := rows.Scan(
			&w.ID, &w.DOI, &w.Title, &w.PublicationYear, &w.HostVenue,
			&w.PrimaryAuthor, &w.Email, &w.EventTS, &w.IngestTS,
			&w.Source, &w.LoadID, &w.LoadedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan recent work")
		}
		works = append(works, w)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate recent works")
	}
	return works, nil
}
