package warehouse

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarstream/scholarstream/db"
	"github.com/scholarstream/scholarstream/ingest"
)

// Applies the repository's real DDL scripts against SQLite and reads the
// views back through the store, proving the envelope schema and the view
// definitions agree on field names.
func TestViewsAgainstRealSchema(t *testing.T) {
	conn, err := db.Open(filepath.Join(t.TempDir(), "warehouse.db"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, err = db.ApplyScripts(conn, filepath.Join("..", "sql"), db.ApplyOptions{}, nil)
	require.NoError(t, err)

	eventTS := time.Now().UTC().Add(-2 * time.Second)
	ingestTS := eventTS.Add(time.Second)
	year := 2026
	env := ingest.Envelope{
		ID:              "https://openalex.org/W123",
		Title:           "On Streaming Ingestion",
		PublicationYear: &year,
		HostVenue:       "Journal of Pipelines",
		PrimaryAuthor:   "Ada Lovelace",
		Email:           ingest.SyntheticEmail("Ada Lovelace", ""),
		EventTS:         eventTS,
		IngestTS:        ingestTS,
		Source:          "openalex",
		LoadID:          "load-test-1",
	}
	record, err := json.Marshal(env)
	require.NoError(t, err)

	_, err = conn.Exec("INSERT INTO raw_works (record) VALUES (?)", string(record))
	require.NoError(t, err)

	store := NewStore(conn)

	t.Run("latency view", func(t *testing.T) {
		stats, err := store.LatencyStats(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, stats.SampleCount)
		require.True(t, stats.AvgProcessingSeconds.Valid)
		assert.InDelta(t, 1.0, stats.AvgProcessingSeconds.Float64, 0.05)
		assert.NotEmpty(t, stats.WindowStart)
		assert.NotEmpty(t, stats.WindowEnd)
	})

	t.Run("recent works view", func(t *testing.T) {
		works, err := store.RecentWorks(context.Background(), 5)
		require.NoError(t, err)
		require.Len(t, works, 1)

		w := works[0]
		assert.Equal(t, "https://openalex.org/W123", w.ID.String)
		assert.Equal(t, "On Streaming Ingestion", w.Title.String)
		assert.EqualValues(t, 2026, w.PublicationYear.Int64)
		assert.Equal(t, "Journal of Pipelines", w.HostVenue.String)
		assert.Equal(t, "Ada Lovelace", w.PrimaryAuthor.String)
		assert.Equal(t, "openalex", w.Source.String)
		assert.Equal(t, "load-test-1", w.LoadID.String)
	})
}
