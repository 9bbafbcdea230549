package ingest

import (
	"context"
	"encoding/json"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarstream/scholarstream/errors"
	"github.com/scholarstream/scholarstream/openalex"
)

// sliceSource yields the given records, then an optional terminal error
func sliceSource(records []openalex.RawRecord, terminalErr error) WorksSource {
	return func(ctx context.Context, opts openalex.WorksOptions) iter.Seq2[openalex.RawRecord, error] {
		return func(yield func(openalex.RawRecord, error) bool) {
			for _, r := range records {
				if !yield(r, nil) {
					return
				}
			}
			if terminalErr != nil {
				yield(nil, terminalErr)
			}
		}
	}
}

// stubSink records every batch and replays canned results
type stubSink struct {
	batches [][][]byte
	results []PutResult
	err     error
}

func (s *stubSink) PutBatch(ctx context.Context, records [][]byte) (PutResult, error) {
	s.batches = append(s.batches, records)
	if s.err != nil {
		return PutResult{}, s.err
	}
	if len(s.results) >= len(s.batches) {
		return s.results[len(s.batches)-1], nil
	}
	return PutResult{}, nil
}

func rawWorks(n int) []openalex.RawRecord {
	records := make([]openalex.RawRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, openalex.RawRecord{
			"id":    string(rune('A' + i)),
			"title": "work",
		})
	}
	return records
}

func TestNewProducerValidation(t *testing.T) {
	source := sliceSource(nil, nil)

	t.Run("batch size bounds", func(t *testing.T) {
		for _, size := range []int{0, -5, 501} {
			_, err := NewProducer(source, &stubSink{}, Options{BatchSize: size, Source: "openalex"})
			require.Error(t, err, "batch size %d", size)
			assert.True(t, errors.IsConfigError(err))
		}
	})

	t.Run("sink required unless dry-run", func(t *testing.T) {
		_, err := NewProducer(source, nil, Options{BatchSize: 10, Source: "openalex"})
		require.Error(t, err)

		_, err = NewProducer(source, nil, Options{BatchSize: 10, Source: "openalex", DryRun: true})
		require.NoError(t, err)
	})
}

func TestRunEndToEnd(t *testing.T) {
	// 3 records, batch size 2: first put carries 2, second carries 1.
	// The second put reports one failed record.
	sink := &stubSink{results: []PutResult{
		{},
		{FailedCount: 1, Failures: []FailureDiag{{Code: "ServiceUnavailableException", Message: "slow down"}}},
	}}

	p, err := NewProducer(sliceSource(rawWorks(3), nil), sink, Options{
		BatchSize: 2,
		Source:    "openalex",
	})
	require.NoError(t, err)

	counters, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.batches, 2)
	assert.Len(t, sink.batches[0], 2)
	assert.Len(t, sink.batches[1], 1)

	assert.Equal(t, 3, counters.Processed)
	assert.Equal(t, 3, counters.TotalSent)
	assert.Equal(t, 1, counters.TotalFailed)
	require.Len(t, counters.FailureExamples, 1)
	assert.Equal(t, "ServiceUnavailableException", counters.FailureExamples[0].Code)
}

func TestRunPreservesOrderAndLoadIDs(t *testing.T) {
	sink := &stubSink{}
	p, err := NewProducer(sliceSource(rawWorks(5), nil), sink, Options{BatchSize: 2, Source: "openalex"})
	require.NoError(t, err)

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	var ids []string
	loadIDs := map[string]bool{}
	for _, batch := range sink.batches {
		for _, record := range batch {
			var env map[string]any
			require.NoError(t, json.Unmarshal(record, &env))
			ids = append(ids, env["id"].(string))

			loadID, ok := env["_LOAD_ID"].(string)
			require.True(t, ok)
			require.NotEmpty(t, loadID)
			assert.False(t, loadIDs[loadID], "load ids must differ across envelopes")
			loadIDs[loadID] = true
		}
	}
	assert.Equal(t, []string{"A", "B", "C", "D", "E"}, ids)
}

func TestRunDryRun(t *testing.T) {
	sink := &stubSink{}
	p, err := NewProducer(sliceSource(rawWorks(5), nil), sink, Options{
		BatchSize: 2,
		Source:    "openalex",
		DryRun:    true,
	})
	require.NoError(t, err)

	counters, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, sink.batches, "dry-run must never invoke the sink")
	assert.Equal(t, 5, counters.Processed)
	assert.Equal(t, 0, counters.TotalSent)
	assert.Equal(t, 0, counters.TotalFailed)
}

func TestRunSkipsMalformedRecords(t *testing.T) {
	records := []openalex.RawRecord{
		{"id": "A"},
		{"id": "B", "publication_year": "not a year"},
		{"id": "C"},
	}
	sink := &stubSink{}
	p, err := NewProducer(sliceSource(records, nil), sink, Options{BatchSize: 10, Source: "openalex"})
	require.NoError(t, err)

	counters, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, counters.Skipped)
	assert.Equal(t, 2, counters.Processed)
	assert.Equal(t, 2, counters.TotalSent)
	require.Len(t, sink.batches, 1)
	assert.Len(t, sink.batches[0], 2)
}

func TestRunFetchErrorTerminates(t *testing.T) {
	fetchErr := errors.Mark(errors.New("upstream exploded"), errors.ErrFetch)
	sink := &stubSink{}
	p, err := NewProducer(sliceSource(rawWorks(2), fetchErr), sink, Options{BatchSize: 2, Source: "openalex"})
	require.NoError(t, err)

	counters, err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFetchError(err))

	// The full batch before the error was still delivered
	assert.Equal(t, 2, counters.TotalSent)
}

func TestRunSinkErrorTerminates(t *testing.T) {
	sink := &stubSink{err: errors.New("stream not found")}
	p, err := NewProducer(sliceSource(rawWorks(2), nil), sink, Options{BatchSize: 2, Source: "openalex"})
	require.NoError(t, err)

	counters, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, counters.TotalSent)
}

func TestRunFailureExamplesCapped(t *testing.T) {
	manyFailures := PutResult{
		FailedCount: 5,
		Failures: []FailureDiag{
			{Code: "E1"}, {Code: "E2"}, {Code: "E3"}, {Code: "E4"}, {Code: "E5"},
		},
	}
	sink := &stubSink{results: []PutResult{manyFailures}}
	p, err := NewProducer(sliceSource(rawWorks(5), nil), sink, Options{BatchSize: 5, Source: "openalex"})
	require.NoError(t, err)

	counters, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, counters.TotalFailed)
	assert.Len(t, counters.FailureExamples, maxFailureExamples)
}
