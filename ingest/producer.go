package ingest

import (
	"context"
	"encoding/json"
	"iter"
	"time"

	"github.com/scholarstream/scholarstream/errors"
	"github.com/scholarstream/scholarstream/logger"
	"github.com/scholarstream/scholarstream/openalex"
)

const (
	// MaxBatchSize is the Firehose PutRecordBatch ceiling
	MaxBatchSize = 500

	// maxFailureExamples caps the diagnostics kept for the summary
	maxFailureExamples = 3
)

// FailureDiag is one per-record delivery failure reported by the sink
type FailureDiag struct {
	Code    string
	Message string
}

// PutResult is the outcome of one bulk delivery call. Partial failure
// is a normal response shape, not an error.
type PutResult struct {
	FailedCount int
	Failures    []FailureDiag
}

// Sink delivers one batch of serialized records to the delivery stream
type Sink interface {
	PutBatch(ctx context.Context, records [][]byte) (PutResult, error)
}

// WorksSource produces the lazy record sequence the producer consumes.
// openalex.Client.Works satisfies it; tests substitute their own.
type WorksSource func(ctx context.Context, opts openalex.WorksOptions) iter.Seq2[openalex.RawRecord, error]

// Options configure one producer run
type Options struct {
	// PerPage is the OpenAlex page size
	PerPage int

	// UpdatedSince filters works updated since this date (YYYY-MM-DD)
	UpdatedSince string

	// MaxPages stops fetching after this many pages; zero means unbounded
	MaxPages int

	// BatchSize is the number of envelopes per delivery (1-500)
	BatchSize int

	// PageDelay is the pause between OpenAlex pages
	PageDelay time.Duration

	// DryRun computes everything but never invokes the sink
	DryRun bool

	// Source tags every envelope with its producer
	Source string

	// IdentityDomain is the domain of synthesized emails; defaults to
	// ingest.DefaultIdentityDomain
	IdentityDomain string
}

// Counters accumulate across one run. TotalSent counts attempted
// deliveries (incremented by batch size on every non-dry-run put,
// regardless of per-record failures); TotalFailed accumulates the
// sink's reported failed-item counts. Both are monotonic within a run.
type Counters struct {
	Processed   int
	TotalSent   int
	TotalFailed int
	Skipped     int

	// FailureExamples holds up to a few delivery diagnostics for triage
	FailureExamples []FailureDiag
}

// Producer wires fetch, normalize, batch, and deliver into one
// sequential run. Each run owns its own counters and batch buffer; a
// Producer must not be shared across concurrent runs.
type Producer struct {
	source WorksSource
	sink   Sink
	opts   Options
}

// NewProducer validates the options and builds a run-ready producer
func NewProducer(source WorksSource, sink Sink, opts Options) (*Producer, error) {
	if opts.BatchSize < 1 || opts.BatchSize > MaxBatchSize {
		return nil, errors.NewConfigError("batch_size must be between 1 and %d for Firehose PutRecordBatch, got %d", MaxBatchSize, opts.BatchSize)
	}
	if source == nil {
		return nil, errors.NewConfigError("producer requires a works source")
	}
	if sink == nil && !opts.DryRun {
		return nil, errors.NewConfigError("producer requires a delivery sink")
	}
	return &Producer{source: source, sink: sink, opts: opts}, nil
}

// Run consumes the works sequence one record at a time, normalizing and
// batching until the sequence ends, then flushes the remainder.
//
// A raw record that fails validation is skipped with a warning; the run
// continues. Fatal fetch errors and failed delivery calls terminate the
// run with the counters accumulated so far.
func (p *Producer) Run(ctx context.Context) (Counters, error) {
	var counters Counters
	batch := make([]Envelope, 0, p.opts.BatchSize)

	fetchOpts := openalex.WorksOptions{
		PerPage:      p.opts.PerPage,
		UpdatedSince: p.opts.UpdatedSince,
		MaxPages:     p.opts.MaxPages,
		PageDelay:    p.opts.PageDelay,
	}

	for raw, err := range p.source(ctx, fetchOpts) {
		if err != nil {
			return counters, errors.Wrap(err, "fetch works")
		}

		now := time.Now().UTC()
		env, err := Normalize(raw, now, now, p.opts.Source, p.opts.IdentityDomain)
		if err != nil {
			if !errors.IsValidationError(err) {
				return counters, err
			}
			// Policy: malformed records are skipped, not fatal
			counters.Skipped++
			logger.Warnw("Skipping malformed work", "error", err.Error())
			continue
		}

		batch = append(batch, env)
		if len(batch) >= p.opts.BatchSize {
			if err := p.flush(ctx, batch, &counters); err != nil {
				return counters, err
			}
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := p.flush(ctx, batch, &counters); err != nil {
			return counters, err
		}
	}

	return counters, nil
}

// flush serializes a batch and ships it, folding the sink's report into
// the counters. In dry-run mode the sink is never invoked.
func (p *Producer) flush(ctx context.Context, batch []Envelope, counters *Counters) error {
	records := make([][]byte, 0, len(batch))
	for i := range batch {
		data, err := json.Marshal(&batch[i])
		if err != nil {
			return errors.Wrap(err, "serialize envelope")
		}
		records = append(records, data)
	}
	counters.Processed += len(records)

	if p.opts.DryRun {
		logger.Infow("Dry-run: would send batch", "records", len(records))
		return nil
	}

	result, err := p.sink.PutBatch(ctx, records)
	if err != nil {
		return errors.Wrap(err, "deliver batch")
	}

	counters.TotalSent += len(records)
	counters.TotalFailed += result.FailedCount
	for _, diag := range result.Failures {
		if len(counters.FailureExamples) >= maxFailureExamples {
			break
		}
		counters.FailureExamples = append(counters.FailureExamples, diag)
	}

	if result.FailedCount > 0 {
		logger.Warnw("Delivery batch had failures",
			"batch_size", len(records),
			"failed", result.FailedCount,
		)
	}
	return nil
}
