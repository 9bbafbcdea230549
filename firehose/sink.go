// Package firehose ships record batches to an Amazon Kinesis Data
// Firehose delivery stream, the durable transport in front of the
// warehouse loader.
package firehose

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsfirehose "github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"

	"github.com/scholarstream/scholarstream/errors"
	"github.com/scholarstream/scholarstream/ingest"
)

// API is the subset of the Firehose client the sink uses. Tests stub it.
type API interface {
	PutRecordBatch(ctx context.Context, params *awsfirehose.PutRecordBatchInput, optFns ...func(*awsfirehose.Options)) (*awsfirehose.PutRecordBatchOutput, error)
}

// Sink delivers batches with a single PutRecordBatch call per invocation.
// Transport-level retries (standard mode, 5 attempts) live in the AWS
// client configuration; the sink itself never retries.
type Sink struct {
	client     API
	streamName string
}

// NewSink builds a sink against the real Firehose service in the given
// region. The underlying connection is reused across calls within a run.
func NewSink(ctx context.Context, streamName, region string) (*Sink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithRetryMode(aws.RetryModeStandard),
		awsconfig.WithRetryMaxAttempts(5),
	)
	if err != nil {
		return nil, errors.Wrap(err, "load AWS configuration")
	}
	return &Sink{
		client:     awsfirehose.NewFromConfig(cfg),
		streamName: streamName,
	}, nil
}

// NewSinkWithClient wires a caller-provided Firehose API; used by tests
func NewSinkWithClient(client API, streamName string) *Sink {
	return &Sink{client: client, streamName: streamName}
}

// PutBatch ships one batch of pre-serialized records. Each record goes
// out as a single NDJSON line: the JSON payload, UTF-8 encoded, with a
// trailing newline, which is the wire contract the warehouse loader
// consumes.
//
// Batches above ingest.MaxBatchSize are rejected outright rather than
// truncated. Per-record failures are a normal part of the result, not
// an error.
func (s *Sink) PutBatch(ctx context.Context, records [][]byte) (ingest.PutResult, error) {
	if len(records) == 0 {
		return ingest.PutResult{}, nil
	}
	if len(records) > ingest.MaxBatchSize {
		return ingest.PutResult{}, errors.Wrapf(errors.ErrBatchTooLarge,
			"%d records exceed the PutRecordBatch limit of %d", len(records), ingest.MaxBatchSize)
	}

	entries := make([]types.Record, 0, len(records))
	for _, record := range records {
		data := make([]byte, 0, len(record)+1)
		data = append(data, record...)
		data = append(data, '\n')
		entries = append(entries, types.Record{Data: data})
	}

	out, err := s.client.PutRecordBatch(ctx, &awsfirehose.PutRecordBatchInput{
		DeliveryStreamName: aws.String(s.streamName),
		Records:            entries,
	})
	if err != nil {
		return ingest.PutResult{}, errors.Wrapf(err, "put record batch to %q", s.streamName)
	}

	result := ingest.PutResult{
		FailedCount: int(aws.ToInt32(out.FailedPutCount)),
	}
	for _, entry := range out.RequestResponses {
		if entry.ErrorCode == nil && entry.ErrorMessage == nil {
			continue
		}
		result.Failures = append(result.Failures, ingest.FailureDiag{
			Code:    aws.ToString(entry.ErrorCode),
			Message: aws.ToString(entry.ErrorMessage),
		})
	}
	return result, nil
}
