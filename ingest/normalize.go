package ingest

import (
	"encoding/json"
	"time"

	"github.com/scholarstream/scholarstream/errors"
	"github.com/scholarstream/scholarstream/openalex"
)

// ParseWork decodes a raw record into a typed Work. The decode is
// permissive: unrecognized keys are ignored so upstream schema growth
// never breaks the pipeline. A declared field carrying an incompatible
// type yields an error marked errors.ErrValidation, distinguishable
// from transport failures.
func ParseWork(raw openalex.RawRecord) (*Work, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "encode raw record"), errors.ErrValidation)
	}

	var w Work
	if err := json.Unmarshal(data, &w); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, errors.Mark(
				errors.Newf("field %q has incompatible type (got %s)", typeErr.Field, typeErr.Value),
				errors.ErrValidation,
			)
		}
		return nil, errors.Mark(errors.Wrap(err, "decode raw record"), errors.ErrValidation)
	}
	return &w, nil
}

// Normalize maps one raw record to its canonical envelope. Both
// timestamps are stamped by the caller at the moment of normalization.
// When the record carries no explicit email, a deterministic synthetic
// identity is derived from the primary author (or the fixed fallback
// seed when no author name is available).
func Normalize(raw openalex.RawRecord, eventTS, ingestTS time.Time, source, identityDomain string) (Envelope, error) {
	w, err := ParseWork(raw)
	if err != nil {
		return Envelope{}, err
	}

	email := w.Email
	if email == "" {
		email = SyntheticEmail(w.PrimaryAuthor(), identityDomain)
	}

	return NewEnvelope(w, eventTS, ingestTS, email, source), nil
}
