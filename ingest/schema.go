// Package ingest turns raw OpenAlex works into canonical envelopes and
// drives the fetch → normalize → batch → deliver pipeline.
package ingest

import (
	"time"

	"github.com/google/uuid"
)

// hostVenue is the nested venue object on a raw work
type hostVenue struct {
	DisplayName string `json:"display_name"`
}

// authorRef is the author object inside an authorship entry
type authorRef struct {
	DisplayName string `json:"display_name"`
}

// authorship is one entry of a work's authorships list
type authorship struct {
	Author *authorRef `json:"author"`
}

// Work is the typed subset of an OpenAlex work the pipeline reads. All
// fields are optional; unknown fields on the raw record are ignored.
type Work struct {
	ID              string       `json:"id"`
	DOI             string       `json:"doi"`
	Title           string       `json:"title"`
	PublicationYear *int         `json:"publication_year"`
	HostVenue       *hostVenue   `json:"host_venue"`
	Authorships     []authorship `json:"authorships"`
	Email           string       `json:"email"`
}

// PrimaryAuthor returns the display name of the first authorship's
// author, or empty when the work has no usable authorship.
func (w *Work) PrimaryAuthor() string {
	if len(w.Authorships) == 0 || w.Authorships[0].Author == nil {
		return ""
	}
	return w.Authorships[0].Author.DisplayName
}

// HostVenueName returns the display name of the nested venue, or empty.
func (w *Work) HostVenueName() string {
	if w.HostVenue == nil {
		return ""
	}
	return w.HostVenue.DisplayName
}

// Envelope is the canonical record shipped to Firehose and summarized by
// the warehouse views. Construct with NewEnvelope; envelopes are
// immutable after construction.
//
// LoadID serializes under the reserved metadata key _LOAD_ID, separate
// from the business fields, so the warehouse loader can track each
// delivered record individually.
type Envelope struct {
	ID              string    `json:"id,omitempty"`
	DOI             string    `json:"doi,omitempty"`
	Title           string    `json:"title,omitempty"`
	PublicationYear *int      `json:"publication_year,omitempty"`
	HostVenue       string    `json:"host_venue,omitempty"`
	PrimaryAuthor   string    `json:"primary_author,omitempty"`
	Email           string    `json:"email"`
	EventTS         time.Time `json:"event_ts"`
	IngestTS        time.Time `json:"ingest_ts"`
	Source          string    `json:"source"`
	LoadID          string    `json:"_LOAD_ID"`
}

// NewEnvelope builds the canonical envelope for a work. LoadID is a
// fresh unique token generated here, exactly once per envelope, and is
// never derived from record content.
func NewEnvelope(w *Work, eventTS, ingestTS time.Time, email, source string) Envelope {
	return Envelope{
		ID:              w.ID,
		DOI:             w.DOI,
		Title:           w.Title,
		PublicationYear: w.PublicationYear,
		HostVenue:       w.HostVenueName(),
		PrimaryAuthor:   w.PrimaryAuthor(),
		Email:           email,
		EventTS:         eventTS,
		IngestTS:        ingestTS,
		Source:          source,
		LoadID:          uuid.NewString(),
	}
}
