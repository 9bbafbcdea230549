// Package openalex fetches works from the OpenAlex REST API using cursor
// pagination.
//
// The client exposes a lazy, pull-based sequence over /works. Rate limiting
// (HTTP 429) is absorbed inside the sequence by honoring Retry-After and
// retrying the same cursor; any other non-2xx status terminates the
// sequence with a fetch error. A new call to Works always starts a fresh
// cursor.
package openalex

import (
	"context"
	"encoding/json"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/scholarstream/scholarstream/errors"
	"github.com/scholarstream/scholarstream/internal/version"
	"github.com/scholarstream/scholarstream/logger"
)

const (
	// DefaultTimeout bounds each page request
	DefaultTimeout = 30 * time.Second

	// DefaultRetryAfter is the backoff applied to a 429 response that
	// carries no Retry-After header
	DefaultRetryAfter = 2 * time.Second

	// initialCursor is the sentinel OpenAlex expects on the first page
	initialCursor = "*"
)

// RawRecord is a single work as returned by OpenAlex, before any
// normalization. No shape is guaranteed beyond being a JSON object.
type RawRecord map[string]any

// Config holds OpenAlex client configuration
type Config struct {
	// BaseURL is the API root, e.g. https://api.openalex.org
	BaseURL string

	// Mailto is the mandatory contact address for polite-pool access
	Mailto string

	// HTTPClient overrides the default client; used by tests
	HTTPClient *http.Client
}

// Client talks to the OpenAlex works endpoint
type Client struct {
	baseURL    string
	mailto     string
	httpClient *http.Client
}

// NewClient creates an OpenAlex API client. The contact address is
// required; OpenAlex routes identified callers into its polite pool.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Mailto == "" {
		return nil, errors.NewConfigError("OpenAlex requires a contact email (mailto). Set OPENALEX_EMAIL")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		mailto:     cfg.Mailto,
		httpClient: httpClient,
	}, nil
}

// WorksOptions control a single pass over the works collection
type WorksOptions struct {
	// PerPage is the page size requested from OpenAlex
	PerPage int

	// UpdatedSince filters to works updated on or after this date (YYYY-MM-DD)
	UpdatedSince string

	// MaxPages stops the sequence after this many successful pages; zero
	// means unbounded
	MaxPages int

	// PageDelay is the pause between successive page requests
	PageDelay time.Duration

	// ExtraFilters are merged verbatim into the query string
	ExtraFilters url.Values
}

// worksPage is the subset of the OpenAlex response the fetcher reads
type worksPage struct {
	Results []RawRecord `json:"results"`
	Meta    struct {
		NextCursor string `json:"next_cursor"`
	} `json:"meta"`
}

// Works iterates the works collection with cursor pagination, yielding
// records in source order. The sequence is finite: it ends when OpenAlex
// stops returning a next cursor or when MaxPages successful pages have
// been consumed. A fatal transport error is yielded once and ends the
// sequence; 429 responses are retried in place and never surfaced.
//
// The sequence is not restartable mid-flight; each call starts over at
// the initial cursor. Stopping early is done by the consumer simply not
// pulling further.
func (c *Client) Works(ctx context.Context, opts WorksOptions) iter.Seq2[RawRecord, error] {
	return func(yield func(RawRecord, error) bool) {
		cursor := initialCursor
		pageCount := 0

		// Paces page requests: the first Wait passes immediately, each
		// subsequent one sits out the configured inter-page delay.
		interval := rate.Inf
		if opts.PageDelay > 0 {
			interval = rate.Every(opts.PageDelay)
		}
		limiter := rate.NewLimiter(interval, 1)

		for {
			if err := limiter.Wait(ctx); err != nil {
				yield(nil, errors.Mark(err, errors.ErrFetch))
				return
			}

			page, retry, err := c.fetchPage(ctx, cursor, opts)
			if err != nil {
				yield(nil, err)
				return
			}
			if page == nil {
				logger.Warnw("OpenAlex rate limited, backing off",
					"retry_after", retry.String(),
					"page", pageCount,
				)
				if err := sleepCtx(ctx, retry); err != nil {
					yield(nil, errors.Mark(err, errors.ErrFetch))
					return
				}
				// Same cursor, not counted as a page
				continue
			}

			for _, item := range page.Results {
				if !yield(item, nil) {
					return
				}
			}

			if page.Meta.NextCursor == "" {
				return
			}
			cursor = page.Meta.NextCursor

			pageCount++
			if opts.MaxPages > 0 && pageCount >= opts.MaxPages {
				return
			}
		}
	}
}

// fetchPage issues one paged request. A nil page with a nil error means
// the upstream rate-limited us: back off for the returned duration and
// reissue the same cursor.
func (c *Client) fetchPage(ctx context.Context, cursor string, opts WorksOptions) (*worksPage, time.Duration, error) {
	perPage := opts.PerPage
	if perPage <= 0 {
		perPage = 50
	}

	params := url.Values{}
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("mailto", c.mailto)
	params.Set("cursor", cursor)
	if opts.UpdatedSince != "" {
		params.Set("from_updated_date", opts.UpdatedSince)
	}
	for key, values := range opts.ExtraFilters {
		for _, v := range values {
			params.Add(key, v)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/works?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, errors.Mark(errors.Wrap(err, "build works request"), errors.ErrFetch)
	}
	req.Header.Set("User-Agent", version.UserAgent(c.mailto))
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.Mark(errors.Wrap(err, "works request failed"), errors.ErrFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, 0, errors.Mark(&StatusError{StatusCode: resp.StatusCode, Body: string(body)}, errors.ErrFetch)
	}

	var page worksPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, 0, errors.Mark(errors.Wrap(err, "decode works page"), errors.ErrFetch)
	}
	return &page, 0, nil
}

// parseRetryAfter reads a Retry-After header in seconds, falling back to
// the default backoff when absent or unparseable
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return DefaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return DefaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}

// sleepCtx pauses for d, waking early if ctx is cancelled
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
