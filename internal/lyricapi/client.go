// Package lyricapi is a client for NetEase-compatible music API servers
// exposing the /lyric endpoint.
package lyricapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/llehouerou/cadence/internal/lyrics"
)

// Verify Client implements lyrics.Fetcher at compile time.
var _ lyrics.Fetcher = (*Client)(nil)

// ErrNoBaseURL is returned by New without a base URL.
var ErrNoBaseURL = errors.New("lyric api base url not set")

const (
	defaultTimeout  = 10 * time.Second
	defaultRate     = 2
	defaultBurst    = 1
	maxResponseSize = 4 << 20
	userAgent       = "cadence/1.0"
)

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerSecond limits outgoing requests. Zero selects the default;
	// a negative value disables limiting.
	RequestsPerSecond float64
	Burst             int
	HTTPClient        *http.Client
	Logger            logrus.FieldLogger
}

// Client fetches lyric tracks by song ID.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        logrus.FieldLogger
}

// New creates a client for the API server at opts.BaseURL.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, ErrNoBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	limit := rate.Limit(opts.RequestsPerSecond)
	switch {
	case opts.RequestsPerSecond == 0:
		limit = defaultRate
	case opts.RequestsPerSecond < 0:
		limit = rate.Inf
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	return &Client{
		baseURL:    base,
		httpClient: hc,
		limiter:    rate.NewLimiter(limit, burst),
		log:        log.WithField("component", "lyricapi"),
	}, nil
}

// Lyric fetches the lyric payload of a song.
func (c *Client) Lyric(ctx context.Context, id string) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	params := url.Values{}
	params.Set("id", id)
	reqURL := c.baseURL + "/lyric?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	c.log.WithFields(logrus.Fields{
		"id":       id,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("lyric request")

	if resp.StatusCode == http.StatusNotFound {
		return nil, lyrics.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var out Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Code != 0 && out.Code != http.StatusOK {
		return nil, &APIError{Code: out.Code, Message: out.Message}
	}
	return &out, nil
}

// Fetch implements lyrics.Fetcher using the track ID as the remote song ID.
func (c *Client) Fetch(ctx context.Context, track lyrics.TrackRef) (lyrics.RawTracks, error) {
	if track.ID == "" {
		return lyrics.RawTracks{}, lyrics.ErrNotFound
	}
	resp, err := c.Lyric(ctx, track.ID)
	if err != nil {
		return lyrics.RawTracks{}, err
	}
	raw := resp.Raw()
	if raw.Empty() {
		return lyrics.RawTracks{}, lyrics.ErrNotFound
	}
	return raw, nil
}
