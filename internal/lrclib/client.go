// Package lrclib provides a client for the lrclib.net lyrics API.
package lrclib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/llehouerou/cadence/internal/lyrics"
)

// Verify Client implements lyrics.Fetcher at compile time.
var _ lyrics.Fetcher = (*Client)(nil)

// ErrNotFound is returned when no lyrics are found. It matches
// lyrics.ErrNotFound.
var ErrNotFound = fmt.Errorf("lrclib: %w", lyrics.ErrNotFound)

// ErrMissingQuery is returned by Fetch when the track has no artist or title.
var ErrMissingQuery = errors.New("artist and title required")

const (
	DefaultBaseURL = "https://lrclib.net/api"
	userAgent      = "cadence/1.0 (https://github.com/llehouerou/cadence)"
)

// Client is an lrclib.net API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRateLimit limits outgoing requests per second.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// New creates a new lrclib client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LyricsResult represents the response from the lrclib API.
type LyricsResult struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Get fetches lyrics by artist, title, and optionally album and duration.
func (c *Client) Get(ctx context.Context, artist, title, album string, duration time.Duration) (*LyricsResult, error) {
	params := url.Values{}
	params.Set("artist_name", artist)
	params.Set("track_name", title)
	if album != "" {
		params.Set("album_name", album)
	}
	if duration > 0 {
		params.Set("duration", fmt.Sprintf("%.0f", duration.Seconds()))
	}

	var result LyricsResult
	if err := c.getJSON(ctx, "/get?"+params.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Search searches for lyrics matching the query.
func (c *Client) Search(ctx context.Context, query string) ([]LyricsResult, error) {
	params := url.Values{}
	params.Set("q", query)

	var results []LyricsResult
	if err := c.getJSON(ctx, "/search?"+params.Encode(), &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Fetch implements lyrics.Fetcher. lrclib has a single track: synced lyrics
// are preferred, plain lyrics are not timestamped and count as absent.
func (c *Client) Fetch(ctx context.Context, track lyrics.TrackRef) (lyrics.RawTracks, error) {
	if track.Artist == "" || track.Title == "" {
		return lyrics.RawTracks{}, ErrMissingQuery
	}
	res, err := c.Get(ctx, track.Artist, track.Title, track.Album, track.Duration)
	if err != nil {
		return lyrics.RawTracks{}, err
	}
	if !res.HasSyncedLyrics() {
		return lyrics.RawTracks{}, ErrNotFound
	}
	return lyrics.RawTracks{Original: res.SyncedLyrics}, nil
}

// HasSyncedLyrics returns true if the result contains synced (LRC) lyrics.
func (r *LyricsResult) HasSyncedLyrics() bool {
	return r.SyncedLyrics != ""
}

// HasPlainLyrics returns true if the result contains plain text lyrics.
func (r *LyricsResult) HasPlainLyrics() bool {
	return r.PlainLyrics != ""
}
