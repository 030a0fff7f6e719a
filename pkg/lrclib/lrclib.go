package lrclib

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// Track is a lyrics record as served by the API.
type Track struct {
	ID           int     `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// HasTimestamps reports whether the track carries synced lyrics.
// Timestamped lyrics are required to build a timeline.
func (t *Track) HasTimestamps() bool {
	return t.SyncedLyrics != ""
}

// Get looks up lyrics by exact artist, track and duration. It falls
// back to a free-text search when the exact lookup misses.
func (c *Client) Get(ctx context.Context, artist, track string, duration float64) (*Track, error) {
	values := url.Values{}
	values.Set("artist_name", artist)
	values.Set("track_name", track)
	if duration > 0 {
		values.Set("duration", strconv.Itoa(int(duration)))
	}
	var t Track
	err := c.do(ctx, "get", values, &t)
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	c.log("lrclib: exact lookup missed, searching %q %q", artist, track)
	results, err := c.Search(ctx, fmt.Sprintf("%s %s", artist, track))
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].HasTimestamps() {
			return &results[i], nil
		}
	}
	return nil, ErrNotFound
}

// Search runs a free-text lyrics search.
func (c *Client) Search(ctx context.Context, query string) ([]Track, error) {
	values := url.Values{}
	values.Set("q", query)
	var tracks []Track
	if err := c.do(ctx, "search", values, &tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}
