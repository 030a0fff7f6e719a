package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/chrimage/ai-lyric-video-generator/pkg/lrclib"
	"github.com/chrimage/ai-lyric-video-generator/pkg/ytdlp"
)

type Config struct {
	Debug bool
	Query string

	LyricsHost string
	LyricsWait time.Duration

	YTDlpBin string
}

// Run looks up a query on youtube and in the lyrics catalog and prints
// the candidates, so a query can be checked before queueing a task.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Query == "" {
		return errors.New("search: query is empty")
	}

	if cfg.YTDlpBin != "" {
		ytdlp.BinPath = cfg.YTDlpBin
	}
	song, err := ytdlp.Search(ctx, cfg.Query)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	log.Printf("search: youtube match %q by %q (%s, %.0fs)\n",
		song.Title, song.ArtistName(), song.ID, song.Duration)

	lyrics := lrclib.New(&lrclib.Config{
		Debug: cfg.Debug,
		Host:  cfg.LyricsHost,
		Wait:  cfg.LyricsWait,
	})
	tracks, err := lyrics.Search(ctx, cfg.Query)
	if err != nil {
		return fmt.Errorf("search: couldn't search lyrics: %w", err)
	}
	if len(tracks) == 0 {
		log.Println("search: no lyrics found")
		return nil
	}
	for _, t := range tracks {
		synced := "plain"
		if t.Instrumental {
			synced = "instrumental"
		} else if t.HasTimestamps() {
			synced = "synced"
		}
		log.Printf("search: lyrics %q by %q (%.0fs, %s)\n",
			t.TrackName, t.ArtistName, t.Duration, synced)
	}
	return nil
}
