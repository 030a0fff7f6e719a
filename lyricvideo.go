package lyricvideo

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/oklog/ulid/v2"

	"github.com/chrimage/ai-lyric-video-generator/pkg/cmd/generate"
	"github.com/chrimage/ai-lyric-video-generator/pkg/storage"
)

type Config struct {
	Debug     bool
	Output    string
	OpenAIKey string
	YTDlpBin  string
	FfmpegBin string
	Font      string
}

// Generate downloads the song matching the query, builds its lyrics
// timeline and renders a lyric video in a single run. It uses an in
// memory database, so no state survives the call. Use the generate
// command for anything beyond one-off runs.
func Generate(ctx context.Context, cfg *Config, query string) error {
	if query == "" {
		return fmt.Errorf("lyricvideo: query is empty")
	}
	store, err := storage.New("sqlite", ":memory:", cfg.Debug)
	if err != nil {
		return fmt.Errorf("lyricvideo: couldn't create store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("lyricvideo: couldn't start store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("lyricvideo: couldn't migrate store: %w", err)
	}

	gcfg := &generate.Config{
		Debug:     cfg.Debug,
		Query:     query,
		Output:    cfg.Output,
		OpenAIKey: cfg.OpenAIKey,
		YTDlpBin:  cfg.YTDlpBin,
		FfmpegBin: cfg.FfmpegBin,
		Font:      cfg.Font,
	}
	pipeline, err := generate.NewPipeline(gcfg, store)
	if err != nil {
		return fmt.Errorf("lyricvideo: %w", err)
	}

	task := &storage.Task{
		ID:     ulid.Make().String(),
		Query:  query,
		Status: storage.Processing,
	}
	if err := store.SetTask(ctx, task); err != nil {
		return fmt.Errorf("lyricvideo: couldn't save task: %w", err)
	}
	if err := pipeline.Generate(ctx, task); err != nil {
		return err
	}
	output := cfg.Output
	if output == "" {
		output = "output"
	}
	log.Println("video:", filepath.Join(output, task.VideoID, "video.mp4"))
	return nil
}
