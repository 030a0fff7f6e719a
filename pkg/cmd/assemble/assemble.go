package assemble

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chrimage/ai-lyric-video-generator/pkg/timeline"
	"github.com/chrimage/ai-lyric-video-generator/pkg/video"
)

type Config struct {
	Debug bool

	Workdir    string
	Checkpoint string
	Audio      string
	Output     string

	FfmpegBin string
	Font      string
	Width     int
	Height    int
	Watermark string
}

// Run renders a video from a previously generated timeline checkpoint.
// It lets a run that failed at the rendering stage finish without
// regenerating any art.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("assemble: process started")
	start := time.Now()
	defer func() {
		log.Printf("assemble: process ended (%s)\n", time.Since(start))
	}()

	if cfg.Workdir == "" {
		return fmt.Errorf("assemble: workdir not set")
	}

	cp := timeline.Checkpoint(cfg.Checkpoint)
	if cp == "" {
		cp = timeline.CheckpointFinal
	}
	tl, err := timeline.LoadCheckpoint(cfg.Workdir, cp)
	if err != nil {
		return fmt.Errorf("assemble: couldn't load checkpoint: %w", err)
	}

	audio := cfg.Audio
	if audio == "" {
		audio, err = findAudio(cfg.Workdir)
		if err != nil {
			return err
		}
	}

	output := cfg.Output
	if output == "" {
		output = filepath.Join(cfg.Workdir, "video.mp4")
	}

	waveform := filepath.Join(cfg.Workdir, "waveform.jpg")
	if _, err := os.Stat(waveform); err != nil {
		waveform = ""
	}

	assembler := video.New(&video.Config{
		Debug:     cfg.Debug,
		FfmpegBin: cfg.FfmpegBin,
		Font:      cfg.Font,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Waveform:  waveform,
		Watermark: cfg.Watermark,
	})
	if err := assembler.Assemble(ctx, tl, audio, cfg.Workdir, output); err != nil {
		return fmt.Errorf("assemble: %w", err)
	}

	thumbnail := filepath.Join(cfg.Workdir, "thumbnail.jpg")
	if err := assembler.Thumbnail(ctx, output, thumbnail, tl.TotalDuration()/2); err != nil {
		return fmt.Errorf("assemble: %w", err)
	}
	log.Printf("assemble: video ready %s\n", output)
	return nil
}

func findAudio(workdir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(workdir, "*.mp3"))
	if err != nil {
		return "", fmt.Errorf("assemble: couldn't scan workdir: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("assemble: no mp3 found in %s", workdir)
	}
	return matches[0], nil
}
