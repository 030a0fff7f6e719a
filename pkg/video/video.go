package video

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"github.com/chrimage/ai-lyric-video-generator/pkg/ffmpeg"
	"github.com/chrimage/ai-lyric-video-generator/pkg/image"
	"github.com/chrimage/ai-lyric-video-generator/pkg/timeline"
)

type renderer interface {
	Slideshow(ctx context.Context, frames []ffmpeg.Frame, audio, output string) error
	Snapshot(ctx context.Context, input, output string, at float64) error
}

type Config struct {
	Debug     bool
	FfmpegBin string
	Font      string
	Width     int
	Height    int

	// Waveform is an optional image used as background for segments
	// that have no generated art.
	Waveform string
	// Watermark is an optional overlay applied to the thumbnail.
	Watermark string
}

// Assembler turns a fully enriched timeline plus an audio track into
// the final video file.
type Assembler struct {
	cfg      *Config
	renderer renderer
	debug    func(format string, args ...interface{})
}

func New(cfg *Config) *Assembler {
	bin := cfg.FfmpegBin
	if bin == "" {
		bin = "ffmpeg"
	}
	if cfg.Width == 0 {
		cfg.Width = 1024
	}
	if cfg.Height == 0 {
		cfg.Height = 1024
	}
	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}
	return &Assembler{
		cfg:      cfg,
		renderer: ffmpeg.New(bin),
		debug:    debug,
	}
}

// Assemble renders one frame per segment, stamps the song title on the
// opening frame and muxes everything with the audio track. Frame
// durations come straight from the segment timing, so the visuals stay
// aligned with the lyrics.
func (a *Assembler) Assemble(ctx context.Context, tl *timeline.Timeline, audio, workdir, output string) error {
	framesDir := filepath.Join(workdir, "frames")
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return fmt.Errorf("video: couldn't create frames dir: %w", err)
	}

	segments := tl.Segments()
	frames := make([]ffmpeg.Frame, 0, len(segments))
	for _, seg := range segments {
		path, err := a.frame(seg, framesDir)
		if err != nil {
			return err
		}
		frames = append(frames, ffmpeg.Frame{
			Image:    path,
			Duration: seg.Duration(),
		})
	}

	// Stamp title and artist on the opening frame.
	meta := tl.Meta()
	if a.cfg.Font != "" && meta.Title != "" {
		first := frames[0].Image
		titled := filepath.Join(framesDir, "frame-title"+filepath.Ext(first))
		label := meta.Title
		if meta.Artist != "" {
			label = fmt.Sprintf("%s - %s", meta.Title, meta.Artist)
		}
		if err := image.AddText(label, image.BottomCenter, a.cfg.Font, first, titled); err != nil {
			return fmt.Errorf("video: couldn't stamp title: %w", err)
		}
		frames[0].Image = titled
	}

	a.debug("video: rendering %d frames to %s", len(frames), output)
	if err := a.renderer.Slideshow(ctx, frames, audio, output); err != nil {
		return fmt.Errorf("video: couldn't assemble slideshow: %w", err)
	}
	return nil
}

// Thumbnail extracts a thumbnail from the rendered video, applying the
// watermark overlay when configured.
func (a *Assembler) Thumbnail(ctx context.Context, input, output string, at float64) error {
	if err := a.renderer.Snapshot(ctx, input, output, at); err != nil {
		return fmt.Errorf("video: couldn't extract thumbnail: %w", err)
	}
	if a.cfg.Watermark != "" {
		if err := image.AddOverlay(a.cfg.Watermark, output, output); err != nil {
			return fmt.Errorf("video: couldn't apply watermark: %w", err)
		}
	}
	return nil
}

// frame resolves the image shown for a segment. Enriched segments use
// their generated art, the rest fall back to the waveform background
// or a rendered text card.
func (a *Assembler) frame(seg timeline.Segment, framesDir string) (string, error) {
	if seg.ImagePath != "" {
		if _, err := os.Stat(seg.ImagePath); err == nil {
			return seg.ImagePath, nil
		}
		a.debug("video: missing image %s for segment %d", seg.ImagePath, seg.Index)
	}

	label := seg.Text
	if seg.Kind != timeline.KindLyric {
		label = "(instrumental)"
	}
	path := filepath.Join(framesDir, fmt.Sprintf("frame-%03d.jpg", seg.Index))

	if a.cfg.Waveform != "" {
		if a.cfg.Font == "" {
			return a.cfg.Waveform, nil
		}
		if err := image.AddText(label, image.Center, a.cfg.Font, a.cfg.Waveform, path); err != nil {
			return "", fmt.Errorf("video: couldn't render waveform frame %d: %w", seg.Index, err)
		}
		return path, nil
	}

	if a.cfg.Font == "" {
		return "", fmt.Errorf("video: segment %d has no image and no font is configured", seg.Index)
	}
	bg := color.RGBA{R: 16, G: 16, B: 24, A: 255}
	if err := image.Card([]string{label}, bg, a.cfg.Font, path, a.cfg.Width, a.cfg.Height); err != nil {
		return "", fmt.Errorf("video: couldn't render card frame %d: %w", seg.Index, err)
	}
	return path, nil
}
