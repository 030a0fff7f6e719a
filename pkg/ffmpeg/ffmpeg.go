package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type ffmpeg struct {
	bin string
}

func New(bin string) *ffmpeg {
	return &ffmpeg{bin: bin}
}

func (f *ffmpeg) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, f.bin, "-version")
	data, err := cmd.CombinedOutput()
	if err != nil {
		msg := string(data)
		return "", fmt.Errorf("ffmpeg: couldn't get version: %w: %s", err, msg)
	}
	line := strings.SplitN(string(data), "\n", 2)[0]
	return strings.TrimSpace(line), nil
}

// Frame is one still image shown on the timeline for a given span.
type Frame struct {
	Image    string
	Duration float64
}

// Slideshow renders ordered frames into a video muxed with the audio
// track. Frames must be contiguous and sorted by start time.
func (f *ffmpeg) Slideshow(ctx context.Context, frames []Frame, audio, output string) error {
	if len(frames) == 0 {
		return fmt.Errorf("ffmpeg: no frames to render")
	}
	list, err := writeConcatFile(frames)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(list) }()

	cmd := exec.CommandContext(ctx, f.bin, "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-i", audio,
		"-c:v", "libx264",
		"-r", "24",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		output,
	)
	data, err := cmd.CombinedOutput()
	if err != nil {
		msg := string(data)
		return fmt.Errorf("ffmpeg: couldn't render slideshow: %w: %s", err, msg)
	}
	return nil
}

// Snapshot extracts a single frame at the given position, used for
// video thumbnails.
func (f *ffmpeg) Snapshot(ctx context.Context, input, output string, at float64) error {
	cmd := exec.CommandContext(ctx, f.bin, "-y",
		"-ss", fmt.Sprintf("%.3f", at),
		"-i", input,
		"-frames:v", "1",
		"-q:v", "3",
		output,
	)
	data, err := cmd.CombinedOutput()
	if err != nil {
		msg := string(data)
		return fmt.Errorf("ffmpeg: couldn't extract snapshot: %w: %s", err, msg)
	}
	return nil
}

// writeConcatFile builds the concat demuxer input listing each image
// with its display duration. The demuxer wants the last image repeated
// without a duration directive.
func writeConcatFile(frames []Frame) (string, error) {
	var sb strings.Builder
	sb.WriteString("ffconcat version 1.0\n")
	for _, fr := range frames {
		abs, err := filepath.Abs(fr.Image)
		if err != nil {
			return "", fmt.Errorf("ffmpeg: couldn't resolve image path: %w", err)
		}
		fmt.Fprintf(&sb, "file '%s'\n", escapeConcatPath(abs))
		fmt.Fprintf(&sb, "duration %.3f\n", fr.Duration)
	}
	last, err := filepath.Abs(frames[len(frames)-1].Image)
	if err != nil {
		return "", fmt.Errorf("ffmpeg: couldn't resolve image path: %w", err)
	}
	fmt.Fprintf(&sb, "file '%s'\n", escapeConcatPath(last))

	tmp, err := os.CreateTemp("", "frames-*.txt")
	if err != nil {
		return "", fmt.Errorf("ffmpeg: couldn't create concat file: %w", err)
	}
	if _, err := tmp.WriteString(sb.String()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("ffmpeg: couldn't write concat file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("ffmpeg: couldn't close concat file: %w", err)
	}
	return tmp.Name(), nil
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
