package video

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/chrimage/ai-lyric-video-generator/pkg/ffmpeg"
	"github.com/chrimage/ai-lyric-video-generator/pkg/timeline"
)

type fakeRenderer struct {
	frames []ffmpeg.Frame
	audio  string
	output string
}

func (f *fakeRenderer) Slideshow(ctx context.Context, frames []ffmpeg.Frame, audio, output string) error {
	f.frames = frames
	f.audio = audio
	f.output = output
	return nil
}

func (f *fakeRenderer) Snapshot(ctx context.Context, input, output string, at float64) error {
	return nil
}

func testTimeline(t *testing.T, images []string) *timeline.Timeline {
	t.Helper()
	segments := []timeline.Segment{
		{Index: 0, Text: "First line", Start: 0, End: 2, Kind: timeline.KindLyric},
		{Index: 1, Text: "Second line", Start: 2, End: 5, Kind: timeline.KindLyric},
		{Index: 2, Text: "", Start: 5, End: 8, Kind: timeline.KindInstrumental},
	}
	for i, img := range images {
		segments[i].ImagePath = img
	}
	tl, err := timeline.New(timeline.Meta{Title: "Song", Artist: "Artist"}, segments)
	if err != nil {
		t.Fatalf("timeline.New() err = %v; want nil", err)
	}
	return tl
}

func writeImages(t *testing.T, dir string, n int) []string {
	t.Helper()
	var paths []string
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, "img-"+string(rune('a'+i))+".png")
		if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
			t.Fatalf("couldn't write image: %v", err)
		}
		paths = append(paths, path)
	}
	return paths
}

func TestAssembleFrameTiming(t *testing.T) {
	dir := t.TempDir()
	images := writeImages(t, dir, 3)
	tl := testTimeline(t, images)

	a := New(&Config{})
	fake := &fakeRenderer{}
	a.renderer = fake

	output := filepath.Join(dir, "out.mp4")
	if err := a.Assemble(context.Background(), tl, "audio.mp3", dir, output); err != nil {
		t.Fatalf("Assemble() err = %v; want nil", err)
	}
	if len(fake.frames) != tl.Len() {
		t.Fatalf("Assemble() frames = %d; want %d", len(fake.frames), tl.Len())
	}
	wantDurations := []float64{2, 3, 3}
	for i, frame := range fake.frames {
		if frame.Duration != wantDurations[i] {
			t.Fatalf("frame %d duration = %v; want %v", i, frame.Duration, wantDurations[i])
		}
		if frame.Image != images[i] {
			t.Fatalf("frame %d image = %q; want %q", i, frame.Image, images[i])
		}
	}
	if fake.audio != "audio.mp3" {
		t.Fatalf("Assemble() audio = %q; want %q", fake.audio, "audio.mp3")
	}
}

func TestAssembleMissingImageNoFont(t *testing.T) {
	dir := t.TempDir()
	tl := testTimeline(t, nil)

	a := New(&Config{})
	a.renderer = &fakeRenderer{}

	err := a.Assemble(context.Background(), tl, "audio.mp3", dir, filepath.Join(dir, "out.mp4"))
	if err == nil {
		t.Fatal("Assemble() err = nil; want error")
	}
}

func TestAssembleWaveformFallback(t *testing.T) {
	dir := t.TempDir()
	images := writeImages(t, dir, 2)
	tl := testTimeline(t, images)

	wave := filepath.Join(dir, "wave.jpg")
	if err := os.WriteFile(wave, []byte("jpg"), 0644); err != nil {
		t.Fatalf("couldn't write waveform: %v", err)
	}
	a := New(&Config{Waveform: wave})
	fake := &fakeRenderer{}
	a.renderer = fake

	output := filepath.Join(dir, "out.mp4")
	if err := a.Assemble(context.Background(), tl, "audio.mp3", dir, output); err != nil {
		t.Fatalf("Assemble() err = %v; want nil", err)
	}
	if got := fake.frames[2].Image; got != wave {
		t.Fatalf("fallback frame image = %q; want %q", got, wave)
	}
}
