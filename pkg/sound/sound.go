package sound

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chrimage/ai-lyric-video-generator/pkg/sound/aubio"
	mp3 "github.com/hajimehoshi/go-mp3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Analyzer decodes an mp3 track and exposes the measurements the video
// pipeline needs: the exact duration, silence fragments and a waveform
// rendering used as fallback art.
type Analyzer struct {
	mono     []float64
	rate     int
	duration time.Duration
	source   string
}

func NewAnalyzer(u string) (*Analyzer, error) {
	decoder, src, err := toDecoder(u)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create decoder: %w", err)
	}

	var stereo [2][]float64 // Assume stereo audio
	buf := make([]byte, 2)  // 2 bytes per sample for 16-bit audio
	var i int
	for {
		_, err := decoder.Read(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sound: couldn't read sample: %w", err)
		}
		// Convert bytes to 16-bit integer sample, assuming little endian
		sample := int16(buf[0]) | int16(buf[1])<<8
		// Normalize sample to float64 range -1.0 to 1.0
		normalized := float64(sample) / 32768.0
		stereo[i%2] = append(stereo[i%2], normalized)
		i++
	}

	// Convert to mono
	var mono []float64
	for i, left := range stereo[0] {
		right := stereo[1][i]
		mono = append(mono, (left+right)/2.0)
	}

	duration := time.Duration(float64(len(mono)) / float64(decoder.SampleRate()) * float64(time.Second))
	return &Analyzer{
		source:   src,
		mono:     mono,
		rate:     decoder.SampleRate(),
		duration: duration,
	}, nil
}

func (a *Analyzer) Source() string {
	return a.source
}

func (a *Analyzer) Duration() time.Duration {
	return a.duration
}

type Fragment struct {
	Start    time.Duration
	End      time.Duration
	Duration time.Duration
	Final    bool
}

// Silences returns the quiet stretches of the track. The generate
// pipeline uses them to cross-check instrumental breaks derived from
// the lyric timestamps.
func (a *Analyzer) Silences(ctx context.Context) ([]Fragment, error) {
	ss, err := aubio.Fragments(ctx, true, a.source, a.duration, -70, 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't get silences: %w", err)
	}
	var fragments []Fragment
	for _, s := range ss {
		fragments = append(fragments, Fragment{
			Start:    s[0],
			End:      s[1],
			Duration: s[1] - s[0],
			Final:    s[1] == a.duration,
		})
	}
	return fragments, nil
}

func (a *Analyzer) resample(windowSize time.Duration) []float64 {
	samples := a.mono
	windowLength := int(float64(a.rate) * windowSize.Seconds())

	var resampled []float64
	for i := 0; i < len(samples); i += windowLength {
		end := i + windowLength
		if end > len(samples) {
			end = len(samples)
		}
		window := samples[i:end]
		var min, max float64
		for _, v := range window {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		resampled = append(resampled, min)
		resampled = append(resampled, max)
	}
	return resampled
}

// PlotWave renders the track waveform as a JPEG. It is the placeholder
// art for segments that never got a generated image.
func (a *Analyzer) PlotWave(name string) ([]byte, error) {
	window := 50 * time.Millisecond
	resampled := a.resample(window)
	return createPlot(name, resampled, -1, 1)
}

func createPlot(name string, data []float64, min, max float64) ([]byte, error) {
	p := plot.New()

	p.Y.Min = min
	p.Y.Max = max
	p.Title.Text = name
	p.X.Label.Text = "time"
	p.Y.Label.Text = "amplitude"

	l, err := plotter.NewLine(makePoints(data))
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create line plotter: %w", err)
	}
	l.LineStyle.Width = vg.Points(1)
	p.Add(l)

	c, err := p.WriterTo(4*vg.Inch, 4*vg.Inch, "jpeg")
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("sound: couldn't write plot: %w", err)
	}
	return buf.Bytes(), nil
}

// makePoints converts samples to plotter.XYs
func makePoints(samples []float64) plotter.XYs {
	pts := make(plotter.XYs, len(samples))
	for i, v := range samples {
		pts[i].X = float64(i)
		pts[i].Y = float64(v)
	}
	return pts
}

// Overlap reports how much of the given span is covered by silence
// fragments, as a ratio of the span length.
func Overlap(fragments []Fragment, start, end time.Duration) float64 {
	if end <= start {
		return 0
	}
	var covered time.Duration
	for _, f := range fragments {
		s, e := f.Start, f.End
		if s < start {
			s = start
		}
		if e > end {
			e = end
		}
		if e > s {
			covered += e - s
		}
	}
	return math.Min(1.0, covered.Seconds()/(end-start).Seconds())
}

func toDecoder(u string) (*mp3.Decoder, string, error) {
	src := u
	var b []byte
	if strings.HasPrefix(u, "http") {
		// Download MP3 file
		client := &http.Client{
			Timeout: 2 * time.Minute,
		}
		resp, err := client.Get(u)
		if err != nil {
			return nil, "", fmt.Errorf("sound: couldn't download song: %w", err)
		}
		defer resp.Body.Close()
		b, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, "", fmt.Errorf("sound: couldn't read song: %w", err)
		}
		// Write to temporary file
		src = filepath.Join(os.TempDir(), filepath.Base(u))
		if err := os.WriteFile(src, b, 0644); err != nil {
			return nil, "", fmt.Errorf("sound: couldn't write song: %w", err)
		}
	} else {
		// Open local file
		file, err := os.Open(u)
		if err != nil {
			return nil, "", fmt.Errorf("sound: couldn't open file: %w", err)
		}
		defer file.Close()
		b, err = io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("sound: couldn't read song: %w", err)
		}
	}

	// Decode MP3 to PCM
	decoder, err := mp3.NewDecoder(bytes.NewReader(b))
	if err != nil {
		return nil, "", fmt.Errorf("sound: couldn't decode mp3: %w", err)
	}
	return decoder, src, nil
}
