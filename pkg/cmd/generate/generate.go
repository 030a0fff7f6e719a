package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/oklog/ulid/v2"

	"github.com/chrimage/ai-lyric-video-generator/pkg/filestore"
	"github.com/chrimage/ai-lyric-video-generator/pkg/image"
	"github.com/chrimage/ai-lyric-video-generator/pkg/imageai"
	"github.com/chrimage/ai-lyric-video-generator/pkg/lrclib"
	"github.com/chrimage/ai-lyric-video-generator/pkg/openai"
	"github.com/chrimage/ai-lyric-video-generator/pkg/sound"
	"github.com/chrimage/ai-lyric-video-generator/pkg/storage"
	"github.com/chrimage/ai-lyric-video-generator/pkg/timeline"
	"github.com/chrimage/ai-lyric-video-generator/pkg/video"
	"github.com/chrimage/ai-lyric-video-generator/pkg/ytdlp"
)

type Config struct {
	Debug       bool
	DBType      string
	DBConn      string
	Concurrency int
	Limit       int

	Query  string
	Input  string
	Output string

	LyricsHost string
	LyricsWait time.Duration

	OpenAIKey        string
	OpenAIModel      string
	OpenAIImageModel string
	OpenAIHost       string

	YTDlpBin  string
	FfmpegBin string
	Font      string

	FSType string
	FSConn string
	Upload bool

	InstrumentalGap float64
	MinSegment      float64
	MaxSegment      float64
	LastLine        float64
	Width           int
	Height          int
}

type item struct {
	Query  string `json:"query" csv:"query"`
	Title  string `json:"title" csv:"title"`
	Artist string `json:"artist" csv:"artist"`
}

// Run launches the video generation process.
func Run(ctx context.Context, cfg *Config) error {
	var count int
	log.Println("generate: process started")
	defer func() {
		log.Printf("generate: process ended (%d)\n", count)
	}()

	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	if cfg.YTDlpBin != "" {
		ytdlp.BinPath = cfg.YTDlpBin
	}
	if _, err := ytdlp.Version(ctx); err != nil {
		return fmt.Errorf("generate: couldn't get yt-dlp version: %w", err)
	}

	items, err := loadItems(cfg)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return errors.New("generate: no queries provided")
	}

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("generate: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("generate: couldn't start orm store: %w", err)
	}

	p, err := NewPipeline(cfg, store)
	if err != nil {
		return err
	}

	// Print time stats
	start := time.Now()
	defer func() {
		if count == 0 {
			return
		}
		total := time.Since(start)
		log.Printf("generate: total time %s, average time %s\n", total, total/time.Duration(count))
	}()

	nErr := 0
	for _, it := range items {
		if cfg.Limit > 0 && count >= cfg.Limit {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("generate: %w", ctx.Err())
		default:
		}

		task := &storage.Task{
			ID:     ulid.Make().String(),
			Query:  it.query(),
			Title:  it.Title,
			Artist: it.Artist,
			Status: storage.Processing,
		}
		if err := store.SetTask(ctx, task); err != nil {
			return fmt.Errorf("generate: couldn't save task: %w", err)
		}

		debug("generate: start %q", task.Query)
		err := p.Generate(ctx, task)
		if err != nil {
			log.Println(err)
			task.Status = storage.Failed
			task.Error = err.Error()
			nErr++
		} else {
			task.Status = storage.Completed
			task.Error = ""
			nErr = 0
		}
		if err := store.SetTask(ctx, task); err != nil {
			return fmt.Errorf("generate: couldn't update task: %w", err)
		}
		debug("generate: end %q", task.Query)
		count++

		if nErr > 3 {
			return fmt.Errorf("generate: too many consecutive errors: %w", err)
		}
	}
	return nil
}

func (i *item) query() string {
	if i.Query != "" {
		return i.Query
	}
	return fmt.Sprintf("%s %s", i.Artist, i.Title)
}

func loadItems(cfg *Config) ([]*item, error) {
	if cfg.Query != "" {
		return []*item{{Query: cfg.Query}}, nil
	}
	if cfg.Input == "" {
		return nil, nil
	}
	b, err := os.ReadFile(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("generate: couldn't read input file: %w", err)
	}
	ext := filepath.Ext(cfg.Input)
	var items []*item
	switch ext {
	case ".json":
		if err := json.Unmarshal(b, &items); err != nil {
			return nil, fmt.Errorf("generate: couldn't unmarshal items: %w", err)
		}
	case ".csv":
		if err := gocsv.UnmarshalBytes(b, &items); err != nil {
			return nil, fmt.Errorf("generate: couldn't unmarshal items: %w", err)
		}
	default:
		return nil, fmt.Errorf("generate: unsupported input format: %s", ext)
	}
	return items, nil
}

// Pipeline runs the whole generation flow for a single task: search,
// download, lyric timing, enrichment and final assembly.
type Pipeline struct {
	cfg       *Config
	debug     func(format string, args ...interface{})
	store     *storage.Store
	files     *filestore.Store
	lyrics    *lrclib.Client
	director  imageai.Director
	describer imageai.Describer
	generator imageai.Generator
	tcfg      timeline.Config
}

func NewPipeline(cfg *Config, store *storage.Store) (*Pipeline, error) {
	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	var files *filestore.Store
	if cfg.Upload {
		candidate, err := filestore.New(cfg.FSType, cfg.FSConn, cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("generate: couldn't create file store: %w", err)
		}
		files = candidate
	}

	lyrics := lrclib.New(&lrclib.Config{
		Debug: cfg.Debug,
		Host:  cfg.LyricsHost,
		Wait:  cfg.LyricsWait,
	})

	var director imageai.Director
	var describer imageai.Describer
	var generator imageai.Generator
	if cfg.OpenAIKey != "" {
		client := openai.New(&openai.Config{
			Debug:      cfg.Debug,
			Token:      cfg.OpenAIKey,
			Model:      cfg.OpenAIModel,
			ImageModel: cfg.OpenAIImageModel,
			Host:       cfg.OpenAIHost,
		})
		ai := imageai.NewOpenAI(client)
		director, describer, generator = ai, ai, ai
	} else {
		log.Println("generate: no openai key, using mock image generation")
		mock := imageai.NewMock()
		director, describer, generator = mock, mock, mock
	}

	return &Pipeline{
		cfg:       cfg,
		debug:     debug,
		store:     store,
		files:     files,
		lyrics:    lyrics,
		director:  director,
		describer: describer,
		generator: generator,
		tcfg: timeline.Config{
			InstrumentalThreshold: cfg.InstrumentalGap,
			MinSegmentDuration:    cfg.MinSegment,
			MaxSegmentDuration:    cfg.MaxSegment,
			LastLineDuration:      cfg.LastLine,
		},
	}, nil
}

func (p *Pipeline) Generate(ctx context.Context, task *storage.Task) error {
	cfg := p.cfg

	// Find the song on youtube.
	song, err := ytdlp.Search(ctx, task.Query)
	if err != nil {
		return fmt.Errorf("generate: couldn't find song for %q: %w", task.Query, err)
	}
	task.Title = song.Title
	task.Artist = song.ArtistName()
	task.VideoID = song.ID
	p.debug("generate: found %q by %q (%s)", song.Title, task.Artist, song.ID)

	output := cfg.Output
	if output == "" {
		output = "output"
	}
	workdir := filepath.Join(output, song.ID)
	if err := os.MkdirAll(workdir, 0755); err != nil {
		return fmt.Errorf("generate: couldn't create workdir: %w", err)
	}
	task.Workdir = workdir
	if err := p.store.SetTask(ctx, task); err != nil {
		return fmt.Errorf("generate: couldn't update task: %w", err)
	}

	// Download and decode the audio track.
	audio, err := ytdlp.DownloadAudio(ctx, song.ID, workdir)
	if err != nil {
		return fmt.Errorf("generate: couldn't download audio: %w", err)
	}
	analyzer, err := sound.NewAnalyzer(audio)
	if err != nil {
		return fmt.Errorf("generate: couldn't analyze audio: %w", err)
	}
	total := analyzer.Duration().Seconds()
	p.debug("generate: audio duration %.2fs", total)

	tl, err := p.loadOrBuild(ctx, song, workdir, total)
	if err != nil {
		return err
	}

	if err := p.enrich(ctx, tl, workdir); err != nil {
		return err
	}

	p.crossCheck(ctx, analyzer, tl)

	// Render the waveform used as fallback art.
	waveform := filepath.Join(workdir, "waveform.jpg")
	if _, err := os.Stat(waveform); err != nil {
		b, err := analyzer.PlotWave(song.Title)
		if err != nil {
			return fmt.Errorf("generate: couldn't plot waveform: %w", err)
		}
		if err := os.WriteFile(waveform, b, 0644); err != nil {
			return fmt.Errorf("generate: couldn't write waveform: %w", err)
		}
	}

	// Assemble the final video.
	assembler := video.New(&video.Config{
		Debug:     cfg.Debug,
		FfmpegBin: cfg.FfmpegBin,
		Font:      cfg.Font,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Waveform:  waveform,
	})
	out := filepath.Join(workdir, "video.mp4")
	if err := assembler.Assemble(ctx, tl, audio, workdir, out); err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	thumbnail := filepath.Join(workdir, "thumbnail.jpg")
	if err := assembler.Thumbnail(ctx, out, thumbnail, thumbnailAt(tl)); err != nil {
		return fmt.Errorf("generate: %w", err)
	}

	// Record the finished video.
	v := &storage.Video{
		ID:        ulid.Make().String(),
		TaskID:    &task.ID,
		Title:     song.Title,
		Artist:    task.Artist,
		YoutubeID: song.ID,
		Duration:  total,
		Path:      out,
		Thumbnail: thumbnail,
	}
	if p.files != nil {
		if err := p.files.SetMP4(ctx, out, v.ID); err != nil {
			return fmt.Errorf("generate: couldn't upload video: %w", err)
		}
		if err := p.files.SetJPG(ctx, thumbnail, v.ID); err != nil {
			return fmt.Errorf("generate: couldn't upload thumbnail: %w", err)
		}
		cp := timeline.CheckpointPath(workdir, timeline.CheckpointFinal)
		if err := p.files.SetJSON(ctx, cp, v.ID); err != nil {
			return fmt.Errorf("generate: couldn't upload timeline: %w", err)
		}
		v.Remote = filestore.MP4(v.ID)
	}
	if err := p.store.SetVideo(ctx, v); err != nil {
		return fmt.Errorf("generate: couldn't save video: %w", err)
	}
	log.Printf("generate: video ready %s\n", out)
	return nil
}

// loadOrBuild resumes from the most advanced checkpoint on disk, or
// builds the raw timeline from lyrics when none exists.
func (p *Pipeline) loadOrBuild(ctx context.Context, song *ytdlp.Song, workdir string, total float64) (*timeline.Timeline, error) {
	for _, cp := range []timeline.Checkpoint{
		timeline.CheckpointFinal,
		timeline.CheckpointDescriptions,
		timeline.CheckpointConcept,
		timeline.CheckpointRaw,
	} {
		tl, err := timeline.LoadCheckpoint(workdir, cp)
		if err != nil {
			continue
		}
		p.debug("generate: resuming from checkpoint %s", cp)
		return tl, nil
	}

	artist := song.ArtistName()
	meta := timeline.Meta{
		Title:    song.Title,
		Artist:   artist,
		Album:    song.Album,
		VideoID:  song.ID,
		Duration: total,
	}

	track, err := p.lyrics.Get(ctx, artist, song.Title, total)
	if err != nil {
		return nil, fmt.Errorf("generate: couldn't get lyrics: %w", err)
	}
	if track.Instrumental {
		p.debug("generate: track is instrumental")
		tl, err := timeline.New(meta, []timeline.Segment{
			{Text: "", Start: 0, End: total, Kind: timeline.KindInstrumental},
		})
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		if err := timeline.SaveCheckpoint(workdir, timeline.CheckpointRaw, tl); err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		return tl, nil
	}
	if !track.HasTimestamps() {
		return nil, fmt.Errorf("generate: no synced lyrics for %q by %q", song.Title, artist)
	}

	lines, source, err := track.Lines()
	if err != nil {
		return nil, fmt.Errorf("generate: couldn't parse lyrics: %w", err)
	}
	meta.Source = source

	segments, err := timeline.NewBuilder(p.tcfg).Build(lines, total)
	if err != nil {
		return nil, fmt.Errorf("generate: couldn't build timeline: %w", err)
	}
	segments, warnings, err := timeline.NewReconciler(p.tcfg).Reconcile(segments)
	if err != nil {
		return nil, fmt.Errorf("generate: couldn't reconcile timeline: %w", err)
	}
	for _, w := range warnings {
		log.Printf("generate: %s\n", w)
	}

	tl, err := timeline.New(meta, segments)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	if err := timeline.SaveCheckpoint(workdir, timeline.CheckpointRaw, tl); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	p.debug("generate: built timeline with %d segments", tl.Len())
	return tl, nil
}

// enrich walks the timeline through the concept, description and image
// stages, saving a checkpoint after each one.
func (p *Pipeline) enrich(ctx context.Context, tl *timeline.Timeline, workdir string) error {
	concept, err := p.concept(ctx, tl, workdir)
	if err != nil {
		return err
	}
	if err := p.describe(ctx, tl, concept, workdir); err != nil {
		return err
	}
	return p.images(ctx, tl, concept, workdir)
}

func (p *Pipeline) concept(ctx context.Context, tl *timeline.Timeline, workdir string) (*imageai.Concept, error) {
	if raw := tl.Concept(); raw != "" {
		var concept imageai.Concept
		if err := json.Unmarshal([]byte(raw), &concept); err != nil {
			return nil, fmt.Errorf("generate: couldn't unmarshal concept: %w", err)
		}
		return &concept, nil
	}

	meta := tl.Meta()
	segments := tl.Segments()
	lines := make([]string, len(segments))
	for i, seg := range segments {
		lines[i] = seg.Text
	}
	concept, tags, err := p.director.Concept(ctx, meta.Title, meta.Artist, lines)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	js, err := json.Marshal(concept)
	if err != nil {
		return nil, fmt.Errorf("generate: couldn't marshal concept: %w", err)
	}
	tl.SetConcept(string(js))
	for i, tt := range tags {
		if len(tt) == 0 {
			continue
		}
		if err := tl.SetConceptTags(i, tt); err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
	}
	if err := timeline.SaveCheckpoint(workdir, timeline.CheckpointConcept, tl); err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	p.debug("generate: concept %s", concept)
	return concept, nil
}

func (p *Pipeline) describe(ctx context.Context, tl *timeline.Timeline, concept *imageai.Concept, workdir string) error {
	var pending []int
	for _, seg := range tl.Segments() {
		if seg.ImageDescription == "" {
			pending = append(pending, seg.Index)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	err := p.forEach(ctx, pending, func(ctx context.Context, i int) error {
		seg, err := tl.Segment(i)
		if err != nil {
			return err
		}
		description, err := p.describer.Describe(ctx, concept, seg.Text, seg.ConceptTags)
		if err != nil {
			return err
		}
		return tl.SetImageDescription(i, description)
	})
	if err != nil {
		return fmt.Errorf("generate: couldn't describe segments: %w", err)
	}
	if err := timeline.SaveCheckpoint(workdir, timeline.CheckpointDescriptions, tl); err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	p.debug("generate: described %d segments", len(pending))
	return nil
}

func (p *Pipeline) images(ctx context.Context, tl *timeline.Timeline, concept *imageai.Concept, workdir string) error {
	imagesDir := filepath.Join(workdir, "images")
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return fmt.Errorf("generate: couldn't create images dir: %w", err)
	}

	var pending []int
	for _, seg := range tl.Segments() {
		if seg.ImagePath == "" {
			pending = append(pending, seg.Index)
		}
	}
	if len(pending) > 0 {
		var failed int
		var mu sync.Mutex
		err := p.forEach(ctx, pending, func(ctx context.Context, i int) error {
			seg, err := tl.Segment(i)
			if err != nil {
				return err
			}
			b, err := p.generator.Generate(ctx, concept, seg.ImageDescription)
			if err != nil {
				// A missing image falls back to placeholder art at
				// assembly, so it doesn't fail the whole video.
				log.Printf("generate: couldn't generate image for segment %d: %v\n", i, err)
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			path := filepath.Join(imagesDir, fmt.Sprintf("segment-%03d.jpg", i))
			if err := image.Save(b, path); err != nil {
				return err
			}
			return tl.SetImagePath(i, path)
		})
		if err != nil {
			return fmt.Errorf("generate: couldn't generate images: %w", err)
		}
		if failed == len(pending) {
			return errors.New("generate: all image generations failed")
		}
		p.debug("generate: generated %d images (%d failed)", len(pending)-failed, failed)
	}
	if err := timeline.SaveCheckpoint(workdir, timeline.CheckpointFinal, tl); err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	return nil
}

// forEach runs fn for every index with bounded concurrency.
func (p *Pipeline) forEach(ctx context.Context, indices []int, fn func(ctx context.Context, i int) error) error {
	concurrency := p.cfg.Concurrency
	if concurrency == 0 {
		concurrency = 4
	}
	errC := make(chan error, concurrency)
	for i := 0; i < concurrency; i++ {
		errC <- nil
	}
	var wg sync.WaitGroup
	var firstErr error
	for _, i := range indices {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case err := <-errC:
			if err != nil && firstErr == nil {
				firstErr = err
			}
		}
		if firstErr != nil {
			break
		}
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			errC <- fn(ctx, i)
		}()
	}
	wg.Wait()
	close(errC)
	for err := range errC {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// crossCheck compares instrumental segments against detected silences
// and logs mismatches. It is best effort, aubio may not be installed.
func (p *Pipeline) crossCheck(ctx context.Context, analyzer *sound.Analyzer, tl *timeline.Timeline) {
	silences, err := analyzer.Silences(ctx)
	if err != nil {
		p.debug("generate: skipping silence check: %v", err)
		return
	}
	for _, seg := range tl.Segments() {
		if seg.Kind != timeline.KindInstrumental {
			continue
		}
		start := time.Duration(seg.Start * float64(time.Second))
		end := time.Duration(seg.End * float64(time.Second))
		if ratio := sound.Overlap(silences, start, end); ratio < 0.5 {
			log.Printf("generate: instrumental segment %d overlaps silence only %.0f%%\n", seg.Index, ratio*100)
		}
	}
}

// thumbnailAt picks the middle of the first lyric segment.
func thumbnailAt(tl *timeline.Timeline) float64 {
	for _, seg := range tl.Segments() {
		if seg.Kind == timeline.KindLyric {
			return seg.Start + seg.Duration()/2
		}
	}
	return tl.TotalDuration() / 2
}
