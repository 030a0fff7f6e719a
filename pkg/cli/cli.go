package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/chrimage/ai-lyric-video-generator/pkg/cmd/assemble"
	"github.com/chrimage/ai-lyric-video-generator/pkg/cmd/generate"
	"github.com/chrimage/ai-lyric-video-generator/pkg/cmd/migrate"
	"github.com/chrimage/ai-lyric-video-generator/pkg/cmd/search"
	"github.com/chrimage/ai-lyric-video-generator/pkg/cmd/web"
	"github.com/chrimage/ai-lyric-video-generator/pkg/timeline"
)

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("lyricvideo", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "lyricvideo [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newMigrateCommand(),
			newSearchCommand(),
			newGenerateCommand(),
			newAssembleCommand(),
			newWebCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "lyricvideo version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func newMigrateCommand() *ffcli.Command {
	cmd := "migrate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &migrate.Config{}

	fs.StringVar(&cfg.DBType, "db-type", "", "db type (local, sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lyricvideo %s [flags] <key> <value data...>", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("LYRICVIDEO"),
		},
		ShortHelp: fmt.Sprintf("lyricvideo %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return migrate.Run(ctx, cfg)
		},
	}
}

func newSearchCommand() *ffcli.Command {
	cmd := "search"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &search.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Query, "query", "", "song search query")
	fs.StringVar(&cfg.LyricsHost, "lyrics-host", "", "lrclib host (optional)")
	fs.DurationVar(&cfg.LyricsWait, "lyrics-wait", 1*time.Second, "wait time between lyrics requests")
	fs.StringVar(&cfg.YTDlpBin, "yt-dlp-bin", "", "path to the yt-dlp binary")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lyricvideo %s [flags] <key> <value data...>", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("LYRICVIDEO"),
		},
		ShortHelp: fmt.Sprintf("lyricvideo %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return search.Run(ctx, cfg)
		},
	}
}

func newGenerateCommand() *ffcli.Command {
	cmd := "generate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &generate.Config{}
	generateFlags(fs, cfg)

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lyricvideo %s [flags] <key> <value data...>", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("LYRICVIDEO"),
		},
		ShortHelp: fmt.Sprintf("lyricvideo %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return generate.Run(ctx, cfg)
		},
	}
}

// generateFlags registers the pipeline flags. The web command reuses
// them for its background worker.
func generateFlags(fs *flag.FlagSet, cfg *generate.Config) {
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.DBType, "db-type", "", "db type (local, sqlite, mysql, postgres)")
	fs.StringVar(&cfg.DBConn, "db-conn", "", "path for sqlite, dsn for mysql or postgres")
	fs.IntVar(&cfg.Concurrency, "concurrency", 4, "number of concurrent image generations")
	fs.IntVar(&cfg.Limit, "limit", 0, "limit the number iterations (0 means no limit)")

	fs.StringVar(&cfg.Query, "query", "", "song search query")
	fs.StringVar(&cfg.Input, "input", "", "csv or json with songs (fields: query,title,artist)")
	fs.StringVar(&cfg.Output, "output", "output", "output folder")

	fs.StringVar(&cfg.LyricsHost, "lyrics-host", "", "lrclib host (optional)")
	fs.DurationVar(&cfg.LyricsWait, "lyrics-wait", 1*time.Second, "wait time between lyrics requests")

	fs.StringVar(&cfg.OpenAIKey, "openai-key", "", "openai api key (empty uses placeholder art)")
	fs.StringVar(&cfg.OpenAIModel, "openai-model", "", "openai chat model")
	fs.StringVar(&cfg.OpenAIImageModel, "openai-image-model", "", "openai image model")
	fs.StringVar(&cfg.OpenAIHost, "openai-host", "", "openai host (optional)")

	fs.StringVar(&cfg.YTDlpBin, "yt-dlp-bin", "", "path to the yt-dlp binary")
	fs.StringVar(&cfg.FfmpegBin, "ffmpeg-bin", "", "path to the ffmpeg binary")
	fs.StringVar(&cfg.Font, "font", "", "path to a ttf font for text overlays")

	fs.StringVar(&cfg.FSType, "fs-type", "", "fs type (local, s3)")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "path for local, key:secret@bucket.region for s3")
	fs.BoolVar(&cfg.Upload, "upload", false, "upload outputs to the file storage")

	fs.Float64Var(&cfg.InstrumentalGap, "instrumental-gap", timeline.DefaultInstrumentalThreshold, "minimum gap in seconds that becomes an instrumental segment")
	fs.Float64Var(&cfg.MinSegment, "min-segment", timeline.DefaultMinSegmentDuration, "minimum segment duration in seconds")
	fs.Float64Var(&cfg.MaxSegment, "max-segment", timeline.DefaultMaxSegmentDuration, "maximum segment duration in seconds")
	fs.Float64Var(&cfg.LastLine, "last-line", timeline.DefaultLastLineDuration, "fallback duration for the last line in seconds")
	fs.IntVar(&cfg.Width, "width", 1024, "video width")
	fs.IntVar(&cfg.Height, "height", 1024, "video height")
}

func newAssembleCommand() *ffcli.Command {
	cmd := "assemble"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &assemble.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Workdir, "workdir", "", "folder with the timeline checkpoints and audio")
	fs.StringVar(&cfg.Checkpoint, "checkpoint", "", "checkpoint to render (defaults to the final one)")
	fs.StringVar(&cfg.Audio, "audio", "", "audio file (defaults to the mp3 in the workdir)")
	fs.StringVar(&cfg.Output, "output", "", "output video file")
	fs.StringVar(&cfg.FfmpegBin, "ffmpeg-bin", "", "path to the ffmpeg binary")
	fs.StringVar(&cfg.Font, "font", "", "path to a ttf font for text overlays")
	fs.IntVar(&cfg.Width, "width", 1024, "video width")
	fs.IntVar(&cfg.Height, "height", 1024, "video height")
	fs.StringVar(&cfg.Watermark, "watermark", "", "overlay image for the thumbnail")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lyricvideo %s [flags] <key> <value data...>", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("LYRICVIDEO"),
		},
		ShortHelp: fmt.Sprintf("lyricvideo %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return assemble.Run(ctx, cfg)
		},
	}
}

func newWebCommand() *ffcli.Command {
	cmd := "web"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	pipeline := &generate.Config{}
	generateFlags(fs, pipeline)

	cfg := &web.Config{
		Pipeline: pipeline,
	}

	fs.StringVar(&cfg.Addr, "addr", ":1337", "address to listen on")
	fsMapVar(fs, &cfg.Credentials, "creds", nil, "credentials to use (comma separated) Example: user1:pass1,user2:pass2")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("lyricvideo %s [flags] <key> <value data...>", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("LYRICVIDEO"),
		},
		ShortHelp: fmt.Sprintf("lyricvideo %s action", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			cfg.Debug = pipeline.Debug
			cfg.DBType = pipeline.DBType
			cfg.DBConn = pipeline.DBConn
			return web.Serve(ctx, cfg)
		},
	}
}

type mapValue struct {
	v *map[string]string
}

func (m *mapValue) String() string {
	if m.v == nil {
		return ""
	}
	return fmt.Sprintf("%v", map[string]string(*m.v))
}

func (m *mapValue) Set(value string) error {
	if m.v == nil {
		return errors.New("nil map reference")
	}
	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid map entry: %s", pair)
		}
		(*m.v)[parts[0]] = parts[1]
	}
	return nil
}

func fsMapVar(fs *flag.FlagSet, p *map[string]string, name string, value map[string]string, usage string) {
	if value == nil {
		value = make(map[string]string)
	}
	*p = value
	fs.Var(&mapValue{p}, name, usage)
}
