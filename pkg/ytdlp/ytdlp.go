package ytdlp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// BinPath is the path to the yt-dlp binary
var BinPath = "yt-dlp"

// Song is the metadata of a search result.
type Song struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Artist   string   `json:"artist"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album"`
	Channel  string   `json:"channel"`
	Duration float64  `json:"duration"`
}

// ArtistName returns the best artist label available in the metadata.
func (s *Song) ArtistName() string {
	if len(s.Artists) > 0 {
		return strings.Join(s.Artists, ", ")
	}
	if s.Artist != "" {
		return s.Artist
	}
	return s.Channel
}

func Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, BinPath, "--version")
	data, err := cmd.CombinedOutput()
	if err != nil {
		msg := string(data)
		return "", fmt.Errorf("ytdlp: couldn't get version: %w: %s", err, msg)
	}
	return strings.TrimSpace(string(data)), nil
}

// Search returns the metadata of the top result for a free-text query
// without downloading anything.
func Search(ctx context.Context, query string) (*Song, error) {
	cmd := exec.CommandContext(ctx, BinPath,
		fmt.Sprintf("ytsearch1:%s", query),
		"--dump-json",
		"--no-download",
		"--no-warnings",
	)
	data, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ytdlp: couldn't search %q: %w", query, err)
	}
	var song Song
	if err := json.Unmarshal(data, &song); err != nil {
		return nil, fmt.Errorf("ytdlp: couldn't unmarshal search result: %w", err)
	}
	if song.ID == "" {
		return nil, fmt.Errorf("ytdlp: no results for %q", query)
	}
	return &song, nil
}

// DownloadAudio downloads the best audio stream for a video and
// converts it to mp3. It returns the path of the downloaded file.
func DownloadAudio(ctx context.Context, id, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("ytdlp: couldn't create output folder: %w", err)
	}
	output := filepath.Join(outputDir, id+".mp3")
	if _, err := os.Stat(output); err == nil {
		return output, nil
	}
	cmd := exec.CommandContext(ctx, BinPath,
		fmt.Sprintf("https://www.youtube.com/watch?v=%s", id),
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "192K",
		"-o", filepath.Join(outputDir, id+".%(ext)s"),
	)
	data, err := cmd.CombinedOutput()
	if err != nil {
		msg := string(data)
		return "", fmt.Errorf("ytdlp: couldn't download audio for %s: %w: %s", id, err, msg)
	}
	if _, err := os.Stat(output); err != nil {
		return "", fmt.Errorf("ytdlp: downloaded file missing: %w", err)
	}
	return output, nil
}
