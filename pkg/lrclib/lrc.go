package lrclib

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/chrimage/ai-lyric-video-generator/pkg/timeline"
)

var (
	lineTag = regexp.MustCompile(`^\[(\d+):(\d{1,2}(?:\.\d+)?)\]`)
	wordTag = regexp.MustCompile(`<(\d+):(\d{1,2}(?:\.\d+)?)>`)
	metaTag = regexp.MustCompile(`^\[[a-zA-Z#]+:`)
)

// Lines parses the track's synced lyrics into raw timestamped lines
// ready for the timeline builder. The reported source is word-level
// when the lyrics carry enhanced per-word timestamps.
func (t *Track) Lines() ([]timeline.Line, timeline.Source, error) {
	return ParseLRC(t.SyncedLyrics)
}

// ParseLRC parses LRC formatted lyrics. Repeat tags produce one line
// per timestamp, metadata tags and empty lines are skipped, enhanced
// <mm:ss.xx> word tags become word-level sub-timings.
func ParseLRC(s string) ([]timeline.Line, timeline.Source, error) {
	source := timeline.SourceLineLevel
	var lines []timeline.Line
	for _, raw := range strings.Split(s, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		// Collect the leading time tags, repeat tags share one text.
		var starts []float64
		rest := raw
		for {
			m := lineTag.FindStringSubmatch(rest)
			if m == nil {
				break
			}
			ts, err := toSeconds(m[1], m[2])
			if err != nil {
				return nil, "", fmt.Errorf("lrclib: invalid timestamp %q: %w", m[0], err)
			}
			starts = append(starts, ts)
			rest = rest[len(m[0]):]
		}
		if len(starts) == 0 {
			if metaTag.MatchString(raw) {
				continue
			}
			// Untagged text inside a synced body means the lyrics are
			// not fully synced.
			return nil, "", fmt.Errorf("lrclib: line without timestamp: %q", raw)
		}

		words, text, err := parseWords(rest)
		if err != nil {
			return nil, "", err
		}
		if text == "" {
			continue
		}
		if len(words) > 0 {
			source = timeline.SourceWordLevel
		}
		for _, start := range starts {
			lines = append(lines, timeline.Line{
				Text:  text,
				Start: start,
				Words: words,
			})
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Start < lines[j].Start
	})
	return lines, source, nil
}

// parseWords extracts enhanced word timings from the text part of a
// line. Each word ends where the next one starts, the last end is left
// open for the builder to derive.
func parseWords(s string) ([]timeline.Word, string, error) {
	matches := wordTag.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return nil, strings.TrimSpace(s), nil
	}
	var words []timeline.Word
	var texts []string
	for i, m := range matches {
		ts, err := toSeconds(s[m[2]:m[3]], s[m[4]:m[5]])
		if err != nil {
			return nil, "", fmt.Errorf("lrclib: invalid word timestamp: %w", err)
		}
		end := len(s)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		text := strings.TrimSpace(s[m[1]:end])
		if text == "" {
			continue
		}
		word := timeline.Word{Text: text, Start: ts}
		if i+1 < len(matches) {
			next, err := toSeconds(s[matches[i+1][2]:matches[i+1][3]], s[matches[i+1][4]:matches[i+1][5]])
			if err == nil {
				word.End = next
			}
		}
		words = append(words, word)
		texts = append(texts, text)
	}
	return words, strings.Join(texts, " "), nil
}

func toSeconds(minutes, seconds string) (float64, error) {
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, err
	}
	s, err := strconv.ParseFloat(seconds, 64)
	if err != nil {
		return 0, err
	}
	return float64(m)*60 + s, nil
}
