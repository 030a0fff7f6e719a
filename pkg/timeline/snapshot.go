package timeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Checkpoint names the pipeline stage a snapshot was taken at. Timing
// fields are identical across checkpoints, only enrichment accrues.
type Checkpoint string

const (
	CheckpointRaw          Checkpoint = "timeline_raw"
	CheckpointConcept      Checkpoint = "timeline_with_concept"
	CheckpointDescriptions Checkpoint = "timeline_with_descriptions"
	CheckpointFinal        Checkpoint = "timeline_final"
)

type snapshot struct {
	Song     Meta      `json:"song"`
	Concept  string    `json:"video_concept,omitempty"`
	Segments []Segment `json:"segments"`
}

// Snapshot serializes the whole timeline to a JSON document. The
// capture is atomic: it reflects a single consistent state even while
// enrichment is in flight.
func (t *Timeline) Snapshot() ([]byte, error) {
	t.mu.RLock()
	doc := snapshot{
		Song:     t.meta,
		Concept:  t.concept,
		Segments: cloneSegments(t.segments),
	}
	t.mu.RUnlock()
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("timeline: couldn't marshal snapshot: %w", err)
	}
	return b, nil
}

// FromSnapshot restores a timeline from a snapshot document and
// re-validates the invariants, so a tampered or corrupted snapshot is
// rejected instead of restored.
func FromSnapshot(data []byte) (*Timeline, error) {
	var doc snapshot
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("timeline: couldn't unmarshal snapshot: %w", err)
	}
	t, err := New(doc.Song, doc.Segments)
	if err != nil {
		return nil, err
	}
	t.concept = doc.Concept
	return t, nil
}

// SaveCheckpoint writes the timeline snapshot to <dir>/<checkpoint>.json.
// The write goes through a temp file and a rename, readers never see a
// partial document.
func SaveCheckpoint(dir string, cp Checkpoint, t *Timeline) error {
	b, err := t.Snapshot()
	if err != nil {
		return err
	}
	path := CheckpointPath(dir, cp)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("timeline: couldn't write checkpoint %s: %w", cp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("timeline: couldn't commit checkpoint %s: %w", cp, err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint snapshot back from dir.
func LoadCheckpoint(dir string, cp Checkpoint) (*Timeline, error) {
	b, err := os.ReadFile(CheckpointPath(dir, cp))
	if err != nil {
		return nil, fmt.Errorf("timeline: couldn't read checkpoint %s: %w", cp, err)
	}
	return FromSnapshot(b)
}

// CheckpointPath returns the file path of a checkpoint inside dir.
func CheckpointPath(dir string, cp Checkpoint) string {
	return filepath.Join(dir, string(cp)+".json")
}
