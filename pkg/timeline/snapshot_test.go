package timeline

import (
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	tl := testTimeline(t, 3)
	tl.SetConcept("a neon city at night")
	if err := tl.SetImageDescription(1, "rain on glass"); err != nil {
		t.Fatal(err)
	}
	if err := tl.SetConceptTags(1, []string{"rain", "neon"}); err != nil {
		t.Fatal(err)
	}
	if err := tl.SetImagePath(1, "images/001.png"); err != nil {
		t.Fatal(err)
	}

	b, err := tl.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() err = %v; want nil", err)
	}
	got, err := FromSnapshot(b)
	if err != nil {
		t.Fatalf("FromSnapshot() err = %v; want nil", err)
	}
	if !reflect.DeepEqual(got.Segments(), tl.Segments()) {
		t.Fatalf("round-trip segments differ:\n%v\n%v", got.Segments(), tl.Segments())
	}
	if got.Meta() != tl.Meta() {
		t.Fatalf("round-trip meta = %+v; want %+v", got.Meta(), tl.Meta())
	}
	if got.Concept() != tl.Concept() {
		t.Fatalf("round-trip concept = %q; want %q", got.Concept(), tl.Concept())
	}
}

func TestFromSnapshotRejectsTampered(t *testing.T) {
	tl := testTimeline(t, 2)
	b, err := tl.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	// Shift a start time so segments overlap.
	tampered := strings.Replace(string(b), `"start_time": 2`, `"start_time": 1`, 1)
	_, err = FromSnapshot([]byte(tampered))
	var invariant *InvariantError
	if !errors.As(err, &invariant) {
		t.Fatalf("FromSnapshot(tampered) err = %v; want InvariantError", err)
	}
}

func TestFromSnapshotRejectsGarbage(t *testing.T) {
	if _, err := FromSnapshot([]byte("{not json")); err == nil {
		t.Fatal("FromSnapshot(garbage) err = nil; want error")
	}
}

func TestCheckpoints(t *testing.T) {
	dir := t.TempDir()
	tl := testTimeline(t, 2)
	for _, cp := range []Checkpoint{CheckpointRaw, CheckpointConcept, CheckpointDescriptions, CheckpointFinal} {
		if err := SaveCheckpoint(dir, cp, tl); err != nil {
			t.Fatalf("SaveCheckpoint(%s) err = %v; want nil", cp, err)
		}
		got, err := LoadCheckpoint(dir, cp)
		if err != nil {
			t.Fatalf("LoadCheckpoint(%s) err = %v; want nil", cp, err)
		}
		if !reflect.DeepEqual(got.Segments(), tl.Segments()) {
			t.Fatalf("checkpoint %s segments differ", cp)
		}
	}
	// No leftover temp files.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestLoadCheckpointMissing(t *testing.T) {
	if _, err := LoadCheckpoint(t.TempDir(), CheckpointFinal); err == nil {
		t.Fatal("LoadCheckpoint(missing) err = nil; want error")
	}
}
