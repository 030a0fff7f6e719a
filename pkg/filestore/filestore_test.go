package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New("local", filepath.Join(dir, "store"), false)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}

	src := filepath.Join(dir, "video.mp4")
	if err := os.WriteFile(src, []byte("mp4 bytes"), 0644); err != nil {
		t.Fatalf("couldn't write source file: %v", err)
	}

	ctx := context.Background()
	if err := store.SetMP4(ctx, src, "abc123"); err != nil {
		t.Fatalf("SetMP4() err = %v; want nil", err)
	}

	dst := filepath.Join(dir, "downloaded.mp4")
	if err := store.GetMP4(ctx, dst, "abc123"); err != nil {
		t.Fatalf("GetMP4() err = %v; want nil", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("couldn't read downloaded file: %v", err)
	}
	if string(b) != "mp4 bytes" {
		t.Fatalf("downloaded content = %q; want %q", b, "mp4 bytes")
	}
}

func TestNewUnknownType(t *testing.T) {
	if _, err := New("ftp", "conn", false); err == nil {
		t.Fatal("New() err = nil; want error")
	}
}
