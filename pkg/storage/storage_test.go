package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("sqlite", ":memory:", false)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() err = %v; want nil", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() err = %v; want nil", err)
	}
	return s
}

func TestStartOpenError(t *testing.T) {
	s, err := New("sqlite", "/nonexistent/dir/store.db", false)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start() err = nil; want error")
	}
}

func TestTaskRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	task := &Task{
		ID:    ulid.Make().String(),
		Query: "daft punk around the world",
	}
	if err := s.SetTask(ctx, task); err != nil {
		t.Fatalf("SetTask() err = %v; want nil", err)
	}
	got, err := s.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask() err = %v; want nil", err)
	}
	if got.Query != task.Query {
		t.Fatalf("GetTask() query = %q; want %q", got.Query, task.Query)
	}
	if got.Status != Pending {
		t.Fatalf("GetTask() status = %v; want %v", got.Status, Pending)
	}

	if _, err := s.GetTask(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetTask(missing) err = %v; want %v", err, ErrNotFound)
	}
}

func TestNextTaskOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := &Task{ID: ulid.Make().String(), Query: "first", CreatedAt: time.Now().Add(-2 * time.Hour)}
	second := &Task{ID: ulid.Make().String(), Query: "second", CreatedAt: time.Now().Add(-1 * time.Hour)}
	done := &Task{ID: ulid.Make().String(), Query: "done", Status: Completed, CreatedAt: time.Now().Add(-3 * time.Hour)}
	for _, task := range []*Task{second, done, first} {
		if err := s.SetTask(ctx, task); err != nil {
			t.Fatalf("SetTask() err = %v; want nil", err)
		}
	}

	got, err := s.NextTask(ctx)
	if err != nil {
		t.Fatalf("NextTask() err = %v; want nil", err)
	}
	if got.Query != "first" {
		t.Fatalf("NextTask() query = %q; want %q", got.Query, "first")
	}
}

func TestNextTaskEmpty(t *testing.T) {
	s := testStore(t)
	if _, err := s.NextTask(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("NextTask() err = %v; want %v", err, ErrNotFound)
	}
}

func TestResetProcessingTasks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	stuck := &Task{ID: ulid.Make().String(), Query: "stuck", Status: Processing}
	done := &Task{ID: ulid.Make().String(), Query: "done", Status: Completed}
	for _, task := range []*Task{stuck, done} {
		if err := s.SetTask(ctx, task); err != nil {
			t.Fatalf("SetTask() err = %v; want nil", err)
		}
	}

	n, err := s.ResetProcessingTasks(ctx)
	if err != nil {
		t.Fatalf("ResetProcessingTasks() err = %v; want nil", err)
	}
	if n != 1 {
		t.Fatalf("ResetProcessingTasks() = %d; want 1", n)
	}
	got, err := s.GetTask(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("GetTask() err = %v; want nil", err)
	}
	if got.Status != Pending {
		t.Fatalf("GetTask() status = %v; want %v", got.Status, Pending)
	}
}

func TestVideoWithTask(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	task := &Task{ID: ulid.Make().String(), Query: "query"}
	if err := s.SetTask(ctx, task); err != nil {
		t.Fatalf("SetTask() err = %v; want nil", err)
	}
	video := &Video{
		ID:       ulid.Make().String(),
		TaskID:   &task.ID,
		Title:    "Around the World",
		Artist:   "Daft Punk",
		Duration: 428.0,
		Path:     "/videos/around-the-world.mp4",
	}
	if err := s.SetVideo(ctx, video); err != nil {
		t.Fatalf("SetVideo() err = %v; want nil", err)
	}

	got, err := s.GetVideo(ctx, video.ID)
	if err != nil {
		t.Fatalf("GetVideo() err = %v; want nil", err)
	}
	if got.Task == nil || got.Task.ID != task.ID {
		t.Fatalf("GetVideo() task = %v; want preloaded task %s", got.Task, task.ID)
	}

	vs, err := s.ListVideos(ctx, 1, 10, "created_at desc")
	if err != nil {
		t.Fatalf("ListVideos() err = %v; want nil", err)
	}
	if len(vs) != 1 {
		t.Fatalf("ListVideos() = %d videos; want 1", len(vs))
	}
}
