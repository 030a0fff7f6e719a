package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"

	"github.com/chrimage/ai-lyric-video-generator/pkg/cmd/generate"
	"github.com/chrimage/ai-lyric-video-generator/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Addr        string
	Credentials map[string]string

	// Pipeline holds the generation settings used by the background
	// worker that processes queued tasks.
	Pipeline *generate.Config
}

//go:embed static/*
var staticContent embed.FS

// Serve starts the task queue service.
func Serve(ctx context.Context, cfg *Config) error {
	log.Println("web: server started")
	defer log.Println("web: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("web: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("web: couldn't start orm store: %w", err)
	}

	// Tasks interrupted by a previous shutdown go back to the queue.
	if n, err := store.ResetProcessingTasks(ctx); err != nil {
		return fmt.Errorf("web: couldn't reset processing tasks: %w", err)
	} else if n > 0 {
		log.Printf("web: requeued %d interrupted tasks\n", n)
	}

	pipeline, err := generate.NewPipeline(cfg.Pipeline, store)
	if err != nil {
		return fmt.Errorf("web: %w", err)
	}

	// Create static content
	staticFS, err := iofs.Sub(staticContent, "static")
	if err != nil {
		return fmt.Errorf("web: couldn't load static content: %w", err)
	}

	// Create router
	mux := chi.NewRouter()

	// Add middleware
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(60 * time.Second))

	// Add BasicAuth middleware
	if len(cfg.Credentials) > 0 {
		mux.Use(middleware.BasicAuth("private", cfg.Credentials))
	}

	// Create subrouter for api endpoints
	r := mux.Group(func(r chi.Router) {
		if cfg.Debug {
			r.Use(middleware.Logger)
		}
	})

	// Create server
	split := strings.Split(cfg.Addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("web: invalid address: %s", cfg.Addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("web: invalid port: %s", split[1])
	}
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: mux,
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Printf("Starting server on %s", note)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v\n", err)
			cancel()
		}
	}()

	// Handler to serve the static files
	mux.Get("/*", http.StripPrefix("/", http.FileServer(http.FS(staticFS))).ServeHTTP)

	// Handler to serve generated videos and thumbnails
	output := cfg.Pipeline.Output
	if output == "" {
		output = "output"
	}
	mux.Get("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(output))).ServeHTTP)

	r.Post("/api/tasks", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query  string `json:"query"`
			Title  string `json:"title"`
			Artist string `json:"artist"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("couldn't decode task: %v", err), http.StatusBadRequest)
			return
		}
		query := req.Query
		if query == "" {
			query = strings.TrimSpace(fmt.Sprintf("%s %s", req.Artist, req.Title))
		}
		if query == "" {
			http.Error(w, "query is empty", http.StatusBadRequest)
			return
		}
		task := &storage.Task{
			ID:     ulid.Make().String(),
			Query:  query,
			Title:  req.Title,
			Artist: req.Artist,
		}
		if err := store.SetTask(r.Context(), task); err != nil {
			http.Error(w, fmt.Sprintf("couldn't save task: %v", err), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, toTask(task))
	})

	r.Get("/api/tasks", func(w http.ResponseWriter, r *http.Request) {
		page, size := pagination(r)
		var filters []storage.Filter
		states := map[string]storage.Status{
			"pending":    storage.Pending,
			"processing": storage.Processing,
			"completed":  storage.Completed,
			"failed":     storage.Failed,
		}
		var values []int
		for name, status := range states {
			if r.URL.Query().Get(name) == "true" {
				values = append(values, int(status))
			}
		}
		if len(values) > 0 {
			filters = append(filters, storage.Where("status IN (?)", values))
		}
		tasks, err := store.ListTasks(r.Context(), page, size, "created_at desc", filters...)
		if err != nil {
			log.Println("couldn't list tasks:", err)
			http.Error(w, fmt.Sprintf("couldn't list tasks: %v", err), http.StatusInternalServerError)
			return
		}
		resp := []*Task{}
		for _, task := range tasks {
			resp = append(resp, toTask(task))
		}
		writeJSON(w, resp)
	})

	r.Get("/api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		task, err := store.GetTask(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("couldn't get task: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, toTask(task))
	})

	r.Put("/api/tasks/{id}/retry", func(w http.ResponseWriter, r *http.Request) {
		task, err := store.GetTask(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("couldn't get task: %v", err), http.StatusInternalServerError)
			return
		}
		if task.Status != storage.Failed {
			http.Error(w, "task is not failed", http.StatusConflict)
			return
		}
		task.Status = storage.Pending
		task.Error = ""
		if err := store.SetTask(r.Context(), task); err != nil {
			http.Error(w, fmt.Sprintf("couldn't set task: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, toTask(task))
	})

	r.Delete("/api/tasks/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteTask(r.Context(), chi.URLParam(r, "id")); err != nil {
			http.Error(w, fmt.Sprintf("couldn't delete task: %v", err), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/api/videos", func(w http.ResponseWriter, r *http.Request) {
		page, size := pagination(r)
		videos, err := store.ListVideos(r.Context(), page, size, "created_at desc")
		if err != nil {
			log.Println("couldn't list videos:", err)
			http.Error(w, fmt.Sprintf("couldn't list videos: %v", err), http.StatusInternalServerError)
			return
		}
		resp := []*Video{}
		for _, v := range videos {
			resp = append(resp, toVideo(v, output))
		}
		writeJSON(w, resp)
	})

	r.Get("/api/videos/{id}", func(w http.ResponseWriter, r *http.Request) {
		v, err := store.GetVideo(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "video not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("couldn't get video: %v", err), http.StatusInternalServerError)
			return
		}
		writeJSON(w, toVideo(v, output))
	})

	// Background worker processing the task queue.
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			task, err := store.NextTask(ctx)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				log.Println("web: couldn't get next task:", err)
				continue
			}
			task.Status = storage.Processing
			if err := store.SetTask(ctx, task); err != nil {
				log.Println("web: couldn't update task:", err)
				continue
			}
			debug("web: processing task %s %q", task.ID, task.Query)
			if err := pipeline.Generate(ctx, task); err != nil {
				log.Println(err)
				task.Status = storage.Failed
				task.Error = err.Error()
			} else {
				task.Status = storage.Completed
				task.Error = ""
			}
			if err := store.SetTask(ctx, task); err != nil {
				log.Println("web: couldn't update task:", err)
			}
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: couldn't shutdown server: %w", err)
	}
	return nil
}

func pagination(r *http.Request) (int, int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}
	size, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil {
		size = 100
	}
	return page, size
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("couldn't encode response:", err)
	}
}

type Task struct {
	ID        string         `json:"id"`
	Query     string         `json:"query"`
	Title     string         `json:"title"`
	Artist    string         `json:"artist"`
	VideoID   string         `json:"video_id"`
	Status    storage.Status `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func toTask(t *storage.Task) *Task {
	return &Task{
		ID:        t.ID,
		Query:     t.Query,
		Title:     t.Title,
		Artist:    t.Artist,
		VideoID:   t.VideoID,
		Status:    t.Status,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
	}
}

type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	Duration     float64   `json:"duration"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	CreatedAt    time.Time `json:"created_at"`
}

func toVideo(v *storage.Video, output string) *Video {
	return &Video{
		ID:           v.ID,
		Title:        v.Title,
		Artist:       v.Artist,
		Duration:     v.Duration,
		URL:          fileURL(v.Path, output),
		ThumbnailURL: fileURL(v.Thumbnail, output),
		CreatedAt:    v.CreatedAt,
	}
}

// fileURL maps a path inside the output directory to its /files route.
func fileURL(path, output string) string {
	if path == "" {
		return ""
	}
	rel := strings.TrimPrefix(path, output)
	rel = strings.TrimPrefix(rel, "/")
	return "/files/" + rel
}
