// Package api exposes the manual HTTP surface: trigger a run, browse the
// store, and list or download locally staged archives. It is a thin layer
// over the same pipeline entry point the queue consumer uses.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/SOAT-TechChallenge/video-processing-service/internal/storage"
	"github.com/SOAT-TechChallenge/video-processing-service/pkg/schema"
)

// Processor matches pipeline.Processor.
type Processor interface {
	Process(ctx context.Context, item schema.WorkItem) schema.ProcessingResult
}

// Lister is the store surface the browse endpoints need.
type Lister interface {
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
}

// Info describes the running service for the root endpoint.
type Info struct {
	Bucket      string
	QueueURL    string
	InputPrefix string
}

type Server struct {
	proc      Processor
	store     Lister
	outputDir string
	info      Info
	logger    *slog.Logger
}

func NewServer(proc Processor, store Lister, outputDir string, info Info, logger *slog.Logger) *Server {
	return &Server{proc: proc, store: store, outputDir: outputDir, info: info, logger: logger}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/videos", s.handleListVideos)
	r.Post("/process/*", s.handleProcess)
	r.Get("/processed", s.handleListProcessed)
	r.Get("/download/{filename}", s.handleDownload)

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	mode := "manual"
	if s.info.QueueURL != "" {
		mode = "auto"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "video-processing-service",
		"status":  "running",
		"bucket":  s.info.Bucket,
		"mode":    mode,
		"endpoints": map[string]string{
			"POST /process/{key}":      "process one stored video",
			"GET /videos":              "list source videos in the store",
			"GET /processed":           "list locally staged archives",
			"GET /download/{filename}": "download one archive",
			"GET /health":              "service status",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "video-processing-service",
		"queue":   s.info.QueueURL != "",
	})
}

func (s *Server) handleListVideos(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = s.info.InputPrefix
	}

	objects, err := s.store.List(r.Context(), prefix)
	if err != nil {
		s.logger.Error("list videos failed", "prefix", prefix, "err", err)
		writeError(w, http.StatusInternalServerError, "list videos failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bucket": s.info.Bucket,
		"prefix": prefix,
		"count":  len(objects),
		"videos": objects,
	})
}

// handleProcess accepts the request immediately and runs the pipeline in the
// background. The outcome is observable via notification or /processed.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	rawKey := chi.URLParam(r, "*")
	key, err := url.PathUnescape(rawKey)
	if err != nil || key == "" {
		writeError(w, http.StatusBadRequest, "missing source key")
		return
	}

	q := r.URL.Query()
	item := schema.WorkItem{
		SourceKey:   key,
		Title:       q.Get("title"),
		Description: q.Get("description"),
		Email:       q.Get("email"),
	}

	s.logger.Info("manual processing requested", "source_key", key)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()
		result := s.proc.Process(ctx, item)
		s.logger.Info("manual run finished", "run_id", result.ID, "status", result.Status)
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"message":   "processing started",
		"sourceKey": key,
		"title":     item.DisplayTitle(),
		"status":    "accepted",
	})
}

// ArchiveEntry describes one staged archive in the output directory.
type ArchiveEntry struct {
	Filename string    `json:"filename"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

func (s *Server) handleListProcessed(w http.ResponseWriter, r *http.Request) {
	entries, err := listArchives(s.outputDir)
	if err != nil {
		s.logger.Error("list processed failed", "err", err)
		writeError(w, http.StatusInternalServerError, "list processed failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": len(entries),
		"files": entries,
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "filename")
	name, err := url.PathUnescape(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}
	// Base name only; no path components may escape the output dir.
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) || strings.Contains(name, "..") {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	path := filepath.Join(s.outputDir, name)
	info, err := os.Stat(path)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("file not found: %s", name))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	w.Header().Set("X-File-Size", fmt.Sprintf("%d", info.Size()))
	http.ServeFile(w, r, path)
}

func listArchives(dir string) ([]ArchiveEntry, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.zip"))
	if err != nil {
		return nil, err
	}
	entries := make([]ArchiveEntry, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		entries = append(entries, ArchiveEntry{
			Filename: filepath.Base(m),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Modified.After(entries[j].Modified) })
	return entries, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
