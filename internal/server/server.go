// Package server exposes runs over HTTP: start one, list history, inspect a
// run's segment outcomes and stream its progress over a websocket.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/forPelevin/notereel/internal/history"
	"github.com/forPelevin/notereel/internal/logging"
	"github.com/forPelevin/notereel/internal/pipeline"
	"github.com/forPelevin/notereel/internal/progress"
	"github.com/forPelevin/notereel/internal/types"
)

// Starter launches a run. pipeline.Start in production.
type Starter func(ctx context.Context, cfg pipeline.Config) <-chan pipeline.Completion

type Options struct {
	// Base is copied for every run; Document, RunID, Sink and History are
	// filled per request.
	Base     pipeline.Config
	NotesDir string
	Store    *history.Store
	Logger   *slog.Logger
	Start    Starter

	// OriginPatterns lists extra host patterns (path.Match syntax) allowed
	// to open event streams from a browser. Same-origin requests and clients
	// that send no Origin header are always accepted.
	OriginPatterns []string
}

type Server struct {
	base     pipeline.Config
	notesDir string
	store    *history.Store
	logger   *slog.Logger
	start    Starter
	origins  []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	active map[string]*activeRun
}

type activeRun struct {
	hub    *progress.Hub
	cancel context.CancelFunc
}

func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Start == nil {
		opts.Start = pipeline.Start
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		base:     opts.Base,
		notesDir: opts.NotesDir,
		store:    opts.Store,
		logger:   opts.Logger,
		start:    opts.Start,
		origins:  opts.OriginPatterns,
		ctx:      ctx,
		cancel:   cancel,
		active:   make(map[string]*activeRun),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"state": "ok"})
	})
	r.Route("/runs", func(r chi.Router) {
		r.Post("/", s.createRun)
		r.Get("/", s.listRuns)
		r.Get("/{id}", s.getRun)
		r.Delete("/{id}", s.cancelRun)
		r.Get("/{id}/events", s.streamEvents)
	})
	return r
}

// Shutdown cancels in-flight runs and waits for them to record their result.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListenAndServe serves on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.Shutdown(shutdownCtx)
}

type createRunRequest struct {
	Document  string `json:"document"`
	Layout    string `json:"layout,omitempty"`
	Audio     string `json:"audio,omitempty"`
	OnFailure string `json:"on_failure,omitempty"`
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	doc := strings.TrimSpace(req.Document)
	if doc == "" {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMS", "document is required")
		return
	}
	if !filepath.IsAbs(doc) && s.notesDir != "" {
		doc = filepath.Join(s.notesDir, doc)
	}

	cfg := s.base
	cfg.Document = doc
	if req.Layout != "" {
		cfg.Layout = req.Layout
	}
	if req.Audio != "" {
		cfg.AudioRef = req.Audio
	}
	if req.OnFailure != "" {
		cfg.FailurePolicy = req.OnFailure
	}
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_PARAMS", err.Error())
		return
	}

	id := pipeline.NewRunID()
	hub := progress.NewHub()
	runCtx, cancel := context.WithCancel(s.ctx)
	cfg.RunID = id
	cfg.Sink = hub
	cfg.History = s.store
	cfg.Logger = s.logger

	s.mu.Lock()
	s.active[id] = &activeRun{hub: hub, cancel: cancel}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		c := <-s.start(runCtx, cfg)
		hub.Close()
		s.mu.Lock()
		delete(s.active, id)
		s.mu.Unlock()
		if c.Err != nil {
			s.logger.Warn("run finished with error", slog.String("run_id", id), logging.Error(c.Err))
			return
		}
		s.logger.Info("run finished", slog.String("run_id", id), slog.String("output", c.Report.Result.FinalPath))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusOK, []history.Entry{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to list runs")
		return
	}
	if runs == nil {
		runs = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, runs)
}

type runStatus struct {
	history.Entry
	Active bool `json:"active"`
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	active := s.isActive(id)
	if s.store == nil {
		if !active {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "run not found")
			return
		}
		writeJSON(w, http.StatusOK, runStatus{Entry: history.Entry{RunSummary: types.RunSummary{ID: id}}, Active: true})
		return
	}
	entry, err := s.store.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		if active {
			// Accepted but not yet recorded.
			writeJSON(w, http.StatusOK, runStatus{Entry: history.Entry{RunSummary: types.RunSummary{ID: id}}, Active: true})
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, runStatus{Entry: entry, Active: active})
}

func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	run, ok := s.active[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "no active run with that id")
		return
	}
	run.cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (s *Server) isActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[id]
	return ok
}

func (s *Server) hub(id string) (*progress.Hub, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.active[id]
	if !ok {
		return nil, false
	}
	return run.hub, true
}
