// Package http exposes an arbor engine over a JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/openapi"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine is the surface of the arbor engine served over HTTP.
type Engine interface {
	Library() *domain.Library
	RunTree(ctx context.Context, name string) (domain.Outcome, error)
	RunWorkflow(ctx context.Context, title string) (*runner.Report, error)
}

// Watcher is implemented by engines that can report library reloads.
type Watcher interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// Server serves the API.
type Server struct {
	Engine   Engine
	logger   *slog.Logger
	gatherer prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer sets the registry served on /metrics.
// Defaults to the prometheus default gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{
		Engine:   engine,
		logger:   logging.NewNop(),
		gatherer: prometheus.DefaultGatherer,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/trees", func(r chi.Router) {
		r.Get("/", s.ListTrees)
		r.Get("/{name}", s.GetTree)
		r.Get("/{name}/graph", s.GetTreeGraph)
		r.Post("/{name}/run", s.RunTree)
	})
	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", s.ListWorkflows)
		r.Get("/{title}", s.GetWorkflow)
		r.Get("/{title}/graph", s.GetWorkflowGraph)
		r.Post("/{title}/run", s.RunWorkflow)
	})
	r.Get("/modules/{name}/openapi.json", s.GetModuleAPI)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// TreeSummary is an entry of GET /trees.
type TreeSummary struct {
	Name         string   `json:"name"`
	Title        string   `json:"title"`
	Version      string   `json:"version,omitempty"`
	Description  string   `json:"description,omitempty"`
	Participants []string `json:"participant_modules"`
	FileName     string   `json:"file_name"`
}

// WorkflowSummary is an entry of GET /workflows.
type WorkflowSummary struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Steps       []string `json:"steps"`
	FileName    string   `json:"file_name"`
}

// TreeRun is the response of POST /trees/{name}/run.
type TreeRun struct {
	Tree     string         `json:"tree"`
	RunID    string         `json:"run_id"`
	Outcome  domain.Outcome `json:"outcome"`
	Duration time.Duration  `json:"duration"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	lib := s.Engine.Library()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":       "arbor-http",
		"version":   arbor.Version,
		"modules":   lib.ModuleNames(),
		"trees":     len(lib.Trees()),
		"workflows": len(lib.Workflows()),
	})
}

// ListTrees handles the GET /trees request.
func (s *Server) ListTrees(w http.ResponseWriter, r *http.Request) {
	trees := s.Engine.Library().Trees()
	resp := make([]TreeSummary, len(trees))
	for i := range trees {
		t := &trees[i]
		resp[i] = TreeSummary{
			Name:         t.Name(),
			Title:        t.Title,
			Version:      t.Version,
			Description:  t.Description,
			Participants: t.Participants,
			FileName:     t.FileName,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetTree handles the GET /trees/{name} request.
func (s *Server) GetTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Engine.Library().TreeByName(param(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, tree)
}

// GetTreeGraph handles the GET /trees/{name}/graph request.
func (s *Server) GetTreeGraph(w http.ResponseWriter, r *http.Request) {
	lib := s.Engine.Library()
	tree, err := lib.TreeByName(param(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeMermaid(w, graph.Tree(tree, lib, nil))
}

// RunTree handles the POST /trees/{name}/run request. An optional run_id
// query parameter sets the run ID; one is generated otherwise.
func (s *Server) RunTree(w http.ResponseWriter, r *http.Request) {
	ctx, runID := runContext(r)
	name := param(r, "name")

	start := time.Now()
	out, err := s.Engine.RunTree(ctx, name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, TreeRun{
		Tree:     name,
		RunID:    runID,
		Outcome:  out,
		Duration: time.Since(start),
	})
}

// ListWorkflows handles the GET /workflows request.
func (s *Server) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	wfs := s.Engine.Library().Workflows()
	resp := make([]WorkflowSummary, len(wfs))
	for i, wf := range wfs {
		steps := make([]string, len(wf.Workflow))
		for j, step := range wf.Workflow {
			steps[j] = step.Name
		}
		resp[i] = WorkflowSummary{
			Title:       wf.Title,
			Description: wf.Description,
			Steps:       steps,
			FileName:    wf.FileName,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// GetWorkflow handles the GET /workflows/{title} request.
func (s *Server) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.Engine.Library().WorkflowByTitle(param(r, "title"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, wf)
}

// GetWorkflowGraph handles the GET /workflows/{title}/graph request.
func (s *Server) GetWorkflowGraph(w http.ResponseWriter, r *http.Request) {
	wf, err := s.Engine.Library().WorkflowByTitle(param(r, "title"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeMermaid(w, graph.Workflow(wf))
}

// RunWorkflow handles the POST /workflows/{title}/run request.
func (s *Server) RunWorkflow(w http.ResponseWriter, r *http.Request) {
	ctx, _ := runContext(r)
	report, err := s.Engine.RunWorkflow(ctx, param(r, "title"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// GetModuleAPI handles the GET /modules/{name}/openapi.json request.
func (s *Server) GetModuleAPI(w http.ResponseWriter, r *http.Request) {
	mods := s.Engine.Library().Modules()
	name := param(r, "name")
	m, ok := mods.Content[name]
	if !ok {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "module not found: " + name})
		return
	}
	doc, err := openapi.Module(name, m, mods.Version)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// SubscribeEvents handles the GET /events request (SSE). It streams library
// reloads when the engine supports watching.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	watcher, ok := s.Engine.(Watcher)
	if !ok {
		http.Error(w, "Engine does not support watching", http.StatusNotImplemented)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events, err := watcher.Watch(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", event)
			flusher.Flush()
		}
	}
}

// -- Helpers --

// param returns a path parameter. chi routes on the decoded path unless the
// request needed a RawPath (e.g. an escaped "/"), in which case the value is
// still escaped.
func param(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func runContext(r *http.Request) (context.Context, string) {
	id := r.URL.Query().Get("run_id")
	if id == "" {
		id = uuid.NewString()
	}
	return domain.WithRunID(r.Context(), id), id
}

func writeMermaid(w http.ResponseWriter, chart string) {
	w.Header().Set("Content-Type", "text/vnd.mermaid; charset=utf-8")
	_, _ = w.Write([]byte(chart))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, domain.ErrTreeNotFound) || errors.Is(err, domain.ErrWorkflowNotFound) {
		status = http.StatusNotFound
	} else {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
