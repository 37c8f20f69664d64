// Package api exposes the HTTP interface for the service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/socialpulse/internal/analytics"
	"github.com/JakeFAU/socialpulse/internal/config"
	"github.com/JakeFAU/socialpulse/internal/dispatcher"
	"github.com/JakeFAU/socialpulse/internal/metrics"
	"github.com/JakeFAU/socialpulse/internal/social"
)

// Server wires HTTP handlers to the scraper, analytics engine, and
// the background job dispatcher.
type Server struct {
	router     chi.Router
	scraper    social.Scraper
	store      social.ProfileStore
	jobStore   social.JobStore
	dispatcher *dispatcher.Dispatcher
	engine     *analytics.Engine
	idGen      social.IDGenerator
	clock      social.Clock
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	scraper social.Scraper,
	store social.ProfileStore,
	jobStore social.JobStore,
	dispatcher *dispatcher.Dispatcher,
	engine *analytics.Engine,
	idGen social.IDGenerator,
	clock social.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		scraper:    scraper,
		store:      store,
		jobStore:   jobStore,
		dispatcher: dispatcher,
		engine:     engine,
		idGen:      idGen,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(120 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Get("/profiles/{username}", s.getProfile)
		r.Post("/timelines", s.scrapeTimeline)
		r.Post("/analytics", s.analyzePosts)
		r.Post("/analytics/export", s.exportPosts)
		r.Post("/discovery", s.submitDiscoveryJob)
		r.Post("/sync", s.submitSyncJob)
		r.Route("/jobs/{job_id}", func(r chi.Router) {
			r.Get("/", s.getJob)
			r.Post("/cancel", s.cancelJob)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	username := social.NormalizeUsername(chi.URLParam(r, "username"))
	if username == "" {
		s.writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	profile, err := s.scraper.Profile(r.Context(), username)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, social.ErrProfileUnavailable) || errors.Is(err, social.ErrNotFound) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, fmt.Sprintf("scrape profile %s: %v", username, err))
		return
	}
	if s.store != nil {
		if err := s.store.SaveProfile(r.Context(), profile); err != nil {
			s.logger.Warn("profile save failed", zap.String("username", username), zap.Error(err))
		}
	}
	s.writeJSON(w, http.StatusOK, profile)
}

type timelineRequest struct {
	Username string `json:"username"`
	MaxPosts int    `json:"max_posts"`
}

type timelineResponse struct {
	Username string        `json:"username"`
	Count    int           `json:"count"`
	Posts    []social.Post `json:"posts"`
}

func (s *Server) scrapeTimeline(w http.ResponseWriter, r *http.Request) {
	var req timelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	username := social.NormalizeUsername(req.Username)
	if username == "" {
		s.writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	maxPosts := req.MaxPosts
	if maxPosts <= 0 {
		maxPosts = s.cfg.Scraper.MaxPostsDefault
	}

	posts, err := s.scraper.Timeline(r.Context(), username, maxPosts)
	if err != nil && len(posts) == 0 {
		s.writeError(w, http.StatusBadGateway, fmt.Sprintf("scrape timeline %s: %v", username, err))
		return
	}
	if s.store != nil && len(posts) > 0 {
		if err := s.store.SavePosts(r.Context(), username, posts); err != nil {
			s.logger.Warn("posts save failed", zap.String("username", username), zap.Error(err))
		}
	}
	if posts == nil {
		posts = []social.Post{}
	}
	s.writeJSON(w, http.StatusOK, timelineResponse{
		Username: username,
		Count:    len(posts),
		Posts:    posts,
	})
}

type analyticsRequest struct {
	Username string          `json:"username"`
	Posts    []social.Post   `json:"posts"`
	Profile  *social.Profile `json:"profile,omitempty"`
}

func (s *Server) analyzePosts(w http.ResponseWriter, r *http.Request) {
	var req analyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	report := s.engine.Analyze(req.Posts, req.Profile)
	report.Username = social.NormalizeUsername(req.Username)
	s.writeJSON(w, http.StatusOK, report)
}

type exportRequest struct {
	Username string        `json:"username"`
	Posts    []social.Post `json:"posts"`
}

func (s *Server) exportPosts(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	posts := req.Posts
	if len(posts) == 0 && req.Username != "" && s.store != nil {
		stored, err := s.store.ListPosts(r.Context(), social.NormalizeUsername(req.Username), 0)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "list stored posts")
			return
		}
		posts = stored
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="posts.csv"`)
	if err := s.engine.ExportCSV(w, posts); err != nil {
		s.logger.Error("csv export failed", zap.Error(err))
	}
}

type discoveryRequest struct {
	Usernames   []string `json:"usernames"`
	UserID      string   `json:"user_id"`
	CallbackURL string   `json:"callback_url"`
}

func (s *Server) submitDiscoveryJob(w http.ResponseWriter, r *http.Request) {
	var req discoveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Usernames) == 0 {
		s.writeError(w, http.StatusBadRequest, "at least one username required")
		return
	}
	jobID, err := s.enqueueJob(r.Context(), social.JobKindDiscovery, social.JobParameters{
		Usernames:   req.Usernames,
		UserID:      req.UserID,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

type syncRequest struct {
	Usernames   []string `json:"usernames"`
	UserID      string   `json:"user_id"`
	CallbackURL string   `json:"callback_url"`
}

func (s *Server) submitSyncJob(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Usernames) == 0 {
		s.writeError(w, http.StatusBadRequest, "at least one username required")
		return
	}
	if req.CallbackURL == "" {
		s.writeError(w, http.StatusBadRequest, "callback_url is required")
		return
	}
	jobID, err := s.enqueueJob(r.Context(), social.JobKindSync, social.JobParameters{
		Usernames:   req.Usernames,
		UserID:      req.UserID,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) getJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) cancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := s.jobStore.GetJob(r.Context(), jobID)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if job.Status == social.JobStatusSucceeded || job.Status == social.JobStatusFailed {
		s.writeError(w, http.StatusConflict, "job already finished")
		return
	}
	if err := s.jobStore.UpdateJobStatus(
		r.Context(),
		jobID,
		social.JobStatusCanceled,
		"canceled via API",
		job.Counters,
	); err != nil {
		s.writeError(w, http.StatusInternalServerError, "cancel job")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"job_id": jobID,
		"status": string(social.JobStatusCanceled),
	})
}

func (s *Server) enqueueJob(ctx context.Context, kind social.JobKind, params social.JobParameters) (string, error) {
	jobID, err := s.idGen.NewID()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	now := s.clock.Now()
	job := social.Job{
		ID:         jobID,
		Kind:       kind,
		Status:     social.JobStatusQueued,
		Submitted:  now,
		Parameters: params,
	}
	if err := s.jobStore.CreateJob(ctx, job); err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	item := social.QueueItem{
		JobID:     jobID,
		Kind:      kind,
		Params:    params,
		Submitted: now.Unix(),
	}
	if err := s.dispatcher.Enqueue(queueCtx, item); err != nil {
		// The job row already exists; without this it would sit in
		// queued forever with no worker ever picking it up.
		if statusErr := s.jobStore.UpdateJobStatus(ctx, jobID, social.JobStatusFailed, err.Error(), social.JobCounters{}); statusErr != nil {
			s.logger.Error("job status update failed", zap.String("job_id", jobID), zap.Error(statusErr))
		}
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	metrics.ObserveJob(string(kind), string(social.JobStatusQueued))
	return jobID, nil
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		duration := time.Since(start)

		// Label the histogram with the route pattern, not the raw
		// path, so usernames and job IDs do not explode cardinality.
		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, routePattern, ww.status, duration)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", duration.Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("panic", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
