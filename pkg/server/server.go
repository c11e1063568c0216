package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"postscope/internal/runner"
	errs "postscope/pkg/errors"
	"postscope/pkg/history"
	"postscope/pkg/jobs"
	"postscope/pkg/logger"
	"postscope/pkg/metrics"
	"postscope/pkg/models"
	"postscope/pkg/summary"
)

// JobService is the part of the job manager the HTTP surface drives
type JobService interface {
	Start(ctx context.Context, p jobs.Params) (string, error)
	Status(id string) (jobs.Snapshot, error)
	Cancel(id string) error
	Result(id string) (*models.Result, summary.Summary, error)
	List() []jobs.Snapshot
}

// Server exposes jobs over HTTP/JSON
type Server struct {
	jobs    JobService
	history *history.Store
	log     logger.Logger
	mux     *http.ServeMux
	started time.Time
}

// Option configures a Server
type Option func(*Server)

// WithHistory serves the completed-jobs index
func WithHistory(store *history.Store) Option {
	return func(s *Server) {
		s.history = store
	}
}

// WithLogger sets the server logger
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// New builds the routes over svc
func New(svc JobService, opts ...Option) *Server {
	s := &Server{
		jobs:    svc,
		log:     logger.GetLogger(),
		mux:     http.NewServeMux(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("POST /api/jobs", s.handleStart)
	s.mux.HandleFunc("GET /api/jobs", s.handleList)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleStatus)
	s.mux.HandleFunc("DELETE /api/jobs/{id}", s.handleCancel)
	s.mux.HandleFunc("GET /api/jobs/{id}/result", s.handleResult)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	s.mux.Handle("GET /metrics", metrics.Handler())
	s.mux.HandleFunc("GET /health", s.handleHealth)
	return s
}

// ServeHTTP logs each request and dispatches it
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	s.mux.ServeHTTP(rec, r)

	fields := map[string]interface{}{
		"method":      r.Method,
		"path":        r.URL.Path,
		"status_code": rec.status,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if rec.status >= 500 {
		s.log.WarnWithFields("request failed", fields)
	} else {
		s.log.DebugWithFields("request served", fields)
	}
}

// ListenAndServe serves on addr until ctx ends, then drains for up to
// grace
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	logger.LogComponentStart(s.log, "server", map[string]interface{}{"addr": addr})

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	logger.LogComponentStop(s.log, "server", "context done")
	return err
}

type startRequest struct {
	Username  string `json:"username"`
	PostType  string `json:"post_type"`
	MaxCount  int    `json:"max_count"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrorTypeInvalidInput, err, "request body must be a JSON object"))
		return
	}

	start, err := jobs.ParseDate(strings.TrimSpace(req.StartDate), false)
	if err != nil {
		s.writeError(w, err)
		return
	}
	end, err := jobs.ParseDate(strings.TrimSpace(req.EndDate), true)
	if err != nil {
		s.writeError(w, err)
		return
	}

	id, err := s.jobs.Start(r.Context(), jobs.Params{
		Username: req.Username,
		Type:     models.PostType(req.PostType),
		MaxCount: req.MaxCount,
		Start:    start,
		End:      end,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Location", "/api/jobs/"+id)
	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"jobs": s.jobs.List()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap, err := s.jobs.Status(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	if raw := r.URL.Query().Get("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, errs.Newf(errs.ErrorTypeInvalidInput, "tail must be a non-negative integer, got %q", raw))
			return
		}
		snap.Log = snap.Tail(n)
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.jobs.Cancel(id); err != nil {
		s.writeError(w, err)
		return
	}
	snap, err := s.jobs.Status(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, snap)
}

type resultResponse struct {
	Account models.AccountInfo  `json:"account"`
	Posts   []models.TaggedPost `json:"posts"`
	Summary summary.Summary     `json:"summary"`
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	res, sum, err := s.jobs.Result(r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	posts := res.Posts
	if posts == nil {
		posts = []models.TaggedPost{}
	}
	writeJSON(w, http.StatusOK, resultResponse{Account: res.Account, Posts: posts, Summary: sum})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records := []history.Record{}
	if s.history != nil {
		var err error
		if user := r.URL.Query().Get("username"); user != "" {
			records, err = s.history.ForUser(user)
		} else {
			records, err = s.history.List()
		}
		if err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// statusFor maps an error to its HTTP status
func statusFor(err error) int {
	if errors.Is(err, runner.ErrQueueFull) || errors.Is(err, runner.ErrStopped) {
		return http.StatusServiceUnavailable
	}
	switch errs.TypeOf(err) {
	case errs.ErrorTypeInvalidInput:
		return http.StatusBadRequest
	case errs.ErrorTypeNotFound:
		return http.StatusNotFound
	case errs.ErrorTypeNotReady:
		return http.StatusConflict
	case errs.ErrorTypeCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.WithError(err).Error("request error")
	}
	writeJSON(w, status, errorResponse{Error: errs.UserMessage(err), Type: string(errs.TypeOf(err))})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
