package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postscope/internal/runner"
	errs "postscope/pkg/errors"
	"postscope/pkg/history"
	"postscope/pkg/jobs"
	"postscope/pkg/logger"
	"postscope/pkg/models"
	"postscope/pkg/summary"
)

type fakeJobs struct {
	mu        sync.Mutex
	started   []jobs.Params
	snapshots map[string]jobs.Snapshot
	results   map[string]*models.Result
	cancelled []string
	startErr  error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{
		snapshots: make(map[string]jobs.Snapshot),
		results:   make(map[string]*models.Result),
	}
}

func (f *fakeJobs) Start(ctx context.Context, p jobs.Params) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return "", f.startErr
	}
	if err := p.Normalize(100); err != nil {
		return "", err
	}
	id := fmt.Sprintf("job-%d", len(f.started)+1)
	f.started = append(f.started, p)
	f.snapshots[id] = jobs.Snapshot{ID: id, Username: p.Username, State: jobs.StateQueued, Log: []string{}}
	return id, nil
}

func (f *fakeJobs) Status(id string) (jobs.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[id]
	if !ok {
		return jobs.Snapshot{}, errs.Newf(errs.ErrorTypeNotFound, "no job with id %s", id)
	}
	return s, nil
}

func (f *fakeJobs) Cancel(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[id]
	if !ok {
		return errs.Newf(errs.ErrorTypeNotFound, "no job with id %s", id)
	}
	f.cancelled = append(f.cancelled, id)
	if !s.State.Terminal() {
		s.State = jobs.StateError
		s.Error = jobs.CancelMessage
		f.snapshots[id] = s
	}
	return nil
}

func (f *fakeJobs) Result(id string) (*models.Result, summary.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snapshots[id]
	if !ok {
		return nil, summary.Summary{}, errs.Newf(errs.ErrorTypeNotFound, "no job with id %s", id)
	}
	if s.State != jobs.StateCompleted {
		return nil, summary.Summary{}, errs.Newf(errs.ErrorTypeNotReady, "job %s is %s", id, s.State)
	}
	res := f.results[id]
	return res, summary.Compute(res), nil
}

func (f *fakeJobs) List() []jobs.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []jobs.Snapshot{}
	for i := 1; i <= len(f.snapshots); i++ {
		if s, ok := f.snapshots[fmt.Sprintf("job-%d", i)]; ok {
			out = append(out, s)
		}
	}
	return out
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestStartJob(t *testing.T) {
	svc := newFakeJobs()
	srv := New(svc, WithLogger(logger.NewNopLogger()))

	rec := do(t, srv, http.MethodPost, "/api/jobs",
		`{"username":"@NASA","post_type":"both","max_count":50,"start_date":"2024-01-01","end_date":"2024-01-31"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "job-1", body["job_id"])
	assert.Equal(t, "/api/jobs/job-1", rec.Header().Get("Location"))

	require.Len(t, svc.started, 1)
	p := svc.started[0]
	assert.Equal(t, "NASA", p.Username)
	assert.Equal(t, models.PostTypeBoth, p.Type)
	assert.Equal(t, 50, p.MaxCount)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), p.End)
}

func TestStartJobRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `username=nasa`},
		{"missing username", `{"post_type":"posts"}`},
		{"bad date", `{"username":"nasa","start_date":"01/02/2024"}`},
		{"start after end", `{"username":"nasa","start_date":"2024-02-01","end_date":"2024-01-01"}`},
		{"bad type", `{"username":"nasa","post_type":"likes"}`},
		{"too many", `{"username":"nasa","max_count":100000}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeJobs()
			rec := do(t, New(svc, WithLogger(logger.NewNopLogger())), http.MethodPost, "/api/jobs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body errorResponse
			decode(t, rec, &body)
			assert.Equal(t, string(errs.ErrorTypeInvalidInput), body.Type)
			assert.True(t, strings.HasPrefix(body.Error, "Invalid request"), body.Error)
			assert.Empty(t, svc.started)
		})
	}
}

func TestStartJobQueueFull(t *testing.T) {
	svc := newFakeJobs()
	svc.startErr = fmt.Errorf("queueing job: %w", runner.ErrQueueFull)
	rec := do(t, New(svc, WithLogger(logger.NewNopLogger())), http.MethodPost, "/api/jobs", `{"username":"nasa"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusAndTail(t *testing.T) {
	svc := newFakeJobs()
	svc.snapshots["job-1"] = jobs.Snapshot{
		ID:    "job-1",
		State: jobs.StateRunning,
		Log:   []string{"one", "two", "three"},
	}
	srv := New(svc, WithLogger(logger.NewNopLogger()))

	var snap jobs.Snapshot
	rec := do(t, srv, http.MethodGet, "/api/jobs/job-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &snap)
	assert.Equal(t, jobs.StateRunning, snap.State)
	assert.Len(t, snap.Log, 3)

	rec = do(t, srv, http.MethodGet, "/api/jobs/job-1?tail=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &snap)
	assert.Equal(t, []string{"two", "three"}, snap.Log)

	rec = do(t, srv, http.MethodGet, "/api/jobs/job-1?tail=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancel(t *testing.T) {
	svc := newFakeJobs()
	svc.snapshots["job-1"] = jobs.Snapshot{ID: "job-1", State: jobs.StateRunning}
	srv := New(svc, WithLogger(logger.NewNopLogger()))

	rec := do(t, srv, http.MethodDelete, "/api/jobs/job-1", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	var snap jobs.Snapshot
	decode(t, rec, &snap)
	assert.Equal(t, jobs.StateError, snap.State)
	assert.Equal(t, jobs.CancelMessage, snap.Error)
	assert.Equal(t, []string{"job-1"}, svc.cancelled)

	rec = do(t, srv, http.MethodDelete, "/api/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResult(t *testing.T) {
	svc := newFakeJobs()
	svc.snapshots["job-1"] = jobs.Snapshot{ID: "job-1", State: jobs.StateRunning}
	srv := New(svc, WithLogger(logger.NewNopLogger()))

	rec := do(t, srv, http.MethodGet, "/api/jobs/job-1/result", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	var e errorResponse
	decode(t, rec, &e)
	assert.Equal(t, string(errs.ErrorTypeNotReady), e.Type)

	svc.snapshots["job-1"] = jobs.Snapshot{ID: "job-1", State: jobs.StateCompleted}
	svc.results["job-1"] = &models.Result{
		Account: models.AccountInfo{ScreenName: "nasa", Name: "NASA"},
		Posts: []models.TaggedPost{{
			Post: models.Post{ID: "1", Text: "Launch day!", CreatedAt: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC), Likes: 10},
			Tag:  models.Tag{Topics: []string{"launch"}, Sentiment: models.SentimentNeutral, Styles: []string{"exclamatory"}},
		}},
		Vocabulary: []models.TopicCount{{Name: "launch", Count: 1}},
		PostType:   models.PostTypePosts,
	}

	rec = do(t, srv, http.MethodGet, "/api/jobs/job-1/result", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Account models.AccountInfo     `json:"account"`
		Posts   []models.TaggedPost    `json:"posts"`
		Summary map[string]interface{} `json:"summary"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "nasa", body.Account.ScreenName)
	require.Len(t, body.Posts, 1)
	assert.Equal(t, []string{"launch"}, body.Posts[0].Tag.Topics)
	assert.EqualValues(t, 100, body.Summary["neutral_pct"])
	assert.EqualValues(t, 10, body.Summary["avg_likes"])

	rec = do(t, srv, http.MethodGet, "/api/jobs/nope/result", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJobs(t *testing.T) {
	svc := newFakeJobs()
	srv := New(svc, WithLogger(logger.NewNopLogger()))

	rec := do(t, srv, http.MethodGet, "/api/jobs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"jobs":[]}`, rec.Body.String())

	do(t, srv, http.MethodPost, "/api/jobs", `{"username":"a_user"}`)
	do(t, srv, http.MethodPost, "/api/jobs", `{"username":"b_user"}`)

	var body struct {
		Jobs []jobs.Snapshot `json:"jobs"`
	}
	rec = do(t, srv, http.MethodGet, "/api/jobs", "")
	decode(t, rec, &body)
	require.Len(t, body.Jobs, 2)
	assert.Equal(t, "a_user", body.Jobs[0].Username)
	assert.Equal(t, "b_user", body.Jobs[1].Username)
}

func TestHistory(t *testing.T) {
	srv := New(newFakeJobs(), WithLogger(logger.NewNopLogger()))
	rec := do(t, srv, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"records":[]}`, rec.Body.String())

	store := history.NewStore(filepath.Join(t.TempDir(), "history.json"), logger.NewNopLogger())
	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(history.Record{JobID: "a", Username: "nasa", State: "completed", CreatedAt: base, FinishedAt: base.Add(time.Minute)}))
	require.NoError(t, store.Append(history.Record{JobID: "b", Username: "esa", State: "error", CreatedAt: base, FinishedAt: base.Add(2 * time.Minute)}))

	srv = New(newFakeJobs(), WithLogger(logger.NewNopLogger()), WithHistory(store))

	var body struct {
		Records []history.Record `json:"records"`
	}
	rec = do(t, srv, http.MethodGet, "/api/history", "")
	decode(t, rec, &body)
	require.Len(t, body.Records, 2)
	assert.Equal(t, "b", body.Records[0].JobID)

	rec = do(t, srv, http.MethodGet, "/api/history?username=NASA", "")
	decode(t, rec, &body)
	require.Len(t, body.Records, 1)
	assert.Equal(t, "a", body.Records[0].JobID)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := New(newFakeJobs(), WithLogger(logger.NewNopLogger()))

	rec := do(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "ok", body["status"])

	rec = do(t, srv, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "postscope_jobs_running")
}

func TestMethodNotAllowed(t *testing.T) {
	srv := New(newFakeJobs(), WithLogger(logger.NewNopLogger()))
	rec := do(t, srv, http.MethodPut, "/api/jobs", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRequestsAreLogged(t *testing.T) {
	log := logger.NewTestLogger()
	srv := New(newFakeJobs(), WithLogger(log))
	do(t, srv, http.MethodGet, "/health", "")
	assert.True(t, log.HasMessage("request served"))
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	srv := New(newFakeJobs(), WithLogger(logger.NewNopLogger()))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, "127.0.0.1:0", time.Second)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
}
