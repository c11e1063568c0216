package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postscope/pkg/history"
	"postscope/pkg/jobs"
	"postscope/pkg/models"
	"postscope/pkg/summary"
)

func init() {
	color.NoColor = true
}

type scriptedSource struct {
	mu    sync.Mutex
	steps []jobs.Snapshot
	calls int
}

func (s *scriptedSource) Status(id string) (jobs.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	}
	s.calls++
	return s.steps[i], nil
}

type recordingSender struct {
	title, message string
}

func (r *recordingSender) Send(title, message string) error {
	r.title, r.message = title, message
	return errors.New("no display")
}

func TestLogFollowerPrintsOnlyNewLines(t *testing.T) {
	var buf bytes.Buffer
	f := NewLogFollower(&buf)

	f.Print(jobs.Snapshot{Log: []string{"[10:00:00] Queued: posts for @nasa (max 10)"}})
	f.Print(jobs.Snapshot{Log: []string{"[10:00:00] Queued: posts for @nasa (max 10)", "[10:00:01] Started collection for @nasa"}})
	f.Print(jobs.Snapshot{Log: []string{"[10:00:00] Queued: posts for @nasa (max 10)", "[10:00:01] Started collection for @nasa"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"[10:00:00] Queued: posts for @nasa (max 10)",
		"[10:00:01] Started collection for @nasa",
	}, lines)
	assert.Equal(t, 2, f.Printed())
}

func TestFollowStopsAtTerminalState(t *testing.T) {
	src := &scriptedSource{steps: []jobs.Snapshot{
		{State: jobs.StateQueued, Log: []string{"a"}},
		{State: jobs.StateRunning, Log: []string{"a", "b"}},
		{State: jobs.StateCompleted, Log: []string{"a", "b", "c"}, PostCount: 3},
	}}

	var buf bytes.Buffer
	snap, err := NewLogFollower(&buf).Follow(context.Background(), src, "job-1", time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, jobs.StateCompleted, snap.State)
	assert.Equal(t, "a\nb\nc\n", buf.String())
}

func TestFollowHonoursContext(t *testing.T) {
	src := &scriptedSource{steps: []jobs.Snapshot{{State: jobs.StateRunning}}}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewLogFollower(&bytes.Buffer{}).Follow(ctx, src, "job-1", 5*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBar(t *testing.T) {
	assert.Equal(t, strings.Repeat("─", 20), Bar(0))
	assert.Equal(t, strings.Repeat("━", 10)+strings.Repeat("─", 10), Bar(50))
	assert.Equal(t, strings.Repeat("━", 20), Bar(140))
}

func TestPrintReport(t *testing.T) {
	res := &models.Result{
		Posts: []models.TaggedPost{
			{Post: models.Post{ID: "1", Likes: 1200}, Tag: models.Tag{Topics: []string{"launch"}, Sentiment: models.SentimentPositive}},
			{Post: models.Post{ID: "2", Likes: 800, IsReply: true}, Tag: models.Tag{Topics: []string{"launch"}, Sentiment: models.SentimentNeutral}},
		},
		Vocabulary: []models.TopicCount{{Name: "launch", Count: 2}},
	}
	sum := summary.Compute(res)

	var buf bytes.Buffer
	PrintReport(&buf, jobs.Snapshot{Username: "nasa", Files: []string{"out/posts.json"}}, sum)
	out := buf.String()

	assert.Contains(t, out, "Collected 2 posts from @nasa")
	assert.Contains(t, out, "50.00%")
	assert.Contains(t, out, "1000.00 avg, 2,000 total")
	assert.Contains(t, out, "launch (2)")
	assert.Contains(t, out, "out/posts.json")
}

func TestPrintHistory(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	PrintHistory(&buf, nil, now)
	assert.Contains(t, buf.String(), "No jobs recorded yet")

	buf.Reset()
	PrintHistory(&buf, []history.Record{
		{JobID: "0123456789", Username: "nasa", PostType: "posts", State: "completed", PostCount: 1500, FinishedAt: now.Add(-2 * time.Hour)},
		{JobID: "abc", Username: "esa", PostType: "both", State: "error", Error: "Job cancelled by request", FinishedAt: now.Add(-time.Minute)},
	}, now)
	out := buf.String()
	assert.Contains(t, out, "01234567 ")
	assert.Contains(t, out, "1,500 posts")
	assert.Contains(t, out, "2 hours ago")
	assert.Contains(t, out, "Job cancelled by request")
}

func TestNotifier(t *testing.T) {
	var buf bytes.Buffer
	prev := Output
	Output = &buf
	defer func() { Output = prev }()

	sender := &recordingSender{}
	n := NewNotifierWithSender(sender)

	n.JobFinished(jobs.Snapshot{Username: "nasa", State: jobs.StateCompleted, PostCount: 42})
	assert.Equal(t, "postscope: @nasa", sender.title)
	assert.Equal(t, "Collected 42 posts", sender.message)

	n.JobFinished(jobs.Snapshot{Username: "nasa", State: jobs.StateError, Error: "Authentication failed"})
	assert.Equal(t, "postscope: @nasa failed", sender.title)
	assert.Contains(t, buf.String(), "Authentication failed")

	title, msg := JobNotification(jobs.Snapshot{Username: "x", State: jobs.StateError})
	assert.Equal(t, "postscope: @x failed", title)
	assert.Equal(t, "Job did not complete", msg)
}

func TestStateLabel(t *testing.T) {
	for _, s := range []string{"completed", "error", "running", "queued"} {
		assert.Equal(t, s, StateLabel(s))
	}
}
