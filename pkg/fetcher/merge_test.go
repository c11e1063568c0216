package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"postscope/pkg/logger"
	"postscope/pkg/models"
	"postscope/pkg/retry"
	"postscope/pkg/socialdata"
)

func apiTweet(id, createdAt string) map[string]interface{} {
	return map[string]interface{}{
		"id_str":           id,
		"tweet_created_at": createdAt,
		"full_text":        "tweet " + id,
		"user":             map[string]interface{}{"screen_name": "alice"},
		"entities":         map[string]interface{}{},
	}
}

// newUnevenStreamsClient serves two pages of posts spanning Jan 7-10 and
// one page of replies spanning Jan 1-5
func newUnevenStreamsClient(t *testing.T) *socialdata.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/twitter/user/") {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"id_str": "1", "screen_name": "alice", "name": "Alice",
				"created_at": "2015-01-01T00:00:00Z",
			})
			return
		}

		q := r.URL.Query()
		var body map[string]interface{}
		switch {
		case strings.Contains(q.Get("query"), "-filter:replies") && q.Get("cursor") == "":
			body = map[string]interface{}{
				"tweets":      []interface{}{apiTweet("100", "2024-01-10T12:00:00Z"), apiTweet("90", "2024-01-09T12:00:00Z")},
				"next_cursor": "p2",
			}
		case strings.Contains(q.Get("query"), "-filter:replies"):
			body = map[string]interface{}{
				"tweets":      []interface{}{apiTweet("80", "2024-01-08T12:00:00Z"), apiTweet("70", "2024-01-07T12:00:00Z")},
				"next_cursor": "",
			}
		default:
			body = map[string]interface{}{
				"tweets":      []interface{}{apiTweet("50", "2024-01-05T12:00:00Z"), apiTweet("10", "2024-01-01T12:00:00Z")},
				"next_cursor": "",
			}
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(server.Close)

	return socialdata.NewClient("sk-test-0123456789",
		socialdata.WithBaseURL(server.URL),
		socialdata.WithRetry(&retry.Config{MaxAttempts: 1, Backoff: &retry.ConstantBackoff{}, Logger: logger.NewNopLogger()}),
		socialdata.WithLogger(logger.NewNopLogger()),
	)
}

func TestBothKeepsNewestAcrossUnevenStreams(t *testing.T) {
	f := New(newUnevenStreamsClient(t), WithLogger(logger.NewNopLogger()))

	out, err := f.Run(context.Background(), Params{Username: "alice", Type: models.PostTypeBoth, MaxCount: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"100", "90", "80"}, ids(out.Posts))
}

func TestBothReturnsEveryPostNewestFirst(t *testing.T) {
	f := New(newUnevenStreamsClient(t), WithLogger(logger.NewNopLogger()))

	out, err := f.Run(context.Background(), Params{Username: "alice", Type: models.PostTypeBoth, MaxCount: 50})
	require.NoError(t, err)

	assert.Equal(t, []string{"100", "90", "80", "70", "50", "10"}, ids(out.Posts))
	assert.False(t, out.StoppedEarly)
	for i := 1; i < len(out.Posts); i++ {
		assert.False(t, out.Posts[i].CreatedAt.After(out.Posts[i-1].CreatedAt), "post %d is newer than its predecessor", i)
	}
}
