package output

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"postscope/pkg/logger"
	"postscope/pkg/models"
	"postscope/pkg/summary"
)

var fixedNow = time.Date(2024, 7, 9, 14, 5, 6, 0, time.UTC)

func sampleResult() *models.Result {
	created := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)
	return &models.Result{
		Account: models.AccountInfo{
			ID: "1", ScreenName: "gopher", Name: "The Gopher", FollowersCount: 12345,
			FollowingCount: 10, PostsCount: 99, CreatedAt: created.AddDate(-5, 0, 0),
		},
		Posts: []models.TaggedPost{
			{
				Post: models.Post{
					ID: "20", CreatedAt: created, Text: "Go 1.23 is out!, with \"quotes\"", Likes: 50, Reshares: 5,
					Hashtags: []string{"golang"}, URLs: []string{"https://go.dev/blog"},
				},
				Tag: models.Tag{Topics: []string{"go"}, Sentiment: models.SentimentPositive, Styles: []string{"exclamatory", "reference"}},
			},
			{
				Post: models.Post{ID: "19", CreatedAt: created.Add(-time.Hour), Text: "@bob thanks", IsReply: true, Replies: 2},
				Tag:  models.DefaultTag(),
			},
		},
		Vocabulary: []models.TopicCount{{Name: "go", Count: 1}},
		PostType:   models.PostTypeBoth,
		FetchedAt:  fixedNow,
	}
}

func newTestGenerator(t *testing.T, formats ...string) (*Generator, string) {
	t.Helper()
	base := t.TempDir()
	return NewGenerator(base, formats, WithClock(func() time.Time { return fixedNow }), WithLogger(logger.NewNopLogger())), base
}

func TestWriteAllFormats(t *testing.T) {
	g, base := newTestGenerator(t)
	res := sampleResult()

	out, err := g.Write(context.Background(), res, summary.Compute(res))
	require.NoError(t, err)
	assert.Empty(t, out.Failed)
	assert.Equal(t, filepath.Join(base, "gopher_20240709_140506"), out.Folder)

	var names []string
	for _, f := range out.Files {
		assert.Equal(t, out.Folder, filepath.Dir(f))
		names = append(names, filepath.Base(f))
	}
	assert.ElementsMatch(t, []string{
		"account_info.json", "posts.json", "dashboard_data.json",
		"posts_simple.csv", "posts_full.csv", "posts.xml", "summary.txt", "posts.db",
	}, names)

	entries, err := os.ReadDir(out.Folder)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), "leftover temp file %s", e.Name())
	}
}

func TestSecondWriteGetsNewFolder(t *testing.T) {
	g, base := newTestGenerator(t, FormatJSON)
	res := sampleResult()

	first, err := g.Write(context.Background(), res, summary.Compute(res))
	require.NoError(t, err)
	second, err := g.Write(context.Background(), res, summary.Compute(res))
	require.NoError(t, err)

	assert.NotEqual(t, first.Folder, second.Folder)
	assert.Equal(t, filepath.Join(base, "gopher_20240709_140506_2"), second.Folder)
}

func TestCSVOutput(t *testing.T) {
	g, _ := newTestGenerator(t, FormatCSV)
	res := sampleResult()
	out, err := g.Write(context.Background(), res, summary.Compute(res))
	require.NoError(t, err)

	rows := readCSV(t, filepath.Join(out.Folder, "posts_simple.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, simpleHeader, rows[0])
	assert.Equal(t, []string{"20", "2024-07-01T08:00:00Z", "Go 1.23 is out!, with \"quotes\""}, rows[1])

	full := readCSV(t, filepath.Join(out.Folder, "posts_full.csv"))
	require.Len(t, full, 3)
	col := func(name string) int {
		for i, h := range full[0] {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	assert.Equal(t, "exclamatory, reference", full[1][col("style")])
	assert.Equal(t, "standard", full[2][col("style")])
	assert.Equal(t, "go", full[1][col("topics")])
	assert.Equal(t, "neutral", full[2][col("sentiment")])
	assert.Equal(t, "true", full[2][col("is_reply")])
	assert.Equal(t, "gopher", full[1][col("author")])
	assert.Equal(t, "The Gopher", full[1][col("author_name")])
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestJSONOutput(t *testing.T) {
	g, _ := newTestGenerator(t, FormatJSON)
	res := sampleResult()
	out, err := g.Write(context.Background(), res, summary.Compute(res))
	require.NoError(t, err)

	var decoded models.Result
	data, err := os.ReadFile(filepath.Join(out.Folder, "posts.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Posts, 2)
	assert.Equal(t, "20", decoded.Posts[0].Post.ID)

	dash, err := os.ReadFile(filepath.Join(out.Folder, "dashboard_data.json"))
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(dash, &fields))
	assert.Equal(t, 50.0, fields["positive_pct"])
	assert.Equal(t, 50.0, fields["replies_pct"])

	account, err := os.ReadFile(filepath.Join(out.Folder, "account_info.json"))
	require.NoError(t, err)
	assert.Contains(t, string(account), `"screen_name": "gopher"`)
}

func TestXMLOutput(t *testing.T) {
	g, _ := newTestGenerator(t, FormatXML)
	res := sampleResult()
	out, err := g.Write(context.Background(), res, summary.Compute(res))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out.Folder, "posts.xml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))

	var doc xmlDocument
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Equal(t, "gopher", doc.Account.Username)
	assert.Equal(t, 2, doc.Metadata.PostCount)
	assert.Equal(t, []string{"go"}, doc.TagReference.Topics)
	assert.Equal(t, []string{"exclamatory", "reference", "standard"}, doc.TagReference.Styles)
	require.Len(t, doc.Posts, 2)
	assert.Equal(t, []string{"standard"}, doc.Posts[1].Tags.Styles)
	assert.True(t, doc.Posts[1].IsReply)
}

func TestSummaryText(t *testing.T) {
	g, _ := newTestGenerator(t, FormatSummary)
	res := sampleResult()
	out, err := g.Write(context.Background(), res, summary.Compute(res))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out.Folder, "summary.txt"))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "Account summary for @gopher")
	assert.Contains(t, text, "Followers: 12,345")
	assert.Contains(t, text, "Collected 2 both")
	assert.Contains(t, text, "Sentiment: 50.0% positive, 50.0% neutral, 0.0% negative")
	assert.Contains(t, text, "  #golang (1)")
	assert.Contains(t, text, "  go.dev (1)")
}

func TestSQLiteOutput(t *testing.T) {
	g, _ := newTestGenerator(t, FormatSQLite)
	res := sampleResult()
	out, err := g.Write(context.Background(), res, summary.Compute(res))
	require.NoError(t, err)

	db, err := sql.Open("sqlite", filepath.Join(out.Folder, "posts.db"))
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count))
	assert.Equal(t, 2, count)

	var first string
	require.NoError(t, db.QueryRow(`SELECT post_id FROM posts ORDER BY position LIMIT 1`).Scan(&first))
	assert.Equal(t, "20", first)

	var topic string
	require.NoError(t, db.QueryRow(`SELECT value FROM tags WHERE post_id = ? AND kind = 'topic'`, "20").Scan(&topic))
	assert.Equal(t, "go", topic)

	var username string
	require.NoError(t, db.QueryRow(`SELECT value FROM metadata WHERE key = 'username'`).Scan(&username))
	assert.Equal(t, "gopher", username)
}

func TestFailingFormatDoesNotStopOthers(t *testing.T) {
	boom := errors.New("disk on fire")
	writers["broken"] = []fileWriter{{"broken.txt", func(context.Context, string, *models.Result, summary.Summary, time.Time) (string, error) {
		return "", boom
	}}}
	defer delete(writers, "broken")

	g, _ := newTestGenerator(t, "broken", "bogus", FormatSummary)
	res := sampleResult()
	out, err := g.Write(context.Background(), res, summary.Compute(res))
	require.NoError(t, err)

	assert.ErrorIs(t, out.Failed["broken.txt"], boom)
	assert.ErrorContains(t, out.Failed["bogus"], "unknown output format")
	require.Len(t, out.Files, 1)
	assert.Equal(t, "summary.txt", filepath.Base(out.Files[0]))
}

func TestNothingWritten(t *testing.T) {
	g, _ := newTestGenerator(t, "bogus")
	res := sampleResult()

	out, err := g.Write(context.Background(), res, summary.Compute(res))
	require.Error(t, err)
	assert.Empty(t, out.Files)

	_, err = g.Write(context.Background(), nil, summary.Summary{})
	assert.Error(t, err)
}

func TestFormatsNormalized(t *testing.T) {
	g := NewGenerator(t.TempDir(), []string{" JSON", "csv", "json", ""})
	assert.Equal(t, []string{"json", "csv"}, g.Formats())

	all := NewGenerator(t.TempDir(), nil)
	assert.Len(t, all.Formats(), 5)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "a b", truncate("a \n b", 10))
}
