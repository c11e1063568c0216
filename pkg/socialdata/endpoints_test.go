package socialdata

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"postscope/pkg/models"
)

func TestGetUserURL(t *testing.T) {
	assert.Equal(t, "https://api.socialdata.tools/twitter/user/alice", GetUserURL(BaseURL, "alice"))
	assert.Equal(t, "http://localhost:1/twitter/user/bob", GetUserURL("http://localhost:1/", "bob"))
}

func TestGetSearchURL(t *testing.T) {
	raw := GetSearchURL(BaseURL, "from:alice -filter:replies", "")
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, SearchEndpoint, u.Path)
	assert.Equal(t, "from:alice -filter:replies", u.Query().Get("query"))
	assert.Equal(t, "Latest", u.Query().Get("type"))
	assert.False(t, u.Query().Has("cursor"))

	u, err = url.Parse(GetSearchURL(BaseURL, "from:alice", "c/1+="))
	require.NoError(t, err)
	assert.Equal(t, "c/1+=", u.Query().Get("cursor"))
}

func TestBuildQuery(t *testing.T) {
	since := time.Unix(1700000000, 0)
	until := time.Unix(1700086399, 0)

	assert.Equal(t, "from:alice -filter:replies", BuildQuery("alice", models.PostTypePosts, time.Time{}, time.Time{}))
	assert.Equal(t, "from:alice filter:replies", BuildQuery("alice", models.PostTypeReplies, time.Time{}, time.Time{}))
	assert.Equal(t,
		"from:alice -filter:replies since_time:1700000000 until_time:1700086400",
		BuildQuery("alice", models.PostTypePosts, since, until))
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"alice", true},
		{"Alice_99", true},
		{"abcdefghijklmno", true},
		{"abcdefghijklmnop", false},
		{"", false},
		{"al.ice", false},
		{"al ice", false},
		{"@alice", false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidUsername(tt.username))
		})
	}
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "alice", SanitizeUsername("@alice"))
	assert.Equal(t, "alice", SanitizeUsername("  alice/ "))
	assert.Equal(t, "alice", SanitizeUsername("https://x.com/alice"))
	assert.Equal(t, "alice", SanitizeUsername("twitter.com/alice/"))
	assert.Equal(t, "", SanitizeUsername(""))
}

func TestPermalinks(t *testing.T) {
	assert.Equal(t, "https://x.com/alice", GetProfileURL("alice"))
	assert.Equal(t, "https://x.com/alice/status/12", GetPostURL("alice", "12"))
	assert.Empty(t, GetPostURL("", "12"))
}
