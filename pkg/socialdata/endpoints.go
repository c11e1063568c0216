package socialdata

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"postscope/pkg/models"
)

const (
	// BaseURL is the SocialData API root
	BaseURL = "https://api.socialdata.tools"

	// UserEndpoint is the path prefix for account lookups
	UserEndpoint = "/twitter/user/"

	// SearchEndpoint is the path for paginated search
	SearchEndpoint = "/twitter/search"

	// SearchTypeLatest orders search results newest first
	SearchTypeLatest = "Latest"

	// MaxUsernameLength is the longest handle the platform allows
	MaxUsernameLength = 15
)

// GetUserURL constructs the URL for an account lookup
func GetUserURL(baseURL, username string) string {
	return strings.TrimRight(baseURL, "/") + UserEndpoint + url.PathEscape(username)
}

// GetSearchURL constructs the URL for one page of search results
func GetSearchURL(baseURL, query, cursor string) string {
	params := url.Values{}
	params.Set("query", query)
	params.Set("type", SearchTypeLatest)
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), SearchEndpoint, params.Encode())
}

// BuildQuery builds the search query for one stream of an account. stream
// must be posts or replies. since and until are pushed down as hints when
// set; until is widened by a second so the upstream cut never drops posts
// the local filter would keep.
func BuildQuery(username string, stream models.PostType, since, until time.Time) string {
	var b strings.Builder
	b.WriteString("from:")
	b.WriteString(username)

	switch stream {
	case models.PostTypeReplies:
		b.WriteString(" filter:replies")
	default:
		b.WriteString(" -filter:replies")
	}

	if !since.IsZero() {
		fmt.Fprintf(&b, " since_time:%d", since.Unix())
	}
	if !until.IsZero() {
		fmt.Fprintf(&b, " until_time:%d", until.Unix()+1)
	}

	return b.String()
}

// GetProfileURL returns the public profile page for a handle
func GetProfileURL(username string) string {
	if username == "" {
		return ""
	}
	return "https://x.com/" + username
}

// GetPostURL returns the public permalink of a post
func GetPostURL(username, id string) string {
	if username == "" || id == "" {
		return ""
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", username, id)
}

// IsValidUsername checks a handle against the platform rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > MaxUsernameLength {
		return false
	}

	// letters, digits and underscores only
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading @, a profile URL prefix and surrounding
// whitespace or slashes
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	for _, prefix := range []string{"https://x.com/", "https://twitter.com/", "x.com/", "twitter.com/"} {
		username = strings.TrimPrefix(username, prefix)
	}
	username = strings.TrimPrefix(username, "@")
	return strings.Trim(username, "/ ")
}
