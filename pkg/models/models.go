package models

import (
	"fmt"
	"strings"
	"time"
)

// PostType selects which upstream stream a job collects
type PostType string

const (
	PostTypePosts   PostType = "posts"
	PostTypeReplies PostType = "replies"
	PostTypeBoth    PostType = "both"
)

// ParsePostType accepts posts, replies or both, case-insensitively. An empty
// string means posts.
func ParsePostType(s string) (PostType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "posts", "tweets":
		return PostTypePosts, nil
	case "replies":
		return PostTypeReplies, nil
	case "both", "all":
		return PostTypeBoth, nil
	default:
		return "", fmt.Errorf("unknown post type %q (want posts, replies or both)", s)
	}
}

// AccountInfo is a snapshot of the target account, fetched once per job
type AccountInfo struct {
	ID              string    `json:"id"`
	ScreenName      string    `json:"screen_name"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	CreatedAt       time.Time `json:"created_at"`
	FollowersCount  int       `json:"followers_count"`
	FollowingCount  int       `json:"following_count"`
	PostsCount      int       `json:"posts_count"`
	ProfileImageURL string    `json:"profile_image_url"`
	Protected       bool      `json:"protected"`
	Verified        bool      `json:"verified"`
}

// Post is one collected item. Posts are immutable once parsed.
type Post struct {
	ID               string    `json:"id"`
	CreatedAt        time.Time `json:"created_at"`
	Text             string    `json:"text"`
	AuthorScreenName string    `json:"author"`
	Likes            int       `json:"likes"`
	Reshares         int       `json:"retweets"`
	Quotes           int       `json:"quotes"`
	Views            int       `json:"views"`
	Replies          int       `json:"replies"`
	IsReply          bool      `json:"is_reply"`
	IsReshare        bool      `json:"is_retweet"`
	MediaCount       int       `json:"media_count"`
	Hashtags         []string  `json:"hashtags"`
	Mentions         []string  `json:"mentions"`
	URLs             []string  `json:"urls"`
}

// Engagement weighs replies and reshares above likes
func (p Post) Engagement() int {
	return p.Likes + 2*p.Reshares + 3*p.Replies
}

// Sentiment is the lexicon polarity of a post
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// Tag holds the derived attributes of one post
type Tag struct {
	Topics    []string  `json:"topics"`
	Sentiment Sentiment `json:"sentiment"`
	Styles    []string  `json:"styles"`
}

// DefaultTag is assigned to posts the tagger cannot classify
func DefaultTag() Tag {
	return Tag{Topics: []string{}, Sentiment: SentimentNeutral, Styles: []string{}}
}

// TaggedPost pairs a post with its tag
type TaggedPost struct {
	Post Post `json:"post"`
	Tag  Tag  `json:"tag"`
}

// TopicCount is a vocabulary entry
type TopicCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Result is the output of a completed job. Posts keep fetch order.
type Result struct {
	Account    AccountInfo  `json:"account"`
	Posts      []TaggedPost `json:"posts"`
	Vocabulary []TopicCount `json:"vocabulary"`
	PostType   PostType     `json:"post_type"`
	FetchedAt  time.Time    `json:"fetched_at"`
}

// CompareIDs orders numeric post IDs without parsing them. It returns a
// positive number when a is the larger ID.
func CompareIDs(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RubyDate,
	"2006-01-02 15:04:05",
}

// ParseTime accepts the timestamp layouts the data API is known to emit
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
