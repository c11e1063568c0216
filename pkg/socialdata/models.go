package socialdata

import (
	"strings"

	"postscope/pkg/models"
)

// apiUser is the account object returned by the user endpoint
type apiUser struct {
	IDStr                string `json:"id_str"`
	Name                 string `json:"name"`
	ScreenName           string `json:"screen_name"`
	Description          string `json:"description"`
	CreatedAt            string `json:"created_at"`
	FollowersCount       int    `json:"followers_count"`
	FriendsCount         int    `json:"friends_count"`
	StatusesCount        int    `json:"statuses_count"`
	ProfileImageURLHTTPS string `json:"profile_image_url_https"`
	Protected            bool   `json:"protected"`
	Verified             bool   `json:"verified"`
}

// apiTweet is one element of a search page
type apiTweet struct {
	IDStr                string        `json:"id_str"`
	TweetCreatedAt       string        `json:"tweet_created_at"`
	CreatedAt            string        `json:"created_at"`
	FullText             string        `json:"full_text"`
	Text                 string        `json:"text"`
	FavoriteCount        int           `json:"favorite_count"`
	RetweetCount         int           `json:"retweet_count"`
	QuoteCount           int           `json:"quote_count"`
	ReplyCount           int           `json:"reply_count"`
	ViewsCount           *int          `json:"views_count"`
	InReplyToStatusIDStr *string       `json:"in_reply_to_status_id_str"`
	RetweetedStatus      *apiRetweeted `json:"retweeted_status"`
	User                 apiTweetUser  `json:"user"`
	Entities             apiEntities   `json:"entities"`
	ExtendedEntities     *apiEntities  `json:"extended_entities"`
}

type apiRetweeted struct {
	IDStr string `json:"id_str"`
}

type apiTweetUser struct {
	ScreenName string `json:"screen_name"`
}

type apiEntities struct {
	Hashtags []struct {
		Text string `json:"text"`
	} `json:"hashtags"`
	UserMentions []struct {
		ScreenName string `json:"screen_name"`
	} `json:"user_mentions"`
	URLs []struct {
		URL         string `json:"url"`
		ExpandedURL string `json:"expanded_url"`
	} `json:"urls"`
	Media []struct {
		Type string `json:"type"`
	} `json:"media"`
}

// searchResponse is one page of the search endpoint
type searchResponse struct {
	Tweets     []apiTweet `json:"tweets"`
	NextCursor string     `json:"next_cursor"`
}

// apiErrorBody is the error envelope the API sends with 4xx responses
type apiErrorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (u apiUser) toAccount() models.AccountInfo {
	account := models.AccountInfo{
		ID:              u.IDStr,
		ScreenName:      u.ScreenName,
		Name:            u.Name,
		Description:     u.Description,
		FollowersCount:  u.FollowersCount,
		FollowingCount:  u.FriendsCount,
		PostsCount:      u.StatusesCount,
		ProfileImageURL: u.ProfileImageURLHTTPS,
		Protected:       u.Protected,
		Verified:        u.Verified,
	}
	if t, err := models.ParseTime(u.CreatedAt); err == nil {
		account.CreatedAt = t
	}
	return account
}

// toPost converts a wire tweet. ok is false when the tweet has no id or no
// usable timestamp.
func (t apiTweet) toPost() (models.Post, bool) {
	if t.IDStr == "" {
		return models.Post{}, false
	}

	raw := t.TweetCreatedAt
	if raw == "" {
		raw = t.CreatedAt
	}
	created, err := models.ParseTime(raw)
	if err != nil {
		return models.Post{}, false
	}

	text := t.FullText
	if text == "" {
		text = t.Text
	}

	post := models.Post{
		ID:               t.IDStr,
		CreatedAt:        created,
		Text:             text,
		AuthorScreenName: t.User.ScreenName,
		Likes:            t.FavoriteCount,
		Reshares:         t.RetweetCount,
		Quotes:           t.QuoteCount,
		Replies:          t.ReplyCount,
		IsReply:          t.InReplyToStatusIDStr != nil && *t.InReplyToStatusIDStr != "",
		IsReshare:        t.RetweetedStatus != nil || strings.HasPrefix(text, "RT @"),
		Hashtags:         []string{},
		Mentions:         []string{},
		URLs:             []string{},
	}
	if t.ViewsCount != nil {
		post.Views = *t.ViewsCount
	}

	for _, h := range t.Entities.Hashtags {
		post.Hashtags = append(post.Hashtags, h.Text)
	}
	for _, m := range t.Entities.UserMentions {
		post.Mentions = append(post.Mentions, m.ScreenName)
	}
	for _, u := range t.Entities.URLs {
		link := u.ExpandedURL
		if link == "" {
			link = u.URL
		}
		if link != "" {
			post.URLs = append(post.URLs, link)
		}
	}

	post.MediaCount = len(t.Entities.Media)
	if t.ExtendedEntities != nil && len(t.ExtendedEntities.Media) > post.MediaCount {
		post.MediaCount = len(t.ExtendedEntities.Media)
	}

	return post, true
}
