// Package summary aggregates a tagged result into the figures shown on the
// dashboard and in summary.txt.
package summary

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"postscope/pkg/models"
)

const (
	topEntities = 10
	topPosts    = 5
)

// Summary holds aggregate figures over one result. Percentages are 0..100
// and zero for an empty result.
type Summary struct {
	PostCount int `json:"post_count"`

	PositivePct float64 `json:"positive_pct"`
	NeutralPct  float64 `json:"neutral_pct"`
	NegativePct float64 `json:"negative_pct"`

	RegularPct float64 `json:"regular_pct"`
	RepliesPct float64 `json:"replies_pct"`
	ResharePct float64 `json:"reshare_pct"`

	AvgLikes    float64 `json:"avg_likes"`
	AvgRetweets float64 `json:"avg_retweets"`
	AvgReplies  float64 `json:"avg_replies"`

	TotalLikes    int `json:"total_likes"`
	TotalRetweets int `json:"total_retweets"`
	TotalReplies  int `json:"total_replies"`
	TotalQuotes   int `json:"total_quotes"`
	TotalViews    int `json:"total_views"`

	Topics      []models.TopicCount `json:"topics"`
	TopHashtags []models.TopicCount `json:"top_hashtags"`
	TopMentions []models.TopicCount `json:"top_mentions"`
	TopDomains  []models.TopicCount `json:"top_domains"`

	HourActivity    [24]int        `json:"hour_activity"`
	WeekdayActivity map[string]int `json:"weekday_activity"`

	TopPosts []TopPost `json:"top_posts"`
}

// TopPost is a post ranked by engagement
type TopPost struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Text       string    `json:"text"`
	Likes      int       `json:"likes"`
	Retweets   int       `json:"retweets"`
	Replies    int       `json:"replies"`
	Engagement int       `json:"engagement"`
}

// Compute aggregates the full tagged set. It does not modify the result.
func Compute(result *models.Result) Summary {
	s := Summary{
		Topics:          []models.TopicCount{},
		TopHashtags:     []models.TopicCount{},
		TopMentions:     []models.TopicCount{},
		TopDomains:      []models.TopicCount{},
		WeekdayActivity: make(map[string]int, 7),
		TopPosts:        []TopPost{},
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		s.WeekdayActivity[d.String()] = 0
	}
	if result == nil || len(result.Posts) == 0 {
		return s
	}

	var positive, neutral, negative, regular, replies, reshares int
	topicPosts := make(map[string]int)
	hashtags := make(map[string]int)
	mentions := make(map[string]int)
	domains := make(map[string]int)

	for _, tp := range result.Posts {
		p := tp.Post

		switch tp.Tag.Sentiment {
		case models.SentimentPositive:
			positive++
		case models.SentimentNegative:
			negative++
		default:
			neutral++
		}

		switch {
		case p.IsReshare:
			reshares++
		case p.IsReply:
			replies++
		default:
			regular++
		}

		s.TotalLikes += p.Likes
		s.TotalRetweets += p.Reshares
		s.TotalReplies += p.Replies
		s.TotalQuotes += p.Quotes
		s.TotalViews += p.Views

		for _, topic := range tp.Tag.Topics {
			topicPosts[topic]++
		}
		for _, h := range p.Hashtags {
			hashtags[strings.ToLower(h)]++
		}
		for _, m := range p.Mentions {
			mentions[strings.ToLower(m)]++
		}
		for _, raw := range p.URLs {
			if d := domainOf(raw); d != "" {
				domains[d]++
			}
		}

		if !p.CreatedAt.IsZero() {
			at := p.CreatedAt.UTC()
			s.HourActivity[at.Hour()]++
			s.WeekdayActivity[at.Weekday().String()]++
		}
	}

	n := len(result.Posts)
	s.PostCount = n
	s.PositivePct = pct(positive, n)
	s.NeutralPct = pct(neutral, n)
	s.NegativePct = pct(negative, n)
	s.RegularPct = pct(regular, n)
	s.RepliesPct = pct(replies, n)
	s.ResharePct = pct(reshares, n)
	s.AvgLikes = avg(s.TotalLikes, n)
	s.AvgRetweets = avg(s.TotalRetweets, n)
	s.AvgReplies = avg(s.TotalReplies, n)

	for _, v := range result.Vocabulary {
		s.Topics = append(s.Topics, models.TopicCount{Name: v.Name, Count: topicPosts[v.Name]})
	}
	sortCounts(s.Topics)

	s.TopHashtags = top(hashtags, topEntities)
	s.TopMentions = top(mentions, topEntities)
	s.TopDomains = top(domains, topEntities)
	s.TopPosts = rankPosts(result.Posts, topPosts)

	return s
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) * 100 / float64(total))
}

func avg(sum, n int) float64 {
	if n == 0 {
		return 0
	}
	return round2(float64(sum) / float64(n))
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func sortCounts(c []models.TopicCount) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Count != c[j].Count {
			return c[i].Count > c[j].Count
		}
		return c[i].Name < c[j].Name
	})
}

func top(counts map[string]int, k int) []models.TopicCount {
	out := make([]models.TopicCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.TopicCount{Name: name, Count: n})
	}
	sortCounts(out)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// rankPosts orders by engagement, newer posts first on ties
func rankPosts(posts []models.TaggedPost, k int) []TopPost {
	ranked := make([]TopPost, 0, len(posts))
	for _, tp := range posts {
		p := tp.Post
		ranked = append(ranked, TopPost{
			ID:         p.ID,
			CreatedAt:  p.CreatedAt,
			Text:       p.Text,
			Likes:      p.Likes,
			Retweets:   p.Reshares,
			Replies:    p.Replies,
			Engagement: p.Engagement(),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Engagement != ranked[j].Engagement {
			return ranked[i].Engagement > ranked[j].Engagement
		}
		return models.CompareIDs(ranked[i].ID, ranked[j].ID) > 0
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
