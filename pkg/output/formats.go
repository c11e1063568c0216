package output

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"postscope/pkg/models"
	"postscope/pkg/summary"
	"postscope/pkg/tagger"
)

const timeLayout = time.RFC3339

func writeJSON(path string, v interface{}) error {
	return writeAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
		}
		return nil
	})
}

func writeAccountJSON(_ context.Context, dir string, res *models.Result, _ summary.Summary, _ time.Time) (string, error) {
	path := filepath.Join(dir, "account_info.json")
	return path, writeJSON(path, res.Account)
}

func writePostsJSON(_ context.Context, dir string, res *models.Result, _ summary.Summary, _ time.Time) (string, error) {
	path := filepath.Join(dir, "posts.json")
	return path, writeJSON(path, res)
}

func writeDashboardJSON(_ context.Context, dir string, _ *models.Result, sum summary.Summary, _ time.Time) (string, error) {
	path := filepath.Join(dir, "dashboard_data.json")
	return path, writeJSON(path, sum)
}

var (
	simpleHeader = []string{"post_id", "created_at", "text"}
	fullHeader   = []string{
		"post_id", "created_at", "text", "author", "author_name",
		"retweets", "likes", "quotes", "views", "replies",
		"is_reply", "is_retweet", "media_count",
		"hashtags", "mentions", "urls",
		"topics", "sentiment", "style",
	}
)

func writeCSV(path string, header []string, rows func(w *csv.Writer) error) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := rows(cw); err != nil {
			return err
		}
		cw.Flush()
		return cw.Error()
	})
}

func writeSimpleCSV(_ context.Context, dir string, res *models.Result, _ summary.Summary, _ time.Time) (string, error) {
	path := filepath.Join(dir, "posts_simple.csv")
	return path, writeCSV(path, simpleHeader, func(cw *csv.Writer) error {
		for _, tp := range res.Posts {
			if err := cw.Write([]string{tp.Post.ID, formatTime(tp.Post.CreatedAt), tp.Post.Text}); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeFullCSV(_ context.Context, dir string, res *models.Result, _ summary.Summary, _ time.Time) (string, error) {
	path := filepath.Join(dir, "posts_full.csv")
	return path, writeCSV(path, fullHeader, func(cw *csv.Writer) error {
		for _, tp := range res.Posts {
			p := tp.Post
			author := p.AuthorScreenName
			if author == "" {
				author = res.Account.ScreenName
			}
			row := []string{
				p.ID, formatTime(p.CreatedAt), p.Text, author, res.Account.Name,
				strconv.Itoa(p.Reshares), strconv.Itoa(p.Likes), strconv.Itoa(p.Quotes),
				strconv.Itoa(p.Views), strconv.Itoa(p.Replies),
				strconv.FormatBool(p.IsReply), strconv.FormatBool(p.IsReshare), strconv.Itoa(p.MediaCount),
				strings.Join(p.Hashtags, ", "), strings.Join(p.Mentions, ", "), strings.Join(p.URLs, ", "),
				strings.Join(tp.Tag.Topics, ", "), string(tp.Tag.Sentiment), tagger.DisplayStyles(tp.Tag.Styles),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

type xmlDocument struct {
	XMLName      xml.Name        `xml:"PostData"`
	Metadata     xmlMetadata     `xml:"Metadata"`
	Account      xmlAccount      `xml:"Account"`
	TagReference xmlTagReference `xml:"TagReference"`
	Posts        []xmlPost       `xml:"Posts>Post"`
}

type xmlMetadata struct {
	ExportDate string `xml:"ExportDate"`
	PostType   string `xml:"PostType"`
	PostCount  int    `xml:"PostCount"`
}

type xmlAccount struct {
	Username       string `xml:"Username"`
	Name           string `xml:"Name"`
	FollowersCount int    `xml:"FollowersCount"`
	FollowingCount int    `xml:"FollowingCount"`
	PostsCount     int    `xml:"PostsCount"`
	CreatedAt      string `xml:"CreatedAt"`
}

type xmlTagReference struct {
	Topics []string `xml:"Topics>Topic"`
	Styles []string `xml:"Styles>Style"`
}

type xmlPost struct {
	ID        string  `xml:"ID"`
	CreatedAt string  `xml:"CreatedAt"`
	Text      string  `xml:"Text"`
	Author    string  `xml:"Author"`
	Retweets  int     `xml:"Retweets"`
	Likes     int     `xml:"Likes"`
	Replies   int     `xml:"Replies"`
	IsReply   bool    `xml:"IsReply"`
	IsRetweet bool    `xml:"IsRetweet"`
	Tags      xmlTags `xml:"Tags"`
}

type xmlTags struct {
	Topics    []string `xml:"Topics>Topic"`
	Sentiment string   `xml:"Sentiment"`
	Styles    []string `xml:"Styles>Style"`
}

func buildXML(res *models.Result, now time.Time) xmlDocument {
	doc := xmlDocument{
		Metadata: xmlMetadata{
			ExportDate: now.Format(timeLayout),
			PostType:   string(res.PostType),
			PostCount:  len(res.Posts),
		},
		Account: xmlAccount{
			Username:       res.Account.ScreenName,
			Name:           res.Account.Name,
			FollowersCount: res.Account.FollowersCount,
			FollowingCount: res.Account.FollowingCount,
			PostsCount:     res.Account.PostsCount,
			CreatedAt:      formatTime(res.Account.CreatedAt),
		},
		Posts: make([]xmlPost, 0, len(res.Posts)),
	}

	topics := make(map[string]bool)
	styles := make(map[string]bool)
	for _, tp := range res.Posts {
		p := tp.Post
		postStyles := tp.Tag.Styles
		if len(postStyles) == 0 {
			postStyles = []string{tagger.StyleStandard}
		}
		for _, t := range tp.Tag.Topics {
			topics[t] = true
		}
		for _, s := range postStyles {
			styles[s] = true
		}

		author := p.AuthorScreenName
		if author == "" {
			author = res.Account.ScreenName
		}
		doc.Posts = append(doc.Posts, xmlPost{
			ID:        p.ID,
			CreatedAt: formatTime(p.CreatedAt),
			Text:      p.Text,
			Author:    author,
			Retweets:  p.Reshares,
			Likes:     p.Likes,
			Replies:   p.Replies,
			IsReply:   p.IsReply,
			IsRetweet: p.IsReshare,
			Tags: xmlTags{
				Topics:    tp.Tag.Topics,
				Sentiment: string(tp.Tag.Sentiment),
				Styles:    postStyles,
			},
		})
	}

	doc.TagReference.Topics = sortedKeys(topics)
	doc.TagReference.Styles = sortedKeys(styles)
	return doc
}

func writeXML(_ context.Context, dir string, res *models.Result, _ summary.Summary, now time.Time) (string, error) {
	path := filepath.Join(dir, "posts.xml")
	doc := buildXML(res, now)
	return path, writeAtomic(path, func(w io.Writer) error {
		if _, err := io.WriteString(w, xml.Header); err != nil {
			return err
		}
		enc := xml.NewEncoder(w)
		enc.Indent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode posts.xml: %w", err)
		}
		_, err := io.WriteString(w, "\n")
		return err
	})
}

func writeSummaryText(_ context.Context, dir string, res *models.Result, sum summary.Summary, now time.Time) (string, error) {
	path := filepath.Join(dir, "summary.txt")
	return path, writeAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, renderSummary(res, sum, now))
		return err
	})
}

// renderSummary produces the plain text report
func renderSummary(res *models.Result, sum summary.Summary, now time.Time) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		b.WriteString(p.Sprintf(format, args...))
		b.WriteByte('\n')
	}

	a := res.Account
	line("Account summary for @%s", a.ScreenName)
	line("Generated %s", now.Format("2006-01-02 15:04:05"))
	line("")
	line("Name: %s", a.Name)
	if a.Description != "" {
		line("Bio: %s", a.Description)
	}
	line("Followers: %d", a.FollowersCount)
	line("Following: %d", a.FollowingCount)
	line("Posts: %d", a.PostsCount)
	if !a.CreatedAt.IsZero() {
		line("Joined: %s", a.CreatedAt.Format("2006-01-02"))
	}
	line("")
	line("Collected %d %s", sum.PostCount, res.PostType)
	line("Regular: %.1f%%  Replies: %.1f%%  Reshares: %.1f%%", sum.RegularPct, sum.RepliesPct, sum.ResharePct)
	line("Sentiment: %.1f%% positive, %.1f%% neutral, %.1f%% negative", sum.PositivePct, sum.NeutralPct, sum.NegativePct)
	line("Average likes: %.2f", sum.AvgLikes)
	line("Average retweets: %.2f", sum.AvgRetweets)
	line("Average replies: %.2f", sum.AvgReplies)
	line("Total views: %d", sum.TotalViews)

	writeCounts := func(title string, counts []models.TopicCount, prefix string) {
		if len(counts) == 0 {
			return
		}
		line("")
		line("%s:", title)
		for _, c := range counts {
			line("  %s%s (%d)", prefix, c.Name, c.Count)
		}
	}
	writeCounts("Topics", sum.Topics, "")
	writeCounts("Top hashtags", sum.TopHashtags, "#")
	writeCounts("Top mentions", sum.TopMentions, "@")
	writeCounts("Top domains", sum.TopDomains, "")

	if len(sum.TopPosts) > 0 {
		line("")
		line("Most engaging posts:")
		for i, tp := range sum.TopPosts {
			line("  %d. [%d] %s", i+1, tp.Engagement, truncate(tp.Text, 100))
		}
	}
	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
