package output

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"postscope/pkg/models"
	"postscope/pkg/summary"
)

var schema = []string{
	`CREATE TABLE metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
	`CREATE TABLE posts (
		post_id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		text TEXT NOT NULL,
		author TEXT NOT NULL,
		likes INTEGER NOT NULL,
		retweets INTEGER NOT NULL,
		quotes INTEGER NOT NULL,
		views INTEGER NOT NULL,
		replies INTEGER NOT NULL,
		is_reply INTEGER NOT NULL,
		is_retweet INTEGER NOT NULL,
		media_count INTEGER NOT NULL,
		hashtags TEXT NOT NULL,
		mentions TEXT NOT NULL,
		urls TEXT NOT NULL
	);`,
	`CREATE TABLE tags (
		post_id TEXT NOT NULL REFERENCES posts(post_id),
		kind TEXT NOT NULL,
		value TEXT NOT NULL
	);`,
	`CREATE INDEX idx_tags_value ON tags(kind, value);`,
}

// writeSQLite builds the database under a temp name and renames it into
// place once committed
func writeSQLite(ctx context.Context, dir string, res *models.Result, _ summary.Summary, now time.Time) (string, error) {
	path := filepath.Join(dir, "posts.db")
	tempPath := path + ".tmp"
	os.Remove(tempPath)

	if err := buildDatabase(ctx, tempPath, res, now); err != nil {
		os.Remove(tempPath)
		return path, err
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return path, fmt.Errorf("failed to rename database: %w", err)
	}
	return path, nil
}

func buildDatabase(ctx context.Context, path string, res *models.Result, now time.Time) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	meta := map[string]string{
		"username":        res.Account.ScreenName,
		"name":            res.Account.Name,
		"followers_count": fmt.Sprint(res.Account.FollowersCount),
		"post_type":       string(res.PostType),
		"post_count":      fmt.Sprint(len(res.Posts)),
		"exported_at":     now.UTC().Format(timeLayout),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO metadata (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert metadata: %w", err)
		}
	}

	postStmt, err := tx.PrepareContext(ctx, `INSERT INTO posts (
		post_id, position, created_at, text, author, likes, retweets, quotes, views, replies,
		is_reply, is_retweet, media_count, hashtags, mentions, urls
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare posts: %w", err)
	}
	defer postStmt.Close()

	tagStmt, err := tx.PrepareContext(ctx, `INSERT INTO tags (post_id, kind, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare tags: %w", err)
	}
	defer tagStmt.Close()

	for i, tp := range res.Posts {
		p := tp.Post
		author := p.AuthorScreenName
		if author == "" {
			author = res.Account.ScreenName
		}
		if _, err := postStmt.ExecContext(ctx,
			p.ID, i, formatTime(p.CreatedAt), p.Text, author,
			p.Likes, p.Reshares, p.Quotes, p.Views, p.Replies,
			boolInt(p.IsReply), boolInt(p.IsReshare), p.MediaCount,
			strings.Join(p.Hashtags, ","), strings.Join(p.Mentions, ","), strings.Join(p.URLs, ","),
		); err != nil {
			return fmt.Errorf("insert post %s: %w", p.ID, err)
		}

		tags := [][2]string{{"sentiment", string(tp.Tag.Sentiment)}}
		for _, t := range tp.Tag.Topics {
			tags = append(tags, [2]string{"topic", t})
		}
		for _, s := range tp.Tag.Styles {
			tags = append(tags, [2]string{"style", s})
		}
		for _, t := range tags {
			if _, err := tagStmt.ExecContext(ctx, p.ID, t[0], t[1]); err != nil {
				return fmt.Errorf("insert tag for %s: %w", p.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
