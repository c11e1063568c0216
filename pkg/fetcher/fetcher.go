package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	errs "postscope/pkg/errors"
	"postscope/pkg/logger"
	"postscope/pkg/models"
	"postscope/pkg/socialdata"
)

// State is the position of a Fetcher in its lifecycle
type State string

const (
	StateIdle            State = "idle"
	StateFetchingAccount State = "fetching_account"
	StateFetchingPosts   State = "fetching_posts"
	StateDone            State = "done"
	StateError           State = "error"
)

// API is the part of the data client the Fetcher drives
type API interface {
	FetchAccount(ctx context.Context, username string) (models.AccountInfo, error)
	FetchPostsPage(ctx context.Context, req socialdata.PageRequest) (socialdata.Page, error)
}

// Params selects what to collect. Start and End are inclusive; a zero value
// leaves that side open.
type Params struct {
	Username string
	Type     models.PostType
	MaxCount int
	Start    time.Time
	End      time.Time
}

// InRange reports whether t falls inside the date filter
func (p Params) InRange(t time.Time) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && t.After(p.End) {
		return false
	}
	return true
}

// Reporter receives human-readable progress lines
type Reporter func(line string)

// Outcome is a successful collection. Posts keep upstream order.
type Outcome struct {
	Account      models.AccountInfo
	Posts        []models.Post
	Pages        int
	Duplicates   int
	Filtered     int
	StoppedEarly bool
}

// Fetcher runs one collection. It is single use.
type Fetcher struct {
	api    API
	log    logger.Logger
	report Reporter
	print  *message.Printer

	mu    sync.RWMutex
	state State
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithReporter receives progress lines
func WithReporter(r Reporter) Option {
	return func(f *Fetcher) {
		f.report = r
	}
}

// WithLogger sets the fetcher logger
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		f.log = l
	}
}

// New creates an idle Fetcher
func New(api API, opts ...Option) *Fetcher {
	f := &Fetcher{
		api:    api,
		log:    logger.GetLogger(),
		report: func(string) {},
		print:  message.NewPrinter(language.English),
		state:  StateIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// State returns the current state
func (f *Fetcher) State() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *Fetcher) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Fetcher) progress(format string, args ...interface{}) {
	f.report(f.print.Sprintf(format, args...))
}

// checkpoint returns a Cancelled error once ctx is done
func checkpoint(ctx context.Context, where string) error {
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrorTypeCancelled, err, "stopped "+where)
	}
	return nil
}

// Run resolves the account and pages through its posts. Cancellation is
// observed before the account lookup and before each page. On any error the
// partial accumulation is dropped and only the error is returned.
func (f *Fetcher) Run(ctx context.Context, p Params) (*Outcome, error) {
	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return nil, errs.Newf(errs.ErrorTypeInvalidInput, "fetcher already used (state %s)", f.state)
	}
	f.state = StateFetchingAccount
	f.mu.Unlock()

	out, err := f.run(ctx, p)
	if err != nil {
		f.setState(StateError)
		f.log.WithError(err).WarnWithFields("collection failed", map[string]interface{}{
			"username": p.Username,
		})
		return nil, err
	}

	f.setState(StateDone)
	return out, nil
}

func (f *Fetcher) run(ctx context.Context, p Params) (*Outcome, error) {
	if p.MaxCount < 1 {
		return nil, errs.Newf(errs.ErrorTypeInvalidInput, "max count must be positive, got %d", p.MaxCount)
	}

	if err := checkpoint(ctx, "before account lookup"); err != nil {
		return nil, err
	}

	f.progress("Fetching account info for @%s", p.Username)
	account, err := f.api.FetchAccount(ctx, p.Username)
	if err != nil {
		return nil, fmt.Errorf("fetching account @%s: %w", p.Username, err)
	}
	f.progress("Account: %s (@%s)", account.Name, account.ScreenName)
	f.progress("Followers: %d, Following: %d", account.FollowersCount, account.FollowingCount)
	f.progress("Posts: %d", account.PostsCount)

	f.setState(StateFetchingPosts)
	f.progress("Fetching %s for @%s (max %d)", p.Type, p.Username, p.MaxCount)

	out := &Outcome{Account: account}
	seen := make(map[string]struct{})
	cursor := ""

	for len(out.Posts) < p.MaxCount {
		if err := checkpoint(ctx, fmt.Sprintf("before page %d", out.Pages+1)); err != nil {
			return nil, err
		}

		page, err := f.api.FetchPostsPage(ctx, socialdata.PageRequest{
			Username: p.Username,
			Cursor:   cursor,
			Type:     p.Type,
			Since:    p.Start,
			Until:    p.End,
		})
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", out.Pages+1, err)
		}
		out.Pages++

		if len(page.Posts) == 0 {
			f.progress("Page %d: no more posts available", out.Pages)
			break
		}

		added := 0
		allBeforeStart := !p.Start.IsZero()
		for _, post := range page.Posts {
			if allBeforeStart && !post.CreatedAt.Before(p.Start) {
				allBeforeStart = false
			}
			if _, dup := seen[post.ID]; dup {
				out.Duplicates++
				continue
			}
			seen[post.ID] = struct{}{}

			if !p.InRange(post.CreatedAt) {
				out.Filtered++
				continue
			}
			if len(out.Posts) < p.MaxCount {
				out.Posts = append(out.Posts, post)
				added++
			}
		}

		f.progress("Page %d: %d new posts (total %d)", out.Pages, added, len(out.Posts))
		f.log.DebugWithFields("page fetched", map[string]interface{}{
			"username":   p.Username,
			"page":       out.Pages,
			"added":      added,
			"total":      len(out.Posts),
			"duplicates": out.Duplicates,
		})

		if allBeforeStart {
			// upstream order is newest first, so later pages are older still
			out.StoppedEarly = true
			f.progress("Reached posts older than %s, stopping", p.Start.Format("2006-01-02"))
			break
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if len(out.Posts) >= p.MaxCount {
		f.progress("Reached target of %d posts", p.MaxCount)
	}
	if out.Filtered > 0 {
		f.progress("Filtering complete: %d posts kept, %d outside the date range", len(out.Posts), out.Filtered)
	} else {
		f.progress("Filtering complete: %d posts kept", len(out.Posts))
	}

	return out, nil
}
