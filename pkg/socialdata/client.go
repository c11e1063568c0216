package socialdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"postscope/pkg/config"
	errs "postscope/pkg/errors"
	"postscope/pkg/logger"
	"postscope/pkg/metrics"
	"postscope/pkg/models"
	"postscope/pkg/retry"
)

// Acquirer gates outbound requests. *ratelimit.SlidingWindow satisfies it.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// PageRequest selects one page of an account's posts
type PageRequest struct {
	Username string
	Cursor   string
	Type     models.PostType
	// Since and Until are pushed into the query as hints. Zero means unset.
	Since time.Time
	Until time.Time
}

// Page is one page of posts in upstream order. NextCursor is empty on the
// last page.
type Page struct {
	Posts      []models.Post
	NextCursor string
}

// Client talks to the SocialData API
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
	limiter    Acquirer
	retry      *retry.Config
	logger     logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL points the client at another API root
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithLimiter gates every request on a shared limiter
func WithLimiter(l Acquirer) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithRetry sets the retry policy for transient failures
func WithRetry(cfg *retry.Config) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithLogger sets the client logger
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a SocialData client. apiKey is used only for the
// Authorization header.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    BaseURL,
		apiKey:     apiKey,
		userAgent:  "postscope/1.0",
		logger:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry == nil {
		c.retry = retry.DefaultConfig()
		c.retry.Logger = c.logger
	}
	return c
}

// NewClientFromConfig builds a client from the app config. The limiter is
// passed in so that every job shares one.
func NewClientFromConfig(cfg *config.Config, limiter Acquirer, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	return NewClient(cfg.API.APIKey,
		WithHTTPClient(&http.Client{Timeout: cfg.API.RequestTimeout}),
		WithBaseURL(cfg.API.BaseURL),
		WithUserAgent(cfg.API.UserAgent),
		WithLimiter(limiter),
		WithRetry(retry.FromConfig(cfg.Retry, log)),
		WithLogger(log),
	)
}

// FetchAccount looks up an account by handle. A protected account is
// reported as Forbidden.
func (c *Client) FetchAccount(ctx context.Context, username string) (models.AccountInfo, error) {
	var user apiUser
	if err := c.getJSON(ctx, "user", GetUserURL(c.baseURL, username), &user); err != nil {
		return models.AccountInfo{}, err
	}

	if user.IDStr == "" {
		return models.AccountInfo{}, errs.Newf(errs.ErrorTypeNotFound, "no account data for @%s", username)
	}
	if user.Protected {
		return models.AccountInfo{}, &errs.Error{
			Type:    errs.ErrorTypeForbidden,
			Message: fmt.Sprintf("@%s is a protected account", username),
			Code:    http.StatusForbidden,
		}
	}

	c.logger.DebugWithFields("account resolved", map[string]interface{}{
		"username":  user.ScreenName,
		"followers": user.FollowersCount,
		"posts":     user.StatusesCount,
	})

	return user.toAccount(), nil
}

// FetchPostsPage fetches one page of posts. For PostTypeBoth the posts and
// replies streams are merged newest first across pages, the higher id
// winning a timestamp tie.
func (c *Client) FetchPostsPage(ctx context.Context, req PageRequest) (Page, error) {
	switch req.Type {
	case models.PostTypePosts, models.PostTypeReplies:
		return c.fetchStream(ctx, req, req.Type, req.Cursor)
	case models.PostTypeBoth:
		return c.fetchMerged(ctx, req)
	default:
		return Page{}, errs.Newf(errs.ErrorTypeInvalidInput, "unknown post type %q", req.Type)
	}
}

func (c *Client) fetchStream(ctx context.Context, req PageRequest, stream models.PostType, cursor string) (Page, error) {
	query := BuildQuery(req.Username, stream, req.Since, req.Until)

	var resp searchResponse
	if err := c.getJSON(ctx, "search", GetSearchURL(c.baseURL, query, cursor), &resp); err != nil {
		return Page{}, err
	}

	page := Page{
		Posts:      make([]models.Post, 0, len(resp.Tweets)),
		NextCursor: resp.NextCursor,
	}
	for _, t := range resp.Tweets {
		post, ok := t.toPost()
		if !ok {
			c.logger.WarnWithFields("skipping malformed post", map[string]interface{}{
				"id":         t.IDStr,
				"created_at": t.TweetCreatedAt,
			})
			continue
		}
		page.Posts = append(page.Posts, post)
	}

	return page, nil
}

// maxMergeFetches bounds the upstream pages one merged page may consume
const maxMergeFetches = 8

// mergeStream is one side of a "both" merge
type mergeStream struct {
	kind    models.PostType
	cursor  *string
	done    *bool
	pending *[]models.Post
}

func (s mergeStream) open() bool { return !*s.done }

// frontier is the oldest buffered timestamp. Every post the stream has not
// yet returned is at or before it.
func (s mergeStream) frontier() time.Time {
	p := *s.pending
	return p[len(p)-1].CreatedAt
}

// fetchMerged performs a k-way merge of the posts and replies streams. A
// buffered post is released only once it is strictly newer than the
// frontier of every stream that may still produce posts; the rest stays in
// the cursor for the next page.
func (c *Client) fetchMerged(ctx context.Context, req PageRequest) (Page, error) {
	cur, err := decodeMergedCursor(req.Cursor)
	if err != nil {
		return Page{}, err
	}

	streams := []mergeStream{
		{models.PostTypePosts, &cur.Posts, &cur.PostsDone, &cur.PendingPost},
		{models.PostTypeReplies, &cur.Replies, &cur.RepliesDone, &cur.PendingRepl},
	}

	fetches := 0
	pull := func(s mergeStream) error {
		page, err := c.fetchStream(ctx, req, s.kind, *s.cursor)
		if err != nil {
			return err
		}
		fetches++
		*s.pending = append(*s.pending, page.Posts...)
		sortNewestFirst(*s.pending)
		*s.cursor = page.NextCursor
		*s.done = page.NextCursor == "" || len(page.Posts) == 0
		return nil
	}

	var released []models.Post
	for {
		// a stream with nothing buffered gives no bound yet
		for _, s := range streams {
			for s.open() && len(*s.pending) == 0 {
				if err := pull(s); err != nil {
					return Page{}, err
				}
			}
		}

		var bound *mergeStream
		for i := range streams {
			s := streams[i]
			if s.open() && (bound == nil || s.frontier().After(bound.frontier())) {
				bound = &streams[i]
			}
		}

		if bound == nil {
			for _, s := range streams {
				released = append(released, *s.pending...)
				*s.pending = nil
			}
			break
		}

		limit := bound.frontier()
		relaxed := fetches >= maxMergeFetches
		for _, s := range streams {
			keep := (*s.pending)[:0]
			for _, p := range *s.pending {
				if p.CreatedAt.After(limit) || (relaxed && p.CreatedAt.Equal(limit)) {
					released = append(released, p)
				} else {
					keep = append(keep, p)
				}
			}
			*s.pending = keep
		}
		if len(released) > 0 || relaxed {
			break
		}

		// the stream holding the newest frontier must move past it
		if err := pull(*bound); err != nil {
			return Page{}, err
		}
	}

	sortNewestFirst(released)
	next, err := cur.encode()
	if err != nil {
		return Page{}, err
	}
	if released == nil {
		released = []models.Post{}
	}
	return Page{Posts: released, NextCursor: next}, nil
}

// sortNewestFirst orders posts by CreatedAt descending, the higher id first
// on equal timestamps
func sortNewestFirst(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return models.CompareIDs(a.ID, b.ID) > 0
	})
}

// getJSON performs a rate-limited GET with retries and decodes the body.
// Once a request is on the wire it runs to completion, bounded by the HTTP
// client timeout; ctx is observed while waiting for the limiter and between
// retries.
func (c *Client) getJSON(ctx context.Context, endpoint, url string, target interface{}) error {
	if c.apiKey == "" {
		return errs.New(errs.ErrorTypeAuth, "no API key configured")
	}

	cfg := *c.retry
	onRetry := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		metrics.IncAPIRetry(endpoint)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
	}

	err := retry.Do(ctx, func() error {
		if c.limiter != nil {
			if err := c.limiter.Acquire(ctx); err != nil {
				return err
			}
		}
		return c.getJSONOnce(context.WithoutCancel(ctx), endpoint, url, target)
	}, &cfg)

	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		return errs.Wrap(errs.ErrorTypeCancelled, err, "request cancelled")
	}
	return err
}

func (c *Client) getJSONOnce(ctx context.Context, endpoint, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Wrap(errs.ErrorTypeInvalidInput, err, "failed to create request")
	}

	resp, err := c.doRequest(endpoint, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	if err := c.checkResponseStatus(resp, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
			Err:     err,
		}
	}

	return nil
}

// doRequest sends req with the auth and client headers set
func (c *Client) doRequest(endpoint string, req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.ObserveAPIRequest(endpoint, 0, duration)
		c.logger.WithError(err).ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: fmt.Sprintf("request failed: %v", err),
			Err:     err,
		}
	}

	metrics.ObserveAPIRequest(endpoint, resp.StatusCode, duration)
	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, duration)

	return resp, nil
}

// checkResponseStatus maps an HTTP status to a typed error
func (c *Client) checkResponseStatus(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail := upstreamMessage(body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: withDetail("API key rejected", detail),
			Code:    resp.StatusCode,
		}
	case http.StatusPaymentRequired:
		return &errs.Error{
			Type:    errs.ErrorTypeAuth,
			Message: withDetail("not enough API credits to perform this request", detail),
			Code:    resp.StatusCode,
		}
	case http.StatusForbidden:
		return &errs.Error{
			Type:    errs.ErrorTypeForbidden,
			Message: withDetail("access denied", detail),
			Code:    resp.StatusCode,
		}
	case http.StatusNotFound:
		return &errs.Error{
			Type:    errs.ErrorTypeNotFound,
			Message: withDetail("account not found or suspended", detail),
			Code:    resp.StatusCode,
		}
	case http.StatusTooManyRequests:
		wait := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		logger.LogRateLimit(c.logger, "upstream", wait)
		return &errs.Error{
			Type:       errs.ErrorTypeRateLimit,
			Message:    withDetail("rate limit exceeded", detail),
			Code:       resp.StatusCode,
			RetryAfter: wait,
		}
	}

	if resp.StatusCode >= 500 {
		return &errs.Error{
			Type:    errs.ErrorTypeNetwork,
			Message: withDetail(fmt.Sprintf("server error (status %d)", resp.StatusCode), detail),
			Code:    resp.StatusCode,
		}
	}

	return &errs.Error{
		Type:    errs.ErrorTypeUnknown,
		Message: withDetail(fmt.Sprintf("unexpected status code: %d", resp.StatusCode), detail),
		Code:    resp.StatusCode,
	}
}

func upstreamMessage(body []byte) string {
	var e apiErrorBody
	if len(body) == 0 || json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Message
}

func withDetail(msg, detail string) string {
	if detail == "" {
		return msg
	}
	return msg + ": " + detail
}

// parseRetryAfter understands both delta-seconds and HTTP-date forms
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
