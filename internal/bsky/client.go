package bsky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"hypebot/internal/config"
	"hypebot/internal/logging"
	"hypebot/internal/metrics"
	"hypebot/internal/model"
)

const (
	feedPageSize      = 100
	notificationLimit = 50
	postCollection    = "app.bsky.feed.post"
)

// ErrNotAuthenticated is returned by calls that need a session before Login.
var ErrNotAuthenticated = errors.New("bsky: not authenticated")

// Client is an XRPC client for the handful of Bluesky endpoints the bot uses.
type Client struct {
	baseURL     string
	handle      string
	appPassword string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration

	accessJWT string
	did       string
}

func NewClient(acct config.AccountConfig, api config.APIConfig) *Client {
	timeout := api.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	attempts := api.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	host := strings.TrimRight(acct.PDSHost, "/")
	if host == "" {
		host = "https://bsky.social"
	}
	return &Client{
		baseURL:     host,
		handle:      acct.Handle,
		appPassword: acct.AppPassword,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     newLimiter(api.RPS, api.Burst),
		maxAttempts: attempts,
		baseBackoff: api.BaseBackoff,
	}
}

// DID returns the authenticated account's DID, "" before Login.
func (c *Client) DID() string { return c.did }

// Login creates a session with the app password.
func (c *Client) Login(ctx context.Context) error {
	in := map[string]string{"identifier": c.handle, "password": c.appPassword}
	var out struct {
		AccessJwt string `json:"accessJwt"`
		DID       string `json:"did"`
		Handle    string `json:"handle"`
	}
	if err := c.call(ctx, http.MethodPost, "com.atproto.server.createSession", nil, in, &out); err != nil {
		logging.Error("auth_failed", map[string]any{"handle": c.handle, "error": err})
		return fmt.Errorf("login as %s: %w", c.handle, err)
	}
	c.accessJWT, c.did = out.AccessJwt, out.DID
	logging.Info("auth_ok", map[string]any{"handle": out.Handle, "did": out.DID})
	return nil
}

// ListMentions returns notifications whose reason is "mention", newest first.
func (c *Client) ListMentions(ctx context.Context, seenAt string) ([]model.Mention, error) {
	q := url.Values{"limit": {strconv.Itoa(notificationLimit)}}
	if seenAt != "" {
		q.Set("seenAt", seenAt)
	}
	var out struct {
		Notifications []model.Mention `json:"notifications"`
	}
	if err := c.call(ctx, http.MethodGet, "app.bsky.notification.listNotifications", q, nil, &out); err != nil {
		return nil, err
	}
	mentions := make([]model.Mention, 0, len(out.Notifications))
	for _, n := range out.Notifications {
		if n.Reason == "mention" {
			mentions = append(mentions, n)
		}
	}
	logging.Info("mentions_fetched", map[string]any{"notifications": len(out.Notifications), "mentions": len(mentions)})
	return mentions, nil
}

// UpdateSeen marks notifications up to seenAt as read.
func (c *Client) UpdateSeen(ctx context.Context, seenAt string) error {
	return c.call(ctx, http.MethodPost, "app.bsky.notification.updateSeen", nil, map[string]string{"seenAt": seenAt}, nil)
}

type feedItem struct {
	Post   *model.PostView `json:"post"`
	Reason json.RawMessage `json:"reason,omitempty"`
}

// FetchAllPosts pages through actor's feed and returns up to limit original
// posts. Reposts are skipped.
func (c *Client) FetchAllPosts(ctx context.Context, actor string, limit int) ([]model.Post, error) {
	var posts []model.Post
	cursor := ""
	for page := 0; len(posts) < limit; page++ {
		q := url.Values{"actor": {actor}, "limit": {strconv.Itoa(feedPageSize)}}
		if cursor != "" {
			q.Set("cursor", cursor)
		}
		var out struct {
			Feed   []feedItem `json:"feed"`
			Cursor string     `json:"cursor"`
		}
		if err := c.call(ctx, http.MethodGet, "app.bsky.feed.getAuthorFeed", q, nil, &out); err != nil {
			if page == 0 {
				return nil, err
			}
			logging.Warn("feed_page_failed", map[string]any{"actor": actor, "page": page, "error": err})
			break
		}
		if len(out.Feed) == 0 {
			break
		}
		for _, item := range out.Feed {
			if item.Post == nil || item.Post.Record == nil || isRepost(item.Reason) {
				continue
			}
			posts = append(posts, item.Post)
			if len(posts) >= limit {
				break
			}
		}
		if out.Cursor == "" {
			break
		}
		cursor = out.Cursor
	}
	logging.Info("posts_fetched", map[string]any{"actor": actor, "count": len(posts), "limit": limit})
	return posts, nil
}

func isRepost(reason json.RawMessage) bool {
	return len(reason) > 0 && string(reason) != "null"
}

// IsFollowing reports whether actor follows the authenticated account.
func (c *Client) IsFollowing(ctx context.Context, actor string) (bool, error) {
	var out struct {
		Viewer *struct {
			FollowedBy string `json:"followedBy"`
		} `json:"viewer"`
	}
	if err := c.call(ctx, http.MethodGet, "app.bsky.actor.getProfile", url.Values{"actor": {actor}}, nil, &out); err != nil {
		return false, err
	}
	return out.Viewer != nil && out.Viewer.FollowedBy != "", nil
}

type replyRef struct {
	Root   model.StrongRef `json:"root"`
	Parent model.StrongRef `json:"parent"`
}

type postRecord struct {
	Type      string    `json:"$type"`
	Text      string    `json:"text"`
	CreatedAt string    `json:"createdAt"`
	Reply     *replyRef `json:"reply,omitempty"`
	Facets    []Facet   `json:"facets,omitempty"`
}

// SendReply posts text as a reply to parent within the thread rooted at root.
// A zero root means parent is the root.
func (c *Client) SendReply(ctx context.Context, text string, parent, root model.StrongRef) (model.StrongRef, error) {
	if c.did == "" {
		return model.StrongRef{}, ErrNotAuthenticated
	}
	if root.IsZero() {
		root = parent
	}
	in := map[string]any{
		"repo":       c.did,
		"collection": postCollection,
		"record": postRecord{
			Type:      postCollection,
			Text:      text,
			CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
			Reply:     &replyRef{Root: root, Parent: parent},
			Facets:    DetectLinkFacets(text),
		},
	}
	var out model.StrongRef
	if err := c.call(ctx, http.MethodPost, "com.atproto.repo.createRecord", nil, in, &out); err != nil {
		metrics.ReplyErrors.Inc()
		return model.StrongRef{}, err
	}
	metrics.RepliesSent.Inc()
	logging.Info("reply_sent", map[string]any{"uri": out.URI, "parent": parent.URI, "preview": preview(text)})
	return out, nil
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= 50 {
		return s
	}
	return string(r[:50]) + "..."
}

// xrpcError is the error body returned by XRPC endpoints.
type xrpcError struct {
	Status  int    `json:"-"`
	Name    string `json:"error"`
	Message string `json:"message"`
}

func (e *xrpcError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("xrpc status %d: %s: %s", e.Status, e.Name, e.Message)
	}
	return fmt.Sprintf("xrpc status %d", e.Status)
}

func (c *Client) call(ctx context.Context, method, nsid string, query url.Values, in, out any) error {
	u := c.baseURL + "/xrpc/" + nsid
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, u, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, u, nil)
	}
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.accessJWT != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessJWT)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, req, nsid)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		xe := &xrpcError{Status: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(xe)
		return xe
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", nsid, err)
	}
	return nil
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request, endpoint string) (*http.Response, error) {
	backoff := c.baseBackoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncAPIRetry(endpoint)
		}
		r := req.Clone(ctx)
		if req.GetBody != nil {
			b, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = b
		}
		resp, err := c.httpClient.Do(r)
		if err == nil {
			retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
			if !retryable || attempt == c.maxAttempts {
				return resp, nil
			}
			wait := retryAfter(resp.Header.Get("Retry-After"), backoff)
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			if err := sleep(ctx, jitter(wait)); err != nil {
				return nil, err
			}
			backoff *= 2
			continue
		}
		lastErr = err
		if attempt == c.maxAttempts {
			break
		}
		if err := sleep(ctx, backoff); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func retryAfter(header string, def time.Duration) time.Duration {
	if header == "" {
		return def
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return def
}

// jitter spreads wait by +/-20%.
func jitter(wait time.Duration) time.Duration {
	j := time.Duration(float64(wait) * 0.2)
	if j <= 0 {
		return wait
	}
	return wait - j + time.Duration(time.Now().UnixNano()%int64(2*j))
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
