// Package anilist is a read-only client for the AniList GraphQL catalog.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Nokitomo/anime-mondo-italiano-sub000/cache"
	"github.com/Nokitomo/anime-mondo-italiano-sub000/types"
)

const DefaultEndpoint = "https://graphql.anilist.co"

// Error carries the messages of a GraphQL "errors" array.
type Error struct {
	Status   int
	Messages []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("anilist: status %d: %s", e.Status, strings.Join(e.Messages, "; "))
}

func (e *Error) Unwrap() error {
	if e.Status == http.StatusNotFound {
		return types.ErrNotFound
	}
	return nil
}

type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("anilist: rate limited, retry after %s", e.RetryAfter)
}

type Client struct {
	endpoint string
	http     *http.Client
	clock    clockwork.Clock
	logger   *zap.Logger
	cacheTTL time.Duration
	cache    *cache.Memory[[]byte]
	group    singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithClock(clock clockwork.Clock) Option { return func(c *Client) { c.clock = clock } }
func WithLogger(l *zap.Logger) Option        { return func(c *Client) { c.logger = l } }

// WithCacheTTL controls how long identical queries are served from memory.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cacheTTL = ttl }
}

func New(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 10 * time.Second},
		clock:    clockwork.NewRealClock(),
		logger:   zap.NewNop(),
		cacheTTL: 10 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = cache.New[[]byte](c.cacheTTL, c.clock)
	return c
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

type refreshKey struct{}

// WithRefresh marks ctx so queries skip cached responses and store fresh ones.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, refreshKey{}, true)
}

// Refreshing reports whether ctx was marked by WithRefresh.
func Refreshing(ctx context.Context) bool {
	v, _ := ctx.Value(refreshKey{}).(bool)
	return v
}

// PruneCache drops expired responses and reports how many went.
func (c *Client) PruneCache() int {
	return c.cache.Prune()
}

// query runs a GraphQL document and decodes its "data" object into out.
// name scopes the cache key; identical concurrent misses share one request.
func (c *Client) query(ctx context.Context, name, query string, vars map[string]any, out any) error {
	keyVars, err := json.Marshal(vars)
	if err != nil {
		return err
	}
	key := name + ":" + string(keyVars)

	if !Refreshing(ctx) {
		if data, ok := c.cache.Get(key); ok {
			return json.Unmarshal(data, out)
		}
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		data, err := c.post(ctx, query, vars)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, data)
		return data, nil
	})
	if err != nil {
		return err
	}
	if shared {
		c.logger.Debug("anilist request shared", zap.String("query", name))
	}
	return json.Unmarshal(v.([]byte), out)
}

func (c *Client) post(ctx context.Context, query string, vars map[string]any) ([]byte, error) {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := c.clock.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anilist: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("anilist request",
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", c.clock.Since(start)))

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("anilist: read body: %w", err)
	}

	var envelope gqlResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("anilist: status %d: decode response: %w", resp.StatusCode, err)
	}

	if len(envelope.Errors) > 0 {
		gerr := &Error{Status: resp.StatusCode}
		for _, e := range envelope.Errors {
			gerr.Messages = append(gerr.Messages, e.Message)
			if e.Status != 0 {
				gerr.Status = e.Status
			}
		}
		return nil, gerr
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Status: resp.StatusCode, Messages: []string{http.StatusText(resp.StatusCode)}}
	}
	return envelope.Data, nil
}

func retryAfter(h string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || secs < 0 {
		return time.Minute
	}
	return time.Duration(secs) * time.Second
}
