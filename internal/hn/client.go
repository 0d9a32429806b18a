// Package hn is the low-level client for the Hacker News Firebase API.
//
// It performs exactly one HTTP request per call and translates every failure
// into one of three categories: ErrInvalidRequest, ErrDecode or a
// *TransportError. It never retries and never caches; retry policy belongs
// to the caller.
package hn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/hnfeed/internal/story"
)

// DefaultBaseURL is the public Firebase endpoint.
const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

const (
	// DefaultItemTimeout bounds a single item request.
	DefaultItemTimeout = 10 * time.Second

	// DefaultListTimeout bounds an ID-list request (up to 500 ids).
	DefaultListTimeout = 30 * time.Second

	// DefaultMaxConnsPerHost caps sockets to the API host.
	DefaultMaxConnsPerHost = 6

	// maxListBody and maxItemBody cap how much of a response is read.
	maxListBody = 4 << 20
	maxItemBody = 1 << 20
)

var (
	// ErrInvalidRequest means the request could not be built (bad id, bad base URL).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrDecode means the response body did not have the expected shape.
	ErrDecode = errors.New("failed to decode response")

	// ErrTransport matches every *TransportError via errors.Is.
	ErrTransport = errors.New("network error")

	// ErrItemNotFound marks ids the API answers with null, or items flagged
	// deleted or dead. A null body is also an ErrDecode.
	ErrItemNotFound = errors.New("item not found")
)

// TransportError covers connection, DNS, TLS, timeout and non-2xx failures.
type TransportError struct {
	Op         string // "list top", "item 8863"
	StatusCode int    // 0 when no response was received
	Cause      error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s: HTTP %d", ErrTransport, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %v", ErrTransport, e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Is reports ErrTransport as a match so callers need not type-assert.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL           string
	UserAgent         string
	ItemTimeout       time.Duration
	ListTimeout       time.Duration
	MaxConnsPerHost   int
	RequestsPerSecond float64 // <= 0 disables pacing
}

// DefaultOptions returns the values the public API is comfortable with.
func DefaultOptions() Options {
	return Options{
		BaseURL:         DefaultBaseURL,
		UserAgent:       "hnfeed/1.0 (https://github.com/abelbrown/hnfeed)",
		ItemTimeout:     DefaultItemTimeout,
		ListTimeout:     DefaultListTimeout,
		MaxConnsPerHost: DefaultMaxConnsPerHost,
	}
}

// Client talks to the API. Its configuration is read-only after NewClient,
// so a single Client is safe for concurrent use.
type Client struct {
	baseURL     string
	userAgent   string
	itemTimeout time.Duration
	listTimeout time.Duration
	http        *http.Client
	limiter     *rate.Limiter
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	def := DefaultOptions()
	if opts.BaseURL == "" {
		opts.BaseURL = def.BaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = def.UserAgent
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = def.ItemTimeout
	}
	if opts.ListTimeout <= 0 {
		opts.ListTimeout = def.ListTimeout
	}
	if opts.MaxConnsPerHost <= 0 {
		opts.MaxConnsPerHost = def.MaxConnsPerHost
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = opts.MaxConnsPerHost
	transport.MaxIdleConnsPerHost = opts.MaxConnsPerHost

	return &Client{
		baseURL:     opts.BaseURL,
		userAgent:   opts.UserAgent,
		itemTimeout: opts.ItemTimeout,
		listTimeout: opts.ListTimeout,
		http:        &http.Client{Transport: transport},
		limiter:     rate.NewLimiter(limit, opts.MaxConnsPerHost),
	}
}

// listPath maps a feed type to its endpoint file.
func listPath(feed story.FeedType) (string, error) {
	switch feed {
	case story.Top:
		return "topstories.json", nil
	case story.New:
		return "newstories.json", nil
	default:
		return "", fmt.Errorf("%w: unknown feed type %v", ErrInvalidRequest, feed)
	}
}

// ListIDs returns the ranked id list for feed, in server order.
func (c *Client) ListIDs(ctx context.Context, feed story.FeedType) ([]int, error) {
	file, err := listPath(feed)
	if err != nil {
		return nil, err
	}
	endpoint, err := c.endpoint(file)
	if err != nil {
		return nil, err
	}

	op := "list " + feed.String()
	body, err := c.get(ctx, op, endpoint, c.listTimeout, maxListBody)
	if err != nil {
		return nil, err
	}

	var ids []int
	if err := json.Unmarshal(body, &ids); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, op, err)
	}
	if ids == nil {
		// null is not an empty feed; an empty one arrives as [].
		return nil, fmt.Errorf("%w: %s: null id list", ErrDecode, op)
	}
	return ids, nil
}

// GetItem fetches a single item by id. id must be positive.
func (c *Client) GetItem(ctx context.Context, id int) (story.Item, error) {
	if id <= 0 {
		return story.Item{}, fmt.Errorf("%w: item id %d must be positive", ErrInvalidRequest, id)
	}
	endpoint, err := c.endpoint("item", strconv.Itoa(id)+".json")
	if err != nil {
		return story.Item{}, err
	}

	op := "item " + strconv.Itoa(id)
	body, err := c.get(ctx, op, endpoint, c.itemTimeout, maxItemBody)
	if err != nil {
		return story.Item{}, err
	}

	var item *story.Item
	if err := json.Unmarshal(body, &item); err != nil {
		return story.Item{}, fmt.Errorf("%w: %s: %v", ErrDecode, op, err)
	}
	if item == nil {
		return story.Item{}, fmt.Errorf("%w: %s: %w", ErrDecode, op, ErrItemNotFound)
	}
	if item.Deleted || item.Dead {
		return story.Item{}, fmt.Errorf("%s: %w", op, ErrItemNotFound)
	}
	return *item, nil
}

func (c *Client) endpoint(elem ...string) (string, error) {
	u, err := url.JoinPath(c.baseURL, elem...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return u, nil
}

// get performs one bounded GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, op, endpoint string, timeout time.Duration, limit int64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{Op: op, Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRequest, op, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return nil, &TransportError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, &TransportError{Op: op, Cause: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
