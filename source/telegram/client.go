// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/driftnet/fetch"
)

const (
	// DefaultBaseURL is the channel preview endpoint.
	DefaultBaseURL = "https://t.me/s/"

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxBodyBytes     = 8 << 20
)

// ErrEmptyChannel is returned when FetchPage is called without a channel.
var ErrEmptyChannel = errors.New("channel name required")

// Client reads channel previews over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

var _ fetch.SourceClient = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL overrides the preview endpoint. Used by tests.
func WithBaseURL(base string) Option {
	return func(c *Client) error {
		if _, err := url.Parse(base); err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		c.baseURL = base
		return nil
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc != nil {
			c.httpClient = hc
		}
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		if ua != "" {
			c.userAgent = ua
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewClient creates a channel preview client.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	c.logger = c.logger.With("component", "telegram")
	return c, nil
}

// FetchPage returns up to limit messages older than cursor, newest first.
func (c *Client) FetchPage(ctx context.Context, channel, cursor string, limit int) (*fetch.Page, error) {
	if channel == "" {
		return nil, &fetch.FatalError{Err: ErrEmptyChannel}
	}

	endpoint := c.baseURL + url.PathEscape(channel)
	if cursor != "" {
		endpoint += "?before=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &fetch.FatalError{Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &fetch.TransientError{Err: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &fetch.TransientError{Err: fmt.Errorf("read body: %w", err)}
	}

	messages, isChannel, err := parsePreview(body)
	if err != nil {
		return nil, &fetch.TransientError{Err: err}
	}
	if !isChannel {
		// The preview redirects unknown or private channels to a landing page.
		return nil, &fetch.FatalError{Err: fmt.Errorf("channel %q has no public preview", channel)}
	}

	page := buildPage(messages, limit)
	c.logger.Debug("page fetched", "channel", channel, "cursor", cursor, "items", len(page.Items), "next", page.Next)
	return page, nil
}

// buildPage orders messages newest first, truncates to limit and derives the next cursor.
func buildPage(messages []message, limit int) *fetch.Page {
	page := &fetch.Page{}
	if len(messages) == 0 {
		page.Done = true
		return page
	}

	// The preview lists oldest first.
	for i := len(messages) - 1; i >= 0; i-- {
		if limit > 0 && len(page.Items) >= limit {
			break
		}
		m := messages[i]
		page.Items = append(page.Items, fetch.RawItem{ID: strconv.FormatInt(m.id, 10), Text: m.text, Timestamp: m.timestamp})
	}

	lowest := page.Items[len(page.Items)-1].ID
	if lowest == "1" {
		page.Done = true
	} else {
		page.Next = lowest
	}
	return page
}

func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &fetch.ThrottledError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("status %d", resp.StatusCode),
		}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusForbidden:
		return &fetch.FatalError{Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 500:
		return &fetch.TransientError{Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode >= 400:
		return &fetch.FatalError{Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Returns 0 when absent or invalid.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
