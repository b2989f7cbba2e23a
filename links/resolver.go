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



package links

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single resolution including all redirects.
	DefaultTimeout = 10 * time.Second
	// DefaultMaxRedirects is the redirect hop limit.
	DefaultMaxRedirects = 10

	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// DefaultIndirectDomains lists the URL shortener domains resolved by default.
var DefaultIndirectDomains = []string{
	"bit.ly", "t.co", "tinyurl.com", "short.link", "is.gd", "v.gd", "ow.ly",
	"buff.ly", "rebrand.ly", "shorturl.at", "cutt.ly", "tiny.cc", "short.to",
	"shrtco.de", "rb.gy",
}

var errTooManyRedirects = errors.New("too many redirects")

// Resolver classifies and resolves indirection links.
type Resolver interface {
	// IsIndirect reports whether the URL points at an indirection service.
	IsIndirect(rawURL string) bool
	// Resolve returns the final destination of rawURL, or rawURL itself on any failure.
	Resolve(ctx context.Context, rawURL string) string
}

// HTTPResolver resolves links by following HTTP redirects from a HEAD request.
type HTTPResolver struct {
	client       *http.Client
	domains      map[string]struct{}
	maxRedirects int
	userAgent    string
	logger       *slog.Logger
}

var _ Resolver = (*HTTPResolver)(nil)

// ResolverOption configures an HTTPResolver.
type ResolverOption func(*HTTPResolver) error

// WithIndirectDomains replaces the set of indirection domains.
func WithIndirectDomains(domains ...string) ResolverOption {
	return func(r *HTTPResolver) error {
		r.domains = make(map[string]struct{}, len(domains))
		for _, d := range domains {
			d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
			if d != "" {
				r.domains[d] = struct{}{}
			}
		}
		return nil
	}
}

// WithTimeout sets the per-resolution timeout.
// Default is 10s.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *HTTPResolver) error {
		if d <= 0 {
			return fmt.Errorf("invalid resolver timeout %s", d)
		}
		r.client.Timeout = d
		return nil
	}
}

// WithMaxRedirects sets the redirect hop limit.
// Default is 10.
func WithMaxRedirects(n int) ResolverOption {
	return func(r *HTTPResolver) error {
		if n < 0 {
			return fmt.Errorf("invalid redirect limit %d", n)
		}
		r.maxRedirects = n
		return nil
	}
}

// WithTransport sets the HTTP transport. Used by tests.
func WithTransport(rt http.RoundTripper) ResolverOption {
	return func(r *HTTPResolver) error {
		r.client.Transport = rt
		return nil
	}
}

// WithResolverLogger sets a custom logger.
// Default is slog.Default().
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *HTTPResolver) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewHTTPResolver creates a resolver using DefaultIndirectDomains.
func NewHTTPResolver(opts ...ResolverOption) (*HTTPResolver, error) {
	r := &HTTPResolver{
		client:       &http.Client{Timeout: DefaultTimeout},
		maxRedirects: DefaultMaxRedirects,
		userAgent:    browserUserAgent,
		logger:       slog.Default(),
	}
	if err := WithIndirectDomains(DefaultIndirectDomains...)(r); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= r.maxRedirects {
			return errTooManyRedirects
		}
		return nil
	}
	r.logger = r.logger.With("component", "link-resolver")
	return r, nil
}

// IsIndirect reports whether rawURL's host is an indirection domain or a subdomain of one.
func (r *HTTPResolver) IsIndirect(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for {
		if _, ok := r.domains[host]; ok {
			return true
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			return false
		}
		host = host[dot+1:]
	}
}

// Resolve follows redirects from a HEAD request and returns the final URL.
// Returns rawURL unchanged on any failure.
func (r *HTTPResolver) Resolve(ctx context.Context, rawURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		r.logger.Debug("link not resolvable", "url", rawURL, "err", err)
		return rawURL
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Debug("link resolution failed", "url", rawURL, "err", err)
		return rawURL
	}
	resp.Body.Close()

	final := resp.Request.URL.String()
	if final != rawURL {
		r.logger.Debug("link resolved", "url", rawURL, "final", final)
	}
	return final
}

// hostOf returns the lowercased host of rawURL without port or leading "www.".
func hostOf(rawURL string) string {
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := u.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	return strings.TrimPrefix(host, "www.")
}
