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



package page

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/driftnet/expand"
)

const (
	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	maxPageBytes     = 8 << 20
)

// HTTPFetcher fetches post pages with a plain GET. It works for pages that
// serve their metadata without client-side rendering.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger
}

var _ expand.SecondaryFetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher creates an HTTPFetcher. A nil client gets a default with a 20s timeout.
func NewHTTPFetcher(client *http.Client, logger *slog.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPFetcher{
		client:    client,
		userAgent: defaultUserAgent,
		logger:    logger.With("component", "page-http"),
	}
}

// FetchPost downloads url and parses its post metadata.
func (f *HTTPFetcher) FetchPost(ctx context.Context, url string) (*expand.Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if isLoginURL(resp.Request.URL.String()) {
		return nil, ErrLoginRequired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	f.logger.Debug("page fetched", "url", url, "bytes", len(body))
	return ParsePost(body, url)
}

func isLoginURL(u string) bool {
	return strings.Contains(u, "accounts/login")
}
