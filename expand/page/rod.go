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
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
	"github.com/poiesic/driftnet/expand"
)

const defaultNavigateTimeout = 30 * time.Second

// RodFetcher renders post pages in headless Chrome with stealth patches
// applied. The browser is launched on first use and reused until Close.
type RodFetcher struct {
	remoteURL string
	timeout   time.Duration
	logger    *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

var _ expand.SecondaryFetcher = (*RodFetcher)(nil)

// NewRodFetcher creates a RodFetcher. An empty remoteURL launches a local Chrome.
func NewRodFetcher(remoteURL string, logger *slog.Logger) *RodFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RodFetcher{
		remoteURL: remoteURL,
		timeout:   defaultNavigateTimeout,
		logger:    logger.With("component", "page-rod"),
	}
}

// FetchPost renders url and parses its post metadata.
func (f *RodFetcher) FetchPost(ctx context.Context, url string) (*expand.Post, error) {
	b, err := f.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("create tab: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		f.logger.Warn("wait load timeout", "url", url, "err", err)
	}

	if info, err := page.Info(); err == nil && isLoginURL(info.URL) {
		return nil, ErrLoginRequired
	}

	html, err := page.Context(navCtx).HTML()
	if err != nil {
		return nil, fmt.Errorf("read DOM: %w", err)
	}

	return ParsePost([]byte(html), url)
}

func (f *RodFetcher) ensureBrowser() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}

	wsURL := f.remoteURL
	if wsURL == "" {
		l := launcher.New().Headless(true).Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		wsURL = u
		f.lnch = l
		f.logger.Info("launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if f.lnch != nil {
			f.lnch.Kill()
			f.lnch = nil
		}
		return nil, fmt.Errorf("connect chrome: %w", err)
	}
	f.browser = b
	return b, nil
}

// Close shuts down the browser if one was started.
func (f *RodFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var err error
	if f.browser != nil {
		err = f.browser.Close()
		f.browser = nil
	}
	if f.lnch != nil {
		f.lnch.Kill()
		f.lnch = nil
	}
	return err
}
