package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/driftnet/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func previewHTML(channel string, ids ...int) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="tgme_channel_info">info</div><section>`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<div class="tgme_widget_message" data-post="%s/%d">
<div class="tgme_widget_message_text">post %d<br>see <a href="https://bit.ly/x%d">here</a></div>
<a class="tgme_widget_message_date"><time datetime="2024-01-0%dT10:00:00+00:00">10:00</time></a>
</div>`, channel, id, id, id, id%9+1)
	}
	b.WriteString(`</section></body></html>`)
	return b.String()
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(WithBaseURL(srv.URL + "/s"))
	require.NoError(t, err)
	return c
}

func TestFetchPage_ParsesNewestFirst(t *testing.T) {
	var gotPath, gotBefore string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBefore = r.URL.Query().Get("before")
		fmt.Fprint(w, previewHTML("acme", 3, 4, 5))
	})

	page, err := c.FetchPage(context.Background(), "acme", "", 10)
	require.NoError(t, err)
	assert.Equal(t, "/s/acme", gotPath)
	assert.Empty(t, gotBefore)

	require.Len(t, page.Items, 3)
	assert.Equal(t, "5", page.Items[0].ID)
	assert.Equal(t, "3", page.Items[2].ID)
	assert.Equal(t, "post 5\nsee here\nhttps://bit.ly/x5", page.Items[0].Text)
	assert.Equal(t, time.Date(2024, 1, 6, 10, 0, 0, 0, time.UTC), page.Items[0].Timestamp)
	assert.Equal(t, "3", page.Next)
	assert.False(t, page.Done)
}

func TestFetchPage_CursorAndLimit(t *testing.T) {
	var gotBefore string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBefore = r.URL.Query().Get("before")
		fmt.Fprint(w, previewHTML("acme", 1, 2, 3))
	})

	page, err := c.FetchPage(context.Background(), "acme", "4", 2)
	require.NoError(t, err)
	assert.Equal(t, "4", gotBefore)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "3", page.Items[0].ID)
	assert.Equal(t, "2", page.Next)
}

func TestFetchPage_EndOfChannel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("before") == "" {
			fmt.Fprint(w, previewHTML("acme", 1))
			return
		}
		fmt.Fprint(w, previewHTML("acme"))
	})

	page, err := c.FetchPage(context.Background(), "acme", "", 10)
	require.NoError(t, err)
	assert.True(t, page.Done)

	page, err = c.FetchPage(context.Background(), "acme", "1", 10)
	require.NoError(t, err)
	assert.True(t, page.Done)
	assert.Empty(t, page.Items)
}

func TestFetchPage_ErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "429 is throttled with retry-after",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "12")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			check: func(t *testing.T, err error) {
				var throttled *fetch.ThrottledError
				require.True(t, errors.As(err, &throttled))
				assert.Equal(t, 12*time.Second, throttled.RetryAfter)
			},
		},
		{
			name: "404 is fatal",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			check: func(t *testing.T, err error) {
				var fatal *fetch.FatalError
				assert.True(t, errors.As(err, &fatal))
			},
		},
		{
			name: "503 is transient",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			check: func(t *testing.T, err error) {
				var transient *fetch.TransientError
				assert.True(t, errors.As(err, &transient))
			},
		},
		{
			name: "landing page is fatal",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `<html><body><div class="tgme_page">Join</div></body></html>`)
			},
			check: func(t *testing.T, err error) {
				var fatal *fetch.FatalError
				assert.True(t, errors.As(err, &fatal))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.FetchPage(context.Background(), "acme", "", 10)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFetchPage_EmptyChannel(t *testing.T) {
	c, err := NewClient()
	require.NoError(t, err)
	_, err = c.FetchPage(context.Background(), "", "", 1)
	assert.ErrorIs(t, err, ErrEmptyChannel)
}

func TestFetchPage_WithFetcher(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		switch r.URL.Query().Get("before") {
		case "":
			fmt.Fprint(w, previewHTML("acme", 4, 5, 6))
		case "4":
			fmt.Fprint(w, previewHTML("acme", 1, 2, 3))
		}
	})

	f, err := fetch.NewFetcher(c, fetch.WithBaseDelay(time.Millisecond))
	require.NoError(t, err)

	items, err := f.Fetch(context.Background(), "acme", "", 5)
	require.NoError(t, err)
	require.Len(t, items, 5)
	assert.Equal(t, "6", items[0].ID)
	assert.Equal(t, "2", items[4].ID)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("soon"))
	assert.Equal(t, 3*time.Second, parseRetryAfter("3"))

	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	d := parseRetryAfter(future)
	assert.Greater(t, d, 30*time.Second)
}
