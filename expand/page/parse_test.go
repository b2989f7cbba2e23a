package page

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/poiesic/driftnet/core"
	"github.com/poiesic/driftnet/expand"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const instagramPage = `<html><head>
<meta property="og:title" content="chef_anna on Instagram: &quot;Market day&quot;">
<meta property="og:description" content="120 likes, 4 comments - chef_anna on April 2, 2024">
<script type="application/ld+json">[
  {"@type": "BreadcrumbList"},
  {"@type": "SocialMediaPosting", "caption": "Market day in the old town",
   "uploadDate": "2024-04-02T09:30:00+02:00",
   "author": {"@type": "Person", "alternateName": "@chef_anna", "name": "Anna"}}
]</script>
</head><body></body></html>`

func TestParsePost_JSONLDAndOpenGraph(t *testing.T) {
	post, err := ParsePost([]byte(instagramPage), "https://www.instagram.com/p/X/")
	require.NoError(t, err)

	assert.Equal(t, "https://www.instagram.com/p/X/", post.URL)
	assert.Equal(t, "Market day in the old town", post.PrimaryText)
	assert.Equal(t, "120 likes, 4 comments - chef_anna on April 2, 2024", post.RichDescription)
	assert.Equal(t, "chef_anna", post.AuthorHandle)
	assert.Equal(t, time.Date(2024, 4, 2, 7, 30, 0, 0, time.UTC), post.Published)
}

func TestParsePost_OpenGraphOnly(t *testing.T) {
	body := `<html><head>
<meta property="og:title" content="bob on Instagram: &quot;Sunset over the bay&quot;">
<meta property="og:description" content="Sunset over the bay">
</head></html>`
	post, err := ParsePost([]byte(body), "u")
	require.NoError(t, err)
	assert.Equal(t, "Sunset over the bay", post.PrimaryText)
	assert.Equal(t, "bob", post.AuthorHandle)
	assert.True(t, post.Published.IsZero())
}

func TestParsePost_NoMetadata(t *testing.T) {
	post, err := ParsePost([]byte(`<html><body>nothing</body></html>`), "u")
	require.NoError(t, err)
	assert.Empty(t, post.PrimaryText)
	assert.Empty(t, post.RichDescription)
}

func TestParsePost_BadJSONLDIgnored(t *testing.T) {
	body := `<html><head>
<script type="application/ld+json">{not json</script>
<script type="application/ld+json">{"@type":"VideoObject","description":"clip","author":"carol"}</script>
</head></html>`
	post, err := ParsePost([]byte(body), "u")
	require.NoError(t, err)
	assert.Equal(t, "clip", post.PrimaryText)
	assert.Equal(t, "carol", post.AuthorHandle)
}

func TestHTTPFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/p/X/", func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.UserAgent(), "Mozilla")
		w.Write([]byte(instagramPage))
	})
	mux.HandleFunc("/p/private/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/accounts/login/?next=/p/private/", http.StatusFound)
	})
	mux.HandleFunc("/accounts/login/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher(nil, nil)

	post, err := f.FetchPost(context.Background(), srv.URL+"/p/X/")
	require.NoError(t, err)
	assert.Equal(t, "Market day in the old town", post.PrimaryText)

	_, err = f.FetchPost(context.Background(), srv.URL+"/p/private/")
	assert.ErrorIs(t, err, ErrLoginRequired)

	_, err = f.FetchPost(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestHTTPFetcher_WithExpander(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(instagramPage))
	}))
	defer srv.Close()

	// Route instagram URLs to the test server.
	client := &http.Client{Transport: rewriteTransport{target: srv.URL}}
	e, err := expand.New(NewHTTPFetcher(client, nil), expand.WithDelay(0))
	require.NoError(t, err)

	parent := &core.Item{SourceID: "acme", ItemID: "1", Kind: core.SourceKindPrimary}
	item, err := e.Expand(context.Background(), "https://www.instagram.com/p/X/", parent)
	require.NoError(t, err)
	assert.Equal(t, "instagram_X", item.ItemID)
	assert.Equal(t, "Market day in the old town\n\n120 likes, 4 comments - chef_anna on April 2, 2024", item.Text)

	failing := &http.Client{Transport: rewriteTransport{target: "http://127.0.0.1:1"}}
	e, err = expand.New(NewHTTPFetcher(failing, nil), expand.WithDelay(0))
	require.NoError(t, err)
	_, err = e.Expand(context.Background(), "https://www.instagram.com/p/X/", parent)
	var fetchErr *expand.SecondaryFetchError
	assert.True(t, errors.As(err, &fetchErr))
}

type rewriteTransport struct {
	target string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u := *req.URL
	target, err := http.NewRequest(req.Method, rt.target+u.Path, nil)
	if err != nil {
		return nil, err
	}
	target = target.WithContext(req.Context())
	target.Header = req.Header
	return http.DefaultTransport.RoundTrip(target)
}
