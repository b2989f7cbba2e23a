package expand

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/driftnet/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	mu    sync.Mutex
	posts map[string]*Post
	err   error
	calls []time.Time
}

func (f *stubFetcher) FetchPost(ctx context.Context, url string) (*Post, error) {
	f.mu.Lock()
	f.calls = append(f.calls, time.Now())
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if post, ok := f.posts[url]; ok {
		return post, nil
	}
	return &Post{URL: url}, nil
}

func parentItem() *core.Item {
	item := &core.Item{
		SourceID:  "acme",
		ItemID:    "42",
		Text:      "look https://www.instagram.com/p/ABC_1-x/",
		Kind:      core.SourceKindPrimary,
		Timestamp: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	item.SetLinks([]string{"https://www.instagram.com/p/ABC_1-x/"})
	return item
}

func TestPatternItemID(t *testing.T) {
	tests := []struct {
		url    string
		want   string
		wantOK bool
	}{
		{"https://www.instagram.com/p/ABC_1-x/", "instagram_ABC_1-x", true},
		{"https://instagram.com/reel/Zz9/?utm=1", "instagram_Zz9", true},
		{"https://www.instagram.com/someuser/", "", false},
		{"https://example.com/p/ABC", "", false},
		{"https://m.instagram.com/p/Mob1/", "instagram_Mob1", true},
		{"instagram.com/p/Bare", "instagram_Bare", true},
		{"https://notinstagram.com/p/x", "", false},
		{"https://instagram.com.evil.example/p/x", "", false},
		{"https://evil.example/instagram.com/p/x", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := InstagramPattern.ItemID(tt.url)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPartition(t *testing.T) {
	e, err := New(&stubFetcher{}, WithDelay(0))
	require.NoError(t, err)

	matches := e.Partition([]string{
		"https://example.com/a",
		"https://www.instagram.com/p/ONE/",
		"https://instagram.com/reel/TWO",
	})
	require.Len(t, matches, 2)
	assert.Equal(t, "instagram_ONE", matches[0].ItemID)
	assert.Equal(t, "instagram", matches[1].Pattern)
}

func TestExpand_Success(t *testing.T) {
	url := "https://www.instagram.com/p/ABC_1-x/"
	published := time.Date(2024, 3, 30, 8, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{posts: map[string]*Post{
		url: {URL: url, PrimaryText: "A caption", RichDescription: "10 likes - user", AuthorHandle: "user", Published: published},
	}}
	e, err := New(fetcher, WithDelay(0))
	require.NoError(t, err)

	parent := parentItem()
	item, err := e.Expand(context.Background(), url, parent)
	require.NoError(t, err)

	assert.Equal(t, "acme", item.SourceID)
	assert.Equal(t, "instagram_ABC_1-x", item.ItemID)
	assert.Equal(t, core.SourceKindSecondary, item.Kind)
	assert.Equal(t, "A caption\n\n10 likes - user", item.Text)
	assert.Equal(t, []string{url}, item.Links)
	assert.True(t, item.HasLinks)
	assert.Equal(t, core.ItemIDFor("acme", "42"), item.ParentID)
	assert.Equal(t, "user", item.Author)
	assert.Equal(t, published, item.Timestamp)
	require.NoError(t, core.ValidateItem(item))
}

func TestExpand_FallsBackToParentTimestampAndSkipsRepeatedDescription(t *testing.T) {
	url := "https://www.instagram.com/p/ABC_1-x/"
	fetcher := &stubFetcher{posts: map[string]*Post{
		url: {PrimaryText: "same", RichDescription: "same"},
	}}
	e, err := New(fetcher, WithDelay(0))
	require.NoError(t, err)

	parent := parentItem()
	item, err := e.Expand(context.Background(), url, parent)
	require.NoError(t, err)
	assert.Equal(t, "same", item.Text)
	assert.Equal(t, parent.Timestamp, item.Timestamp)
}

func TestExpand_EmptyPrimaryTextFailsValidation(t *testing.T) {
	url := "https://www.instagram.com/p/EMPTY/"
	fetcher := &stubFetcher{posts: map[string]*Post{
		url: {PrimaryText: "  ", RichDescription: "only a description"},
	}}
	e, err := New(fetcher, WithDelay(0))
	require.NoError(t, err)

	_, err = e.Expand(context.Background(), url, parentItem())
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExpand_FetchFailure(t *testing.T) {
	e, err := New(&stubFetcher{err: errors.New("login wall")}, WithDelay(0))
	require.NoError(t, err)

	url := "https://www.instagram.com/p/X/"
	_, err = e.Expand(context.Background(), url, parentItem())
	var fetchErr *SecondaryFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, url, fetchErr.URL)
}

func TestExpand_NoPatternAndNoParent(t *testing.T) {
	e, err := New(&stubFetcher{}, WithDelay(0))
	require.NoError(t, err)

	_, err = e.Expand(context.Background(), "https://example.com/x", parentItem())
	assert.ErrorIs(t, err, ErrNoPattern)

	_, err = e.Expand(context.Background(), "https://www.instagram.com/p/X/", nil)
	assert.ErrorIs(t, err, ErrParentRequired)
}

func TestExpand_Pacing(t *testing.T) {
	fetcher := &stubFetcher{posts: map[string]*Post{}}
	e, err := New(fetcher, WithDelay(40*time.Millisecond))
	require.NoError(t, err)

	for _, code := range []string{"A", "B", "C"} {
		url := "https://www.instagram.com/p/" + code + "/"
		fetcher.posts[url] = &Post{PrimaryText: code}
		_, err := e.Expand(context.Background(), url, parentItem())
		require.NoError(t, err)
	}

	require.Len(t, fetcher.calls, 3)
	for i := 1; i < len(fetcher.calls); i++ {
		gap := fetcher.calls[i].Sub(fetcher.calls[i-1])
		assert.GreaterOrEqual(t, gap, 30*time.Millisecond)
	}
}

func TestExpand_PacingHonorsContext(t *testing.T) {
	e, err := New(&stubFetcher{}, WithDelay(time.Hour))
	require.NoError(t, err)

	url := "https://www.instagram.com/p/A/"
	// First call consumes the burst token.
	_, _ = e.Expand(context.Background(), url, parentItem())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.Expand(ctx, url, parentItem())
	assert.Error(t, err)
}

func TestWithPatterns(t *testing.T) {
	custom := Pattern{Name: "vid", Regexp: regexp.MustCompile(`video\.example/watch/(\w+)`)}
	e, err := New(&stubFetcher{}, WithPatterns(custom), WithDelay(0))
	require.NoError(t, err)

	m, ok := e.Match("https://video.example/watch/abc")
	require.True(t, ok)
	assert.Equal(t, "vid_abc", m.ItemID)

	_, ok = e.Match("https://www.instagram.com/p/X/")
	assert.False(t, ok)

	_, err = New(&stubFetcher{}, WithPatterns(Pattern{Name: "broken"}))
	assert.Error(t, err)
}
