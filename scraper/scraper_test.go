package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/driftnet/core"
	"github.com/poiesic/driftnet/fetch"
	"github.com/poiesic/driftnet/links"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	items []fetch.RawItem
	err   error
}

func (f *stubFetcher) Fetch(ctx context.Context, source, cursor string, maxItems int) ([]fetch.RawItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[:min(maxItems, len(f.items))], nil
}

type tableResolver map[string]string

func (r tableResolver) IsIndirect(u string) bool { return strings.Contains(u, "bit.ly") }

func (r tableResolver) Resolve(ctx context.Context, u string) string {
	if final, ok := r[u]; ok {
		return final
	}
	return u
}

func newAcmeScraper(t *testing.T) *Scraper {
	t.Helper()
	ts := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{items: []fetch.RawItem{
		{ID: "1", Text: "see bit.ly/X", Timestamp: ts},
		{ID: "2", Text: "hello", Timestamp: ts},
	}}
	batch, err := links.NewBatchResolver(tableResolver{"https://bit.ly/X": "https://example.com/a"})
	require.NoError(t, err)
	s, err := New(fetcher, batch)
	require.NoError(t, err)
	return s
}

func TestScrapeOne_Acme(t *testing.T) {
	s := newAcmeScraper(t)

	items, err := s.ScrapeOne(context.Background(), "acme", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "acme", items[0].SourceID)
	assert.Equal(t, "1", items[0].ItemID)
	assert.Equal(t, core.SourceKindPrimary, items[0].Kind)
	assert.Equal(t, []string{"https://example.com/a"}, items[0].Links)
	assert.True(t, items[0].HasLinks)

	assert.Empty(t, items[1].Links)
	assert.False(t, items[1].HasLinks)
	for _, item := range items {
		require.NoError(t, core.ValidateItem(item))
	}
}

func TestCollect_DefersResolution(t *testing.T) {
	s := newAcmeScraper(t)

	items, err := s.Collect(context.Background(), "acme", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []string{"https://bit.ly/X"}, items[0].Links)
}

func TestCollect_FetchErrorPropagates(t *testing.T) {
	fatal := &fetch.FatalError{Err: errors.New("no such channel")}
	batch, err := links.NewBatchResolver(tableResolver{})
	require.NoError(t, err)
	s, err := New(&stubFetcher{err: fatal}, batch)
	require.NoError(t, err)

	_, err = s.ScrapeOne(context.Background(), "ghost", 5)
	var fe *fetch.FatalError
	assert.True(t, errors.As(err, &fe))
}

func TestCollect_FillsMissingTimestampAndSkipsMissingID(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	batch, err := links.NewBatchResolver(tableResolver{})
	require.NoError(t, err)
	s, err := New(&stubFetcher{items: []fetch.RawItem{{ID: "", Text: "orphan"}, {ID: "7", Text: "dated"}}}, batch)
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	items, err := s.Collect(context.Background(), "acme", 5)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "7", items[0].ItemID)
	assert.Equal(t, now, items[0].Timestamp)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrFetcherRequired)
	_, err = New(&stubFetcher{}, nil)
	assert.ErrorIs(t, err, ErrLinkResolverRequired)
}
