package normalize

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/driftnet/ai/mock"
	"github.com/poiesic/driftnet/core"
	"github.com/poiesic/driftnet/storage"
	"github.com/poiesic/driftnet/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupItems(t *testing.T, items ...*core.Item) storage.ItemRepository {
	t.Helper()
	repo, _, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	for _, item := range items {
		_, created, err := repo.Upsert(context.Background(), item)
		require.NoError(t, err)
		require.True(t, created)
	}
	return repo
}

func primary(itemID, text string, offset time.Duration) *core.Item {
	return &core.Item{
		SourceID:  "acme",
		ItemID:    itemID,
		Text:      text,
		Kind:      core.SourceKindPrimary,
		Timestamp: base.Add(offset),
	}
}

func newTestProcessor(t *testing.T, repo storage.ItemRepository, n *mock.MockNormalizer, opts ...Option) *Processor {
	t.Helper()
	opts = append([]Option{WithDelay(0), WithRetry(1, 0)}, opts...)
	p, err := NewProcessor(repo, n, opts...)
	require.NoError(t, err)
	return p
}

func TestRun_NormalizesPending(t *testing.T) {
	ctx := context.Background()
	repo := setupItems(t,
		primary("1", "first  post", 0),
		primary("2", "second post", time.Minute),
	)
	n := mock.NewMockNormalizer()
	p := newTestProcessor(t, repo, n)

	stats, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Attempted: 2, Normalized: 2}, stats)
	assert.Equal(t, []string{"first  post", "second post"}, n.Calls(), "oldest first")

	stored, err := repo.GetItemByKey(ctx, "acme", "1")
	require.NoError(t, err)
	assert.True(t, stored.Processed)
	assert.Equal(t, "telegram: first post", stored.NormalizedText)

	counts, err := p.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.ProcessingCounts{Total: 2, Processed: 2, Unprocessed: 0}, counts)

	stats, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats, "nothing left to do")
	assert.Equal(t, 2, n.CallCount())
}

func TestRun_FailureLeavesItemUnprocessed(t *testing.T) {
	ctx := context.Background()
	repo := setupItems(t,
		primary("1", "bad", 0),
		primary("2", "good", time.Minute),
	)

	offline := true
	n := mock.NewMockNormalizer().WithNormalizeFunc(func(ctx context.Context, text, kind string) (string, error) {
		if text == "bad" && offline {
			return "", errors.New("model offline")
		}
		return "ok: " + text, nil
	})
	p := newTestProcessor(t, repo, n, WithRetry(2, time.Millisecond))

	stats, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Attempted: 2, Normalized: 1, Failed: 1}, stats)
	assert.Equal(t, 3, n.CallCount(), "failing item retried once")

	counts, err := p.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Unprocessed)

	bad, err := repo.GetItemByKey(ctx, "acme", "1")
	require.NoError(t, err)
	assert.False(t, bad.Processed)
	assert.Empty(t, bad.NormalizedText)

	offline = false
	stats, err = p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Attempted: 1, Normalized: 1}, stats)

	bad, err = repo.GetItemByKey(ctx, "acme", "1")
	require.NoError(t, err)
	assert.True(t, bad.Processed)
	assert.Equal(t, "ok: bad", bad.NormalizedText)
}

func TestRun_BlankItemsSkipModel(t *testing.T) {
	ctx := context.Background()
	links := primary("1", "  ", 0)
	links.SetLinks([]string{"https://example.com/a"})
	repo := setupItems(t, links)
	n := mock.NewMockNormalizer()
	p := newTestProcessor(t, repo, n)

	stats, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Skipped: 1}, stats)
	assert.Equal(t, 0, n.CallCount())

	stored, err := repo.GetItemByKey(ctx, "acme", "1")
	require.NoError(t, err)
	assert.True(t, stored.Processed)
	assert.Empty(t, stored.NormalizedText)
}

func TestRun_SourceKind(t *testing.T) {
	ctx := context.Background()
	secondary := &core.Item{
		SourceID:  "acme",
		ItemID:    "instagram_ABC",
		Text:      "caption",
		Kind:      core.SourceKindSecondary,
		Timestamp: base.Add(time.Minute),
	}
	repo := setupItems(t, primary("1", "post", 0), secondary)

	var mu sync.Mutex
	var kinds []string
	n := mock.NewMockNormalizer().WithNormalizeFunc(func(ctx context.Context, text, kind string) (string, error) {
		mu.Lock()
		kinds = append(kinds, kind)
		mu.Unlock()
		return text, nil
	})
	p := newTestProcessor(t, repo, n, WithPrimaryKind("channel"))

	_, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"channel", "instagram"}, kinds)
}

func TestRun_MaxItems(t *testing.T) {
	repo := setupItems(t,
		primary("1", "a", 0),
		primary("2", "b", time.Minute),
		primary("3", "c", 2*time.Minute),
	)
	n := mock.NewMockNormalizer()
	p := newTestProcessor(t, repo, n, WithMaxItems(2))

	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Normalized)
	assert.Equal(t, []string{"a", "b"}, n.Calls())
}

func TestRun_Pacing(t *testing.T) {
	repo := setupItems(t,
		primary("1", "a", 0),
		primary("2", "b", time.Minute),
		primary("3", "c", 2*time.Minute),
	)
	p := newTestProcessor(t, repo, mock.NewMockNormalizer(), WithDelay(30*time.Millisecond))

	start := time.Now()
	stats, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Normalized)
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond, "two waits between three calls")
}

func TestRun_Cancelled(t *testing.T) {
	repo := setupItems(t, primary("1", "a", 0), primary("2", "b", time.Minute))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := mock.NewMockNormalizer().WithNormalizeFunc(func(ctx context.Context, text, kind string) (string, error) {
		cancel()
		return "", ctx.Err()
	})
	p := newTestProcessor(t, repo, n, WithRetry(3, time.Millisecond))

	stats, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Stats{Attempted: 1}, stats)
	assert.Equal(t, 1, n.CallCount())

	counts, err := p.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Unprocessed)
}

func TestRun_Progress(t *testing.T) {
	repo := setupItems(t, primary("1", "a", 0), primary("2", "b", time.Minute))
	var buf bytes.Buffer
	p := newTestProcessor(t, repo, mock.NewMockNormalizer(), WithProgress(&buf))

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "2/2 (100.0%)")
	assert.Contains(t, buf.String(), "items/s")
}

func TestNewProcessor_Validation(t *testing.T) {
	repo := setupItems(t)
	n := mock.NewMockNormalizer()

	_, err := NewProcessor(nil, n)
	assert.ErrorIs(t, err, ErrItemRepositoryRequired)

	_, err = NewProcessor(repo, nil)
	assert.ErrorIs(t, err, ErrNormalizerRequired)

	_, err = NewProcessor(repo, n, WithDelay(-time.Second))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = NewProcessor(repo, n, WithRetry(0, time.Second))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	_, err = NewProcessor(repo, n, WithMaxItems(-1))
	assert.ErrorIs(t, err, ErrInvalidOption)

	_, err = NewProcessor(repo, n, WithPrimaryKind(""))
	assert.ErrorIs(t, err, ErrInvalidOption)

	quiet, err := NewProcessor(repo, n, WithLogger(nil))
	require.NoError(t, err)
	assert.NotNil(t, quiet.logger)

	p, err := NewProcessor(repo, n)
	require.NoError(t, err)
	assert.Equal(t, DefaultDelay, p.delay)
	assert.Equal(t, DefaultMaxAttempts, p.maxAttempts)
}
