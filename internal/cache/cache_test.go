package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkleafapp/inkleaf-server/internal/domain"
)

func newTestCache(t *testing.T, ttl time.Duration) *ResultCache {
	t.Helper()
	c, err := New(t.TempDir(), ttl, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleRecords() []domain.BookRecord {
	return []domain.BookRecord{
		{
			Title:       "Flutter in Action",
			Author:      "Eric Windmill",
			ContentHash: "9a6ac2a8c828b084e4e23db26deb6f25",
			Extension:   "pdf",
			SourceID:    domain.SourceLibgen,
		},
		{
			Title:     "Flutter in Practice",
			Extension: "pdf",
			SourceID:  domain.SourceDbooks,
		},
	}
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t, time.Minute)

	key := Key("flutter", []string{"pdf", "epub"}, 1, domain.SourceToggles{Dbooks: true, Libgen: true})
	c.Set(key, sampleRecords())

	got, ok := c.Get(key)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "Flutter in Action", got[0].Title)
	assert.Equal(t, domain.SourceDbooks, got[1].SourceID)
}

func TestGet_Miss(t *testing.T) {
	c := newTestCache(t, time.Minute)

	_, ok := c.Get(Key("nothing", nil, 1, domain.SourceToggles{Dbooks: true}))
	assert.False(t, ok)
}

func TestKey_DistinguishesQueryShape(t *testing.T) {
	base := Key("flutter", []string{"pdf"}, 1, domain.SourceToggles{Dbooks: true, Libgen: true})

	assert.NotEqual(t, base, Key("flutter", []string{"pdf"}, 2, domain.SourceToggles{Dbooks: true, Libgen: true}))
	assert.NotEqual(t, base, Key("flutter", []string{"epub"}, 1, domain.SourceToggles{Dbooks: true, Libgen: true}))
	assert.NotEqual(t, base, Key("flutter", []string{"pdf"}, 1, domain.SourceToggles{Dbooks: true}))
	assert.NotEqual(t, base, Key("dart", []string{"pdf"}, 1, domain.SourceToggles{Dbooks: true, Libgen: true}))

	// Case and surrounding whitespace do not change the key.
	assert.Equal(t, base, Key("  Flutter ", []string{"pdf"}, 1, domain.SourceToggles{Dbooks: true, Libgen: true}))
}

func TestPurge(t *testing.T) {
	c := newTestCache(t, time.Minute)

	key := Key("flutter", nil, 1, domain.SourceToggles{Dbooks: true})
	c.Set(key, sampleRecords())

	require.NoError(t, c.Purge())

	_, ok := c.Get(key)
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t, 50*time.Millisecond)

	key := Key("flutter", nil, 1, domain.SourceToggles{Dbooks: true})
	c.Set(key, sampleRecords())

	_, ok := c.Get(key)
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond)

	_, ok = c.Get(key)
	assert.False(t, ok, "entry should expire after the TTL")
}
