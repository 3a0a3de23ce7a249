package elevation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radiowatch/coverage-map/internal/observability"
)

type stubLookup struct {
	calls  int
	result float64
	err    error
}

func (s *stubLookup) Lookup(_ context.Context, _, _ float64) (float64, error) {
	s.calls++
	return s.result, s.err
}

func TestCachedLookup_HitSkipsInner(t *testing.T) {
	stub := &stubLookup{result: 120.4}
	c := NewCachedLookup(stub, 16, observability.NewMetricsForTesting())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		elev, err := c.Lookup(ctx, 47.6205, -122.3493)
		require.NoError(t, err)
		assert.Equal(t, 120.4, elev)
	}
	assert.Equal(t, 1, stub.calls)
}

func TestCachedLookup_NearbyCoordinatesShareEntry(t *testing.T) {
	stub := &stubLookup{result: 120.4}
	c := NewCachedLookup(stub, 16, observability.NewMetricsForTesting())
	ctx := context.Background()

	_, err := c.Lookup(ctx, 47.620500, -122.349300)
	require.NoError(t, err)
	_, err = c.Lookup(ctx, 47.620501, -122.349301)
	require.NoError(t, err)

	assert.Equal(t, 1, stub.calls, "coordinates equal at 5 decimals share a key")
}

func TestCachedLookup_FailureIsNotCached(t *testing.T) {
	stub := &stubLookup{err: errors.New("provider down")}
	c := NewCachedLookup(stub, 16, observability.NewMetricsForTesting())
	ctx := context.Background()

	_, err := c.Lookup(ctx, 47.6205, -122.3493)
	require.Error(t, err)
	_, err = c.Lookup(ctx, 47.6205, -122.3493)
	require.Error(t, err)
	assert.Equal(t, 2, stub.calls, "every failed lookup retries the provider")

	stub.err = nil
	stub.result = 120.4
	elev, err := c.Lookup(ctx, 47.6205, -122.3493)
	require.NoError(t, err)
	assert.Equal(t, 120.4, elev)
	assert.Equal(t, 3, stub.calls)
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", 1)
	c.put("b", 2)
	_, ok := c.get("a")
	require.True(t, ok)

	c.put("c", 3)

	_, ok = c.get("b")
	assert.False(t, ok, "b was least recently used")
	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
	v, ok = c.get("c")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func TestLRUCache_PutExistingUpdatesValue(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", 1)
	c.put("a", 5)

	v, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, 5.0, v)
	assert.Len(t, c.entries, 1)
}
