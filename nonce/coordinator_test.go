package nonce

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChainClient struct {
	mu    sync.Mutex
	count uint64
	calls int
}

func (f *fakeChainClient) PendingNonce(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.count, nil
}

func TestAllocateMonotonic(t *testing.T) {
	client := &fakeChainClient{count: 5}
	c := New(client)

	n1, err := c.Allocate(context.Background())
	require.NoError(t, err)
	n2, err := c.Allocate(context.Background())
	require.NoError(t, err)
	n3, err := c.Allocate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(5), n1)
	assert.Equal(t, uint64(6), n2)
	assert.Equal(t, uint64(7), n3)
	assert.Equal(t, 3, c.InflightCount())
	assert.Equal(t, 1, client.calls, "pending count fetched only once")
}

func TestOnConfirmedDecrementsNeverNegative(t *testing.T) {
	c := New(&fakeChainClient{count: 0})
	c.OnConfirmed()
	assert.Equal(t, 0, c.InflightCount())

	_, _ = c.Allocate(context.Background())
	c.OnConfirmed()
	c.OnConfirmed()
	assert.Equal(t, 0, c.InflightCount())
}

func TestOnFailedResyncs(t *testing.T) {
	client := &fakeChainClient{count: 10}
	c := New(client)

	_, err := c.Allocate(context.Background())
	require.NoError(t, err)

	client.count = 20
	require.NoError(t, c.OnFailed(context.Background()))
	assert.Equal(t, 0, c.InflightCount())

	n, err := c.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(20), n)
}

func TestAllocateSerialisesConcurrentCallers(t *testing.T) {
	client := &fakeChainClient{count: 0}
	c := New(client)

	const n = 50
	results := make([]uint64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			v, err := c.Allocate(context.Background())
			require.NoError(t, err)
			results[i] = v
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, v := range results {
		assert.False(t, seen[v], "duplicate nonce %d allocated", v)
		seen[v] = true
	}
	assert.Len(t, seen, n)
}
