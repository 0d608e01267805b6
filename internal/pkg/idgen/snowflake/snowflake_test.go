package snowflake

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowflake_WorkerRange(t *testing.T) {
	_, err := NewSnowflake(-1)
	require.Error(t, err)
	_, err = NewSnowflake(1024)
	require.Error(t, err)
	_, err = NewSnowflake(1023)
	require.NoError(t, err)
}

func TestNextID_UniqueAndIncreasing(t *testing.T) {
	s, err := NewSnowflake(7)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := make(map[int64]struct{}, 8000)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last int64
			for i := 0; i < 1000; i++ {
				id, err := s.NextID()
				assert.NoError(t, err)
				assert.Greater(t, id, last)
				last = id
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 8000)
}

func TestNextID_ClockMovedBackwards(t *testing.T) {
	s, err := NewSnowflake(1)
	require.NoError(t, err)
	ts := int64(1767225600000 + 10_000)
	s.now = func() int64 { return ts }

	_, err = s.NextID()
	require.NoError(t, err)

	ts -= 1000
	_, err = s.NextID()
	require.ErrorIs(t, err, ErrClockMovedBackwards)
}

func TestNextID_WorkerBits(t *testing.T) {
	s, err := NewSnowflake(5)
	require.NoError(t, err)
	id, err := s.NextID()
	require.NoError(t, err)
	assert.Equal(t, int64(5), (id>>sequenceBits)&maxWorkerID)
}
