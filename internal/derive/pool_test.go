package derive

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsAllJobs(t *testing.T) {
	pool := NewPool(4, 100)
	var n int64
	for i := 0; i < 50; i++ {
		pool.Submit(func() error {
			atomic.AddInt64(&n, 1)
			return nil
		})
	}
	pool.Shutdown()
	require.NoError(t, pool.Wait())
	assert.EqualValues(t, 50, n)
}

func TestPoolCollectsErrors(t *testing.T) {
	pool := NewPool(2, 10)
	pool.Submit(func() error { return nil })
	pool.Submit(func() error { return errors.New("boom") })
	pool.Submit(func() error { return errors.New("boom2") })
	pool.Shutdown()
	err := pool.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 job(s) failed")
}
