package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyLockServesWaitersInOrder(t *testing.T) {
	locks := newKeyLock()
	ctx := context.Background()

	unlock, err := locks.Lock(ctx, "k")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		order []int
		wg    sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			release, err := locks.Lock(ctx, "k")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			release()
		}(i)
		// let waiter i queue before waiter i+1
		time.Sleep(5 * time.Millisecond)
	}

	unlock()
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	assert.Zero(t, locks.size())
}

func TestKeyLockCancelledWaiterLeavesQueue(t *testing.T) {
	locks := newKeyLock()
	ctx := context.Background()

	unlock, err := locks.Lock(ctx, "k")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = locks.Lock(waitCtx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Zero(t, locks.size())

	again, err := locks.Lock(ctx, "k")
	require.NoError(t, err)
	again()
}

func TestKeyLockKeysAreIndependent(t *testing.T) {
	locks := newKeyLock()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	a, err := locks.Lock(ctx, "a")
	require.NoError(t, err)
	b, err := locks.Lock(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 2, locks.size())
	a()
	b()
}
