/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package hydra

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferFlushThreshold(t *testing.T) {
	b := NewBuffer(3)

	batch, full := b.Add(Result{Path: "/a"})
	require.False(t, full)
	require.Nil(t, batch)
	_, full = b.Add(Result{Path: "/b"})
	require.False(t, full)

	batch, full = b.Add(Result{Path: "/c"})
	require.True(t, full)
	require.Equal(t, Batch{{Path: "/a"}, {Path: "/b"}, {Path: "/c"}}, batch)
	require.Zero(t, b.Len(), "a full batch starts a fresh empty one")

	_, full = b.Add(Result{Path: "/d"})
	require.False(t, full)
	require.Equal(t, 1, b.Len())
}

func TestBufferTakeUnflushed(t *testing.T) {
	b := NewBuffer(10)
	b.Add(Result{Path: "/a"})
	b.Add(Result{Path: "/b"})

	require.Equal(t, Batch{{Path: "/a"}, {Path: "/b"}}, b.TakeUnflushed())
	require.Zero(t, b.Len())
	require.Empty(t, b.TakeUnflushed())
}

func TestBufferUnflushedReturnsCopy(t *testing.T) {
	b := NewBuffer(10)
	b.Add(Result{Path: "/a"})

	cp := b.Unflushed()
	require.Equal(t, Batch{{Path: "/a"}}, cp)
	cp[0].Path = "/mutated"
	require.Equal(t, Batch{{Path: "/a"}}, b.Unflushed())
}

func TestBufferRequeueKeepsCompletionOrder(t *testing.T) {
	b := NewBuffer(10)
	b.Add(Result{Path: "/c"})

	// A failed flush puts its batch back in front of later completions.
	b.Requeue(Batch{{Path: "/a"}, {Path: "/b"}})
	require.Equal(t, Batch{{Path: "/a"}, {Path: "/b"}, {Path: "/c"}}, b.Unflushed())
}

func TestBufferConcurrentAdds(t *testing.T) {
	const producers = 8
	const perProducer = 1000

	b := NewBuffer(producers*perProducer + 1)
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				b.Add(Result{Path: fmt.Sprintf("/p%d/%d", i, j)})
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, producers*perProducer, b.Len())
}
