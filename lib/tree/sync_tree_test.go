package tree

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSyncRBTree_ConcurrentWriters(t *testing.T) {
	testcases := []struct {
		name string
		tree RBTree[int, int]
	}{
		{name: "iterative", tree: NewSyncRBTree[int, int](NewRBTree[int, int](WithRBTreePooledNodes[int, int]()))},
		{name: "recursive", tree: NewSyncRBTree[int, int](NewRecursiveRBTree[int, int]())},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			const (
				writers = 8
				perW    = 500
			)
			tree := tc.tree
			var wg sync.WaitGroup
			wg.Add(writers * 2)
			for w := 0; w < writers; w++ {
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perW; i++ {
						k := w*perW + i
						outcome, err := tree.Insert(k, k)
						if err != nil || outcome != Inserted {
							tt.Errorf("insert %d: %s %v", k, outcome, err)
							return
						}
						if i%2 == 1 && tree.Erase(k) != Erased {
							tt.Errorf("erase %d", k)
							return
						}
					}
				}(w)
				go func() {
					defer wg.Done()
					for i := 0; i < 50; i++ {
						prev := -1
						tree.Foreach(func(_ int64, _ RBColor, key int, _ int) bool {
							if key <= prev {
								tt.Errorf("out of order key %d after %d", key, prev)
								return false
							}
							prev = key
							return true
						})
						_, _ = tree.Search(i)
						_ = tree.Len()
					}
				}()
			}
			wg.Wait()

			require.Equal(tt, int64(writers*perW/2), tree.Len())
			require.NoError(tt, tree.(*syncRBTree[int, int]).Validate())
			require.NoError(tt, Validate[int, int](tree))
			keys := tree.InOrder()
			for i, k := range keys {
				require.Equal(tt, i*2, k)
			}
		})
	}
}

func TestSyncRBTree_WrapOnce(t *testing.T) {
	tree := NewSyncRBTree[int, int](NewRBTree[int, int]())
	require.Same(t, tree, NewSyncRBTree[int, int](tree))

	_, _ = tree.Insert(2, 2)
	_, _ = tree.Insert(1, 1)
	node, ok := tree.RemoveMin()
	require.True(t, ok)
	require.Equal(t, 1, node.Key())
	require.Equal(t, 2, tree.Root().Key())
	tree.Release()
	require.Nil(t, tree.Root())
}
