package tree

import (
	randv2 "math/rand/v2"
	"sort"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

type rbTreeFactory struct {
	name    string
	newTree func(opts ...RBTreeOption[int, int]) RBTree[int, int]
	opts    []RBTreeOption[int, int]
}

func rbTreeFactories() []rbTreeFactory {
	variants := []struct {
		name    string
		newTree func(opts ...RBTreeOption[int, int]) RBTree[int, int]
	}{
		{name: "iterative", newTree: NewRBTree[int, int]},
		{name: "recursive", newTree: NewRecursiveRBTree[int, int]},
		{name: "sync iterative", newTree: func(opts ...RBTreeOption[int, int]) RBTree[int, int] {
			return NewSyncRBTree[int, int](NewRBTree[int, int](opts...))
		}},
	}
	allocs := []struct {
		name string
		opts []RBTreeOption[int, int]
	}{
		{name: "heap"},
		{name: "heap succ", opts: []RBTreeOption[int, int]{WithRBTreeRemoveBorrowSucc[int, int]()}},
		{name: "pool", opts: []RBTreeOption[int, int]{WithRBTreePooledNodes[int, int]()}},
		{name: "arena", opts: []RBTreeOption[int, int]{WithRBTreeArenaNodes[int, int](16)}},
		{name: "arena succ", opts: []RBTreeOption[int, int]{
			WithRBTreeArenaNodes[int, int](16),
			WithRBTreeRemoveBorrowSucc[int, int](),
		}},
	}
	factories := make([]rbTreeFactory, 0, len(variants)*len(allocs))
	for _, v := range variants {
		for _, a := range allocs {
			factories = append(factories, rbTreeFactory{
				name:    v.name + "/" + a.name,
				newTree: v.newTree,
				opts:    a.opts,
			})
		}
	}
	return factories
}

func (f rbTreeFactory) build() RBTree[int, int] {
	return f.newTree(f.opts...)
}

func TestRBTree_ConcreteScenario(t *testing.T) {
	for _, f := range rbTreeFactories() {
		t.Run(f.name, func(tt *testing.T) {
			tree := f.build()
			inserts := []int{12, 31, 24, 5, 12, 5, 34, 9, 2985, 324, 5, 69, 8}
			duplicates := 0
			for _, k := range inserts {
				outcome, err := tree.Insert(k, k*10)
				require.NoError(tt, err)
				if outcome == Duplicate {
					duplicates++
				} else {
					require.Equal(tt, Inserted, outcome)
				}
				require.NoError(tt, Validate[int, int](tree))
			}
			require.Equal(tt, 3, duplicates)
			require.Equal(tt, []int{5, 8, 9, 12, 24, 31, 34, 69, 324, 2985}, tree.InOrder())

			for _, k := range []int{5, 0, 12, 2985, 69} {
				outcome := tree.Erase(k)
				if k == 0 {
					require.Equal(tt, NotFound, outcome)
				} else {
					require.Equal(tt, Erased, outcome)
				}
				require.NoError(tt, Validate[int, int](tree))
			}
			require.Equal(tt, []int{8, 9, 24, 31, 34, 324}, tree.InOrder())
			require.Equal(tt, int64(6), tree.Len())

			// Values follow their keys through pred/succ borrowing.
			tree.Foreach(func(idx int64, color RBColor, key int, val int) bool {
				require.Equal(tt, key*10, val)
				return true
			})
		})
	}
}

func TestRBTree_RandomOpsAgainstMap(t *testing.T) {
	for _, f := range rbTreeFactories() {
		t.Run(f.name, func(tt *testing.T) {
			tree := f.build()
			ref := make(map[int]int, 512)
			rng := randv2.New(randv2.NewPCG(2024, 10))
			for i := 0; i < 4000; i++ {
				k := rng.IntN(512)
				if rng.IntN(3) < 2 {
					outcome, err := tree.Insert(k, i)
					require.NoError(tt, err)
					if _, ok := ref[k]; ok {
						require.Equal(tt, Duplicate, outcome)
					} else {
						require.Equal(tt, Inserted, outcome)
						ref[k] = i
					}
				} else {
					outcome := tree.Erase(k)
					if _, ok := ref[k]; ok {
						require.Equal(tt, Erased, outcome)
						delete(ref, k)
					} else {
						require.Equal(tt, NotFound, outcome)
					}
				}
				if i%50 == 0 {
					require.NoError(tt, Validate[int, int](tree))
				}
			}
			require.NoError(tt, Validate[int, int](tree))

			keys := lo.Keys(ref)
			sort.Ints(keys)
			require.Equal(tt, keys, tree.InOrder())
			require.Equal(tt, int64(len(ref)), tree.Len())
			for k, v := range ref {
				node, ok := tree.Search(k)
				require.True(tt, ok)
				require.Equal(tt, v, node.Val())
			}
		})
	}
}

func TestRBTree_DuplicateInsertIdempotence(t *testing.T) {
	type snapshot struct {
		color RBColor
		key   int
		val   int
	}
	capture := func(tree RBTree[int, int]) []snapshot {
		res := make([]snapshot, 0, tree.Len())
		tree.Foreach(func(_ int64, color RBColor, key int, val int) bool {
			res = append(res, snapshot{color, key, val})
			return true
		})
		return res
	}
	for _, f := range rbTreeFactories() {
		t.Run(f.name, func(tt *testing.T) {
			tree := f.build()
			for i := 0; i < 64; i++ {
				_, err := tree.Insert(i*3, i)
				require.NoError(tt, err)
			}
			before := capture(tree)
			height := Height[int, int](tree)
			for i := 0; i < 64; i++ {
				outcome, err := tree.Insert(i*3, -1)
				require.NoError(tt, err)
				require.Equal(tt, Duplicate, outcome)
			}
			require.Equal(tt, before, capture(tree))
			require.Equal(tt, height, Height[int, int](tree))
			require.NoError(tt, Validate[int, int](tree))
		})
	}
}

func TestRBTree_EraseInsertInverse(t *testing.T) {
	for _, f := range rbTreeFactories() {
		t.Run(f.name, func(tt *testing.T) {
			tree := f.build()
			keys := randv2.Perm(300)
			for _, k := range keys {
				_, err := tree.Insert(k, k)
				require.NoError(tt, err)
			}
			erased := lo.Filter(keys, func(k int, _ int) bool { return k%3 == 0 })
			for _, k := range erased {
				require.Equal(tt, Erased, tree.Erase(k))
			}
			require.NoError(tt, Validate[int, int](tree))

			expected := lo.Without(keys, erased...)
			sort.Ints(expected)
			require.Equal(tt, expected, tree.InOrder())

			for _, k := range erased {
				_, ok := tree.Search(k)
				require.False(tt, ok)
				require.Equal(tt, NotFound, tree.Erase(k))
			}
			for _, k := range expected {
				node, ok := tree.Search(k)
				require.True(tt, ok)
				require.Equal(tt, k, node.Key())
			}
			_, ok := tree.Search(-1)
			require.False(tt, ok)
		})
	}
}

func TestRBTree_HeightBound(t *testing.T) {
	for _, f := range rbTreeFactories() {
		t.Run(f.name, func(tt *testing.T) {
			tree := f.build()
			for i := 0; i < 4096; i++ {
				_, err := tree.Insert(i, i)
				require.NoError(tt, err)
				if i&(i+1) == 0 {
					require.LessOrEqual(tt, Height[int, int](tree), MaxHeight(tree.Len()))
				}
			}
			for i := 0; i < 4096; i += 2 {
				require.Equal(tt, Erased, tree.Erase(i))
			}
			require.LessOrEqual(tt, Height[int, int](tree), MaxHeight(tree.Len()))
			require.NoError(tt, Validate[int, int](tree))
		})
	}
}

func TestRBTree_RemoveMinDrain(t *testing.T) {
	for _, f := range rbTreeFactories() {
		t.Run(f.name, func(tt *testing.T) {
			tree := f.build()
			keys := randv2.Perm(200)
			for _, k := range keys {
				_, _ = tree.Insert(k, k)
			}
			for i := 0; i < 200; i++ {
				node, ok := tree.RemoveMin()
				require.True(tt, ok)
				require.Equal(tt, i, node.Key())
				require.Equal(tt, i, node.Val())
				if i%20 == 0 {
					require.NoError(tt, Validate[int, int](tree))
				}
			}
			_, ok := tree.RemoveMin()
			require.False(tt, ok)
			require.Nil(tt, tree.Root())
		})
	}
}

func TestRBTree_Release(t *testing.T) {
	for _, f := range rbTreeFactories() {
		t.Run(f.name, func(tt *testing.T) {
			tree := f.build()
			for i := 0; i < 500; i++ {
				_, _ = tree.Insert(i, i)
			}
			tree.Release()
			require.Equal(tt, int64(0), tree.Len())
			require.Nil(tt, tree.Root())
			require.Empty(tt, tree.InOrder())
			require.NoError(tt, Validate[int, int](tree))

			for i := 0; i < 10; i++ {
				outcome, err := tree.Insert(i, i)
				require.NoError(tt, err)
				require.Equal(tt, Inserted, outcome)
			}
			require.Equal(tt, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, tree.InOrder())
			require.NoError(tt, Validate[int, int](tree))
		})
	}
}

func TestRBTree_ForeachEarlyStop(t *testing.T) {
	for _, f := range rbTreeFactories() {
		t.Run(f.name, func(tt *testing.T) {
			tree := f.build()
			for i := 0; i < 100; i++ {
				_, _ = tree.Insert(i, i)
			}
			visited := make([]int, 0, 10)
			tree.Foreach(func(idx int64, _ RBColor, key int, _ int) bool {
				require.Equal(tt, int64(len(visited)), idx)
				visited = append(visited, key)
				return len(visited) < 10
			})
			require.Equal(tt, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, visited)
		})
	}
}

func TestRBTree_CustomComparator(t *testing.T) {
	for _, f := range rbTreeFactories() {
		t.Run(f.name, func(tt *testing.T) {
			opts := append([]RBTreeOption[int, int]{
				WithRBTreeDesc[int, int](),
				// Comparator wins over the desc flag: order by absolute value.
				WithRBTreeComparator[int, int](func(i, j int) int64 {
					if i < 0 {
						i = -i
					}
					if j < 0 {
						j = -j
					}
					return int64(i - j)
				}),
			}, f.opts...)
			tree := f.newTree(opts...)
			for _, k := range []int{-3, 1, -2, 5, 4} {
				outcome, err := tree.Insert(k, k)
				require.NoError(tt, err)
				require.Equal(tt, Inserted, outcome)
			}
			outcome, err := tree.Insert(3, 3)
			require.NoError(tt, err)
			require.Equal(tt, Duplicate, outcome)
			require.Equal(tt, []int{1, -2, -3, 4, 5}, tree.InOrder())
			require.NoError(tt, Validate[int, int](tree))
		})
	}
}

func TestRBTree_AllocFailure(t *testing.T) {
	for _, f := range rbTreeFactories() {
		t.Run(f.name, func(tt *testing.T) {
			opts := append([]RBTreeOption[int, int]{WithRBTreeNodeLimit[int, int](8)}, f.opts...)
			tree := f.newTree(opts...)
			for i := 0; i < 8; i++ {
				outcome, err := tree.Insert(i, i)
				require.NoError(tt, err)
				require.Equal(tt, Inserted, outcome)
			}
			before := tree.InOrder()

			outcome, err := tree.Insert(100, 100)
			require.ErrorIs(tt, err, ErrNodeAllocFailed)
			require.Equal(tt, AllocFailed, outcome)
			require.Equal(tt, before, tree.InOrder())
			require.Equal(tt, int64(8), tree.Len())
			require.NoError(tt, Validate[int, int](tree))
			_, ok := tree.Search(100)
			require.False(tt, ok)

			// Duplicates are detected before any allocation.
			outcome, err = tree.Insert(3, 3)
			require.NoError(tt, err)
			require.Equal(tt, Duplicate, outcome)

			require.Equal(tt, Erased, tree.Erase(0))
			outcome, err = tree.Insert(100, 100)
			require.NoError(tt, err)
			require.Equal(tt, Inserted, outcome)
			require.Equal(tt, []int{1, 2, 3, 4, 5, 6, 7, 100}, tree.InOrder())
			require.NoError(tt, Validate[int, int](tree))
		})
	}
}
