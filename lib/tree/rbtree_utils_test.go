package tree

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func recLeaf(key int, color RBColor) *recNode[int, int] {
	return &recNode[int, int]{key: key, val: key, color: color}
}

func handBuiltTree(root *recNode[int, int], count int64) *recRBTree[int, int] {
	tree := newRecRBTree(buildRBTreeOptions[int, int]())
	tree.root = root
	tree.count = count
	return tree
}

func TestRBTreeValidate_HandBuilt(t *testing.T) {
	testcases := []struct {
		name     string
		tree     func() *recRBTree[int, int]
		expected []error
	}{
		{
			name: "valid",
			tree: func() *recRBTree[int, int] {
				root := recLeaf(10, Black)
				root.left, root.right = recLeaf(5, Red), recLeaf(15, Red)
				return handBuiltTree(root, 3)
			},
		},
		{
			name: "empty",
			tree: func() *recRBTree[int, int] {
				return handBuiltTree(nil, 0)
			},
		},
		{
			name: "red root",
			tree: func() *recRBTree[int, int] {
				return handBuiltTree(recLeaf(10, Red), 1)
			},
			expected: []error{ErrRBTreeRootViolation},
		},
		{
			name: "red red edge",
			tree: func() *recRBTree[int, int] {
				root := recLeaf(10, Black)
				root.left, root.right = recLeaf(5, Red), recLeaf(15, Red)
				root.left.left = recLeaf(3, Red)
				return handBuiltTree(root, 4)
			},
			expected: []error{ErrRBTreeRedViolation},
		},
		{
			name: "black height mismatch",
			tree: func() *recRBTree[int, int] {
				root := recLeaf(10, Black)
				root.left = recLeaf(5, Black)
				return handBuiltTree(root, 2)
			},
			expected: []error{ErrRBTreeBlackViolation},
		},
		{
			name: "deep black height mismatch",
			tree: func() *recRBTree[int, int] {
				root := recLeaf(10, Black)
				root.left, root.right = recLeaf(5, Black), recLeaf(15, Black)
				root.left.left = recLeaf(3, Black)
				root.left.right = recLeaf(7, Black)
				return handBuiltTree(root, 5)
			},
			expected: []error{ErrRBTreeBlackViolation},
		},
		{
			name: "unordered",
			tree: func() *recRBTree[int, int] {
				root := recLeaf(10, Black)
				root.left, root.right = recLeaf(20, Red), recLeaf(5, Red)
				return handBuiltTree(root, 3)
			},
			expected: []error{ErrRBTreeOrderViolation},
		},
		{
			name: "len mismatch",
			tree: func() *recRBTree[int, int] {
				return handBuiltTree(recLeaf(10, Black), 2)
			},
			expected: []error{ErrRBTreeOrderViolation},
		},
		{
			name: "red root with red child",
			tree: func() *recRBTree[int, int] {
				root := recLeaf(10, Red)
				root.left, root.right = recLeaf(5, Red), recLeaf(15, Red)
				return handBuiltTree(root, 3)
			},
			expected: []error{ErrRBTreeRootViolation, ErrRBTreeRedViolation},
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			err := Validate[int, int](tc.tree())
			if len(tc.expected) == 0 {
				require.NoError(tt, err)
				return
			}
			require.Error(tt, err)
			require.Len(tt, multierr.Errors(err), len(tc.expected))
			for _, e := range tc.expected {
				require.ErrorIs(tt, err, e)
			}
		})
	}
}

func TestRBTreeValidate_SingleRules(t *testing.T) {
	root := recLeaf(10, Red)
	root.left = recLeaf(5, Red)
	root.left.left = recLeaf(3, Black)
	tree := handBuiltTree(root, 3)

	require.ErrorIs(t, RootViolationValidate[int, int](tree), ErrRBTreeRootViolation)
	require.ErrorIs(t, RedViolationValidate[int, int](tree), ErrRBTreeRedViolation)
	require.ErrorIs(t, BlackViolationValidate[int, int](tree), ErrRBTreeBlackViolation)
	require.NoError(t, OrderViolationValidate[int, int](tree))
}

func TestRBTreeValidate_UsesTreeComparator(t *testing.T) {
	tree := NewRBTree[int, int](WithRBTreeDesc[int, int]())
	for i := 0; i < 32; i++ {
		_, _ = tree.Insert(i, i)
	}
	require.NoError(t, OrderViolationValidate[int, int](tree))
	require.Equal(t, 31, tree.InOrder()[0])
}

func TestRBTreeHeight(t *testing.T) {
	require.Equal(t, 0, MaxHeight(0))
	require.Equal(t, 2, MaxHeight(1))
	require.Equal(t, 3, MaxHeight(2))
	require.Equal(t, 6, MaxHeight(7))
	require.Equal(t, 40, MaxHeight(1<<20-1))

	require.Equal(t, 0, Height[int, int](handBuiltTree(nil, 0)))
	root := recLeaf(10, Black)
	root.left = recLeaf(5, Red)
	root.left.left = recLeaf(3, Black)
	require.Equal(t, 3, Height[int, int](handBuiltTree(root, 3)))
}
