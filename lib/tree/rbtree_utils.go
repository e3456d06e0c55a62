package tree

import (
	"fmt"
	"math"
	"math/bits"

	"go.uber.org/multierr"

	"github.com/benz9527/xrbtree/lib/infra"
)

func isRedNode[K infra.OrderedKey, V any](node RBNode[K, V]) bool {
	return node != nil && node.Color() == Red
}

func bitLen(n int64) int {
	if n <= 0 {
		return 1
	}
	return bits.Len64(uint64(n)) + 1
}

// rbtree rule validation utilities.
// They only walk the RBNode view, so both variants are checked the same
// way.

// References:
// https://github1s.com/minghu6/rust-minghu6/blob/master/coll_st/src/bst/rb.rs

// RedViolationValidate checks that no red node has a red child.
func RedViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	aux := tree.Root()
	if aux == nil {
		return nil
	}

	stack := make([]RBNode[K, V], 0, 2*bitLen(tree.Len()))
	defer func() {
		clear(stack)
	}()
	stack = append(stack, aux)
	for l := len(stack); l > 0; l = len(stack) {
		aux = stack[l-1]
		stack = stack[:l-1]
		left, right := aux.Left(), aux.Right()
		if isRedNode[K, V](aux) && (isRedNode[K, V](left) || isRedNode[K, V](right)) {
			return fmt.Errorf("%w: red node %v has a red child", ErrRBTreeRedViolation, aux.Key())
		}
		if left != nil {
			stack = append(stack, left)
		}
		if right != nil {
			stack = append(stack, right)
		}
	}
	return nil
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).

	        [13]
			/  \
		 <8>    [15]
		 / \    /  \
	  [6] [11] [14] [17]
	  /              /
	<1>            [16]

2-3-4 tree like:

	       <8> --- [13] --- <15>
		  /  \             /    \
		 /    \           /      \
	  <1>-[6][11]      [14] <16>-[17]

Each leaf node to root node black depth are equal.
*/
func BlackViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	_, err := blackHeight[K, V](tree.Root())
	return err
}

// blackHeight counts the black nodes below node down to any nil, node
// itself excluded.
func blackHeight[K infra.OrderedKey, V any](node RBNode[K, V]) (int, error) {
	if node == nil {
		return 0, nil
	}
	left, right := node.Left(), node.Right()
	lh, err := blackHeight[K, V](left)
	if err != nil {
		return 0, err
	}
	rh, err := blackHeight[K, V](right)
	if err != nil {
		return 0, err
	}
	lh, rh = lh+blackUnit[K, V](left), rh+blackUnit[K, V](right)
	if lh != rh {
		return 0, fmt.Errorf("%w: node %v left black height %d, right black height %d",
			ErrRBTreeBlackViolation, node.Key(), lh, rh)
	}
	return lh, nil
}

// blackUnit is 1 for a black node or a nil leaf, 0 for a red node.
func blackUnit[K infra.OrderedKey, V any](node RBNode[K, V]) int {
	if isRedNode[K, V](node) {
		return 0
	}
	return 1
}

func RootViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	if root := tree.Root(); root != nil && root.Color() != Black {
		return fmt.Errorf("%w: root %v is %s", ErrRBTreeRootViolation, root.Key(), root.Color())
	}
	return nil
}

// OrderViolationValidate checks the binary search ordering with the
// tree's own comparator, and that Len matches the number of nodes.
func OrderViolationValidate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	cmp := infra.AscComparator[K]
	if kc, ok := tree.(keyComparable[K]); ok {
		cmp = kc.keyCompare
	}

	var (
		prev    K
		hasPrev bool
		count   int64
		err     error
	)
	var walk func(node RBNode[K, V]) bool
	walk = func(node RBNode[K, V]) bool {
		if node == nil {
			return true
		}
		if !walk(node.Left()) {
			return false
		}
		if hasPrev && cmp(prev, node.Key()) >= 0 {
			err = fmt.Errorf("%w: key %v is not after %v", ErrRBTreeOrderViolation, node.Key(), prev)
			return false
		}
		prev, hasPrev = node.Key(), true
		count++
		return walk(node.Right())
	}
	if walk(tree.Root()); err != nil {
		return err
	}
	if count != tree.Len() {
		return fmt.Errorf("%w: %d nodes linked, but len is %d", ErrRBTreeOrderViolation, count, tree.Len())
	}
	return nil
}

// Validate runs every rule check and reports all broken rules.
func Validate[K infra.OrderedKey, V any](tree RBTree[K, V]) error {
	return multierr.Combine(
		RootViolationValidate[K, V](tree),
		RedViolationValidate[K, V](tree),
		BlackViolationValidate[K, V](tree),
		OrderViolationValidate[K, V](tree),
	)
}

// Height is the number of nodes on the longest root to leaf path.
func Height[K infra.OrderedKey, V any](tree RBTree[K, V]) int {
	var height func(node RBNode[K, V]) int
	height = func(node RBNode[K, V]) int {
		if node == nil {
			return 0
		}
		return 1 + max(height(node.Left()), height(node.Right()))
	}
	return height(tree.Root())
}

// MaxHeight is the red-black bound 2*log2(n+1) for n keys.
func MaxHeight(n int64) int {
	if n <= 0 {
		return 0
	}
	return int(math.Floor(2 * math.Log2(float64(n+1))))
}
