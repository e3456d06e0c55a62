package tree

import (
	"sync/atomic"

	"github.com/benz9527/xrbtree/lib/infra"
)

var _ RBTree[int, struct{}] = (*rbTree[int, struct{}])(nil)

type rbNode[K infra.OrderedKey, V any] struct {
	parent     *rbNode[K, V]
	left       *rbNode[K, V]
	right      *rbNode[K, V]
	key        K
	val        V
	color      RBColor
	isSentinel bool
}

func (node *rbNode[K, V]) Color() RBColor {
	return node.color
}

func (node *rbNode[K, V]) Key() K {
	return node.key
}

func (node *rbNode[K, V]) Val() V {
	return node.val
}

func (node *rbNode[K, V]) Left() RBNode[K, V] {
	if node == nil || node.left.isNilLeaf() {
		return nil
	}
	return node.left
}

func (node *rbNode[K, V]) Right() RBNode[K, V] {
	if node == nil || node.right.isNilLeaf() {
		return nil
	}
	return node.right
}

func (node *rbNode[K, V]) isNilLeaf() bool {
	return node == nil || node.isSentinel
}

func (node *rbNode[K, V]) isRed() bool {
	return !node.isNilLeaf() && node.color == Red
}

func (node *rbNode[K, V]) isBlack() bool {
	return !node.isRed()
}

func (node *rbNode[K, V]) isRoot() bool {
	return !node.isNilLeaf() && node.parent.isNilLeaf()
}

func (node *rbNode[K, V]) Direction() RBDirection {
	if node.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] nil leaf node without direction")
	}

	if node.isRoot() {
		return Root
	}
	if node == node.parent.left {
		return Left
	}
	return Right
}

func (node *rbNode[K, V]) minimum() *rbNode[K, V] {
	aux := node
	for ; !aux.isNilLeaf() && !aux.left.isNilLeaf(); aux = aux.left {
	}
	return aux
}

func (node *rbNode[K, V]) maximum() *rbNode[K, V] {
	aux := node
	for ; !aux.isNilLeaf() && !aux.right.isNilLeaf(); aux = aux.right {
	}
	return aux
}

// rbTree keeps parent links and one black sentinel that stands in for
// every absent child and for the root's parent. The sentinel belongs to
// this tree only, its parent link is scratch space for the remove fixup.
type rbTree[K infra.OrderedKey, V any] struct {
	root           *rbNode[K, V]
	sentinel       *rbNode[K, V]
	alloc          nodeAllocator[rbNode[K, V]]
	kcmp           infra.OrderedKeyComparator[K]
	stats          *rbTreeStats
	count          int64
	isRmBorrowSucc bool
}

func (tree *rbTree[K, V]) keyCompare(k1, k2 K) int64 {
	return tree.kcmp(k1, k2)
}

func (tree *rbTree[K, V]) Len() int64 {
	return atomic.LoadInt64(&tree.count)
}

func (tree *rbTree[K, V]) Root() RBNode[K, V] {
	if tree.root.isNilLeaf() {
		return nil
	}
	return tree.root
}

func (tree *rbTree[K, V]) resetSentinel() {
	s := tree.sentinel
	s.parent, s.left, s.right = s, s, s
	s.color = Black
}

// References:
// https://elixir.bootlin.com/linux/latest/source/lib/rbtree.c
// rbtree properties:
// https://en.wikipedia.org/wiki/Red%E2%80%93black_tree#Properties
// p1. Every node is either red or black.
// p2. All NIL nodes are considered black.
// p3. A red node does not have a red child. (red-violation)
// p4. Every path from a given node to any of its descendant
//   NIL nodes goes through the same number of black nodes. (black-violation)
// p5. The root is black.
// (Conclusion) If a node X has exactly one child, it must be a red child,
//   because if it were black, its NIL descendants would sit at a different
//   black depth than X's NIL child, violating p4.
// The longest path nodes' number is 2 * shortest path nodes' number.

/*
		 |                         |
		 X                         S
		/ \     leftRotate(X)     / \
	   L   S    ============>    X   Sd
		  / \                   / \
		Sc   Sd                L   Sc
*/
func (tree *rbTree[K, V]) leftRotate(x *rbNode[K, V]) {
	if x.isNilLeaf() || x.right.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}

	p, y := x.parent, x.right
	dir := x.Direction()
	x.right = y.left
	if !x.right.isNilLeaf() {
		x.right.parent = x
	}
	y.left = x
	x.parent = y

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to left-rotate")
	}
	y.parent = p
	tree.stats.recordRotate(Left)
}

/*
			 |                         |
			 X                         S
			/ \     rightRotate(S)    / \
	       L   S    <============    X   R
			  / \                   / \
			Sc   Sd               Sc   Sd
*/
func (tree *rbTree[K, V]) rightRotate(x *rbNode[K, V]) {
	if x.isNilLeaf() || x.left.isNilLeaf() {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}

	p, y := x.parent, x.left
	dir := x.Direction()
	x.left = y.right
	if !x.left.isNilLeaf() {
		x.left.parent = x
	}
	y.right = x
	x.parent = y

	switch dir {
	case Root:
		tree.root = y
	case Left:
		p.left = y
	case Right:
		p.right = y
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to right-rotate")
	}
	y.parent = p
	tree.stats.recordRotate(Right)
}

// Insert descends to the attach point first and allocates afterwards, so
// an allocation failure leaves no trace in the tree.
func (tree *rbTree[K, V]) Insert(key K, val V) (InsertOutcome, error) {
	y, x := tree.sentinel, tree.root
	res := int64(0)
	for !x.isNilLeaf() {
		y = x
		if res = tree.keyCompare(key, x.key); /* equal */ res == 0 {
			tree.stats.recordInsert(Duplicate)
			return Duplicate, nil
		} else /* less */ if res < 0 {
			x = x.left
		} else /* greater */ {
			x = x.right
		}
	}

	z, err := tree.alloc.alloc()
	if err != nil {
		tree.stats.recordInsert(AllocFailed)
		return AllocFailed, err
	}
	z.key, z.val = key, val
	z.color = Red
	z.parent, z.left, z.right = y, tree.sentinel, tree.sentinel

	if /* i1 */ y.isNilLeaf() {
		tree.root = z
	} else if res < 0 {
		y.left = z
	} else {
		y.right = z
	}

	atomic.AddInt64(&tree.count, 1)
	tree.insertRebalance(z)
	tree.stats.recordInsert(Inserted)
	return Inserted, nil
}

/*
New node X is red by default.

<X> is a RED node.
[X] is a BLACK node (or NIL).

Only a red parent P violates p3, and then P is not the root, so the
grandpa G exists and is black.

im3: Both the parent P and the uncle U are red. (red-violation)
Split the 4-node. After repainted G into red may be still red-violation,
continue to fix from G.

	    [G]             <G>
	    / \             / \
	  <P> <U>  ====>  [P] [U]
	  /               /
	<X>             <X>

im4: The parent P is red but the uncle U is black. (red-violation)
X is the inner child. Rotate P to the opposite direction of X and take P
as the new X. Here must enter im5 to fix.

	  [G]                 [G]
	  / \    rotate(P)    / \
	<P> [U]  ========>  <X> [U]
	  \                 /
	  <X>             <P>

im5: X is the outer child. Rotate G and repaint, the loop terminates.

	    [G]                 <P>               [P]
	    / \    rotate(G)    / \    repaint    / \
	  <P> [U]  ========>  <X> [G]  ======>  <X> <G>
	  /                         \                 \
	<X>                         [U]               [U]

The right child parent branch is the mirror image of the above.
*/
func (tree *rbTree[K, V]) insertRebalance(x *rbNode[K, V]) {
	steps := int64(0)
	for x.parent.isRed() {
		steps++
		p := x.parent
		gp := p.parent
		if gp.isNilLeaf() {
			// impossible run to here
			panic( /* debug assertion */ "[rbtree] red parent without grandpa")
		}

		if p == gp.left {
			if u := gp.right; /* im3 */ u.isRed() {
				p.color, u.color, gp.color = Black, Black, Red
				x = gp
				continue
			}
			if /* im4 */ x == p.right {
				x = p
				tree.leftRotate(x)
				p = x.parent
			}
			/* im5 */
			p.color, gp.color = Black, Red
			tree.rightRotate(gp)
		} else {
			if u := gp.left; /* im3 */ u.isRed() {
				p.color, u.color, gp.color = Black, Black, Red
				x = gp
				continue
			}
			if /* im4 */ x == p.left {
				x = p
				tree.rightRotate(x)
				p = x.parent
			}
			/* im5 */
			p.color, gp.color = Black, Red
			tree.leftRotate(gp)
		}
	}
	tree.root.color = Black
	tree.stats.recordInsertFixup(steps)
}

// transplant replaces the subtree rooted at u by the one rooted at v.
// v may be the sentinel, its parent link is set anyway so the remove
// fixup is able to climb from it.
func (tree *rbTree[K, V]) transplant(u, v *rbNode[K, V]) {
	switch dir := u.Direction(); dir {
	case Root:
		tree.root = v
	case Left:
		u.parent.left = v
	case Right:
		u.parent.right = v
	default:
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] unknown node direction to transplant")
	}
	v.parent = u.parent
}

/*
r1: Current node Z has left and right node.
Find Z's pred (or succ) Y and copy Y's key & value into Z. Z keeps its
position and color, Y is the node removed physically. Y has at most one
child.

Find pred:

	  |                    |
	  Z                    Y
	 / \                  / \
	L  ..   copy(Y, Z)   L  ..
	 \      =========>    \
	  Y                    Y (removed)

r2: Y has at most one child X (or the sentinel). X takes Y's place.
(1) Y is red, nothing to fix.
(2) Y is black, X absorbs one extra black. A red X is simply repainted
black, otherwise the extra black is pushed up by the remove fixup.
*/
func (tree *rbTree[K, V]) removeNode(z *rbNode[K, V]) {
	y := z
	if /* r1 */ !z.left.isNilLeaf() && !z.right.isNilLeaf() {
		if tree.isRmBorrowSucc {
			y = z.right.minimum()
		} else {
			y = z.left.maximum()
		}
		z.key, z.val = y.key, y.val
	}

	var x *rbNode[K, V]
	if !y.left.isNilLeaf() {
		x = y.left
	} else {
		x = y.right
	}

	tree.transplant(y, x)
	if /* r2 (2) */ y.color == Black {
		tree.removeRebalance(x)
	}
	tree.resetSentinel()

	atomic.AddInt64(&tree.count, -1)
	tree.alloc.free(y)
}

/*
<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.
X carries one extra black (double black) until the loop ends.

Sc is the same direction to X and it X's sibling's child node.
Sd is the opposite direction to X and it X's sibling's child node.

rm1: X's sibling S is red, so the parent P, nephew node Sc and Sd
must be black. Rotate P toward X, repaint S into black and P into red.
Then X has a black sibling, enter rm2 ~ rm4.

	  [P]                   <S>               [S]
	  / \    l-rotate(P)    / \    repaint    / \
	[X] <S>  ==========>  [P] [Sd]  =====>  <P> [Sd]
	    / \               / \               / \
	 [Sc] [Sd]          [X] [Sc]          [X] [Sc]

rm2: X's sibling S, nephew node Sc and Sd are black.
Take one black from X and S (S turns red) and give it to P. A red P is
repainted black and the loop terminates. A black P becomes the new double
black X and the loop continues from P.

	  {P}             {P}+
	  / \             / \
	[X] [S]  ====>  [X] <S>
	    / \             / \
	 [Sc] [Sd]       [Sc] [Sd]

rm3: X's sibling S is black, nephew node Sc is red and Sd is black.
Rotate S away from X, repaint Sc into black and S into red.
Enter rm4 to fix.

	                        {P}                {P}
	  {P}                   / \                / \
	  / \    r-rotate(S)  [X] <Sc>   repaint  [X] [Sc]
	[X] [S]  ==========>        \    ======>       \
	    / \                     [S]                <S>
	  <Sc> [Sd]                   \                  \
	                              [Sd]               [Sd]

rm4: X's sibling S is black and nephew node Sd is red.
Rotate P toward X, S takes P's color, P and Sd are repainted black. The
extra black is discharged, the loop terminates.

	  {P}                   [S]                {S}
	  / \    l-rotate(P)    / \     repaint    / \
	[X] [S]  ==========>  {P} <Sd>  ======>  [P] [Sd]
	    / \               / \                / \
	 [Sc] <Sd>          [X] [Sc]           [X] [Sc]

X as the right child of P is the mirror image of the above.
*/
func (tree *rbTree[K, V]) removeRebalance(x *rbNode[K, V]) {
	steps := int64(0)
	for x != tree.root && x.isBlack() {
		steps++
		p := x.parent
		if x == p.left {
			s := p.right
			if /* rm1 */ s.isRed() {
				s.color, p.color = Black, Red
				tree.leftRotate(p)
				s = p.right
			}
			if /* rm2 */ s.left.isBlack() && s.right.isBlack() {
				s.color = Red
				x = p
				continue
			}
			if /* rm3 */ s.right.isBlack() {
				s.left.color, s.color = Black, Red
				tree.rightRotate(s)
				s = p.right
			}
			/* rm4 */
			s.color, p.color = p.color, Black
			s.right.color = Black
			tree.leftRotate(p)
			x = tree.root
		} else {
			s := p.left
			if /* rm1 */ s.isRed() {
				s.color, p.color = Black, Red
				tree.rightRotate(p)
				s = p.left
			}
			if /* rm2 */ s.left.isBlack() && s.right.isBlack() {
				s.color = Red
				x = p
				continue
			}
			if /* rm3 */ s.left.isBlack() {
				s.right.color, s.color = Black, Red
				tree.leftRotate(s)
				s = p.left
			}
			/* rm4 */
			s.color, p.color = p.color, Black
			s.left.color = Black
			tree.rightRotate(p)
			x = tree.root
		}
	}
	// A red X or the root drops the extra black here.
	x.color = Black
	tree.stats.recordEraseFixup(steps)
}

func (tree *rbTree[K, V]) search(key K) *rbNode[K, V] {
	for aux := tree.root; !aux.isNilLeaf(); {
		res := tree.keyCompare(key, aux.key)
		if res == 0 {
			return aux
		} else if res > 0 {
			aux = aux.right
		} else {
			aux = aux.left
		}
	}
	return nil
}

func (tree *rbTree[K, V]) Search(key K) (RBNode[K, V], bool) {
	if x := tree.search(key); x != nil {
		return x, true
	}
	return nil, false
}

func (tree *rbTree[K, V]) Erase(key K) EraseOutcome {
	z := tree.search(key)
	if z == nil {
		tree.stats.recordErase(NotFound)
		return NotFound
	}
	tree.removeNode(z)
	tree.stats.recordErase(Erased)
	return Erased
}

func (tree *rbTree[K, V]) RemoveMin() (RBNode[K, V], bool) {
	if tree.root.isNilLeaf() {
		return nil, false
	}
	_min := tree.root.minimum()
	res := &rbNode[K, V]{
		key:   _min.key,
		val:   _min.val,
		color: _min.color,
	}
	tree.removeNode(_min)
	tree.stats.recordErase(Erased)
	return res, true
}

// Inorder traversal to implement the DFS.
func (tree *rbTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	size := atomic.LoadInt64(&tree.count)
	aux := tree.root
	if size <= 0 || aux.isNilLeaf() {
		return
	}

	stack := make([]*rbNode[K, V], 0, 2*bitLen(size))
	defer func() {
		clear(stack)
	}()

	for ; !aux.isNilLeaf(); aux = aux.left {
		stack = append(stack, aux)
	}

	idx := int64(0)
	for size = int64(len(stack)); size > 0; size = int64(len(stack)) {
		if aux = stack[size-1]; !action(idx, aux.color, aux.key, aux.val) {
			return
		}
		idx++
		stack = stack[:size-1]
		for aux = aux.right; !aux.isNilLeaf(); aux = aux.left {
			stack = append(stack, aux)
		}
	}
}

func (tree *rbTree[K, V]) InOrder() []K {
	keys := make([]K, 0, tree.Len())
	tree.Foreach(func(_ int64, _ RBColor, key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

func (tree *rbTree[K, V]) Release() {
	size := atomic.LoadInt64(&tree.count)
	aux := tree.root
	tree.root = tree.sentinel
	atomic.StoreInt64(&tree.count, 0)
	tree.stats.recordRelease(size)
	if aux.isNilLeaf() {
		return
	}

	stack := make([]*rbNode[K, V], 0, 2*bitLen(size))
	defer func() {
		clear(stack)
	}()
	stack = append(stack, aux)
	for l := len(stack); l > 0; l = len(stack) {
		aux = stack[l-1]
		stack = stack[:l-1]
		if !aux.left.isNilLeaf() {
			stack = append(stack, aux.left)
		}
		if !aux.right.isNilLeaf() {
			stack = append(stack, aux.right)
		}
		tree.alloc.free(aux)
	}
	if r, ok := tree.alloc.(resetter); ok {
		r.reset()
	}
	tree.resetSentinel()
}

func newRBTree[K infra.OrderedKey, V any](opts *rbTreeOptions[K, V]) *rbTree[K, V] {
	sentinel := &rbNode[K, V]{
		color:      Black,
		isSentinel: true,
	}
	tree := &rbTree[K, V]{
		root:           sentinel,
		sentinel:       sentinel,
		alloc:          newNodeAllocator[rbNode[K, V]](opts.strategy, opts.arenaChunkCap, opts.nodeLimit),
		kcmp:           opts.comparator(),
		stats:          opts.stats(),
		isRmBorrowSucc: opts.isRmBorrowSucc,
	}
	tree.resetSentinel()
	return tree
}

// NewRBTree builds the iterative variant with parent links and a per tree
// sentinel.
func NewRBTree[K infra.OrderedKey, V any](opts ...RBTreeOption[K, V]) RBTree[K, V] {
	return newRBTree[K, V](buildRBTreeOptions[K, V](opts...))
}
