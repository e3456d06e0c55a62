package tree

import (
	"sync/atomic"

	"github.com/benz9527/xrbtree/lib/infra"
)

var _ RBTree[int, struct{}] = (*recRBTree[int, struct{}])(nil)

// recNode has no parent link. A nil child is the empty subtree and is
// black, there is no shared nil node to clobber.
type recNode[K infra.OrderedKey, V any] struct {
	left  *recNode[K, V]
	right *recNode[K, V]
	key   K
	val   V
	color RBColor
}

func (node *recNode[K, V]) Color() RBColor {
	return node.color
}

func (node *recNode[K, V]) Key() K {
	return node.key
}

func (node *recNode[K, V]) Val() V {
	return node.val
}

func (node *recNode[K, V]) Left() RBNode[K, V] {
	if node == nil || node.left == nil {
		return nil
	}
	return node.left
}

func (node *recNode[K, V]) Right() RBNode[K, V] {
	if node == nil || node.right == nil {
		return nil
	}
	return node.right
}

func (node *recNode[K, V]) isRed() bool {
	return node != nil && node.color == Red
}

func (node *recNode[K, V]) isBlack() bool {
	return !node.isRed()
}

func (node *recNode[K, V]) hasRedChild() bool {
	return node != nil && (node.left.isRed() || node.right.isRed())
}

func (node *recNode[K, V]) maximum() *recNode[K, V] {
	aux := node
	for ; aux != nil && aux.right != nil; aux = aux.right {
	}
	return aux
}

func (node *recNode[K, V]) minimum() *recNode[K, V] {
	aux := node
	for ; aux != nil && aux.left != nil; aux = aux.left {
	}
	return aux
}

// recRBTree rebalances while the recursion unwinds. Every step returns
// the (possibly rotated) subtree root and the caller relinks it.
type recRBTree[K infra.OrderedKey, V any] struct {
	root           *recNode[K, V]
	alloc          nodeAllocator[recNode[K, V]]
	kcmp           infra.OrderedKeyComparator[K]
	stats          *rbTreeStats
	count          int64
	fixups         int64 // levels rebalanced by the running mutation
	isRmBorrowSucc bool
}

func (tree *recRBTree[K, V]) keyCompare(k1, k2 K) int64 {
	return tree.kcmp(k1, k2)
}

func (tree *recRBTree[K, V]) Len() int64 {
	return atomic.LoadInt64(&tree.count)
}

func (tree *recRBTree[K, V]) Root() RBNode[K, V] {
	if tree.root == nil {
		return nil
	}
	return tree.root
}

/*
	  X                         S
	 / \     leftRotate(X)     / \
	L   S    ============>    X   Sd
	   / \                   / \
	 Sc   Sd                L   Sc
*/
func (tree *recRBTree[K, V]) leftRotate(x *recNode[K, V]) *recNode[K, V] {
	if x == nil || x.right == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] left rotate node x is nil or x.right is nil")
	}
	y := x.right
	x.right, y.left = y.left, x
	tree.stats.recordRotate(Left)
	return y
}

/*
	    X                     L
	   / \   rightRotate(X)  / \
	  L   S  ============>  Lc  X
	 / \                      / \
	Lc  Ld                   Ld  S
*/
func (tree *recRBTree[K, V]) rightRotate(x *recNode[K, V]) *recNode[K, V] {
	if x == nil || x.left == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] right rotate node x is nil or x.left is nil")
	}
	y := x.left
	x.left, y.right = y.right, x
	tree.stats.recordRotate(Right)
	return y
}

/*
Insert fixup, looking down two levels from X.

<X> is a RED node.
[X] is a BLACK node (or NIL).

im1: Both children of X are red. Push the red up, no matter whether a
red grandchild exists. The black height is unchanged, the conflict (if
any) moves up to X and its parent.

	    [X]             <X>
	    / \             / \
	  <L> <R>  ====>  [L] [R]

im2: Only one child C is red and it has a red child. Rotate C once if the
red grandchild is the inner one, then rotate X toward the other side. The
rising node is painted red and both of its children black.

	      [X]                <L>                <L>
	      / \   r-rotate(X)  / \    repaint     / \
	    <L> [R] ==========> <G> [X]  =====>   [G] [X]
	    /                         \                 \
	  <G>                         [R]               [R]

The risen red node may conflict with a red parent. That is solved one
level above, and the root is painted black at last.
*/
func (tree *recRBTree[K, V]) insertMaintain(x *recNode[K, V]) *recNode[K, V] {
	if !x.hasRedChild() {
		return x
	}

	if /* im1 */ x.left.isRed() && x.right.isRed() {
		x.color = Red
		x.left.color, x.right.color = Black, Black
		tree.fixups++
		return x
	}

	if /* im2 left */ x.left.isRed() && x.left.hasRedChild() {
		if x.left.right.isRed() {
			x.left = tree.leftRotate(x.left)
		}
		x = tree.rightRotate(x)
	} else if /* im2 right */ x.right.isRed() && x.right.hasRedChild() {
		if x.right.left.isRed() {
			x.right = tree.rightRotate(x.right)
		}
		x = tree.leftRotate(x)
	} else {
		return x
	}

	x.color = Red
	x.left.color, x.right.color = Black, Black
	tree.fixups++
	return x
}

// insert returns the new subtree root. Nothing is relinked or repainted
// unless a node has been attached below.
func (tree *recRBTree[K, V]) insert(x *recNode[K, V], key K, val V) (*recNode[K, V], InsertOutcome, error) {
	if x == nil {
		z, err := tree.alloc.alloc()
		if err != nil {
			return nil, AllocFailed, err
		}
		z.key, z.val = key, val
		z.color = Red
		return z, Inserted, nil
	}

	res := tree.keyCompare(key, x.key)
	if /* equal */ res == 0 {
		return x, Duplicate, nil
	}

	var (
		child   *recNode[K, V]
		outcome InsertOutcome
		err     error
	)
	if /* less */ res < 0 {
		if child, outcome, err = tree.insert(x.left, key, val); outcome != Inserted {
			return x, outcome, err
		}
		x.left = child
	} else /* greater */ {
		if child, outcome, err = tree.insert(x.right, key, val); outcome != Inserted {
			return x, outcome, err
		}
		x.right = child
	}
	return tree.insertMaintain(x), Inserted, nil
}

func (tree *recRBTree[K, V]) Insert(key K, val V) (InsertOutcome, error) {
	tree.fixups = 0
	root, outcome, err := tree.insert(tree.root, key, val)
	tree.stats.recordInsert(outcome)
	if outcome != Inserted {
		return outcome, err
	}
	tree.root = root
	tree.root.color = Black
	atomic.AddInt64(&tree.count, 1)
	tree.stats.recordInsertFixup(tree.fixups)
	return Inserted, nil
}

/*
Remove fixup for the left child X of P, where X's subtree is one black
short (double black). The right child case is the mirror image.

<X> is a RED node.
[X] is a BLACK node (or NIL).
{X} is either a RED node or a BLACK node.

rmR: Sibling S is red, P must be black. Rotate P toward X, S becomes
black and P red. Then fix P again, its new sibling is black.

	  [P]                   [S]
	  / \    l-rotate(P)    / \
	[X] <S>  ==========>  <P> [Sd]
	    / \               / \
	 [Sc] [Sd]          [X] [Sc]

rmB: Sibling S and both of its children are black. Take one black from X
and S (S turns red) and add one to P. A red P turns black and the
deficit is gone, a black P carries the deficit up to its parent.

rmD: Sibling S is black, only the near child Sc is red. Rotate S away
from X, Sc takes S's color and S turns red. Enter rmC.

rmC: Sibling S is black, the far child Sd is red. Rotate P toward X, S
takes P's color, P and Sd turn black. The deficit is discharged.

	  {P}                   {S}
	  / \    l-rotate(P)    / \
	[X] [S]  ==========>  [P] [Sd]
	    / \               / \
	 [Sc] <Sd>          [X] [Sc]
*/
func (tree *recRBTree[K, V]) fixLeftDeficit(p *recNode[K, V]) (*recNode[K, V], bool) {
	s := p.right
	if s == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] double black node without sibling")
	}

	if /* rmR */ s.isRed() {
		top := tree.leftRotate(p)
		top.color, p.color = Black, Red
		var deficit bool
		top.left, deficit = tree.fixLeftDeficit(p)
		return top, deficit
	}

	if /* rmB */ s.left.isBlack() && s.right.isBlack() {
		s.color = Red
		if p.isRed() {
			p.color = Black
			return p, false
		}
		return p, true
	}

	if /* rmD */ s.right.isBlack() {
		p.right = tree.rightRotate(s)
		p.right.color, s.color = s.color, Red
	}

	/* rmC */
	color := p.color
	top := tree.leftRotate(p)
	top.color = color
	top.left.color, top.right.color = Black, Black
	return top, false
}

func (tree *recRBTree[K, V]) fixRightDeficit(p *recNode[K, V]) (*recNode[K, V], bool) {
	s := p.left
	if s == nil {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] double black node without sibling")
	}

	if /* rmR */ s.isRed() {
		top := tree.rightRotate(p)
		top.color, p.color = Black, Red
		var deficit bool
		top.right, deficit = tree.fixRightDeficit(p)
		return top, deficit
	}

	if /* rmB */ s.left.isBlack() && s.right.isBlack() {
		s.color = Red
		if p.isRed() {
			p.color = Black
			return p, false
		}
		return p, true
	}

	if /* rmD */ s.left.isBlack() {
		p.left = tree.leftRotate(s)
		p.left.color, s.color = s.color, Red
	}

	/* rmC */
	color := p.color
	top := tree.rightRotate(p)
	top.color = color
	top.left.color, top.right.color = Black, Black
	return top, false
}

/*
erase returns the new subtree root, whether the key was found, and
whether the subtree lost one black unit.

r1: X has two children. Copy the pred's (or succ's) key & value into X
and erase the pred's key from the left (or right) subtree. Only that
subtree is touched afterwards.

r2: X has at most one child C. C takes X's place.
(1) X is red, nothing lost.
(2) X is black and C is red, C turns black.
(3) X is black and C is nil, the deficit goes up.
*/
func (tree *recRBTree[K, V]) erase(x *recNode[K, V], key K) (*recNode[K, V], bool, bool) {
	if x == nil {
		return nil, false, false
	}

	var found, deficit bool
	res := tree.keyCompare(key, x.key)
	if res == 0 && x.left != nil && x.right != nil {
		// r1
		if tree.isRmBorrowSucc {
			succ := x.right.minimum()
			x.key, x.val = succ.key, succ.val
			res = 1
		} else {
			pred := x.left.maximum()
			x.key, x.val = pred.key, pred.val
			res = -1
		}
		key = x.key
	}

	switch {
	case res < 0:
		if x.left, found, deficit = tree.erase(x.left, key); !deficit {
			return x, found, false
		}
		tree.fixups++
		x, deficit = tree.fixLeftDeficit(x)
		return x, found, deficit
	case res > 0:
		if x.right, found, deficit = tree.erase(x.right, key); !deficit {
			return x, found, false
		}
		tree.fixups++
		x, deficit = tree.fixRightDeficit(x)
		return x, found, deficit
	default:
	}

	// r2
	child := x.left
	if child == nil {
		child = x.right
	}
	deficit = x.isBlack()
	if deficit && child.isRed() {
		child.color = Black
		deficit = false
	}
	tree.alloc.free(x)
	return child, true, deficit
}

func (tree *recRBTree[K, V]) Erase(key K) EraseOutcome {
	tree.fixups = 0
	root, found, _ := tree.erase(tree.root, key)
	if !found {
		tree.stats.recordErase(NotFound)
		return NotFound
	}
	// A deficit left at the root is not observable.
	tree.root = root
	if tree.root != nil {
		tree.root.color = Black
	}
	atomic.AddInt64(&tree.count, -1)
	tree.stats.recordErase(Erased)
	tree.stats.recordEraseFixup(tree.fixups)
	return Erased
}

func (tree *recRBTree[K, V]) RemoveMin() (RBNode[K, V], bool) {
	if tree.root == nil {
		return nil, false
	}
	_min := tree.root.minimum()
	res := &recNode[K, V]{
		key:   _min.key,
		val:   _min.val,
		color: _min.color,
	}
	if tree.Erase(res.key) != Erased {
		// impossible run to here
		panic( /* debug assertion */ "[rbtree] minimum key is not erasable")
	}
	return res, true
}

func (tree *recRBTree[K, V]) Search(key K) (RBNode[K, V], bool) {
	for aux := tree.root; aux != nil; {
		res := tree.keyCompare(key, aux.key)
		if res == 0 {
			return aux, true
		} else if res > 0 {
			aux = aux.right
		} else {
			aux = aux.left
		}
	}
	return nil, false
}

func (tree *recRBTree[K, V]) inorder(x *recNode[K, V], idx *int64, action func(idx int64, color RBColor, key K, val V) bool) bool {
	if x == nil {
		return true
	}
	if !tree.inorder(x.left, idx, action) {
		return false
	}
	if !action(*idx, x.color, x.key, x.val) {
		return false
	}
	*idx++
	return tree.inorder(x.right, idx, action)
}

func (tree *recRBTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	idx := int64(0)
	tree.inorder(tree.root, &idx, action)
}

func (tree *recRBTree[K, V]) InOrder() []K {
	keys := make([]K, 0, tree.Len())
	tree.Foreach(func(_ int64, _ RBColor, key K, _ V) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// destroy frees the subtree in post order.
func (tree *recRBTree[K, V]) destroy(x *recNode[K, V]) {
	if x == nil {
		return
	}
	tree.destroy(x.left)
	tree.destroy(x.right)
	tree.alloc.free(x)
}

func (tree *recRBTree[K, V]) Release() {
	size := atomic.LoadInt64(&tree.count)
	root := tree.root
	tree.root = nil
	atomic.StoreInt64(&tree.count, 0)
	tree.stats.recordRelease(size)
	tree.destroy(root)
	if r, ok := tree.alloc.(resetter); ok {
		r.reset()
	}
}

func newRecRBTree[K infra.OrderedKey, V any](opts *rbTreeOptions[K, V]) *recRBTree[K, V] {
	return &recRBTree[K, V]{
		alloc:          newNodeAllocator[recNode[K, V]](opts.strategy, opts.arenaChunkCap, opts.nodeLimit),
		kcmp:           opts.comparator(),
		stats:          opts.stats(),
		isRmBorrowSucc: opts.isRmBorrowSucc,
	}
}

// NewRecursiveRBTree builds the parentless variant whose fixups run while
// the recursion unwinds.
func NewRecursiveRBTree[K infra.OrderedKey, V any](opts ...RBTreeOption[K, V]) RBTree[K, V] {
	return newRecRBTree[K, V](buildRBTreeOptions[K, V](opts...))
}
