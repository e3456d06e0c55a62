package tree

import (
	"sync"

	"github.com/benz9527/xrbtree/lib/infra"
)

var _ RBTree[int, struct{}] = (*syncRBTree[int, struct{}])(nil)

// syncRBTree serializes writers and lets readers share the lock. Nodes
// returned by Root and Search are only stable while no writer runs.
type syncRBTree[K infra.OrderedKey, V any] struct {
	lock sync.RWMutex
	tree RBTree[K, V]
}

func (t *syncRBTree[K, V]) keyCompare(k1, k2 K) int64 {
	if kc, ok := t.tree.(keyComparable[K]); ok {
		return kc.keyCompare(k1, k2)
	}
	return infra.AscComparator[K](k1, k2)
}

func (t *syncRBTree[K, V]) Len() int64 {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Len()
}

func (t *syncRBTree[K, V]) Root() RBNode[K, V] {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Root()
}

func (t *syncRBTree[K, V]) Insert(key K, val V) (InsertOutcome, error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.Insert(key, val)
}

func (t *syncRBTree[K, V]) Erase(key K) EraseOutcome {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.Erase(key)
}

func (t *syncRBTree[K, V]) RemoveMin() (RBNode[K, V], bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.tree.RemoveMin()
}

func (t *syncRBTree[K, V]) Search(key K) (RBNode[K, V], bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Search(key)
}

func (t *syncRBTree[K, V]) InOrder() []K {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.InOrder()
}

// Foreach holds the read lock for the whole walk, the action must not
// mutate the tree.
func (t *syncRBTree[K, V]) Foreach(action func(idx int64, color RBColor, key K, val V) bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	t.tree.Foreach(action)
}

func (t *syncRBTree[K, V]) Release() {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.tree.Release()
}

// Validate checks the wrapped tree under the read lock.
func (t *syncRBTree[K, V]) Validate() error {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return Validate[K, V](t.tree)
}

// NewSyncRBTree wraps a tree with a read write lock. The wrapped tree must
// not be used directly afterwards.
func NewSyncRBTree[K infra.OrderedKey, V any](tree RBTree[K, V]) RBTree[K, V] {
	if st, ok := tree.(*syncRBTree[K, V]); ok {
		return st
	}
	return &syncRBTree[K, V]{tree: tree}
}
