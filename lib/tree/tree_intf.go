package tree

import (
	"errors"

	"github.com/benz9527/xrbtree/lib/infra"
)

// go install golang.org/x/tools/cmd/stringer@latest

//go:generate stringer -type=RBColor
type RBColor uint8

const (
	Black RBColor = iota
	Red
)

//go:generate stringer -type=RBDirection
type RBDirection int8

const (
	Left RBDirection = -1 + iota
	Root
	Right
)

//go:generate stringer -type=InsertOutcome
type InsertOutcome uint8

const (
	Inserted InsertOutcome = iota
	Duplicate
	AllocFailed
)

//go:generate stringer -type=EraseOutcome
type EraseOutcome uint8

const (
	Erased EraseOutcome = iota
	NotFound
)

var (
	// ErrNodeAllocFailed is returned with the AllocFailed outcome. The tree
	// is left untouched.
	ErrNodeAllocFailed = errors.New("[rbtree] node allocation failed")

	ErrRBTreeRedViolation   = errors.New("rbtree red violation")
	ErrRBTreeBlackViolation = errors.New("rbtree black violation")
	ErrRBTreeRootViolation  = errors.New("rbtree root violation")
	ErrRBTreeOrderViolation = errors.New("rbtree order violation")
)

// RBNode is a read-only view of a tree node. Absent children are reported
// as nil, never as a sentinel.
type RBNode[K infra.OrderedKey, V any] interface {
	Key() K
	Val() V
	Color() RBColor
	Left() RBNode[K, V]
	Right() RBNode[K, V]
}

// RBTree is a single writer ordered container. Concurrent mutation must be
// serialized by the caller, see NewSyncRBTree.
type RBTree[K infra.OrderedKey, V any] interface {
	Len() int64
	Root() RBNode[K, V]
	// Insert rejects an existing key with the Duplicate outcome and keeps
	// the stored value.
	Insert(key K, val V) (InsertOutcome, error)
	Erase(key K) EraseOutcome
	// RemoveMin returns a detached copy of the removed minimum.
	RemoveMin() (RBNode[K, V], bool)
	Search(key K) (RBNode[K, V], bool)
	InOrder() []K
	Foreach(action func(idx int64, color RBColor, key K, val V) bool)
	// Release destroys the tree and hands every node back to its allocator.
	Release()
}

// keyComparable is implemented by both variants, so validators are able
// to check the order with the tree's own comparator.
type keyComparable[K infra.OrderedKey] interface {
	keyCompare(k1, k2 K) int64
}
