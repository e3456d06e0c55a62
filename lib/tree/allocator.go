package tree

import (
	"fmt"
	"sync"
)

// nodeAllocator hands out zeroed nodes. A tree is single writer, so the
// allocators are not required to be thread safe.
type nodeAllocator[T any] interface {
	alloc() (*T, error)
	free(obj *T)
	live() int64
}

// resetter is implemented by allocators that are able to drop their
// backing memory at once after a tree release.
type resetter interface {
	reset()
}

type allocStrategy uint8

const (
	heapNodes allocStrategy = iota
	pooledNodes
	arenaNodes
)

const defaultArenaChunkCap = 256

func newNodeAllocator[T any](strategy allocStrategy, chunkCap uint32, limit int64) nodeAllocator[T] {
	var a nodeAllocator[T]
	switch strategy {
	case pooledNodes:
		a = newPoolAllocator[T]()
	case arenaNodes:
		a = newArenaAllocator[T](chunkCap)
	default:
		a = &heapAllocator[T]{}
	}
	if limit > 0 {
		a = &boundedAllocator[T]{inner: a, limit: limit}
	}
	return a
}

type heapAllocator[T any] struct {
	liveNum int64
}

func (a *heapAllocator[T]) alloc() (*T, error) {
	a.liveNum++
	return new(T), nil
}

func (a *heapAllocator[T]) free(obj *T) {
	if obj == nil {
		return
	}
	*obj = *new(T) // drop key/value references
	a.liveNum--
}

func (a *heapAllocator[T]) live() int64 { return a.liveNum }

// poolAllocator recycles nodes through a sync.Pool.
type poolAllocator[T any] struct {
	p       *sync.Pool
	liveNum int64
}

func newPoolAllocator[T any]() *poolAllocator[T] {
	return &poolAllocator[T]{
		p: &sync.Pool{
			New: func() any { return new(T) },
		},
	}
}

func (a *poolAllocator[T]) alloc() (*T, error) {
	obj, ok := a.p.Get().(*T)
	if !ok || obj == nil {
		return nil, fmt.Errorf("%w: node pool returned a foreign object", ErrNodeAllocFailed)
	}
	a.liveNum++
	return obj, nil
}

func (a *poolAllocator[T]) free(obj *T) {
	if obj == nil {
		return
	}
	*obj = *new(T)
	a.p.Put(obj)
	a.liveNum--
}

func (a *poolAllocator[T]) live() int64 { return a.liveNum }

// arenaAllocator carves nodes out of fixed size chunks and reuses the
// freed ones before growing by another chunk.
type arenaAllocator[T any] struct {
	chunks   [][]T
	recycled []*T
	chunkCap int
	offset   int // next unused slot in the last chunk
	liveNum  int64
}

func newArenaAllocator[T any](chunkCap uint32) *arenaAllocator[T] {
	if chunkCap == 0 {
		chunkCap = defaultArenaChunkCap
	}
	return &arenaAllocator[T]{
		chunks:   make([][]T, 0, 8),
		recycled: make([]*T, 0, chunkCap>>2),
		chunkCap: int(chunkCap),
	}
}

func (a *arenaAllocator[T]) alloc() (*T, error) {
	a.liveNum++
	if l := len(a.recycled); l > 0 {
		obj := a.recycled[l-1]
		a.recycled[l-1] = nil
		a.recycled = a.recycled[:l-1]
		return obj, nil
	}
	if len(a.chunks) == 0 || a.offset >= a.chunkCap {
		a.chunks = append(a.chunks, make([]T, a.chunkCap))
		a.offset = 0
	}
	obj := &a.chunks[len(a.chunks)-1][a.offset]
	a.offset++
	return obj, nil
}

func (a *arenaAllocator[T]) free(obj *T) {
	if obj == nil {
		return
	}
	*obj = *new(T)
	a.recycled = append(a.recycled, obj)
	a.liveNum--
}

func (a *arenaAllocator[T]) live() int64 { return a.liveNum }

func (a *arenaAllocator[T]) chunkLen() int { return len(a.chunks) }

func (a *arenaAllocator[T]) reset() {
	if a.liveNum > 0 {
		// Nodes are still linked somewhere, keep their memory.
		return
	}
	clear(a.chunks)
	clear(a.recycled)
	a.chunks = a.chunks[:0]
	a.recycled = a.recycled[:0]
	a.offset = 0
}

// boundedAllocator fails once the number of live nodes reaches the limit.
type boundedAllocator[T any] struct {
	inner nodeAllocator[T]
	limit int64
}

func (a *boundedAllocator[T]) alloc() (*T, error) {
	if a.inner.live() >= a.limit {
		return nil, fmt.Errorf("%w: live nodes reach the limit %d", ErrNodeAllocFailed, a.limit)
	}
	return a.inner.alloc()
}

func (a *boundedAllocator[T]) free(obj *T) { a.inner.free(obj) }

func (a *boundedAllocator[T]) live() int64 { return a.inner.live() }

func (a *boundedAllocator[T]) reset() {
	if r, ok := a.inner.(resetter); ok {
		r.reset()
	}
}
