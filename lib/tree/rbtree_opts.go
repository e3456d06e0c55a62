package tree

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xrbtree/lib/infra"
)

type rbTreeOptions[K infra.OrderedKey, V any] struct {
	kcmp           infra.OrderedKeyComparator[K]
	isDesc         bool
	isRmBorrowSucc bool
	strategy       allocStrategy
	arenaChunkCap  uint32
	nodeLimit      int64
	isStatsEnabled bool
	statsName      string
	meterProvider  metric.MeterProvider
}

func (opts *rbTreeOptions[K, V]) comparator() infra.OrderedKeyComparator[K] {
	if opts.kcmp != nil {
		return opts.kcmp
	}
	if opts.isDesc {
		return infra.DescComparator[K]
	}
	return infra.AscComparator[K]
}

func (opts *rbTreeOptions[K, V]) stats() *rbTreeStats {
	if !opts.isStatsEnabled {
		return nil
	}
	return newRBTreeStats(opts.statsName, opts.meterProvider)
}

func buildRBTreeOptions[K infra.OrderedKey, V any](opts ...RBTreeOption[K, V]) *rbTreeOptions[K, V] {
	o := &rbTreeOptions[K, V]{
		strategy: heapNodes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

type RBTreeOption[K infra.OrderedKey, V any] func(*rbTreeOptions[K, V])

func WithRBTreeDesc[K infra.OrderedKey, V any]() RBTreeOption[K, V] {
	return func(opts *rbTreeOptions[K, V]) {
		opts.isDesc = true
	}
}

// WithRBTreeComparator overrides the natural order. It takes precedence
// over WithRBTreeDesc.
func WithRBTreeComparator[K infra.OrderedKey, V any](cmp infra.OrderedKeyComparator[K]) RBTreeOption[K, V] {
	return func(opts *rbTreeOptions[K, V]) {
		opts.kcmp = cmp
	}
}

// WithRBTreeRemoveBorrowSucc makes a two children removal borrow the
// in-order successor instead of the predecessor.
func WithRBTreeRemoveBorrowSucc[K infra.OrderedKey, V any]() RBTreeOption[K, V] {
	return func(opts *rbTreeOptions[K, V]) {
		opts.isRmBorrowSucc = true
	}
}

func WithRBTreePooledNodes[K infra.OrderedKey, V any]() RBTreeOption[K, V] {
	return func(opts *rbTreeOptions[K, V]) {
		opts.strategy = pooledNodes
	}
}

func WithRBTreeArenaNodes[K infra.OrderedKey, V any](capPerChunk uint32) RBTreeOption[K, V] {
	return func(opts *rbTreeOptions[K, V]) {
		opts.strategy = arenaNodes
		opts.arenaChunkCap = capPerChunk
	}
}

// WithRBTreeNodeLimit bounds the number of live nodes. Inserting past the
// limit reports AllocFailed with ErrNodeAllocFailed.
func WithRBTreeNodeLimit[K infra.OrderedKey, V any](limit int64) RBTreeOption[K, V] {
	return func(opts *rbTreeOptions[K, V]) {
		opts.nodeLimit = limit
	}
}

// WithRBTreeStats enables otel metrics. The global meter provider is used
// if none is given.
func WithRBTreeStats[K infra.OrderedKey, V any](name string, mp ...metric.MeterProvider) RBTreeOption[K, V] {
	return func(opts *rbTreeOptions[K, V]) {
		opts.isStatsEnabled = true
		opts.statsName = name
		if len(mp) > 0 {
			opts.meterProvider = mp[0]
		}
	}
}
