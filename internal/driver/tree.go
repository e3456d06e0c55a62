// Package driver runs the demo and soak workloads against the trees.
package driver

import (
	"go.opentelemetry.io/otel/metric"

	"github.com/benz9527/xrbtree/internal/config"
	"github.com/benz9527/xrbtree/lib/tree"
)

// BuildTree maps the tree section onto tree options. Stats are recorded
// only when mp is set.
func BuildTree(cfg config.TreeConfig, name string, mp metric.MeterProvider) tree.RBTree[int, int] {
	opts := make([]tree.RBTreeOption[int, int], 0, 6)
	if cfg.Desc {
		opts = append(opts, tree.WithRBTreeDesc[int, int]())
	}
	if cfg.Borrow == config.BorrowSucc {
		opts = append(opts, tree.WithRBTreeRemoveBorrowSucc[int, int]())
	}
	switch cfg.Alloc {
	case config.AllocPool:
		opts = append(opts, tree.WithRBTreePooledNodes[int, int]())
	case config.AllocArena:
		opts = append(opts, tree.WithRBTreeArenaNodes[int, int](cfg.ArenaChunkCap))
	default:
	}
	if cfg.NodeLimit > 0 {
		opts = append(opts, tree.WithRBTreeNodeLimit[int, int](cfg.NodeLimit))
	}
	if mp != nil {
		opts = append(opts, tree.WithRBTreeStats[int, int](name, mp))
	}

	var t tree.RBTree[int, int]
	if cfg.Variant == config.VariantRecursive {
		t = tree.NewRecursiveRBTree[int, int](opts...)
	} else {
		t = tree.NewRBTree[int, int](opts...)
	}
	if cfg.Sync {
		t = tree.NewSyncRBTree[int, int](t)
	}
	return t
}
