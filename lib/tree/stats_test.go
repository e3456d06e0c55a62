package tree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectRBTreeMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func findRBTreeMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}
	return nil
}

func sumByAttr(t *testing.T, m *metricdata.Metrics, key, val string) int64 {
	t.Helper()
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	total := int64(0)
	for _, dp := range sum.DataPoints {
		if len(key) == 0 {
			total += dp.Value
			continue
		}
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == val {
			total += dp.Value
		}
	}
	return total
}

func TestRBTreeStats(t *testing.T) {
	testcases := []struct {
		name    string
		newTree func(opts ...RBTreeOption[int, int]) RBTree[int, int]
	}{
		{name: "iterative", newTree: NewRBTree[int, int]},
		{name: "recursive", newTree: NewRecursiveRBTree[int, int]},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(tt *testing.T) {
			reader := sdkmetric.NewManualReader()
			mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
			tree := tc.newTree(
				WithRBTreeStats[int, int]("test", mp),
				WithRBTreeNodeLimit[int, int](64),
			)
			for i := 0; i < 64; i++ {
				_, _ = tree.Insert(i, i)
			}
			_, _ = tree.Insert(1, 1)
			_, _ = tree.Insert(100, 1)
			for i := 0; i < 10; i++ {
				tree.Erase(i)
			}
			tree.Erase(1000)
			_, _ = tree.RemoveMin()

			rm := collectRBTreeMetrics(tt, reader)
			require.Equal(tt, RBTreeStatsName+"/test", rm.ScopeMetrics[0].Scope.Name)

			inserts := findRBTreeMetric(rm, "rbtree.insert.count")
			require.Equal(tt, int64(64), sumByAttr(tt, inserts, "rbtree.outcome", Inserted.String()))
			require.Equal(tt, int64(1), sumByAttr(tt, inserts, "rbtree.outcome", Duplicate.String()))
			require.Equal(tt, int64(1), sumByAttr(tt, inserts, "rbtree.outcome", AllocFailed.String()))

			erases := findRBTreeMetric(rm, "rbtree.erase.count")
			require.Equal(tt, int64(11), sumByAttr(tt, erases, "rbtree.outcome", Erased.String()))
			require.Equal(tt, int64(1), sumByAttr(tt, erases, "rbtree.outcome", NotFound.String()))

			rotates := findRBTreeMetric(rm, "rbtree.rotate.count")
			require.Greater(tt, sumByAttr(tt, rotates, "", ""), int64(0))

			size := findRBTreeMetric(rm, "rbtree.size")
			require.Equal(tt, tree.Len(), sumByAttr(tt, size, "", ""))

			fixups := findRBTreeMetric(rm, "rbtree.fixup.steps")
			require.NotNil(tt, fixups)
			hist, ok := fixups.Data.(metricdata.Histogram[int64])
			require.True(tt, ok)
			require.NotEmpty(tt, hist.DataPoints)

			tree.Release()
			rm = collectRBTreeMetrics(tt, reader)
			require.Equal(tt, int64(0), sumByAttr(tt, findRBTreeMetric(rm, "rbtree.size"), "", ""))
		})
	}
}

func TestRBTreeStats_NilSafe(t *testing.T) {
	var stats *rbTreeStats
	require.NotPanics(t, func() {
		stats.recordInsert(Inserted)
		stats.recordErase(Erased)
		stats.recordRelease(10)
		stats.recordRotate(Left)
		stats.recordInsertFixup(1)
		stats.recordEraseFixup(1)
	})
}
