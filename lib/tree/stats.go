package tree

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	RBTreeStatsName = "xrbtree/tree"
)

var (
	insertOutcomeAttrs = map[InsertOutcome]metric.MeasurementOption{
		Inserted:    metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.outcome", Inserted.String()))),
		Duplicate:   metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.outcome", Duplicate.String()))),
		AllocFailed: metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.outcome", AllocFailed.String()))),
	}
	eraseOutcomeAttrs = map[EraseOutcome]metric.MeasurementOption{
		Erased:   metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.outcome", Erased.String()))),
		NotFound: metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.outcome", NotFound.String()))),
	}
	rotateAttrs = map[RBDirection]metric.MeasurementOption{
		Left:  metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.rotate", Left.String()))),
		Right: metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.rotate", Right.String()))),
	}
	insertFixupAttr = metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.fixup", "insert")))
	eraseFixupAttr  = metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.fixup", "erase")))
)

// rbTreeStats methods are safe to call on a nil receiver, which is the
// stats disabled state.
type rbTreeStats struct {
	insertCount metric.Int64Counter
	eraseCount  metric.Int64Counter
	rotateCount metric.Int64Counter
	fixupSteps  metric.Int64Histogram
	size        metric.Int64UpDownCounter
}

func (stats *rbTreeStats) recordInsert(outcome InsertOutcome) {
	if stats == nil {
		return
	}
	stats.insertCount.Add(context.Background(), 1, insertOutcomeAttrs[outcome])
	if outcome == Inserted {
		stats.size.Add(context.Background(), 1)
	}
}

func (stats *rbTreeStats) recordErase(outcome EraseOutcome) {
	if stats == nil {
		return
	}
	stats.eraseCount.Add(context.Background(), 1, eraseOutcomeAttrs[outcome])
	if outcome == Erased {
		stats.size.Add(context.Background(), -1)
	}
}

func (stats *rbTreeStats) recordRelease(count int64) {
	if stats == nil || count <= 0 {
		return
	}
	stats.size.Add(context.Background(), -count)
}

func (stats *rbTreeStats) recordRotate(dir RBDirection) {
	if stats == nil {
		return
	}
	stats.rotateCount.Add(context.Background(), 1, rotateAttrs[dir])
}

func (stats *rbTreeStats) recordInsertFixup(steps int64) {
	if stats == nil {
		return
	}
	stats.fixupSteps.Record(context.Background(), steps, insertFixupAttr)
}

func (stats *rbTreeStats) recordEraseFixup(steps int64) {
	if stats == nil {
		return
	}
	stats.fixupSteps.Record(context.Background(), steps, eraseFixupAttr)
}

func newRBTreeStats(name string, mp metric.MeterProvider) *rbTreeStats {
	meterName := RBTreeStatsName
	if len(name) > 0 {
		meterName = fmt.Sprintf("%s/%s", RBTreeStatsName, name)
	}
	var meter metric.Meter
	if mp != nil {
		meter = mp.Meter(meterName)
	} else {
		meter = otel.Meter(meterName)
	}
	return &rbTreeStats{
		insertCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"rbtree.insert.count",
			metric.WithDescription("The number of insert calls by outcome."),
		)),
		eraseCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"rbtree.erase.count",
			metric.WithDescription("The number of erase calls by outcome."),
		)),
		rotateCount: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"rbtree.rotate.count",
			metric.WithDescription("The number of rotations by direction."),
		)),
		fixupSteps: lo.Must[metric.Int64Histogram](meter.Int64Histogram(
			"rbtree.fixup.steps",
			metric.WithDescription("The number of levels a fixup climbed after one mutation."),
		)),
		size: lo.Must[metric.Int64UpDownCounter](meter.Int64UpDownCounter(
			"rbtree.size",
			metric.WithDescription("The number of keys held by the tree."),
		)),
	}
}
