package driver

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/lib/tree"
	"github.com/benz9527/xrbtree/xlog"
)

var ErrTreeBroken = errors.New("[driver] red-black rules broken")

// DemoReport is the outcome of one demo run.
type DemoReport struct {
	Inserted    int
	Duplicates  int
	AllocFailed int
	Erased      int
	NotFound    int
	AfterInsert []int
	AfterErase  []int
	Len         int64
	Height      int
	MaxHeight   int
}

// RunDemo inserts then erases the given keys one by one and checks every
// red-black rule after each single operation. The key doubles as value.
func RunDemo(ctx context.Context, t tree.RBTree[int, int], inserts, erases []int, logger xlog.XLogger) (*DemoReport, error) {
	report := &DemoReport{}
	for _, key := range inserts {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome, err := t.Insert(key, key)
		switch outcome {
		case tree.Inserted:
			report.Inserted++
		case tree.Duplicate:
			report.Duplicates++
		case tree.AllocFailed:
			report.AllocFailed++
			logger.Error(err, "insert failed", zap.Int("key", key))
		}
		logger.Debug("insert", zap.Int("key", key), zap.Stringer("outcome", outcome), zap.Int64("len", t.Len()))
		if err := tree.Validate[int, int](t); err != nil {
			return report, fmt.Errorf("%w: after insert %d: %w", ErrTreeBroken, key, err)
		}
	}
	report.AfterInsert = t.InOrder()
	logger.Info("inserted", zap.Ints("inorder", report.AfterInsert))

	for _, key := range erases {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome := t.Erase(key)
		switch outcome {
		case tree.Erased:
			report.Erased++
		case tree.NotFound:
			report.NotFound++
		}
		logger.Debug("erase", zap.Int("key", key), zap.Stringer("outcome", outcome), zap.Int64("len", t.Len()))
		if err := tree.Validate[int, int](t); err != nil {
			return report, fmt.Errorf("%w: after erase %d: %w", ErrTreeBroken, key, err)
		}
	}
	report.AfterErase = t.InOrder()
	report.Len = t.Len()
	report.Height = tree.Height[int, int](t)
	report.MaxHeight = tree.MaxHeight(report.Len)
	logger.Info("erased",
		zap.Ints("inorder", report.AfterErase),
		zap.Int("height", report.Height),
		zap.Int("maxHeight", report.MaxHeight),
	)
	return report, nil
}
