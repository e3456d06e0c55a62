package driver

import (
	"context"
	"errors"
	"fmt"
	randv2 "math/rand/v2"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	antsv2 "github.com/panjf2000/ants/v2"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v3/process"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/benz9527/xrbtree/internal/config"
	"github.com/benz9527/xrbtree/lib/id"
	"github.com/benz9527/xrbtree/lib/tree"
	"github.com/benz9527/xrbtree/xlog"
)

var (
	ErrRoundMismatch  = errors.New("[driver] tree and reference set diverge")
	ErrHeightExceeded = errors.New("[driver] tree height exceeds the red-black bound")
)

// SoakReport aggregates every round of a soak run.
type SoakReport struct {
	Variant     string
	Alloc       string
	Workers     int
	Rounds      int
	Completed   int64
	Failed      int64
	Ops         int64
	Inserted    int64
	Duplicates  int64
	AllocFailed int64
	Erased      int64
	NotFound    int64
	Validations int64
	MaxHeight   int64
	Seed        uint64
	Elapsed     time.Duration
	RSS         uint64
}

func (r *SoakReport) RSSHuman() string {
	if r.RSS == 0 {
		return "n/a"
	}
	return humanize.IBytes(r.RSS)
}

func (r *SoakReport) OpsPerSecond() string {
	if r.Elapsed <= 0 {
		return "n/a"
	}
	return humanize.Commaf(float64(r.Ops) / r.Elapsed.Seconds())
}

type soakRound struct {
	id     uint64
	seed   uint64
	cfg    *config.Config
	mp     metric.MeterProvider
	report *SoakReport
	logger xlog.XLogger
}

// run owns its tree for the whole round, every tree has a single writer.
func (r *soakRound) run(ctx context.Context) error {
	name := fmt.Sprintf("round-%d", r.id)
	t := BuildTree(r.cfg.Tree, name, r.mp)
	defer t.Release()

	soak := r.cfg.Soak
	rng := randv2.New(randv2.NewPCG(r.seed, r.id))
	ref := make(map[int]struct{}, soak.Keys)
	var (
		inserted, duplicates, allocFailed int64
		erased, notFound, validations     int64
	)
	defer func() {
		atomic.AddInt64(&r.report.Inserted, inserted)
		atomic.AddInt64(&r.report.Duplicates, duplicates)
		atomic.AddInt64(&r.report.AllocFailed, allocFailed)
		atomic.AddInt64(&r.report.Erased, erased)
		atomic.AddInt64(&r.report.NotFound, notFound)
		atomic.AddInt64(&r.report.Validations, validations)
	}()

	for op := 1; op <= soak.Ops; op++ {
		if op&0xff == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		key := rng.IntN(soak.Keys)
		_, present := ref[key]
		// Inserts are favored so the tree keeps growing towards the key space.
		if rng.IntN(5) < 3 {
			outcome, err := t.Insert(key, key)
			switch {
			case outcome == tree.Inserted && !present:
				inserted++
				ref[key] = struct{}{}
			case outcome == tree.Duplicate && present:
				duplicates++
			case outcome == tree.AllocFailed && errors.Is(err, tree.ErrNodeAllocFailed):
				allocFailed++
			default:
				return fmt.Errorf("%w: %s: insert %d reports %s, present %v", ErrRoundMismatch, name, key, outcome, present)
			}
		} else {
			outcome := t.Erase(key)
			switch {
			case outcome == tree.Erased && present:
				erased++
				delete(ref, key)
			case outcome == tree.NotFound && !present:
				notFound++
			default:
				return fmt.Errorf("%w: %s: erase %d reports %s, present %v", ErrRoundMismatch, name, key, outcome, present)
			}
		}
		atomic.AddInt64(&r.report.Ops, 1)

		if soak.CheckEvery > 0 && op%soak.CheckEvery == 0 {
			validations++
			if err := tree.Validate[int, int](t); err != nil {
				return fmt.Errorf("%w: %s: op %d: %w", ErrTreeBroken, name, op, err)
			}
		}
	}

	validations++
	if err := tree.Validate[int, int](t); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrTreeBroken, name, err)
	}
	expected := lo.Keys(ref)
	slices.Sort(expected)
	if r.cfg.Tree.Desc {
		slices.Reverse(expected)
	}
	if !slices.Equal(expected, t.InOrder()) {
		return fmt.Errorf("%w: %s: inorder differs, %d keys expected, %d linked", ErrRoundMismatch, name, len(expected), t.Len())
	}
	height := tree.Height[int, int](t)
	if height > tree.MaxHeight(t.Len()) {
		return fmt.Errorf("%w: %s: height %d, len %d", ErrHeightExceeded, name, height, t.Len())
	}
	for {
		prev := atomic.LoadInt64(&r.report.MaxHeight)
		if int64(height) <= prev || atomic.CompareAndSwapInt64(&r.report.MaxHeight, prev, int64(height)) {
			break
		}
	}
	r.logger.Debug("round done",
		zap.Uint64("round", r.id),
		zap.Int64("len", t.Len()),
		zap.Int("height", height),
	)
	return nil
}

// RunSoak runs cfg.Soak.Rounds independent randomized rounds on an ants
// pool. Rounds not started yet are skipped once ctx is done. Every round
// failure is reported.
func RunSoak(ctx context.Context, cfg *config.Config, mp metric.MeterProvider, logger xlog.XLogger) (*SoakReport, error) {
	seed := cfg.Soak.Seed
	if seed == 0 {
		seed = randv2.Uint64()
	}
	report := &SoakReport{
		Variant: cfg.Tree.Variant,
		Alloc:   cfg.Tree.Alloc,
		Workers: cfg.Soak.Workers,
		Rounds:  cfg.Soak.Rounds,
		Seed:    seed,
	}
	logger = logger.Named("soak")

	pool, err := antsv2.NewPool(cfg.Soak.Workers, antsv2.WithLogger(xlog.NewAntsXLogger(logger)))
	if err != nil {
		return report, err
	}
	defer pool.Release()

	ids, err := id.MonotonicNonZeroID()
	if err != nil {
		return report, err
	}

	var (
		lock    sync.Mutex
		errs    error
		wg      sync.WaitGroup
		started = time.Now()
	)
	appendErr := func(err error) {
		lock.Lock()
		defer lock.Unlock()
		errs = multierr.Append(errs, err)
	}

	for i := 0; i < cfg.Soak.Rounds; i++ {
		if ctx.Err() != nil {
			break
		}
		round := &soakRound{
			id:     ids.Number(),
			seed:   seed,
			cfg:    cfg,
			mp:     mp,
			report: report,
			logger: logger,
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			if err := round.run(ctx); err != nil {
				atomic.AddInt64(&report.Failed, 1)
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					logger.Error(err, "round failed", zap.Uint64("round", round.id))
					appendErr(err)
				}
				return
			}
			atomic.AddInt64(&report.Completed, 1)
		}); err != nil {
			wg.Done()
			appendErr(err)
			break
		}
	}
	wg.Wait()
	report.Elapsed = time.Since(started)
	report.RSS = sampleRSS()

	if ctxErr := ctx.Err(); ctxErr != nil {
		errs = multierr.Append(errs, ctxErr)
	}
	logger.Info("soak finished",
		zap.Int64("completed", report.Completed),
		zap.Int64("failed", report.Failed),
		zap.Int64("ops", report.Ops),
		zap.Duration("elapsed", report.Elapsed),
		zap.String("rss", report.RSSHuman()),
	)
	return report, errs
}

func sampleRSS() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	mem, err := proc.MemoryInfo()
	if err != nil || mem == nil {
		return 0
	}
	return mem.RSS
}
