package xlog

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	antsv2 "github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestAntsXLogger_ParentLogLevelChanged(t *testing.T) {
	var (
		parentLogger XLogger      = nil
		logger       *AntsXLogger = nil
	)
	require.NotPanics(t, func() {
		logger.Printf("test %d", 123)
	})

	buf := &lockedBuffer{}
	parentLogger = NewXLogger(
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerEncoder(JSON),
		WithXLoggerWriter(zapcore.AddSync(buf)),
	)
	logger = NewAntsXLogger(parentLogger)

	parentLogger.IncreaseLogLevel(zapcore.FatalLevel)
	logger.Printf("test %d", 123)
	require.Empty(t, buf.String())

	parentLogger.IncreaseLogLevel(zapcore.DebugLevel)
	logger.Printf("test %d", 456)
	out := buf.String()
	require.Contains(t, out, `"msg":"test 456"`)
	require.Contains(t, out, `"component":"ants"`)
	require.NotContains(t, out, `"callAt"`)
}

func TestAntsXLogger_AntsPool(t *testing.T) {
	buf := &lockedBuffer{}
	parentLogger := NewXLogger(
		WithXLoggerLevel(LogLevelDebug),
		WithXLoggerEncoder(JSON),
		WithXLoggerWriter(zapcore.AddSync(buf)),
	)
	logger := NewAntsXLogger(parentLogger)

	p, err := antsv2.NewPool(10, antsv2.WithLogger(logger))
	require.NoError(t, err)
	defer p.Release()

	err = p.Submit(func() {
		panic("xlogger panic in ants pool")
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "xlogger panic in ants pool")
	}, time.Second, 10*time.Millisecond)
}

func TestAntsXLogger_RequiresXLogger(t *testing.T) {
	require.Panics(t, func() {
		NewAntsXLogger(nil)
	})
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
