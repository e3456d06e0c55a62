package xlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AntsXLogger adapts an XLogger to ants.Logger. Pool messages (worker
// panics mostly) are logged at error level under the "ants" component.
type AntsXLogger struct {
	logger XLogger
}

func (l *AntsXLogger) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.logger.Logf(zapcore.ErrorLevel, format, args...)
}

func NewAntsXLogger(logger XLogger) *AntsXLogger {
	parent, ok := logger.(*xLogger)
	if !ok || parent == nil {
		panic("[xlog] ants logger requires a logger built by NewXLogger")
	}
	l := &xLogger{
		dynamicLevelEnabler: parent.dynamicLevelEnabler,
		core:                parent.core.rebuild(componentEncoderConfig(parent.lvlEnc, parent.tsEnc)),
		lvlEnc:              parent.lvlEnc,
		tsEnc:               parent.tsEnc,
		encoder:             parent.encoder,
		bannerOnce:          parent.bannerOnce,
	}
	l.logger.Store(parent.
		zap().
		Named("ants").
		WithOptions(zap.WrapCore(func(zapcore.Core) zapcore.Core {
			return l.core
		})),
	)
	return &AntsXLogger{
		logger: l,
	}
}
