package xlog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// xLogCore keeps what it was built from, so a child logger is able to
// rebuild the core with another encoder config.
type xLogCore interface {
	zapcore.Core
	writeSyncer() zapcore.WriteSyncer
	rebuild(cfg zapcore.EncoderConfig) xLogCore
}

var _ xLogCore = (*consoleCore)(nil)

type consoleCore struct {
	lvlEnabler zapcore.LevelEnabler
	ws         zapcore.WriteSyncer
	enc        func(cfg zapcore.EncoderConfig) zapcore.Encoder
	core       zapcore.Core
}

func (cc *consoleCore) writeSyncer() zapcore.WriteSyncer     { return cc.ws }
func (cc *consoleCore) Enabled(lvl zapcore.Level) bool       { return cc.lvlEnabler.Enabled(lvl) }
func (cc *consoleCore) With(fields []zap.Field) zapcore.Core { return cc.core.With(fields) }
func (cc *consoleCore) Sync() error                          { return cc.core.Sync() }
func (cc *consoleCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if cc.Enabled(ent.Level) {
		return ce.AddCore(ent, cc)
	}
	return ce
}

func (cc *consoleCore) Write(ent zapcore.Entry, fields []zap.Field) error {
	return cc.core.Write(ent, fields)
}

func (cc *consoleCore) rebuild(cfg zapcore.EncoderConfig) xLogCore {
	return &consoleCore{
		lvlEnabler: cc.lvlEnabler,
		ws:         cc.ws,
		enc:        cc.enc,
		core:       zapcore.NewCore(cc.enc(cfg), cc.ws, cc.lvlEnabler),
	}
}

func defaultEncoderConfig(lvlEnc zapcore.LevelEncoder, tsEnc zapcore.TimeEncoder) zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:    "msg",
		LevelKey:      "lvl",
		EncodeLevel:   lvlEnc,
		TimeKey:       "ts",
		EncodeTime:    tsEnc,
		CallerKey:     "callAt",
		EncodeCaller:  zapcore.ShortCallerEncoder,
		FunctionKey:   "fn",
		NameKey:       "component",
		EncodeName:    zapcore.FullNameEncoder,
		StacktraceKey: coreKeyIgnored,
	}
}

// componentEncoderConfig drops caller and function keys, third party
// components log through adapters where the caller is meaningless.
func componentEncoderConfig(lvlEnc zapcore.LevelEncoder, tsEnc zapcore.TimeEncoder) zapcore.EncoderConfig {
	cfg := defaultEncoderConfig(lvlEnc, tsEnc)
	cfg.CallerKey = coreKeyIgnored
	cfg.FunctionKey = coreKeyIgnored
	return cfg
}

func newConsoleCore(
	lvlEnabler zapcore.LevelEnabler,
	encoder LogEncoderType,
	ws zapcore.WriteSyncer,
	lvlEnc zapcore.LevelEncoder,
	tsEnc zapcore.TimeEncoder,
) xLogCore {
	cc := &consoleCore{
		lvlEnabler: lvlEnabler,
		ws:         ws,
		enc:        getEncoderByType(encoder),
	}
	cc.core = zapcore.NewCore(cc.enc(defaultEncoderConfig(lvlEnc, tsEnc)), cc.ws, cc.lvlEnabler)
	return cc
}
