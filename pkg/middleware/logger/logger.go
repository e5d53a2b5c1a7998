package logger

import (
	"context"
	"os"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ServiceEnv struct {
	Platform string
	Service  string
	Env      string
}

type LogConfig struct {
	Path       string
	LogLevel   string
	ServiceEnv ServiceEnv
}

var (
	base   = otelzap.New(zap.NewNop())
	sugar  = base.Sugar()
	rotate *lumberjack.Logger
)

func Init(conf *LogConfig) {
	level, err := zapcore.ParseLevel(conf.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encConf := zap.NewProductionEncoderConfig()
	encConf.TimeKey = "timestamp"
	encConf.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encConf), zapcore.Lock(os.Stdout), level),
	}
	if conf.Path != "" {
		rotate = &lumberjack.Logger{
			Filename:   conf.Path,
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encConf), zapcore.AddSync(rotate), level))
	}

	l := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddCallerSkip(2),
		zap.Fields(
			zap.String("platform", conf.ServiceEnv.Platform),
			zap.String("service", conf.ServiceEnv.Service),
			zap.String("env", conf.ServiceEnv.Env),
		))

	base = otelzap.New(l, otelzap.WithMinLevel(level))
	sugar = base.Sugar()
}

func Close() {
	_ = base.Sync()
	if rotate != nil {
		_ = rotate.Close()
	}
}

func Debugf(ctx context.Context, format string, args ...any) {
	sugar.Ctx(ctx).Debugf(format, args...)
}

func Infof(ctx context.Context, format string, args ...any) {
	sugar.Ctx(ctx).Infof(format, args...)
}

func Warnf(ctx context.Context, format string, args ...any) {
	sugar.Ctx(ctx).Warnf(format, args...)
}

func Errorf(ctx context.Context, format string, args ...any) {
	sugar.Ctx(ctx).Errorf(format, args...)
}

func Fatalf(ctx context.Context, format string, args ...any) {
	sugar.Ctx(ctx).Errorf(format, args...)
	Close()
	os.Exit(1)
}
