package server

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger 初始化 zap 日志：写入本地滚动文件，同时输出到 console（可为 nil）
// filePath: 日志文件路径，如 "app.log"；为空时只写 console
func NewLogger(filePath string, console io.Writer) *zap.SugaredLogger {
	encCfg := zapcore.EncoderConfig{
		TimeKey:       "ts",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "caller",
		MessageKey:    "msg",
		StacktraceKey: "stack",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewConsoleEncoder(encCfg)

	var cores []zapcore.Core
	if filePath != "" {
		// 文件滚动策略：10MB 每文件，保留3个备份
		lj := &lumberjack.Logger{
			Filename:   filePath,
			MaxSize:    10, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   false,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(lj), zapcore.DebugLevel))
	}
	if console != nil {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(console), zapcore.InfoLevel))
	}
	if len(cores) == 0 {
		return zap.NewNop().Sugar()
	}

	// 添加调用者信息（文件:行号）
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar()
}

// SyncLogger 清理和同步缓冲
func SyncLogger(log *zap.SugaredLogger) {
	if log != nil {
		_ = log.Sync()
	}
}
