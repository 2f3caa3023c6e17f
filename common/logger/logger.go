package logger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var log *zap.Logger
var atomicLevel zap.AtomicLevel

// parseLevel 级别字符串转 zap 级别，认不出时回落 info
func parseLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	}
	return zapcore.InfoLevel, false
}

// InitLogger 初始化全局日志器。JSON 始终打 stdout，文件输出按环境变量可选：
// - LOG_LEVEL=debug|info|warn|error（默认 info）
// - LOG_TO_FILE=true 或设置 LOG_FILE / LOG_DIR 之一时写文件（默认 logs/ledger.log）
// - LOG_MAX_SIZE_MB=100、LOG_MAX_BACKUPS=7、LOG_MAX_DAYS=14、LOG_COMPRESS=true
func InitLogger() {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.LevelKey = "level"
	encoderConfig.NameKey = "logger"
	encoderConfig.CallerKey = "caller"
	encoderConfig.MessageKey = "msg"
	encoderConfig.StacktraceKey = "stacktrace"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	level, _ := parseLevel(os.Getenv("LOG_LEVEL"))
	atomicLevel = zap.NewAtomicLevelAt(level)

	enc := zapcore.NewJSONEncoder(encoderConfig)
	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stdout), atomicLevel),
	}

	logToFile := strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_TO_FILE")), "true")
	logFile := strings.TrimSpace(os.Getenv("LOG_FILE"))
	if dir := strings.TrimSpace(os.Getenv("LOG_DIR")); logFile == "" && dir != "" {
		logFile = filepath.Join(dir, "ledger.log")
	}
	if logToFile || logFile != "" {
		if logFile == "" {
			logFile = filepath.Join(".", "logs", "ledger.log")
		}
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			// 目录建不出来就只留 stdout，不拦启动
			_, _ = fmt.Fprintf(os.Stderr, "warning: failed to create log directory %s: %v\n", filepath.Dir(logFile), err)
		} else {
			lw := &lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    getenvInt("LOG_MAX_SIZE_MB", 100),
				MaxBackups: getenvInt("LOG_MAX_BACKUPS", 7),
				MaxAge:     getenvInt("LOG_MAX_DAYS", 14),
				Compress:   getenvBool("LOG_COMPRESS", true),
			}
			cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(lw), atomicLevel))
		}
	}

	log = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

func getenvBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	return def
}

func Info(msg string, fields ...zap.Field)   { log.Info(msg, fields...) }
func Error(msg string, fields ...zap.Field)  { log.Error(msg, fields...) }
func Warn(msg string, fields ...zap.Field)   { log.Warn(msg, fields...) }
func Debug(msg string, fields ...zap.Field)  { log.Debug(msg, fields...) }
func Fatalf(msg string, fields ...zap.Field) { log.Fatal(msg, fields...) }
func Sync()                                  { _ = log.Sync() }

// SetLevel 运行期调整日志级别，配置热更时调用
func SetLevel(level string) {
	if l, ok := parseLevel(level); ok {
		atomicLevel.SetLevel(l)
	}
}

// 带 trace_id 的变体：上下文里有就自动补字段
func fieldsWithTrace(ctx context.Context, fields []zap.Field) []zap.Field {
	if traceID := GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	return fields
}

func InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Info(msg, fieldsWithTrace(ctx, fields)...)
}
func ErrorCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Error(msg, fieldsWithTrace(ctx, fields)...)
}
func WarnCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Warn(msg, fieldsWithTrace(ctx, fields)...)
}
func DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	log.Debug(msg, fieldsWithTrace(ctx, fields)...)
}
