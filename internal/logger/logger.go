package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Logger is a leveled key/value logger backed by zap.
type Logger struct {
	sugar  *zap.SugaredLogger
	redact bool
	salt   string
}

// New builds a logger for the given mode ("dev" or "prod").
// Redaction of secrets and learner identifiers follows CONCEPTREE_LOG_REDACTION.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	zl, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build zap logger: %w", err)
	}
	return &Logger{
		sugar:  zl.Sugar(),
		redact: redactionFromEnv(),
		salt:   strings.TrimSpace(os.Getenv("CONCEPTREE_LOG_HASH_SALT")),
	}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

func (l *Logger) Debug(msg string, kv ...any) { l.sugar.Debugw(msg, l.sanitize(kv)...) }
func (l *Logger) Info(msg string, kv ...any)  { l.sugar.Infow(msg, l.sanitize(kv)...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.sugar.Warnw(msg, l.sanitize(kv)...) }
func (l *Logger) Error(msg string, kv ...any) { l.sugar.Errorw(msg, l.sanitize(kv)...) }

// With returns a child logger that always carries the given key/value pairs.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{
		sugar:  l.sugar.With(l.sanitize(kv)...),
		redact: l.redact,
		salt:   l.salt,
	}
}

func (l *Logger) sanitize(kv []any) []any {
	if !l.redact || len(kv) == 0 {
		return kv
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, kv[i])
			break
		}
		key := fmt.Sprint(kv[i])
		out = append(out, key, l.sanitizeValue(strings.ToLower(key), kv[i+1]))
	}
	return out
}

func (l *Logger) sanitizeValue(key string, val any) any {
	switch {
	case strings.Contains(key, "api_key"),
		strings.Contains(key, "apikey"),
		strings.Contains(key, "token"),
		strings.Contains(key, "secret"),
		strings.Contains(key, "password"):
		return "[REDACTED]"
	case strings.Contains(key, "learner_id"):
		return l.hash(fmt.Sprint(val))
	}
	return val
}

func (l *Logger) hash(raw string) string {
	if raw == "" {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(l.salt))
	h.Write([]byte(raw))
	return "hash:" + hex.EncodeToString(h.Sum(nil))[:12]
}

func redactionFromEnv() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("CONCEPTREE_LOG_REDACTION"))) {
	case "0", "false", "no", "off":
		return false
	default:
		return true
	}
}
