package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Production config emits JSON; development
// config emits console output with stack traces on warnings.
func New(level string, development bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	config := zap.NewProductionConfig()
	if development {
		config = zap.NewDevelopmentConfig()
	}
	config.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

const (
	KeyJobID        = "job_id"
	KeyJobKind      = "job_kind"
	KeyTrigger      = "trigger"
	KeyAttempt      = "attempt"
	KeySubscriberID = "subscriber_id"
	KeyRecordID     = "record_id"
	KeyTarget       = "target_url"
	KeyBackend      = "queue_backend"
)

func JobID(id string) zap.Field      { return zap.String(KeyJobID, id) }
func JobKind(k string) zap.Field     { return zap.String(KeyJobKind, k) }
func Trigger(t string) zap.Field     { return zap.String(KeyTrigger, t) }
func Attempt(n int) zap.Field        { return zap.Int(KeyAttempt, n) }
func SubscriberID(id uint) zap.Field { return zap.Uint(KeySubscriberID, id) }
func RecordID(id uint) zap.Field     { return zap.Uint(KeyRecordID, id) }
func Target(url string) zap.Field    { return zap.String(KeyTarget, url) }
func Backend(name string) zap.Field  { return zap.String(KeyBackend, name) }
