package queue

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MimoJanra/AuditPulse/internal/config"
	"github.com/MimoJanra/AuditPulse/internal/logging"
)

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.QueueConfig, obs Observer, log *zap.Logger) (Queue, error) {
	opts := Options{
		Workers:  cfg.Workers,
		Capacity: cfg.Capacity,
		Policy:   NewPolicy(cfg.Backoff, cfg.RetryInitial, cfg.RetryMax, cfg.MaxRetries),
		Observer: obs,
	}
	log.Info("opening job queue", logging.Backend(cfg.Backend), zap.Int("workers", opts.Workers))

	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryQueue(opts, log), nil
	case config.BackendAMQP:
		return NewAMQPQueue(cfg.AMQPURL, cfg.AMQPQueue, opts, log), nil
	case config.BackendNATS:
		q, err := NewNATSQueue(ctx, NATSConfig{
			URL:      cfg.NATSURL,
			Stream:   cfg.NATSStream,
			Subject:  cfg.NATSSubject,
			Consumer: cfg.NATSConsumer,
		}, opts, log)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unsupported queue backend %q", cfg.Backend)
	}
}
