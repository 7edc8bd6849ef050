package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/MimoJanra/AuditPulse/internal/logging"
)

type NATSConfig struct {
	URL      string
	Stream   string
	Subject  string
	Consumer string
}

// NATSQueue keeps jobs in a JetStream work-queue stream. Redelivery counts
// come from the server, so Job.Attempt is rewritten from message metadata.
type NATSQueue struct {
	conn *nats.Conn
	js   jetstream.JetStream
	cfg  NATSConfig
	opts Options
	log  *zap.Logger
}

func NewNATSQueue(ctx context.Context, cfg NATSConfig, opts Options, log *zap.Logger) (*NATSQueue, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("auditpulse"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	setupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(setupCtx, jetstream.StreamConfig{
		Name:        cfg.Stream,
		Description: "AuditPulse scheduled report deliveries",
		Subjects:    []string{cfg.Subject},
		Retention:   jetstream.WorkQueuePolicy,
		Storage:     jetstream.FileStorage,
		Duplicates:  2 * time.Minute,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", cfg.Stream, err)
	}

	q := &NATSQueue{conn: conn, js: js, cfg: cfg, opts: opts.normalized(), log: log.Named("queue.nats")}
	q.log.Info("NATS queue initialized", zap.String("url", cfg.URL), zap.String("stream", cfg.Stream), zap.String("subject", cfg.Subject))
	return q, nil
}

func (q *NATSQueue) Enqueue(ctx context.Context, job Job) (Job, error) {
	job = job.withDefaults()
	data, err := json.Marshal(job)
	if err != nil {
		return Job{}, fmt.Errorf("encode job: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := q.js.Publish(pubCtx, q.cfg.Subject, data, jetstream.WithMsgID(job.ID)); err != nil {
		return Job{}, fmt.Errorf("failed to publish job %s: %w", job.ID, err)
	}
	return job, nil
}

func (q *NATSQueue) Consume(ctx context.Context, h Handler) error {
	cons, err := q.js.CreateOrUpdateConsumer(ctx, q.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       q.cfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       5 * time.Minute,
		MaxDeliver:    q.opts.Policy.MaxRetries + 1,
		MaxAckPending: q.opts.Workers,
		FilterSubject: q.cfg.Subject,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", q.cfg.Consumer, err)
	}

	sem := make(chan struct{}, q.opts.Workers)
	var inflight sync.WaitGroup

	cc, err := cons.Consume(func(msg jetstream.Msg) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			_ = msg.Nak()
			return
		}
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			defer func() { <-sem }()
			q.handle(ctx, h, msg)
		}()
	})
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}
	q.log.Info("consuming jobs", zap.String("consumer", q.cfg.Consumer), zap.Int("workers", q.opts.Workers))

	<-ctx.Done()
	cc.Stop()
	inflight.Wait()
	return nil
}

func (q *NATSQueue) handle(ctx context.Context, h Handler, msg jetstream.Msg) {
	var job Job
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		q.log.Error("undecodable job, terminating", zap.Error(err))
		_ = msg.Term()
		return
	}
	if meta, err := msg.Metadata(); err == nil && meta.NumDelivered > 0 {
		job.Attempt = int(meta.NumDelivered) - 1
	}

	log := q.log.With(logging.JobID(job.ID), logging.JobKind(string(job.Kind)), logging.Trigger(job.Trigger))

	err := invoke(ctx, h, job)
	act, result, delay := settle(job, err, q.opts.Policy)
	observe(q.opts.Observer, job, result)

	switch act {
	case actionAck:
		if err := msg.Ack(); err != nil {
			log.Warn("ack failed", zap.Error(err))
		}
	case actionDrop:
		log.Error("job failed, dropping", zap.String("result", result), zap.Error(err))
		_ = msg.Term()
	case actionRetry:
		log.Warn("job failed, scheduling redelivery", logging.Attempt(job.Attempt), zap.Duration("backoff", delay), zap.Error(err))
		_ = msg.NakWithDelay(delay)
	}
}

func (q *NATSQueue) Close() error {
	if q.conn != nil {
		return q.conn.Drain()
	}
	return nil
}
