package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/MimoJanra/AuditPulse/internal/logging"
)

// AMQPQueue keeps jobs in a durable RabbitMQ queue. Messages are persistent
// and acknowledged only after the handler settles. Producers share one
// lazily dialed connection that is redialed after it breaks.
type AMQPQueue struct {
	url  string
	name string
	opts Options
	log  *zap.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	pub    *amqp.Channel
	closed bool
}

func NewAMQPQueue(url, name string, opts Options, log *zap.Logger) *AMQPQueue {
	return &AMQPQueue{url: url, name: name, opts: opts.normalized(), log: log.Named("queue.amqp")}
}

func (q *AMQPQueue) declare(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(
		q.name, // name
		true,   // durable
		false,  // auto-delete
		false,  // exclusive
		false,  // no-wait
		nil,    // arguments
	)
}

func (q *AMQPQueue) Enqueue(ctx context.Context, job Job) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	job = job.withDefaults()

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return Job{}, ErrClosed
	}

	ch, err := q.publisher()
	if err != nil {
		return Job{}, err
	}
	if err := q.publish(ch, job); err != nil {
		q.resetPublisher()
		return Job{}, err
	}
	return job, nil
}

// publisher returns the shared producer channel, dialing on first use or
// after the connection dropped. Callers hold q.mu.
func (q *AMQPQueue) publisher() (*amqp.Channel, error) {
	if q.pub != nil && !q.conn.IsClosed() {
		return q.pub, nil
	}
	q.resetPublisher()

	conn, err := amqp.Dial(q.url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := q.declare(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue '%s': %w", q.name, err)
	}

	q.conn, q.pub = conn, ch
	q.log.Debug("producer connected", zap.String("queue", q.name))
	return ch, nil
}

func (q *AMQPQueue) resetPublisher() {
	if q.pub != nil {
		_ = q.pub.Close()
	}
	if q.conn != nil {
		_ = q.conn.Close()
	}
	q.conn, q.pub = nil, nil
}

func (q *AMQPQueue) publish(ch *amqp.Channel, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	err = ch.Publish(
		"",     // exchange
		q.name, // routing key
		false,  // mandatory
		false,  // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.ID,
			Timestamp:    job.EnqueuedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish job %s: %w", job.ID, err)
	}
	return nil
}

// Consume reconnects with exponential backoff (1s to 30s) until ctx is cancelled.
func (q *AMQPQueue) Consume(ctx context.Context, h Handler) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		if ctx.Err() != nil {
			q.log.Info("consumer shutting down", zap.String("queue", q.name))
			return nil
		}

		err := q.consumeOnce(ctx, h)
		if ctx.Err() != nil {
			q.log.Info("consumer stopped", zap.String("queue", q.name))
			return nil
		}

		if err != nil {
			q.log.Warn("consumer error, retrying", zap.String("queue", q.name), zap.Error(err), zap.Duration("backoff", backoff))
		} else {
			q.log.Info("consumer disconnected, reconnecting", zap.String("queue", q.name))
			backoff = time.Second
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (q *AMQPQueue) consumeOnce(ctx context.Context, h Handler) error {
	conn, err := amqp.Dial(q.url)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(q.opts.Workers, 0, false); err != nil {
		return fmt.Errorf("set prefetch: %w", err)
	}
	if _, err := q.declare(ch); err != nil {
		return fmt.Errorf("declare queue '%s': %w", q.name, err)
	}

	msgs, err := ch.Consume(
		q.name, // queue
		"",     // consumer
		false,  // auto-ack
		false,  // exclusive
		false,  // no-local
		false,  // no-wait
		nil,    // args
	)
	if err != nil {
		return fmt.Errorf("register consumer on '%s': %w", q.name, err)
	}
	q.log.Info("connected to queue", zap.String("queue", q.name), zap.Int("workers", q.opts.Workers))

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	done := make(chan struct{})

	var workers sync.WaitGroup
	for i := 0; i < q.opts.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-done:
					return
				case msg, ok := <-msgs:
					if !ok {
						return
					}
					q.handle(ctx, ch, h, msg)
				}
			}
		}()
	}
	defer workers.Wait()
	defer close(done)

	select {
	case <-ctx.Done():
		return nil
	case amqpErr := <-connClosed:
		if amqpErr != nil {
			return fmt.Errorf("connection closed: %s", amqpErr.Error())
		}
		return nil
	}
}

func (q *AMQPQueue) handle(ctx context.Context, ch *amqp.Channel, h Handler, msg amqp.Delivery) {
	var job Job
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		q.log.Error("undecodable job, discarding", zap.String("message_id", msg.MessageId), zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	log := q.log.With(logging.JobID(job.ID), logging.JobKind(string(job.Kind)), logging.Trigger(job.Trigger))

	err := invoke(ctx, h, job)
	act, result, delay := settle(job, err, q.opts.Policy)
	observe(q.opts.Observer, job, result)

	switch act {
	case actionAck:
		if err := msg.Ack(false); err != nil {
			log.Warn("ack failed", zap.Error(err))
		}
	case actionDrop:
		log.Error("job failed, dropping", zap.String("result", result), zap.Error(err))
		_ = msg.Nack(false, false)
	case actionRetry:
		log.Warn("job failed, scheduling retry", logging.Attempt(job.Attempt), zap.Duration("backoff", delay), zap.Error(err))
		select {
		case <-ctx.Done():
			_ = msg.Nack(false, true)
			return
		case <-time.After(delay):
		}
		job.Attempt++
		if perr := q.publish(ch, job); perr != nil {
			log.Error("republish failed, requeueing original", zap.Error(perr))
			_ = msg.Nack(false, true)
			return
		}
		_ = msg.Ack(false)
	}
}

func (q *AMQPQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.resetPublisher()
	return nil
}
