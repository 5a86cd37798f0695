package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AuditLog appends one line per event to <Dir>/auth.log.
type AuditLog struct {
	Dir string
	mu  sync.Mutex
}

// Write formats ev and appends it to the log file, creating it if needed.
func (a *AuditLog) Write(ev AuthEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", a.Dir, err)
	}
	f, err := os.OpenFile(filepath.Join(a.Dir, "auth.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | user_id=%d | role=%s", ev.OccurredAt, ev.Type, ev.UserID, ev.Role)
	if ev.Email != "" {
		line += fmt.Sprintf(" | email=%q", ev.Email)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// handle decodes one delivery body and records it.
func (a *AuditLog) handle(body []byte) error {
	var ev AuthEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return errors.New("event without type")
	}
	return a.Write(ev)
}

// StartAuthConsumer consumes auth.events until ctx is cancelled, writing
// each event to the audit log. Broker outages are retried with exponential
// backoff capped at 30s; a malformed message is rejected without requeue.
func StartAuthConsumer(ctx context.Context, url string, sink *AuditLog, logger *zap.Logger) {
	logger = logger.Named("auth-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("dial broker failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, sink, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, sink *AuditLog, logger *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(AuthQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(AuthQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := sink.handle(d.Body); err != nil {
				logger.Error("handle message failed", zap.Error(err))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
