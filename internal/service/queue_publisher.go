// Package service holds the background pieces of the auth service: the
// event publisher, the refresh-record sweeper and the admin bootstrap.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-auth-service/internal/metrics"
	"github.com/iliyamo/tenant-auth-service/internal/queue"
)

// AMQPPublisher sends auth events to the auth.events queue. Publishing is
// best effort: failures are logged and counted, never returned, so a broker
// outage cannot fail a login.
type AMQPPublisher struct {
	URL     string
	Timeout time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

func NewAMQPPublisher(url string, logger *zap.Logger, m *metrics.Metrics) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Timeout: 3 * time.Second, Logger: logger.Named("publisher"), Metrics: m}
}

// Publish marshals ev and sends it as a persistent message. The request
// context only bounds the wait; cancellation after the handler returns does
// not abort the send.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.AuthEvent) {
	if ev.OccurredAt == "" {
		ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.Timeout)
	defer cancel()

	if err := p.publish(ctx, ev); err != nil {
		p.Logger.Warn("publish auth event failed", zap.String("type", ev.Type), zap.Uint64("user_id", ev.UserID), zap.Error(err))
		p.Metrics.EventsPublishedTotal.WithLabelValues(ev.Type, "error").Inc()
		return
	}
	p.Metrics.EventsPublishedTotal.WithLabelValues(ev.Type, "ok").Inc()
}

func (p *AMQPPublisher) publish(ctx context.Context, ev queue.AuthEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.Timeout)})
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer func() { _ = ch.Close() }()

	// durable so events survive broker restarts
	if _, err := ch.QueueDeclare(queue.AuthQueueName, true, false, false, false, nil); err != nil {
		return err
	}

	return ch.PublishWithContext(ctx,
		"",                  // default exchange
		queue.AuthQueueName, // routing key = queue name
		false,               // mandatory
		false,               // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         ev.Type,
			Body:         body,
		},
	)
}

// NopPublisher drops every event. It is used when EVENTS_ENABLED=false.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.AuthEvent) {}
