package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/internal/domain/types"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
	"github.com/Temutjin2k/schoolbus-hub/pkg/metrics"
	"github.com/Temutjin2k/schoolbus-hub/pkg/rabbit"
)

const notificationBindingKey = "notification.#"

var errNoTarget = errors.New("notification has neither recipient nor role")

// NotificationDeliverer pushes an already persisted notification to live sessions.
type NotificationDeliverer interface {
	Deliver(ctx context.Context, env models.NotificationEnvelope) int
}

// NotificationConsumer feeds notifications persisted by other services into the hub.
type NotificationConsumer struct {
	client   *rabbit.RabbitMQ
	exchange string
	queue    string
	prefetch int

	l logger.Logger
}

func NewNotificationConsumer(client *rabbit.RabbitMQ, exchange, queue string, prefetch int, log logger.Logger) *NotificationConsumer {
	return &NotificationConsumer{
		client:   client,
		exchange: exchange,
		queue:    queue,
		prefetch: prefetch,
		l:        log,
	}
}

// Consume blocks until ctx is done, resubscribing whenever the broker drops the channel.
func (c *NotificationConsumer) Consume(ctx context.Context, d NotificationDeliverer) error {
	const op = "NotificationConsumer.Consume"
	ctx = wrap.WithAction(ctx, "rabbitmq_consume_notifications")

	for {
		if ctx.Err() != nil {
			c.l.Debug(ctx, "notification consumer stopped by context")
			return nil
		}

		msgs, err := c.subscribe(ctx)
		if err != nil {
			c.l.Error(ctx, "subscribe failed", err, "op", op)
			if !pause(ctx, reconnectDelay) {
				return nil
			}
			continue
		}

		c.l.Info(ctx, "start consuming notifications", "queue", c.queue)

	consumeLoop:
		for {
			select {
			case <-ctx.Done():
				c.l.Info(ctx, "notification consumer shutting down", "op", op)
				return nil

			case msg, ok := <-msgs:
				if !ok {
					c.l.Warn(ctx, "message channel closed, reconnecting...", "op", op)
					break consumeLoop
				}
				c.handle(ctx, d, msg)
			}
		}

		if !pause(ctx, reconnectDelay) {
			return nil
		}
	}
}

func (c *NotificationConsumer) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	ch, err := c.client.Channel(ctx)
	if err != nil {
		return nil, err
	}

	if err := ch.ExchangeDeclare(c.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(c.queue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, notificationBindingKey, c.exchange, false, nil); err != nil {
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	if c.prefetch > 0 {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("set qos: %w", err)
		}
	}

	return ch.ConsumeWithContext(ctx, q.Name, "", false, false, false, false, nil)
}

// handle acks every decodable envelope: live delivery is best-effort, so a
// recipient without a session is not a failure.
func (c *NotificationConsumer) handle(ctx context.Context, d NotificationDeliverer, msg amqp.Delivery) {
	const op = "NotificationConsumer.handle"
	ctx = wrap.WithRequestID(ctx, msg.CorrelationId)

	env, err := decodeEnvelope(msg.Body)
	metrics.RecordRabbitMQConsume(c.queue, err)
	if err != nil {
		c.l.Error(ctx, "dropping notification", err, "op", op)
		_ = msg.Reject(false)
		return
	}

	delivered := d.Deliver(ctx, env)
	c.l.Debug(ctx, "notification delivered", "notification_id", env.ID, "sessions", delivered)

	if err := msg.Ack(false); err != nil {
		c.l.Warn(ctx, "ack failed", "op", op, "error", err.Error())
	}
}

func decodeEnvelope(body []byte) (models.NotificationEnvelope, error) {
	var env models.NotificationEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("%w: %v", types.ErrMalformedEvent, err)
	}

	switch {
	case env.RecipientID == nil && env.TargetRole == nil:
		return env, fmt.Errorf("%w: %w", types.ErrMalformedEvent, errNoTarget)
	case env.TargetRole != nil && !env.TargetRole.IsValid():
		return env, fmt.Errorf("%w: unknown role %q", types.ErrMalformedEvent, *env.TargetRole)
	case env.Title == "" || env.Message == "":
		return env, fmt.Errorf("%w: title and message are required", types.ErrMalformedEvent)
	}

	if env.Type == "" {
		env.Type = types.NotificationInfo
	}
	return env, nil
}
