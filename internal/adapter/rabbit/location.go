package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Temutjin2k/schoolbus-hub/internal/domain/models"
	"github.com/Temutjin2k/schoolbus-hub/pkg/logger"
	wrap "github.com/Temutjin2k/schoolbus-hub/pkg/logger/wrapper"
	"github.com/Temutjin2k/schoolbus-hub/pkg/metrics"
	"github.com/Temutjin2k/schoolbus-hub/pkg/rabbit"
)

const publishAttempts = 3

// LocationFeed publishes accepted location samples to a fanout exchange
// for consumers outside the hub (history, ETA, analytics).
type LocationFeed struct {
	client   *rabbit.RabbitMQ
	exchange string

	mu       sync.Mutex
	declared *amqp.Channel // channel the exchange was last declared on

	l logger.Logger
}

func NewLocationFeed(client *rabbit.RabbitMQ, exchange string, log logger.Logger) *LocationFeed {
	return &LocationFeed{
		client:   client,
		exchange: exchange,
		l:        log,
	}
}

// PublishLocation sends the sample with routing key "location.<schedule_id>".
func (f *LocationFeed) PublishLocation(ctx context.Context, sample models.LocationSample) (err error) {
	const op = "LocationFeed.PublishLocation"
	ctx = wrap.WithAction(wrap.WithScheduleID(ctx, sample.ScheduleID), "rabbitmq_publish_location")
	defer func() { metrics.RecordRabbitMQPublish(f.exchange, err) }()

	body, err := json.Marshal(sample)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: failed to marshal message: %w", op, err))
	}

	key := "location." + strconv.FormatInt(sample.ScheduleID, 10)

	err = retry(ctx, publishAttempts, 500*time.Millisecond, func() error {
		ch, err := f.channel(ctx)
		if err != nil {
			return err
		}

		return ch.PublishWithContext(
			ctx,
			f.exchange, // exchange
			key,        // routing key
			false,      // mandatory
			false,      // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				CorrelationId: wrap.GetRequestID(ctx),
				Body:          body,
				Timestamp:     time.Now(),
			},
		)
	})
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: %w", op, err))
	}
	return nil
}

// channel returns a live channel with the fanout exchange declared on it.
func (f *LocationFeed) channel(ctx context.Context) (*amqp.Channel, error) {
	ch, err := f.client.Channel(ctx)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.declared != ch {
		if err := ch.ExchangeDeclare(f.exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("declare exchange %s: %w", f.exchange, err)
		}
		f.declared = ch
	}
	return ch, nil
}
