package dispatch

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/logger"
	"github.com/sendgate/sendgate/internal/tracing"
	"github.com/sendgate/sendgate/internal/utils"
)

type SubscriberConfig struct {
	MaxRetries          int
	ReconnectBackoff    time.Duration
	MaxReconnectBackoff time.Duration
}

// RabbitMQSubscriber drains the dispatch-outcomes queue. The gateway
// consumes exactly one feed, so the subscriber carries a single listener
// instead of a per-event-type registry.
type RabbitMQSubscriber struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	url             string
	logger          logger.Logger
	config          SubscriberConfig
	listener        interfaces.EventListener
}

func NewRabbitMQSubscriber(rabbitmqURL string, logger logger.Logger, config *SubscriberConfig) (*RabbitMQSubscriber, error) {
	if config == nil {
		config = &SubscriberConfig{
			MaxRetries:          5,
			ReconnectBackoff:    time.Second,
			MaxReconnectBackoff: time.Second * 30,
		}
	}

	subscriber := &RabbitMQSubscriber{
		url:    rabbitmqURL,
		logger: logger,
		config: *config,
	}

	err := subscriber.connect()
	if err != nil {
		return nil, err
	}

	return subscriber, nil
}

// Subscribe wires the outcome consumer and starts draining the queue.
// Must be called once, before any messages are expected.
func (r *RabbitMQSubscriber) Subscribe(listener interfaces.EventListener) error {
	if listener == nil {
		return errors.New("outcome listener is required")
	}
	r.listener = listener
	r.logger.Infof("Consuming %s events from queue %s", listener.GetEventType(), QueueOutcomes)

	go r.consumeLoop()
	return nil
}

// consumeLoop keeps a consumer alive on the outcomes queue, re-opening
// the channel with exponential backoff whenever it drops.
func (r *RabbitMQSubscriber) consumeLoop() {
	backoff := r.config.ReconnectBackoff

	for {
		channel, err := r.connection.Channel()
		if err != nil {
			r.logger.Errorf("Failed to open channel for queue %s: %v. Retrying in %s", QueueOutcomes, err, backoff)
			backoff = r.sleepAndGrow(backoff)
			continue
		}

		msgs, err := channel.Consume(
			QueueOutcomes,
			"",    // consumer tag
			false, // auto-ack
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,   // args
		)
		if err != nil {
			r.logger.Errorf("Failed to register consumer on queue %s: %v. Retrying in %s", QueueOutcomes, err, backoff)
			channel.Close()
			backoff = r.sleepAndGrow(backoff)
			continue
		}

		r.logger.Infof("Listening for messages on queue %s", QueueOutcomes)
		backoff = r.config.ReconnectBackoff

		for d := range msgs {
			r.handleDelivery(d)
		}

		channel.Close()
		r.logger.Warnf("Consumer on queue %s lost its channel. Reconnecting...", QueueOutcomes)
		backoff = r.sleepAndGrow(backoff)
	}
}

func (r *RabbitMQSubscriber) sleepAndGrow(backoff time.Duration) time.Duration {
	time.Sleep(backoff)
	backoff *= 2
	if backoff > r.config.MaxReconnectBackoff {
		backoff = r.config.MaxReconnectBackoff
	}
	return backoff
}

func (r *RabbitMQSubscriber) handleDelivery(d amqp091.Delivery) {
	defer tracing.RecoverAndLogToJaeger(r.logger)

	if err := r.consumeOutcome(d); err != nil {
		r.logger.Errorf("Failed to process message on queue %s: %v", QueueOutcomes, err)
		r.retryAckNack(d, false)
	} else {
		r.retryAckNack(d, true)
	}
}

func (r *RabbitMQSubscriber) consumeOutcome(d amqp091.Delivery) error {
	ctx := context.Background()

	var event dto.Event
	if err := json.Unmarshal(d.Body, &event); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}

	ctx = utils.WithCustomContext(ctx, &utils.CustomContext{
		Tenant:    event.Event.Tenant,
		AppSource: event.Metadata.AppSource,
	})

	ctx, span := tracing.StartQueueMessageTracerSpanWithHeader(ctx, "RabbitMQSubscriber.ConsumeOutcome", event.Metadata.UberTraceId)
	defer span.Finish()
	span.LogKV("event_type", event.Event.EventType)

	if event.Event.EventType != r.listener.GetEventType() {
		// Not an outcome event; drop it so it does not cycle through the DLQ.
		r.logger.Warnf("Unexpected event type %s on queue %s, dropping", event.Event.EventType, QueueOutcomes)
		return nil
	}

	return r.listener.Handle(ctx, event)
}

func (r *RabbitMQSubscriber) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	var err error
	r.connection, err = amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "Failed to connect to RabbitMQ")
	}

	go func() {
		notifyClose := r.connection.NotifyClose(make(chan *amqp091.Error))
		<-notifyClose
		r.logger.Warn("RabbitMQ connection closed, attempting to reconnect")
		_ = r.connect()
	}()

	return nil
}

func (r *RabbitMQSubscriber) retryAckNack(d amqp091.Delivery, ack bool) {
	retryDelay := 100 * time.Millisecond

	for i := 0; i < r.config.MaxRetries; i++ {
		var err error
		if ack {
			err = d.Ack(false)
		} else {
			err = d.Nack(false, false)
		}

		if err == nil {
			return
		}

		time.Sleep(retryDelay)
	}

	r.logger.Errorf("Failed to %s message after %d attempts",
		map[bool]string{true: "acknowledge", false: "negative acknowledge"}[ack],
		r.config.MaxRetries)
}

func (r *RabbitMQSubscriber) Close() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	if r.connection != nil && !r.connection.IsClosed() {
		return r.connection.Close()
	}
	return nil
}
