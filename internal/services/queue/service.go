package queue

import (
	"context"
	"fmt"

	"github.com/phambaophuc/webp-converter/internal/config"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Purger removes every conversion artifact of a user.
type Purger interface {
	Purge(ctx context.Context, userID string) error
}

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	QueueInspect(name string) (amqp.Queue, error)
	Close() error
}

type QueueService struct {
	conn        *amqp.Connection
	channel     amqpChannel
	logger      *zap.Logger
	purgeQueue  string
	eventsQueue string
	purger      Purger
}

func NewQueueService(cfg config.RabbitMQConfig, logger *zap.Logger) (*QueueService, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, queueName := range []string{cfg.PurgeQueue, cfg.EventsQueue} {
		_, err = channel.QueueDeclare(
			queueName, // name
			true,      // durable
			false,     // delete when unused
			false,     // exclusive
			false,     // no-wait
			nil,       // arguments
		)
		if err != nil {
			channel.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
		}
	}

	return &QueueService{
		conn:        conn,
		channel:     channel,
		logger:      logger,
		purgeQueue:  cfg.PurgeQueue,
		eventsQueue: cfg.EventsQueue,
	}, nil
}

// SetPurger installs the handler for purge jobs. It must be called before
// StartWorker.
func (q *QueueService) SetPurger(purger Purger) {
	q.purger = purger
}

// Close closes the queue connection
func (q *QueueService) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		q.conn.Close()
	}
	return nil
}
