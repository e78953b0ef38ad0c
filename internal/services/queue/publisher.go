package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/webp-converter/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// PublishPurge enqueues removal of a user's conversion artifacts.
func (q *QueueService) PublishPurge(ctx context.Context, userID string) (*models.PurgeJob, error) {
	job := &models.PurgeJob{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
	}

	if err := q.publish(q.purgeQueue, job); err != nil {
		return nil, fmt.Errorf("failed to publish purge job: %w", err)
	}

	q.logger.Info("Purge job published to queue",
		zap.String("job_id", job.ID),
		zap.String("user_id", userID))
	return job, nil
}

// PublishEvent publishes a conversion event.
func (q *QueueService) PublishEvent(ctx context.Context, event *models.ConversionEvent) error {
	if err := q.publish(q.eventsQueue, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (q *QueueService) publish(queueName string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.channel.Publish(
		"",        // exchange
		queueName, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}
