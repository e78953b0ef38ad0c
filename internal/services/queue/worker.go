package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/phambaophuc/webp-converter/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

var errNoPurger = errors.New("no purger configured")

func (q *QueueService) StartWorker(ctx context.Context, workerID int) error {
	if q.purger == nil {
		return errNoPurger
	}

	msgs, err := q.channel.Consume(
		q.purgeQueue,                       // queue
		fmt.Sprintf("worker-%d", workerID), // consumer
		false,                              // auto-ack
		false,                              // exclusive
		false,                              // no-local
		false,                              // no-wait
		nil,                                // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	q.logger.Info("Worker started", zap.Int("worker_id", workerID))

	go func() {
		for {
			select {
			case <-ctx.Done():
				q.logger.Info("Worker stopping", zap.Int("worker_id", workerID))
				return
			case msg, ok := <-msgs:
				if !ok {
					q.logger.Warn("Message channel closed", zap.Int("worker_id", workerID))
					return
				}

				q.processMessage(ctx, msg, workerID)
			}
		}
	}()

	return nil
}

// processMessage runs one purge job and settles its delivery. The returned
// job carries the final status.
func (q *QueueService) processMessage(ctx context.Context, msg amqp.Delivery, workerID int) models.PurgeJob {
	var job models.PurgeJob
	if err := json.Unmarshal(msg.Body, &job); err != nil || job.UserID == "" {
		job.Status = models.StatusFailed
		job.Error = "malformed purge job"
		q.logger.Error("Failed to unmarshal job",
			zap.Error(err),
			zap.Int("worker_id", workerID))
		msg.Nack(false, false) // Don't requeue malformed messages
		return job
	}

	q.logger.Info("Processing purge job",
		zap.String("job_id", job.ID),
		zap.String("user_id", job.UserID),
		zap.Int("worker_id", workerID))

	job.Status = models.StatusProcessing

	if err := q.purger.Purge(ctx, job.UserID); err != nil {
		job.Status = models.StatusFailed
		job.Error = err.Error()
		q.logger.Error("Purge job failed",
			zap.String("job_id", job.ID),
			zap.String("status", job.Status),
			zap.Bool("requeued", !msg.Redelivered),
			zap.Error(err))

		// redeliver once, then drop
		if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
			q.logger.Error("Failed to nack message", zap.String("job_id", job.ID), zap.Error(nackErr))
		}
		return job
	}

	job.Status = models.StatusCompleted
	q.logger.Info("Purge job completed",
		zap.String("job_id", job.ID),
		zap.String("status", job.Status))

	if err := msg.Ack(false); err != nil {
		q.logger.Error("Failed to ack message",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
	return job
}
