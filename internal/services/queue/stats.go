package queue

import (
	"context"
	"errors"
	"fmt"
)

func (q *QueueService) GetQueueStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	for _, name := range []string{q.purgeQueue, q.eventsQueue} {
		queueInfo, err := q.channel.QueueInspect(name)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect queue: %w", err)
		}
		stats[name] = map[string]interface{}{
			"messages":  queueInfo.Messages,
			"consumers": queueInfo.Consumers,
		}
	}
	return stats, nil
}

// Ping checks if RabbitMQ is available
func (q *QueueService) Ping(ctx context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return errors.New("connection closed")
	}
	if q.channel == nil {
		return errors.New("channel not available")
	}
	return nil
}
