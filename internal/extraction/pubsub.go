package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
	"github.com/JakeFAU/opinion-crawler/internal/metrics"
)

// PubSubDispatcher publishes extraction tasks to a Pub/Sub topic without
// waiting for the server acknowledgement on the caller's goroutine.
type PubSubDispatcher struct {
	topic   *pubsub.Topic
	logger  *zap.Logger
	pending sync.WaitGroup
}

// NewPubSub wraps topic. The dispatcher owns the topic's publish goroutines
// and stops them in Close.
func NewPubSub(topic *pubsub.Topic, logger *zap.Logger) (*PubSubDispatcher, error) {
	if topic == nil {
		return nil, fmt.Errorf("pubsub topic is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PubSubDispatcher{topic: topic, logger: logger}, nil
}

// Enqueue publishes task. Only marshalling errors are returned; publish
// failures surface asynchronously in the log.
func (d *PubSubDispatcher) Enqueue(ctx context.Context, task crawler.ExtractionTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal extraction task: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"document_id": task.DocumentID,
			"method":      string(task.Method),
			"fallback":    string(task.Fallback),
		},
	}

	result := d.topic.Publish(context.WithoutCancel(ctx), msg)
	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		id, err := result.Get(context.Background())
		if err != nil {
			metrics.ObserveDispatch("publish_failed")
			d.logger.Error("publish extraction task failed",
				zap.String("document_id", task.DocumentID),
				zap.Error(err),
			)
			return
		}
		d.logger.Debug("extraction task published",
			zap.String("document_id", task.DocumentID),
			zap.String("message_id", id),
		)
	}()
	return nil
}

// Close flushes buffered messages and waits for their results.
func (d *PubSubDispatcher) Close() error {
	d.topic.Stop()
	d.pending.Wait()
	return nil
}
