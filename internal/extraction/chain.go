package extraction

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

// Extractor runs one extraction method against a stored document and
// reports whether it produced usable text.
type Extractor interface {
	Extract(ctx context.Context, documentID string, method crawler.ExtractionMethod) (bool, error)
}

// Chain is the consumer half of the two-stage extraction contract.
type Chain struct {
	extractor  Extractor
	dispatcher crawler.Dispatcher
	logger     *zap.Logger
}

// NewChain constructs a Chain that re-enqueues fallbacks on dispatcher.
func NewChain(extractor Extractor, dispatcher crawler.Dispatcher, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{extractor: extractor, dispatcher: dispatcher, logger: logger}
}

// Handle runs task.Method. When it yields no usable text and the task names
// a fallback, the document is enqueued again with the fallback as its
// method and no further fallback.
func (c *Chain) Handle(ctx context.Context, task crawler.ExtractionTask) error {
	ok, err := c.extractor.Extract(ctx, task.DocumentID, task.Method)
	if err != nil {
		return fmt.Errorf("extract %s with %s: %w", task.DocumentID, task.Method, err)
	}
	if ok || task.Fallback == "" {
		return nil
	}
	c.logger.Info("primary extraction unusable, enqueueing fallback",
		zap.String("document_id", task.DocumentID),
		zap.String("method", string(task.Method)),
		zap.String("fallback", string(task.Fallback)),
	)
	next := crawler.ExtractionTask{DocumentID: task.DocumentID, Method: task.Fallback}
	if err := c.dispatcher.Enqueue(ctx, next); err != nil {
		return fmt.Errorf("enqueue fallback for %s: %w", task.DocumentID, err)
	}
	return nil
}

// DecodeTask parses a task published by PubSubDispatcher.
func DecodeTask(data []byte) (crawler.ExtractionTask, error) {
	var task crawler.ExtractionTask
	if err := json.Unmarshal(data, &task); err != nil {
		return crawler.ExtractionTask{}, fmt.Errorf("decode extraction task: %w", err)
	}
	if task.DocumentID == "" || task.Method == "" {
		return crawler.ExtractionTask{}, fmt.Errorf("decode extraction task: document_id and method are required")
	}
	return task, nil
}
