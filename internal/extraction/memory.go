package extraction

import (
	"context"
	"sync"

	"github.com/JakeFAU/opinion-crawler/internal/crawler"
)

// MemoryDispatcher records tasks in memory for development runs and tests.
type MemoryDispatcher struct {
	mu    sync.RWMutex
	tasks []crawler.ExtractionTask
}

// NewMemory returns an empty MemoryDispatcher.
func NewMemory() *MemoryDispatcher {
	return &MemoryDispatcher{}
}

// Enqueue records task.
func (d *MemoryDispatcher) Enqueue(_ context.Context, task crawler.ExtractionTask) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tasks = append(d.tasks, task)
	return nil
}

// Tasks returns a copy of the recorded tasks.
func (d *MemoryDispatcher) Tasks() []crawler.ExtractionTask {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]crawler.ExtractionTask, len(d.tasks))
	copy(out, d.tasks)
	return out
}

// Close is a no-op.
func (d *MemoryDispatcher) Close() error {
	return nil
}
