package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"lightbnb/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// CatalogQueue is an in-memory queue of catalog batches
type CatalogQueue struct {
	items    chan *models.CatalogBatch
	done     chan struct{}
	pending  sync.WaitGroup
	maxSize  int
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []func(*models.CatalogBatch) error
}

// NewCatalogQueue creates a new catalog queue with the specified buffer size
func NewCatalogQueue(bufferSize int, logger *logrus.Logger) *CatalogQueue {
	return &CatalogQueue{
		items:    make(chan *models.CatalogBatch, bufferSize),
		done:     make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]func(*models.CatalogBatch) error, 0),
	}
}

// Push adds a batch to the queue
func (q *CatalogQueue) Push(batch *models.CatalogBatch) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	// Non-blocking send to prevent deadlocks
	q.pending.Add(1)
	select {
	case q.items <- batch:
		q.logger.WithField("batch_size", batch.Len()).Debug("Pushed batch to queue")
		return nil
	default:
		q.pending.Done()
		return ErrQueueFull
	}
}

// Subscribe adds a handler function that will be called for each batch
func (q *CatalogQueue) Subscribe(handler func(*models.CatalogBatch) error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins processing items in the queue
func (q *CatalogQueue) Start() {
	go q.process()
}

// process handles batches until the queue is closed and drained
func (q *CatalogQueue) process() {
	defer close(q.done)
	for batch := range q.items {
		q.processBatch(batch)
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *CatalogQueue) processBatch(batch *models.CatalogBatch) {
	defer q.pending.Done()

	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Wait blocks until every pushed batch has been handled
func (q *CatalogQueue) Wait() {
	q.pending.Wait()
}

// Done is closed once a started queue has been closed and drained
func (q *CatalogQueue) Done() <-chan struct{} {
	return q.done
}

// Close stops accepting batches. Batches already queued are still handled.
func (q *CatalogQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.items)
	return nil
}

// Len returns the current number of batches in the queue
func (q *CatalogQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *CatalogQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
