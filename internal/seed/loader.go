package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"lightbnb/server/internal/queue"
)

const maxBackoff = time.Second

// Loader feeds fixture catalogs to the catalog queue.
type Loader struct {
	queue     *queue.CatalogQueue
	batchSize int
	logger    *logrus.Logger
}

func NewLoader(q *queue.CatalogQueue, batchSize int, logger *logrus.Logger) *Loader {
	return &Loader{queue: q, batchSize: batchSize, logger: logger}
}

// Enqueue pushes the catalog onto the queue in foreign-key order, waiting
// while the queue is full. It returns the number of batches pushed.
func (l *Loader) Enqueue(ctx context.Context, catalog *Catalog) (int, error) {
	batches, err := catalog.Batches(l.batchSize)
	if err != nil {
		return 0, err
	}

	for i, batch := range batches {
		backoff := 10 * time.Millisecond
		for {
			err := l.queue.Push(batch)
			if err == nil {
				break
			}
			if !errors.Is(err, queue.ErrQueueFull) {
				return i, fmt.Errorf("failed to enqueue batch %d: %w", i, err)
			}

			l.logger.WithField("backoff", backoff).Debug("Catalog queue full, backing off")
			select {
			case <-ctx.Done():
				return i, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}
	}

	l.logger.WithFields(logrus.Fields{
		"batches": len(batches),
		"records": catalog.Len(),
	}).Info("Catalog enqueued")
	return len(batches), nil
}

// LoadFile enqueues the fixture at path and waits until the queue has
// handled it.
func (l *Loader) LoadFile(ctx context.Context, path string) error {
	catalog, err := LoadFile(path)
	if err != nil {
		return err
	}
	if _, err := l.Enqueue(ctx, catalog); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		l.queue.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
