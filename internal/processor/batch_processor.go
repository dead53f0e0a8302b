package processor

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"lightbnb/server/config"
	"lightbnb/server/internal/database"
	"lightbnb/server/internal/models"
	"lightbnb/server/internal/queue"
)

// Transactor runs a function inside a database transaction. *gorm.DB
// satisfies it.
type Transactor interface {
	Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error
}

// BatchProcessor writes catalog batches taken from the queue
type BatchProcessor struct {
	db         Transactor
	logger     *logrus.Logger
	config     *config.Config
	queue      *queue.CatalogQueue
	start      sync.Once
	afterBatch []func(*models.CatalogBatch)
	processed  atomic.Int64
	failed     atomic.Int64
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db Transactor, queue *queue.CatalogQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnBatchProcessed registers fn to run after each successfully written
// batch. It must be called before Start.
func (p *BatchProcessor) OnBatchProcessed(fn func(*models.CatalogBatch)) {
	p.afterBatch = append(p.afterBatch, fn)
}

// Start subscribes the processor to the queue
func (p *BatchProcessor) Start() {
	p.start.Do(func() {
		p.queue.Subscribe(p.processBatch)
	})
}

// Stop aborts pending retries. Batches handled afterwards fail fast.
func (p *BatchProcessor) Stop() {
	p.cancel()
}

// Stats returns the number of batches written and given up on
func (p *BatchProcessor) Stats() (processed, failed int64) {
	return p.processed.Load(), p.failed.Load()
}

// processBatch writes a single batch in a transaction, retrying failures
func (p *BatchProcessor) processBatch(batch *models.CatalogBatch) error {
	attempts := p.config.BatchProcessing.MaxRetries + 1
	delay := time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, attempts)
			select {
			case <-p.ctx.Done():
				p.failed.Add(1)
				return fmt.Errorf("batch processing stopped: %w", p.ctx.Err())
			case <-time.After(delay):
			}
		}
		if p.ctx.Err() != nil {
			p.failed.Add(1)
			return fmt.Errorf("batch processing stopped: %w", p.ctx.Err())
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertCatalog(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert catalog batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.processed.Add(1)
			p.logger.WithFields(logrus.Fields{
				"users":        len(batch.Users),
				"properties":   len(batch.Properties),
				"reviews":      len(batch.Reviews),
				"reservations": len(batch.Reservations),
			}).Infof("Successfully processed batch of %d records", batch.Len())
			for _, fn := range p.afterBatch {
				fn(batch)
			}
			return nil
		}

		p.logger.WithError(err).Error("Batch processing failed")
	}

	p.failed.Add(1)
	return fmt.Errorf("failed to process batch after %d attempts: %w", attempts, err)
}
