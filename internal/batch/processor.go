package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tpcgrp/p6ebs-sync/internal/config"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
)

// ItemFunc processes one item. Errors are isolated to that item.
type ItemFunc func(ctx context.Context, item interface{}) error

// Labeler names an item for progress reporting
type Labeler interface {
	Label() string
}

// ProgressFunc receives a snapshot of a batch after each processed item.
// Calls may come from several workers but never overlap.
type ProgressFunc func(models.BatchProgress)

type progressKey struct{}

// WithProgress returns a context whose batches report progress to fn
func WithProgress(ctx context.Context, fn ProgressFunc) context.Context {
	return context.WithValue(ctx, progressKey{}, fn)
}

func progressFrom(ctx context.Context) ProgressFunc {
	fn, _ := ctx.Value(progressKey{}).(ProgressFunc)
	return fn
}

// Processor handles batch processing of items with a bounded worker pool.
// A Processor holds no per-batch state and may serve concurrent batches.
type Processor struct {
	config *config.BatchConfig
}

// NewProcessor creates a new batch processor
func NewProcessor(cfg *config.BatchConfig) *Processor {
	return &Processor{config: cfg}
}

// ProcessItems runs processFn for every item, batchSize items per worker task.
// A failing item does not stop the others; the returned map holds the error for
// each failed item index. Cancelling ctx stops scheduling new batches and returns ctx.Err().
func (p *Processor) ProcessItems(ctx context.Context, items []interface{}, processFn ItemFunc) (map[int]error, error) {
	failures := make(map[int]error)
	totalItems := len(items)
	if totalItems == 0 {
		return failures, nil
	}

	batchSize := p.config.Size
	if batchSize <= 0 {
		batchSize = 100 // Default batch size
	}
	workers := p.config.Workers
	if workers <= 0 {
		workers = 1
	}

	totalBatches := (totalItems + batchSize - 1) / batchSize
	report := progressFrom(ctx)
	progress := &models.BatchProgress{
		TotalItems:     totalItems,
		StartTime:      time.Now(),
		LastUpdateTime: time.Now(),
	}
	if report != nil {
		report(*progress)
	}

	workerChan := make(chan int, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex

	var ctxErr error
schedule:
	for i := 0; i < totalBatches; i++ {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break schedule
		case workerChan <- i:
			wg.Add(1)
			go func(batchNum int) {
				defer wg.Done()
				defer func() { <-workerChan }()

				start := batchNum * batchSize
				end := start + batchSize
				if end > totalItems {
					end = totalItems
				}

				for idx := start; idx < end; idx++ {
					err := p.processWithRetry(ctx, items[idx], processFn)

					mu.Lock()
					if err != nil {
						failures[idx] = err
						progress.FailedItems++
					}
					progress.ProcessedItems++
					progress.LastUpdateTime = time.Now()
					if l, ok := items[idx].(Labeler); ok {
						progress.LastItem = l.Label()
					}
					if report != nil {
						report(*progress)
					}
					mu.Unlock()
				}

				if p.config.BatchDelay > 0 {
					time.Sleep(p.config.BatchDelay)
				}
			}(i)
		}
	}

	wg.Wait()
	return failures, ctxErr
}

func (p *Processor) processWithRetry(ctx context.Context, item interface{}, processFn ItemFunc) error {
	var lastErr error
	for retry := 0; retry <= p.config.MaxRetries; retry++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			err := processFn(ctx, item)
			if err == nil {
				return nil
			}

			lastErr = err
			if retry < p.config.MaxRetries {
				backoff := time.Duration(float64(p.config.BatchDelay) * float64(retry+1))
				time.Sleep(backoff)
			}
		}
	}

	if p.config.MaxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("failed after %d retries: %w", p.config.MaxRetries, lastErr)
}
