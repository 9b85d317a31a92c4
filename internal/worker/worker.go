package worker

import (
	"context"
	"sync"

	"github.com/northbound/crawlpipe/internal/logger"
	"github.com/northbound/crawlpipe/internal/queue"
)

// HandlerFunc processes a job. It should return an error if processing fails.
type HandlerFunc func(ctx context.Context, job queue.Job) error

// StartWorkers runs workerCount goroutines pulling crawl jobs off q until
// ctx is cancelled, each routing its job to handler (app.HandleQueuedJob in
// practice). Blocks until every worker has returned.
func StartWorkers(ctx context.Context, q queue.Queue, handler HandlerFunc, workerCount int) error {
	logger.Printf("worker: starting %d workers", workerCount)

	var wg sync.WaitGroup
	wg.Add(workerCount)

	for i := 0; i < workerCount; i++ {
		workerID := i + 1
		go func() {
			defer wg.Done()
			workerLoop(ctx, q, handler, workerID)
		}()
	}

	wg.Wait()
	logger.Printf("worker: all workers stopped")
	return nil
}

func workerLoop(ctx context.Context, q queue.Queue, handler HandlerFunc, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := q.Dequeue(ctx)
		if err != nil {
			if err == context.Canceled || err == context.DeadlineExceeded {
				return
			}
			logger.Warnf("worker %d: dequeue error: %v, continuing", workerID, err)
			continue
		}

		if err := handler(ctx, job); err != nil {
			logger.Errorf("worker %d: job type=%s failed: %v", workerID, job.Type, err)
		}
	}
}
