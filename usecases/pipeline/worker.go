package pipeline

import (
	"context"
	"log"
	"time"

	"github.com/gammazero/workerpool"

	"autoreply/config"
	"autoreply/core"
	"autoreply/models"
	"autoreply/services"
)

// Worker is the queue consumer. One Worker is one logical consumer: events
// are processed sequentially on a single-slot pool, which is what keeps the
// dedup ledger's read-then-write usage safe within a deployment.
type Worker struct {
	eventsService services.EventsService
	pipeline      *PipelineUseCase
	cfg           config.WorkerConfig
	pool          *workerpool.WorkerPool
}

func NewWorker(eventsService services.EventsService, pipeline *PipelineUseCase, cfg config.WorkerConfig) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 1 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	return &Worker{
		eventsService: eventsService,
		pipeline:      pipeline,
		cfg:           cfg,
		pool:          workerpool.New(1), // Sequential processing
	}
}

// Run polls the queue until ctx is cancelled. Queue backend errors back off
// and retry; nothing in here ever stops the loop for a single bad event.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("🚀 Worker loop started (poll %s, max attempts %d)", w.cfg.PollInterval, w.cfg.MaxAttempts)

	for {
		select {
		case <-ctx.Done():
			log.Printf("🛑 Worker loop stopping, draining in-flight dispatch")
			w.pool.StopWait()
			return
		default:
		}

		maybeQueued, err := w.eventsService.DequeueEvent(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("❌ Failed to dequeue event, backing off: %v", err)
			w.sleep(ctx, w.cfg.ErrorBackoff)
			continue
		}

		if !maybeQueued.IsPresent() {
			w.sleep(ctx, w.cfg.PollInterval)
			continue
		}

		queued := maybeQueued.MustGet()
		w.pool.SubmitWait(func() {
			w.ProcessQueuedEvent(ctx, queued)
		})
	}
}

// ProcessQueuedEvent runs one event through the pipeline and routes the
// outcome: terminal outcomes discard the event, transient failures requeue
// it with a bounded attempt count, permanent failures (or exhausted
// attempts) park it on the failed list for manual replay.
func (w *Worker) ProcessQueuedEvent(ctx context.Context, queued *models.QueuedEvent) {
	event := queued.Event

	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic while processing event %s, moving to failed list: %v", event.RequestID, r)
			w.moveToFailed(ctx, event, queued.Attempts+1)
		}
	}()

	_, err := w.pipeline.ProcessEvent(ctx, event)
	if err == nil {
		return
	}

	attempts := queued.Attempts + 1
	if core.IsTransientError(err) && attempts < w.cfg.MaxAttempts {
		log.Printf("🔁 Transient failure for event %s (attempt %d/%d): %v", event.RequestID, attempts, w.cfg.MaxAttempts, err)
		if requeueErr := w.eventsService.RequeueEvent(ctx, event, attempts); requeueErr != nil {
			log.Printf("❌ Failed to requeue event %s, moving to failed list: %v", event.RequestID, requeueErr)
			w.moveToFailed(ctx, event, attempts)
		}
		return
	}

	log.Printf("❌ Permanent failure for event %s after %d attempts: %v", event.RequestID, attempts, err)
	w.moveToFailed(ctx, event, attempts)
}

func (w *Worker) moveToFailed(ctx context.Context, event *models.InboundEvent, attempts int) {
	if err := w.eventsService.MoveEventToFailed(ctx, event, attempts); err != nil {
		// The event is lost from the queue at this point; all that is
		// left is to make the loss visible
		log.Printf("❌ Failed to park event %s on the failed list: %v", event.RequestID, err)
	}
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
