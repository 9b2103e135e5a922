package notify

import (
	"context"
	"sync"
	"time"

	"github.com/nhle/teamtrack/internal/model"
)

// deliveryTimeout bounds the handling of a single job, retries included.
const deliveryTimeout = 2 * time.Minute

// maxBackoff caps the delay between two attempts.
const maxBackoff = 30 * time.Second

// job is one queued share notification.
type job struct {
	emails      []model.Email
	projectName string
}

// worker owns the delivery queue and the goroutine draining it.
type worker struct {
	queue       chan job
	handle      func(ctx context.Context, j job)
	maxAttempts int
	backoff     time.Duration

	mu      sync.Mutex
	running bool
	closed  bool
	done    chan struct{}
}

func newWorker(size, maxAttempts int, backoff time.Duration, handle func(context.Context, job)) *worker {
	return &worker{
		queue:       make(chan job, size),
		handle:      handle,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		done:        make(chan struct{}),
	}
}

// Start launches the delivery goroutine. Calling it twice is a no-op.
func (w *worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running || w.closed {
		return
	}
	w.running = true
	go w.loop()
}

// Stop closes the queue, waits for queued jobs to be delivered and
// returns. Jobs enqueued afterwards are dropped.
func (w *worker) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	running := w.running
	w.mu.Unlock()

	if running {
		<-w.done
	}
}

// enqueue adds a job without blocking. It reports false when the queue is
// full or closed.
func (w *worker) enqueue(j job) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return false
	}
	select {
	case w.queue <- j:
		return true
	default:
		return false
	}
}

func (w *worker) loop() {
	defer close(w.done)

	for j := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		w.handle(ctx, j)
		cancel()
	}
}

// retry calls fn until it succeeds or maxAttempts is reached, doubling the
// delay between attempts. It returns the number of attempts made and the
// last error.
func (w *worker) retry(ctx context.Context, fn func() error) (int, error) {
	delay := w.backoff
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(); err == nil {
			return attempt, nil
		}
		if attempt >= w.maxAttempts {
			return attempt, err
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxBackoff {
			delay = maxBackoff
		}
	}
}
