// Package dispatcher performs bounded-parallel fan-out across many
// conversations: batch creation and broadcast messaging. A weighted
// semaphore sized independently of the batch caps how many sub-operations
// are live at once, so batches of thousands never create thousands of
// simultaneous goroutine bodies doing real work. Aggregate deadlines bound
// how long the caller waits; they do not abort sub-operations already
// admitted, which may complete afterwards.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/GeorgePearse/concurrent-ai-chat/core"
	"github.com/GeorgePearse/concurrent-ai-chat/logging"
	"github.com/GeorgePearse/concurrent-ai-chat/registry"
	"github.com/GeorgePearse/concurrent-ai-chat/supervisor"
)

// Config defines tuning parameters for dispatcher fan-out.
type Config struct {
	// MaxWorkers caps concurrently executing sub-operations. It is the
	// single admission-control knob preventing unbounded parallel
	// spawn/broadcast. Must be positive.
	MaxWorkers int

	// CreateTimeout is the aggregate deadline for CreateBatch.
	CreateTimeout time.Duration

	// BroadcastTimeout is the aggregate deadline for Broadcast.
	BroadcastTimeout time.Duration
}

// DefaultConfig provides conservative defaults safe for most environments.
var DefaultConfig = Config{
	MaxWorkers:       10,
	CreateTimeout:    30 * time.Second,
	BroadcastTimeout: 60 * time.Second,
}

// Outcome is the per-conversation result of a batch operation.
type Outcome struct {
	Text string
	Err  error
}

// BatchResult maps each requested conversation ID to its outcome. Every
// requested ID appears exactly once; ordering is not meaningful.
type BatchResult map[string]Outcome

// Dispatcher fans identical or independent requests out to many
// conversation actors and fans the results back in. Safe for concurrent use.
type Dispatcher struct {
	supervisor *supervisor.Supervisor
	registry   *registry.Registry
	config     Config
	logger     logging.Logger
	sem        *semaphore.Weighted
}

// Options configure a Dispatcher.
type Options struct {
	Config Config
	Logger logging.Logger
}

// New constructs a Dispatcher over the given supervisor and registry.
func New(sup *supervisor.Supervisor, reg *registry.Registry, optFns ...func(o *Options)) *Dispatcher {
	opts := Options{Config: DefaultConfig, Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Config.MaxWorkers <= 0 {
		opts.Config.MaxWorkers = DefaultConfig.MaxWorkers
	}
	return &Dispatcher{
		supervisor: sup,
		registry:   reg,
		config:     opts.Config,
		logger:     opts.Logger,
		sem:        semaphore.NewWeighted(int64(opts.Config.MaxWorkers)),
	}
}

// CreateBatch issues n concurrent conversation creations bounded by the
// worker cap and returns the IDs of those that succeeded within the
// aggregate deadline. Deadline expiry stops the wait; creations already
// admitted through the semaphore run to completion and stay registered,
// but their IDs are not reported.
func (d *Dispatcher) CreateBatch(ctx context.Context, n int, opts supervisor.CreateOptions) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: batch count must be positive, got %d", core.ErrInvalidArgument, n)
	}

	ctx, cancel := context.WithTimeout(ctx, d.config.CreateTimeout)
	defer cancel()

	start := time.Now()
	results := make(chan string, n)
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := d.sem.Acquire(ctx, 1); err != nil {
				return // deadline fired before admission
			}
			defer d.sem.Release(1)

			// Each batch member gets a generated ID; the creation itself is
			// deliberately detached from the aggregate deadline.
			o := opts
			o.ID = ""
			id, err := d.supervisor.Create(context.Background(), o)
			if err != nil {
				d.logger.Warn("batch create failed", "error", err)
				return
			}
			results <- id
		}()
	}

	d.await(ctx, &wg)

	ids := drainIDs(results)
	d.logger.Info("create batch finished",
		"requested", n, "created", len(ids), "duration", time.Since(start))
	return ids, nil
}

// Broadcast sends text to every listed conversation concurrently, bounded
// by the worker cap. Every requested ID appears exactly once in the result;
// one conversation's failure never cancels or fails the others. Entries
// whose send has not resolved when the aggregate deadline fires report
// core.ErrBackendTimeout; the underlying send may still complete afterwards
// and the conversation's state will reflect it.
func (d *Dispatcher) Broadcast(ctx context.Context, ids []string, text string) BatchResult {
	ctx, cancel := context.WithTimeout(ctx, d.config.BroadcastTimeout)
	defer cancel()

	type entry struct {
		id  string
		out Outcome
	}

	start := time.Now()
	results := make(chan entry, len(ids))
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := d.sem.Acquire(ctx, 1); err != nil {
				results <- entry{id: id, out: Outcome{Err: core.ErrBackendTimeout}}
				return
			}
			defer d.sem.Release(1)

			h, err := d.registry.Lookup(id)
			if err != nil {
				results <- entry{id: id, out: Outcome{Err: err}}
				return
			}

			// Detached from the aggregate deadline: an in-flight send is
			// bounded by the conversation's own per-call timeout instead.
			reply, err := h.Send(context.Background(), text)
			results <- entry{id: id, out: Outcome{Text: reply, Err: err}}
		}(id)
	}

	d.await(ctx, &wg)

	res := make(BatchResult, len(ids))
drain:
	for {
		select {
		case e := <-results:
			res[e.id] = e.out
		default:
			break drain
		}
	}
	for _, id := range ids {
		if _, ok := res[id]; !ok {
			res[id] = Outcome{Err: core.ErrBackendTimeout}
		}
	}

	d.logger.Info("broadcast finished",
		"requested", len(ids), "resolved", len(res), "duration", time.Since(start))
	return res
}

// await blocks until every worker finished or the aggregate deadline fired,
// whichever is first.
func (d *Dispatcher) await(ctx context.Context, wg *sync.WaitGroup) {
	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-ctx.Done():
	}
}

func drainIDs(ch <-chan string) []string {
	var ids []string
	for {
		select {
		case id := <-ch:
			ids = append(ids, id)
		default:
			return ids
		}
	}
}
