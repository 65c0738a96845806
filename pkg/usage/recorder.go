package usage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ai-orchestrator-be/internal/entity"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/pkg/events"
)

// Publisher is the subset of the NATS publisher the recorder needs.
type Publisher interface {
	PublishTo(ctx context.Context, subject string, event events.Event) error
}

// Totals are the in-process aggregates for one backend target.
type Totals struct {
	Target    string        `json:"target"`
	Calls     int           `json:"calls"`
	Failures  int           `json:"failures"`
	Abandoned int           `json:"abandoned"`
	TokensIn  int           `json:"tokens_in"`
	TokensOut int           `json:"tokens_out"`
	Cost      float64       `json:"cost"`
	Latency   time.Duration `json:"latency"`
}

// Recorder aggregates usage synchronously and publishes each record from a
// background worker. Record never blocks: when the publish buffer is full the
// record is still aggregated but not published.
type Recorder struct {
	publisher Publisher
	logger    logger.ILogger
	timeout   time.Duration

	mu      sync.Mutex
	totals  map[string]*Totals
	dropped int

	sendMu sync.RWMutex
	closed bool
	queue  chan entity.Usage
	done   chan struct{}
}

// NewRecorder starts the publish worker. publisher may be nil.
func NewRecorder(publisher Publisher, buffer int, log logger.ILogger) *Recorder {
	if buffer < 1 {
		buffer = 256
	}
	r := &Recorder{
		publisher: publisher,
		logger:    log,
		timeout:   2 * time.Second,
		totals:    make(map[string]*Totals),
		queue:     make(chan entity.Usage, buffer),
		done:      make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *Recorder) Record(u entity.Usage) {
	r.mu.Lock()
	t, ok := r.totals[u.BackendTarget]
	if !ok {
		t = &Totals{Target: u.BackendTarget}
		r.totals[u.BackendTarget] = t
	}
	t.Calls++
	if !u.Success {
		t.Failures++
	}
	if u.Abandoned {
		t.Abandoned++
	}
	t.TokensIn += u.TokensIn
	t.TokensOut += u.TokensOut
	t.Cost += u.Cost
	t.Latency += u.Latency
	r.mu.Unlock()

	r.sendMu.RLock()
	defer r.sendMu.RUnlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- u:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Aggregate returns a copy of the totals, sorted by target.
func (r *Recorder) Aggregate() []Totals {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Totals, 0, len(r.totals))
	for _, t := range r.totals {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// Dropped counts records that were aggregated but never published.
func (r *Recorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops accepting publishes and waits for the queue to drain.
func (r *Recorder) Close(ctx context.Context) error {
	r.sendMu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.sendMu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("usage recorder did not drain: %w", ctx.Err())
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for u := range r.queue {
		if r.publisher == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.publisher.PublishTo(ctx, Subject(u.BackendTarget), ToEvent(u, time.Now()))
		cancel()
		if err != nil {
			r.logger.Warn("USAGE", "Failed to publish usage", map[string]interface{}{
				"target": u.BackendTarget,
				"error":  err.Error(),
			})
		}
	}
}

func Subject(target string) string {
	if target == "" {
		target = "unknown"
	}
	return "usage." + target
}

func ToEvent(u entity.Usage, at time.Time) events.BaseEvent {
	return events.BaseEvent{
		Type: events.UsageRecorded,
		Data: map[string]interface{}{
			"backend_target": u.BackendTarget,
			"model":          u.Model,
			"tokens_in":      u.TokensIn,
			"tokens_out":     u.TokensOut,
			"cost":           u.Cost,
			"latency_ms":     u.Latency.Milliseconds(),
			"success":        u.Success,
			"abandoned":      u.Abandoned,
		},
		OccurredAt: at,
	}
}
