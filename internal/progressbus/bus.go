// Package progressbus implements the in-process pub/sub used to bridge
// long-running ingestion and clustering jobs to Server-Sent Events
// clients. A Bus is keyed by caller-supplied request IDs: publishers
// call Emit/Complete/Fail, subscribers call Subscribe and drain a
// channel of domain.ProgressEvent until it closes.
package progressbus

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/channelintel/backend/internal/domain"
)

var (
	activeJobs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "channelintel",
		Subsystem: "progressbus",
		Name:      "active_jobs",
		Help:      "Number of progress jobs currently tracked in memory.",
	})

	eventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "channelintel",
		Subsystem: "progressbus",
		Name:      "events_dropped_total",
		Help:      "Number of progress events dropped because a subscriber's queue was full.",
	})
)

// MustRegister registers the Bus's collectors with reg. Call once
// during startup.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(activeJobs, eventsDropped)
}

const (
	// DefaultQueueSize is the buffer size of each subscriber's event
	// channel, so a slow subscriber cannot grow memory unbounded; when
	// the buffer is full its oldest queued event is dropped.
	DefaultQueueSize = 256

	// DefaultGracePeriod is how long a completed or failed job's final
	// state remains queryable after Complete or Fail, before the job is
	// evicted from memory.
	DefaultGracePeriod = 30 * time.Second
)

// job tracks one in-flight or recently finished progress stream.
type job struct {
	mu        sync.Mutex
	latest    domain.ProgressEvent
	done      bool
	subs      map[chan domain.ProgressEvent]struct{}
	evictTmr  *time.Timer
	queueSize int
}

// Bus fans out ProgressEvents to subscribers, keyed by request ID.
type Bus struct {
	mu          sync.Mutex
	jobs        map[string]*job
	queueSize   int
	gracePeriod time.Duration
	logger      *zerolog.Logger
}

// New creates a Bus with the given per-subscriber queue size and grace
// period. Zero values fall back to the package defaults.
func New(queueSize int, gracePeriod time.Duration, logger *zerolog.Logger) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}

	return &Bus{
		jobs:        make(map[string]*job),
		queueSize:   queueSize,
		gracePeriod: gracePeriod,
		logger:      logger,
	}
}

func (b *Bus) getOrCreateJob(requestID string) *job {
	b.mu.Lock()
	defer b.mu.Unlock()

	if j, ok := b.jobs[requestID]; ok {
		return j
	}

	j := &job{
		subs:      make(map[chan domain.ProgressEvent]struct{}),
		queueSize: b.queueSize,
	}
	b.jobs[requestID] = j
	activeJobs.Inc()

	return j
}

// Emit publishes a progress snapshot for requestID, creating the job's
// in-memory entry if this is the first event for it.
func (b *Bus) Emit(requestID string, event domain.ProgressEvent) {
	j := b.getOrCreateJob(requestID)
	b.publish(j, event, false)
}

// Complete publishes a terminal success snapshot and schedules the job
// for eviction after the grace period.
func (b *Bus) Complete(requestID string, event domain.ProgressEvent) {
	j := b.getOrCreateJob(requestID)
	b.publish(j, event, true)
	b.scheduleEviction(requestID, j)
}

// Fail publishes a terminal snapshot carrying an error message and
// schedules the job for eviction after the grace period.
func (b *Bus) Fail(requestID string, event domain.ProgressEvent, errMsg string) {
	event.Error = errMsg

	j := b.getOrCreateJob(requestID)
	b.publish(j, event, true)
	b.scheduleEviction(requestID, j)
}

func (b *Bus) publish(j *job, event domain.ProgressEvent, done bool) {
	j.mu.Lock()
	j.latest = event
	j.done = done

	for ch := range j.subs {
		select {
		case ch <- event:
		default:
			// Queue full: drop the oldest queued event so the newest is kept.
			select {
			case <-ch:
			default:
			}

			ch <- event

			eventsDropped.Inc()

			if b.logger != nil {
				b.logger.Warn().Msg("progress subscriber queue full, dropping oldest event")
			}
		}

		if done {
			close(ch)
			delete(j.subs, ch)
		}
	}

	j.mu.Unlock()
}

func (b *Bus) scheduleEviction(requestID string, j *job) {
	j.mu.Lock()
	if j.evictTmr != nil {
		j.evictTmr.Stop()
	}

	j.evictTmr = time.AfterFunc(b.gracePeriod, func() {
		b.mu.Lock()
		delete(b.jobs, requestID)
		b.mu.Unlock()
		activeJobs.Dec()
	})
	j.mu.Unlock()
}

// Subscribe returns a channel of ProgressEvents for requestID, and an
// unsubscribe function the caller must invoke when it stops reading
// (e.g. the SSE client disconnects). If the job is already done, the
// channel receives its final event and is closed immediately.
func (b *Bus) Subscribe(requestID string) (<-chan domain.ProgressEvent, func()) {
	j := b.getOrCreateJob(requestID)

	ch := make(chan domain.ProgressEvent, j.queueSize)

	j.mu.Lock()
	if j.done {
		ch <- j.latest
		close(ch)
	} else {
		j.subs[ch] = struct{}{}
	}
	j.mu.Unlock()

	unsubscribe := func() {
		j.mu.Lock()
		delete(j.subs, ch)
		j.mu.Unlock()
	}

	return ch, unsubscribe
}

// Snapshot returns the latest known ProgressEvent for requestID and
// whether the job exists at all.
func (b *Bus) Snapshot(requestID string) (domain.ProgressEvent, bool) {
	b.mu.Lock()
	j, ok := b.jobs[requestID]
	b.mu.Unlock()

	if !ok {
		return domain.ProgressEvent{}, false
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	return j.latest, true
}
