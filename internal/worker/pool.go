// Package worker persists similarity lookup results in the background.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/csmather/better-recs/internal/core/domain"
	"github.com/csmather/better-recs/internal/core/ports"
	"github.com/csmather/better-recs/internal/logging"
	"github.com/csmather/better-recs/internal/metrics"
)

const defaultWriteTimeout = 5 * time.Second

// Job is one lookup result waiting to be cached.
type Job struct {
	ArtistName string
	Similar    []domain.SimilarArtist
}

// Pool drains a bounded queue of cache writes.
type Pool struct {
	cache        ports.SimilarityCache
	jobs         chan Job
	wg           sync.WaitGroup
	mu           sync.RWMutex
	stopped      bool
	writeTimeout time.Duration
}

// NewPool creates a pool writing to cache with the given queue size.
func NewPool(cache ports.SimilarityCache, queueSize int) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		cache:        cache,
		jobs:         make(chan Job, queueSize),
		writeTimeout: defaultWriteTimeout,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop closes the queue and waits for queued jobs to finish. Calling it again is a
// no-op.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues a job without blocking. Jobs are dropped when the queue is full or
// the pool has been stopped.
func (p *Pool) Submit(job Job) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		metrics.CacheJobsDropped.Inc()
		logging.Debug().Str("artist", job.ArtistName).Msg("worker: pool stopped, dropping cache write")
		return
	}
	select {
	case p.jobs <- job:
	default:
		metrics.CacheJobsDropped.Inc()
		logging.Warn().Str("artist", job.ArtistName).Msg("worker: queue full, dropping cache write")
	}
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()

	if err := p.cache.Set(ctx, job.ArtistName, job.Similar); err != nil {
		metrics.CacheErrors.WithLabelValues("set").Inc()
		logging.Warn().Err(err).Str("artist", job.ArtistName).Msg("worker: failed to cache similar artists")
		return
	}
	logging.Debug().Str("artist", job.ArtistName).Int("similar", len(job.Similar)).Msg("worker: cached similar artists")
}
