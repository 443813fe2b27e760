package refresher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"netexplorer/core-go/internal/controller"
	"netexplorer/core-go/internal/metrics"
	"netexplorer/core-go/internal/nodestats"
	"netexplorer/core-go/internal/topology"
)

// Loader is the part of the controller the refresher drives.
type Loader interface {
	LoadTrackers(ctx context.Context) error
	Nodes() []topology.Node
}

// Recorder stores stat samples. *persist.Store satisfies this.
type Recorder interface {
	RecordStats(ctx context.Context, st nodestats.Stats) (int, error)
}

type Options struct {
	Interval      time.Duration
	RetryBase     time.Duration
	SampleWorkers int
	SampleTimeout time.Duration
	// MaxSampleNodes caps how many nodes are sampled per run; 0 samples all.
	MaxSampleNodes int
}

// Refresher reloads trackers periodically and samples node stats into the
// recorder. Failed reloads are retried sooner, backing off exponentially up
// to the regular interval.
type Refresher struct {
	log           zerolog.Logger
	loader        Loader
	stats         nodestats.Source
	rec           Recorder
	interval      time.Duration
	retryBase     time.Duration
	sampleWorkers int
	sampleTimeout time.Duration
	maxSample     int
	metrics       *metrics.Metrics
}

func New(log zerolog.Logger, loader Loader, stats nodestats.Source, rec Recorder, opts Options, m *metrics.Metrics) *Refresher {
	interval := opts.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	retry := opts.RetryBase
	if retry <= 0 {
		retry = 2 * time.Second
	}
	workers := opts.SampleWorkers
	if workers <= 0 {
		workers = 8
	}
	timeout := opts.SampleTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	maxSample := opts.MaxSampleNodes
	if maxSample < 0 {
		maxSample = 0
	}
	return &Refresher{
		log:           log,
		loader:        loader,
		stats:         stats,
		rec:           rec,
		interval:      interval,
		retryBase:     retry,
		sampleWorkers: workers,
		sampleTimeout: timeout,
		maxSample:     maxSample,
		metrics:       m,
	}
}

// Run blocks until ctx is done. The first refresh happens immediately.
func (r *Refresher) Run(ctx context.Context) {
	if r == nil || r.loader == nil {
		return
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	var consecutiveFailures int
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := r.runOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			consecutiveFailures++
		} else {
			consecutiveFailures = 0
		}

		timer.Reset(retryDelay(r.interval, r.retryBase, consecutiveFailures))
	}
}

func retryDelay(interval, base time.Duration, failures int) time.Duration {
	if failures <= 0 {
		return interval
	}

	// base * 2^(failures-1), never longer than the regular interval.
	if failures > 7 {
		failures = 7
	}
	d := base * time.Duration(1<<(failures-1))
	if d > interval {
		return interval
	}
	return d
}

func (r *Refresher) runOnce(ctx context.Context) error {
	r.metrics.IncRefreshRun()

	err := r.loader.LoadTrackers(ctx)
	switch {
	case errors.Is(err, controller.ErrStale):
		// A concurrent load won; its outcome stands.
	case err != nil:
		r.log.Warn().Err(err).Msg("refresh: tracker load failed")
		return err
	}

	if r.stats != nil && r.rec != nil {
		sampled, stored := r.sample(ctx)
		r.log.Debug().Int("sampled", sampled).Int("stored", stored).Msg("refresh: node stats sampled")
	}
	return nil
}

// sample fetches stats for the current nodes with a bounded worker pool and
// records every loaded value.
func (r *Refresher) sample(ctx context.Context) (sampled, stored int) {
	nodes := r.loader.Nodes()
	if r.maxSample > 0 && len(nodes) > r.maxSample {
		nodes = nodes[:r.maxSample]
	}

	var nSampled, nStored int32
	jobs := make(chan string)
	wg := sync.WaitGroup{}

	worker := func() {
		defer wg.Done()
		for id := range jobs {
			if ctx.Err() != nil {
				return
			}

			fetchCtx, cancel := context.WithTimeout(ctx, r.sampleTimeout)
			st, err := r.stats.Fetch(fetchCtx, id)
			cancel()
			if errors.Is(err, nodestats.ErrNoTarget) {
				continue
			}
			if err != nil {
				r.metrics.IncStatSample(st.Source, "error")
				r.log.Debug().Err(err).Str("node_id", id).Msg("refresh: stats fetch failed")
			} else {
				r.metrics.IncStatSample(st.Source, "ok")
			}
			atomic.AddInt32(&nSampled, 1)

			n, err := r.rec.RecordStats(ctx, st)
			if err != nil {
				r.log.Warn().Err(err).Str("node_id", id).Msg("refresh: record stats failed")
			}
			atomic.AddInt32(&nStored, int32(n))
		}
	}

	for i := 0; i < r.sampleWorkers; i++ {
		wg.Add(1)
		go worker()
	}

loop:
	for _, n := range nodes {
		select {
		case <-ctx.Done():
			break loop
		case jobs <- n.ID:
		}
	}
	close(jobs)
	wg.Wait()

	return int(nSampled), int(nStored)
}
