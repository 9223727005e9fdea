// Package sampler periodically reads host statistics and pushes them into
// the metric cache.
package sampler

import (
	"context"
	"errors"
	"time"

	"github.com/c2h5oh/datasize"

	"machine-metrics/internal/domain"
	"machine-metrics/internal/util"
)

type Options struct {
	// Interface is the network interface whose counters are sampled.
	Interface string
	Interval  time.Duration
	// Archive, when set, receives every tick after it reaches the cache.
	Archive domain.SampleArchive
}

// Sampler is the cache's only writer. Run must not be called concurrently
// with itself.
type Sampler struct {
	cache  domain.MetricCache
	source Source
	logger *util.MetricsLogger
	opts   Options
	now    func() time.Time
}

func New(cache domain.MetricCache, source Source, logger *util.MetricsLogger, opts Options) *Sampler {
	return &Sampler{
		cache:  cache,
		source: source,
		logger: logger,
		opts:   opts,
		now:    time.Now,
	}
}

// Run samples once immediately and then on every interval until ctx is done.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	s.Sample(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.LogEvent(util.LOG_LEVEL_INFO, "Sampler stopped")
			return
		case <-ticker.C:
			s.Sample(ctx)
		}
	}
}

// Sample takes one reading of every metric, pushes it and returns what was
// pushed. A metric whose source fails is skipped for this tick only.
func (s *Sampler) Sample(ctx context.Context) []domain.Sample {
	timestamp := uint64(s.now().Unix())
	var samples []domain.Sample

	add := func(key domain.MetricKey, value float64) {
		point := domain.MetricPoint{Timestamp: timestamp, Value: value}
		s.cache.Push(key, point)
		samples = append(samples, domain.Sample{Key: key, Point: point})
	}

	total, perCore, err := s.source.CPUUsage(ctx)
	if err != nil {
		s.logger.LogEvent(util.LOG_LEVEL_WARN, "Skipping cpu sample. Err - ", err)
	} else {
		add(domain.CPUsUsage, total)
		for core, usage := range perCore {
			add(domain.CPUUsage(core), usage)
		}
	}

	memUsage, err := s.source.MemoryUsage(ctx)
	if err != nil {
		s.logger.LogEvent(util.LOG_LEVEL_WARN, "Skipping memory sample. Err - ", err)
	} else {
		add(domain.MemUsage, memUsage)
	}

	tx, rx, err := s.source.NetCounters(ctx, s.opts.Interface)
	switch {
	case errors.Is(err, ErrInterfaceNotFound):
		s.logger.LogEvent(util.LOG_LEVEL_WARN, "Skipping network sample, interface not present -", s.opts.Interface)
	case err != nil:
		s.logger.LogEvent(util.LOG_LEVEL_WARN, "Skipping network sample. Err - ", err)
	default:
		add(domain.NetTxUsage, float64(tx))
		add(domain.NetRxUsage, float64(rx))
		s.logger.LogEvent(util.LOG_LEVEL_DEBUG, "Sampled", s.opts.Interface,
			"tx", datasize.ByteSize(tx).HumanReadable(), "rx", datasize.ByteSize(rx).HumanReadable())
	}

	if s.opts.Archive != nil && len(samples) > 0 {
		if err := s.opts.Archive.StoreSamples(ctx, samples); err != nil {
			s.logger.LogEvent(util.LOG_LEVEL_ERROR, "Failed to archive samples. Err - ", err)
		}
	}

	return samples
}
