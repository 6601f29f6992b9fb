package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"logrelay/src/internal/config"
	"logrelay/src/internal/core"
	"logrelay/src/internal/filter"
	"logrelay/src/internal/format"
	"logrelay/src/internal/sink"
	"logrelay/src/internal/source"

	"github.com/lixenwraith/log"
)

// Pipeline manages the flow of data from sources through filters to sinks
type Pipeline struct {
	Config      *config.PipelineConfig
	Sources     []source.Source
	FilterChain *filter.Chain
	Sinks       []sink.Sink
	Stats       *PipelineStats
	logger      *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PipelineStats contains statistics for a pipeline
type PipelineStats struct {
	StartTime             time.Time
	TotalEntriesProcessed atomic.Uint64
	TotalEntriesFiltered  atomic.Uint64
}

// NewPipeline builds a pipeline from configuration. Nothing runs until
// Start is called.
func NewPipeline(cfg *config.PipelineConfig, logger *log.Logger) (*Pipeline, error) {
	logger.Debug("msg", "Creating pipeline", "pipeline", cfg.Name)

	p := &Pipeline{
		Config: cfg,
		Stats: &PipelineStats{
			StartTime: time.Now(),
		},
		logger: logger,
	}

	for i, srcCfg := range cfg.Sources {
		src, err := source.New(srcCfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create source[%d]: %w", i, err)
		}
		p.Sources = append(p.Sources, src)
	}

	if len(cfg.Filters) > 0 {
		chain, err := filter.NewChain(cfg.Filters, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create filter chain: %w", err)
		}
		p.FilterChain = chain
	}

	// One formatter per distinct configuration, shared by every sink
	formatter, err := format.GetOrCreate(cfg.Format, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create formatter: %w", err)
	}

	for i, sinkCfg := range cfg.Sinks {
		sinkInst, err := sink.New(sinkCfg, logger, formatter)
		if err != nil {
			return nil, fmt.Errorf("failed to create sink[%d]: %w", i, err)
		}
		p.Sinks = append(p.Sinks, sinkInst)
	}

	return p, nil
}

// Start launches sources and sinks and wires them together.
func (p *Pipeline) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i, sinkInst := range p.Sinks {
		if err := sinkInst.Start(p.ctx); err != nil {
			p.Shutdown()
			return fmt.Errorf("failed to start sink[%d]: %w", i, err)
		}
	}

	for i, src := range p.Sources {
		if err := src.Start(); err != nil {
			p.Shutdown()
			return fmt.Errorf("failed to start source[%d]: %w", i, err)
		}
	}

	p.wire()

	p.logger.Info("msg", "Pipeline started",
		"pipeline", p.Config.Name,
		"source_count", len(p.Sources),
		"sink_count", len(p.Sinks))
	return nil
}

// wire subscribes to each source and pumps entries through the filter
// chain into every sink.
func (p *Pipeline) wire() {
	for _, src := range p.Sources {
		srcChan := src.Subscribe()

		p.wg.Add(1)
		go func(src source.Source, entries <-chan core.LogEntry) {
			defer p.wg.Done()

			// Panic recovery to prevent a single source from crashing
			// the pipeline
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("msg", "Panic in pipeline processing",
						"pipeline", p.Config.Name,
						"source", src.GetStats().Type,
						"panic", r)
				}
			}()

			for {
				select {
				case <-p.ctx.Done():
					return
				case entry, ok := <-entries:
					if !ok {
						return
					}

					p.Stats.TotalEntriesProcessed.Add(1)

					if p.FilterChain != nil {
						if !p.FilterChain.Apply(entry) {
							p.Stats.TotalEntriesFiltered.Add(1)
							continue
						}
					}

					for _, sinkInst := range p.Sinks {
						select {
						case sinkInst.Input() <- entry:
						default:
							p.logger.Debug("msg", "Sink input full, entry dropped",
								"pipeline", p.Config.Name,
								"sink", sinkInst.GetStats().Type)
						}
					}
				}
			}
		}(src, srcChan)
	}
}

// Shutdown gracefully stops the pipeline: sources first so no new
// entries arrive, then sinks so buffered entries still drain.
func (p *Pipeline) Shutdown() {
	p.logger.Info("msg", "Shutting down pipeline",
		"component", "pipeline",
		"pipeline", p.Config.Name)

	for _, src := range p.Sources {
		src.Stop()
	}

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	var wg sync.WaitGroup
	for _, s := range p.Sinks {
		wg.Add(1)
		go func(sinkInst sink.Sink) {
			defer wg.Done()
			sinkInst.Stop()
		}(s)
	}
	wg.Wait()

	p.logger.Info("msg", "Pipeline shutdown complete",
		"component", "pipeline",
		"pipeline", p.Config.Name)
}

// GetStats returns pipeline statistics
func (p *Pipeline) GetStats() map[string]any {
	sourceStats := make([]map[string]any, 0, len(p.Sources))
	for _, src := range p.Sources {
		stats := src.GetStats()
		sourceStats = append(sourceStats, map[string]any{
			"type":            stats.Type,
			"total_entries":   stats.TotalEntries,
			"dropped_entries": stats.DroppedEntries,
			"start_time":      stats.StartTime,
			"last_entry_time": stats.LastEntryTime,
			"details":         stats.Details,
		})
	}

	var filterStats map[string]any
	if p.FilterChain != nil {
		filterStats = p.FilterChain.GetStats()
	}

	sinkStats := make([]map[string]any, 0, len(p.Sinks))
	for _, s := range p.Sinks {
		stats := s.GetStats()
		sinkStats = append(sinkStats, map[string]any{
			"type":            stats.Type,
			"total_processed": stats.TotalProcessed,
			"start_time":      stats.StartTime,
			"last_processed":  stats.LastProcessed,
			"details":         stats.Details,
		})
	}

	return map[string]any{
		"name":            p.Config.Name,
		"uptime_seconds":  int(time.Since(p.Stats.StartTime).Seconds()),
		"total_processed": p.Stats.TotalEntriesProcessed.Load(),
		"total_filtered":  p.Stats.TotalEntriesFiltered.Load(),
		"sources":         sourceStats,
		"sinks":           sinkStats,
		"filters":         filterStats,
		"source_count":    len(p.Sources),
		"sink_count":      len(p.Sinks),
		"filter_count":    len(p.Config.Filters),
	}
}
