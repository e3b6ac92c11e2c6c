package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// Outcome labels for finished commands.
const (
	OutcomeCompleted = "completed"
	OutcomeCacheHit  = "cache_hit"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
	OutcomeCancelled = "cancelled"
)

// Recorder receives pipeline events from the command manager.
type Recorder interface {
	CommandSubmitted(commandType models.CommandType)
	QueueRejected(depth int)
	CacheLookup(hit bool)
	CommandFinished(ctx context.Context, commandType models.CommandType, outcome string, duration time.Duration)
}

// Snapshot is a point-in-time copy of the pipeline counters.
type Snapshot struct {
	Submitted             int64            `json:"submitted"`
	QueueRejected         int64            `json:"queue_rejected"`
	CacheHits             int64            `json:"cache_hits"`
	CacheMisses           int64            `json:"cache_misses"`
	Outcomes              map[string]int64 `json:"outcomes"`
	ByType                map[string]int64 `json:"submitted_by_type"`
	AvgGenerationDuration float64          `json:"avg_generation_ms"`
}

// Pipeline keeps in-process counters for the metrics endpoint and forwards every event
// to Sentry and CloudWatch when those sinks are configured.
type Pipeline struct {
	sentry     *SentryMetrics
	cloudwatch *Client

	submitted     atomic.Int64
	queueRejected atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64

	mu          sync.Mutex
	outcomes    map[string]int64
	byType      map[string]int64
	genCount    int64
	genTotalDur time.Duration
}

// NewPipeline builds a recorder. Either sink may be nil.
func NewPipeline(s *SentryMetrics, cw *Client) *Pipeline {
	return &Pipeline{
		sentry:     s,
		cloudwatch: cw,
		outcomes:   make(map[string]int64),
		byType:     make(map[string]int64),
	}
}

func (p *Pipeline) CommandSubmitted(commandType models.CommandType) {
	p.submitted.Add(1)
	p.mu.Lock()
	p.byType[string(commandType)]++
	p.mu.Unlock()
	p.cloudwatch.RecordSubmission(commandType)
}

func (p *Pipeline) QueueRejected(depth int) {
	p.queueRejected.Add(1)
	p.sentry.RecordQueueRejection(depth)
	p.cloudwatch.RecordQueueRejection()
}

func (p *Pipeline) CacheLookup(hit bool) {
	if hit {
		p.cacheHits.Add(1)
	} else {
		p.cacheMisses.Add(1)
	}
	p.cloudwatch.RecordCacheLookup(hit)
}

// CommandFinished records a terminal outcome. duration is zero for commands that never
// reached the backend.
func (p *Pipeline) CommandFinished(ctx context.Context, commandType models.CommandType, outcome string, duration time.Duration) {
	p.mu.Lock()
	p.outcomes[outcome]++
	if outcome == OutcomeCompleted && duration > 0 {
		p.genCount++
		p.genTotalDur += duration
	}
	p.mu.Unlock()

	p.sentry.RecordCommandFinished(ctx, commandType, outcome, duration)
	p.cloudwatch.RecordCommandFinished(commandType, outcome, duration)
}

// RecordAPIRequest forwards request timings to both sinks.
func (p *Pipeline) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	p.sentry.RecordAPIRequest(ctx, endpoint, statusCode, duration)
	p.cloudwatch.RecordAPIRequest(endpoint, statusCode, duration)
}

// Snapshot returns a copy of the counters.
func (p *Pipeline) Snapshot() Snapshot {
	s := Snapshot{
		Submitted:     p.submitted.Load(),
		QueueRejected: p.queueRejected.Load(),
		CacheHits:     p.cacheHits.Load(),
		CacheMisses:   p.cacheMisses.Load(),
		Outcomes:      make(map[string]int64),
		ByType:        make(map[string]int64),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for k, v := range p.outcomes {
		s.Outcomes[k] = v
	}
	for k, v := range p.byType {
		s.ByType[k] = v
	}
	if p.genCount > 0 {
		s.AvgGenerationDuration = float64(p.genTotalDur.Milliseconds()) / float64(p.genCount)
	}
	return s
}

// Nop discards every event.
type Nop struct{}

func (Nop) CommandSubmitted(models.CommandType) {}
func (Nop) QueueRejected(int) {}
func (Nop) CacheLookup(bool) {}
func (Nop) CommandFinished(context.Context, models.CommandType, string, time.Duration) {}
