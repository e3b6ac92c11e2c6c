package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

func TestPipelineSnapshot(t *testing.T) {
	p := NewPipeline(nil, nil)
	ctx := context.Background()

	p.CommandSubmitted(models.CommandTextToMusic)
	p.CommandSubmitted(models.CommandTextToMusic)
	p.CommandSubmitted(models.CommandPitchCorrection)
	p.CacheLookup(true)
	p.CacheLookup(false)
	p.CacheLookup(false)
	p.QueueRejected(100)
	p.CommandFinished(ctx, models.CommandTextToMusic, OutcomeCompleted, 100*time.Millisecond)
	p.CommandFinished(ctx, models.CommandTextToMusic, OutcomeCompleted, 300*time.Millisecond)
	p.CommandFinished(ctx, models.CommandTextToMusic, OutcomeCacheHit, 0)
	p.CommandFinished(ctx, models.CommandPitchCorrection, OutcomeTimeout, time.Second)

	s := p.Snapshot()
	assert.Equal(t, int64(3), s.Submitted)
	assert.Equal(t, int64(1), s.QueueRejected)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(2), s.CacheMisses)
	assert.Equal(t, int64(2), s.ByType["text_to_music"])
	assert.Equal(t, int64(1), s.ByType["pitch_correction"])
	assert.Equal(t, int64(2), s.Outcomes[OutcomeCompleted])
	assert.Equal(t, int64(1), s.Outcomes[OutcomeTimeout])
	assert.InDelta(t, 200.0, s.AvgGenerationDuration, 0.001)
}

func TestPipelineSnapshotIsCopy(t *testing.T) {
	p := NewPipeline(nil, nil)
	p.CommandSubmitted(models.CommandImprovisation)

	s := p.Snapshot()
	s.ByType["improvisation"] = 99

	assert.Equal(t, int64(1), p.Snapshot().ByType["improvisation"])
}

func TestPipelineConcurrentEvents(t *testing.T) {
	p := NewPipeline(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.CommandSubmitted(models.CommandTextToMusic)
			p.CacheLookup(false)
			p.CommandFinished(context.Background(), models.CommandTextToMusic, OutcomeFailed, 0)
		}()
	}
	wg.Wait()

	s := p.Snapshot()
	require.Equal(t, int64(50), s.Submitted)
	assert.Equal(t, int64(50), s.CacheMisses)
	assert.Equal(t, int64(50), s.Outcomes[OutcomeFailed])
	assert.Zero(t, s.AvgGenerationDuration)
}

func TestDisabledCloudWatchClientIsNoop(t *testing.T) {
	c, err := NewClient(context.Background(), "development")
	require.NoError(t, err)
	assert.False(t, c.enabled)

	// none of these may panic or block
	c.RecordAPIRequest("/api/text-to-music", 202, time.Millisecond)
	c.RecordSubmission(models.CommandTextToMusic)
	c.RecordCacheLookup(true)
	c.RecordCommandFinished(models.CommandTextToMusic, OutcomeCompleted, time.Second)

	var nilClient *Client
	nilClient.RecordQueueRejection()
}
