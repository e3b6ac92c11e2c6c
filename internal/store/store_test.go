package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand(id string) *models.Command {
	now := time.Now().UTC().Truncate(time.Millisecond)
	tempo := 100
	return &models.Command{
		ID:         id,
		Type:       models.CommandTextToMusic,
		TextInput:  "calm piano",
		Parameters: models.PartialParameters{Tempo: &tempo},
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// runStoreContract exercises behaviour every CommandStore must share.
func runStoreContract(t *testing.T, s CommandStore) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		id := uuid.NewString()
		require.NoError(t, s.Create(ctx, newCommand(id)))

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Equal(t, 100, *got.Parameters.Tempo)
	})

	t.Run("duplicate create", func(t *testing.T) {
		id := uuid.NewString()
		require.NoError(t, s.Create(ctx, newCommand(id)))
		err := s.Create(ctx, newCommand(id))
		assert.True(t, errors.Is(err, ErrExists))
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := s.Get(ctx, "does-not-exist")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("update applies", func(t *testing.T) {
		id := uuid.NewString()
		require.NoError(t, s.Create(ctx, newCommand(id)))

		err := s.Update(ctx, id, func(c *models.Command) error {
			c.Status = models.StatusProcessing
			return nil
		})
		require.NoError(t, err)

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusProcessing, got.Status)
	})

	t.Run("update error rolls back", func(t *testing.T) {
		id := uuid.NewString()
		require.NoError(t, s.Create(ctx, newCommand(id)))

		boom := errors.New("boom")
		err := s.Update(ctx, id, func(c *models.Command) error {
			c.Status = models.StatusFailed
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := s.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
	})

	t.Run("update unknown", func(t *testing.T) {
		err := s.Update(ctx, "missing", func(*models.Command) error { return nil })
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("delete", func(t *testing.T) {
		id := uuid.NewString()
		require.NoError(t, s.Create(ctx, newCommand(id)))
		require.NoError(t, s.Delete(ctx, id))
		_, err := s.Get(ctx, id)
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.True(t, errors.Is(s.Delete(ctx, id), ErrNotFound))
	})

	t.Run("purge only old terminal", func(t *testing.T) {
		oldDone := newCommand(uuid.NewString())
		oldDone.Status = models.StatusCompleted
		old := time.Now().Add(-48 * time.Hour)
		oldDone.CompletedAt = &old
		oldDone.UpdatedAt = old

		oldPending := newCommand(uuid.NewString())
		oldPending.UpdatedAt = old

		recentDone := newCommand(uuid.NewString())
		recentDone.Status = models.StatusFailed
		now := time.Now()
		recentDone.CompletedAt = &now

		for _, c := range []*models.Command{oldDone, oldPending, recentDone} {
			require.NoError(t, s.Create(ctx, c))
		}

		n, err := s.PurgeTerminalBefore(ctx, time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)

		_, err = s.Get(ctx, oldDone.ID)
		assert.True(t, errors.Is(err, ErrNotFound))
		_, err = s.Get(ctx, oldPending.ID)
		assert.NoError(t, err, "non-terminal commands are never purged")
		_, err = s.Get(ctx, recentDone.ID)
		assert.NoError(t, err)
	})
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestGormStoreContract(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" || testing.Short() {
		t.Skip("TEST_DATABASE_URL not set, skipping Postgres integration test")
	}

	db, err := Connect(dsn)
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	runStoreContract(t, NewGormStore(db))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newCommand("c1")))

	got, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	got.Status = models.StatusCompleted
	*got.Parameters.Tempo = 200

	again, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
	assert.Equal(t, 100, *again.Parameters.Tempo)
}

func TestMemoryStoreConcurrentUpdatesSameKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	cmd := newCommand("counter")
	cmd.TextInput = ""
	require.NoError(t, s.Create(ctx, cmd))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, "counter", func(c *models.Command) error {
				c.TextInput += "x"
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	assert.Len(t, got.TextInput, 50, "no lost updates")
}

func TestMemoryStoreDifferentKeysDoNotBlock(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, newCommand("slow")))
	require.NoError(t, s.Create(ctx, newCommand("fast")))

	entered := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = s.Update(ctx, "slow", func(*models.Command) error {
			close(entered)
			<-release
			return nil
		})
	}()
	<-entered
	defer close(release)

	done := make(chan error, 1)
	go func() {
		done <- s.Update(ctx, "fast", func(c *models.Command) error {
			c.Status = models.StatusProcessing
			return nil
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("update on a different key blocked")
	}
}

func TestJanitorRunOnce(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		c := newCommand(fmt.Sprintf("done-%d", i))
		c.Status = models.StatusCancelled
		ts := time.Now().Add(-2 * time.Hour)
		c.CompletedAt = &ts
		require.NoError(t, s.Create(ctx, c))
	}
	require.NoError(t, s.Create(ctx, newCommand("live")))

	j := NewJanitor(s, time.Hour, time.Minute)
	assert.Equal(t, 3, j.RunOnce(ctx))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
