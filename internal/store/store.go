// Package store persists command records. It is the single source of truth for
// command status; the cache only ever holds copies of completed results.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

var (
	// ErrNotFound is returned when no command has the requested id.
	ErrNotFound = errors.New("command not found")
	// ErrExists is returned by Create for a duplicate id.
	ErrExists = errors.New("command already exists")
)

// CommandStore is keyed storage for command records.
//
// Update runs fn against a private copy of the record while holding that record's
// lock; the copy is written back only if fn returns nil. Updates to different ids
// never wait on each other.
type CommandStore interface {
	Create(ctx context.Context, cmd *models.Command) error
	Get(ctx context.Context, id string) (*models.Command, error)
	Update(ctx context.Context, id string, fn func(*models.Command) error) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	PurgeTerminalBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// lastActivity is the timestamp retention is measured from.
func lastActivity(cmd *models.Command) time.Time {
	if cmd.CompletedAt != nil {
		return *cmd.CompletedAt
	}
	return cmd.UpdatedAt
}
