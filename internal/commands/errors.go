package commands

import (
	"errors"
	"fmt"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

var (
	// ErrQueueFull is returned by Submit when the work queue has no room.
	ErrQueueFull = errors.New("command queue is full")
	// ErrShuttingDown is returned by Submit once Shutdown has begun.
	ErrShuttingDown = errors.New("command manager is shutting down")
)

// ValidationError lists every invalid field of a submission.
type ValidationError struct {
	Fields models.FieldErrors
}

func (e *ValidationError) Error() string {
	return "invalid command: " + e.Fields.Error()
}

// NotFoundError is returned for unknown command ids.
type NotFoundError struct {
	CommandID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("command %s not found", e.CommandID)
}

// NotReadyError is returned by GetResult while the command is pending or processing.
type NotReadyError struct {
	CommandID string
	Status    models.CommandStatus
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("command %s is %s", e.CommandID, e.Status)
}

// GenerationFailedError is returned by GetResult for failed commands.
type GenerationFailedError struct {
	CommandID string
	Message   string
	Timeout   bool
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("command %s failed: %s", e.CommandID, e.Message)
}

// CancelledError is returned by GetResult for cancelled commands.
type CancelledError struct {
	CommandID string
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("command %s was cancelled", e.CommandID)
}

// transitionError marks a rejected lifecycle move.
type transitionError struct {
	id   string
	from models.CommandStatus
	to   models.CommandStatus
}

func (e *transitionError) Error() string {
	return fmt.Sprintf("command %s: illegal transition %s -> %s", e.id, e.from, e.to)
}
