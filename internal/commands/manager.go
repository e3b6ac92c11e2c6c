package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/cache"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/generation"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/intent"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/metrics"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/store"
)

// GenerationNamespace holds finished results keyed by command fingerprint.
const GenerationNamespace = "generation_results"

const (
	defaultWorkers   = 4
	defaultQueueSize = 100
	defaultTimeout   = 60 * time.Second
)

// Options configures a Manager. Cache and Metrics are optional.
type Options struct {
	Store     store.CommandStore
	Cache     *cache.Cache
	Stage     *intent.Stage
	Backend   generation.Backend
	Workers   int
	QueueSize int
	Timeout   time.Duration
	Metrics   metrics.Recorder
}

// SubmitRequest is a new command as received from a transport.
type SubmitRequest struct {
	Type       models.CommandType
	Text       string
	Melody     *models.MelodyInput
	Audio      *models.AudioInput
	Parameters models.PartialParameters
	Enhance    bool
	CallerID   string
}

// StatusInfo is the externally visible lifecycle state of a command.
type StatusInfo struct {
	CommandID   string               `json:"command_id"`
	Type        models.CommandType   `json:"command_type"`
	Status      models.CommandStatus `json:"status"`
	Error       string               `json:"error,omitempty"`
	TimedOut    bool                 `json:"timed_out,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// Manager owns the command lifecycle: it validates and persists submissions, runs them on
// a bounded worker pool and answers status, cancel and result queries.
type Manager struct {
	store   store.CommandStore
	cache   *cache.Cache
	stage   *intent.Stage
	backend generation.Backend
	metrics metrics.Recorder
	workers int
	timeout time.Duration

	// mu guards queue sends against close.
	mu      sync.RWMutex
	queue   chan string
	started bool
	closed  bool
	group   *errgroup.Group
	runCtx  context.Context
	stopRun context.CancelFunc

	runningMu sync.Mutex
	running   map[string]context.CancelFunc

	now   func() time.Time
	newID func() string
}

// NewManager validates opts and fills defaults. Call Start before submitting work.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("command store is required")
	}
	if opts.Stage == nil {
		return nil, errors.New("intent stage is required")
	}
	if opts.Backend == nil {
		return nil, errors.New("generation backend is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Nop{}
	}

	return &Manager{
		store:   opts.Store,
		cache:   opts.Cache,
		stage:   opts.Stage,
		backend: opts.Backend,
		metrics: opts.Metrics,
		workers: opts.Workers,
		timeout: opts.Timeout,
		queue:   make(chan string, opts.QueueSize),
		running: make(map[string]context.CancelFunc),
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Start launches the worker pool. Work keeps running when ctx is cancelled; use Shutdown
// to stop it.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.closed {
		return
	}
	m.started = true
	m.runCtx, m.stopRun = context.WithCancel(context.WithoutCancel(ctx))
	m.group = &errgroup.Group{}
	for i := 0; i < m.workers; i++ {
		m.group.Go(func() error {
			for id := range m.queue {
				m.process(m.runCtx, id)
			}
			return nil
		})
	}

	logger.Info("Command workers started", logger.Fields{
		"workers":    m.workers,
		"queue_size": cap(m.queue),
		"timeout":    m.timeout.String(),
		"backend":    m.backend.Name(),
	})
}

// Shutdown stops accepting work and waits for queued and running commands. When ctx ends
// first, everything still outstanding is cancelled and ctx.Err() is returned.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.queue)
	started := m.started
	m.mu.Unlock()

	if !started {
		for id := range m.queue {
			m.abandon(context.WithoutCancel(ctx), id)
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		_ = m.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.stopRun()
		logger.Info("Command workers drained", nil)
		return nil
	case <-ctx.Done():
		logger.Warn("Drain deadline passed, cancelling outstanding commands", logger.Fields{
			"queued":  len(m.queue),
			"running": m.runningCount(),
		})
		m.stopRun()
		<-done
		return ctx.Err()
	}
}

// Submit validates and persists a command, then queues it. It never runs generation
// inline. When the queue is full the record is marked failed and its id is returned
// together with ErrQueueFull.
func (m *Manager) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	cmd, err := m.newCommand(req)
	if err != nil {
		return "", err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", ErrShuttingDown
	}

	if err := m.store.Create(ctx, cmd); err != nil {
		return "", fmt.Errorf("persist command: %w", err)
	}
	m.metrics.CommandSubmitted(cmd.Type)
	fields := logger.ForCommand(cmd.ID, string(cmd.Type))

	select {
	case m.queue <- cmd.ID:
		logger.Info("Command accepted", fields.With(logger.Fields{
			"caller_id":   cmd.CallerID,
			"queue_depth": len(m.queue),
		}))
		return cmd.ID, nil
	default:
	}

	m.metrics.QueueRejected(cap(m.queue))
	logger.Warn("Command queue full, rejecting command", fields.With(logger.Fields{"queue_size": cap(m.queue)}))
	if _, err := m.transition(context.WithoutCancel(ctx), cmd.ID, models.StatusFailed, func(c *models.Command) {
		c.Error = ErrQueueFull.Error()
	}); err != nil {
		m.discard(err, fields)
	} else {
		m.metrics.CommandFinished(ctx, cmd.Type, metrics.OutcomeFailed, 0)
	}
	return cmd.ID, ErrQueueFull
}

// newCommand checks the request against the per-type input requirements and builds
// the pending record.
func (m *Manager) newCommand(req SubmitRequest) (*models.Command, error) {
	var errs models.FieldErrors
	text := strings.TrimSpace(req.Text)

	if !req.Type.Valid() {
		errs = append(errs, models.FieldError{Field: "command_type", Message: fmt.Sprintf("unsupported command type %q", req.Type)})
	}

	params, err := req.Parameters.Normalize()
	if err != nil {
		var fe models.FieldErrors
		if errors.As(err, &fe) {
			errs = append(errs, fe...)
		} else {
			errs = append(errs, models.FieldError{Field: "parameters", Message: err.Error()})
		}
	}
	if req.Melody != nil {
		errs = append(errs, req.Melody.Validate()...)
	}
	if req.Audio != nil && len(req.Audio.Data) == 0 {
		errs = append(errs, models.FieldError{Field: "audio", Message: "audio payload is empty"})
	}

	hasSeed := req.Melody != nil || req.Audio != nil
	switch req.Type {
	case models.CommandTextToMusic:
		if text == "" {
			errs = append(errs, models.FieldError{Field: "text", Message: "text is required for text_to_music"})
		}
	case models.CommandStyleTransfer:
		if !hasSeed {
			errs = append(errs, models.FieldError{Field: "melody", Message: "a melody or audio input is required for style_transfer"})
		}
		if params.Genre == nil && req.Parameters.Genre == nil && m.stage.TextHints(text).Genre == nil {
			errs = append(errs, models.FieldError{Field: "genre", Message: "a target genre is required for style_transfer"})
		}
	default:
		if req.Type.NeedsSeed() && !hasSeed {
			errs = append(errs, models.FieldError{Field: "melody", Message: fmt.Sprintf("a melody or audio input is required for %s", req.Type)})
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	now := m.now()
	cmd := &models.Command{
		ID:         m.newID(),
		Type:       req.Type,
		TextInput:  text,
		Melody:     req.Melody.Clone(),
		Audio:      req.Audio.Clone(),
		Parameters: params,
		Enhance:    req.Enhance,
		Status:     models.StatusPending,
		CallerID:   req.CallerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	cmd.Fingerprint = Fingerprint(cmd.Type, cmd.TextInput, cmd.Parameters, cmd.Enhance, cmd.Melody, cmd.Audio)
	return cmd, nil
}

// GetStatus returns the lifecycle state of a command.
func (m *Manager) GetStatus(ctx context.Context, id string) (*StatusInfo, error) {
	cmd, err := m.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return &StatusInfo{
		CommandID:   cmd.ID,
		Type:        cmd.Type,
		Status:      cmd.Status,
		Error:       cmd.Error,
		TimedOut:    cmd.TimedOut,
		CreatedAt:   cmd.CreatedAt,
		UpdatedAt:   cmd.UpdatedAt,
		CompletedAt: cmd.CompletedAt,
	}, nil
}

// Cancel moves a pending or processing command to cancelled and stops its generation.
// Cancelling a finished command is a no-op.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	cmdType, err := m.transition(ctx, id, models.StatusCancelled, nil)
	var te *transitionError
	switch {
	case err == nil:
		m.cancelRunning(id)
		logger.Info("Command cancelled", logger.ForCommand(id, string(cmdType)))
		m.metrics.CommandFinished(ctx, cmdType, metrics.OutcomeCancelled, 0)
		return nil
	case errors.As(err, &te):
		return nil
	default:
		return err
	}
}

// GetResult returns the result of a completed command. Other states map to
// NotReadyError, GenerationFailedError and CancelledError.
func (m *Manager) GetResult(ctx context.Context, id string) (*models.MusicResult, error) {
	cmd, err := m.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	switch cmd.Status {
	case models.StatusCompleted:
		if cmd.Result == nil {
			return nil, &GenerationFailedError{CommandID: id, Message: "result is missing"}
		}
		return cmd.Result, nil
	case models.StatusFailed:
		return nil, &GenerationFailedError{CommandID: id, Message: cmd.Error, Timeout: cmd.TimedOut}
	case models.StatusCancelled:
		return nil, &CancelledError{CommandID: id}
	default:
		return nil, &NotReadyError{CommandID: id, Status: cmd.Status}
	}
}

// QueueDepth is the number of commands waiting for a worker.
func (m *Manager) QueueDepth() int {
	return len(m.queue)
}

// Running is the number of commands currently being generated.
func (m *Manager) Running() int {
	return m.runningCount()
}

// BackendName reports the configured generation backend.
func (m *Manager) BackendName() string {
	return m.backend.Name()
}

func (m *Manager) lookup(ctx context.Context, id string) (*models.Command, error) {
	cmd, err := m.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &NotFoundError{CommandID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("load command %s: %w", id, err)
	}
	return cmd, nil
}

// transition is the only place a command's status changes. Moves the lifecycle does not
// allow come back as *transitionError and leave the record untouched.
func (m *Manager) transition(ctx context.Context, id string, to models.CommandStatus, mutate func(*models.Command)) (models.CommandType, error) {
	var from models.CommandStatus
	var cmdType models.CommandType
	err := m.store.Update(ctx, id, func(c *models.Command) error {
		from, cmdType = c.Status, c.Type
		if !c.Status.CanTransitionTo(to) {
			return &transitionError{id: id, from: c.Status, to: to}
		}
		now := m.now()
		c.Status = to
		c.UpdatedAt = now
		if to.IsTerminal() {
			c.CompletedAt = &now
		}
		if mutate != nil {
			mutate(c)
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return "", &NotFoundError{CommandID: id}
	}
	if err != nil {
		return cmdType, err
	}
	logger.LogTransition(id, string(from), string(to), logger.Fields{"command_type": string(cmdType)})
	return cmdType, nil
}

// discard handles a rejected transition from a worker. Losing a race against Cancel is
// expected; anything else means a terminal record was about to be rewritten.
func (m *Manager) discard(err error, fields logger.Fields) {
	var te *transitionError
	if !errors.As(err, &te) {
		logger.Error("Failed to update command", err, fields)
		return
	}
	if te.from == models.StatusCancelled {
		logger.Info("Command was cancelled, discarding its work", fields)
		return
	}
	logger.Error("Command lifecycle invariant violated", err, fields.With(logger.Fields{
		"from": string(te.from),
		"to":   string(te.to),
	}))
}

// abandon cancels a queued command that will never run.
func (m *Manager) abandon(ctx context.Context, id string) {
	cmdType, err := m.transition(ctx, id, models.StatusCancelled, func(c *models.Command) {
		c.Error = "service shutting down"
	})
	if err != nil {
		m.discard(err, logger.Fields{"command_id": id})
		return
	}
	m.metrics.CommandFinished(ctx, cmdType, metrics.OutcomeCancelled, 0)
}

func (m *Manager) track(id string, cancel context.CancelFunc) {
	m.runningMu.Lock()
	m.running[id] = cancel
	m.runningMu.Unlock()
}

func (m *Manager) untrack(id string) {
	m.runningMu.Lock()
	delete(m.running, id)
	m.runningMu.Unlock()
}

func (m *Manager) cancelRunning(id string) {
	m.runningMu.Lock()
	cancel, ok := m.running[id]
	m.runningMu.Unlock()
	if ok {
		cancel()
	}
}

func (m *Manager) runningCount() int {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()
	return len(m.running)
}
