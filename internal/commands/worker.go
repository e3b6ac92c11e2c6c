package commands

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/generation"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/intent"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/metrics"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// process runs one queued command to a terminal state.
func (m *Manager) process(parent context.Context, id string) {
	bg := context.WithoutCancel(parent)
	cmd, err := m.store.Get(bg, id)
	if err != nil {
		logger.Error("Failed to load queued command", err, logger.Fields{"command_id": id})
		return
	}
	fields := logger.ForCommand(id, string(cmd.Type))
	if cmd.Status != models.StatusPending {
		logger.Debug("Skipping command that is no longer pending", fields.With(logger.Fields{"status": string(cmd.Status)}))
		return
	}
	if parent.Err() != nil {
		m.abandon(bg, id)
		return
	}

	if res, ok := m.cached(cmd.Fingerprint); ok {
		m.metrics.CacheLookup(true)
		res.CommandID = id
		res.Status = models.StatusCompleted
		res.CacheHit = true
		if _, err := m.transition(bg, id, models.StatusCompleted, func(c *models.Command) { c.Result = res }); err != nil {
			m.discard(err, fields)
			return
		}
		logger.Info("Command served from cache", fields)
		m.metrics.CommandFinished(bg, cmd.Type, metrics.OutcomeCacheHit, 0)
		return
	}
	m.metrics.CacheLookup(false)

	ctx, cancel := context.WithTimeout(parent, m.timeout)
	defer cancel()
	m.track(id, cancel)
	defer m.untrack(id)

	// single flight: only the worker that wins pending -> processing generates
	if _, err := m.transition(bg, id, models.StatusProcessing, nil); err != nil {
		m.discard(err, fields)
		return
	}

	start := m.now()
	result, err := m.runWithDeadline(ctx, cmd)
	elapsed := m.now().Sub(start)

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		m.fail(bg, cmd, fmt.Sprintf("generation timed out after %s", m.timeout), true, elapsed, fields)
	case ctx.Err() != nil:
		// Cancel has already recorded the state; a shutdown has not.
		cmdType, err := m.transition(bg, id, models.StatusCancelled, func(c *models.Command) {
			c.Error = "service shutting down"
		})
		if err != nil {
			m.discard(err, fields)
			return
		}
		m.metrics.CommandFinished(bg, cmdType, metrics.OutcomeCancelled, elapsed)
	case err == nil:
		// cache first so an identical command submitted after completion always hits
		if m.cache != nil {
			if err := m.cache.Set(cmd.Fingerprint, result.Clone(), GenerationNamespace); err != nil {
				logger.Debug("Generation cache unavailable", fields.With(logger.Fields{"error": err.Error()}))
			}
		}
		if _, err := m.transition(bg, id, models.StatusCompleted, func(c *models.Command) { c.Result = result }); err != nil {
			m.discard(err, fields)
			return
		}
		logger.LogGeneration(ctx, result.Backend, elapsed, fields.With(logger.Fields{"notes": result.Analysis.NoteCount}))
		m.metrics.CommandFinished(bg, cmd.Type, metrics.OutcomeCompleted, elapsed)
	default:
		m.fail(bg, cmd, err.Error(), false, elapsed, fields)
	}
}

func (m *Manager) fail(ctx context.Context, cmd *models.Command, msg string, timedOut bool, elapsed time.Duration, fields logger.Fields) {
	if _, err := m.transition(ctx, cmd.ID, models.StatusFailed, func(c *models.Command) {
		c.Error = msg
		c.TimedOut = timedOut
	}); err != nil {
		m.discard(err, fields)
		return
	}

	outcome := metrics.OutcomeFailed
	if timedOut {
		outcome = metrics.OutcomeTimeout
	}
	logger.Warn("Command failed", fields.With(logger.Fields{"error": msg, "timed_out": timedOut}))
	m.metrics.CommandFinished(ctx, cmd.Type, outcome, elapsed)
}

func (m *Manager) cached(fingerprint string) (*models.MusicResult, bool) {
	if m.cache == nil || fingerprint == "" {
		return nil, false
	}
	v, ok := m.cache.Get(fingerprint, GenerationNamespace)
	if !ok {
		return nil, false
	}
	res, ok := v.(*models.MusicResult)
	if !ok {
		return nil, false
	}
	return res.Clone(), true
}

type runOutcome struct {
	result *models.MusicResult
	err    error
}

// runWithDeadline returns as soon as ctx ends even if the backend ignores it. A late
// outcome from an abandoned run is dropped.
func (m *Manager) runWithDeadline(ctx context.Context, cmd *models.Command) (*models.MusicResult, error) {
	done := make(chan runOutcome, 1)
	go func() {
		result, err := m.safeRun(ctx, cmd)
		done <- runOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// safeRun turns a backend panic into a failed command instead of a dead worker.
func (m *Manager) safeRun(ctx context.Context, cmd *models.Command) (result *models.MusicResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generation panicked: %v", r)
			logger.Error("Recovered panic in generation", err, logger.ForCommand(cmd.ID, string(cmd.Type)))
		}
	}()
	return m.run(ctx, cmd)
}

// run is the pipeline for one command: seed analysis, parameter derivation, generation
// and rendering.
func (m *Manager) run(ctx context.Context, cmd *models.Command) (*models.MusicResult, error) {
	seed := prepareSeed(cmd)

	params, source, err := m.stage.Derive(ctx, cmd.TextInput, seed.explicit, intent.Options{Enhance: cmd.Enhance})
	if err != nil {
		return nil, fmt.Errorf("derive parameters: %w", err)
	}
	logger.Debug("Parameters resolved", logger.ForCommand(cmd.ID, string(cmd.Type)).With(logger.Fields{
		"source": string(source),
		"key":    string(params.Key),
		"tempo":  params.Tempo,
		"genre":  string(params.Genre),
	}))

	melody := seed.melody
	notes := seed.notes
	if cmd.Type == models.CommandPitchCorrection && melody != nil {
		corrected, changed := generation.CorrectPitch(melody.Notes, params.Key)
		melody.Notes = corrected
		notes = append(notes, fmt.Sprintf("Corrected %d of %d notes to the %s scale.", changed, len(corrected), params.Key))
	}

	arr, err := m.backend.Generate(ctx, params, melody)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	rendered, err := m.backend.Render(ctx, arr, params)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	if len(rendered.MIDI) == 0 {
		return nil, errors.New("backend produced no MIDI data")
	}

	return &models.MusicResult{
		CommandID: cmd.ID,
		Status:    models.StatusCompleted,
		MusicData: models.MusicData{
			MIDIData:  rendered.MIDI,
			AudioData: rendered.Audio,
			ScoreData: models.ScoreData{MusicXML: rendered.MusicXML, PDF: rendered.PDF},
		},
		Analysis: models.Analysis{
			Key:              params.Key,
			Tempo:            params.Tempo,
			TimeSignature:    params.TimeSignature,
			ChordProgression: generation.ChordSymbols(arr),
			Structure:        generation.Structure(arr),
			Genre:            params.Genre,
			Mood:             params.Mood,
			Instruments:      append([]models.Instrument(nil), params.Instruments...),
			Duration:         params.Duration,
			NoteCount:        arr.NoteCount(),
			Parameters:       params.Clone(),
		},
		Suggestions: append(notes, generation.Suggestions(params, arr)...),
		Backend:     m.backend.Name(),
	}, nil
}

type seedInfo struct {
	explicit models.PartialParameters
	melody   *models.MelodyInput
	notes    []string
}

// prepareSeed reads tempo, key and length hints from the melody or audio input. Hints
// only fill parameters the caller left unset, and they outrank anything read from text.
func prepareSeed(cmd *models.Command) seedInfo {
	out := seedInfo{explicit: cmd.Parameters}

	if cmd.Melody != nil && len(cmd.Melody.Notes) > 0 {
		melody := cmd.Melody.Clone()
		out.melody = melody
		if out.explicit.Tempo == nil {
			if melody.Tempo != nil {
				t := *melody.Tempo
				out.explicit.Tempo = &t
			} else if t, ok := generation.EstimateTempo(melody.Notes); ok {
				out.explicit.Tempo = &t
				out.notes = append(out.notes, fmt.Sprintf("Estimated %d BPM from the melody.", t))
			}
		}
		if out.explicit.Key == nil {
			key, _ := generation.DetectKey(melody.Notes)
			k := string(key)
			out.explicit.Key = &k
			out.notes = append(out.notes, fmt.Sprintf("Detected the key of %s from the melody.", key))
		}
		return out
	}

	if cmd.Audio == nil {
		return out
	}
	probe, pcm, err := generation.ProbeWAV(cmd.Audio.Data)
	if err != nil {
		logger.Debug("Audio input not analysable", logger.ForCommand(cmd.ID, string(cmd.Type)).With(logger.Fields{
			"format": cmd.Audio.Format,
			"error":  err.Error(),
		}))
		out.notes = append(out.notes, fmt.Sprintf("The %s recording could not be analysed, so parameters came from the text.", cmd.Audio.Format))
		return out
	}
	if out.explicit.Duration == nil {
		d := int(math.Round(probe.Duration))
		if d >= models.MinDuration && d <= models.MaxDuration {
			out.explicit.Duration = &d
		}
	}
	if out.explicit.Tempo == nil {
		if t, ok := generation.EstimateAudioTempo(probe, pcm); ok {
			out.explicit.Tempo = &t
			out.notes = append(out.notes, fmt.Sprintf("Estimated %d BPM from the recording.", t))
		}
	}
	return out
}
