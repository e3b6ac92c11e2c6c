package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/api/middleware"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/commands"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// Error types returned in the error_type field.
const (
	errTypeValidation       = "validation"
	errTypeNotFound         = "not_found"
	errTypeNotReady         = "not_ready"
	errTypeGenerationFailed = "generation_failed"
	errTypeTimeout          = "timeout"
	errTypeCancelled        = "cancelled"
	errTypeUnavailable      = "unavailable"
	errTypeInternal         = "internal"

	// failed commands are reported as "error" on the status endpoint
	statusError = "error"

	// base64 inflates payloads by 4/3; leave room for the JSON around it
	jsonOverheadBytes = 64 * 1024
)

// CommandService is the command lifecycle the handlers drive.
type CommandService interface {
	Submit(ctx context.Context, req commands.SubmitRequest) (string, error)
	GetStatus(ctx context.Context, id string) (*commands.StatusInfo, error)
	Cancel(ctx context.Context, id string) error
	GetResult(ctx context.Context, id string) (*models.MusicResult, error)
}

type MusicHandler struct {
	commands       CommandService
	maxAudioBytes  int64
	requestTimeout time.Duration
	pollInterval   time.Duration
}

func NewMusicHandler(svc CommandService, maxAudioBytes int64, requestTimeout time.Duration) *MusicHandler {
	return &MusicHandler{
		commands:       svc,
		maxAudioBytes:  maxAudioBytes,
		requestTimeout: requestTimeout,
	}
}

type TextToMusicRequest struct {
	Text        string                   `json:"text"`
	Parameters  models.PartialParameters `json:"parameters"`
	CommandType string                   `json:"command_type"`
	Melody      *models.MelodyInput      `json:"melody"`
	Enhance     bool                     `json:"enhance"`
}

type AudioToMusicRequest struct {
	AudioDataURL   string                   `json:"audio_data_url"`
	AdditionalText string                   `json:"additional_text"`
	Parameters     models.PartialParameters `json:"parameters"`
	CommandType    string                   `json:"command_type"`
	Enhance        bool                     `json:"enhance"`
}

type CommandStatusRequest struct {
	CommandID string `json:"command_id"`
}

// WithPollInterval advertises how often clients should poll for status after submitting.
func (h *MusicHandler) WithPollInterval(d time.Duration) *MusicHandler {
	h.pollInterval = d
	return h
}

func (h *MusicHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.requestTimeout)
}

// TextToMusic accepts a text prompt (optionally with a seed melody) and queues it.
func (h *MusicHandler) TextToMusic(c *gin.Context) {
	var req TextToMusicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errTypeValidation, "Invalid request body: "+err.Error(), nil)
		return
	}

	cmdType := models.CommandType(strings.TrimSpace(req.CommandType))
	if cmdType == "" {
		cmdType = models.CommandTextToMusic
	}

	h.submit(c, commands.SubmitRequest{
		Type:       cmdType,
		Text:       req.Text,
		Melody:     req.Melody,
		Parameters: req.Parameters,
		Enhance:    req.Enhance,
	})
}

// AudioToMusic accepts a base64 data URL with recorded audio and queues it.
func (h *MusicHandler) AudioToMusic(c *gin.Context) {
	limit := h.maxAudioBytes/3*4 + jsonOverheadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	var req AudioToMusicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, errTypeValidation,
				fmt.Sprintf("Audio payload exceeds %d bytes", h.maxAudioBytes), nil)
			return
		}
		respondError(c, http.StatusBadRequest, errTypeValidation, "Invalid request body: "+err.Error(), nil)
		return
	}

	audio, status, err := decodeAudioDataURL(req.AudioDataURL, h.maxAudioBytes)
	if err != nil {
		respondError(c, status, errTypeValidation, err.Error(), nil)
		return
	}

	cmdType := models.CommandType(strings.TrimSpace(req.CommandType))
	if cmdType == "" {
		cmdType = models.CommandMelodyToArrangement
	}

	h.submit(c, commands.SubmitRequest{
		Type:       cmdType,
		Text:       req.AdditionalText,
		Audio:      audio,
		Parameters: req.Parameters,
		Enhance:    req.Enhance,
	})
}

func (h *MusicHandler) submit(c *gin.Context, req commands.SubmitRequest) {
	req.CallerID, _ = middleware.GetCallerID(c)
	ctx, cancel := h.requestContext(c)
	defer cancel()

	id, err := h.commands.Submit(ctx, req)
	if err != nil {
		var ve *commands.ValidationError
		switch {
		case errors.As(err, &ve):
			respondError(c, http.StatusBadRequest, errTypeValidation, ve.Error(), gin.H{"fields": ve.Fields})
		case errors.Is(err, commands.ErrQueueFull):
			c.Header("Retry-After", "5")
			respondError(c, http.StatusServiceUnavailable, errTypeUnavailable, err.Error(), gin.H{"command_id": id})
		case errors.Is(err, commands.ErrShuttingDown):
			respondError(c, http.StatusServiceUnavailable, errTypeUnavailable, err.Error(), nil)
		default:
			logger.Error("Failed to submit command", err, logger.WithContext(c))
			respondError(c, http.StatusInternalServerError, errTypeInternal, "Failed to submit command", nil)
		}
		return
	}

	resp := gin.H{
		"command_id": id,
		"status":     models.StatusPending,
	}
	if h.pollInterval > 0 {
		resp["poll_interval_ms"] = h.pollInterval.Milliseconds()
	}
	c.JSON(http.StatusAccepted, resp)
}

// CommandStatus reports the lifecycle state of a command.
func (h *MusicHandler) CommandStatus(c *gin.Context) {
	var req CommandStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.CommandID) == "" {
		respondError(c, http.StatusBadRequest, errTypeValidation, "command_id is required", nil)
		return
	}
	ctx, cancel := h.requestContext(c)
	defer cancel()

	st, err := h.commands.GetStatus(ctx, req.CommandID)
	if err != nil {
		var nf *commands.NotFoundError
		if errors.As(err, &nf) {
			c.JSON(http.StatusNotFound, gin.H{
				"command_id": req.CommandID,
				"status":     errTypeNotFound,
				"error":      err.Error(),
				"error_type": errTypeNotFound,
			})
			return
		}
		h.internalError(c, err)
		return
	}

	status := string(st.Status)
	if st.Status == models.StatusFailed {
		status = statusError
	}
	resp := gin.H{
		"command_id":   st.CommandID,
		"status":       status,
		"command_type": st.Type,
		"created_at":   st.CreatedAt,
		"updated_at":   st.UpdatedAt,
	}
	if st.Error != "" {
		resp["error"] = st.Error
	}
	if st.TimedOut {
		resp["timed_out"] = true
	}
	if st.CompletedAt != nil {
		resp["completed_at"] = st.CompletedAt
	}
	c.JSON(http.StatusOK, resp)
}

// CancelCommand cancels a pending or processing command.
func (h *MusicHandler) CancelCommand(c *gin.Context) {
	id := c.Param("command_id")
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := h.commands.Cancel(ctx, id); err != nil {
		var nf *commands.NotFoundError
		if errors.As(err, &nf) {
			respondError(c, http.StatusNotFound, errTypeNotFound, err.Error(), gin.H{"command_id": id})
			return
		}
		h.internalError(c, err)
		return
	}

	resp := gin.H{"message": "Command cancelled", "command_id": id}
	if st, err := h.commands.GetStatus(ctx, id); err == nil {
		resp["status"] = st.Status
		if st.Status != models.StatusCancelled {
			resp["message"] = "Command already finished"
		}
	}
	c.JSON(http.StatusOK, resp)
}

// MusicResult returns the artifacts and analysis of a completed command.
func (h *MusicHandler) MusicResult(c *gin.Context) {
	id := c.Param("command_id")
	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.commands.GetResult(ctx, id)
	if err == nil {
		c.JSON(http.StatusOK, res)
		return
	}

	var (
		nf       *commands.NotFoundError
		notReady *commands.NotReadyError
		failed   *commands.GenerationFailedError
		canc     *commands.CancelledError
	)
	switch {
	case errors.As(err, &nf):
		respondError(c, http.StatusNotFound, errTypeNotFound, err.Error(), gin.H{"command_id": id})
	case errors.As(err, &notReady):
		respondError(c, http.StatusConflict, errTypeNotReady, err.Error(), gin.H{"command_id": id, "status": notReady.Status})
	case errors.As(err, &failed):
		errType := errTypeGenerationFailed
		if failed.Timeout {
			errType = errTypeTimeout
		}
		respondError(c, http.StatusUnprocessableEntity, errType, failed.Message, gin.H{"command_id": id})
	case errors.As(err, &canc):
		respondError(c, http.StatusGone, errTypeCancelled, err.Error(), gin.H{"command_id": id})
	default:
		h.internalError(c, err)
	}
}

func (h *MusicHandler) internalError(c *gin.Context, err error) {
	logger.Error("Command lookup failed", err, logger.WithContext(c))
	respondError(c, http.StatusInternalServerError, errTypeInternal, "Internal server error", nil)
}

func respondError(c *gin.Context, status int, errType, msg string, extra gin.H) {
	body := gin.H{"error": msg, "error_type": errType}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(status, body)
}

// decodeAudioDataURL parses data:<mime>;base64,<payload>. The declared type and the sniffed
// content must both be audio. The returned status is the HTTP status to report on error.
func decodeAudioDataURL(dataURL string, maxBytes int64) (*models.AudioInput, int, error) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return nil, http.StatusBadRequest, errors.New("audio_data_url is required")
	}
	header, payload, ok := strings.Cut(dataURL, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, http.StatusBadRequest, errors.New("audio_data_url must be a base64 data URL")
	}
	declared := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64"))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = declared[:i]
	}
	if !strings.HasPrefix(declared, "audio/") {
		return nil, http.StatusUnsupportedMediaType, fmt.Errorf("unsupported media type %q", declared)
	}

	if int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("audio payload exceeds %d bytes", maxBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("invalid base64 audio payload: %w", err)
	}
	if len(data) == 0 {
		return nil, http.StatusBadRequest, errors.New("audio payload is empty")
	}
	if int64(len(data)) > maxBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("audio payload exceeds %d bytes", maxBytes)
	}

	detected := mimetype.Detect(data)
	if !isAudio(detected) {
		return nil, http.StatusUnsupportedMediaType,
			fmt.Errorf("declared %s but content looks like %s", declared, detected.String())
	}

	return &models.AudioInput{
		Data:   data,
		Format: strings.TrimPrefix(detected.Extension(), "."),
	}, 0, nil
}

// isAudio accepts audio types plus the container formats browsers record audio into.
func isAudio(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") || m.Is("video/webm") || m.Is("application/ogg") {
			return true
		}
	}
	return false
}
