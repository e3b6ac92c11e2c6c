package mcptools

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sixshoes/ai-music-assistant-sub000/internal/commands"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/logger"
	"github.com/Sixshoes/ai-music-assistant-sub000/internal/models"
)

// CallerID tags every command submitted through MCP.
const CallerID = "mcp"

// CommandService is the command lifecycle the tools drive.
type CommandService interface {
	Submit(ctx context.Context, req commands.SubmitRequest) (string, error)
	GetStatus(ctx context.Context, id string) (*commands.StatusInfo, error)
	Cancel(ctx context.Context, id string) error
	GetResult(ctx context.Context, id string) (*models.MusicResult, error)
}

// Service implements the MCP tool handlers.
type Service struct {
	commands CommandService
}

func NewService(svc CommandService) *Service {
	return &Service{commands: svc}
}

// SubmitCommandInput is the input of the submit_command tool.
type SubmitCommandInput struct {
	CommandType string                    `json:"command_type,omitempty" jsonschema:"command type (default text_to_music)"`
	Text        string                    `json:"text,omitempty" jsonschema:"natural language description of the music"`
	Melody      *models.MelodyInput       `json:"melody,omitempty" jsonschema:"seed melody; note times are in seconds"`
	Parameters  *models.PartialParameters `json:"parameters,omitempty" jsonschema:"explicit parameters that override anything derived from the text"`
	Enhance     bool                      `json:"enhance,omitempty" jsonschema:"ask the language model to refine parameters"`
}

type SubmitCommandOutput struct {
	CommandID string `json:"command_id"`
	Status    string `json:"status"`
}

// CommandRef names a command.
type CommandRef struct {
	CommandID string `json:"command_id" jsonschema:"id returned by submit_command"`
}

type CommandStatusOutput struct {
	CommandID   string `json:"command_id"`
	CommandType string `json:"command_type"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	TimedOut    bool   `json:"timed_out,omitempty"`
	CreatedAt   string `json:"created_at"`
	CompletedAt string `json:"completed_at,omitempty"`
}

type CancelCommandOutput struct {
	CommandID string `json:"command_id"`
	Status    string `json:"status"`
}

// MusicResultInput is the input of the get_music_result tool.
type MusicResultInput struct {
	CommandID    string `json:"command_id" jsonschema:"id returned by submit_command"`
	IncludeAudio bool   `json:"include_audio,omitempty" jsonschema:"also return the WAV preview as base64"`
}

type MusicResultOutput struct {
	CommandID   string          `json:"command_id"`
	Analysis    models.Analysis `json:"analysis"`
	Suggestions []string        `json:"suggestions"`
	MIDIBase64  string          `json:"midi_base64"`
	MusicXML    string          `json:"musicxml"`
	AudioBase64 string          `json:"audio_base64,omitempty"`
	AudioBytes  int             `json:"audio_bytes"`
	PDFBytes    int             `json:"pdf_bytes"`
	Backend     string          `json:"backend,omitempty"`
	CacheHit    bool            `json:"cache_hit,omitempty"`
}

func (s *Service) SubmitCommand(ctx context.Context, _ *mcp.CallToolRequest, input SubmitCommandInput) (*mcp.CallToolResult, SubmitCommandOutput, error) {
	cmdType := models.CommandType(strings.TrimSpace(input.CommandType))
	if cmdType == "" {
		cmdType = models.CommandTextToMusic
	}
	req := commands.SubmitRequest{
		Type:     cmdType,
		Text:     input.Text,
		Melody:   input.Melody,
		Enhance:  input.Enhance,
		CallerID: CallerID,
	}
	if input.Parameters != nil {
		req.Parameters = *input.Parameters
	}

	id, err := s.commands.Submit(ctx, req)
	if err != nil {
		return nil, SubmitCommandOutput{}, fmt.Errorf("submit command: %w", err)
	}
	logger.Info("Command submitted over MCP", logger.ForCommand(id, string(cmdType)))
	return nil, SubmitCommandOutput{CommandID: id, Status: string(models.StatusPending)}, nil
}

func (s *Service) GetCommandStatus(ctx context.Context, _ *mcp.CallToolRequest, input CommandRef) (*mcp.CallToolResult, CommandStatusOutput, error) {
	st, err := s.commands.GetStatus(ctx, input.CommandID)
	if err != nil {
		return nil, CommandStatusOutput{}, err
	}

	out := CommandStatusOutput{
		CommandID:   st.CommandID,
		CommandType: string(st.Type),
		Status:      string(st.Status),
		Error:       st.Error,
		TimedOut:    st.TimedOut,
		CreatedAt:   st.CreatedAt.UTC().Format(time.RFC3339),
	}
	if st.Status == models.StatusFailed {
		out.Status = "error"
	}
	if st.CompletedAt != nil {
		out.CompletedAt = st.CompletedAt.UTC().Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Service) CancelCommand(ctx context.Context, _ *mcp.CallToolRequest, input CommandRef) (*mcp.CallToolResult, CancelCommandOutput, error) {
	if err := s.commands.Cancel(ctx, input.CommandID); err != nil {
		return nil, CancelCommandOutput{}, err
	}
	st, err := s.commands.GetStatus(ctx, input.CommandID)
	if err != nil {
		return nil, CancelCommandOutput{}, err
	}
	return nil, CancelCommandOutput{CommandID: input.CommandID, Status: string(st.Status)}, nil
}

func (s *Service) GetMusicResult(ctx context.Context, _ *mcp.CallToolRequest, input MusicResultInput) (*mcp.CallToolResult, MusicResultOutput, error) {
	res, err := s.commands.GetResult(ctx, input.CommandID)
	if err != nil {
		var notReady *commands.NotReadyError
		if errors.As(err, &notReady) {
			return nil, MusicResultOutput{}, fmt.Errorf("command %s is still %s; poll get_command_status", input.CommandID, notReady.Status)
		}
		return nil, MusicResultOutput{}, err
	}

	out := MusicResultOutput{
		CommandID:   res.CommandID,
		Analysis:    res.Analysis,
		Suggestions: res.Suggestions,
		MIDIBase64:  base64.StdEncoding.EncodeToString(res.MusicData.MIDIData),
		MusicXML:    string(res.MusicData.ScoreData.MusicXML),
		AudioBytes:  len(res.MusicData.AudioData),
		PDFBytes:    len(res.MusicData.ScoreData.PDF),
		Backend:     res.Backend,
		CacheHit:    res.CacheHit,
	}
	if input.IncludeAudio {
		out.AudioBase64 = base64.StdEncoding.EncodeToString(res.MusicData.AudioData)
	}
	return nil, out, nil
}
