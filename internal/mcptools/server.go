package mcptools

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool names exposed by the server.
const (
	ToolSubmitCommand    = "submit_command"
	ToolGetCommandStatus = "get_command_status"
	ToolCancelCommand    = "cancel_command"
	ToolGetMusicResult   = "get_music_result"
)

// ToolNames lists every registered tool.
func ToolNames() []string {
	return []string{ToolSubmitCommand, ToolGetCommandStatus, ToolCancelCommand, ToolGetMusicResult}
}

// NewServer creates an MCP server with the four command tools registered.
func NewServer(svc *Service, version string, instructions string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "ai-music-assistant",
		Version: version,
	}, &mcp.ServerOptions{Instructions: instructions})

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSubmitCommand,
		Description: "Queue a music creation command (text_to_music, melody_to_arrangement, pitch_correction, music_analysis, style_transfer, improvisation). Returns a command id immediately; poll get_command_status until it is completed.",
	}, svc.SubmitCommand)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolGetCommandStatus,
		Description: "Return the lifecycle state of a command: pending, processing, completed, error or cancelled.",
	}, svc.GetCommandStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolCancelCommand,
		Description: "Cancel a pending or processing command. Cancelling a finished command has no effect.",
	}, svc.CancelCommand)

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolGetMusicResult,
		Description: "Fetch the analysis, suggestions and rendered artifacts (base64 MIDI, MusicXML text, optional WAV) of a completed command.",
	}, svc.GetMusicResult)

	return server
}

// NewHandler serves server over streamable HTTP.
func NewHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)
}
