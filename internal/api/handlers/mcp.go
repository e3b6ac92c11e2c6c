package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MCPPath is where the streamable HTTP MCP endpoint is mounted.
const MCPPath = "/mcp"

// MCPStatus describes the embedded MCP tool server.
func MCPStatus(tools []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"enabled": true,
			"url":     MCPPath,
			"label":   "ai-music-assistant",
			"status":  "enabled",
			"tools":   tools,
		})
	}
}
