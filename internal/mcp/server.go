// Package mcp exposes the training journal to LLM clients as MCP tools and
// resources.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("LiftLog", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("LiftLog strength training journal. Query training volume by muscle group, per-exercise progression and weekday consistency, or import a workout log written in the text format."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetTrainingSummary, Handler: h.getTrainingSummary},
		server.ServerTool{Tool: toolGetVolumeByCategory, Handler: h.getVolumeByCategory},
		server.ServerTool{Tool: toolGetDailyVolume, Handler: h.getDailyVolume},
		server.ServerTool{Tool: toolGetExerciseProgression, Handler: h.getExerciseProgression},
		server.ServerTool{Tool: toolGetWeekdayConsistency, Handler: h.getWeekdayConsistency},
		server.ServerTool{Tool: toolGetTopExercises, Handler: h.getTopExercises},
		server.ServerTool{Tool: toolListExercises, Handler: h.listExercises},
		server.ServerTool{Tool: toolClassifyExercise, Handler: h.classifyExercise},
		server.ServerTool{Tool: toolImportTextLog, Handler: h.importTextLog},
	)

	s.AddResources(
		server.ServerResource{Resource: resSessions, Handler: h.sessions},
		server.ServerResource{Resource: resMuscleTable, Handler: h.muscleTable},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resSessions = mcp.NewResource(
	"liftlog://sessions",
	"Sessions",
	mcp.WithResourceDescription("Every logged session in the JSON exchange format, oldest first"),
	mcp.WithMIMEType("application/json"),
)

var resMuscleTable = mcp.NewResource(
	"liftlog://muscle_table",
	"Muscle Table",
	mcp.WithResourceDescription("Exercise to muscle-group table and keyword fallbacks used for classification"),
	mcp.WithMIMEType("application/json"),
)
