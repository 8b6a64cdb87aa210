package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/winnow/internal/config"
	"github.com/hpungsan/winnow/internal/journal"
	"github.com/hpungsan/winnow/internal/purify"
)

// Tool definitions

var appendToolDef = mcp.NewTool("corpus_append",
	mcp.WithDescription("Append one captured text snippet to the corpus log. Exact consecutive duplicates per source are suppressed; deny-listed sources and too-short content are filtered at flush time."),
	mcp.WithString("source", mcp.Required(), mcp.Description("Where the text was captured from")),
	mcp.WithString("content", mcp.Required(), mcp.Description("The captured text")),
	mcp.WithString("captured_at", mcp.Description("Capture time, RFC 3339 (defaults to now)")),
)

var loadToolDef = mcp.NewTool("corpus_load",
	mcp.WithDescription("Load the current deduplicated entry sequence for downstream consumption."),
)

var purifyToolDef = mcp.NewTool("corpus_purify",
	mcp.WithDescription("Run one purification cycle: pick a strategy by corpus size, remove exact and near-duplicates, and rewrite the log crash-safely if anything was removed."),
	mcp.WithBoolean("force", mcp.Description("Ignore rate limits and purify now")),
)

var statsToolDef = mcp.NewTool("corpus_stats",
	mcp.WithDescription("Report entry counts per source, buffered entries, and the last purification time."),
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"corpus_append": {
		def:     appendToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleAppend },
	},
	"corpus_load": {
		def:     loadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLoad },
	},
	"corpus_purify": {
		def:     purifyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePurify },
	},
	"corpus_stats": {
		def:     statsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with winnow tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(j *journal.Journal, p *purify.Purifier, cfg *config.Config, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"winnow",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(j, p, cfg)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(j *journal.Journal, p *purify.Purifier, cfg *config.Config, version string) error {
	s := NewServer(j, p, cfg, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
