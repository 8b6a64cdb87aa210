package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/winnow/internal/config"
	"github.com/hpungsan/winnow/internal/entry"
	"github.com/hpungsan/winnow/internal/errors"
	"github.com/hpungsan/winnow/internal/journal"
	"github.com/hpungsan/winnow/internal/purify"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	journal  *journal.Journal
	purifier *purify.Purifier
	cfg      *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(j *journal.Journal, p *purify.Purifier, cfg *config.Config) *Handlers {
	return &Handlers{journal: j, purifier: p, cfg: cfg}
}

// Request types for each tool

// AppendRequest represents the arguments for corpus_append.
type AppendRequest struct {
	Source     string `json:"source"`
	Content    string `json:"content"`
	CapturedAt string `json:"captured_at,omitempty"` // RFC 3339, defaults to now
}

// PurifyRequest represents the arguments for corpus_purify.
type PurifyRequest struct {
	Force bool `json:"force,omitempty"`
}

// Output types

// AppendOutput is the corpus_append result.
type AppendOutput struct {
	Accepted   bool `json:"accepted"`
	Suppressed bool `json:"suppressed"`
}

// LoadOutput is the corpus_load result.
type LoadOutput struct {
	Entries []entry.Entry `json:"entries"`
	Count   int           `json:"count"`
}

// StatsOutput is the corpus_stats result.
type StatsOutput struct {
	Entries    int            `json:"entries"`
	Buffered   int            `json:"buffered"`
	Sources    map[string]int `json:"sources"`
	LastPurify string         `json:"last_purify,omitempty"`
}

// HandleAppend handles the corpus_append tool call.
func (h *Handlers) HandleAppend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AppendRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Source == "" {
		return errorResult(errors.NewInvalidRequest("source is required")), nil
	}
	if input.Content == "" {
		return errorResult(errors.NewInvalidRequest("content is required")), nil
	}

	capturedAt := time.Now()
	if input.CapturedAt != "" {
		t, err := time.Parse(time.RFC3339, input.CapturedAt)
		if err != nil {
			return errorResult(errors.NewInvalidRequest("captured_at must be RFC 3339")), nil
		}
		capturedAt = t
	}

	accepted, err := h.journal.Append(entry.New(input.Source, input.Content, capturedAt))
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(AppendOutput{
		Accepted:   accepted == 1,
		Suppressed: accepted == 0,
	})
}

// HandleLoad handles the corpus_load tool call: the consumer interface for
// downstream training.
func (h *Handlers) HandleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.purifier.Entries()
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(LoadOutput{Entries: entries, Count: len(entries)})
}

// HandlePurify handles the corpus_purify tool call.
func (h *Handlers) HandlePurify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PurifyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.purifier.Run(ctx, input.Force)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the corpus_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := h.journal.Load()
	if err != nil {
		return errorResult(err), nil
	}

	sources := make(map[string]int)
	for _, e := range entries {
		sources[e.Source]++
	}

	out := StatsOutput{
		Entries:  len(entries),
		Buffered: h.journal.Buffered(),
		Sources:  sources,
	}
	if last := h.purifier.LastPurify(); !last.IsZero() {
		out.LastPurify = last.UTC().Format(time.RFC3339)
	}

	return successResult(out)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if wErr, ok := err.(*errors.WinnowError); ok {
		errorObj := map[string]any{
			"code":    wErr.Code,
			"message": wErr.Message,
		}
		if wErr.Code != errors.ErrInternal && wErr.Details != nil {
			errorObj["details"] = wErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
