package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"deckfix/internal/config"
	"deckfix/internal/errors"
	"deckfix/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// InfoRequest represents the arguments for deck_info.
type InfoRequest struct {
	Path string `json:"path"`
}

// CheckRequest represents the arguments for deck_check.
type CheckRequest struct {
	Path string `json:"path"`
}

// FixRequest represents the arguments for deck_fix.
type FixRequest struct {
	Path         string `json:"path"`
	Output       string `json:"output,omitempty"`
	PruneOrphans bool   `json:"prune_orphans,omitempty"`
	DryRun       bool   `json:"dry_run,omitempty"`
}

// BuildRequest represents the arguments for deck_build.
type BuildRequest struct {
	MarkdownPath string `json:"markdown_path"`
	Output       string `json:"output"`
	Title        string `json:"title,omitempty"`
	ThemePath    string `json:"theme_path,omitempty"`
}

// HistoryRequest represents the arguments for deck_history.
type HistoryRequest struct {
	ID    string `json:"id,omitempty"`
	File  string `json:"file,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Handler implementations

// HandleInfo handles the deck_info tool call.
func (h *Handlers) HandleInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InfoRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Inspect(h.cfg, ops.InspectInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCheck handles the deck_check tool call.
func (h *Handlers) HandleCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CheckRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Check(h.db, h.cfg, ops.CheckInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFix handles the deck_fix tool call.
func (h *Handlers) HandleFix(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FixRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fix(h.db, h.cfg, ops.FixInput{
		Path:         input.Path,
		Output:       input.Output,
		PruneOrphans: input.PruneOrphans,
		DryRun:       input.DryRun,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleBuild handles the deck_build tool call.
func (h *Handlers) HandleBuild(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[BuildRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Build(h.db, h.cfg, ops.BuildInput{
		MarkdownPath: input.MarkdownPath,
		Output:       input.Output,
		Title:        input.Title,
		ThemePath:    input.ThemePath,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistory handles the deck_history tool call. With an id it returns a
// single run with its issues; otherwise it lists runs.
func (h *Handlers) HandleHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[HistoryRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.ID != "" {
		result, err := ops.HistoryGet(h.db, ops.HistoryGetInput{ID: input.ID})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}

	result, err := ops.History(h.db, h.cfg, ops.HistoryInput{
		File:  input.File,
		Limit: input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var deckErr *errors.DeckError
	if stderrors.As(err, &deckErr) {
		message := deckErr.Message
		if deckErr.Code == errors.ErrInternal {
			message = "an internal error occurred"
		}
		errorObj := map[string]any{
			"code":    deckErr.Code,
			"message": message,
			"status":  deckErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if deckErr.Code != errors.ErrInternal && deckErr.Details != nil {
			errorObj["details"] = deckErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
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
