package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"deckfix/internal/config"
	"deckfix/internal/db"
	"deckfix/internal/deck"
	"deckfix/internal/errors"
	"deckfix/internal/opc"
)

// testSetup creates a temporary database and config for testing.
func testSetup(t *testing.T) (*sql.DB, *config.Config, func()) {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true // Allow temp dirs in tests

	cleanup := func() {
		database.Close()
	}

	return database, cfg, cleanup
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// writeTestDeck builds a small deck and writes it to a new temp path.
func writeTestDeck(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.pptx")
	data, err := deck.NewBuilder("MCP Test", deck.DefaultTheme()).
		AddSlide(deck.SlideContent{Title: "MCP Test", TitleOnly: true}).
		AddSlide(deck.SlideContent{Title: "Points", Bullets: []string{"first", "second"}}).
		BuildBytes()
	if err != nil {
		t.Fatalf("BuildBytes failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

// breakTestDeck strips the content-types part from the deck at path.
func breakTestDeck(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	p, err := opc.Open(data)
	if err != nil {
		t.Fatalf("opc.Open failed: %v", err)
	}
	p.RemovePart(opc.ContentTypesName)
	out, err := p.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

// TestHandleInfo tests the deck_info handler.
func TestHandleInfo(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, cfg)
	ctx := context.Background()
	path := writeTestDeck(t)

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name:      "info for existing deck",
			args:      map[string]any{"path": path},
			wantError: false,
		},
		{
			name:      "info for missing deck",
			args:      map[string]any{"path": filepath.Join(t.TempDir(), "missing.pptx")},
			wantError: true,
			errorCode: "NOT_FOUND",
		},
		{
			name:      "info without path",
			args:      map[string]any{},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleInfo(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
				return
			}
			output := parseOutput(t, result)
			if output["slide_count"].(float64) != 2 {
				t.Errorf("slide_count = %v, want 2", output["slide_count"])
			}
			if output["title"] != "MCP Test" {
				t.Errorf("title = %v, want %q", output["title"], "MCP Test")
			}
		})
	}
}

// TestHandleCheck tests the deck_check handler.
func TestHandleCheck(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, cfg)
	ctx := context.Background()

	t.Run("clean deck is valid", func(t *testing.T) {
		path := writeTestDeck(t)
		result, err := h.HandleCheck(ctx, makeRequest(map[string]any{"path": path}))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		output := parseOutput(t, result)
		if output["is_valid"] != true {
			t.Errorf("is_valid = %v, want true", output["is_valid"])
		}
		if output["run_id"] == "" {
			t.Error("run_id should not be empty")
		}
	})

	t.Run("broken deck reports issues", func(t *testing.T) {
		path := writeTestDeck(t)
		breakTestDeck(t, path)
		result, err := h.HandleCheck(ctx, makeRequest(map[string]any{"path": path}))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		output := parseOutput(t, result)
		if output["is_valid"] != false {
			t.Errorf("is_valid = %v, want false", output["is_valid"])
		}
		issues := output["issues"].([]any)
		if len(issues) == 0 {
			t.Error("expected issues for broken deck")
		}
	})

	t.Run("wrong extension", func(t *testing.T) {
		result, err := h.HandleCheck(ctx, makeRequest(map[string]any{"path": "deck.zip"}))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if !result.IsError {
			t.Fatal("expected error result")
		}
		assertErrorCode(t, result, "INVALID_REQUEST")
	})
}

// TestHandleFix tests the deck_fix handler.
func TestHandleFix(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, cfg)
	ctx := context.Background()

	path := writeTestDeck(t)
	breakTestDeck(t, path)

	result, err := h.HandleFix(ctx, makeRequest(map[string]any{"path": path}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)
	if output["is_valid"] != true {
		t.Errorf("is_valid = %v, want true after fix", output["is_valid"])
	}
	if fixed := output["issues_fixed"].([]any); len(fixed) == 0 {
		t.Error("expected issues_fixed to be non-empty")
	}

	// Verify via check
	checkResult, err := h.HandleCheck(ctx, makeRequest(map[string]any{"path": path}))
	if err != nil {
		t.Fatalf("check handler returned error: %v", err)
	}
	checkOutput := parseOutput(t, checkResult)
	if checkOutput["is_valid"] != true {
		t.Error("deck should be valid after fix")
	}
}

// TestHandleBuild tests the deck_build handler.
func TestHandleBuild(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, cfg)
	ctx := context.Background()

	dir := t.TempDir()
	md := filepath.Join(dir, "outline.md")
	outline := "# Demo\n\n## Topics\n- alpha\n- beta\n"
	if err := os.WriteFile(md, []byte(outline), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	out := filepath.Join(dir, "demo.pptx")

	result, err := h.HandleBuild(ctx, makeRequest(map[string]any{
		"markdown_path": md,
		"output":        out,
	}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	output := parseOutput(t, result)
	if output["slide_count"].(float64) != 2 {
		t.Errorf("slide_count = %v, want 2", output["slide_count"])
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("built deck missing: %v", err)
	}

	t.Run("missing markdown path", func(t *testing.T) {
		result, err := h.HandleBuild(ctx, makeRequest(map[string]any{"output": out}))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if !result.IsError {
			t.Fatal("expected error result")
		}
		assertErrorCode(t, result, "INVALID_REQUEST")
	})
}

// TestHandleHistory tests the deck_history handler.
func TestHandleHistory(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	h := NewHandlers(database, cfg)
	ctx := context.Background()
	path := writeTestDeck(t)

	// Record two runs
	var runID string
	for i := 0; i < 2; i++ {
		result, err := h.HandleCheck(ctx, makeRequest(map[string]any{"path": path}))
		if err != nil {
			t.Fatalf("check handler returned error: %v", err)
		}
		output := parseOutput(t, result)
		runID = output["run_id"].(string)
	}

	t.Run("list runs", func(t *testing.T) {
		result, err := h.HandleHistory(ctx, makeRequest(map[string]any{}))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		output := parseOutput(t, result)
		if output["count"].(float64) != 2 {
			t.Errorf("count = %v, want 2", output["count"])
		}
	})

	t.Run("get run by id", func(t *testing.T) {
		result, err := h.HandleHistory(ctx, makeRequest(map[string]any{"id": runID}))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		output := parseOutput(t, result)
		run := output["run"].(map[string]any)
		if run["id"] != runID {
			t.Errorf("run id = %v, want %q", run["id"], runID)
		}
	})

	t.Run("get unknown run", func(t *testing.T) {
		result, err := h.HandleHistory(ctx, makeRequest(map[string]any{"id": "01J0000000000000000000000"}))
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if !result.IsError {
			t.Fatal("expected error result")
		}
		assertErrorCode(t, result, "NOT_FOUND")
	})
}

func TestServerRegistration(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	s := NewServer(database, cfg, "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	expectedTools := []string{
		"deck_info",
		"deck_check",
		"deck_fix",
		"deck_build",
		"deck_history",
	}

	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}

	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = []string{"deck_fix", "deck_build"}
	s := NewServer(database, cfg, "test")
	tools := s.ListTools()

	if len(tools) != 3 {
		t.Errorf("registered tool count = %d, want 3", len(tools))
	}

	for _, name := range []string{"deck_fix", "deck_build"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}

	for _, name := range []string{"deck_info", "deck_check", "deck_history"} {
		if _, ok := tools[name]; !ok {
			t.Errorf("core tool %q should be registered", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	database, cfg, cleanup := testSetup(t)
	defer cleanup()

	cfg.DisabledTools = AllToolNames()
	s := NewServer(database, cfg, "test")
	tools := s.ListTools()

	if len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{
			name:    "all valid",
			input:   []string{"deck_fix", "deck_build"},
			wantLen: 0,
		},
		{
			name:    "one unknown",
			input:   []string{"deck_fix", "fake_tool"},
			wantLen: 1,
		},
		{
			name:    "all unknown",
			input:   []string{"foo", "bar", "baz"},
			wantLen: 3,
		},
		{
			name:    "empty list",
			input:   []string{},
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 5 {
		t.Errorf("AllToolNames() returned %d names, want 5", len(names))
	}
	unknown := ValidateDisabledTools(names)
	if len(unknown) != 0 {
		t.Errorf("AllToolNames() returned invalid names: %v", unknown)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
	if msg := errObj["message"].(string); msg != "an internal error occurred" {
		t.Fatalf("message=%q should not expose internals", msg)
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	r := errorResult(errors.NewNotFound("abc"))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(r.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj := payload["error"].(map[string]any)

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()

	if len(result.Content) == 0 {
		t.Errorf("no content in error result")
		return
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Errorf("content is not TextContent")
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
		t.Errorf("failed to unmarshal error payload: %v", err)
		return
	}

	errorObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Errorf("no error object in payload")
		return
	}

	code, ok := errorObj["code"].(string)
	if !ok {
		t.Errorf("no code in error object")
		return
	}

	if code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
