package ops

import (
	"os"
	"path/filepath"
	"testing"

	"deckfix/internal/db"
	"deckfix/internal/errors"
)

const sampleMarkdown = `# Launch Plan

## Goals
- grow usage
- keep latency low

## Snippet

` + "```go\nx := 1\n```\n"

func writeMarkdown(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "deck.md")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestBuild_FromMarkdown(t *testing.T) {
	database := newTestDB(t)
	cfg := testConfig()
	dir := t.TempDir()
	md := writeMarkdown(t, dir, sampleMarkdown)
	out := filepath.Join(dir, "launch.pptx")

	output, err := Build(database, cfg, BuildInput{MarkdownPath: md, Output: out})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if output.SlideCount != 3 {
		t.Errorf("SlideCount = %d, want 3", output.SlideCount)
	}
	if !output.Valid {
		t.Error("built deck should be valid")
	}

	check, err := Check(database, cfg, CheckInput{Path: out})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !check.Valid {
		t.Errorf("built deck fails validation: %+v", check.Issues)
	}

	inspect, err := Inspect(cfg, InspectInput{Path: out})
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if inspect.Title != "Launch Plan" {
		t.Errorf("Title = %q, want %q", inspect.Title, "Launch Plan")
	}

	run, err := db.GetRun(database, output.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Kind != RunKindBuild {
		t.Errorf("Kind = %q, want %q", run.Kind, RunKindBuild)
	}
}

func TestBuild_EmptyMarkdown(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	md := writeMarkdown(t, dir, "just a paragraph, no headings\n")

	_, err := Build(nil, cfg, BuildInput{MarkdownPath: md, Output: filepath.Join(dir, "out.pptx")})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestBuild_ThemeOverride(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	md := writeMarkdown(t, dir, sampleMarkdown)
	theme := filepath.Join(dir, "theme.yaml")
	if err := os.WriteFile(theme, []byte("major_font: Georgia\n"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	out := filepath.Join(dir, "themed.pptx")

	output, err := Build(nil, cfg, BuildInput{MarkdownPath: md, Output: out, ThemePath: theme})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if !output.Valid {
		t.Error("built deck should be valid")
	}
}

func TestBuild_BadThemeFile(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	md := writeMarkdown(t, dir, sampleMarkdown)
	theme := filepath.Join(dir, "theme.yaml")
	if err := os.WriteFile(theme, []byte("major_font: [unclosed"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Build(nil, cfg, BuildInput{
		MarkdownPath: md,
		Output:       filepath.Join(dir, "out.pptx"),
		ThemePath:    theme,
	})
	if err == nil {
		t.Fatal("expected error for malformed theme file")
	}
}

func TestNew_Defaults(t *testing.T) {
	database := newTestDB(t)
	cfg := testConfig()
	out := deckPath(t, "new.pptx")

	output, err := New(database, cfg, NewInput{Output: out})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if output.SlideCount != 1 {
		t.Errorf("SlideCount = %d, want 1", output.SlideCount)
	}

	inspect, err := Inspect(cfg, InspectInput{Path: out})
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if inspect.Title != "Presentation" {
		t.Errorf("Title = %q, want %q", inspect.Title, "Presentation")
	}
}

func TestNew_SlideCount(t *testing.T) {
	cfg := testConfig()
	out := deckPath(t, "new.pptx")

	output, err := New(nil, cfg, NewInput{Output: out, Title: "Quarterly Review", Slides: 4})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if output.SlideCount != 4 {
		t.Errorf("SlideCount = %d, want 4", output.SlideCount)
	}

	inspect, err := Inspect(cfg, InspectInput{Path: out})
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	if inspect.SlideCount != 4 {
		t.Errorf("inspected SlideCount = %d, want 4", inspect.SlideCount)
	}
	if inspect.Title != "Quarterly Review" {
		t.Errorf("Title = %q, want %q", inspect.Title, "Quarterly Review")
	}
}

func TestNew_NegativeSlides(t *testing.T) {
	cfg := testConfig()
	_, err := New(nil, cfg, NewInput{Output: deckPath(t, "new.pptx"), Slides: -1})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
}
