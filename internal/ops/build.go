package ops

import (
	"database/sql"
	"fmt"
	"path/filepath"

	"deckfix/internal/config"
	"deckfix/internal/deck"
	"deckfix/internal/errors"
	"deckfix/internal/markdown"
	"deckfix/internal/validate"
)

// BuildInput contains parameters for the Build operation.
type BuildInput struct {
	MarkdownPath string
	Output       string
	Title        string // deck title; defaults to the first slide's title
	ThemePath    string // overrides the configured theme file
}

// BuildOutput contains the result of the Build and New operations.
type BuildOutput struct {
	RunID      string `json:"run_id"`
	Output     string `json:"output"`
	SlideCount int    `json:"slide_count"`
	Valid      bool   `json:"is_valid"`
}

// NewInput contains parameters for the New operation.
type NewInput struct {
	Output string
	Title  string // defaults to "Presentation"
	Slides int    // total slide count including the title slide; defaults to 1
}

// Build generates a deck from a markdown outline and writes it to Output.
// The built package is validated before writing so a builder regression can
// never produce a broken archive silently.
func Build(database *sql.DB, cfg *config.Config, input BuildInput) (*BuildOutput, error) {
	if err := ValidateMarkdownPath(input.MarkdownPath, cfg); err != nil {
		return nil, err
	}
	if err := ValidateDeckPath(input.Output, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	src, err := readInputFile(input.MarkdownPath)
	if err != nil {
		return nil, err
	}
	slides := markdown.Parse(src)
	if len(slides) == 0 {
		return nil, errors.NewInvalidRequest("no slides found in markdown (use # and ## headings)")
	}

	title := input.Title
	if title == "" {
		title = slides[0].Title
	}

	theme, err := loadTheme(cfg, input.ThemePath)
	if err != nil {
		return nil, err
	}

	builder := deck.NewBuilder(title, theme)
	for _, s := range slides {
		builder.AddSlide(deck.SlideContent{
			Title:     s.Title,
			Bullets:   s.Bullets,
			Code:      s.Code,
			TitleOnly: s.TitleOnly,
		})
	}
	return finishBuild(database, builder, input.Output)
}

// New generates a minimal deck: a title slide followed by numbered empty
// content slides.
func New(database *sql.DB, cfg *config.Config, input NewInput) (*BuildOutput, error) {
	if err := ValidateDeckPath(input.Output, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	title := input.Title
	if title == "" {
		title = "Presentation"
	}
	count := input.Slides
	if count < 0 {
		return nil, errors.NewInvalidRequest("slide count must not be negative")
	}
	if count == 0 {
		count = 1
	}

	theme, err := loadTheme(cfg, "")
	if err != nil {
		return nil, err
	}

	builder := deck.NewBuilder(title, theme)
	builder.AddSlide(deck.SlideContent{Title: title, TitleOnly: true})
	for i := 1; i < count; i++ {
		builder.AddSlide(deck.SlideContent{Title: fmt.Sprintf("Slide %d", i+1)})
	}
	return finishBuild(database, builder, input.Output)
}

// loadTheme resolves the theme: an explicit path wins, then the configured
// one, then the built-in default.
func loadTheme(cfg *config.Config, themePath string) (deck.Theme, error) {
	path := themePath
	if path == "" && cfg != nil {
		path = cfg.ThemePath
	}
	if path == "" {
		return deck.DefaultTheme(), nil
	}
	return deck.LoadTheme(path)
}

func finishBuild(database *sql.DB, builder *deck.Builder, output string) (*BuildOutput, error) {
	p, err := builder.Build()
	if err != nil {
		return nil, err
	}
	issues := validate.Validate(p)
	if validate.HasErrors(issues) {
		return nil, errors.NewInternal(fmt.Errorf("built deck failed validation: %d issues", len(issues)))
	}

	data, err := p.Save()
	if err != nil {
		return nil, err
	}
	if err := writeDeckFile(output, data); err != nil {
		return nil, err
	}

	absOutput, err := filepath.Abs(output)
	if err != nil {
		absOutput = output
	}
	runID, err := recordRun(database, RunKindBuild, absOutput, 0, 0, true, nil)
	if err != nil {
		return nil, err
	}
	return &BuildOutput{
		RunID:      runID,
		Output:     output,
		SlideCount: builder.SlideCount(),
		Valid:      true,
	}, nil
}
