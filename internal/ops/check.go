package ops

import (
	"database/sql"
	"path/filepath"

	"deckfix/internal/config"
	"deckfix/internal/repair"
	"deckfix/internal/validate"
)

// CheckInput contains parameters for the Check operation.
type CheckInput struct {
	Path string
}

// CheckOutput contains the result of the Check operation.
type CheckOutput struct {
	RunID    string           `json:"run_id"`
	Path     string           `json:"path"`
	Valid    bool             `json:"is_valid"`
	Errors   int              `json:"errors"`
	Warnings int              `json:"warnings"`
	Issues   []validate.Issue `json:"issues"`
}

// Check validates a deck without modifying it and records the findings.
func Check(database *sql.DB, cfg *config.Config, input CheckInput) (*CheckOutput, error) {
	if err := ValidateDeckPath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}
	data, err := readInputFile(input.Path)
	if err != nil {
		return nil, err
	}

	session, err := repair.Open(data)
	if err != nil {
		return nil, err
	}
	issues, err := session.Validate()
	if err != nil {
		return nil, err
	}

	errs, warnings := countBySeverity(issues)
	valid := errs == 0

	absPath, err := filepath.Abs(input.Path)
	if err != nil {
		absPath = input.Path
	}
	runID, err := recordRun(database, RunKindCheck, absPath, len(issues), 0, valid, issues)
	if err != nil {
		return nil, err
	}

	return &CheckOutput{
		RunID:    runID,
		Path:     input.Path,
		Valid:    valid,
		Errors:   errs,
		Warnings: warnings,
		Issues:   issues,
	}, nil
}
