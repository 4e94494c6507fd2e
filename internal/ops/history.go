package ops

import (
	"database/sql"
	"path/filepath"

	"deckfix/internal/config"
	"deckfix/internal/db"
	"deckfix/internal/errors"
)

const maxHistoryLimit = 500

// HistoryInput contains parameters for the History operation.
type HistoryInput struct {
	File  string // restrict to runs against one deck; empty means all
	Limit int    // defaults to the configured history_limit
}

// HistoryOutput contains the result of the History operation.
type HistoryOutput struct {
	Runs  []*db.Run `json:"runs"`
	Count int       `json:"count"`
}

// HistoryGetInput contains parameters for the HistoryGet operation.
type HistoryGetInput struct {
	ID string
}

// HistoryGetOutput contains one run with its recorded issues.
type HistoryGetOutput struct {
	Run    *db.Run       `json:"run"`
	Issues []db.RunIssue `json:"issues"`
}

// History lists recent runs, newest first.
func History(database *sql.DB, cfg *config.Config, input HistoryInput) (*HistoryOutput, error) {
	if database == nil {
		return nil, errors.NewInvalidOperation("history is not available without a database")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
		if cfg != nil && cfg.HistoryLimit > 0 {
			limit = cfg.HistoryLimit
		}
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	file := input.File
	if file != "" {
		// Runs are recorded under absolute paths.
		if abs, err := filepath.Abs(file); err == nil {
			file = abs
		}
	}

	runs, err := db.ListRuns(database, file, limit)
	if err != nil {
		return nil, err
	}
	return &HistoryOutput{Runs: runs, Count: len(runs)}, nil
}

// HistoryGet fetches one run by ID together with its issue rows.
func HistoryGet(database *sql.DB, input HistoryGetInput) (*HistoryGetOutput, error) {
	if database == nil {
		return nil, errors.NewInvalidOperation("history is not available without a database")
	}
	if input.ID == "" {
		return nil, errors.NewInvalidRequest("run id is required")
	}

	run, err := db.GetRun(database, input.ID)
	if err != nil {
		return nil, err
	}
	issues, err := db.GetRunIssues(database, input.ID)
	if err != nil {
		return nil, err
	}
	return &HistoryGetOutput{Run: run, Issues: issues}, nil
}
