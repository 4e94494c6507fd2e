package db

import (
	"database/sql"

	"deckfix/internal/errors"
)

// Run is one recorded check, fix, or build invocation.
type Run struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	File        string `json:"file"`
	IssuesFound int    `json:"issues_found"`
	IssuesFixed int    `json:"issues_fixed"`
	Valid       bool   `json:"is_valid"`
	CreatedAt   int64  `json:"created_at"`
}

// RunIssue is one issue row recorded under a run, in validator order.
type RunIssue struct {
	Kind        string `json:"kind"`
	Severity    string `json:"severity"`
	Part        string `json:"part,omitempty"`
	Description string `json:"description"`
}

// InsertRun stores a run and its issue rows in one transaction.
func InsertRun(db *sql.DB, run *Run, issues []RunIssue) error {
	tx, err := db.Begin()
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, kind, file, issues_found, issues_fixed, is_valid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Kind, run.File, run.IssuesFound, run.IssuesFixed, boolToInt(run.Valid), run.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}

	for seq, issue := range issues {
		part := toNullString(issue.Part)
		_, err = tx.Exec(`
			INSERT INTO run_issues (run_id, seq, kind, severity, part, description)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, seq, issue.Kind, issue.Severity, part, issue.Description)
		if err != nil {
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetRun retrieves one run by its ULID.
func GetRun(db *sql.DB, id string) (*Run, error) {
	row := db.QueryRow(`
		SELECT id, kind, file, issues_found, issues_fixed, is_valid, created_at
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return run, nil
}

// GetRunIssues retrieves the issue rows of one run, in recorded order.
func GetRunIssues(db *sql.DB, runID string) ([]RunIssue, error) {
	rows, err := db.Query(`
		SELECT kind, severity, part, description
		FROM run_issues
		WHERE run_id = ?
		ORDER BY seq
	`, runID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var issues []RunIssue
	for rows.Next() {
		var (
			issue RunIssue
			part  sql.NullString
		)
		if err := rows.Scan(&issue.Kind, &issue.Severity, &part, &issue.Description); err != nil {
			return nil, errors.NewInternal(err)
		}
		issue.Part = part.String
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return issues, nil
}

// ListRuns returns the most recent runs, newest first. A non-empty file
// restricts the listing to runs against that file.
func ListRuns(db *sql.DB, file string, limit int) ([]*Run, error) {
	query := `
		SELECT id, kind, file, issues_found, issues_fixed, is_valid, created_at
		FROM runs
	`
	args := []any{}
	if file != "" {
		query += " WHERE file = ?"
		args = append(args, file)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			run   Run
			valid int
		)
		if err := rows.Scan(&run.ID, &run.Kind, &run.File, &run.IssuesFound,
			&run.IssuesFixed, &valid, &run.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		run.Valid = valid != 0
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return runs, nil
}

// scanRun scans a single row into a Run struct.
func scanRun(row *sql.Row) (*Run, error) {
	var (
		run   Run
		valid int
	)
	err := row.Scan(&run.ID, &run.Kind, &run.File, &run.IssuesFound,
		&run.IssuesFixed, &valid, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	run.Valid = valid != 0
	return &run, nil
}

// toNullString converts an empty string to SQL NULL.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
