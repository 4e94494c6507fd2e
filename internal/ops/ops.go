// Package ops implements the operations behind the CLI commands and MCP
// tools. Each operation takes an Input struct, returns an Output struct, and
// maps failures to coded errors. Operations that examine or change a deck
// record a run in the history database.
package ops

import (
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"deckfix/internal/db"
	"deckfix/internal/validate"
)

// Run kinds recorded in history.
const (
	RunKindCheck = "check"
	RunKindFix   = "fix"
	RunKindBuild = "build"
)

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// issueRows converts validator issues into history rows.
func issueRows(issues []validate.Issue) []db.RunIssue {
	rows := make([]db.RunIssue, 0, len(issues))
	for _, issue := range issues {
		rows = append(rows, db.RunIssue{
			Kind:        string(issue.Kind),
			Severity:    string(issue.Severity),
			Part:        issue.Part,
			Description: issue.Description,
		})
	}
	return rows
}

// countBySeverity returns the error and warning counts of an issue list.
func countBySeverity(issues []validate.Issue) (errs, warnings int) {
	for _, issue := range issues {
		if issue.Severity == validate.SeverityError {
			errs++
		} else {
			warnings++
		}
	}
	return errs, warnings
}

// recordRun persists one run with its issue rows. A nil database disables
// history recording rather than failing the operation that already did its
// work.
func recordRun(database *sql.DB, kind, file string, found, fixed int, valid bool, issues []validate.Issue) (string, error) {
	id, err := generateULID()
	if err != nil {
		return "", err
	}
	if database == nil {
		return id, nil
	}
	run := &db.Run{
		ID:          id,
		Kind:        kind,
		File:        file,
		IssuesFound: found,
		IssuesFixed: fixed,
		Valid:       valid,
		CreatedAt:   time.Now().Unix(),
	}
	if err := db.InsertRun(database, run, issueRows(issues)); err != nil {
		return "", err
	}
	return id, nil
}
