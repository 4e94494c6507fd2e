package ops

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"deckfix/internal/config"
	"deckfix/internal/errors"
	"deckfix/internal/repair"
	"deckfix/internal/validate"
)

// FixInput contains parameters for the Fix operation.
type FixInput struct {
	Path         string
	Output       string // destination; defaults to Path (in-place rewrite)
	PruneOrphans bool
	DryRun       bool // repair in memory, report, write nothing
}

// FixOutput contains the result of the Fix operation.
type FixOutput struct {
	RunID       string           `json:"run_id"`
	Path        string           `json:"path"`
	Output      string           `json:"output,omitempty"`
	Valid       bool             `json:"is_valid"`
	IssuesFound []validate.Issue `json:"issues_found"`
	IssuesFixed []validate.Issue `json:"issues_fixed"`
	Remaining   []validate.Issue `json:"remaining"`
}

// Fix validates a deck, applies every automatic repair, and writes the
// repaired archive. Repairs only ever remove or synthesize structure; they
// never invent targets for missing parts.
func Fix(database *sql.DB, cfg *config.Config, input FixInput) (*FixOutput, error) {
	if err := ValidateDeckPath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}
	output := input.Output
	if output == "" {
		output = input.Path
	}
	if !input.DryRun {
		if err := ValidateDeckPath(output, PathCheckWrite, cfg); err != nil {
			return nil, err
		}
	}

	data, err := readInputFile(input.Path)
	if err != nil {
		return nil, err
	}
	session, err := repair.Open(data)
	if err != nil {
		return nil, err
	}
	if _, err := session.Validate(); err != nil {
		return nil, err
	}
	result, err := session.Repair(repair.Options{PruneOrphans: input.PruneOrphans})
	if err != nil {
		return nil, err
	}

	out := &FixOutput{
		Path:        input.Path,
		Valid:       result.Valid,
		IssuesFound: result.IssuesFound,
		IssuesFixed: result.IssuesFixed,
		Remaining:   result.Remaining,
	}

	if !input.DryRun {
		repaired, err := session.Save()
		if err != nil {
			return nil, err
		}
		if err := writeDeckFile(output, repaired); err != nil {
			return nil, err
		}
		out.Output = output
	}

	absPath, err := filepath.Abs(input.Path)
	if err != nil {
		absPath = input.Path
	}
	runID, err := recordRun(database, RunKindFix, absPath,
		len(result.IssuesFound), len(result.IssuesFixed), result.Valid, result.IssuesFound)
	if err != nil {
		return nil, err
	}
	out.RunID = runID
	return out, nil
}

// writeDeckFile writes data to path via a temp file and atomic rename, so a
// failure mid-write preserves any existing file.
func writeDeckFile(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create output file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		file = nil
		return errors.NewInternal(err)
	}
	file = nil

	if err := os.Rename(tempPath, path); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to finalize output file: %w", err))
	}
	success = true
	return nil
}
