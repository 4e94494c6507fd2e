package ops

import (
	"os"
	"path/filepath"
	"testing"

	"deckfix/internal/db"
	"deckfix/internal/opc"
	"deckfix/internal/validate"
)

func TestFix_RepairsInPlace(t *testing.T) {
	database := newTestDB(t)
	cfg := testConfig()
	path := deckPath(t, "broken.pptx")
	writeSampleDeck(t, path)
	corruptDeck(t, path, func(p *opc.Package) {
		p.RemovePart(opc.ContentTypesName)
	})

	output, err := Fix(database, cfg, FixInput{Path: path})
	if err != nil {
		t.Fatalf("Fix failed: %v", err)
	}
	if !output.Valid {
		t.Errorf("Valid = false, want true; remaining: %+v", output.Remaining)
	}
	if len(output.IssuesFound) == 0 || len(output.IssuesFixed) == 0 {
		t.Errorf("found %d, fixed %d, want both > 0",
			len(output.IssuesFound), len(output.IssuesFixed))
	}
	if output.Output != path {
		t.Errorf("Output = %q, want in-place %q", output.Output, path)
	}

	// Repaired file validates clean.
	check, err := Check(database, cfg, CheckInput{Path: path})
	if err != nil {
		t.Fatalf("Check after Fix failed: %v", err)
	}
	if !check.Valid {
		t.Errorf("repaired deck still invalid: %+v", check.Issues)
	}
}

func TestFix_SeparateOutput(t *testing.T) {
	cfg := testConfig()
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pptx")
	out := filepath.Join(dir, "repaired.pptx")
	writeSampleDeck(t, path)
	corruptDeck(t, path, func(p *opc.Package) {
		p.RemovePart(opc.ContentTypesName)
	})

	output, err := Fix(nil, cfg, FixInput{Path: path, Output: out})
	if err != nil {
		t.Fatalf("Fix failed: %v", err)
	}
	if output.Output != out {
		t.Errorf("Output = %q, want %q", output.Output, out)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatalf("repaired file missing: %v", err)
	}

	// Input is untouched when writing elsewhere.
	check, err := Check(nil, cfg, CheckInput{Path: path})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if check.Valid {
		t.Error("input deck should still be broken")
	}
}

func TestFix_DryRun(t *testing.T) {
	cfg := testConfig()
	path := deckPath(t, "broken.pptx")
	writeSampleDeck(t, path)
	corruptDeck(t, path, func(p *opc.Package) {
		p.RemovePart(opc.ContentTypesName)
	})
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	output, err := Fix(nil, cfg, FixInput{Path: path, DryRun: true})
	if err != nil {
		t.Fatalf("Fix failed: %v", err)
	}
	if output.Output != "" {
		t.Errorf("Output = %q, want empty on dry run", output.Output)
	}
	if len(output.IssuesFixed) == 0 {
		t.Error("dry run should still report fixes")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(before) != string(after) {
		t.Error("dry run must not modify the file")
	}
}

func TestFix_PruneOrphans(t *testing.T) {
	cfg := testConfig()
	path := deckPath(t, "orphan.pptx")
	writeSampleDeck(t, path)
	corruptDeck(t, path, func(p *opc.Package) {
		p.AddPart(&opc.Part{Name: "/ppt/media/unused.xml", Data: []byte("<x/>")})
	})

	// Detect-only by default.
	output, err := Fix(nil, cfg, FixInput{Path: path, DryRun: true})
	if err != nil {
		t.Fatalf("Fix failed: %v", err)
	}
	if countKind(output.Remaining, validate.KindOrphanPart) == 0 {
		t.Error("orphan should remain without PruneOrphans")
	}

	output, err = Fix(nil, cfg, FixInput{Path: path, PruneOrphans: true})
	if err != nil {
		t.Fatalf("Fix with PruneOrphans failed: %v", err)
	}
	if countKind(output.Remaining, validate.KindOrphanPart) != 0 {
		t.Errorf("orphan should be pruned, remaining: %+v", output.Remaining)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	p, err := opc.Open(data)
	if err != nil {
		t.Fatalf("opc.Open failed: %v", err)
	}
	if p.HasPart("/ppt/media/unused.xml") {
		t.Error("pruned part still present in saved file")
	}
}

func TestFix_RecordsRun(t *testing.T) {
	database := newTestDB(t)
	cfg := testConfig()
	path := deckPath(t, "broken.pptx")
	writeSampleDeck(t, path)
	corruptDeck(t, path, func(p *opc.Package) {
		p.RemovePart(opc.ContentTypesName)
	})

	output, err := Fix(database, cfg, FixInput{Path: path})
	if err != nil {
		t.Fatalf("Fix failed: %v", err)
	}
	run, err := db.GetRun(database, output.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Kind != RunKindFix {
		t.Errorf("Kind = %q, want %q", run.Kind, RunKindFix)
	}
	if run.IssuesFound != len(output.IssuesFound) {
		t.Errorf("IssuesFound = %d, want %d", run.IssuesFound, len(output.IssuesFound))
	}
	if run.IssuesFixed != len(output.IssuesFixed) {
		t.Errorf("IssuesFixed = %d, want %d", run.IssuesFixed, len(output.IssuesFixed))
	}
}

func countKind(issues []validate.Issue, kind validate.Kind) int {
	n := 0
	for _, issue := range issues {
		if issue.Kind == kind {
			n++
		}
	}
	return n
}
