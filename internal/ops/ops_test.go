package ops

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"deckfix/internal/config"
	"deckfix/internal/db"
	"deckfix/internal/deck"
	"deckfix/internal/opc"
)

// testConfig returns a config that permits reads and writes anywhere, the way
// tests use t.TempDir() instead of ~/.deckfix/decks.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	return cfg
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// writeSampleDeck builds a two-slide deck and writes it to path.
func writeSampleDeck(t *testing.T, path string) {
	t.Helper()
	data, err := deck.NewBuilder("Sample Deck", deck.DefaultTheme()).
		AddSlide(deck.SlideContent{Title: "Sample Deck", TitleOnly: true}).
		AddSlide(deck.SlideContent{Title: "Agenda", Bullets: []string{"one", "two"}}).
		BuildBytes()
	if err != nil {
		t.Fatalf("BuildBytes failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

// corruptDeck reopens the deck at path, applies mutate, and writes it back.
func corruptDeck(t *testing.T, path string, mutate func(p *opc.Package)) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	p, err := opc.Open(data)
	if err != nil {
		t.Fatalf("opc.Open failed: %v", err)
	}
	mutate(p)
	out, err := p.Save()
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func writeGarbage(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("this is not a zip archive"), 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func deckPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
