package faq

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/anpruch/clubbot/catalog"
)

func writeFAQ(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faq.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestRenderSingleEntry(t *testing.T) {
	f, err := Load(writeFAQ(t, `{"Q1":"A1"}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, want := f.Render(), "<b>Q1</b>\n    — A1"; got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
}

func TestRenderKeepsOrderAndEscapesQuestions(t *testing.T) {
	f, err := Load(writeFAQ(t, `{"Zeta?":"last <a href=\"https://t.me/x\">link</a>","Alpha & co":"first"}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "<b>Zeta?</b>\n    — last <a href=\"https://t.me/x\">link</a>\n\n<b>Alpha &amp; co</b>\n    — first"
	if got := f.Render(); got != want {
		t.Fatalf("Render = %q, want %q", got, want)
	}
	if f.Len() != 2 || f.Entries()[0].Question != "Zeta?" {
		t.Fatalf("entries = %+v", f.Entries())
	}
}

func TestRenderEmpty(t *testing.T) {
	f, err := Load(writeFAQ(t, `{}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Render() != "" {
		t.Fatalf("expected empty render")
	}
	var nilFAQ *FAQ
	if nilFAQ.Render() != "" {
		t.Fatalf("expected empty render for nil FAQ")
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"empty path": "",
		"missing":    filepath.Join(t.TempDir(), "nope.json"),
		"malformed":  writeFAQ(t, `{"Q":`),
		"nested":     writeFAQ(t, `{"Q": {"A": "B"}}`),
		"array":      writeFAQ(t, `["Q", "A"]`),
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(path)
			var dserr *catalog.DataSourceError
			if !errors.As(err, &dserr) {
				t.Fatalf("expected DataSourceError, got %v", err)
			}
		})
	}
}

func TestLoadDataset(t *testing.T) {
	f, err := Load(filepath.Join("..", "dataset", "faq.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Len() == 0 {
		t.Fatal("dataset FAQ is empty")
	}
}
