package ocr

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestNewEngineUnsupportedKind(t *testing.T) {
	if _, err := NewEngine("azure", ""); err == nil {
		t.Error("expected error for unsupported engine kind")
	}
}

func TestNewEngineDefaultsToTesseract(t *testing.T) {
	e, err := NewEngine("", "")
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if _, ok := e.(*TesseractEngine); !ok {
		t.Errorf("default engine is %T, want *TesseractEngine", e)
	}
}

func TestGoogleEngineRequiresProject(t *testing.T) {
	t.Setenv("GOOGLE_PROJECT_ID", "")
	t.Setenv("GOOGLE_LOCATION", "")
	t.Setenv("GOOGLE_CREDENTIALS_FILE", "")
	if _, err := NewEngine("google", ""); err == nil {
		t.Error("expected error when no project id is configured")
	}
}

func TestGoogleConfigEnvFallback(t *testing.T) {
	t.Setenv("GOOGLE_PROJECT_ID", "demo-project")
	t.Setenv("GOOGLE_LOCATION", "europe-west1")

	var c GoogleConfig
	if err := c.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ProjectID != "demo-project" || c.Location != "europe-west1" {
		t.Errorf("config = %+v", c)
	}
	if c.Model != "gemini-pro-vision" {
		t.Errorf("model default = %q", c.Model)
	}
}

func TestTesseractConfigDefaults(t *testing.T) {
	t.Setenv("TESSERACT_BINARY", "")
	t.Setenv("TESSERACT_LANG", "")

	var c TesseractConfig
	if err := c.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Binary != "tesseract" || c.Language != "eng" {
		t.Errorf("defaults = %+v", c)
	}
}

func TestTesseractConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tesseract.json")
	if err := os.WriteFile(path, []byte(`{"binary":"tess5","language":"deu"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	c := TesseractConfig{baseConfig: baseConfig{ConfigPath: path}}
	if err := c.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Binary != "tess5" || c.Language != "deu" {
		t.Errorf("config = %+v", c)
	}
}

func TestBaseConfigExplicitPathErrors(t *testing.T) {
	var c TesseractConfig
	if err := c.loadConfig("/no/such/config.json", "tesseract", &c); err == nil {
		t.Error("expected error for missing explicit config file")
	}

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := c.loadConfig(bad, "tesseract", &c); err == nil {
		t.Error("expected error for unparseable config file")
	}
}

func TestTesseractExtractBeforeLoad(t *testing.T) {
	e := &TesseractEngine{config: TesseractConfig{Language: "eng"}}
	if _, err := e.ExtractText(context.Background(), []byte("img"), "image/jpeg"); err == nil {
		t.Error("expected error before Load")
	}
}

func TestExtensionFor(t *testing.T) {
	tests := map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"image/webp": ".webp",
		"":           ".jpg",
	}
	for mime, want := range tests {
		if got := extensionFor(mime); got != want {
			t.Errorf("extensionFor(%q) = %q, want %q", mime, got, want)
		}
	}
}
