package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// TesseractConfig holds configuration for the local tesseract engine.
type TesseractConfig struct {
	baseConfig
	Binary   string `json:"binary"`
	Language string `json:"language"`
}

// Load loads the tesseract configuration with environment fallbacks.
func (c *TesseractConfig) Load() error {
	if err := c.loadConfig(c.ConfigPath, "tesseract", c); err != nil {
		return err
	}

	if c.Binary == "" {
		c.Binary = os.Getenv("TESSERACT_BINARY")
	}
	if c.Binary == "" {
		c.Binary = "tesseract"
	}
	if c.Language == "" {
		c.Language = os.Getenv("TESSERACT_LANG")
	}
	if c.Language == "" {
		c.Language = "eng"
	}

	return nil
}

// TesseractEngine shells out to the tesseract binary. It needs no network
// and no credentials, which makes it the default.
type TesseractEngine struct {
	config TesseractConfig
	bin    string
}

// TesseractEngineFactory implements EngineFactory for local engines.
type TesseractEngineFactory struct {
	config TesseractConfig
}

func NewTesseractEngineFactory(config TesseractConfig) *TesseractEngineFactory {
	return &TesseractEngineFactory{config: config}
}

func (f *TesseractEngineFactory) CreateEngine() (Engine, error) {
	return &TesseractEngine{config: f.config}, nil
}

// Load verifies the tesseract binary is installed.
func (e *TesseractEngine) Load(ctx context.Context) error {
	bin, err := exec.LookPath(e.config.Binary)
	if err != nil {
		return fmt.Errorf("%s not found, install tesseract-ocr: %w", e.config.Binary, err)
	}
	e.bin = bin
	return nil
}

// ExtractText runs tesseract over the image and returns the recognized text.
func (e *TesseractEngine) ExtractText(ctx context.Context, image []byte, mime string) (string, error) {
	if e.bin == "" {
		return "", fmt.Errorf("engine not loaded")
	}

	tmp, err := os.CreateTemp("", "fresheye-ocr-*"+extensionFor(mime))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp image: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.bin, path, "stdout", "-l", e.config.Language)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("tesseract: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("run tesseract: %w", err)
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", fmt.Errorf("no text recognized in image")
	}
	return text, nil
}

func extensionFor(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	default:
		return ".jpg"
	}
}
