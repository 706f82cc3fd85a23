// Package ocr extracts printed text from label photos. The text is what the
// backend's nutrition analysis runs on; the engines here only transcribe.
package ocr

import (
	"context"
	"fmt"
)

// Engine is a text recognizer for label images.
type Engine interface {
	// Load initializes the engine and verifies it can run.
	Load(ctx context.Context) error
	// ExtractText transcribes the printed text in the image. mime is the
	// image content type ("image/jpeg", "image/png").
	ExtractText(ctx context.Context, image []byte, mime string) (string, error)
}

// EngineFactory creates a new engine instance based on configuration.
type EngineFactory interface {
	CreateEngine() (Engine, error)
}

// NewEngine creates an engine of the given kind. Supported kinds are
// "tesseract" (the default) and "google". configPath may be empty; each
// engine then falls back to its default config file and environment.
func NewEngine(kind, configPath string) (Engine, error) {
	var factory EngineFactory

	switch kind {
	case "google":
		config := GoogleConfig{baseConfig: baseConfig{ConfigPath: configPath}}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("load google ocr config: %w", err)
		}
		factory = NewGoogleEngineFactory(config)
	case "tesseract", "":
		config := TesseractConfig{baseConfig: baseConfig{ConfigPath: configPath}}
		if err := config.Load(); err != nil {
			return nil, fmt.Errorf("load tesseract config: %w", err)
		}
		factory = NewTesseractEngineFactory(config)
	default:
		return nil, fmt.Errorf("unsupported ocr engine: %s", kind)
	}

	return factory.CreateEngine()
}
