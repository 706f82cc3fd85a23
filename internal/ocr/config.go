package ocr

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// baseConfig is shared by the engine configs: an explicit file wins, then the
// default file under config/, then environment variables.
type baseConfig struct {
	ConfigPath string
}

func (c *baseConfig) loadConfig(configPath, name string, config any) error {
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("read config %s: %w", configPath, err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return fmt.Errorf("parse config %s: %w", configPath, err)
		}
		return nil
	}

	defaultPath := filepath.Join("config", name+".json")
	if data, err := os.ReadFile(defaultPath); err == nil {
		if err := json.Unmarshal(data, config); err == nil {
			return nil
		}
	}

	log.Printf("using environment variables for %s ocr configuration", name)
	return nil
}
