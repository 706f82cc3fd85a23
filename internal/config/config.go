// Package config loads the application configuration from an optional JSON
// file, overlaid with FRESHEYE_* environment variables. A .env file in the
// working directory is honored. Everything has a default, so the app runs
// with no config at all against a backend on localhost.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Backend struct {
		URL            string `json:"url"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	} `json:"backend"`

	Gateway struct {
		Port      string `json:"port"`
		StaticDir string `json:"static_dir"`
		Debug     bool   `json:"debug"`
	} `json:"gateway"`

	Database struct {
		Path string `json:"path"`
	} `json:"database"`

	OCR struct {
		Engine     string `json:"engine"` // "tesseract" or "google"
		ConfigPath string `json:"config_path"`
	} `json:"ocr"`

	Camera struct {
		Device  string `json:"device"`
		Grabber string `json:"grabber"` // capture binary, fswebcam when empty
	} `json:"camera"`

	Sensor struct {
		Source          string  `json:"source"` // "backend", "nodemcu" or "mqtt"
		IntervalSeconds float64 `json:"interval_seconds"`
	} `json:"sensor"`

	ESP32 struct {
		PollIntervalSeconds float64 `json:"poll_interval_seconds"`
	} `json:"esp32"`

	MQTT struct {
		Broker      string `json:"broker"`
		ClientID    string `json:"client_id"`
		Username    string `json:"username"`
		Password    string `json:"password"`
		TopicPrefix string `json:"topic_prefix"`
	} `json:"mqtt"`
}

func defaultConfig() *Config {
	var c Config
	c.Backend.URL = "http://localhost:5000"
	c.Backend.TimeoutSeconds = 10
	c.Gateway.Port = "8080"
	c.Database.Path = "fresheye.db"
	c.OCR.Engine = "tesseract"
	c.Camera.Device = "/dev/video0"
	c.Sensor.Source = "backend"
	c.Sensor.IntervalSeconds = 2
	c.ESP32.PollIntervalSeconds = 1.5
	c.MQTT.ClientID = "fresheye-dashboard"
	c.MQTT.TopicPrefix = "fresheye/sensor"
	return &c
}

// LoadConfig loads configuration. An explicit path must exist; otherwise the
// default locations are tried and missing files fall back to defaults.
// Environment variables override the file either way.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := defaultConfig()

	explicit := configPath != ""
	if !explicit {
		configPath = GetConfigPath()
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	case explicit:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(config)

	if config.Backend.URL == "" {
		return nil, fmt.Errorf("backend url is not set")
	}
	if config.Sensor.Source == "mqtt" && config.MQTT.Broker == "" {
		return nil, fmt.Errorf("sensor source is mqtt but no broker is configured")
	}

	return config, nil
}

func applyEnv(c *Config) {
	c.Backend.URL = getEnv("FRESHEYE_BACKEND_URL", c.Backend.URL)
	c.Gateway.Port = getEnv("FRESHEYE_GATEWAY_PORT", c.Gateway.Port)
	c.Gateway.StaticDir = getEnv("FRESHEYE_STATIC_DIR", c.Gateway.StaticDir)
	c.Gateway.Debug = getEnvBool("FRESHEYE_DEBUG", c.Gateway.Debug)
	c.Database.Path = getEnv("FRESHEYE_DB_PATH", c.Database.Path)
	c.OCR.Engine = getEnv("FRESHEYE_OCR_ENGINE", c.OCR.Engine)
	c.OCR.ConfigPath = getEnv("FRESHEYE_OCR_CONFIG", c.OCR.ConfigPath)
	c.Camera.Device = getEnv("FRESHEYE_CAMERA_DEVICE", c.Camera.Device)
	c.Sensor.Source = getEnv("FRESHEYE_SENSOR_SOURCE", c.Sensor.Source)
	c.Sensor.IntervalSeconds = getEnvFloat("FRESHEYE_SENSOR_INTERVAL", c.Sensor.IntervalSeconds)
	c.ESP32.PollIntervalSeconds = getEnvFloat("FRESHEYE_ESP32_INTERVAL", c.ESP32.PollIntervalSeconds)
	c.MQTT.Broker = getEnv("FRESHEYE_MQTT_BROKER", c.MQTT.Broker)
	c.MQTT.ClientID = getEnv("FRESHEYE_MQTT_CLIENT_ID", c.MQTT.ClientID)
	c.MQTT.Username = getEnv("FRESHEYE_MQTT_USERNAME", c.MQTT.Username)
	c.MQTT.Password = getEnv("FRESHEYE_MQTT_PASSWORD", c.MQTT.Password)
	c.MQTT.TopicPrefix = getEnv("FRESHEYE_MQTT_TOPIC_PREFIX", c.MQTT.TopicPrefix)
}

// GetConfigPath returns the path to the configuration file.
func GetConfigPath() string {
	// First try environment variable
	if path := os.Getenv("FRESHEYE_CONFIG"); path != "" {
		return path
	}

	// Then try config directory
	configDir := "config"
	if _, err := os.Stat(configDir); err == nil {
		return filepath.Join(configDir, "config.json")
	}

	// Finally, try current directory
	return "config.json"
}

// BackendTimeout is the per-request timeout for backend calls.
func (c *Config) BackendTimeout() time.Duration {
	if c.Backend.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// SensorInterval is the dashboard polling period.
func (c *Config) SensorInterval() time.Duration {
	return secondsOr(c.Sensor.IntervalSeconds, 2*time.Second)
}

// ESP32Interval is the remote camera preview polling period.
func (c *Config) ESP32Interval() time.Duration {
	return secondsOr(c.ESP32.PollIntervalSeconds, 1500*time.Millisecond)
}

func secondsOr(seconds float64, fallback time.Duration) time.Duration {
	if seconds <= 0 {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}
