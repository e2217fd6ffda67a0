package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig `json:"server"`
	Send    SendConfig   `json:"send"`
	Render  RenderConfig `json:"render"`
	Output  OutputConfig `json:"output"`
	Classes []string     `json:"classes"`
}

// ServerConfig holds configuration for the vision model backend
type ServerConfig struct {
	Backend        string `json:"backend"` // "ollama" or "llamacpp"
	URL            string `json:"url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// SendConfig controls how images are encoded before they go to the model
type SendConfig struct {
	Format  string `json:"format"` // "jpg" or "png"
	MaxDim  int    `json:"max_dim"`
	Quality int    `json:"quality"`
}

// RenderConfig controls annotated output images
type RenderConfig struct {
	Stroke  int    `json:"stroke"`
	Format  string `json:"format"` // "jpg", "png" or "webp"
	Quality int    `json:"quality"`
}

// OutputConfig holds configuration for result generation
type OutputConfig struct {
	Dir string `json:"dir"`
}

// DefaultClasses are the defect categories used for label files and exports.
var DefaultClasses = []string{
	"crack",
	"spalling",
	"mortar_erosion",
	"water_damage",
	"displacement",
	"efflorescence",
	"hole",
	"deformation",
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Backend:        "ollama",
			URL:            "http://localhost:11434",
			Model:          "qwen2.5vl:latest",
			TimeoutSeconds: 300,
		},
		Send: SendConfig{
			Format:  "jpg",
			MaxDim:  0,
			Quality: 90,
		},
		Render: RenderConfig{
			Stroke:  3,
			Format:  "jpg",
			Quality: 95,
		},
		Output: OutputConfig{
			Dir: "./results",
		},
		Classes: append([]string(nil), DefaultClasses...),
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load builds the configuration from defaults, an optional config file and
// WALLSCAN_* environment variables, in that order of precedence. A .env file
// in the working directory is read first if present.
func Load(filename string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()
	if filename != "" {
		loaded, err := LoadFromFile(filename)
		if err != nil {
			return nil, err
		}
		config = loaded
	}
	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("WALLSCAN_BACKEND"); v != "" {
		c.Server.Backend = v
	}
	if v := os.Getenv("WALLSCAN_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("WALLSCAN_MODEL"); v != "" {
		c.Server.Model = v
	}
	if v := os.Getenv("WALLSCAN_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("WALLSCAN_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("WALLSCAN_SEND_MAX_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Send.MaxDim = n
		}
	}
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Backend != "ollama" && c.Server.Backend != "llamacpp" {
		return fmt.Errorf("server.backend must be \"ollama\" or \"llamacpp\"")
	}

	if c.Server.URL == "" {
		return fmt.Errorf("server.url cannot be empty")
	}

	if c.Server.TimeoutSeconds < 1 {
		return fmt.Errorf("server.timeout_seconds must be positive")
	}

	if c.Send.Quality < 1 || c.Send.Quality > 100 {
		return fmt.Errorf("send.quality must be between 1 and 100")
	}

	if c.Send.MaxDim < 0 {
		return fmt.Errorf("send.max_dim cannot be negative")
	}

	if c.Render.Stroke < 1 {
		return fmt.Errorf("render.stroke must be positive")
	}

	if c.Render.Quality < 1 || c.Render.Quality > 100 {
		return fmt.Errorf("render.quality must be between 1 and 100")
	}

	if len(c.Classes) == 0 {
		return fmt.Errorf("classes cannot be empty")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "wallscan", "config.json")
}
