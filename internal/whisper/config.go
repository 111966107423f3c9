package whisper

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Config captures settings that control catalog construction and scanning.
type Config struct {
	Root        string             `json:"root"`
	DBPath      string             `json:"db"`
	MaxDepth    int                `json:"max_depth"`
	IgnoreDirs  []string           `json:"ignore_directories"`
	Meilisearch MeilisearchConfig  `json:"meilisearch"`
	Shell       *ShellTargetConfig `json:"shell_target"`
}

// MeilisearchConfig captures connection settings for optional search synchronization.
type MeilisearchConfig struct {
	Host   string `json:"host"`
	APIKey string `json:"api_key"`
	Index  string `json:"index"`
}

// ShellTargetConfig configures a shell command that receives record changes as JSON.
type ShellTargetConfig struct {
	Command string `json:"command"`
}

// IsEmpty reports whether no command is configured.
func (c *ShellTargetConfig) IsEmpty() bool {
	return c == nil || strings.TrimSpace(c.Command) == ""
}

// LoadConfig reads a JSON configuration file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Options converts the configuration into the options used by the manager.
func (c Config) Options() Options {
	return Options{
		MaxDepth:    c.MaxDepth,
		IgnoreDirs:  append([]string(nil), c.IgnoreDirs...),
		Meilisearch: c.Meilisearch,
		Shell:       c.Shell,
	}
}
