package conf

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	// DefaultPath is the main settings file of the handler.
	DefaultPath = "/etc/vyos-userdata/config.toml"
	// DefaultDropInDir holds drop-in settings files applied after DefaultPath.
	DefaultDropInDir = "/etc/vyos-userdata/config.toml.d/"
)

// defaultConfig contains the embedded default settings. It is the base
// layer before the main file and drop-in files are applied.
//
//go:embed default.toml
var defaultConfig string

// Config holds the resolved handler settings.
type Config struct {
	// ConfigFile is the router configuration that user-data is applied to.
	ConfigFile string
	// DefaultConfigFile is used when ConfigFile does not exist yet.
	DefaultConfigFile string
	// TemplatesDir is scanned for "node.tag" entries.
	TemplatesDir string
	LogLevel     slog.Level
	// LogTarget is one of "auto", "journal" or "stderr".
	LogTarget string
	// FetchTimeout bounds remote payload retrieval. Zero means no timeout.
	FetchTimeout time.Duration
	FetchRetries uint
}

// Default returns the embedded default settings.
func Default() Config {
	config := Config{}
	dto, err := parseConfigDTO(defaultConfig)
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded defaults: %v", err))
	}
	if err := config.Update(dto); err != nil {
		panic(fmt.Sprintf("failed to apply embedded defaults: %v", err))
	}
	return config
}

// Update applies non-nil values from a configDTO.
func (c *Config) Update(dto configDTO) error {
	if dto.ConfigFile != nil {
		c.ConfigFile = *dto.ConfigFile
	}
	if dto.DefaultConfigFile != nil {
		c.DefaultConfigFile = *dto.DefaultConfigFile
	}
	if dto.TemplatesDir != nil {
		c.TemplatesDir = *dto.TemplatesDir
	}
	if dto.LogLevel != nil {
		level, err := ParseLevel(*dto.LogLevel)
		if err != nil {
			return err
		}
		c.LogLevel = level
	}
	if dto.LogTarget != nil {
		switch *dto.LogTarget {
		case "auto", "journal", "stderr":
			c.LogTarget = *dto.LogTarget
		default:
			return fmt.Errorf("invalid log-target %q", *dto.LogTarget)
		}
	}
	if dto.FetchTimeout != nil {
		d, err := time.ParseDuration(*dto.FetchTimeout)
		if err != nil {
			return fmt.Errorf("invalid fetch-timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("invalid fetch-timeout: %s is negative", d)
		}
		c.FetchTimeout = d
	}
	if dto.FetchRetries != nil {
		if *dto.FetchRetries < 0 {
			return fmt.Errorf("invalid fetch-retries: %d is negative", *dto.FetchRetries)
		}
		c.FetchRetries = uint(*dto.FetchRetries)
	}
	return nil
}

// ParseLevel converts a level name as written in the settings file.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("invalid log-level %q", s)
}

// ConfigSource orchestrates loading configuration from multiple sources.
// See the Read method.
type ConfigSource struct {
	Path      string
	DropInDir string
}

// Read loads and returns the complete Config by merging all layers:
// 1. Embedded defaults
// 2. Main configuration file
// 3. Drop-in files
func (cs *ConfigSource) Read() (Config, error) {
	resolved := Default()

	data, err := os.ReadFile(cs.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			return resolved, fmt.Errorf("failed to load %s: %w", cs.Path, err)
		}
	} else {
		mainDTO, err := parseConfigDTO(string(data))
		if err != nil {
			return resolved, fmt.Errorf("failed to parse %s: %w", cs.Path, err)
		}
		if err := resolved.Update(mainDTO); err != nil {
			return resolved, fmt.Errorf("failed to apply %s: %w", cs.Path, err)
		}
	}

	paths, err := cs.findDropInFiles()
	if err != nil {
		return resolved, err
	}
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return resolved, err
		}
		dto, err := parseConfigDTO(string(data))
		if err != nil {
			return resolved, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if err := resolved.Update(dto); err != nil {
			return resolved, fmt.Errorf("failed to apply %s: %w", path, err)
		}
	}

	return resolved, nil
}

type configDTO struct {
	ConfigFile        *string `toml:"config-file"`
	DefaultConfigFile *string `toml:"default-config-file"`
	TemplatesDir      *string `toml:"templates-dir"`
	LogLevel          *string `toml:"log-level"`
	LogTarget         *string `toml:"log-target"`
	FetchTimeout      *string `toml:"fetch-timeout"`
	FetchRetries      *int    `toml:"fetch-retries"`
}

// parseConfigDTO parses a TOML string into a configDTO.
func parseConfigDTO(data string) (configDTO, error) {
	var dto configDTO

	if err := toml.Unmarshal([]byte(data), &dto); err != nil {
		return dto, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return dto, nil
}

// findDropInFiles returns sorted paths of *.toml files in the drop-in
// directory. A missing directory is not an error.
func (cs *ConfigSource) findDropInFiles() ([]string, error) {
	entries, err := os.ReadDir(cs.DropInDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read drop-in directory %s: %w", cs.DropInDir, err)
	}

	var filenames []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".toml") {
			filenames = append(filenames, filepath.Join(cs.DropInDir, entry.Name()))
		}
	}
	sort.Strings(filenames)

	return filenames, nil
}
