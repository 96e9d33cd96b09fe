// Package config loads vobsub2srt settings from TOML or YAML files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/mgpai22/vobsub2srt/internal/ocr"
	"github.com/mgpai22/vobsub2srt/internal/pts"
)

const defaultConfigPath = "~/.config/vobsub2srt/config.toml"

// stock Debian/Ubuntu location of tesseract language data
const systemTessdataDir = "/usr/share/tesseract-ocr/tessdata"

type Config struct {
	OCR     OCRConfig     `toml:"ocr" yaml:"ocr"`
	Stream  StreamConfig  `toml:"stream" yaml:"stream"`
	Cache   CacheConfig   `toml:"cache" yaml:"cache"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`

	// provider API keys found in the environment
	envKeys map[string]string
}

type OCRConfig struct {
	Provider       string `toml:"provider" yaml:"provider"`
	Language       string `toml:"language" yaml:"language"`
	TessdataDir    string `toml:"tessdata_dir" yaml:"tessdata_dir"`
	TesseractPath  string `toml:"tesseract_path" yaml:"tesseract_path"`
	PageSegMode    int    `toml:"page_seg_mode" yaml:"page_seg_mode"`
	Model          string `toml:"model" yaml:"model"`
	APIKey         string `toml:"api_key" yaml:"api_key"`
	Prompt         string `toml:"prompt" yaml:"prompt"`
	Invert         bool   `toml:"invert" yaml:"invert"`
	Scale          int    `toml:"scale" yaml:"scale"`
	Padding        int    `toml:"padding" yaml:"padding"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
}

type StreamConfig struct {
	// -1 selects the index file's langidx
	Index             int `toml:"index" yaml:"index"`
	DefaultDurationMS int `toml:"default_duration_ms" yaml:"default_duration_ms"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

func Default() Config {
	return Config{
		OCR: OCRConfig{
			Provider:       string(ocr.ProviderTesseract),
			Language:       ocr.DefaultLanguage,
			TessdataDir:    defaultTessdataDir(),
			PageSegMode:    ocr.DefaultPageSegMode,
			Invert:         true,
			Scale:          2,
			Padding:        10,
			TimeoutSeconds: 60,
		},
		Stream: StreamConfig{
			Index:             -1,
			DefaultDurationMS: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func defaultTessdataDir() string {
	if info, err := os.Stat(systemTessdataDir); err == nil && info.IsDir() {
		return systemTessdataDir
	}
	return ""
}

// Loader reads configuration. Lookup defaults to os.LookupEnv; tests inject
// deterministic maps.
type Loader struct {
	Lookup func(string) (string, bool)
}

// Load reads the config at path, or the default location when path is empty.
// It returns the resolved path and whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	return Loader{}.Load(path)
}

func (l Loader) Load(path string) (*Config, string, bool, error) {
	if l.Lookup == nil {
		l.Lookup = os.LookupEnv
	}
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}
	if path != "" && !exists {
		return nil, "", false, fmt.Errorf("config file not found: %s", resolvedPath)
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := decode(file, resolvedPath, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	l.applyEnv(&cfg)

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func decode(r io.Reader, path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
}

func (l Loader) applyEnv(cfg *Config) {
	overrideString(l.Lookup, "VOBSUB2SRT_OCR_PROVIDER", &cfg.OCR.Provider)
	overrideString(l.Lookup, "VOBSUB2SRT_OCR_LANGUAGE", &cfg.OCR.Language)
	overrideString(l.Lookup, "TESSDATA_PREFIX", &cfg.OCR.TessdataDir)
	overrideString(l.Lookup, "VOBSUB2SRT_CACHE_PATH", &cfg.Cache.Path)
	overrideString(l.Lookup, "VOBSUB2SRT_LOG_LEVEL", &cfg.Logging.Level)

	cfg.envKeys = make(map[string]string)
	for provider, key := range map[ocr.Provider]string{
		ocr.ProviderGemini:    "GEMINI_API_KEY",
		ocr.ProviderOpenAI:    "OPENAI_API_KEY",
		ocr.ProviderAnthropic: "ANTHROPIC_API_KEY",
	} {
		if v, ok := l.Lookup(key); ok && strings.TrimSpace(v) != "" {
			cfg.envKeys[string(provider)] = strings.TrimSpace(v)
		}
	}
}

func overrideString(lookup func(string) (string, bool), key string, dst *string) {
	if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func (c *Config) normalize() error {
	c.OCR.Provider = strings.ToLower(strings.TrimSpace(c.OCR.Provider))
	c.OCR.Language = strings.TrimSpace(c.OCR.Language)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	var err error
	if c.OCR.TessdataDir, err = expandPath(c.OCR.TessdataDir); err != nil {
		return err
	}
	if c.OCR.TesseractPath, err = expandPath(c.OCR.TesseractPath); err != nil {
		return err
	}
	if c.Cache.Path, err = expandPath(c.Cache.Path); err != nil {
		return err
	}
	return nil
}

// APIKey returns the configured key for provider, falling back to the
// provider's environment variable.
func (c *Config) APIKey(provider string) string {
	if c.OCR.APIKey != "" {
		return c.OCR.APIKey
	}
	return c.envKeys[provider]
}

// OCROptions maps the [ocr] section onto recognizer options.
func (c *Config) OCROptions() ocr.Options {
	return ocr.Options{
		Language:      c.OCR.Language,
		TessdataDir:   c.OCR.TessdataDir,
		TesseractPath: c.OCR.TesseractPath,
		PageSegMode:   c.OCR.PageSegMode,
		Model:         c.OCR.Model,
		APIKey:        c.APIKey(c.OCR.Provider),
		Prompt:        c.OCR.Prompt,
		Timeout:       time.Duration(c.OCR.TimeoutSeconds) * time.Second,
		Preprocess: ocr.PreprocessOptions{
			Invert:  c.OCR.Invert,
			Scale:   c.OCR.Scale,
			Padding: c.OCR.Padding,
		},
	}
}

func (c *Config) DefaultDuration() pts.Ticks {
	return pts.FromMillis(int64(c.Stream.DefaultDurationMS))
}

func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath resolves ~ and relative paths.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
