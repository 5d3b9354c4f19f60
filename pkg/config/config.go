// Package config loads murmur's settings from defaults, a TOML file, a .env
// file and MURMUR_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/papercomputeco/murmur/pkg/dataurl"
	"github.com/papercomputeco/murmur/pkg/logger"
	"github.com/papercomputeco/murmur/pkg/session"
)

// Defaults
const (
	DefaultListenAddr     = ":8000"
	DefaultOllamaURL      = "http://localhost:11434"
	DefaultTextModel      = "llama3"
	DefaultVisionModel    = "llava"
	DefaultAuthToken      = "my-secret-key"
	DefaultBackendTimeout = 5 * time.Minute
	DefaultSystemPrompt   = "You are a personal AI assistant. " +
		"Sound human, friendly, and natural. " +
		"Avoid robotic phrases. " +
		"Adapt tone based on user behavior."
)

// TranscriptMemory selects the in-memory transcript archive.
const TranscriptMemory = "memory"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MURMUR_"

// Config is the complete gateway configuration.
type Config struct {
	// ListenAddr is the HTTP listen address (e.g. ":8000").
	ListenAddr string `toml:"listen"`

	// OllamaURL is the inference backend base URL.
	OllamaURL string `toml:"ollama_url"`

	// BackendTimeout bounds one backend call. Zero waits forever.
	BackendTimeout time.Duration `toml:"backend_timeout"`

	// TextModel serves turns without an image, VisionModel turns with one.
	TextModel   string `toml:"text_model"`
	VisionModel string `toml:"vision_model"`

	// AuthToken is the shared secret for the history endpoint. Reloadable.
	AuthToken string `toml:"auth_token"`

	// SystemPrompt seeds every new session. Reloadable.
	SystemPrompt string `toml:"system_prompt"`

	// MaxHistory is the per-session window, in messages.
	MaxHistory int `toml:"max_history"`

	// TrimPolicy is "naive" (default) or "pinned".
	TrimPolicy string `toml:"trim_policy"`

	// MaxSessions enables LRU eviction of sessions when positive.
	MaxSessions int `toml:"max_sessions"`

	// MaxImageBytes caps decoded image size.
	MaxImageBytes int `toml:"max_image_bytes"`

	// StaticDir is served under /static when set.
	StaticDir string `toml:"static_dir"`

	// TranscriptDB enables the transcript archive: "memory" or a SQLite path.
	TranscriptDB string `toml:"transcript_db"`

	// OTLPEndpoint enables trace export to an OTLP/HTTP collector (host:port).
	OTLPEndpoint string `toml:"otlp_endpoint"`

	Debug     bool   `toml:"debug"`
	LogFormat string `toml:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:     DefaultListenAddr,
		OllamaURL:      DefaultOllamaURL,
		BackendTimeout: DefaultBackendTimeout,
		TextModel:      DefaultTextModel,
		VisionModel:    DefaultVisionModel,
		AuthToken:      DefaultAuthToken,
		SystemPrompt:   DefaultSystemPrompt,
		MaxHistory:     session.DefaultMaxHistory,
		TrimPolicy:     string(session.TrimNaive),
		MaxImageBytes:  dataurl.DefaultMaxBytes,
		LogFormat:      logger.FormatConsole,
	}
}

// Load builds a Config from the defaults, the TOML file at path (skipped when
// path is empty) and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("reading config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from MURMUR_* variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"LISTEN":        &c.ListenAddr,
		"OLLAMA_URL":    &c.OllamaURL,
		"TEXT_MODEL":    &c.TextModel,
		"VISION_MODEL":  &c.VisionModel,
		"AUTH_TOKEN":    &c.AuthToken,
		"SYSTEM_PROMPT": &c.SystemPrompt,
		"TRIM_POLICY":   &c.TrimPolicy,
		"STATIC_DIR":    &c.StaticDir,
		"TRANSCRIPT_DB": &c.TranscriptDB,
		"OTLP_ENDPOINT": &c.OTLPEndpoint,
		"LOG_FORMAT":    &c.LogFormat,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"MAX_HISTORY":     &c.MaxHistory,
		"MAX_SESSIONS":    &c.MaxSessions,
		"MAX_IMAGE_BYTES": &c.MaxImageBytes,
	}
	for key, dst := range ints {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}

	if v, ok := lookup(EnvPrefix + "BACKEND_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sBACKEND_TIMEOUT: %w", EnvPrefix, err)
		}
		c.BackendTimeout = d
	}

	if v, ok := lookup(EnvPrefix + "DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sDEBUG: %w", EnvPrefix, err)
		}
		c.Debug = b
	}

	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address must be set"))
	}
	if c.OllamaURL == "" {
		errs = append(errs, errors.New("ollama_url must be set"))
	}
	if c.TextModel == "" || c.VisionModel == "" {
		errs = append(errs, errors.New("text_model and vision_model must be set"))
	}
	if c.AuthToken == "" {
		errs = append(errs, errors.New("auth_token must not be empty"))
	}
	if c.MaxHistory <= 0 {
		errs = append(errs, fmt.Errorf("max_history must be positive, got %d", c.MaxHistory))
	}
	if c.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("max_sessions must not be negative, got %d", c.MaxSessions))
	}
	if c.MaxImageBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_image_bytes must be positive, got %d", c.MaxImageBytes))
	}
	if c.BackendTimeout < 0 {
		errs = append(errs, fmt.Errorf("backend_timeout must not be negative, got %s", c.BackendTimeout))
	}
	if _, err := session.ParseTrimPolicy(c.TrimPolicy); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "", logger.FormatConsole, logger.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}
