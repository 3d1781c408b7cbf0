package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	LLM      LLMConfig      `yaml:"llm"`
	Chaos    ChaosConfig    `yaml:"chaos"`
	Speech   SpeechConfig   `yaml:"speech"`
	STT      STTConfig      `yaml:"stt"`
	Source   SourceConfig   `yaml:"source"`
	NATS     NATSConfig     `yaml:"nats"`
	Pushover PushoverConfig `yaml:"pushover"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Addr       string        `yaml:"addr"`
	AuthToken  string        `yaml:"auth_token"`
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
	// RequestTimeout bounds one command over HTTP, extraction included.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"base_url"`
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Timeout     time.Duration `yaml:"timeout"`
}

type ChaosConfig struct {
	Percent float64 `yaml:"percent"`
	// Seed makes chaos reproducible; 0 seeds from the clock.
	Seed uint64 `yaml:"seed"`
}

type SpeechConfig struct {
	SpeakResponses bool          `yaml:"speak_responses"`
	StreamInterim  bool          `yaml:"stream_interim"`
	DebugLogs      bool          `yaml:"debug_logs"`
	Debounce       time.Duration `yaml:"debounce"`
	SpeakTimeout   time.Duration `yaml:"speak_timeout"`
	TTS            string        `yaml:"tts"`
	Voice          string        `yaml:"voice"`
	Rate           int           `yaml:"rate"`
}

type STTConfig struct {
	APIKey   string `yaml:"api_key"`
	Language string `yaml:"language"`
	BaseURL  string `yaml:"base_url"`
}

type SourceConfig struct {
	Kind       string `yaml:"kind"`
	FileDir    string `yaml:"file_dir"`
	SampleRate int    `yaml:"sample_rate"`
}

type NATSConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Subject string        `yaml:"subject"`
	Timeout time.Duration `yaml:"timeout"`
}

type PushoverConfig struct {
	Token   string `yaml:"token"`
	UserKey string `yaml:"user_key"`
	Enabled bool   `yaml:"enabled"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is present. Fields that
// a file may legitimately set to false or zero are initialised here rather than
// in setDefaults.
func Default() *Config {
	cfg := &Config{
		Chaos:  ChaosConfig{Percent: 70},
		Speech: SpeechConfig{SpeakResponses: true},
	}
	cfg.setDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault is Load, except that a missing file yields Default.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = Default()
		cfg.applyEnvKeys()
		return cfg, nil
	}
	return cfg, err
}

// Parse expands ${VAR} references in data and decodes it over the defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()
	cfg.applyEnvKeys()

	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 30
	}
	if c.HTTP.RateWindow == 0 {
		c.HTTP.RateWindow = time.Minute
	}
	if c.HTTP.RequestTimeout == 0 {
		c.HTTP.RequestTimeout = 45 * time.Second
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.MaxAttempts == 0 {
		c.LLM.MaxAttempts = 3
	}
	if c.LLM.BaseDelay == 0 {
		c.LLM.BaseDelay = 200 * time.Millisecond
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 30 * time.Second
	}
	if c.Speech.Debounce == 0 {
		c.Speech.Debounce = 500 * time.Millisecond
	}
	if c.Speech.SpeakTimeout == 0 {
		c.Speech.SpeakTimeout = 15 * time.Second
	}
	if c.Speech.TTS == "" {
		c.Speech.TTS = "log"
	}
	if c.STT.Language == "" {
		c.STT.Language = "en"
	}
	if c.Source.Kind == "" {
		c.Source.Kind = "none"
	}
	if c.Source.FileDir == "" {
		c.Source.FileDir = "./commands"
	}
	if c.Source.SampleRate == 0 {
		c.Source.SampleRate = 16000
	}
	if c.NATS.URL == "" {
		c.NATS.URL = "nats://localhost:4222"
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "car.command"
	}
	if c.NATS.Timeout == 0 {
		c.NATS.Timeout = 30 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

var providerKeyEnv = map[string][]string{
	"gemini":    {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
}

// applyEnvKeys fills credentials left empty in the file from the usual
// per-provider environment variables.
func (c *Config) applyEnvKeys() {
	if c.LLM.APIKey == "" {
		for _, name := range providerKeyEnv[c.LLM.Provider] {
			if v := os.Getenv(name); v != "" {
				c.LLM.APIKey = v
				break
			}
		}
	}
	if c.STT.APIKey == "" {
		c.STT.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

func (c *Config) Validate() error {
	var errs []error

	if _, ok := providerKeyEnv[c.LLM.Provider]; !ok {
		errs = append(errs, fmt.Errorf("llm.provider %q: want gemini, openai or anthropic", c.LLM.Provider))
	}
	if c.LLM.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("llm.max_attempts must be at least 1"))
	}
	if c.Chaos.Percent < 0 || c.Chaos.Percent > 100 {
		errs = append(errs, fmt.Errorf("chaos.percent %v: must be within 0-100", c.Chaos.Percent))
	}
	switch c.Speech.TTS {
	case "none", "log", "espeak":
	default:
		errs = append(errs, fmt.Errorf("speech.tts %q: want none, log or espeak", c.Speech.TTS))
	}
	switch c.Source.Kind {
	case "none", "file", "microphone":
	default:
		errs = append(errs, fmt.Errorf("source.kind %q: want none, file or microphone", c.Source.Kind))
	}
	if c.Pushover.Enabled && (c.Pushover.Token == "" || c.Pushover.UserKey == "") {
		errs = append(errs, fmt.Errorf("pushover is enabled but token or user_key is empty"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q: want debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json", "pretty":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want text, json or pretty", c.Log.Format))
	}

	return errors.Join(errs...)
}
