package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "echotarot"

// MinQuestionConfirm is the shortest pause allowed after the question step.
const MinQuestionConfirm = time.Second

// Config stores runtime configuration.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	Catalog CatalogConfig `toml:"catalog"`
	Audio   AudioConfig   `toml:"audio"`
	Speech  SpeechConfig  `toml:"speech"`
	Pacing  PacingConfig  `toml:"pacing"`
	Log     LogConfig     `toml:"log"`

	// File is the config file that was read, empty when none existed.
	File string `toml:"-"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type CatalogConfig struct {
	// DeckPath points at a deck.toml or a directory holding one. Empty uses
	// the embedded deck.
	DeckPath string `toml:"deck_path"`
	Watch    bool   `toml:"watch"`
}

type AudioConfig struct {
	RecorderCommand string `toml:"recorder_command"`
	PlayerCommand   string `toml:"player_command"`
	InputFormat     string `toml:"input_format"`
	InputDevice     string `toml:"input_device"`
	SampleRate      int    `toml:"sample_rate"`
	Directory       string `toml:"directory"`
}

type SpeechConfig struct {
	Command     string `toml:"command"`
	Voice       string `toml:"voice"`
	LexiconPath string `toml:"lexicon_path"`
}

type PacingConfig struct {
	QuestionConfirm time.Duration `toml:"question_confirm"`
	HashtagComplete time.Duration `toml:"hashtag_complete"`
	HashtagSkip     time.Duration `toml:"hashtag_skip"`
	CardInterval    time.Duration `toml:"card_interval"`
	Reveal          time.Duration `toml:"reveal"`
	MeaningPause    time.Duration `toml:"meaning_pause"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	data := filepath.Join(GetXDGDataHome(), appName)
	return Config{
		Storage: StorageConfig{Path: filepath.Join(data, appName+".db")},
		Catalog: CatalogConfig{Watch: true},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			PlayerCommand:   "ffplay",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      44100,
			Directory:       filepath.Join(data, "recordings"),
		},
		Speech: SpeechConfig{
			Command:     "espeak-ng",
			LexiconPath: filepath.Join(GetXDGConfigHome(), appName, "lexicon.rules"),
		},
		Pacing: PacingConfig{
			QuestionConfirm: 1500 * time.Millisecond,
			HashtagComplete: 1500 * time.Millisecond,
			HashtagSkip:     time.Second,
			CardInterval:    time.Second,
			Reveal:          2 * time.Second,
			MeaningPause:    time.Second,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load resolves configuration from defaults, the config file and environment
// variables, in that order.
func Load() (Config, error) {
	return LoadFile(envOrDefault("ECHOTAROT_CONFIG", GetConfigFilePath()))
}

// LoadFile is Load with an explicit config file. A missing file is not an error.
func LoadFile(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to decode config file %q: %w", path, err)
			}
		} else {
			cfg.File = path
		}
	}

	applyEnv(&cfg)
	cfg.sanitize()
	return cfg, nil
}

// Save writes cfg as TOML, creating the parent directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Storage.Path = envOrDefault("ECHOTAROT_DB_PATH", cfg.Storage.Path)

	cfg.Catalog.DeckPath = envOrDefault("ECHOTAROT_DECK_PATH", cfg.Catalog.DeckPath)
	cfg.Catalog.Watch = envOrDefaultBool("ECHOTAROT_WATCH_DECK", cfg.Catalog.Watch)

	cfg.Audio.RecorderCommand = envOrDefault("ECHOTAROT_FFMPEG_COMMAND", cfg.Audio.RecorderCommand)
	cfg.Audio.PlayerCommand = envOrDefault("ECHOTAROT_FFPLAY_COMMAND", cfg.Audio.PlayerCommand)
	cfg.Audio.InputFormat = envOrDefault("ECHOTAROT_AUDIO_INPUT_FORMAT", cfg.Audio.InputFormat)
	cfg.Audio.InputDevice = firstNonEmpty(
		os.Getenv("ECHOTAROT_AUDIO_INPUT_DEVICE"),
		os.Getenv("PULSE_SOURCE"),
		cfg.Audio.InputDevice,
	)
	cfg.Audio.SampleRate = envOrDefaultInt("ECHOTAROT_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.Directory = envOrDefault("ECHOTAROT_RECORDINGS_DIR", cfg.Audio.Directory)

	cfg.Speech.Command = envOrDefault("ECHOTAROT_SPEECH_COMMAND", cfg.Speech.Command)
	cfg.Speech.Voice = envOrDefault("ECHOTAROT_SPEECH_VOICE", cfg.Speech.Voice)
	cfg.Speech.LexiconPath = envOrDefault("ECHOTAROT_LEXICON_FILE", cfg.Speech.LexiconPath)

	cfg.Pacing.QuestionConfirm = envOrDefaultDuration("ECHOTAROT_QUESTION_CONFIRM_DELAY", cfg.Pacing.QuestionConfirm)
	cfg.Pacing.HashtagComplete = envOrDefaultDuration("ECHOTAROT_HASHTAG_DELAY", cfg.Pacing.HashtagComplete)
	cfg.Pacing.HashtagSkip = envOrDefaultDuration("ECHOTAROT_HASHTAG_SKIP_DELAY", cfg.Pacing.HashtagSkip)
	cfg.Pacing.CardInterval = envOrDefaultDuration("ECHOTAROT_CARD_INTERVAL", cfg.Pacing.CardInterval)
	cfg.Pacing.Reveal = envOrDefaultDuration("ECHOTAROT_REVEAL_DELAY", cfg.Pacing.Reveal)
	cfg.Pacing.MeaningPause = envOrDefaultDuration("ECHOTAROT_MEANING_PAUSE", cfg.Pacing.MeaningPause)

	cfg.Log.Level = envOrDefault("ECHOTAROT_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOrDefault("ECHOTAROT_LOG_FORMAT", cfg.Log.Format)
}

// sanitize replaces invalid values with defaults.
func (c *Config) sanitize() {
	def := Default()

	if strings.TrimSpace(c.Storage.Path) == "" {
		c.Storage.Path = def.Storage.Path
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = def.Audio.SampleRate
	}
	if strings.TrimSpace(c.Audio.Directory) == "" {
		c.Audio.Directory = def.Audio.Directory
	}

	durations := []struct {
		value    *time.Duration
		fallback time.Duration
	}{
		{&c.Pacing.QuestionConfirm, def.Pacing.QuestionConfirm},
		{&c.Pacing.HashtagComplete, def.Pacing.HashtagComplete},
		{&c.Pacing.HashtagSkip, def.Pacing.HashtagSkip},
		{&c.Pacing.CardInterval, def.Pacing.CardInterval},
		{&c.Pacing.Reveal, def.Pacing.Reveal},
		{&c.Pacing.MeaningPause, def.Pacing.MeaningPause},
	}
	for _, d := range durations {
		if *d.value < 0 {
			*d.value = d.fallback
		}
	}
	if c.Pacing.QuestionConfirm < MinQuestionConfirm {
		c.Pacing.QuestionConfirm = MinQuestionConfirm
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		c.Log.Level = def.Log.Level
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format != "text" && c.Log.Format != "json" {
		c.Log.Format = def.Log.Format
	}
}

// GetXDGDataHome returns XDG_DATA_HOME or its default.
func GetXDGDataHome() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return xdgData
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(homeDir, ".local", "share")
}

// GetXDGConfigHome returns XDG_CONFIG_HOME or its default.
func GetXDGConfigHome() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}
	return filepath.Join(homeDir, ".config")
}

// GetConfigFilePath returns the default config file location.
func GetConfigFilePath() string {
	return filepath.Join(GetXDGConfigHome(), appName, "config.toml")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// envOrDefaultDuration accepts Go durations ("1.5s") or bare milliseconds.
func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
