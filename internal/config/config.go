// Package config holds environment-driven settings for the tracker.
// Defaults are overlaid by an optional YAML file, then by environment
// variables, so a bare `casetrack` invocation works with the fixed file
// conventions (similar.txt in, similar_cases_history.csv out).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all settings for one tracker process.
type Config struct {
	CasesFile    string
	HistoryFile  string
	JournalDB    string
	BaseURL      string
	FetchTimeout time.Duration
	SettleDelay  time.Duration
	CaseDelay    time.Duration
	Headless     bool
	WatchEnabled bool
	StrictConfig bool
	Vocab        Vocabulary
}

type fileConfig struct {
	CasesFile   string     `json:"cases_file" yaml:"cases_file"`
	HistoryFile string     `json:"history_file" yaml:"history_file"`
	JournalDB   string     `json:"journal_db" yaml:"journal_db"`
	BaseURL     string     `json:"base_url" yaml:"base_url"`
	Vocabulary  Vocabulary `json:"vocabulary" yaml:"vocabulary"`
}

const (
	defaultCasesFile   = "similar.txt"
	defaultHistoryFile = "similar_cases_history.csv"
	defaultJournalDB   = "casetrack.db"
	defaultBaseURL     = "https://mycaseshub.com/analysis"

	defaultFetchTimeoutSec = 15
	defaultSettleMs        = 2000
	defaultCaseDelayMs     = 1500
	minCaseDelayMs         = 250
)

// Load reads configuration from an optional .env file, an optional YAML
// config file, and environment variables, in increasing precedence.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		FetchTimeout: defaultFetchTimeoutSec * time.Second,
		SettleDelay:  defaultSettleMs * time.Millisecond,
		CaseDelay:    defaultCaseDelayMs * time.Millisecond,
		Headless:     parseBoolEnvDefault("HEADLESS", true),
		WatchEnabled: parseBoolEnv("WATCH_ENABLED"),
		StrictConfig: parseBoolEnv("STRICT_CONFIG"),
		Vocab:        DefaultVocabulary(),
	}

	configPath := getEnv("CONFIG_PATH", filepath.Join("config", "casetrack.yaml"))
	fileCfg, fileErr := loadFileConfig(configPath)
	if fileErr != nil && !os.IsNotExist(fileErr) {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("config load failed (%s): %w", configPath, fileErr)
		}
		log.Warn().Err(fileErr).Str("path", configPath).Msg("config load failed, using defaults")
	}

	cfg.CasesFile = firstNonEmpty(os.Getenv("CASES_FILE"), fileCfg.CasesFile, defaultCasesFile)
	cfg.HistoryFile = firstNonEmpty(os.Getenv("HISTORY_FILE"), fileCfg.HistoryFile, defaultHistoryFile)
	cfg.BaseURL = strings.TrimRight(firstNonEmpty(os.Getenv("BASE_URL"), fileCfg.BaseURL, defaultBaseURL), "/")

	// Empty JOURNAL_DB disables the run journal entirely.
	if v, ok := os.LookupEnv("JOURNAL_DB"); ok {
		cfg.JournalDB = strings.TrimSpace(v)
	} else if fileCfg.JournalDB != "" {
		cfg.JournalDB = fileCfg.JournalDB
	} else {
		cfg.JournalDB = defaultJournalDB
	}

	cfg.Vocab = MergeVocabulary(cfg.Vocab, fileCfg.Vocabulary)

	if v, ok, err := parseIntEnv("FETCH_TIMEOUT_SEC"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid FETCH_TIMEOUT_SEC: %w", err)
		}
		log.Warn().Err(err).Msg("invalid FETCH_TIMEOUT_SEC, using default")
	} else if ok && v > 0 {
		cfg.FetchTimeout = time.Duration(v) * time.Second
	}

	if v, ok, err := parseIntEnv("SETTLE_MS"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid SETTLE_MS: %w", err)
		}
		log.Warn().Err(err).Msg("invalid SETTLE_MS, using default")
	} else if ok && v >= 0 {
		cfg.SettleDelay = time.Duration(v) * time.Millisecond
	}

	if v, ok, err := parseIntEnv("CASE_DELAY_MS"); err != nil {
		if cfg.StrictConfig {
			return cfg, fmt.Errorf("invalid CASE_DELAY_MS: %w", err)
		}
		log.Warn().Err(err).Msg("invalid CASE_DELAY_MS, using default")
	} else if ok {
		if v < minCaseDelayMs {
			log.Warn().Int("ms", v).Msgf("CASE_DELAY_MS raised to minimum %d", minCaseDelayMs)
			v = minCaseDelayMs
		}
		cfg.CaseDelay = time.Duration(v) * time.Millisecond
	}

	if err := validateConfig(cfg); err != nil {
		if cfg.StrictConfig {
			return cfg, err
		}
		log.Warn().Err(err).Msg("config validation failed, continuing")
	}

	return cfg, nil
}

func loadFileConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if len(data) == 0 {
		return cfg, errors.New("empty config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.CasesFile) == "" {
		return errors.New("CASES_FILE is required")
	}
	if strings.TrimSpace(cfg.HistoryFile) == "" {
		return errors.New("HISTORY_FILE is required")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return errors.New("BASE_URL is required")
	}
	if len(cfg.Vocab.Phrases) == 0 {
		return errors.New("vocabulary must contain at least one status phrase")
	}
	if cfg.FetchTimeout <= 0 {
		return errors.New("fetch timeout must be positive")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return val
		}
	}
	return ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseBoolEnvDefault(key string, defaultVal bool) bool {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return defaultVal
	}
	return parseBoolEnv(key)
}

func parseIntEnv(key string) (int, bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return 0, false, nil
	}
	val, err := strconv.Atoi(raw)
	return val, true, err
}

// Now returns the current second-truncated local time. History rows carry
// this in the scraped_at column, so it stays a wall-clock value rather
// than UTC to match files written by earlier versions of the tool.
func Now() time.Time {
	return time.Now().Truncate(time.Second)
}
