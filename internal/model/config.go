package model

import "time"

// Config holds one verification run's settings. It is built once at entry
// from defaults, config file, environment, and flags, and is threaded
// explicitly through every call; nothing mutates it afterwards.
type Config struct {
	// Pacing and retry behavior.
	DelayBetweenRequests time.Duration `yaml:"delay_between_requests"`
	MaxRetries           int           `yaml:"max_retries"`
	RetryDelay           time.Duration `yaml:"retry_delay"`
	Timeout              time.Duration `yaml:"timeout"` // per attempt, not per run

	// MaxConcurrent is reserved. Execution is strictly sequential; the
	// field is accepted but not enforced. See DESIGN.md.
	MaxConcurrent int `yaml:"max_concurrent"`

	// StaleThreshold is the freshness cutoff for forecast, telemetry and
	// webcam payloads.
	StaleThreshold time.Duration `yaml:"stale_threshold"`

	// Filters. Empty means all.
	SourceTypes []SourceType `yaml:"source_types"`
	MountainIDs []string     `yaml:"mountain_ids"`

	// Output.
	SaveToFile bool   `yaml:"save_to_file"`
	OutputDir  string `yaml:"output_dir"`

	// SaveToDB is recognized but not implemented. When set, the run must
	// warn loudly and continue; it never fails or silently drops the flag.
	SaveToDB bool `yaml:"save_to_db"`

	HTTP HTTPConfig `yaml:"http"`
	LLM  LLMConfig  `yaml:"llm"`
}

// HTTPConfig holds ambient HTTP client settings shared by all verifiers.
type HTTPConfig struct {
	UserAgent  string `yaml:"user_agent"`
	HTTPProxy  string `yaml:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy"`
}

// LLMConfig controls the optional post-report narrative briefing. It is
// generated after the report is final and never affects counts or
// recommendations.
type LLMConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"-"` // from environment only, never serialized
	BaseURL string `yaml:"base_url"`
}

// DefaultConfig returns the built-in defaults for a verification run.
func DefaultConfig() Config {
	return Config{
		DelayBetweenRequests: 1 * time.Second,
		MaxRetries:           3,
		RetryDelay:           1 * time.Second,
		Timeout:              10 * time.Second,
		MaxConcurrent:        1,
		StaleThreshold:       48 * time.Hour,
		SaveToFile:           false,
		OutputDir:            "./verification-reports",
		HTTP: HTTPConfig{
			UserAgent: "snowprobe/0.3 (+https://github.com/mtnops/snowprobe)",
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// WantsType reports whether the given source type passes the type filter.
func (c Config) WantsType(t SourceType) bool {
	if len(c.SourceTypes) == 0 {
		return true
	}
	for _, st := range c.SourceTypes {
		if st == t {
			return true
		}
	}
	return false
}
