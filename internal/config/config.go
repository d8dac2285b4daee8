// ABOUTME: Configuration loading and parsing for handoff-gateway
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete handoff-gateway configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Admission  AdmissionConfig  `yaml:"admission"`
	Forward    ForwardConfig    `yaml:"forward"`
	GreenAPI   GreenAPIConfig   `yaml:"green_api"`
	Agent      AgentConfig      `yaml:"agent"`
	Speech     SpeechConfig     `yaml:"speech"`
	CRM        CRMConfig        `yaml:"crm"`
	Automation AutomationConfig `yaml:"automation"`
	Sweeper    SweeperConfig    `yaml:"sweeper"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AdmissionConfig holds the gate's fixed business lists and timing rules.
// These are injected configuration, never compiled-in constants, so tests
// can substitute fixtures.
type AdmissionConfig struct {
	// OwnerWID is the bot-owning account's own WhatsApp id (e.g. "9725...@c.us").
	// A manually-typed message to this chat is reinterpreted as a prompt.
	OwnerWID string `yaml:"owner_wid"`

	// AuthorizedNumbers are bare phone identifiers (no @ suffix) always allowed in.
	AuthorizedNumbers []string `yaml:"authorized_numbers"`

	// WhitelistKeywords admit a sender when the sender or chat display name
	// contains any of them.
	WhitelistKeywords []string `yaml:"whitelist_keywords"`

	// BlacklistNames silence a sender by display name unless the number itself
	// is authorized.
	BlacklistNames []string `yaml:"blacklist_names"`

	// UnpausePhrases resume the bot when found in a manually-typed outgoing
	// message. ASCII phrases match case-insensitively, others as exact substrings.
	UnpausePhrases []string `yaml:"unpause_phrases"`

	// VIPChatID gets the long pause duration; everyone else gets the short one.
	VIPChatID string `yaml:"vip_chat_id"`

	// GroupSuffix marks group conversations (Green API convention "@g.us").
	GroupSuffix string `yaml:"group_suffix"`

	// AudioPlaceholder substitutes for empty text on voice messages.
	AudioPlaceholder string `yaml:"audio_placeholder"`

	PauseDuration    time.Duration `yaml:"-"`
	VIPPauseDuration time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	PauseDurationRaw    string `yaml:"pause_duration"`
	VIPPauseDurationRaw string `yaml:"vip_pause_duration"`
}

// ForwardConfig holds the chat-processor forward endpoint configuration
type ForwardConfig struct {
	URL string `yaml:"url"`

	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// GreenAPIConfig holds Green API instance credentials
type GreenAPIConfig struct {
	APIURL     string `yaml:"api_url"`
	IDInstance string `yaml:"id_instance"`
	APIToken   string `yaml:"api_token"`
}

// AgentConfig holds the hosted LLM responder configuration
type AgentConfig struct {
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	Timezone     string `yaml:"timezone"`
}

// SpeechConfig holds the voice service (ElevenLabs) configuration
type SpeechConfig struct {
	APIKey       string `yaml:"api_key"`
	VoiceID      string `yaml:"voice_id"`
	LanguageCode string `yaml:"language_code"`
}

// CRMConfig holds iCount billing/CRM API credentials
type CRMConfig struct {
	APIKey    string `yaml:"api_key"`
	CompanyID string `yaml:"company_id"`
}

// AutomationConfig holds the lead-registration webhook configuration
type AutomationConfig struct {
	LeadWebhookURL string `yaml:"lead_webhook_url"`
}

// SweeperConfig holds the pause-expiry sweeper configuration
type SweeperConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults applied when the corresponding field is absent from the file.
const (
	DefaultPauseDuration    = 6 * time.Hour
	DefaultVIPPauseDuration = 24 * time.Hour
	DefaultForwardTimeout   = 5 * time.Second
	DefaultGroupSuffix      = "@g.us"
	DefaultSweeperSchedule  = "*/10 * * * *"
	DefaultAudioPlaceholder = "[Voice message]"
)

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills unset fields with defaults.
func (c *Config) applyDefaults() {
	if c.Admission.PauseDuration == 0 {
		c.Admission.PauseDuration = DefaultPauseDuration
	}
	if c.Admission.VIPPauseDuration == 0 {
		c.Admission.VIPPauseDuration = DefaultVIPPauseDuration
	}
	if c.Admission.GroupSuffix == "" {
		c.Admission.GroupSuffix = DefaultGroupSuffix
	}
	if c.Admission.AudioPlaceholder == "" {
		c.Admission.AudioPlaceholder = DefaultAudioPlaceholder
	}
	if c.Forward.Timeout == 0 {
		c.Forward.Timeout = DefaultForwardTimeout
	}
	if c.Sweeper.Schedule == "" {
		c.Sweeper.Schedule = DefaultSweeperSchedule
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Admission.OwnerWID == "" {
		return fmt.Errorf("admission.owner_wid is required")
	}

	if c.Forward.URL == "" {
		return fmt.Errorf("forward.url is required")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Admission.PauseDurationRaw != "" {
		cfg.Admission.PauseDuration, err = time.ParseDuration(cfg.Admission.PauseDurationRaw)
		if err != nil {
			return fmt.Errorf("parsing pause_duration %q: %w", cfg.Admission.PauseDurationRaw, err)
		}
	}

	if cfg.Admission.VIPPauseDurationRaw != "" {
		cfg.Admission.VIPPauseDuration, err = time.ParseDuration(cfg.Admission.VIPPauseDurationRaw)
		if err != nil {
			return fmt.Errorf("parsing vip_pause_duration %q: %w", cfg.Admission.VIPPauseDurationRaw, err)
		}
	}

	if cfg.Forward.TimeoutRaw != "" {
		cfg.Forward.Timeout, err = time.ParseDuration(cfg.Forward.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing forward timeout %q: %w", cfg.Forward.TimeoutRaw, err)
		}
	}

	return nil
}
