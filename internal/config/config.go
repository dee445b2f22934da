package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the root configuration for aromabot. It is loaded once at
// startup and each gateway receives only its own section.
type Config struct {
	General    GeneralConfig    `json:"general"`
	Server     ServerConfig     `json:"server"`
	Catalog    CatalogConfig    `json:"catalog"`
	Knowledge  KnowledgeConfig  `json:"knowledge"`
	Responder  ResponderConfig  `json:"responder"`
	Delivery   DeliveryConfig   `json:"delivery"`
	Escalation EscalationConfig `json:"escalation"`
	Pricing    PricingConfig    `json:"pricing"`
	Intents    IntentsConfig    `json:"intents"`
	Dedupe     DedupeConfig     `json:"dedupe"`
}

type GeneralConfig struct {
	DataDir   string `json:"dataDir"`
	LogLevel  string `json:"logLevel"`
	LogFile   string `json:"logFile,omitempty"`
	Workers   int    `json:"workers"`   // concurrent dispatch units
	QueueSize int    `json:"queueSize"` // inbound buffer before the webhook blocks
}

type ServerConfig struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	WebhookPath string `json:"webhookPath"`
	Secret      string `json:"secret,omitempty"` // HMAC-SHA256 key for X-Signature-256
	MetricsPath string `json:"metricsPath"`
}

type CatalogConfig struct {
	Backend          string `json:"backend"` // "sqlite" | "http" | "postgres"
	DBPath           string `json:"dbPath,omitempty"`
	URL              string `json:"url,omitempty"`
	DSN              string `json:"dsn,omitempty"`
	CodeField        string `json:"codeField,omitempty"`
	DescriptionField string `json:"descriptionField,omitempty"`
	CostField        string `json:"costField,omitempty"`
	CacheTTLSeconds  int    `json:"cacheTTLSeconds"`
	TimeoutSeconds   int    `json:"timeoutSeconds"`
}

type KnowledgeConfig struct {
	Provider       string `json:"provider"` // "duckduckgo-html" | "duckduckgo-instant" | "none"
	Endpoint       string `json:"endpoint,omitempty"`
	MaxResults     int    `json:"maxResults"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type ResponderConfig struct {
	APIBase        string `json:"apiBase"`
	APIKey         string `json:"apiKey,omitempty"`
	Model          string `json:"model"`
	Persona        string `json:"persona"`
	MaxTokens      int    `json:"maxTokens"`
	TimeoutSeconds int    `json:"timeoutSeconds"`
}

type DeliveryConfig struct {
	Provider       string         `json:"provider"` // "ultramsg" | "whatsapp" | "telegram" | "log"
	UltraMsg       UltraMsgConfig `json:"ultramsg"`
	WhatsApp       WhatsAppConfig `json:"whatsapp"`
	Telegram       TelegramConfig `json:"telegram"`
	TimeoutSeconds int            `json:"timeoutSeconds"`
	RatePerSecond  float64        `json:"ratePerSecond"` // 0 disables throttling
	Burst          int            `json:"burst"`
}

type UltraMsgConfig struct {
	APIBase  string `json:"apiBase"`
	Instance string `json:"instance,omitempty"`
	Token    string `json:"token,omitempty"`
}

type WhatsAppConfig struct {
	APIBase       string `json:"apiBase"`
	AccessToken   string `json:"accessToken,omitempty"`
	PhoneNumberID string `json:"phoneNumberId,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token,omitempty"`
}

// EscalationConfig routes human-handoff summaries to an operator.
// Provider defaults to the reply provider when empty.
type EscalationConfig struct {
	Enabled   bool   `json:"enabled"`
	Recipient string `json:"recipient,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

type PricingConfig struct {
	Divisor decimal.Decimal `json:"divisor"`
}

type IntentsConfig struct {
	RulesFile string `json:"rulesFile,omitempty"`
}

type DedupeConfig struct {
	TTLSeconds int `json:"ttlSeconds"`
	MaxEntries int `json:"maxEntries"`
}

// Seconds converts a config timeout into a duration, falling back to def.
func Seconds(n int, def time.Duration) time.Duration {
	if n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

// DefaultConfigDir returns the default config directory (~/.aromabot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aromabot"
	}
	return filepath.Join(home, ".aromabot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	path = ExpandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	cfg.General.DataDir = ExpandPath(cfg.General.DataDir)
	cfg.General.LogFile = ExpandPath(cfg.General.LogFile)
	cfg.Catalog.DBPath = ExpandPath(cfg.Catalog.DBPath)
	cfg.Intents.RulesFile = ExpandPath(cfg.Intents.RulesFile)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}

var deliveryProviders = map[string]bool{"ultramsg": true, "whatsapp": true, "telegram": true, "log": true}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.General.Workers < 1 || cfg.General.Workers > 256 {
		errs = append(errs, "general.workers must be between 1 and 256")
	}
	if cfg.General.QueueSize < 1 {
		errs = append(errs, "general.queueSize must be >= 1")
	}
	switch strings.ToLower(cfg.General.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if !strings.HasPrefix(cfg.Server.WebhookPath, "/") {
		errs = append(errs, "server.webhookPath must start with /")
	}

	switch cfg.Catalog.Backend {
	case "sqlite":
		if cfg.Catalog.DBPath == "" {
			errs = append(errs, "catalog.dbPath is required for the sqlite backend")
		}
	case "http":
		if cfg.Catalog.URL == "" {
			errs = append(errs, "catalog.url is required for the http backend")
		}
	case "postgres":
		if cfg.Catalog.DSN == "" {
			errs = append(errs, "catalog.dsn is required for the postgres backend")
		}
	default:
		errs = append(errs, "catalog.backend must be one of: sqlite, http, postgres")
	}

	switch cfg.Knowledge.Provider {
	case "duckduckgo-html", "duckduckgo-instant", "none":
	default:
		errs = append(errs, "knowledge.provider must be one of: duckduckgo-html, duckduckgo-instant, none")
	}
	if cfg.Knowledge.MaxResults < 0 {
		errs = append(errs, "knowledge.maxResults must be >= 0")
	}

	if cfg.Responder.APIBase == "" {
		errs = append(errs, "responder.apiBase is required")
	}
	if cfg.Responder.Model == "" {
		errs = append(errs, "responder.model is required")
	}

	if !deliveryProviders[cfg.Delivery.Provider] {
		errs = append(errs, "delivery.provider must be one of: ultramsg, whatsapp, telegram, log")
	}
	if cfg.Delivery.RatePerSecond < 0 {
		errs = append(errs, "delivery.ratePerSecond must be >= 0")
	}

	if cfg.Escalation.Enabled {
		if cfg.Escalation.Recipient == "" {
			errs = append(errs, "escalation.recipient is required when escalation is enabled")
		}
		if cfg.Escalation.Provider != "" && !deliveryProviders[cfg.Escalation.Provider] {
			errs = append(errs, "escalation.provider must be one of: ultramsg, whatsapp, telegram, log")
		}
	}

	if !cfg.Pricing.Divisor.IsPositive() {
		errs = append(errs, "pricing.divisor must be > 0")
	}

	if cfg.Dedupe.TTLSeconds < 0 || cfg.Dedupe.MaxEntries < 0 {
		errs = append(errs, "dedupe.ttlSeconds and dedupe.maxEntries must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
