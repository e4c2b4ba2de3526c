package config

import (
	"encoding/json"
	"os"
)

// Finding describes a configuration problem worth surfacing at startup.
// Findings are warnings: the server still boots, but the affected path
// fails closed until the config is fixed.
type Finding struct {
	Key     string
	Message string
}

// Audit checks the effective runtime configuration, including the
// environment-provided secrets that never live in the config file.
func Audit(cfg Config, agentKey string, llmKey string) []Finding {
	var findings []Finding
	if len(cfg.Auth.AllowedEmails) == 0 {
		findings = append(findings, Finding{
			Key:     "auth.allowed_emails",
			Message: "allowlist is empty; interactive sign-in will reject every account",
		})
	}
	if agentKey == "" {
		findings = append(findings, Finding{
			Key:     "LUMEN_API_KEY",
			Message: "agent API key not set; the x-api-key path is disabled",
		})
	}
	if llmKey == "" {
		findings = append(findings, Finding{
			Key:     "OPENAI_API_KEY",
			Message: "completion API key not set; voice replies will degrade",
		})
	}
	return findings
}

// DefaultConfig returns a normalized copy of the built-in default config.
func DefaultConfig() Config {
	cfg := defaultConfig()
	applyDefaults(&cfg)
	return cfg
}

// LoadConfigFile reads and normalizes a config file without mutating it on disk.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&cfg)
	return cfg, nil
}
