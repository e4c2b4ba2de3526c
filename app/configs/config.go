package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Config struct {
	Server ServerConfig `json:"server"`
	Auth   AuthConfig   `json:"auth"`
	Voice  VoiceConfig  `json:"voice"`
	Task   TaskConfig   `json:"task"`
}

type ServerConfig struct {
	Port               int `json:"port"`
	ShutdownTimeoutSec int `json:"shutdown_timeout_sec"`
}

type AuthConfig struct {
	AllowedEmails   []string `json:"allowed_emails"`
	SessionTTLHours int      `json:"session_ttl_hours"`
	CookieName      string   `json:"cookie_name"`
}

type VoiceConfig struct {
	Model              string `json:"model"`
	MaxTokens          int    `json:"max_tokens"`
	ContextTurns       int    `json:"context_turns"`
	ContextIdleMinutes int    `json:"context_idle_minutes"`
}

type TaskConfig struct {
	DefaultAssignee string `json:"default_assignee"`
	DefaultCreator  string `json:"default_creator"`
}

type Manager struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

func DefaultPath() string {
	return filepath.Join("config", "config.json")
}

func NewManager(path string) (*Manager, error) {
	cfg := defaultConfig()
	applyDefaults(&cfg)
	mgr := &Manager{
		path: path,
		cfg:  cfg,
	}
	if err := mgr.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if err := mgr.save(); err != nil {
		return nil, err
	}
	return mgr, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Update(apply func(*Config)) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply(&m.cfg)
	applyDefaults(&m.cfg)
	if err := m.saveLocked(); err != nil {
		return Config{}, err
	}
	return m.cfg, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}
	m.cfg = fileCfg
	applyDefaults(&m.cfg)
	return nil
}

func (m *Manager) save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port:               8080,
			ShutdownTimeoutSec: 5,
		},
		Auth: AuthConfig{
			AllowedEmails: []string{
				"ben@kernioncognitivelabs.com",
				"lumen@kernioncognitivelabs.com",
			},
			SessionTTLHours: 720,
			CookieName:      "lumen_session",
		},
		Voice: VoiceConfig{
			Model:              "gpt-4o-mini",
			MaxTokens:          300,
			ContextTurns:       10,
			ContextIdleMinutes: 120,
		},
		Task: TaskConfig{
			DefaultAssignee: "lumen",
			DefaultCreator:  "ben",
		},
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownTimeoutSec <= 0 {
		cfg.Server.ShutdownTimeoutSec = 5
	}
	if cfg.Auth.SessionTTLHours <= 0 {
		cfg.Auth.SessionTTLHours = 720
	}
	if strings.TrimSpace(cfg.Auth.CookieName) == "" {
		cfg.Auth.CookieName = "lumen_session"
	}
	emails := make([]string, 0, len(cfg.Auth.AllowedEmails))
	for _, email := range cfg.Auth.AllowedEmails {
		email = strings.TrimSpace(email)
		if email != "" {
			emails = append(emails, email)
		}
	}
	cfg.Auth.AllowedEmails = emails
	if strings.TrimSpace(cfg.Voice.Model) == "" {
		cfg.Voice.Model = "gpt-4o-mini"
	}
	if cfg.Voice.MaxTokens <= 0 {
		cfg.Voice.MaxTokens = 300
	}
	if cfg.Voice.ContextTurns <= 0 {
		cfg.Voice.ContextTurns = 10
	}
	if cfg.Voice.ContextIdleMinutes <= 0 {
		cfg.Voice.ContextIdleMinutes = 120
	}
	if strings.TrimSpace(cfg.Task.DefaultAssignee) == "" {
		cfg.Task.DefaultAssignee = "lumen"
	}
	if strings.TrimSpace(cfg.Task.DefaultCreator) == "" {
		cfg.Task.DefaultCreator = "ben"
	}
}
