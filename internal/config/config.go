package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort           = 44497
	DefaultHost           = "127.0.0.1"
	DefaultConfigFilename = "config.yaml"
)

// Config holds the proxy settings. ArgoURL serves non-streaming chat
// requests; ArgoStreamURL is the streaming variant of the same endpoint.
// When ArgoStreamURL is empty the upstream cannot truly stream and
// streaming clients are served by chunking the complete reply instead.
type Config struct {
	Host          string `yaml:"host,omitempty"`
	Port          int    `yaml:"port,omitempty"`
	User          string `yaml:"user"`
	ArgoURL       string `yaml:"argo_url"`
	ArgoStreamURL string `yaml:"argo_stream_url,omitempty"`
	APIKey        string `yaml:"api_key,omitempty"`
	Verbose       bool   `yaml:"verbose,omitempty"`
}

// SearchPaths returns the config file locations tried in order when no
// explicit path is given.
func SearchPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return []string{"./" + DefaultConfigFilename}
	}

	return []string{
		filepath.Join(home, ".config", "argobridge", DefaultConfigFilename),
		filepath.Join(home, ".argobridge", DefaultConfigFilename),
		"./" + DefaultConfigFilename,
	}
}

// Manager loads and holds a config snapshot. Reads go through an
// atomic.Value so handlers never see a half-written config.
type Manager struct {
	configPath  string
	configValue atomic.Value
}

func NewManager(configPath string) *Manager {
	return &Manager{configPath: configPath}
}

// NewManagerFromSearch picks the first existing config file from the
// search paths, defaulting to the primary location for a fresh setup.
func NewManagerFromSearch() *Manager {
	paths := SearchPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return NewManager(p)
		}
	}
	return NewManager(paths[0])
}

func (m *Manager) Load() (*Config, error) {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m.configValue.Store(&cfg)
	return &cfg, nil
}

func (m *Manager) Get() *Config {
	if v := m.configValue.Load(); v != nil {
		return v.(*Config)
	}

	cfg, err := m.Load()
	if err != nil {
		return &Config{
			Host: DefaultHost,
			Port: DefaultPort,
		}
	}
	return cfg
}

func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	m.configValue.Store(cfg)
	return nil
}

func (m *Manager) GetPath() string {
	return m.configPath
}

func (m *Manager) Exists() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}

// Validate checks the fields the proxy cannot run without.
func (c *Config) Validate() error {
	if c.ArgoURL == "" {
		return fmt.Errorf("config missing argo_url")
	}
	if c.User == "" {
		return fmt.Errorf("config missing user")
	}
	return nil
}
