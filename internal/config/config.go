package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models signline.yml.
type Config struct {
	Adoption struct {
		Fonts           []string `yaml:"fonts"`
		InitialsMaxLen  int      `yaml:"initials_max_len"`
		DefaultFont     string   `yaml:"default_font"`
		AllowSavedReuse *bool    `yaml:"allow_saved_reuse"`
	} `yaml:"adoption"`
	Collaborators struct {
		CatalogURL  string `yaml:"catalog_url"`
		SubmitURL   string `yaml:"submit_url"`
		ResolverURL string `yaml:"resolver_url"`
	} `yaml:"collaborators"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

type WebhookConfig struct {
	URL            string   `yaml:"url"`
	Secret         string   `yaml:"secret"`
	Events         []string `yaml:"events"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        *bool    `yaml:"enabled"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	cfg, err := FromFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; generate one with sl config init", Path(workspace))
		}
		return nil, err
	}
	return cfg, nil
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	cfg, err := FromFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Adoption.InitialsMaxLen <= 0 {
		return fmt.Errorf("config.adoption.initials_max_len must be positive")
	}
	if len(c.Adoption.Fonts) == 0 {
		return fmt.Errorf("config.adoption.fonts is required")
	}
	if c.Adoption.DefaultFont != "" {
		found := false
		for _, f := range c.Adoption.Fonts {
			if f == c.Adoption.DefaultFont {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("config.adoption.default_font %s not in fonts list", c.Adoption.DefaultFont)
		}
	}
	for _, raw := range []string{c.Collaborators.CatalogURL, c.Collaborators.SubmitURL, c.Collaborators.ResolverURL} {
		if raw == "" {
			continue
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid collaborator url %s: %w", raw, err)
		}
	}
	for i, hook := range c.Webhooks {
		if hook.URL == "" {
			return fmt.Errorf("webhooks[%d].url is required", i)
		}
		if hook.TimeoutSeconds < 0 {
			return fmt.Errorf("webhooks[%d].timeout_seconds must not be negative", i)
		}
	}
	return nil
}

// SavedReuseAllowed reports whether a signer's saved default signature may
// short-circuit the adopt step. Unset means allowed.
func (c *Config) SavedReuseAllowed() bool {
	if c == nil || c.Adoption.AllowSavedReuse == nil {
		return true
	}
	return *c.Adoption.AllowSavedReuse
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "signline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `adoption:
  initials_max_len: 4
  default_font: dancing-script
  allow_saved_reuse: true
  fonts:
    - dancing-script
    - great-vibes
    - caveat
    - homemade-apple

collaborators:
  catalog_url: ""
  submit_url: ""
  resolver_url: ""

webhooks: []
`
