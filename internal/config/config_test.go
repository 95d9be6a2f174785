package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"signline/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Adoption.InitialsMaxLen != 4 {
		t.Fatalf("initials_max_len = %d", cfg.Adoption.InitialsMaxLen)
	}
	if len(cfg.Adoption.Fonts) == 0 {
		t.Fatalf("default font list empty")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"missing fonts", "adoption:\n  initials_max_len: 4\n"},
		{"zero initials", "adoption:\n  initials_max_len: 0\n  fonts: [caveat]\n"},
		{"unknown default font", "adoption:\n  initials_max_len: 4\n  default_font: nope\n  fonts: [caveat]\n"},
		{"bad collaborator url", "adoption:\n  initials_max_len: 4\n  fonts: [caveat]\ncollaborators:\n  catalog_url: 'not a url'\n"},
		{"webhook without url", "adoption:\n  initials_max_len: 4\n  fonts: [caveat]\nwebhooks:\n  - secret: s\n"},
	}
	for _, tc := range cases {
		if _, err := config.FromYAML([]byte(tc.yaml)); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestSavedReuseAllowed(t *testing.T) {
	cfg := config.Default()
	if !cfg.SavedReuseAllowed() {
		t.Fatalf("default config should allow saved reuse")
	}
	allow := false
	cfg.Adoption.AllowSavedReuse = &allow
	if cfg.SavedReuseAllowed() {
		t.Fatalf("explicit false should disable saved reuse")
	}
	var missing *config.Config
	if !missing.SavedReuseAllowed() {
		t.Fatalf("nil config defaults to allowed")
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signline.yml")
	if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.FromFile(path)
	if err != nil {
		t.Fatalf("from file: %v", err)
	}
	if cfg.Adoption.InitialsMaxLen != 4 {
		t.Fatalf("initials_max_len = %d", cfg.Adoption.InitialsMaxLen)
	}
	if _, err := config.FromFile(filepath.Join(dir, "missing.yml")); !os.IsNotExist(err) {
		t.Fatalf("missing file err = %v", err)
	}
}

func TestFromYAMLRoundTrip(t *testing.T) {
	raw := `adoption:
  initials_max_len: 3
  default_font: caveat
  fonts: [caveat, great-vibes]
collaborators:
  catalog_url: "http://localhost:9001"
  submit_url: "http://localhost:9002"
webhooks:
  - url: "http://localhost:9100/hook"
    events: [session.completed]
`
	cfg, err := config.FromYAML([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Adoption.InitialsMaxLen != 3 || cfg.Adoption.DefaultFont != "caveat" {
		t.Fatalf("adoption = %+v", cfg.Adoption)
	}
	if cfg.Collaborators.CatalogURL != "http://localhost:9001" {
		t.Fatalf("collaborators = %+v", cfg.Collaborators)
	}
	if len(cfg.Webhooks) != 1 || cfg.Webhooks[0].Events[0] != "session.completed" {
		t.Fatalf("webhooks = %+v", cfg.Webhooks)
	}
}
