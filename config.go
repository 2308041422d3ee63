package tattle

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// SiteConfig holds all configuration for a tattle site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Tattle")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Author      string `yaml:"author"`      // Default byline and JSON-LD author

	Addr         string `yaml:"addr"`          // Listen address (default ":3000")
	DatabasePath string `yaml:"database_path"` // SQLite path (default "data/tattle.db")
	DataFilePath string `yaml:"data_file"`     // JSON fallback store (default "data/tattle.json")

	AdminPassword string `yaml:"admin_password"` // Required: admin login password
	SessionSecret string `yaml:"session_secret"` // Required: session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS

	Categories     []string `yaml:"categories"`      // Accepted categories (default DefaultCategories)
	OpenCategories bool     `yaml:"open_categories"` // Accept any non-empty category string

	GenAIAPIKey string   `yaml:"genai_api_key"` // Enables the AI story helper when set
	GenAIModels []string `yaml:"genai_models"`  // Model fallback order (default storygen's)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Tattle"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/tattle.db"
	}
	if c.DataFilePath == "" {
		c.DataFilePath = "data/tattle.json"
	}
	if len(c.Categories) == 0 {
		c.Categories = slices.Clone(DefaultCategories)
	}
	for i := range c.Categories {
		c.Categories[i] = strings.ToLower(strings.TrimSpace(c.Categories[i]))
	}
}

// LoadConfig reads a SiteConfig from a YAML file. Fields left empty fall
// back to the same defaults New applies.
func LoadConfig(path string) (SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SiteConfig{}, fmt.Errorf("tattle: read config: %w", err)
	}
	var cfg SiteConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return SiteConfig{}, fmt.Errorf("tattle: parse config: %w", err)
	}
	return cfg, nil
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithStore injects a pre-built store, bypassing the SQLite-then-file-store
// startup sequence. Used by tests and embedders with their own backend.
func WithStore(store OverlayStore) Option {
	return func(a *App) {
		a.overlay = store
	}
}

// WithErrorHandler sets the callback receiving background write failures.
func WithErrorHandler(fn func(error)) Option {
	return func(a *App) {
		a.onWriteError = fn
	}
}
