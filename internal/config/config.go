package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

type CacheConfig struct {
	RangeTTLMinutes int `json:"range_ttl_minutes"`
	DevTTLMinutes   int `json:"dev_ttl_minutes"`
	MaxRangeEntries int `json:"max_range_entries"`
}

type EndpointConfig struct {
	BaseURL      string `json:"base_url"`
	CookieDomain string `json:"cookie_domain"`
}

type RenderConfig struct {
	TopN   int    `json:"top_n"`
	SortBy string `json:"sort_by"` // "cost" or "tokens"
}

type RangeConfig struct {
	DefaultFrom string `json:"default_from"`
	DefaultTo   string `json:"default_to"`
}

// Config carries everything the pipeline components need, injected at
// construction. Nothing reads ambient global state; Watch is the single
// place a changed file turns into a new Config.
type Config struct {
	Debug    bool           `json:"debug"`
	Endpoint EndpointConfig `json:"endpoint"`
	Cache    CacheConfig    `json:"cache"`
	Render   RenderConfig   `json:"render"`
	Range    RangeConfig    `json:"range"`
}

func DefaultConfig() Config {
	return Config{
		Endpoint: EndpointConfig{
			BaseURL:      "https://openrouter.ai/api/internal/v1/transaction-analytics",
			CookieDomain: "openrouter.ai",
		},
		Cache: CacheConfig{
			RangeTTLMinutes: 15,
			DevTTLMinutes:   30,
			MaxRangeEntries: 10,
		},
		Render: RenderConfig{
			TopN:   10,
			SortBy: "cost",
		},
	}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "routerspend")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "routerspend")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	return normalize(cfg), nil
}

func normalize(cfg Config) Config {
	def := DefaultConfig()
	if cfg.Endpoint.BaseURL == "" {
		cfg.Endpoint.BaseURL = def.Endpoint.BaseURL
	}
	if cfg.Endpoint.CookieDomain == "" {
		cfg.Endpoint.CookieDomain = def.Endpoint.CookieDomain
	}
	if cfg.Cache.RangeTTLMinutes <= 0 {
		cfg.Cache.RangeTTLMinutes = def.Cache.RangeTTLMinutes
	}
	if cfg.Cache.DevTTLMinutes <= 0 {
		cfg.Cache.DevTTLMinutes = def.Cache.DevTTLMinutes
	}
	if cfg.Cache.MaxRangeEntries <= 0 {
		cfg.Cache.MaxRangeEntries = def.Cache.MaxRangeEntries
	}
	if cfg.Render.TopN <= 0 {
		cfg.Render.TopN = def.Render.TopN
	}
	if cfg.Render.SortBy != "cost" && cfg.Render.SortBy != "tokens" {
		cfg.Render.SortBy = def.Render.SortBy
	}
	return cfg
}

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
