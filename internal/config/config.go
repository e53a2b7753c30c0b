// Package config loads crawl run configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures everything a crawl run needs: the target domains, the
// traversal budgets, classifier vocabulary overrides, and the ambient
// renderer/storage/metrics wiring.
type Config struct {
	Domains  []string       `yaml:"domains"`
	Crawl    CrawlConfig    `yaml:"crawl"`
	Classify ClassifyConfig `yaml:"classify"`
	Renderer RendererConfig `yaml:"renderer"`
	Storage  StorageConfig  `yaml:"storage"`
	Output   OutputConfig   `yaml:"output"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CrawlConfig controls traversal budgets, pacing, and seed construction.
type CrawlConfig struct {
	MaxPagesPerDomain int      `yaml:"max_pages_per_domain"`
	MaxDepth          int      `yaml:"max_depth"`
	Timeout           Duration `yaml:"timeout"`
	ExtractionTimeout Duration `yaml:"extraction_timeout"`
	ScrollPasses      int      `yaml:"scroll_passes"`
	ScrollDelay       Duration `yaml:"scroll_delay"`
	Scheme            string   `yaml:"scheme"`
	StrippedPrefixes  []string `yaml:"stripped_prefixes"`
	RequestsPerSecond float64  `yaml:"requests_per_second"`
	Jitter            float64  `yaml:"jitter"`
	UserAgents        []string `yaml:"user_agents"`
	ViewportWidth     int      `yaml:"viewport_width"`
	ViewportHeight    int      `yaml:"viewport_height"`
}

// ClassifyConfig overrides the built-in classifier vocabularies. Empty
// slices keep the defaults.
type ClassifyConfig struct {
	PathInclusions   []string `yaml:"path_inclusions"`
	PathExclusions   []string `yaml:"path_exclusions"`
	ContentPhrases   []string `yaml:"content_phrases"`
	ContentThreshold int      `yaml:"content_threshold"`
}

// RendererConfig selects the page rendering engine.
type RendererConfig struct {
	Engine   string `yaml:"engine"` // "chrome" or "static"
	Headless bool   `yaml:"headless"`
}

// StorageConfig selects an optional discovery-record backend.
type StorageConfig struct {
	Backend string `yaml:"backend"` // "", "json", "csv", "sqlite", "postgres"
	Path    string `yaml:"path"`    // json or csv file path
	DSN     string `yaml:"dsn"`     // sqlite or postgres DSN
}

// OutputConfig controls where the result documents are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Summary   bool   `yaml:"summary"`
}

// MetricsConfig controls the optional prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns a Config populated with the stock crawl parameters.
func Default() Config {
	return Config{
		Crawl: CrawlConfig{
			MaxPagesPerDomain: 500,
			MaxDepth:          10,
			Timeout:           DurationFrom(30 * time.Second),
			ExtractionTimeout: DurationFrom(10 * time.Second),
			ScrollPasses:      3,
			ScrollDelay:       DurationFrom(time.Second),
			Scheme:            "https",
			ViewportWidth:     1920,
			ViewportHeight:    1080,
		},
		Renderer: RendererConfig{
			Engine:   "chrome",
			Headless: true,
		},
		Output: OutputConfig{
			Directory: ".",
			Summary:   true,
		},
		Metrics: MetricsConfig{
			Port: 9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads, merges, and validates configuration from a YAML file.
func Load(path string) (*Config, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer fh.Close()
	return LoadFromReader(fh)
}

// LoadFromReader decodes configuration from an arbitrary reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces required invariants for a crawl run.
func (c Config) Validate() error {
	if len(c.Domains) == 0 {
		return errors.New("at least one domain must be configured")
	}
	for i, d := range c.Domains {
		if d == "" {
			return fmt.Errorf("domain %d is empty", i)
		}
		if strings.Contains(d, "://") {
			return fmt.Errorf("domain %q must not include a scheme", d)
		}
	}
	if c.Crawl.MaxPagesPerDomain <= 0 {
		return fmt.Errorf("crawl.max_pages_per_domain must be > 0 (got %d)", c.Crawl.MaxPagesPerDomain)
	}
	if c.Crawl.MaxDepth <= 0 {
		return fmt.Errorf("crawl.max_depth must be > 0 (got %d)", c.Crawl.MaxDepth)
	}
	if c.Crawl.Timeout.Duration <= 0 {
		return errors.New("crawl.timeout must be > 0")
	}
	if c.Crawl.Scheme != "http" && c.Crawl.Scheme != "https" {
		return fmt.Errorf("crawl.scheme must be http or https (got %q)", c.Crawl.Scheme)
	}
	if c.Crawl.RequestsPerSecond < 0 {
		return fmt.Errorf("crawl.requests_per_second must be >= 0 (got %v)", c.Crawl.RequestsPerSecond)
	}
	if c.Classify.ContentThreshold < 0 {
		return fmt.Errorf("classify.content_threshold must be >= 0 (got %d)", c.Classify.ContentThreshold)
	}
	switch c.Renderer.Engine {
	case "chrome", "static":
	default:
		return fmt.Errorf("renderer.engine must be chrome or static (got %q)", c.Renderer.Engine)
	}
	switch c.Storage.Backend {
	case "":
	case "json", "csv":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path must be set for the %s backend", c.Storage.Backend)
		}
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage.dsn must be set for the %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Metrics.Enabled && (c.Metrics.Port <= 0 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be a valid port (got %d)", c.Metrics.Port)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json (got %q)", c.Logging.Format)
	}
	return nil
}

func (c *Config) normalise() {
	cleaned := make([]string, 0, len(c.Domains))
	seen := make(map[string]struct{}, len(c.Domains))
	for _, raw := range c.Domains {
		d := strings.ToLower(strings.TrimSpace(raw))
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		cleaned = append(cleaned, d)
	}
	c.Domains = cleaned

	c.Crawl.Scheme = strings.ToLower(strings.TrimSpace(c.Crawl.Scheme))
	c.Renderer.Engine = strings.ToLower(strings.TrimSpace(c.Renderer.Engine))
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Output.Directory = strings.TrimSpace(c.Output.Directory)
	if c.Output.Directory == "" {
		c.Output.Directory = "."
	}
}
