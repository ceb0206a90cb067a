package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/heshaofu2/superviseInfo/pkg/domain"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the application configuration
type Config struct {
	Server struct {
		Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP status API listen address"`
		Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	} `yaml:"server" json:"server" jsonschema:"description=Status API configuration (server mode)"`

	Storage struct {
		DataDir string `yaml:"data_dir" json:"data_dir" jsonschema:"default=data,description=Directory for per-source data and history files"`
	} `yaml:"storage" json:"storage" jsonschema:"description=Storage configuration"`

	Crawler CrawlerConfig `yaml:"crawler" json:"crawler" jsonschema:"description=Crawl loop and fetcher configuration"`

	Report struct {
		Enabled   *bool  `yaml:"enabled" json:"enabled" jsonschema:"default=true,description=Generate a Markdown report after each run"`
		OutputDir string `yaml:"output_dir" json:"output_dir" jsonschema:"default=result,description=Directory for Markdown run reports"`
	} `yaml:"report" json:"report" jsonschema:"description=Run report configuration"`

	Extraction ExtractionConfig `yaml:"extraction" json:"extraction" jsonschema:"description=Notice body preview extraction for new items"`

	Schedule struct {
		UpdateInterval int `yaml:"update_interval" json:"update_interval" jsonschema:"default=60,description=Crawl interval in minutes (server mode)"`
	} `yaml:"schedule" json:"schedule" jsonschema:"description=Scheduler configuration (server mode)"`

	Sources Sources `yaml:"sources" json:"sources" jsonschema:"description=Configured listing pages in document order"`
}

// CrawlerConfig holds fetcher and pagination settings shared by all sources
type CrawlerConfig struct {
	MaxPages   int           `yaml:"max_pages" json:"max_pages" jsonschema:"default=20,description=Maximum result pages per source"`
	Retries    int           `yaml:"retries" json:"retries" jsonschema:"default=3,description=Fetch attempts per page"`
	RetryDelay time.Duration `yaml:"retry_delay" json:"retry_delay" jsonschema:"default=1s,description=Initial backoff delay between fetch attempts"`
	PageDelay  time.Duration `yaml:"page_delay" json:"page_delay" jsonschema:"default=1s,description=Politeness delay between successive page fetches"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Per-request HTTP timeout"`
	UserAgent  string        `yaml:"user_agent" json:"user_agent" jsonschema:"description=User-Agent header for all requests"`
}

// ExtractionConfig holds notice body preview settings
type ExtractionConfig struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" jsonschema:"default=false,description=Fetch a body-text preview for newly discovered notices"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Extraction timeout per notice"`
	MinTextLength int           `yaml:"min_text_length" json:"min_text_length" jsonschema:"default=100,description=Minimum extracted text length to consider valid"`
	PreviewLength int           `yaml:"preview_length" json:"preview_length" jsonschema:"default=200,description=Preview length in runes"`
}

// SourceConfig describes one configured listing page
type SourceConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled" jsonschema:"default=true,description=Skip the source entirely when false"`
	Name        string `yaml:"name" json:"name" jsonschema:"description=Display name which also keys the store files"`
	URL         string `yaml:"url" json:"url" jsonschema:"required,description=Listing page URL to crawl"`
	Description string `yaml:"description" json:"description" jsonschema:"description=Free-form note"`
	CrawlerType string `yaml:"crawler_type" json:"crawler_type" jsonschema:"default=sichuan_fgw,description=Registered extractor type"`
}

// SourceEntry pairs a source key with its configuration
type SourceEntry struct {
	Key string
	SourceConfig
}

// Sources keeps the configured sources in document order. YAML mappings lose
// ordering with the default map decoding, and the runner must process sources
// strictly in configured order, so decoding walks the mapping node directly.
type Sources []SourceEntry

// UnmarshalYAML implements yaml.Unmarshaler preserving mapping order
func (s *Sources) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("sources must be a mapping, got %s", node.Tag)
	}

	result := make(Sources, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]

		// enabled defaults to true when the field is omitted
		raw := struct {
			Enabled     *bool  `yaml:"enabled"`
			Name        string `yaml:"name"`
			URL         string `yaml:"url"`
			Description string `yaml:"description"`
			CrawlerType string `yaml:"crawler_type"`
		}{}
		if err := valNode.Decode(&raw); err != nil {
			return fmt.Errorf("decode source %q: %w", keyNode.Value, err)
		}

		entry := SourceEntry{Key: keyNode.Value}
		entry.Enabled = raw.Enabled == nil || *raw.Enabled
		entry.Name = raw.Name
		entry.URL = raw.URL
		entry.Description = raw.Description
		entry.CrawlerType = raw.CrawlerType
		result = append(result, entry)
	}

	*s = result
	return nil
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// set defaults for server
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = ":8080"
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	// set defaults for storage
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}

	// set defaults for crawler
	if cfg.Crawler.MaxPages == 0 {
		cfg.Crawler.MaxPages = 20
	}
	if cfg.Crawler.Retries == 0 {
		cfg.Crawler.Retries = 3
	}
	if cfg.Crawler.RetryDelay == 0 {
		cfg.Crawler.RetryDelay = time.Second
	}
	if cfg.Crawler.PageDelay == 0 {
		cfg.Crawler.PageDelay = time.Second
	}
	if cfg.Crawler.Timeout == 0 {
		cfg.Crawler.Timeout = 30 * time.Second
	}
	if cfg.Crawler.UserAgent == "" {
		cfg.Crawler.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}

	// set defaults for report
	if cfg.Report.Enabled == nil {
		enabled := true
		cfg.Report.Enabled = &enabled
	}
	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = "result"
	}

	// set defaults for extraction
	if cfg.Extraction.Timeout == 0 {
		cfg.Extraction.Timeout = 30 * time.Second
	}
	if cfg.Extraction.MinTextLength == 0 {
		cfg.Extraction.MinTextLength = 100
	}
	if cfg.Extraction.PreviewLength == 0 {
		cfg.Extraction.PreviewLength = 200
	}

	// set defaults for schedule
	if cfg.Schedule.UpdateInterval == 0 {
		cfg.Schedule.UpdateInterval = 60
	}

	// default crawler type per source
	for i := range cfg.Sources {
		if cfg.Sources[i].CrawlerType == "" {
			cfg.Sources[i].CrawlerType = "sichuan_fgw"
		}
	}

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		// log warning but don't fail - schema validation is supplementary
		fmt.Printf("warning: schema validation failed: %v\n", err)
	}

	return &cfg, nil
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Crawler.MaxPages < 1 {
		return fmt.Errorf("crawler.max_pages must be at least 1")
	}
	if cfg.Crawler.Retries < 1 {
		return fmt.Errorf("crawler.retries must be at least 1")
	}
	if cfg.Crawler.Timeout < time.Second {
		return fmt.Errorf("crawler.timeout must be at least 1 second")
	}

	for _, src := range cfg.Sources {
		if src.URL == "" {
			return fmt.Errorf("source %q has no url", src.Key)
		}
	}

	if cfg.Extraction.Enabled && cfg.Extraction.MinTextLength < 0 {
		return fmt.Errorf("extraction.min_text_length must be non-negative")
	}

	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server.timeout must be at least 1 second")
	}
	if cfg.Schedule.UpdateInterval < 1 {
		return fmt.Errorf("schedule.update_interval must be at least 1 minute")
	}

	return nil
}

// EnabledSources returns enabled sources in configured order
func (c *Config) EnabledSources() []domain.Source {
	sources := make([]domain.Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		if !src.Enabled {
			continue
		}
		name := src.Name
		if name == "" {
			name = src.Key
		}
		sources = append(sources, domain.Source{
			Key:         src.Key,
			Name:        name,
			URL:         src.URL,
			Description: src.Description,
			CrawlerType: src.CrawlerType,
		})
	}
	return sources
}

// ReportEnabled reports whether Markdown run reports should be generated
func (c *Config) ReportEnabled() bool {
	return c.Report.Enabled != nil && *c.Report.Enabled
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetExtractionConfig returns notice preview extraction configuration
func (c *Config) GetExtractionConfig() ExtractionConfig {
	return c.Extraction
}
