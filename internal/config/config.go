package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Extraction modes
const (
	ModeFirecrawl = "firecrawl"
	ModeOpenAI    = "openai"
)

// DefaultTargetDomains are searched by the targeted query unless overridden
var DefaultTargetDomains = []string{"lu.ma", "meetup.com", "eventbrite.com"}

// Config holds the settings of the search pipeline and its entry points
type Config struct {
	FirecrawlAPIKey string // FIRECRAWL_API_KEY (required)
	FirecrawlAPIURL string // FIRECRAWL_API_URL (default "https://api.firecrawl.dev")
	JinaReaderURL   string // JINA_READER_URL (default "https://r.jina.ai")
	OpenAIAPIKey    string // OPENAI_API_KEY (required in openai mode)
	OpenAIModel     string // OPENAI_MODEL (default "gpt-4o-mini")
	ExtractionMode  string // EXTRACTION_MODE (default "firecrawl")

	SearchLimit   int      // SEARCH_LIMIT (default 5)
	TargetDomains []string // TARGET_DOMAINS (comma separated)
	Timezone      string   // TIMEZONE (default "Local")
	Location      *time.Location
	HTTPAddr      string // HTTP_ADDR (default ":8080")

	BatchPollInterval     time.Duration // BATCH_POLL_INTERVAL (default 2s)
	GatewayTimeout        time.Duration // GATEWAY_TIMEOUT (default 120s)
	ExtractionConcurrency int           // EXTRACTION_CONCURRENCY (default 3)
	ExtractionRate        float64       // EXTRACTION_RATE requests per second (default 2)

	ConfigFile      string // SPEAKER_SEARCH_CONFIG (optional TOML file)
	DomainsS3Bucket string // TARGET_DOMAINS_S3_BUCKET (enables the S3 domain list when set)
	DomainsS3Key    string // TARGET_DOMAINS_S3_KEY (default "speaker-search/domains.toml")
	DomainsS3Region string // TARGET_DOMAINS_S3_REGION (optional)
}

// fileConfig is the TOML file layout. Secrets are read from the environment only.
type fileConfig struct {
	FirecrawlAPIURL       string   `toml:"firecrawl_api_url"`
	JinaReaderURL         string   `toml:"jina_reader_url"`
	OpenAIModel           string   `toml:"openai_model"`
	ExtractionMode        string   `toml:"extraction_mode"`
	SearchLimit           int      `toml:"search_limit"`
	TargetDomains         []string `toml:"target_domains"`
	Timezone              string   `toml:"timezone"`
	HTTPAddr              string   `toml:"http_addr"`
	BatchPollInterval     string   `toml:"batch_poll_interval"`
	GatewayTimeout        string   `toml:"gateway_timeout"`
	ExtractionConcurrency int      `toml:"extraction_concurrency"`
	ExtractionRate        float64  `toml:"extraction_rate"`
}

// ObjectDownloader fetches a remote object, such as an S3 key
type ObjectDownloader interface {
	DownloadObject(ctx context.Context, key string) ([]byte, error)
}

// Load reads the configuration from SPEAKER_SEARCH_CONFIG (if set) and the environment
func Load() (*Config, error) {
	return LoadFrom(os.Getenv("SPEAKER_SEARCH_CONFIG"))
}

// LoadFrom reads defaults, then the TOML file at path (if any), then the environment.
// Later sources win.
func LoadFrom(path string) (*Config, error) {
	c := &Config{
		FirecrawlAPIURL:       "https://api.firecrawl.dev",
		JinaReaderURL:         "https://r.jina.ai",
		OpenAIModel:           "gpt-4o-mini",
		ExtractionMode:        ModeFirecrawl,
		SearchLimit:           5,
		TargetDomains:         append([]string(nil), DefaultTargetDomains...),
		Timezone:              "Local",
		HTTPAddr:              ":8080",
		BatchPollInterval:     2 * time.Second,
		GatewayTimeout:        120 * time.Second,
		ExtractionConcurrency: 3,
		ExtractionRate:        2,
		ConfigFile:            path,
	}

	if path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	location, err := loadLocation(c.Timezone)
	if err != nil {
		return nil, err
	}
	c.Location = location

	if c.ExtractionMode != ModeFirecrawl && c.ExtractionMode != ModeOpenAI {
		return nil, fmt.Errorf("EXTRACTION_MODE: unknown mode %q", c.ExtractionMode)
	}
	if c.SearchLimit <= 0 {
		return nil, fmt.Errorf("SEARCH_LIMIT must be positive, got %d", c.SearchLimit)
	}

	return c, nil
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	c.FirecrawlAPIURL = stringOr(fc.FirecrawlAPIURL, c.FirecrawlAPIURL)
	c.JinaReaderURL = stringOr(fc.JinaReaderURL, c.JinaReaderURL)
	c.OpenAIModel = stringOr(fc.OpenAIModel, c.OpenAIModel)
	c.ExtractionMode = stringOr(strings.ToLower(fc.ExtractionMode), c.ExtractionMode)
	c.Timezone = stringOr(fc.Timezone, c.Timezone)
	c.HTTPAddr = stringOr(fc.HTTPAddr, c.HTTPAddr)

	if fc.SearchLimit != 0 {
		c.SearchLimit = fc.SearchLimit
	}
	if fc.ExtractionConcurrency != 0 {
		c.ExtractionConcurrency = fc.ExtractionConcurrency
	}
	if fc.ExtractionRate != 0 {
		c.ExtractionRate = fc.ExtractionRate
	}
	if domains := NormalizeDomains(fc.TargetDomains); len(domains) > 0 {
		c.TargetDomains = domains
	}

	var err error
	if c.BatchPollInterval, err = durationOr("batch_poll_interval", fc.BatchPollInterval, c.BatchPollInterval); err != nil {
		return err
	}
	if c.GatewayTimeout, err = durationOr("gateway_timeout", fc.GatewayTimeout, c.GatewayTimeout); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.FirecrawlAPIKey = os.Getenv("FIRECRAWL_API_KEY")
	c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	c.FirecrawlAPIURL = envOrDefault("FIRECRAWL_API_URL", c.FirecrawlAPIURL)
	c.JinaReaderURL = envOrDefault("JINA_READER_URL", c.JinaReaderURL)
	c.OpenAIModel = envOrDefault("OPENAI_MODEL", c.OpenAIModel)
	c.ExtractionMode = strings.ToLower(envOrDefault("EXTRACTION_MODE", c.ExtractionMode))
	c.Timezone = envOrDefault("TIMEZONE", c.Timezone)
	c.HTTPAddr = envOrDefault("HTTP_ADDR", c.HTTPAddr)
	c.DomainsS3Bucket = os.Getenv("TARGET_DOMAINS_S3_BUCKET")
	c.DomainsS3Key = envOrDefault("TARGET_DOMAINS_S3_KEY", "speaker-search/domains.toml")
	c.DomainsS3Region = os.Getenv("TARGET_DOMAINS_S3_REGION")

	if raw := os.Getenv("TARGET_DOMAINS"); raw != "" {
		if domains := NormalizeDomains(strings.Split(raw, ",")); len(domains) > 0 {
			c.TargetDomains = domains
		}
	}

	var err error
	if c.SearchLimit, err = envInt("SEARCH_LIMIT", c.SearchLimit); err != nil {
		return err
	}
	if c.ExtractionConcurrency, err = envInt("EXTRACTION_CONCURRENCY", c.ExtractionConcurrency); err != nil {
		return err
	}
	if raw := os.Getenv("EXTRACTION_RATE"); raw != "" {
		rate, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("EXTRACTION_RATE: %w", err)
		}
		c.ExtractionRate = rate
	}
	if c.BatchPollInterval, err = durationOr("BATCH_POLL_INTERVAL", os.Getenv("BATCH_POLL_INTERVAL"), c.BatchPollInterval); err != nil {
		return err
	}
	if c.GatewayTimeout, err = durationOr("GATEWAY_TIMEOUT", os.Getenv("GATEWAY_TIMEOUT"), c.GatewayTimeout); err != nil {
		return err
	}

	return nil
}

// Validate checks the settings needed to reach the external services
func (c *Config) Validate() error {
	if c.FirecrawlAPIKey == "" {
		return fmt.Errorf("FIRECRAWL_API_KEY is required")
	}
	if c.ExtractionMode == ModeOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when EXTRACTION_MODE=%s", ModeOpenAI)
	}
	return nil
}

// LoadRemoteDomains replaces the target domains with the list stored at DomainsS3Key.
// It does nothing when no bucket is configured.
func (c *Config) LoadRemoteDomains(ctx context.Context, downloader ObjectDownloader) error {
	if c.DomainsS3Bucket == "" {
		return nil
	}

	data, err := downloader.DownloadObject(ctx, c.DomainsS3Key)
	if err != nil {
		return fmt.Errorf("target domains from s3://%s/%s: %w", c.DomainsS3Bucket, c.DomainsS3Key, err)
	}

	domains, err := ParseDomainsTOML(data)
	if err != nil {
		return err
	}
	if len(domains) == 0 {
		return fmt.Errorf("s3://%s/%s lists no target domains", c.DomainsS3Bucket, c.DomainsS3Key)
	}

	c.TargetDomains = domains
	return nil
}

// ParseDomainsTOML reads a `target_domains = [...]` document
func ParseDomainsTOML(data []byte) ([]string, error) {
	var doc struct {
		TargetDomains []string `toml:"target_domains"`
	}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse target domains: %w", err)
	}
	return NormalizeDomains(doc.TargetDomains), nil
}

// NormalizeDomains lowercases each entry, strips scheme, "www." and any path, and drops
// blanks and duplicates while keeping the first-seen order
func NormalizeDomains(raw []string) []string {
	domains := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))

	for _, entry := range raw {
		domain := strings.ToLower(strings.TrimSpace(entry))
		domain = strings.TrimPrefix(domain, "https://")
		domain = strings.TrimPrefix(domain, "http://")
		domain = strings.TrimPrefix(domain, "www.")
		if idx := strings.IndexAny(domain, "/?#"); idx >= 0 {
			domain = domain[:idx]
		}

		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		domains = append(domains, domain)
	}

	return domains
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	location, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}
	return location, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationOr(name, raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func stringOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
