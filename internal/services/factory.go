package services

import (
	"context"
	"fmt"
	"log"

	"speaker-events-finder/internal/config"
)

// NewGatewayFromConfig builds the gateway for the configured extraction mode
func NewGatewayFromConfig(cfg *config.Config) (Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	firecrawlClient, err := NewFireCrawlClient(FireCrawlConfig{
		APIKey:       cfg.FirecrawlAPIKey,
		BaseURL:      cfg.FirecrawlAPIURL,
		PollInterval: cfg.BatchPollInterval,
		Timeout:      cfg.GatewayTimeout,
	})
	if err != nil {
		return nil, err
	}

	switch cfg.ExtractionMode {
	case config.ModeOpenAI:
		openaiClient, err := NewOpenAIClient(OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		})
		if err != nil {
			return nil, err
		}

		content := FallbackContent{firecrawlClient, NewJinaClient(cfg.JinaReaderURL)}
		log.Printf("[CONFIG] Extraction mode %s with model %s", cfg.ExtractionMode, openaiClient.Model())
		return NewLLMGateway(firecrawlClient, content, openaiClient, LLMGatewayConfig{
			Concurrency:       cfg.ExtractionConcurrency,
			RequestsPerSecond: cfg.ExtractionRate,
			Timeout:           cfg.GatewayTimeout,
		}), nil

	case config.ModeFirecrawl:
		log.Printf("[CONFIG] Extraction mode %s", cfg.ExtractionMode)
		return firecrawlClient, nil

	default:
		return nil, fmt.Errorf("unknown extraction mode %q", cfg.ExtractionMode)
	}
}

// NewPipelineFromConfig wires a pipeline from configuration. A target domain list stored
// in S3 replaces the configured one; if it cannot be read the configured list is kept.
func NewPipelineFromConfig(ctx context.Context, cfg *config.Config, metrics *Metrics) (*Pipeline, error) {
	if cfg.DomainsS3Bucket != "" {
		s3Client, err := NewS3Client(ctx, S3Config{BucketName: cfg.DomainsS3Bucket, Region: cfg.DomainsS3Region})
		if err == nil {
			err = cfg.LoadRemoteDomains(ctx, s3Client)
		}
		if err != nil {
			log.Printf("[CONFIG] WARNING: keeping configured target domains: %v", err)
		}
	}

	gateway, err := NewGatewayFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	log.Printf("[CONFIG] Target domains: %v", cfg.TargetDomains)
	return NewPipeline(gateway, PipelineConfig{
		Planner:     NewQueryPlanner(cfg.TargetDomains),
		Dates:       NewDateNormalizer(cfg.Location),
		SearchLimit: cfg.SearchLimit,
		Metrics:     metrics,
	}), nil
}
