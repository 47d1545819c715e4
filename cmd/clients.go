package main

import (
	"github.com/sells-group/lotsmith/internal/config"
	"github.com/sells-group/lotsmith/internal/enrich"
	"github.com/sells-group/lotsmith/internal/session"
	"github.com/sells-group/lotsmith/pkg/anthropic"
	"github.com/sells-group/lotsmith/pkg/auctionmethod"
)

// buildEnricher wires an Enricher from configuration.
func buildEnricher(c *config.Config) *enrich.Enricher {
	client := anthropic.NewClient(c.Anthropic.Key)
	return enrich.New(client, enrich.Config{
		Model:         c.Anthropic.Model,
		MaxTokens:     int64(c.Anthropic.MaxTokens),
		WebSearch:     c.Anthropic.WebSearch,
		Timeout:       c.Enrich.Timeout(),
		RateLimitWait: c.Enrich.RateLimitWait(),
		RateLimitCap:  c.Enrich.RateLimitCap(),
	})
}

// buildAMClient wires an AuctionMethod client from configuration.
func buildAMClient(c *config.Config) auctionmethod.Client {
	return auctionmethod.NewClient(
		c.AuctionMethod.Domain,
		c.AuctionMethod.Email,
		c.AuctionMethod.Password,
		auctionmethod.WithRateLimit(c.AuctionMethod.RateLimit),
	)
}

// sessionConfig maps the pacing configuration onto the run loop.
func sessionConfig(c *config.Config) session.Config {
	return session.Config{
		PaceEvery: c.Enrich.Pace(),
		PaceFirst: c.Enrich.PaceFirst,
	}
}
