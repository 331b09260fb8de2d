package worker

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HealthPort != 8081 {
		t.Errorf("health port = %d", cfg.HealthPort)
	}
	if cfg.DBPath != "data/flairhub.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.RiotBaseURL != "https://na1.api.riotgames.com" {
		t.Errorf("riot base url = %q", cfg.RiotBaseURL)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("FLAIRHUB_WORKER_HEALTH_PORT", "9090")
	t.Setenv("FLAIRHUB_RIOT_API_KEY", "test-key")

	fs := flag.NewFlagSet("worker", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-riot-base-url", "https://euw1.api.riotgames.com"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.HealthPort != 9090 {
		t.Errorf("health port = %d, want env override", cfg.HealthPort)
	}
	if cfg.RiotAPIKey != "test-key" {
		t.Errorf("riot api key = %q", cfg.RiotAPIKey)
	}
	if cfg.RiotBaseURL != "https://euw1.api.riotgames.com" {
		t.Errorf("riot base url = %q, want flag override", cfg.RiotBaseURL)
	}
}
