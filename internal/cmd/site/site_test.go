package site

import (
	"encoding/base64"
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("site", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "localhost:8080" {
		t.Errorf("addr = %q", cfg.Addr)
	}
	if cfg.DBPath != "data/flairhub.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
	if cfg.BulkUpdateBatchSize != 10 {
		t.Errorf("bulk batch size = %d", cfg.BulkUpdateBatchSize)
	}
	if cfg.RedditAuthorizeURL != "https://www.reddit.com/api/v1/authorize" {
		t.Errorf("authorize url = %q", cfg.RedditAuthorizeURL)
	}
}

func TestParseConfigEnvOverride(t *testing.T) {
	t.Setenv("FLAIRHUB_SITE_ADDR", "0.0.0.0:9000")
	t.Setenv("FLAIRHUB_PAGES_ORIGIN", "https://pages.example")

	fs := flag.NewFlagSet("site", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9000" {
		t.Errorf("addr = %q, want env override", cfg.Addr)
	}
	if cfg.PagesOrigin != "https://pages.example" {
		t.Errorf("pages origin = %q", cfg.PagesOrigin)
	}
}

func TestParseConfigFlagsBeatEnv(t *testing.T) {
	t.Setenv("FLAIRHUB_SITE_ADDR", "0.0.0.0:9000")

	fs := flag.NewFlagSet("site", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-addr", "localhost:7000"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != "localhost:7000" {
		t.Errorf("addr = %q, want flag override", cfg.Addr)
	}
}

func TestDecodeTokenSecret(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = byte(i)
	}
	encoded := base64.RawURLEncoding.EncodeToString(raw)

	secret, err := DecodeTokenSecret(encoded)
	if err != nil {
		t.Fatalf("decode secret: %v", err)
	}
	if len(secret) != 32 {
		t.Fatalf("secret length = %d, want 32", len(secret))
	}

	// Padded input is accepted too.
	if _, err := DecodeTokenSecret(base64.URLEncoding.EncodeToString(raw)); err != nil {
		t.Fatalf("decode padded secret: %v", err)
	}
}

func TestDecodeTokenSecretRejectsWeakInput(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "missing", raw: ""},
		{name: "whitespace", raw: "   "},
		{name: "not base64url", raw: "!!not-base64!!"},
		{name: "too short", raw: base64.RawURLEncoding.EncodeToString([]byte("short"))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeTokenSecret(tc.raw); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
