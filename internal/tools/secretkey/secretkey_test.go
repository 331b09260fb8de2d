package secretkey

import (
	"bytes"
	"encoding/base64"
	"flag"
	"strings"
	"testing"

	"github.com/flairhub/flairhub/internal/token"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("secretkey", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Bytes != token.MinSecretLen {
		t.Fatalf("expected default bytes %d, got %d", token.MinSecretLen, cfg.Bytes)
	}
}

func TestParseConfigOverride(t *testing.T) {
	fs := flag.NewFlagSet("secretkey", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-bytes", "64"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Bytes != 64 {
		t.Fatalf("expected bytes 64, got %d", cfg.Bytes)
	}
}

func TestRunRejectsShortSecret(t *testing.T) {
	if err := Run(Config{Bytes: 16}, &bytes.Buffer{}, nil); err == nil {
		t.Fatal("expected error for bytes below minimum")
	}
}

func TestRunNilOutput(t *testing.T) {
	if err := Run(Config{Bytes: 32}, nil, nil); err == nil {
		t.Fatal("expected error for nil output")
	}
}

func TestRunWritesEnvAssignment(t *testing.T) {
	buf := &bytes.Buffer{}
	seed := bytes.Repeat([]byte{0xab}, 32)
	if err := Run(Config{Bytes: 32}, buf, bytes.NewReader(seed)); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := strings.TrimSpace(buf.String())
	const prefix = "FLAIRHUB_TOKEN_SECRET="
	if !strings.HasPrefix(got, prefix) {
		t.Fatalf("expected env prefix, got %q", got)
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(got, prefix))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if !bytes.Equal(decoded, seed) {
		t.Fatalf("decoded secret does not match seed")
	}
}

func TestRunDefaultReader(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Run(Config{Bytes: 32}, buf, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := strings.TrimSpace(buf.String())
	encoded := strings.TrimPrefix(got, "FLAIRHUB_TOKEN_SECRET=")
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(decoded) != 32 {
		t.Fatalf("expected 32 random bytes, got %d", len(decoded))
	}
}
