package token

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func testCodec(t *testing.T) *Codec {
	t.Helper()
	codec, err := NewCodec(testSecret, func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	})
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	return codec
}

func TestNewCodecRejectsShortSecret(t *testing.T) {
	if _, err := NewCodec([]byte("too-short"), nil); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	codec := testCodec(t)
	tests := []struct {
		kind    Kind
		subject string
	}{
		{KindAnonymous, ""},
		{KindTransition, "state-nonce-value"},
		{KindSession, "account-id-123"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			raw, err := codec.Issue(tt.kind, tt.subject)
			if err != nil {
				t.Fatalf("issue: %v", err)
			}
			subject, err := codec.Verify(raw, tt.kind)
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if subject != tt.subject {
				t.Fatalf("subject = %q, want %q", subject, tt.subject)
			}
		})
	}
}

func TestVerifyWrongKind(t *testing.T) {
	codec := testCodec(t)
	raw, err := codec.Issue(KindAnonymous, "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	for _, expected := range []Kind{KindTransition, KindSession} {
		if _, err := codec.Verify(raw, expected); !errors.Is(err, ErrWrongKind) {
			t.Fatalf("verify as %s: got %v, want ErrWrongKind", expected, err)
		}
	}
}

func TestVerifyFlippedSignatureByte(t *testing.T) {
	codec := testCodec(t)
	raw, err := codec.Issue(KindSession, "account-id-123")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Corrupt one character of the signature segment.
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		t.Fatalf("expected 3 token segments, got %d", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := codec.Verify(tampered, KindSession); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("verify tampered token: got %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyForeignSecret(t *testing.T) {
	codec := testCodec(t)
	other, err := NewCodec([]byte("ffffffffffffffffffffffffffffffff"), nil)
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}
	raw, err := other.Issue(KindSession, "account-id-123")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := codec.Verify(raw, KindSession); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("verify foreign token: got %v, want ErrInvalidSignature", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	codec := testCodec(t)
	for _, raw := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		if _, err := codec.Verify(raw, KindAnonymous); !errors.Is(err, ErrMalformed) {
			t.Fatalf("verify %q: got %v, want ErrMalformed", raw, err)
		}
	}
}

func TestIssueProducesUniqueTokens(t *testing.T) {
	codec := testCodec(t)
	first, err := codec.Issue(KindAnonymous, "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	second, err := codec.Issue(KindAnonymous, "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first == second {
		t.Fatal("expected distinct anonymous tokens per issuance")
	}
}
