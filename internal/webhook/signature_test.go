package webhook_test

import (
	"encoding/hex"
	"strings"
	"testing"

	"repo-sync-automation/internal/webhook"
)

func TestSignRoundTrip(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)
	sig := webhook.Sign(body, "abc123")

	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("expected sha256= prefix, got %s", sig)
	}
	if !webhook.Verify(body, sig, "abc123") {
		t.Fatalf("expected signature to verify")
	}
	if webhook.Verify(body, sig, "abc124") {
		t.Errorf("expected verification to fail with another secret")
	}
}

func TestVerifyKnownVector(t *testing.T) {
	// Example from GitHub's webhook validation docs.
	body := []byte("Hello, World!")
	sig := "sha256=757107ea0eb2509fc211221cce984b8a37570b6d7586c22c46f4379c8b043e17"

	if !webhook.Verify(body, sig, "It's a Secret to Everybody") {
		t.Errorf("expected known vector to verify")
	}
	if !webhook.Verify(body, "sha256="+strings.ToUpper(sig[7:]), "It's a Secret to Everybody") {
		t.Errorf("expected upper-case hex digest to verify")
	}
}

func TestVerifyBitFlips(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main","after":"0123456789abcdef"}`)
	secret := "abc123"
	sig := webhook.Sign(body, secret)

	t.Run("Body", func(t *testing.T) {
		for i := range body {
			for bit := 0; bit < 8; bit++ {
				flipped := append([]byte(nil), body...)
				flipped[i] ^= 1 << bit
				if webhook.Verify(flipped, sig, secret) {
					t.Fatalf("flip of byte %d bit %d still verified", i, bit)
				}
			}
		}
	})

	t.Run("Digest", func(t *testing.T) {
		digest, err := hex.DecodeString(strings.TrimPrefix(sig, "sha256="))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		for i := range digest {
			for bit := 0; bit < 8; bit++ {
				flipped := append([]byte(nil), digest...)
				flipped[i] ^= 1 << bit
				header := "sha256=" + hex.EncodeToString(flipped)
				if webhook.Verify(body, header, secret) {
					t.Fatalf("flip of digest byte %d bit %d still verified", i, bit)
				}
			}
		}
	})
}

func TestVerifyFailsClosed(t *testing.T) {
	body := []byte(`{}`)
	valid := webhook.Sign(body, "abc123")

	tests := []struct {
		name   string
		header string
		secret string
	}{
		{"Empty Secret", webhook.Sign(body, ""), ""},
		{"Empty Header", "", "abc123"},
		{"No Separator", strings.TrimPrefix(valid, "sha256="), "abc123"},
		{"Unsupported Algorithm", "sha1=" + strings.TrimPrefix(valid, "sha256="), "abc123"},
		{"Upper Case Algorithm", "SHA256=" + strings.TrimPrefix(valid, "sha256="), "abc123"},
		{"Not Hex", "sha256=zz" + strings.TrimPrefix(valid, "sha256=")[2:], "abc123"},
		{"Short Digest", "sha256=deadbeef", "abc123"},
		{"Long Digest", valid + "00", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if webhook.Verify(body, tt.header, tt.secret) {
				t.Errorf("expected %q to fail verification", tt.header)
			}
		})
	}
}
