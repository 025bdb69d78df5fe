package privacylog

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestHandlerRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(WrapHandler(slog.NewTextHandler(&buf, nil)))

	log.Info("login",
		"session_token", "eyJhbGciOi.secret.payload",
		"recovery_mnemonic", "abandon ability able",
		"result", "ok",
	)

	out := buf.String()
	if strings.Contains(out, "eyJhbGciOi") || strings.Contains(out, "abandon ability") {
		t.Fatalf("sensitive values leaked: %s", out)
	}
	if !strings.Contains(out, redactedValue) {
		t.Fatalf("expected redaction marker: %s", out)
	}
	if !strings.Contains(out, "result=ok") {
		t.Fatalf("non-sensitive attrs must pass through: %s", out)
	}
}

func TestHandlerFingerprintsIdentifiers(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(WrapHandler(slog.NewTextHandler(&buf, nil)))

	log.Info("joined", "lobby_id", "4aa2e6de-0000-0000-0000-000000000000", "public_key", "pk-b64")

	out := buf.String()
	if strings.Contains(out, "4aa2e6de") || strings.Contains(out, "pk-b64") {
		t.Fatalf("identifiers leaked: %s", out)
	}
	if !strings.Contains(out, "lobby_id_fp=fp_") || !strings.Contains(out, "public_key_fp=fp_") {
		t.Fatalf("expected fingerprinted keys: %s", out)
	}
}

func TestFingerprintStableWithinProcess(t *testing.T) {
	if FingerprintID("pk") != FingerprintID("pk") {
		t.Fatal("fingerprint must be stable within one process")
	}
	if FingerprintID("pk") == FingerprintID("other") {
		t.Fatal("different values must fingerprint differently")
	}
	if FingerprintID("  ") != "" {
		t.Fatal("blank values fingerprint to empty")
	}
}
