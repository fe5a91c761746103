package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"reference", "FQ-1",
		"x-paystack-signature", "abcdef",
		"service_token", "tok",
		"dangling",
	})
	if len(out) != 7 {
		t.Fatalf("expected 7 entries, got %d: %v", len(out), out)
	}
	if out[1] != "FQ-1" {
		t.Errorf("reference should pass through, got %v", out[1])
	}
	if out[3] != "[REDACTED]" || out[5] != "[REDACTED]" {
		t.Errorf("expected secrets redacted, got %v", out)
	}
	if out[6] != "dangling" {
		t.Errorf("odd trailing key should be kept, got %v", out[6])
	}
}

func TestNopLoggerIsUsable(t *testing.T) {
	l := Nop().With("service", "test")
	l.Info("hello", "k", "v")
	l.Sync()
}
