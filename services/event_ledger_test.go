package services

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLedger(t *testing.T) {
	l := NewMemoryLedger(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	if seen, _ := l.Seen(ctx, "FQ-1"); seen {
		t.Fatal("unexpected hit on empty ledger")
	}
	if err := l.Mark(ctx, "FQ-1"); err != nil {
		t.Fatal(err)
	}
	if seen, _ := l.Seen(ctx, "FQ-1"); !seen {
		t.Fatal("marked key not seen")
	}

	now = now.Add(2 * time.Minute)
	if seen, _ := l.Seen(ctx, "FQ-1"); seen {
		t.Fatal("expired key still seen")
	}
}
