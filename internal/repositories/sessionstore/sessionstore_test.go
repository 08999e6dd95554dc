package sessionstore

import (
	"context"
	"testing"
	"time"

	"billbuddy/pkg/utils"
)

func TestMemoryRevocation(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	if err := m.Revoke(ctx, "live", now.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	if err := m.Revoke(ctx, "already-expired", now.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		id   string
		at   time.Time
		want bool
	}{
		{"live", now, true},
		{"already-expired", now, false},
		{"unknown", now, false},
		{"live", now.Add(2 * time.Hour), false},
	}
	for _, tt := range tests {
		now = tt.at
		got, err := m.IsRevoked(ctx, tt.id)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("IsRevoked(%q at %v) = %v, want %v", tt.id, tt.at, got, tt.want)
		}
	}
}

func TestNewFallsBackToMemory(t *testing.T) {
	utils.SilenceLogger()

	if _, ok := New(context.Background(), "").(*Memory); !ok {
		t.Fatal("empty url should give a memory store")
	}
	if _, ok := New(context.Background(), "::not a url::").(*Memory); !ok {
		t.Fatal("bad url should give a memory store")
	}
}
