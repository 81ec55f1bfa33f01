package model

import (
	"testing"
	"time"
)

func TestItemServable(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name      string
		active    bool
		expiresAt *time.Time
		expected  bool
	}{
		{"active without expiry", true, nil, true},
		{"active with future expiry", true, &future, true},
		{"active with past expiry", true, &past, false},
		{"active expiring exactly now", true, &now, false},
		{"inactive without expiry", false, nil, false},
		{"inactive with future expiry", false, &future, false},
		{"inactive with past expiry", false, &past, false},
	}

	for _, tt := range tests {
		item := &Item{IsActive: tt.active, ExpiresAt: tt.expiresAt}
		if got := item.Servable(now); got != tt.expected {
			t.Errorf("%s: Servable = %v, want %v", tt.name, got, tt.expected)
		}
	}
}

func TestItemMediaSourcePrefersFile(t *testing.T) {
	item := &Item{MediaURL: "https://example.com/a.png", FilePath: "/uploads/a.png"}
	if got := item.MediaSource(); got != "/uploads/a.png" {
		t.Errorf("expected file path to win, got %q", got)
	}

	item.FilePath = ""
	if got := item.MediaSource(); got != "https://example.com/a.png" {
		t.Errorf("expected media url fallback, got %q", got)
	}
}

func TestItemPatchEmpty(t *testing.T) {
	if !(ItemPatch{}).Empty() {
		t.Error("zero patch should be empty")
	}
	active := false
	if (ItemPatch{IsActive: &active}).Empty() {
		t.Error("patch with is_active should not be empty")
	}
	if (ItemPatch{ClearExpiry: true}).Empty() {
		t.Error("patch clearing expiry should not be empty")
	}
}
