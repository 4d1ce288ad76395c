package google

import (
	"testing"
	"time"
)

func TestIsExpiredAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name   string
		expiry *time.Time
		want   bool
	}{
		{"nil expiry never refreshes", nil, false},
		{"already expired", ptr(now.Add(-time.Second)), true},
		{"well in the future", ptr(now.Add(10 * time.Minute)), false},
		{"inside the five minute margin", ptr(now.Add(4 * time.Minute)), true},
		{"exactly at the margin boundary", ptr(now.Add(5 * time.Minute)), true},
		{"just outside the margin", ptr(now.Add(5*time.Minute + time.Second)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isExpiredAt(tt.expiry, now); got != tt.want {
				t.Errorf("isExpiredAt(%v) = %v, want %v", tt.expiry, got, tt.want)
			}
		})
	}
}

func TestIsExpiredUsesWallClock(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	if !IsExpired(&past) {
		t.Error("IsExpired(past) = false, want true")
	}

	future := time.Now().Add(time.Hour)
	if IsExpired(&future) {
		t.Error("IsExpired(future) = true, want false")
	}

	if IsExpired(nil) {
		t.Error("IsExpired(nil) = true, want false")
	}
}
