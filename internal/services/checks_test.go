package services

import (
	"testing"
	"time"

	"cardledger/internal/storage"
)

func TestRolloverChecker_IsDue(t *testing.T) {
	checker := RolloverChecker{}
	now := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		meta storage.Meta
		want bool
	}{
		{
			name: "never recorded - not due",
			meta: storage.Meta{},
			want: false,
		},
		{
			name: "seen this year - not due",
			meta: storage.Meta{LastSeenYear: 2025},
			want: false,
		},
		{
			name: "seen last year - is due",
			meta: storage.Meta{LastSeenYear: 2024},
			want: true,
		},
		{
			name: "seen years ago - is due",
			meta: storage.Meta{LastSeenYear: 2021},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(tt.meta, now)
			if got != tt.want {
				t.Errorf("RolloverChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBackupChecker_IsDue(t *testing.T) {
	checker := BackupChecker{StaleAfter: 15 * 24 * time.Hour}
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		lastBackup time.Time
		want       bool
	}{
		{
			name:       "never backed up - is due",
			lastBackup: time.Time{},
			want:       true,
		},
		{
			name:       "backed up yesterday - not due",
			lastBackup: now.AddDate(0, 0, -1),
			want:       false,
		},
		{
			name:       "backed up exactly at the threshold - not due",
			lastBackup: now.Add(-15 * 24 * time.Hour),
			want:       false,
		},
		{
			name:       "backed up a month ago - is due",
			lastBackup: now.AddDate(0, -1, 0),
			want:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := checker.IsDue(storage.Meta{LastBackup: tt.lastBackup}, now)
			if got != tt.want {
				t.Errorf("BackupChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}
