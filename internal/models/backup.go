package models

import "time"

// BackupInfo describes one snapshot file.
type BackupInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Records   int       `json:"records"`
	CreatedAt time.Time `json:"created_at"`
}

// BackupSnapshot is the on-disk JSON layout of a backup.
type BackupSnapshot struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Records   []Record  `json:"records"`
}

// ResetResult is returned after a reset.
type ResetResult struct {
	Backup  BackupInfo `json:"backup"`
	Cleared int64      `json:"cleared"`
}
