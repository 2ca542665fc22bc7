package config

import "time"

// Shared limits applied across the service layer.
const (
	// MaxNameLength bounds folder and file names, in runes
	MaxNameLength = 255

	// MaxFileSize bounds a single upload
	MaxFileSize int64 = 5 << 30 // 5 GiB

	// ScanTimeout bounds one risk-assessment call. On expiry the verdict is
	// treated as high risk, never as clean.
	ScanTimeout = 30 * time.Second

	// DefaultDownloadTTL applies when a download request carries no TTL
	DefaultDownloadTTL = 15 * time.Minute

	// MaxDownloadTTL caps caller-supplied TTLs
	MaxDownloadTTL = 24 * time.Hour
)
