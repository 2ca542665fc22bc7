package plans

// Plan describes one storage quota tier
type Plan struct {
	// Plan identifier (set during YAML unmarshaling)
	ID string `yaml:"-" json:"id"`

	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	// QuotaBytes caps the owner's aggregate storage usage. Uploads whose
	// projected usage exceeds the cap fail with QuotaExceeded.
	QuotaBytes int64 `yaml:"quota_bytes" json:"quota_bytes"`

	// MaxVersions bounds the version history kept per file; 0 = unlimited
	MaxVersions int `yaml:"max_versions" json:"max_versions"`
}

// planFile is the YAML document shape
type planFile struct {
	Plans map[string]Plan `yaml:"plans"`
}
