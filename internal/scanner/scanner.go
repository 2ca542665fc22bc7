package scanner

import (
	"context"

	"skyvault/internal/domain/models/drive"
)

// FileInfo is the metadata handed to the risk-assessment collaborator
// alongside the stored object.
type FileInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	OwnerID  string `json:"owner_id"`
}

// RiskAssessor is the risk-assessment collaborator. The verdict is advisory
// input to the initial status decision; callers treat a failure or timeout
// as the most conservative verdict rather than silently admitting the file.
type RiskAssessor interface {
	// Assess pulls the object addressed by the locator and scores it
	Assess(ctx context.Context, loc drive.StorageLocator, meta FileInfo) (*drive.RiskAssessment, error)
}
