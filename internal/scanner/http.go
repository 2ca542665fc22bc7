package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"skyvault/internal/domain"
	"skyvault/internal/domain/models/drive"
)

// HTTPAssessor calls an external scanning service over HTTP. The service
// fetches the object itself using the locator; only metadata travels here.
type HTTPAssessor struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPAssessor creates a risk assessor backed by a scanning service
func NewHTTPAssessor(endpoint string, timeout time.Duration, logger *slog.Logger) *HTTPAssessor {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPAssessor{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type assessRequest struct {
	Locator drive.StorageLocator `json:"locator"`
	Meta    FileInfo             `json:"meta"`
}

type assessResponse struct {
	Score     int    `json:"score"`
	Level     string `json:"level"`
	Malicious bool   `json:"malicious"`
}

// Assess submits the object for scanning and returns the verdict
func (a *HTTPAssessor) Assess(ctx context.Context, loc drive.StorageLocator, meta FileInfo) (*drive.RiskAssessment, error) {
	payload, err := json.Marshal(assessRequest{Locator: loc, Meta: meta})
	if err != nil {
		return nil, fmt.Errorf("encode assess request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build assess request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrScannerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: scan service returned %d", domain.ErrScannerUnavailable, resp.StatusCode)
	}

	var out assessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode assess response: %v", domain.ErrScannerUnavailable, err)
	}

	a.logger.Debug("risk assessment completed",
		"key", loc.Key,
		"score", out.Score,
		"level", out.Level,
		"malicious", out.Malicious,
	)

	return &drive.RiskAssessment{
		Score:      out.Score,
		Level:      out.Level,
		Malicious:  out.Malicious,
		AssessedAt: time.Now(),
	}, nil
}
