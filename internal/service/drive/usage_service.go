package drive

import (
	"context"
	"fmt"
	"log/slog"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	driveRepo "skyvault/internal/domain/repositories/drive"
	driveSvc "skyvault/internal/domain/services/drive"
	"skyvault/internal/plans"
)

type usageService struct {
	usageRepo driveRepo.UsageRepository
	plans     *plans.Registry
	logger    *slog.Logger
}

// NewUsageService creates the quota query service
func NewUsageService(usageRepo driveRepo.UsageRepository, planRegistry *plans.Registry, logger *slog.Logger) driveSvc.UsageService {
	return &usageService{
		usageRepo: usageRepo,
		plans:     planRegistry,
		logger:    logger,
	}
}

// Report returns the owner's usage and quota
func (s *usageService) Report(ctx context.Context, p models.Principal, ownerID string) (*driveSvc.UsageReport, error) {
	if ownerID == "" {
		ownerID = p.UserID
	}
	if ownerID != p.UserID && !p.Admin {
		return nil, &domain.ForbiddenError{Message: "cannot read another user's usage"}
	}

	usage, err := s.usageRepo.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &driveSvc.UsageReport{
		OwnerID:     usage.OwnerID,
		Plan:        usage.Plan,
		StorageUsed: usage.StorageUsed,
		QuotaBytes:  s.plans.QuotaFor(usage.Plan),
	}, nil
}

// SetPlan switches an owner to another quota plan. The new quota applies to
// future operations only; existing overage is never forcibly reclaimed.
func (s *usageService) SetPlan(ctx context.Context, p models.Principal, ownerID, planID string) (*driveSvc.UsageReport, error) {
	if !p.Admin {
		return nil, &domain.ForbiddenError{Message: "changing plans requires the admin capability"}
	}
	if ownerID == "" {
		return nil, &domain.ValidationError{Message: "owner is required"}
	}
	if _, err := s.plans.Get(planID); err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown plan %q", planID)}
	}

	if err := s.usageRepo.SetPlan(ctx, ownerID, planID); err != nil {
		return nil, err
	}
	s.logger.Info("plan changed", "owner_id", ownerID, "plan", planID, "actor", p.UserID)
	return s.Report(ctx, p, ownerID)
}
