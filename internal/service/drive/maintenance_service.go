package drive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	"skyvault/internal/domain/repositories"
	driveRepo "skyvault/internal/domain/repositories/drive"
	"skyvault/internal/domain/services"
	driveSvc "skyvault/internal/domain/services/drive"
)

type maintenanceService struct {
	folderRepo driveRepo.FolderRepository
	fileRepo   driveRepo.FileRepository
	usageRepo  driveRepo.UsageRepository
	txManager  repositories.TransactionManager
	access     services.AccessResolver
	logger     *slog.Logger
}

// NewMaintenanceService creates the repair service. Every operation here is
// idempotent and safe to re-run.
func NewMaintenanceService(
	folderRepo driveRepo.FolderRepository,
	fileRepo driveRepo.FileRepository,
	usageRepo driveRepo.UsageRepository,
	txManager repositories.TransactionManager,
	access services.AccessResolver,
	logger *slog.Logger,
) driveSvc.MaintenanceService {
	return &maintenanceService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		usageRepo:  usageRepo,
		txManager:  txManager,
		access:     access,
		logger:     logger,
	}
}

// FolderSize recomputes the folder's recursive live size from file rows,
// ignoring the incremental total_size counter entirely
func (s *maintenanceService) FolderSize(ctx context.Context, p models.Principal, folderID string) (int64, error) {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return 0, err
	}
	if err := s.access.Require(folder, p, models.PermissionView); err != nil {
		return 0, err
	}

	var total int64
	queue := []models.Folder{*folder}
	visited := map[string]bool{folder.ID: true}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		files, err := s.fileRepo.ListByFolder(ctx, &current.ID, current.OwnerID, false)
		if err != nil {
			return 0, err
		}
		for _, f := range files {
			total += f.Size
		}

		children, err := s.folderRepo.ListChildren(ctx, &current.ID, current.OwnerID, false)
		if err != nil {
			return 0, err
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			queue = append(queue, child)
		}
	}
	return total, nil
}

// computeDirectCounts rebuilds a folder's direct-children aggregates from
// source records
func (s *maintenanceService) computeDirectCounts(ctx context.Context, folder *models.Folder) (folderCount, fileCount, totalSize int64, err error) {
	children, err := s.folderRepo.ListChildren(ctx, &folder.ID, folder.OwnerID, false)
	if err != nil {
		return 0, 0, 0, err
	}
	files, err := s.fileRepo.ListByFolder(ctx, &folder.ID, folder.OwnerID, false)
	if err != nil {
		return 0, 0, 0, err
	}
	for _, f := range files {
		totalSize += f.Size
	}
	return int64(len(children)), int64(len(files)), totalSize, nil
}

// CheckFolderConsistency compares the incremental counters against
// recomputed truth
func (s *maintenanceService) CheckFolderConsistency(ctx context.Context, p models.Principal, folderID string) error {
	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return err
	}
	if err := s.access.Require(folder, p, models.PermissionView); err != nil {
		return err
	}

	folderCount, fileCount, totalSize, err := s.computeDirectCounts(ctx, folder)
	if err != nil {
		return err
	}
	if folder.FolderCount != folderCount || folder.FileCount != fileCount || folder.TotalSize != totalSize {
		return &domain.InconsistentStateError{
			Message: fmt.Sprintf(
				"folder %s counters drifted: stored (%d folders, %d files, %d bytes), actual (%d folders, %d files, %d bytes)",
				folder.ID,
				folder.FolderCount, folder.FileCount, folder.TotalSize,
				folderCount, fileCount, totalSize,
			),
		}
	}
	return nil
}

// RepairFolderCounts rewrites a folder's counters from recomputed truth
func (s *maintenanceService) RepairFolderCounts(ctx context.Context, p models.Principal, folderID string) (*models.Folder, error) {
	var repaired *models.Folder

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		folder, err := s.folderRepo.GetByIDForUpdate(ctx, folderID)
		if err != nil {
			return err
		}
		if err := s.access.Require(folder, p, models.PermissionManage); err != nil {
			return err
		}

		folderCount, fileCount, totalSize, err := s.computeDirectCounts(ctx, folder)
		if err != nil {
			return err
		}
		if folder.FolderCount == folderCount && folder.FileCount == fileCount && folder.TotalSize == totalSize {
			repaired = folder
			return nil
		}

		if err := s.folderRepo.SetCounts(ctx, folder.ID, folderCount, fileCount, totalSize); err != nil {
			return err
		}
		folder.FolderCount = folderCount
		folder.FileCount = fileCount
		folder.TotalSize = totalSize
		repaired = folder
		return nil
	})
	if err != nil {
		return nil, err
	}
	return repaired, nil
}

// RecomputeUsage rebuilds the owner's storage-used counter from file rows.
// Callers may recompute their own usage; recomputing someone else's
// requires the admin capability.
func (s *maintenanceService) RecomputeUsage(ctx context.Context, p models.Principal, ownerID string) (int64, error) {
	if ownerID == "" {
		ownerID = p.UserID
	}
	if ownerID != p.UserID && !p.Admin {
		return 0, &domain.ForbiddenError{Message: "cannot recompute another user's usage"}
	}
	return s.usageRepo.Recompute(ctx, ownerID)
}

// Repair scans the principal's tree and fixes what it finds: orphaned
// folders are re-homed at root, half-applied trash cascades are re-driven,
// drifted counters are rewritten, and the usage counter is rebuilt.
func (s *maintenanceService) Repair(ctx context.Context, p models.Principal) (*driveSvc.RepairReport, error) {
	report := &driveSvc.RepairReport{}

	folders, err := s.folderRepo.ListAllByOwner(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*models.Folder, len(folders))
	for i := range folders {
		byID[folders[i].ID] = &folders[i]
	}

	for i := range folders {
		folder := &folders[i]

		if folder.ParentID != nil {
			if _, ok := byID[*folder.ParentID]; !ok {
				if err := s.rehomeOrphan(ctx, folder.ID); err != nil {
					return nil, fmt.Errorf("re-home orphan %s: %w", folder.ID, err)
				}
				report.OrphanedFolders = append(report.OrphanedFolders, folder.ID)
			}
		}

		if folder.IsTrash {
			resumed, err := s.resumeTrashCascade(ctx, folder)
			if err != nil {
				return nil, fmt.Errorf("resume trash cascade at %s: %w", folder.ID, err)
			}
			if resumed {
				report.ResumedCascades = append(report.ResumedCascades, folder.ID)
			}
			continue
		}

		repaired, err := s.RepairFolderCounts(ctx, p, folder.ID)
		if err != nil {
			return nil, fmt.Errorf("repair counts of %s: %w", folder.ID, err)
		}
		if repaired.FolderCount != folder.FolderCount ||
			repaired.FileCount != folder.FileCount ||
			repaired.TotalSize != folder.TotalSize {
			report.RepairedFolders = append(report.RepairedFolders, folder.ID)
		}
	}

	before, err := s.usageRepo.Get(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	after, err := s.usageRepo.Recompute(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	report.UsageDriftBefore = before.StorageUsed - after
	report.RecomputedUsage = after

	s.logger.Info("repair pass complete",
		"owner_id", p.UserID,
		"orphans", len(report.OrphanedFolders),
		"resumed_cascades", len(report.ResumedCascades),
		"repaired_counts", len(report.RepairedFolders),
		"usage_drift", report.UsageDriftBefore,
	)
	return report, nil
}

// rehomeOrphan moves a folder whose parent row no longer exists to root
// level
func (s *maintenanceService) rehomeOrphan(ctx context.Context, folderID string) error {
	return s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		folder, err := s.folderRepo.GetByIDForUpdate(ctx, folderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		folder.ParentID = nil
		folder.Path = models.RootPath
		folder.UpdatedAt = time.Now()
		if err := s.folderRepo.Update(ctx, folder); err != nil {
			return err
		}
		return s.propagatePathsFrom(ctx, folder)
	})
}

// propagatePathsFrom pushes the folder's path prefix down the subtree
func (s *maintenanceService) propagatePathsFrom(ctx context.Context, root *models.Folder) error {
	queue := []models.Folder{*root}
	visited := map[string]bool{root.ID: true}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		children, err := s.folderRepo.ListChildren(ctx, &current.ID, current.OwnerID, true)
		if err != nil {
			return err
		}
		prefix := current.ChildPrefix()
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			if child.Path != prefix {
				if err := s.folderRepo.UpdatePath(ctx, child.ID, prefix); err != nil {
					return err
				}
				child.Path = prefix
			}
			queue = append(queue, child)
		}
	}
	return nil
}

// resumeTrashCascade re-drives a trash cascade that stopped partway: a
// trashed folder must have no live descendants and no live direct files
func (s *maintenanceService) resumeTrashCascade(ctx context.Context, root *models.Folder) (bool, error) {
	resumed := false

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		queue := []models.Folder{*root}
		visited := map[string]bool{root.ID: true}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			if !current.IsTrash {
				if err := s.folderRepo.SetTrash(ctx, current.ID, true); err != nil {
					return err
				}
				resumed = true
			}

			files, err := s.fileRepo.ListByFolder(ctx, &current.ID, current.OwnerID, false)
			if err != nil {
				return err
			}
			now := time.Now()
			for i := range files {
				file := &files[i]
				if file.Status != models.StatusActive {
					continue
				}
				file.Status = models.StatusDeleted
				file.DeletedAt = &now
				file.UpdatedAt = now
				if err := s.fileRepo.Update(ctx, file); err != nil {
					return err
				}
				resumed = true
			}

			children, err := s.folderRepo.ListChildren(ctx, &current.ID, current.OwnerID, true)
			if err != nil {
				return err
			}
			for _, child := range children {
				if visited[child.ID] {
					continue
				}
				visited[child.ID] = true
				queue = append(queue, child)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return resumed, nil
}
