package drive

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"skyvault/internal/config"
	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	driveRepo "skyvault/internal/domain/repositories/drive"
)

// ResourceValidator centralizes the checks every mutation runs before
// touching state: parent resolution, trash validation and sibling name
// uniqueness. All validation errors surface before any mutation is applied.
type ResourceValidator struct {
	folderRepo driveRepo.FolderRepository
	fileRepo   driveRepo.FileRepository
}

// NewResourceValidator creates a new resource validator
func NewResourceValidator(folderRepo driveRepo.FolderRepository, fileRepo driveRepo.FileRepository) *ResourceValidator {
	return &ResourceValidator{folderRepo: folderRepo, fileRepo: fileRepo}
}

// validateName enforces the shared naming rules for folders and files
func validateName(name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.RuneLength(1, config.MaxNameLength),
		validation.By(func(value interface{}) error {
			s, _ := value.(string)
			for _, r := range s {
				if r == '/' {
					return errors.New("must not contain '/'")
				}
			}
			return nil
		}),
	)
	if err != nil {
		return &domain.ValidationError{Message: fmt.Sprintf("invalid name: %v", err)}
	}
	return nil
}

// ResolveParent normalizes the parent reference and loads the parent folder.
// Returns (nil, nil) for the canonical root. A trashed parent is treated as
// absent: nothing can be created inside trash.
func (v *ResourceValidator) ResolveParent(ctx context.Context, parentID *string) (*models.Folder, error) {
	parentID = models.NormalizeParentID(parentID)
	if parentID == nil {
		return nil, nil
	}

	parent, err := v.folderRepo.GetByID(ctx, *parentID)
	if err != nil {
		return nil, err
	}
	if parent.IsTrash {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %s is in trash", parent.ID)}
	}
	return parent, nil
}

// EnsureFolderName verifies no live sibling folder shares the name,
// excluding excludeID (for renames). Comparison is case-sensitive.
func (v *ResourceValidator) EnsureFolderName(ctx context.Context, parentID *string, ownerID, name, excludeID string) error {
	siblings, err := v.folderRepo.ListChildren(ctx, models.NormalizeParentID(parentID), ownerID, false)
	if err != nil {
		return fmt.Errorf("check sibling folder names: %w", err)
	}
	for _, sibling := range siblings {
		if sibling.Name == name && sibling.ID != excludeID {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", name),
				ResourceType: "folder",
				ResourceID:   sibling.ID,
			}
		}
	}
	return nil
}

// EnsureFileName verifies no live sibling file shares the name, excluding
// excludeID
func (v *ResourceValidator) EnsureFileName(ctx context.Context, folderID *string, ownerID, name, excludeID string) error {
	siblings, err := v.fileRepo.ListByFolder(ctx, models.NormalizeParentID(folderID), ownerID, false)
	if err != nil {
		return fmt.Errorf("check sibling file names: %w", err)
	}
	for _, sibling := range siblings {
		if sibling.Name == name && sibling.ID != excludeID {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a file named %q already exists in this location", name),
				ResourceType: "file",
				ResourceID:   sibling.ID,
			}
		}
	}
	return nil
}

// pathUnder returns the materialized path of an entity placed under the
// given parent (nil = root)
func pathUnder(parent *models.Folder) string {
	if parent == nil {
		return models.RootPath
	}
	return parent.ChildPrefix()
}
