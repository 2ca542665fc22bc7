package drive

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	driveRepo "skyvault/internal/domain/repositories/drive"
	"skyvault/internal/domain/services"
	driveSvc "skyvault/internal/domain/services/drive"
)

type searchService struct {
	folderRepo driveRepo.FolderRepository
	fileRepo   driveRepo.FileRepository
	access     services.AccessResolver
	logger     *slog.Logger
}

// NewSearchService creates the subtree search service
func NewSearchService(
	folderRepo driveRepo.FolderRepository,
	fileRepo driveRepo.FileRepository,
	access services.AccessResolver,
	logger *slog.Logger,
) driveSvc.SearchService {
	return &searchService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		access:     access,
		logger:     logger,
	}
}

// Search matches name/description/tag substrings case-insensitively,
// restricted to resources the principal can at least view. Folder-scoped
// searches walk the subtree iteratively; visibility inside a searchable
// subtree is inherited from its root.
func (s *searchService) Search(ctx context.Context, p models.Principal, opts *models.SearchOptions) (*models.SearchResponse, error) {
	opts.ApplyDefaults()
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return nil, &domain.ValidationError{Message: "search query is required"}
	}

	var (
		folders []models.Folder
		files   []models.File
		err     error
	)
	if opts.FolderID != nil {
		folders, files, err = s.searchSubtree(ctx, p, *opts.FolderID, query)
	} else {
		folders, files, err = s.searchVisible(ctx, p, query)
	}
	if err != nil {
		return nil, err
	}

	var results []models.SearchResult
	if opts.Scope != models.ScopeFiles {
		for _, f := range folders {
			results = append(results, models.SearchResult{
				Type:      models.ResultFolder,
				ID:        f.ID,
				Name:      f.Name,
				Path:      f.Path,
				Size:      f.TotalSize,
				UpdatedAt: f.UpdatedAt,
			})
		}
	}
	if opts.Scope != models.ScopeFolders {
		for _, f := range files {
			results = append(results, models.SearchResult{
				Type:      models.ResultFile,
				ID:        f.ID,
				Name:      f.Name,
				Size:      f.Size,
				MimeType:  f.MimeType,
				UpdatedAt: f.UpdatedAt,
			})
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Name != results[j].Name {
			return strings.ToLower(results[i].Name) < strings.ToLower(results[j].Name)
		}
		return results[i].ID < results[j].ID
	})

	total := len(results)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	return &models.SearchResponse{Results: results[start:end], Total: total}, nil
}

// searchVisible searches everything the caller owns or holds a grant on.
// The repository prefilters by visibility; the resolver re-checks each hit
// so a stale grant row can never leak a result.
func (s *searchService) searchVisible(ctx context.Context, p models.Principal, query string) ([]models.Folder, []models.File, error) {
	folderHits, err := s.folderRepo.Search(ctx, p.UserID, query)
	if err != nil {
		return nil, nil, err
	}
	fileHits, err := s.fileRepo.Search(ctx, p.UserID, query)
	if err != nil {
		return nil, nil, err
	}

	var folders []models.Folder
	for _, f := range folderHits {
		folder := f
		if s.access.Check(&folder, p, models.PermissionView) {
			folders = append(folders, folder)
		}
	}
	var files []models.File
	for _, f := range fileHits {
		file := f
		if file.Live() && s.access.Check(&file, p, models.PermissionView) {
			files = append(files, file)
		}
	}
	return folders, files, nil
}

// searchSubtree restricts the search to one folder's subtree. The subtree is
// collected breadth-first over an explicit queue; work is linear in the node
// count regardless of nesting depth.
func (s *searchService) searchSubtree(ctx context.Context, p models.Principal, rootID, query string) ([]models.Folder, []models.File, error) {
	root, err := s.folderRepo.GetByID(ctx, rootID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.access.Require(root, p, models.PermissionView); err != nil {
		return nil, nil, err
	}

	var (
		folderIDs []string
		folders   []models.Folder
	)
	queue := []models.Folder{*root}
	visited := map[string]bool{root.ID: true}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		folderIDs = append(folderIDs, current.ID)

		children, err := s.folderRepo.ListChildren(ctx, &current.ID, current.OwnerID, false)
		if err != nil {
			return nil, nil, err
		}
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			if child.ID != root.ID && matchesFolder(&child, query) {
				folders = append(folders, child)
			}
			queue = append(queue, child)
		}
	}

	files, err := s.fileRepo.SearchInFolders(ctx, folderIDs, query)
	if err != nil {
		return nil, nil, err
	}
	live := files[:0]
	for _, f := range files {
		if f.Live() {
			live = append(live, f)
		}
	}
	return folders, live, nil
}

// matchesFolder applies the case-insensitive substring match over name,
// description and tags, mirroring the repository-side predicate
func matchesFolder(f *models.Folder, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(f.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(f.Description), q) {
		return true
	}
	for _, tag := range f.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
