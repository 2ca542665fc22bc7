package drive

import (
	"context"

	"skyvault/internal/domain/models/drive"
)

// TreeService answers read-only structure queries. It takes no locks and
// tolerates slightly stale intermediate state.
type TreeService interface {
	// Tree builds the principal's full nested folder/file tree
	Tree(ctx context.Context, p drive.Principal) (*drive.Tree, error)

	// Breadcrumbs resolves the root-first ancestor chain of a folder,
	// headed by the synthetic root element
	Breadcrumbs(ctx context.Context, p drive.Principal, folderID string) ([]drive.Breadcrumb, error)
}

// SearchService performs subtree search over folders and files
type SearchService interface {
	// Search matches name/description/tag substrings case-insensitively,
	// restricted to resources the principal can at least view, and returns
	// one merged, sorted, paginated result set
	Search(ctx context.Context, p drive.Principal, opts *drive.SearchOptions) (*drive.SearchResponse, error)
}
