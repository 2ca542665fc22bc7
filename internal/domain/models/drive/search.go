package drive

import "time"

// SearchScope restricts a search to one entity type or both.
type SearchScope string

const (
	ScopeAll     SearchScope = "all"
	ScopeFolders SearchScope = "folders"
	ScopeFiles   SearchScope = "files"
)

// SearchOptions configures a subtree search. FolderID nil means search the
// caller's whole visible tree.
type SearchOptions struct {
	Query    string
	FolderID *string
	Scope    SearchScope
	Limit    int
	Offset   int
}

// ApplyDefaults fills zero values with sensible defaults.
func (o *SearchOptions) ApplyDefaults() {
	if o.Scope == "" {
		o.Scope = ScopeAll
	}
	if o.Limit <= 0 {
		o.Limit = 50
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
}

// SearchResultType discriminates merged search hits.
type SearchResultType string

const (
	ResultFolder SearchResultType = "folder"
	ResultFile   SearchResultType = "file"
)

// SearchResult is one hit in the merged folder+file result set.
type SearchResult struct {
	Type      SearchResultType `json:"type"`
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Path      string           `json:"path,omitempty"`
	Size      int64            `json:"size"`
	MimeType  string           `json:"mime_type,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// SearchResponse carries one page of the merged, sorted result set.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}
