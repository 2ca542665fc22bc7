package drive

import (
	"context"
	"errors"
	"testing"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
)

func TestTree(t *testing.T) {
	ctx := context.Background()

	t.Run("nests folders and files", func(t *testing.T) {
		e := newEnv(t)
		docs := e.mustCreateFolder(t, owner(), nil, "Documents")
		reports := e.mustCreateFolder(t, owner(), &docs.ID, "Reports")
		e.mustCreateFolder(t, owner(), nil, "Photos")
		e.mustUploadFile(t, owner(), &reports.ID, "q1.pdf", 100)
		e.mustUploadFile(t, owner(), nil, "readme.txt", 10)

		tree, err := e.tree.Tree(ctx, owner())
		if err != nil {
			t.Fatalf("tree: %v", err)
		}

		if len(tree.Folders) != 2 {
			t.Fatalf("root folders = %d, want 2", len(tree.Folders))
		}
		// Siblings sorted by name
		if tree.Folders[0].Name != "Documents" || tree.Folders[1].Name != "Photos" {
			t.Errorf("root order = %q, %q", tree.Folders[0].Name, tree.Folders[1].Name)
		}

		gotDocs := tree.Folders[0]
		if len(gotDocs.Folders) != 1 || gotDocs.Folders[0].Name != "Reports" {
			t.Fatalf("documents children = %+v", gotDocs.Folders)
		}
		if len(gotDocs.Folders[0].Files) != 1 || gotDocs.Folders[0].Files[0].Name != "q1.pdf" {
			t.Errorf("reports files = %+v", gotDocs.Folders[0].Files)
		}
		if len(tree.Files) != 1 || tree.Files[0].Name != "readme.txt" {
			t.Errorf("root files = %+v", tree.Files)
		}
	})

	t.Run("skips trashed folders and deleted files", func(t *testing.T) {
		e := newEnv(t)
		keep := e.mustCreateFolder(t, owner(), nil, "Keep")
		gone := e.mustCreateFolder(t, owner(), nil, "Gone")
		if err := e.folders.DeleteFolder(ctx, owner(), gone.ID, false); err != nil {
			t.Fatalf("trash: %v", err)
		}
		file := e.mustUploadFile(t, owner(), &keep.ID, "doc.txt", 10)
		if err := e.files.DeleteFile(ctx, owner(), file.ID, false); err != nil {
			t.Fatalf("trash file: %v", err)
		}

		tree, err := e.tree.Tree(ctx, owner())
		if err != nil {
			t.Fatalf("tree: %v", err)
		}
		if len(tree.Folders) != 1 || tree.Folders[0].Name != "Keep" {
			t.Errorf("root folders = %+v, want only Keep", tree.Folders)
		}
		if len(tree.Folders[0].Files) != 0 {
			t.Errorf("keep files = %+v, want none", tree.Folders[0].Files)
		}
	})

	t.Run("orphans surface at root", func(t *testing.T) {
		e := newEnv(t)
		parent := e.mustCreateFolder(t, owner(), nil, "Parent")
		child := e.mustCreateFolder(t, owner(), &parent.ID, "Child")

		// Simulate a lost parent row
		missing := "folder-missing"
		e.folderRepo.mu.Lock()
		e.folderRepo.folders[child.ID].ParentID = &missing
		e.folderRepo.mu.Unlock()

		tree, err := e.tree.Tree(ctx, owner())
		if err != nil {
			t.Fatalf("tree: %v", err)
		}
		if len(tree.Folders) != 2 {
			t.Fatalf("root folders = %d, want orphan surfaced at root", len(tree.Folders))
		}
	})
}

func TestBreadcrumbs(t *testing.T) {
	ctx := context.Background()

	t.Run("root-first chain with synthetic head", func(t *testing.T) {
		e := newEnv(t)
		top := e.mustCreateFolder(t, owner(), nil, "Top")
		mid := e.mustCreateFolder(t, owner(), &top.ID, "Mid")
		leaf := e.mustCreateFolder(t, owner(), &mid.ID, "Leaf")

		crumbs, err := e.tree.Breadcrumbs(ctx, owner(), leaf.ID)
		if err != nil {
			t.Fatalf("breadcrumbs: %v", err)
		}
		wantNames := []string{"Root", "Top", "Mid", "Leaf"}
		if len(crumbs) != len(wantNames) {
			t.Fatalf("chain length = %d, want %d", len(crumbs), len(wantNames))
		}
		for i, want := range wantNames {
			if crumbs[i].Name != want {
				t.Errorf("crumb[%d] = %q, want %q", i, crumbs[i].Name, want)
			}
		}
		if crumbs[0].ID != nil || crumbs[0].Path != models.RootPath {
			t.Errorf("head = %+v, want the synthetic root", crumbs[0])
		}
		if crumbs[3].Path != "/Top/Mid/" {
			t.Errorf("leaf path = %q", crumbs[3].Path)
		}
	})

	t.Run("cycle in stored parents surfaces as inconsistent state", func(t *testing.T) {
		e := newEnv(t)
		a := e.mustCreateFolder(t, owner(), nil, "A")
		b := e.mustCreateFolder(t, owner(), &a.ID, "B")

		e.folderRepo.mu.Lock()
		e.folderRepo.folders[a.ID].ParentID = &b.ID
		e.folderRepo.mu.Unlock()

		_, err := e.tree.Breadcrumbs(ctx, owner(), b.ID)
		if !errors.Is(err, domain.ErrInconsistentState) {
			t.Errorf("err = %v, want ErrInconsistentState", err)
		}
	})

	t.Run("requires view", func(t *testing.T) {
		e := newEnv(t)
		folder := e.mustCreateFolder(t, owner(), nil, "Private")
		_, err := e.tree.Breadcrumbs(ctx, models.Principal{UserID: "user-stranger"}, folder.ID)
		if !errors.Is(err, domain.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})
}
