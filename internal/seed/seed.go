// Package seed loads the embedded demo fixture and applies it through the
// service layer, so seeded data passes the same validation, counting and
// lifecycle rules as real traffic.
package seed

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	models "skyvault/internal/domain/models/drive"
	driveSvc "skyvault/internal/domain/services/drive"
)

//go:embed fixtures/*.yaml
var fixtureFiles embed.FS

// FileFixture is one seeded file with inline content
type FileFixture struct {
	Name     string `yaml:"name"`
	MimeType string `yaml:"mime_type"`
	Content  string `yaml:"content"`
}

// FolderFixture is one seeded folder and its nested children
type FolderFixture struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Color       string          `yaml:"color"`
	Tags        []string        `yaml:"tags"`
	Folders     []FolderFixture `yaml:"folders"`
	Files       []FileFixture   `yaml:"files"`
}

// Fixture is the embedded demo tree
type Fixture struct {
	Folders []FolderFixture `yaml:"folders"`
	Files   []FileFixture   `yaml:"files"`
}

// Load parses the embedded demo fixture
func Load() (*Fixture, error) {
	data, err := fixtureFiles.ReadFile("fixtures/demo.yaml")
	if err != nil {
		return nil, fmt.Errorf("read demo fixture: %w", err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal demo fixture: %w", err)
	}
	return &f, nil
}

// Seeder applies fixtures through the folder and file services
type Seeder struct {
	folders driveSvc.FolderService
	files   driveSvc.FileService
	store   *LocalObjectStore
	logger  *slog.Logger
}

// NewSeeder creates a fixture seeder
func NewSeeder(folders driveSvc.FolderService, files driveSvc.FileService, store *LocalObjectStore, logger *slog.Logger) *Seeder {
	return &Seeder{folders: folders, files: files, store: store, logger: logger}
}

// Apply creates the fixture tree for the given owner. Folders are created
// top-down over an explicit stack; each file runs the full upload flow.
func (s *Seeder) Apply(ctx context.Context, ownerID string, fixture *Fixture) error {
	p := models.Principal{UserID: ownerID}

	type frame struct {
		fixture  FolderFixture
		parentID *string
	}
	var stack []frame
	for _, f := range fixture.Folders {
		stack = append(stack, frame{fixture: f})
	}

	if err := s.applyFiles(ctx, p, nil, fixture.Files); err != nil {
		return err
	}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		folder, err := s.folders.CreateFolder(ctx, &driveSvc.CreateFolderRequest{
			Principal:   p,
			ParentID:    current.parentID,
			Name:        current.fixture.Name,
			Description: current.fixture.Description,
			Color:       current.fixture.Color,
			Tags:        current.fixture.Tags,
		})
		if err != nil {
			return fmt.Errorf("create folder %q: %w", current.fixture.Name, err)
		}
		s.logger.Info("seeded folder", "name", folder.Name, "path", folder.Path)

		if err := s.applyFiles(ctx, p, &folder.ID, current.fixture.Files); err != nil {
			return err
		}
		for _, child := range current.fixture.Folders {
			stack = append(stack, frame{fixture: child, parentID: &folder.ID})
		}
	}
	return nil
}

// applyFiles runs the two-step upload flow for each fixture file
func (s *Seeder) applyFiles(ctx context.Context, p models.Principal, folderID *string, files []FileFixture) error {
	for _, fixture := range files {
		size := int64(len(fixture.Content))
		file, err := s.files.CreateFile(ctx, &driveSvc.CreateFileRequest{
			Principal: p,
			FolderID:  folderID,
			Name:      fixture.Name,
			Size:      size,
			MimeType:  fixture.MimeType,
		})
		if err != nil {
			return fmt.Errorf("create file %q: %w", fixture.Name, err)
		}

		loc, err := s.store.Put(ctx, file.ID, strings.NewReader(fixture.Content), fixture.MimeType)
		if err != nil {
			return fmt.Errorf("store file %q: %w", fixture.Name, err)
		}

		if _, err := s.files.CompleteUpload(ctx, p, file.ID, &driveSvc.UploadResult{
			Locator:  loc,
			Size:     size,
			MimeType: fixture.MimeType,
		}); err != nil {
			return fmt.Errorf("complete file %q: %w", fixture.Name, err)
		}
		s.logger.Info("seeded file", "name", fixture.Name, "size", size)
	}
	return nil
}
