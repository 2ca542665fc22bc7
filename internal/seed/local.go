package seed

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	models "skyvault/internal/domain/models/drive"
	"skyvault/internal/scanner"
	"skyvault/internal/storage"
)

// LocalObjectStore is an in-process ObjectStore for seeding and local
// development. Objects live in memory; locators carry the "local" provider
// so they are recognizable in seeded rows.
type LocalObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewLocalObjectStore creates an empty in-process object store
func NewLocalObjectStore() *LocalObjectStore {
	return &LocalObjectStore{objects: make(map[string][]byte)}
}

func (s *LocalObjectStore) Put(_ context.Context, key string, body io.Reader, _ string) (models.StorageLocator, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return models.StorageLocator{}, err
	}
	fullKey := string(storage.AreaActive) + "/" + key

	s.mu.Lock()
	s.objects[fullKey] = data
	s.mu.Unlock()

	return models.StorageLocator{
		Provider: "local",
		Bucket:   "seed",
		Key:      fullKey,
	}, nil
}

func (s *LocalObjectStore) Relocate(_ context.Context, loc models.StorageLocator, target storage.Area) (models.StorageLocator, error) {
	key := loc.Key
	if i := strings.Index(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	newKey := string(target) + "/" + key

	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[loc.Key]
	if !ok {
		return models.StorageLocator{}, fmt.Errorf("object %s not found", loc.Key)
	}
	delete(s.objects, loc.Key)
	s.objects[newKey] = data

	newLoc := loc
	newLoc.Key = newKey
	return newLoc, nil
}

func (s *LocalObjectStore) Delete(_ context.Context, loc models.StorageLocator) error {
	s.mu.Lock()
	delete(s.objects, loc.Key)
	s.mu.Unlock()
	return nil
}

func (s *LocalObjectStore) PresignedGetURL(_ context.Context, loc models.StorageLocator, _ time.Duration) (string, error) {
	return "local://" + loc.Bucket + "/" + loc.Key, nil
}

// CleanAssessor is a RiskAssessor that scores everything as low risk, so
// fixture files always activate
type CleanAssessor struct{}

func (CleanAssessor) Assess(_ context.Context, _ models.StorageLocator, _ scanner.FileInfo) (*models.RiskAssessment, error) {
	return &models.RiskAssessment{Score: 0, Level: "low", AssessedAt: time.Now()}, nil
}
