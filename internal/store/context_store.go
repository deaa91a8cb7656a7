// Package store persists company contexts, one JSON collection file per
// workspace. Reads of missing or corrupt files yield an empty collection so
// storage damage never crashes a request.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"pitchforge/internal/models"
)

// ErrEmptyCompanyName is returned when a save carries no company name.
var ErrEmptyCompanyName = errors.New("company name is required")

// ImportFallbackName is used when an imported record carries no usable name.
const ImportFallbackName = "Imported Context"

// ContextStore handles CRUD for per-workspace context collections.
// Every operation takes the caller's workspace id; an empty id makes the
// operation a no-op returning empty results.
type ContextStore struct {
	baseDir string
	locks   sync.Map // workspaceID -> *sync.Mutex
	now     func() time.Time
}

// NewContextStore creates a store rooted at baseDir, creating it if needed.
func NewContextStore(baseDir string) *ContextStore {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		log.Printf("⚠️  [STORE] Could not create contexts directory %s: %v", baseDir, err)
	}
	return &ContextStore{
		baseDir: baseDir,
		now:     time.Now,
	}
}

// filePath returns the collection file for a workspace.
func (s *ContextStore) filePath(workspaceID string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("contexts_%s.json", workspaceID))
}

// lock returns the mutex serializing writes to one workspace's file.
func (s *ContextStore) lock(workspaceID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(workspaceID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// load reads a workspace's collection. Missing or unreadable files are an
// empty collection, never an error.
func (s *ContextStore) load(workspaceID string) *models.ContextCollection {
	collection := &models.ContextCollection{}
	if workspaceID == "" {
		return collection
	}

	data, err := os.ReadFile(s.filePath(workspaceID))
	if err != nil {
		return collection
	}

	if err := json.Unmarshal(data, collection); err != nil {
		log.Printf("⚠️  [STORE] Corrupt collection file for workspace %s, treating as empty: %v", workspaceID, err)
		return &models.ContextCollection{}
	}

	return collection
}

// persist writes the whole collection via temp file + rename so a crashed
// write never leaves a half-written collection behind.
func (s *ContextStore) persist(workspaceID string, collection *models.ContextCollection) error {
	data, err := json.MarshalIndent(collection, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}

	target := s.filePath(workspaceID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write collection: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace collection: %w", err)
	}
	return nil
}

// List returns all context names for the workspace in persisted order.
func (s *ContextStore) List(workspaceID string) []string {
	if workspaceID == "" {
		return nil
	}
	return s.load(workspaceID).Names()
}

// Get returns one context by name, or nil when absent.
func (s *ContextStore) Get(workspaceID, name string) *models.CompanyContext {
	if workspaceID == "" {
		return nil
	}
	return s.load(workspaceID).Get(name)
}

// Save upserts a context. A record saved under an existing name replaces it
// in place; a new name is appended. Created is preserved across overwrites
// and LastUpdated is stamped on every save.
func (s *ContextStore) Save(workspaceID, name, info string) (*models.CompanyContext, error) {
	if workspaceID == "" {
		return nil, nil
	}
	if name == "" {
		return nil, ErrEmptyCompanyName
	}

	mu := s.lock(workspaceID)
	mu.Lock()
	defer mu.Unlock()

	collection := s.load(workspaceID)
	now := s.now()

	record := models.CompanyContext{
		CompanyName: name,
		CompanyInfo: info,
		Created:     now,
		LastUpdated: now,
	}
	if existing := collection.Get(name); existing != nil && !existing.Created.IsZero() {
		record.Created = existing.Created
	}

	collection.Upsert(record)
	if err := s.persist(workspaceID, collection); err != nil {
		return nil, err
	}

	log.Printf("💾 [STORE] Saved context %q (workspace %s, %d total)", name, workspaceID, collection.Len())
	return &record, nil
}

// Delete removes a context if present. Deleting a missing name is not an
// error.
func (s *ContextStore) Delete(workspaceID, name string) error {
	if workspaceID == "" {
		return nil
	}

	mu := s.lock(workspaceID)
	mu.Lock()
	defer mu.Unlock()

	collection := s.load(workspaceID)
	if !collection.Remove(name) {
		return nil
	}
	return s.persist(workspaceID, collection)
}

// Export serializes one context as pretty-printed JSON suitable for
// round-tripping through Import. The second return is false when the
// context does not exist.
func (s *ContextStore) Export(workspaceID, name string) (string, bool) {
	record := s.Get(workspaceID, name)
	if record == nil {
		return "", false
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Import parses an exported record and saves it. The context name is the
// explicit name when given, else the record's own company name, else
// ImportFallbackName. Parse failures write nothing.
func (s *ContextStore) Import(workspaceID, serialized, explicitName string) (string, error) {
	if workspaceID == "" {
		return "", nil
	}

	var record models.CompanyContext
	if err := json.Unmarshal([]byte(serialized), &record); err != nil {
		return "", fmt.Errorf("failed to parse context data: %w", err)
	}

	name := explicitName
	if name == "" {
		name = record.CompanyName
	}
	if name == "" {
		name = ImportFallbackName
	}

	if _, err := s.Save(workspaceID, name, record.CompanyInfo); err != nil {
		return "", err
	}
	return name, nil
}
