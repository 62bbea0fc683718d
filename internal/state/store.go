// Package state persists browser storage state (cookies and local storage)
// so a later session can resume as an already-authenticated user.
package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/shehryarbajwa/playwright-lab/internal/errs"
	"github.com/shehryarbajwa/playwright-lab/internal/jsonfile"
	"github.com/shehryarbajwa/playwright-lab/internal/obs"
	"github.com/shehryarbajwa/playwright-lab/pkg/models"
)

const metaSuffix = ".meta.json"

// Snapshotter writes a storage state file. playwright.BrowserContext
// satisfies it.
type Snapshotter interface {
	StorageState(path ...string) (*playwright.StorageState, error)
}

// Store keeps storage state metadata in memory and state files on disk.
type Store struct {
	states    sync.Map // stateID -> *models.StorageState
	storePath string
	mu        sync.Mutex
}

// NewStore creates the storage directory and registers any states a previous
// process left there.
func NewStore(storePath string) (*Store, error) {
	if err := os.MkdirAll(storePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	s := &Store{storePath: storePath}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) reload() error {
	matches, err := filepath.Glob(filepath.Join(s.storePath, "*"+metaSuffix))
	if err != nil {
		return err
	}

	log := obs.Pkg("state")
	for _, path := range matches {
		var meta models.StorageState
		if err := jsonfile.Read(path, &meta); err != nil {
			log.Warn("skipping unreadable state metadata", "path", path, "error", err)
			continue
		}
		if meta.ID == "" || strings.TrimSuffix(filepath.Base(path), metaSuffix) != meta.ID {
			log.Warn("skipping state metadata with mismatched id", "path", path)
			continue
		}
		m := meta
		s.states.Store(m.ID, &m)
	}
	return nil
}

// Create registers a new empty state for a project.
func (s *Store) Create(projectID string) (*models.StorageState, error) {
	if projectID == "" {
		return nil, errs.New(errs.InvalidArgument, "projectId is required")
	}

	now := time.Now().UTC()
	st := &models.StorageState{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.writeMeta(st); err != nil {
		return nil, err
	}
	s.states.Store(st.ID, st)

	return st, nil
}

// Get returns a copy of the state metadata.
func (s *Store) Get(id string) (*models.StorageState, error) {
	value, ok := s.states.Load(id)
	if !ok {
		return nil, errs.New(errs.NotFound, "storage state not found")
	}
	st := *value.(*models.StorageState)
	return &st, nil
}

// List returns states for a project, or all states when projectID is empty,
// oldest first.
func (s *Store) List(projectID string) []*models.StorageState {
	var out []*models.StorageState
	s.states.Range(func(_, value any) bool {
		st := value.(*models.StorageState)
		if projectID == "" || st.ProjectID == projectID {
			c := *st
			out = append(out, &c)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Path returns where the state file for id lives. The file only exists once
// Save has run; see HasData.
func (s *Store) Path(id string) string {
	return filepath.Join(s.storePath, id+".json")
}

// HasData reports whether a state file has been saved for id.
func (s *Store) HasData(id string) bool {
	st, err := s.Get(id)
	return err == nil && st.HasData
}

// Touch bumps UpdatedAt.
func (s *Store) Touch(id string) error {
	return s.update(id, func(st *models.StorageState) {})
}

// Save asks snap to write its storage state into the store and records how
// many cookies and origins it held.
func (s *Store) Save(id string, snap Snapshotter) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	result, err := snap.StorageState(s.Path(id))
	if err != nil {
		return fmt.Errorf("failed to snapshot storage state: %w", err)
	}

	return s.update(id, func(st *models.StorageState) {
		st.HasData = true
		if result != nil {
			st.Cookies = len(result.Cookies)
			st.Origins = len(result.Origins)
		}
	})
}

// Load reads the saved storage state for id.
func (s *Store) Load(id string) (*playwright.StorageState, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}

	var snapshot playwright.StorageState
	if err := jsonfile.Read(s.Path(id), &snapshot); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errs.New(errs.FailedPrecondition, "storage state has no saved data")
		}
		return nil, fmt.Errorf("failed to load storage state: %w", err)
	}
	return &snapshot, nil
}

// Delete removes a state and its files.
func (s *Store) Delete(id string) error {
	if _, err := s.Get(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range []string{s.Path(id), s.metaPath(id)} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete storage state: %w", err)
		}
	}
	s.states.Delete(id)

	return nil
}

func (s *Store) update(id string, fn func(*models.StorageState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.states.Load(id)
	if !ok {
		return errs.New(errs.NotFound, "storage state not found")
	}

	st := *value.(*models.StorageState)
	fn(&st)
	st.UpdatedAt = time.Now().UTC()

	if err := s.writeMeta(&st); err != nil {
		return err
	}
	s.states.Store(id, &st)
	return nil
}

func (s *Store) metaPath(id string) string {
	return filepath.Join(s.storePath, id+metaSuffix)
}

func (s *Store) writeMeta(st *models.StorageState) error {
	if err := jsonfile.Write(s.metaPath(st.ID), st); err != nil {
		return fmt.Errorf("failed to write state metadata: %w", err)
	}
	return nil
}
