package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xiaot623/gogo/simulator/internal/domain"
	"github.com/xiaot623/gogo/simulator/internal/logging"
)

const recordExt = ".json"

// FileStore implements SimulationStore with one JSON file per simulation.
// Each write goes to a temp file in the same directory and is renamed over
// the record, so readers never observe a partial record.
type FileStore struct {
	dir    string
	logger *logging.Logger

	// mu serializes mutations so Replace's existence check and its rename
	// cannot interleave with Delete.
	mu sync.Mutex
}

// NewFileStore creates the directory if needed and returns a store rooted at it.
func NewFileStore(dir string, logger *logging.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("simulations directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create simulations directory: %w", err)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &FileStore{dir: dir, logger: logger.WithComponent("store")}, nil
}

// Dir returns the root directory of the store.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, id+recordExt), nil
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty simulation id", domain.ErrInvalidInput)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." || strings.HasPrefix(id, ".") {
		return fmt.Errorf("%w: invalid simulation id %q", domain.ErrInvalidInput, id)
	}
	return nil
}

// Put writes the full record, creating or overwriting it.
func (s *FileStore) Put(ctx context.Context, sim *domain.Simulation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(sim)
}

// Replace overwrites an existing record. It returns domain.ErrNotFound when
// the record no longer exists.
func (s *FileStore) Replace(ctx context.Context, sim *domain.Simulation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(sim.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("simulation %s: %w", sim.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to stat simulation %s: %w", sim.ID, err)
	}
	return s.write(sim)
}

func (s *FileStore) write(sim *domain.Simulation) error {
	if sim == nil {
		return fmt.Errorf("%w: nil simulation", domain.ErrInvalidInput)
	}
	p, err := s.path(sim.ID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(sim, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode simulation %s: %w", sim.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+sim.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("failed to write simulation %s: %w", sim.ID, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync simulation %s: %w", sim.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close simulation %s: %w", sim.ID, err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to persist simulation %s: %w", sim.ID, err)
	}
	return nil
}

// Get reads a record. It returns nil, nil when the record does not exist.
func (s *FileStore) Get(ctx context.Context, id string) (*domain.Simulation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	sim, err := readRecord(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load simulation %s: %w", id, err)
	}
	return sim, nil
}

// Delete removes a record and reports whether it existed.
func (s *FileStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete simulation %s: %w", id, err)
	}
	return true, nil
}

// List returns every readable record, newest first. Records that cannot be
// read or parsed are logged and skipped.
func (s *FileStore) List(ctx context.Context) ([]*domain.Simulation, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}

	sims := make([]*domain.Simulation, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != recordExt {
			continue
		}
		sim, err := readRecord(filepath.Join(s.dir, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			s.logger.Warn("skipping unreadable simulation record", "file", name, "error", err)
			continue
		}
		if sim.ID != strings.TrimSuffix(name, recordExt) {
			s.logger.Warn("skipping simulation record with mismatched id", "file", name, "simulation_id", sim.ID)
			continue
		}
		sims = append(sims, sim)
	}

	sort.SliceStable(sims, func(i, j int) bool {
		if sims[i].CreatedAt.Equal(sims[j].CreatedAt) {
			return sims[i].ID > sims[j].ID
		}
		return sims[i].CreatedAt.After(sims[j].CreatedAt)
	})
	return sims, nil
}

func readRecord(path string) (*domain.Simulation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sim domain.Simulation
	if err := json.Unmarshal(data, &sim); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	if sim.ID == "" || !sim.Status.Valid() {
		return nil, fmt.Errorf("invalid simulation record %s", filepath.Base(path))
	}
	return &sim, nil
}
