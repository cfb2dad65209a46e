package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/xiaot623/gogo/simulator/internal/domain"
	"github.com/xiaot623/gogo/simulator/internal/logging"
	"github.com/xiaot623/gogo/simulator/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// NewTestFileStore returns a simulation store rooted in a per-test temp dir.
func NewTestFileStore(t *testing.T) *store.FileStore {
	t.Helper()

	s, err := store.NewFileStore(t.TempDir(), logging.Nop())
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}
	return s
}

// SeedAgents inserts agents with the given ids, each named after its id.
func SeedAgents(t *testing.T, s store.AgentStore, ids ...string) {
	t.Helper()

	now := time.Now().UTC()
	for _, id := range ids {
		agent := &domain.Agent{
			ID:        id,
			Type:      domain.DefaultAgentType,
			Persona:   domain.Persona{Name: "Agent " + id},
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.CreateAgent(context.Background(), agent); err != nil {
			t.Fatalf("failed to seed agent %s: %v", id, err)
		}
	}
}
