package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/simulator/internal/domain"
)

func TestAgentCRUD(t *testing.T) {
	env := newTestEnv(t, &stubEngine{})
	ctx := context.Background()

	agents, err := env.svc.ListAgents(ctx)
	require.NoError(t, err)
	assert.NotNil(t, agents)
	assert.Empty(t, agents)

	created, err := env.svc.CreateAgent(ctx, domain.CreateAgentRequest{
		Persona: domain.Persona{Name: "  Lisa  ", Age: intPtr(28), Nationality: "Canadian"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.DefaultAgentType, created.Type)
	assert.Equal(t, "Lisa", created.Persona.Name)

	got, err := env.svc.GetAgent(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Persona.Age)
	assert.Equal(t, 28, *got.Persona.Age)
	assert.Equal(t, "Canadian", got.Persona.Nationality)

	updated, err := env.svc.UpdateAgent(ctx, created.ID, domain.UpdateAgentRequest{
		Persona: &domain.Persona{Name: "Lisa Carter", Age: intPtr(29)},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lisa Carter", updated.Persona.Name)
	assert.Equal(t, 29, *updated.Persona.Age)

	agents, err = env.svc.ListAgents(ctx)
	require.NoError(t, err)
	assert.Len(t, agents, 1)

	deleted, err := env.svc.DeleteAgent(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = env.svc.GetAgent(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = env.svc.ResolveAgent(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCreateAgentRequiresName(t *testing.T) {
	env := newTestEnv(t, &stubEngine{})
	_, err := env.svc.CreateAgent(context.Background(), domain.CreateAgentRequest{Persona: domain.Persona{Name: " "}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpdateUnknownAgent(t *testing.T) {
	env := newTestEnv(t, &stubEngine{})
	_, err := env.svc.UpdateAgent(context.Background(), "missing", domain.UpdateAgentRequest{
		Persona: &domain.Persona{Name: "x"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
