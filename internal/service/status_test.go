package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/simulator/internal/domain"
)

func TestProjectStatus(t *testing.T) {
	sim := func(status domain.SimulationStatus, steps int, progress *domain.Progress, errMsg string) *domain.Simulation {
		return &domain.Simulation{
			ID:       "s1",
			Status:   status,
			Config:   domain.SimulationConfig{Steps: steps},
			Progress: progress,
			Error:    errMsg,
		}
	}
	ptr := func(v int) *int { return &v }

	tests := []struct {
		name string
		sim  *domain.Simulation
		want domain.SimulationStatusView
	}{
		{
			name: "pending",
			sim:  sim(domain.SimulationStatusPending, 5, nil, ""),
			want: domain.SimulationStatusView{ID: "s1", Status: domain.SimulationStatusPending},
		},
		{
			name: "running without progress",
			sim:  sim(domain.SimulationStatusRunning, 5, nil, ""),
			want: domain.SimulationStatusView{ID: "s1", Status: domain.SimulationStatusRunning, Progress: ptr(0), CurrentStep: ptr(0), TotalSteps: ptr(5)},
		},
		{
			name: "running midway",
			sim:  sim(domain.SimulationStatusRunning, 4, &domain.Progress{CurrentStep: 3, TotalSteps: 4}, ""),
			want: domain.SimulationStatusView{ID: "s1", Status: domain.SimulationStatusRunning, Progress: ptr(75), CurrentStep: ptr(3), TotalSteps: ptr(4)},
		},
		{
			name: "running with zero steps",
			sim:  sim(domain.SimulationStatusRunning, 0, nil, ""),
			want: domain.SimulationStatusView{ID: "s1", Status: domain.SimulationStatusRunning, Progress: ptr(0), CurrentStep: ptr(0), TotalSteps: ptr(0)},
		},
		{
			name: "running progress clamped",
			sim:  sim(domain.SimulationStatusRunning, 2, &domain.Progress{CurrentStep: 9, TotalSteps: 2}, ""),
			want: domain.SimulationStatusView{ID: "s1", Status: domain.SimulationStatusRunning, Progress: ptr(100), CurrentStep: ptr(2), TotalSteps: ptr(2)},
		},
		{
			name: "completed",
			sim:  sim(domain.SimulationStatusCompleted, 3, &domain.Progress{CurrentStep: 3, TotalSteps: 3}, ""),
			want: domain.SimulationStatusView{ID: "s1", Status: domain.SimulationStatusCompleted, Progress: ptr(100), CurrentStep: ptr(3), TotalSteps: ptr(3)},
		},
		{
			name: "failed before any step",
			sim:  sim(domain.SimulationStatusFailed, 3, nil, "agent a2 not found"),
			want: domain.SimulationStatusView{ID: "s1", Status: domain.SimulationStatusFailed, Message: "agent a2 not found"},
		},
		{
			name: "failed midway",
			sim:  sim(domain.SimulationStatusFailed, 3, &domain.Progress{CurrentStep: 1, TotalSteps: 3}, "boom"),
			want: domain.SimulationStatusView{ID: "s1", Status: domain.SimulationStatusFailed, CurrentStep: ptr(1), TotalSteps: ptr(3), Message: "boom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, *ProjectStatus(tt.sim))
		})
	}
}

func TestGetStatusUnknown(t *testing.T) {
	env := newTestEnv(t, &stubEngine{})
	_, err := env.svc.GetStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetStatusPending(t *testing.T) {
	env := newTestEnv(t, &stubEngine{})
	sim, err := env.svc.CreateSimulation(context.Background(), validRequest("a1"))
	require.NoError(t, err)

	view, err := env.svc.GetStatus(context.Background(), sim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SimulationStatusPending, view.Status)
	assert.Nil(t, view.Progress)
}

func TestListEventsFilters(t *testing.T) {
	env := newTestEnv(t, &stubEngine{}, WithClock(func() time.Time {
		return time.UnixMilli(1_700_000_000_000)
	}))
	ctx := context.Background()

	sim, err := env.svc.CreateSimulation(ctx, validRequest("a1"))
	require.NoError(t, err)
	_, err = env.svc.DeleteSimulation(ctx, sim.ID)
	require.NoError(t, err)

	events, err := env.svc.ListEvents(ctx, sim.ID, 0, []string{string(domain.EventTypeSimulationDeleted)}, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventTypeSimulationDeleted, events[0].Type)

	_, err = env.svc.ListEvents(ctx, "unknown", 0, nil, 0)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	live, err := env.svc.CreateSimulation(ctx, validRequest("a1"))
	require.NoError(t, err)
	events, err = env.svc.ListEvents(ctx, live.ID, 0, []string{string(domain.EventTypeSimulationCompleted)}, 0)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}
