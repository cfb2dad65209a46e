package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/xiaot623/gogo/simulator/internal/adapter/engine"
	"github.com/xiaot623/gogo/simulator/internal/config"
	"github.com/xiaot623/gogo/simulator/internal/domain"
	"github.com/xiaot623/gogo/simulator/internal/repository"
	"github.com/xiaot623/gogo/simulator/internal/service"
	"github.com/xiaot623/gogo/simulator/policy"
	"github.com/xiaot623/gogo/simulator/tests/helpers"
)

func newTestHandler(t *testing.T) (*Handler, *service.Service, store.Store) {
	t.Helper()
	cfg := &config.Config{
		AppName:                "OptimusSim",
		AppVersion:             "0.1.0",
		EngineProvider:         config.ProviderMock,
		SimulationsDir:         t.TempDir(),
		MaxAgentsPerSimulation: 20,
	}
	db := helpers.NewTestSQLiteStore(t)
	sims := helpers.NewTestFileStore(t)
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	svc := service.New(sims, db, engine.NewMockEngine(), cfg, policyEngine)
	return NewHandler(svc, cfg, nil), svc, db
}

func doRequest(t *testing.T, method, target, body string, params map[string]string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for name, value := range params {
		c.SetParamNames(name)
		c.SetParamValues(value)
	}
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func createSimulation(t *testing.T, h *Handler, body string) *domain.Simulation {
	t.Helper()
	rec := doRequest(t, http.MethodPost, "/api/simulations", body, nil, h.CreateSimulation)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var sim domain.Simulation
	if err := json.Unmarshal(rec.Body.Bytes(), &sim); err != nil {
		t.Fatalf("decode simulation: %v", err)
	}
	return &sim
}

func TestCreateSimulationAppliesDefaults(t *testing.T) {
	h, _, _ := newTestHandler(t)

	sim := createSimulation(t, h, `{"name":"demo","agent_ids":["a1"],"config":{"initial_prompt":"hello there"}}`)
	if sim.Status != domain.SimulationStatusPending {
		t.Fatalf("expected pending, got %s", sim.Status)
	}
	if sim.Config.Steps != domain.DefaultSteps {
		t.Fatalf("expected default steps, got %d", sim.Config.Steps)
	}
	if sim.Config.EnvironmentType != domain.EnvironmentChatRoom {
		t.Fatalf("expected chat_room, got %s", sim.Config.EnvironmentType)
	}
	if !sim.Config.ParallelActions || sim.Config.CacheEnabled {
		t.Fatalf("unexpected defaults: %+v", sim.Config)
	}
}

func TestCreateSimulationKeepsExplicitFalse(t *testing.T) {
	h, _, _ := newTestHandler(t)

	sim := createSimulation(t, h, `{"name":"demo","agent_ids":["a1"],"config":{"steps":2,"initial_prompt":"hello","parallel_actions":false,"cache_enabled":true,"environment_type":"interview"}}`)
	if sim.Config.Steps != 2 || sim.Config.ParallelActions || !sim.Config.CacheEnabled {
		t.Fatalf("unexpected config: %+v", sim.Config)
	}
	if sim.Config.EnvironmentType != domain.EnvironmentInterview {
		t.Fatalf("expected interview, got %s", sim.Config.EnvironmentType)
	}
}

func TestCreateSimulationErrors(t *testing.T) {
	h, _, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"name":`, http.StatusBadRequest},
		{"missing name", `{"agent_ids":["a1"],"config":{"initial_prompt":"hi"}}`, http.StatusBadRequest},
		{"steps out of range", `{"name":"x","agent_ids":["a1"],"config":{"steps":0,"initial_prompt":"hi"}}`, http.StatusBadRequest},
		{"duplicate agents", `{"name":"x","agent_ids":["a1","a1"],"config":{"initial_prompt":"hi"}}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, http.MethodPost, "/api/simulations", tt.body, nil, h.CreateSimulation)
			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestSimulationLifecycleOverHTTP(t *testing.T) {
	h, svc, db := newTestHandler(t)
	helpers.SeedAgents(t, db, "a1", "a2")

	sim := createSimulation(t, h, `{"name":"demo","agent_ids":["a1","a2"],"config":{"steps":3,"initial_prompt":"hello"}}`)
	params := map[string]string{"id": sim.ID}

	rec := doRequest(t, http.MethodGet, "/api/simulations/"+sim.ID+"/results", "", params, h.GetSimulationResults)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for pending results, got %d", rec.Code)
	}

	rec = doRequest(t, http.MethodPost, "/api/simulations/"+sim.ID+"/start", "", params, h.StartSimulation)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var started domain.Simulation
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if started.Status != domain.SimulationStatusRunning {
		t.Fatalf("expected running, got %s", started.Status)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := svc.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}

	rec = doRequest(t, http.MethodPost, "/api/simulations/"+sim.ID+"/start", "", params, h.StartSimulation)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on restart, got %d", rec.Code)
	}

	rec = doRequest(t, http.MethodGet, "/api/simulations/"+sim.ID+"/status", "", params, h.GetSimulationStatus)
	var view domain.SimulationStatusView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Status != domain.SimulationStatusCompleted || view.Progress == nil || *view.Progress != 100 {
		t.Fatalf("unexpected status view: %+v", view)
	}

	rec = doRequest(t, http.MethodGet, "/api/simulations/"+sim.ID+"/results", "", params, h.GetSimulationResults)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var done domain.Simulation
	if err := json.Unmarshal(rec.Body.Bytes(), &done); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if done.Result == nil || len(done.Result.Interactions) != 6 {
		t.Fatalf("expected 6 interactions, got %+v", done.Result)
	}

	rec = doRequest(t, http.MethodGet, "/api/simulations/"+sim.ID+"/events?types=simulation_completed", "", params, h.GetSimulationEvents)
	var events struct {
		Events []domain.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events.Events) != 1 || events.Events[0].Type != domain.EventTypeSimulationCompleted {
		t.Fatalf("unexpected events: %+v", events.Events)
	}
}

func TestSimulationNotFound(t *testing.T) {
	h, _, _ := newTestHandler(t)
	params := map[string]string{"id": "missing"}

	for name, handler := range map[string]echo.HandlerFunc{
		"get":     h.GetSimulation,
		"start":   h.StartSimulation,
		"status":  h.GetSimulationStatus,
		"results": h.GetSimulationResults,
		"delete":  h.DeleteSimulation,
		"events":  h.GetSimulationEvents,
	} {
		rec := doRequest(t, http.MethodGet, "/api/simulations/missing", "", params, handler)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", name, rec.Code)
		}
	}
}

func TestListAndDeleteSimulations(t *testing.T) {
	h, _, _ := newTestHandler(t)
	sim := createSimulation(t, h, `{"name":"demo","agent_ids":["a1"],"config":{"initial_prompt":"hello"}}`)

	rec := doRequest(t, http.MethodGet, "/api/simulations", "", nil, h.ListSimulations)
	var list struct {
		Simulations []domain.Simulation `json:"simulations"`
		Total       int                 `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 1 || list.Simulations[0].ID != sim.ID {
		t.Fatalf("unexpected list: %+v", list)
	}

	rec = doRequest(t, http.MethodDelete, "/api/simulations/"+sim.ID, "", map[string]string{"id": sim.ID}, h.DeleteSimulation)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = doRequest(t, http.MethodGet, "/api/simulations/"+sim.ID+"/events", "", map[string]string{"id": sim.ID}, h.GetSimulationEvents)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for deleted simulation trail, got %d", rec.Code)
	}
	var events struct {
		Events []domain.Event `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events.Events) == 0 || events.Events[len(events.Events)-1].Type != domain.EventTypeSimulationDeleted {
		t.Fatalf("unexpected events: %+v", events.Events)
	}
}

func TestAgentEndpoints(t *testing.T) {
	h, _, _ := newTestHandler(t)

	rec := doRequest(t, http.MethodPost, "/api/agents", `{"persona":{"name":"Lisa","occupation":{"title":"Data scientist"}}}`, nil, h.CreateAgent)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var agent domain.Agent
	if err := json.Unmarshal(rec.Body.Bytes(), &agent); err != nil {
		t.Fatalf("decode: %v", err)
	}
	params := map[string]string{"id": agent.ID}

	rec = doRequest(t, http.MethodPut, "/api/agents/"+agent.ID, `{"persona":{"name":"Lisa Carter"}}`, params, h.UpdateAgent)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, http.MethodGet, "/api/agents", "", nil, h.ListAgents)
	var list struct {
		Agents []domain.Agent `json:"agents"`
		Total  int            `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 1 || list.Agents[0].Persona.Name != "Lisa Carter" {
		t.Fatalf("unexpected agents: %+v", list)
	}

	rec = doRequest(t, http.MethodDelete, "/api/agents/"+agent.ID, "", params, h.DeleteAgent)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, http.MethodGet, "/api/agents/"+agent.ID, "", params, h.GetAgent)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = doRequest(t, http.MethodPost, "/api/agents", `{"persona":{}}`, nil, h.CreateAgent)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRootReportsEngine(t *testing.T) {
	h, _, _ := newTestHandler(t)
	rec := doRequest(t, http.MethodGet, "/", "", nil, h.Root)
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["engine"] != "mock" || body["engine_configured"] != true {
		t.Fatalf("unexpected root body: %+v", body)
	}
}
