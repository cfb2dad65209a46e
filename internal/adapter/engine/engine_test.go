package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/gogo/simulator/internal/config"
	"github.com/xiaot623/gogo/simulator/internal/domain"
)

func testRequest(steps int) Request {
	return Request{
		SimulationID: "sim1",
		Name:         "Launch review",
		Agents: []domain.Agent{
			{ID: "a1", Type: domain.DefaultAgentType, Persona: domain.Persona{Name: "Lisa"}},
			{ID: "a2", Type: domain.DefaultAgentType, Persona: domain.Persona{Name: "Oscar"}},
		},
		Config: domain.SimulationConfig{
			Steps:           steps,
			InitialPrompt:   "What do you think about the new phone?",
			EnvironmentType: domain.EnvironmentFocusGroup,
		},
	}
}

type progressRecorder struct {
	mu    sync.Mutex
	steps []int
}

func (p *progressRecorder) record(step, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, step)
}

func TestMockEngineDeterministic(t *testing.T) {
	e := NewMockEngine()
	var rec progressRecorder

	result, err := e.Execute(context.Background(), testRequest(3), rec.record)
	require.NoError(t, err)
	assert.Len(t, result.Interactions, 6)
	assert.Equal(t, "Simulation completed with 3 steps", result.Summary)
	assert.Equal(t, 3, result.ExtractedData["steps"])
	assert.Equal(t, 2, result.ExtractedData["agents"])
	assert.Equal(t, "focus_group", result.ExtractedData["environment"])
	assert.Equal(t, []int{1, 2, 3}, rec.steps)
	assert.Equal(t, "a1", result.Interactions[0].AgentID)
	assert.Contains(t, result.Interactions[0].Content, "new phone")
	for _, m := range result.Interactions {
		assert.Equal(t, domain.MessageTypeTalk, m.MessageType)
	}
}

func TestMockEngineHonoursCancellation(t *testing.T) {
	e := &MockEngine{StepDelay: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Execute(ctx, testRequest(3), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockEngineRejectsEmptyAgents(t *testing.T) {
	req := testRequest(1)
	req.Agents = nil
	_, err := NewMockEngine().Execute(context.Background(), req, nil)
	assert.Error(t, err)
}

type fakeCompleter struct {
	calls   int32
	fail    error
	mu      sync.Mutex
	prompts []string
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	name := strings.TrimSuffix(strings.TrimPrefix(strings.SplitN(system, "\n", 2)[0], "You are "), ".")
	return fmt.Sprintf("  %s speaking  ", name), nil
}

func TestConversationEngineSequential(t *testing.T) {
	c := &fakeCompleter{}
	e := NewConversationEngine(c, nil)
	var rec progressRecorder

	req := testRequest(2)
	result, err := e.Execute(context.Background(), req, rec.record)
	require.NoError(t, err)
	require.Len(t, result.Interactions, 4)
	assert.Equal(t, int32(4), atomic.LoadInt32(&c.calls))
	assert.Equal(t, "Lisa speaking", result.Interactions[0].Content)
	assert.Equal(t, "Oscar", result.Interactions[1].AgentName)
	assert.Equal(t, []int{1, 2}, rec.steps)

	// The second agent sees the first agent's reply in the same step.
	assert.Contains(t, c.prompts[1], "Lisa: Lisa speaking")
	assert.Contains(t, c.prompts[0], "Someone says to you: What do you think about the new phone?")
}

func TestConversationEngineParallelKeepsAgentOrder(t *testing.T) {
	c := &fakeCompleter{}
	e := NewConversationEngine(c, nil)

	req := testRequest(3)
	req.Config.ParallelActions = true
	result, err := e.Execute(context.Background(), req, nil)
	require.NoError(t, err)
	require.Len(t, result.Interactions, 6)
	for i, m := range result.Interactions {
		assert.Equal(t, req.Agents[i%2].ID, m.AgentID)
	}
}

func TestConversationEngineCache(t *testing.T) {
	c := &fakeCompleter{}
	e := NewConversationEngine(c, nil)
	req := testRequest(1)
	cache := &completionCache{entries: make(map[string]string)}

	first, err := e.turn(context.Background(), req, 0, 1, nil, cache)
	require.NoError(t, err)
	second, err := e.turn(context.Background(), req, 0, 1, nil, cache)
	require.NoError(t, err)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, int32(1), atomic.LoadInt32(&c.calls))

	_, err = e.turn(context.Background(), req, 0, 1, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&c.calls), "nil cache never memoizes")
}

func TestConversationEngineFailure(t *testing.T) {
	c := &fakeCompleter{fail: errors.New("rate limited")}
	e := NewConversationEngine(c, nil)

	_, err := e.Execute(context.Background(), testRequest(2), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.Contains(t, err.Error(), "step 1")
}

func TestSystemPromptRendersPersona(t *testing.T) {
	age := 29
	agent := domain.Agent{ID: "a1", Persona: domain.Persona{
		Name:        "Lisa",
		Age:         &age,
		Occupation:  &domain.Occupation{Title: "engineer", Organization: "Acme"},
		Personality: &domain.PersonalityTraits{Traits: []string{"curious", "direct"}},
	}}
	p := systemPrompt(testRequest(1), agent)
	assert.Contains(t, p, "You are Lisa.")
	assert.Contains(t, p, "29 years old")
	assert.Contains(t, p, "engineer at Acme")
	assert.Contains(t, p, "curious, direct")
	assert.Contains(t, p, "focus group")
}

func sseServer(t *testing.T, body string, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simulate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "sim1", r.Header.Get("X-Simulation-ID"))
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteEngineStream(t *testing.T) {
	body := strings.Join([]string{
		"event: interaction",
		`data: {"timestamp":"2024-01-01T00:00:00Z","agent_id":"a1","agent_name":"Lisa","message_type":"TALK","content":"hi"}`,
		"",
		"event: progress",
		`data: {"step":1,"total":2}`,
		"",
		": keepalive comment",
		"event: interaction",
		`data: {"timestamp":"2024-01-01T00:00:01Z","agent_id":"a2","agent_name":"Oscar","message_type":"TALK","content":"hello"}`,
		"",
		"event: progress",
		`data: {"step":2,"total":2}`,
		"",
		"event: done",
		`data: {"summary":"ok","extracted_data":{"mood":"positive"}}`,
		"",
	}, "\n")
	srv := sseServer(t, body, http.StatusOK)

	var rec progressRecorder
	result, err := NewRemoteEngine(srv.URL+"/", 0).Execute(context.Background(), testRequest(2), rec.record)
	require.NoError(t, err)
	require.Len(t, result.Interactions, 2)
	assert.Equal(t, "hello", result.Interactions[1].Content)
	assert.Equal(t, "ok", result.Summary)
	assert.Equal(t, "positive", result.ExtractedData["mood"])
	assert.Equal(t, []int{1, 2}, rec.steps)
}

func TestRemoteEngineErrorEvent(t *testing.T) {
	srv := sseServer(t, "event: error\ndata: {\"code\":\"ENGINE_FAILED\",\"message\":\"model overloaded\"}\n\n", http.StatusOK)
	_, err := NewRemoteEngine(srv.URL, 0).Execute(context.Background(), testRequest(1), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model overloaded")
}

func TestRemoteEngineMissingDone(t *testing.T) {
	srv := sseServer(t, "event: progress\ndata: {\"step\":1,\"total\":1}\n\n", http.StatusOK)
	_, err := NewRemoteEngine(srv.URL, 0).Execute(context.Background(), testRequest(1), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without done")
}

func TestRemoteEngineBadStatus(t *testing.T) {
	srv := sseServer(t, "boom", http.StatusInternalServerError)
	_, err := NewRemoteEngine(srv.URL, 0).Execute(context.Background(), testRequest(1), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestParseSSEMultilineData(t *testing.T) {
	var events []SSEEvent
	err := parseSSE(strings.NewReader("event: x\ndata: a\ndata: b\n\nevent: y\ndata: c"), func(e SSEEvent) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a\nb", events[0].Data)
	assert.Equal(t, "y", events[1].Event)
}

func TestNewSelectsProvider(t *testing.T) {
	cases := []struct {
		cfg     config.Config
		name    string
		wantErr bool
	}{
		{cfg: config.Config{EngineProvider: config.ProviderMock}, name: "mock"},
		{cfg: config.Config{EngineProvider: config.ProviderRemote, EngineURL: "http://engine"}, name: "remote"},
		{cfg: config.Config{EngineProvider: config.ProviderRemote}, wantErr: true},
		{cfg: config.Config{EngineProvider: config.ProviderOpenAI, LLMAPIKey: "k"}, name: "conversation/openai"},
		{cfg: config.Config{EngineProvider: config.ProviderAnthropic, LLMAPIKey: "k"}, name: "conversation/anthropic"},
		{cfg: config.Config{EngineProvider: config.ProviderOpenAI}, wantErr: true},
		{cfg: config.Config{EngineProvider: "bogus"}, wantErr: true},
	}
	for _, tc := range cases {
		cfg := tc.cfg
		e, err := New(&cfg, nil)
		if tc.wantErr {
			assert.Error(t, err, "provider %q", cfg.EngineProvider)
			continue
		}
		require.NoError(t, err, "provider %q", cfg.EngineProvider)
		assert.Equal(t, tc.name, e.Name())
	}
}
