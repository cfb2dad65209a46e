package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/gogo/simulator/internal/domain"
	"github.com/xiaot623/gogo/simulator/internal/logging"
)

// Completer produces one reply for a system prompt and a rendered transcript.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
	Name() string
}

// ConversationEngine runs a turn-based conversation between agents, backed
// by an LLM Completer. The initial prompt is delivered to the first agent.
type ConversationEngine struct {
	completer Completer
	logger    *logging.Logger
	now       func() time.Time
}

// NewConversationEngine creates a conversation engine over completer.
func NewConversationEngine(completer Completer, logger *logging.Logger) *ConversationEngine {
	if logger == nil {
		logger = logging.Nop()
	}
	return &ConversationEngine{completer: completer, logger: logger, now: time.Now}
}

// Name returns the engine name.
func (e *ConversationEngine) Name() string { return "conversation/" + e.completer.Name() }

// completionCache memoizes completions for one run.
type completionCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func (c *completionCache) get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *completionCache) put(key, value string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Execute runs the conversation for the configured number of steps.
func (e *ConversationEngine) Execute(ctx context.Context, req Request, progress ProgressFunc) (*domain.SimulationResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var cache *completionCache
	if req.Config.CacheEnabled {
		cache = &completionCache{entries: make(map[string]string)}
	}
	logger := e.logger.With("simulation_id", req.SimulationID)

	var transcript []domain.InteractionMessage
	steps := req.Config.Steps
	for step := 1; step <= steps; step++ {
		var turns []domain.InteractionMessage
		var err error
		if req.Config.ParallelActions {
			turns, err = e.parallelStep(ctx, req, step, transcript, cache)
		} else {
			turns, err = e.sequentialStep(ctx, req, step, transcript, cache)
		}
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
		transcript = append(transcript, turns...)
		logger.Debug("conversation step completed", "step", step, "turns", len(turns))
		reportProgress(progress, step, steps)
	}

	if transcript == nil {
		transcript = []domain.InteractionMessage{}
	}
	return &domain.SimulationResult{
		Interactions: transcript,
		Summary:      fmt.Sprintf("Simulation completed with %d steps", steps),
		ExtractedData: map[string]any{
			"steps":        steps,
			"agents":       len(req.Agents),
			"environment":  string(req.Config.EnvironmentType),
			"interactions": len(transcript),
			"completer":    e.completer.Name(),
		},
	}, nil
}

func (e *ConversationEngine) sequentialStep(ctx context.Context, req Request, step int, transcript []domain.InteractionMessage, cache *completionCache) ([]domain.InteractionMessage, error) {
	turns := make([]domain.InteractionMessage, 0, len(req.Agents))
	for i := range req.Agents {
		visible := append(append([]domain.InteractionMessage(nil), transcript...), turns...)
		msg, err := e.turn(ctx, req, i, step, visible, cache)
		if err != nil {
			return nil, err
		}
		turns = append(turns, msg)
	}
	return turns, nil
}

// parallelStep lets every agent act against the same transcript snapshot.
func (e *ConversationEngine) parallelStep(ctx context.Context, req Request, step int, transcript []domain.InteractionMessage, cache *completionCache) ([]domain.InteractionMessage, error) {
	turns := make([]domain.InteractionMessage, len(req.Agents))
	g, gctx := errgroup.WithContext(ctx)
	for i := range req.Agents {
		g.Go(func() error {
			msg, err := e.turn(gctx, req, i, step, transcript, cache)
			if err != nil {
				return err
			}
			turns[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return turns, nil
}

func (e *ConversationEngine) turn(ctx context.Context, req Request, idx, step int, transcript []domain.InteractionMessage, cache *completionCache) (domain.InteractionMessage, error) {
	agent := req.Agents[idx]
	system := systemPrompt(req, agent)
	prompt := renderTranscript(req, idx, step, transcript)

	key := system + "\x00" + prompt
	reply, ok := cache.get(key)
	if !ok {
		var err error
		reply, err = e.completer.Complete(ctx, system, prompt)
		if err != nil {
			return domain.InteractionMessage{}, fmt.Errorf("agent %s: %w", agent.ID, err)
		}
		reply = strings.TrimSpace(reply)
		cache.put(key, reply)
	}

	return domain.InteractionMessage{
		Timestamp:   e.now().UTC(),
		AgentID:     agent.ID,
		AgentName:   agent.Persona.Name,
		MessageType: domain.MessageTypeTalk,
		Content:     reply,
	}, nil
}

func environmentFraming(env domain.EnvironmentType) string {
	switch env {
	case domain.EnvironmentFocusGroup:
		return "You are taking part in a moderated focus group. Give honest opinions and react to the other participants."
	case domain.EnvironmentInterview:
		return "You are taking part in an interview. Answer questions and ask for clarification when needed."
	case domain.EnvironmentCustom:
		return "You are taking part in a custom scenario described by the first message."
	default:
		return "You are chatting with other people in a shared chat room."
	}
}

func systemPrompt(req Request, agent domain.Agent) string {
	p := agent.Persona
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", p.Name)
	if p.Age != nil {
		fmt.Fprintf(&b, " You are %d years old.", *p.Age)
	}
	if p.Gender != "" {
		fmt.Fprintf(&b, " Gender: %s.", p.Gender)
	}
	if p.Nationality != "" {
		fmt.Fprintf(&b, " Nationality: %s.", p.Nationality)
	}
	if p.Residence != "" {
		fmt.Fprintf(&b, " You live in %s.", p.Residence)
	}
	if p.Education != "" {
		fmt.Fprintf(&b, " Education: %s.", p.Education)
	}
	if p.Occupation != nil {
		fmt.Fprintf(&b, " You work as %s", p.Occupation.Title)
		if p.Occupation.Organization != "" {
			fmt.Fprintf(&b, " at %s", p.Occupation.Organization)
		}
		b.WriteString(".")
		if p.Occupation.Description != "" {
			fmt.Fprintf(&b, " %s", p.Occupation.Description)
		}
	}
	if p.Style != "" {
		fmt.Fprintf(&b, " Your communication style: %s.", p.Style)
	}
	if p.Personality != nil && len(p.Personality.Traits) > 0 {
		fmt.Fprintf(&b, " Personality traits: %s.", strings.Join(p.Personality.Traits, ", "))
	}
	if len(p.Beliefs) > 0 {
		fmt.Fprintf(&b, " Beliefs: %s.", strings.Join(p.Beliefs, "; "))
	}
	if len(p.LongTermGoals) > 0 {
		fmt.Fprintf(&b, " Goals: %s.", strings.Join(p.LongTermGoals, "; "))
	}
	if p.Preferences != nil && len(p.Preferences.Interests) > 0 {
		fmt.Fprintf(&b, " Interests: %s.", strings.Join(p.Preferences.Interests, ", "))
	}
	b.WriteString("\n")
	b.WriteString(environmentFraming(req.Config.EnvironmentType))
	if req.Name != "" {
		fmt.Fprintf(&b, " The setting is called %q.", req.Name)
	}
	b.WriteString(" Stay in character and reply with one short message.")
	return b.String()
}

func renderTranscript(req Request, idx, step int, transcript []domain.InteractionMessage) string {
	var b strings.Builder
	agent := req.Agents[idx]
	if idx == 0 {
		fmt.Fprintf(&b, "Someone says to you: %s\n", req.Config.InitialPrompt)
	} else {
		fmt.Fprintf(&b, "The conversation started with %s being told: %s\n", req.Agents[0].Persona.Name, req.Config.InitialPrompt)
	}
	if len(transcript) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, m := range transcript {
			fmt.Fprintf(&b, "%s: %s\n", m.AgentName, m.Content)
		}
	}
	fmt.Fprintf(&b, "\nStep %d of %d. What does %s say next?", step, req.Config.Steps, agent.Persona.Name)
	return b.String()
}
