// Package engine provides the Simulation Engine implementations that turn a
// resolved agent set and a SimulationConfig into a SimulationResult.
package engine

import (
	"context"
	"fmt"

	"github.com/xiaot623/gogo/simulator/internal/config"
	"github.com/xiaot623/gogo/simulator/internal/domain"
	"github.com/xiaot623/gogo/simulator/internal/logging"
)

// ProgressFunc is called after each completed step.
type ProgressFunc func(step, total int)

// Request is the input of one engine execution.
type Request struct {
	SimulationID string                  `json:"simulation_id"`
	Name         string                  `json:"name"`
	Agents       []domain.Agent          `json:"agents"`
	Config       domain.SimulationConfig `json:"config"`
}

// Engine executes a simulation. Implementations must be safe for concurrent use.
type Engine interface {
	Execute(ctx context.Context, req Request, progress ProgressFunc) (*domain.SimulationResult, error)
	Name() string
}

func reportProgress(progress ProgressFunc, step, total int) {
	if progress != nil {
		progress(step, total)
	}
}

func validateRequest(req Request) error {
	if len(req.Agents) == 0 {
		return fmt.Errorf("no agents to simulate")
	}
	if req.Config.Steps < 0 {
		return fmt.Errorf("invalid step count %d", req.Config.Steps)
	}
	return nil
}

// New creates an engine based on configuration.
func New(cfg *config.Config, logger *logging.Logger) (Engine, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.WithComponent("engine")

	switch cfg.EngineProvider {
	case config.ProviderMock, "":
		return NewMockEngine(), nil
	case config.ProviderRemote:
		if cfg.EngineURL == "" {
			return nil, fmt.Errorf("ENGINE_URL is required for the remote engine")
		}
		return NewRemoteEngine(cfg.EngineURL, cfg.EngineTimeout), nil
	case config.ProviderOpenAI:
		if cfg.LLMAPIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for the openai engine")
		}
		completer := NewOpenAICompleter(OpenAIOptions{
			APIKey:      cfg.LLMAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   int64(cfg.LLMMaxTokens),
		})
		return NewConversationEngine(completer, logger), nil
	case config.ProviderAnthropic:
		if cfg.LLMAPIKey == "" {
			return nil, fmt.Errorf("LLM_API_KEY is required for the anthropic engine")
		}
		completer := NewAnthropicCompleter(AnthropicOptions{
			APIKey:      cfg.LLMAPIKey,
			BaseURL:     cfg.LLMBaseURL,
			Model:       cfg.LLMModel,
			Temperature: cfg.LLMTemperature,
			MaxTokens:   int64(cfg.LLMMaxTokens),
		})
		return NewConversationEngine(completer, logger), nil
	default:
		return nil, fmt.Errorf("unsupported engine provider: %s", cfg.EngineProvider)
	}
}
