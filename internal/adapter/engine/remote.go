package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xiaot623/gogo/simulator/internal/domain"
)

// SSE event names emitted by a remote engine.
const (
	RemoteEventInteraction = "interaction"
	RemoteEventProgress    = "progress"
	RemoteEventDone        = "done"
	RemoteEventError       = "error"
)

// SSEEvent represents a parsed SSE event.
type SSEEvent struct {
	Event string
	Data  string
}

// RemoteProgress is the data of a progress event.
type RemoteProgress struct {
	Step  int `json:"step"`
	Total int `json:"total"`
}

// RemoteDone is the data of a done event.
type RemoteDone struct {
	Summary       string         `json:"summary,omitempty"`
	ExtractedData map[string]any `json:"extracted_data,omitempty"`
}

// RemoteError is the data of an error event.
type RemoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RemoteEngine delegates execution to an HTTP service that streams SSE events.
type RemoteEngine struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteEngine creates a remote engine. A zero timeout means no client timeout.
func NewRemoteEngine(baseURL string, timeout time.Duration) *RemoteEngine {
	return &RemoteEngine{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the engine name.
func (e *RemoteEngine) Name() string { return "remote" }

// Execute posts the request to {baseURL}/simulate and folds the stream into a result.
func (e *RemoteEngine) Execute(ctx context.Context, req Request, progress ProgressFunc) (*domain.SimulationResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/simulate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("X-Simulation-ID", req.SimulationID)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("engine returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	result := &domain.SimulationResult{Interactions: []domain.InteractionMessage{}}
	done := false
	err = parseSSE(resp.Body, func(event SSEEvent) error {
		if done {
			return nil
		}
		switch event.Event {
		case RemoteEventInteraction:
			var msg domain.InteractionMessage
			if err := json.Unmarshal([]byte(event.Data), &msg); err != nil {
				return fmt.Errorf("failed to parse interaction event: %w", err)
			}
			result.Interactions = append(result.Interactions, msg)
		case RemoteEventProgress:
			var p RemoteProgress
			if err := json.Unmarshal([]byte(event.Data), &p); err != nil {
				return fmt.Errorf("failed to parse progress event: %w", err)
			}
			reportProgress(progress, p.Step, p.Total)
		case RemoteEventDone:
			var d RemoteDone
			if event.Data != "" {
				if err := json.Unmarshal([]byte(event.Data), &d); err != nil {
					return fmt.Errorf("failed to parse done event: %w", err)
				}
			}
			result.Summary = d.Summary
			result.ExtractedData = d.ExtractedData
			done = true
		case RemoteEventError:
			var re RemoteError
			if err := json.Unmarshal([]byte(event.Data), &re); err != nil || re.Message == "" {
				return fmt.Errorf("engine error: %s", event.Data)
			}
			if re.Code != "" {
				return fmt.Errorf("engine error %s: %s", re.Code, re.Message)
			}
			return fmt.Errorf("engine error: %s", re.Message)
		}
		// Unknown events are ignored.
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("engine stream ended without done event")
	}
	return result, nil
}

// parseSSE parses an SSE stream and calls the handler for each event.
func parseSSE(reader io.Reader, handler func(SSEEvent) error) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var event SSEEvent
	for scanner.Scan() {
		line := scanner.Text()

		// Empty line marks end of event
		if line == "" {
			if event.Event != "" || event.Data != "" {
				if err := handler(event); err != nil {
					return err
				}
				event = SSEEvent{}
			}
			continue
		}

		if strings.HasPrefix(line, "event:") {
			event.Event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		} else if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if event.Data != "" {
				event.Data += "\n" + data
			} else {
				event.Data = data
			}
		}
	}

	if event.Event != "" || event.Data != "" {
		if err := handler(event); err != nil {
			return err
		}
	}
	return scanner.Err()
}
