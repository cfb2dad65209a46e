// Package main provides a CLI client that starts a simulation and follows its
// live updates over the simulator WebSocket endpoint.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xiaot623/gogo/simulator/internal/domain"
)

// Client talks to a simulator over REST and WebSocket.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the simulator at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Start launches a PENDING simulation.
func (c *Client) Start(id string) (*domain.Simulation, error) {
	resp, err := c.http.Post(c.baseURL+"/api/simulations/"+id+"/start", "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	defer resp.Body.Close()

	var sim domain.Simulation
	if err := decodeResponse(resp, &sim); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return &sim, nil
}

// Results fetches a completed simulation.
func (c *Client) Results(id string) (*domain.Simulation, error) {
	resp, err := c.http.Get(c.baseURL + "/api/simulations/" + id + "/results")
	if err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}
	defer resp.Body.Close()

	var sim domain.Simulation
	if err := decodeResponse(resp, &sim); err != nil {
		return nil, fmt.Errorf("results: %w", err)
	}
	return &sim, nil
}

func decodeResponse(resp *http.Response, v interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, v)
}

// WebSocketURL returns the live update endpoint of simulation id.
func (c *Client) WebSocketURL(id string) string {
	u := c.baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/api/simulations/" + id + "/ws"
}

// Watch prints live updates until the simulation reaches a terminal status
// or done is closed. It returns the last status seen.
func (c *Client) Watch(id string, out io.Writer, done <-chan struct{}) (domain.SimulationStatus, error) {
	conn, _, err := websocket.DefaultDialer.Dial(c.WebSocketURL(id), nil)
	if err != nil {
		return "", fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	go func() {
		<-done
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	var last domain.SimulationStatus
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return last, nil
			}
			return last, fmt.Errorf("read: %w", err)
		}

		line, status, err := formatFrame(data)
		if err != nil {
			log.Printf("Unmarshal error: %v", err)
			continue
		}
		fmt.Fprintln(out, line)
		if status != "" {
			last = status
			if status.IsTerminal() {
				return last, nil
			}
		}
	}
}

// formatFrame renders one live frame. Status frames also return the status.
func formatFrame(data []byte) (string, domain.SimulationStatus, error) {
	var msg struct {
		Type         string          `json:"type"`
		SimulationID string          `json:"simulation_id"`
		Ts           int64           `json:"ts"`
		Data         json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return "", "", err
	}
	ts := time.UnixMilli(msg.Ts).Format(time.TimeOnly)

	switch msg.Type {
	case domain.LiveMessageStatus:
		var view domain.SimulationStatusView
		if err := json.Unmarshal(msg.Data, &view); err != nil {
			return "", "", err
		}
		line := fmt.Sprintf("[%s] status=%s", ts, view.Status)
		if view.CurrentStep != nil && view.TotalSteps != nil {
			line += fmt.Sprintf(" step=%d/%d", *view.CurrentStep, *view.TotalSteps)
		}
		if view.Progress != nil {
			line += fmt.Sprintf(" progress=%d%%", *view.Progress)
		}
		if view.Message != "" {
			line += " message=" + view.Message
		}
		return line, view.Status, nil
	case domain.LiveMessageEvent:
		var event domain.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return "", "", err
		}
		return fmt.Sprintf("[%s] event=%s %s", ts, event.Type, string(event.Payload)), "", nil
	default:
		return fmt.Sprintf("[%s] %s %s", ts, msg.Type, string(msg.Data)), "", nil
	}
}

func main() {
	addr := flag.String("addr", "http://localhost:8080", "Simulator base URL")
	start := flag.Bool("start", false, "Start the simulation before watching")
	flag.Parse()

	log.SetFlags(log.Ltime)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: cli [-addr URL] [-start] SIMULATION_ID")
		os.Exit(2)
	}
	id := flag.Arg(0)
	client := NewClient(*addr)

	if *start {
		sim, err := client.Start(id)
		if err != nil {
			log.Fatalf("Failed to start: %v", err)
		}
		fmt.Printf("Started %s (%s)\n", sim.Name, sim.ID)
	}

	// Handle Ctrl+C
	done := make(chan struct{})
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		close(done)
	}()

	status, err := client.Watch(id, os.Stdout, done)
	if err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		log.Fatalf("Watch failed: %v", err)
	}

	if status == domain.SimulationStatusCompleted {
		sim, err := client.Results(id)
		if err != nil {
			log.Fatalf("Failed to fetch results: %v", err)
		}
		fmt.Printf("\nCompleted with %d interactions\n", len(sim.Result.Interactions))
		if sim.Result.Summary != "" {
			fmt.Printf("Summary: %s\n", sim.Result.Summary)
		}
	}
}
