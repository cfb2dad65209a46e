package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"sync"

	"github.com/xiaot623/gogo/simulator/internal/domain"
	"github.com/xiaot623/gogo/simulator/internal/logging"
)

// ServiceName is the name under which the handler is registered.
const ServiceName = "Simulator"

// Lifecycle is the subset of the simulation service exposed over RPC.
type Lifecycle interface {
	StartSimulation(ctx context.Context, id string) (*domain.Simulation, error)
	GetStatus(ctx context.Context, id string) (*domain.SimulationStatusView, error)
	GetSimulation(ctx context.Context, id string) (*domain.Simulation, error)
}

// Server exposes internal RPC endpoints for control-plane clients.
type Server struct {
	mu        sync.Mutex
	listener  net.Listener
	rpcServer *rpc.Server
	logger    *logging.Logger
	done      chan struct{}
}

// NewServer creates a new RPC server bound to the simulation service.
func NewServer(svc Lifecycle, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	rpcServer := rpc.NewServer()
	handler := &Handler{service: svc}
	if err := rpcServer.RegisterName(ServiceName, handler); err != nil {
		return nil, fmt.Errorf("register rpc handler: %w", err)
	}

	return &Server{
		rpcServer: rpcServer,
		logger:    logger.WithComponent("rpc"),
		done:      make(chan struct{}),
	}, nil
}

// Start begins accepting RPC connections on the given address.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts RPC connections on ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				close(s.done)
				return nil
			}
			s.logger.Warn("rpc accept error", "error", err)
			continue
		}

		go s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(conn))
	}
}

// Shutdown stops accepting new RPC connections.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}

	if err := ln.Close(); err != nil {
		return err
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler implements simulator RPC methods.
type Handler struct {
	service Lifecycle
}

// SimulationRequest identifies a simulation.
type SimulationRequest struct {
	SimulationID string `json:"simulation_id"`
}

func (r *SimulationRequest) validate() error {
	if r == nil {
		return errors.New("request is required")
	}
	if r.SimulationID == "" {
		return errors.New("simulation_id is required")
	}
	return nil
}

// Start launches a PENDING simulation.
func (h *Handler) Start(req *SimulationRequest, resp *domain.Simulation) error {
	if err := req.validate(); err != nil {
		return err
	}

	sim, err := h.service.StartSimulation(context.Background(), req.SimulationID)
	if err != nil {
		return err
	}
	if resp != nil {
		*resp = *sim
	}
	return nil
}

// GetStatus returns the projected status of a simulation.
func (h *Handler) GetStatus(req *SimulationRequest, resp *domain.SimulationStatusView) error {
	if err := req.validate(); err != nil {
		return err
	}

	view, err := h.service.GetStatus(context.Background(), req.SimulationID)
	if err != nil {
		return err
	}
	if resp != nil {
		*resp = *view
	}
	return nil
}

// Get returns the full simulation record.
func (h *Handler) Get(req *SimulationRequest, resp *domain.Simulation) error {
	if err := req.validate(); err != nil {
		return err
	}

	sim, err := h.service.GetSimulation(context.Background(), req.SimulationID)
	if err != nil {
		return err
	}
	if resp != nil {
		*resp = *sim
	}
	return nil
}
