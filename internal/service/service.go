package service

import (
	"context"
	"sync"
	"time"

	"github.com/xiaot623/gogo/simulator/internal/adapter/engine"
	"github.com/xiaot623/gogo/simulator/internal/config"
	"github.com/xiaot623/gogo/simulator/internal/logging"
	"github.com/xiaot623/gogo/simulator/internal/registry"
	"github.com/xiaot623/gogo/simulator/internal/repository"
	"github.com/xiaot623/gogo/simulator/policy"
)

// Notifier pushes live updates for a simulation to subscribers.
type Notifier interface {
	PublishJSON(simulationID string, v interface{}) error
}

type Service struct {
	simulations  store.SimulationStore
	store        store.Store
	engine       engine.Engine
	registry     *registry.Registry
	notifier     Notifier
	config       *config.Config
	policyEngine *policy.Engine
	logger       *logging.Logger
	now          func() time.Time

	// startMu serializes the PENDING check and the RUNNING write of Start.
	startMu sync.Mutex
}

// Option customizes a Service.
type Option func(*Service)

// WithRegistry sets the lifecycle registry. Defaults to a fresh registry.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Service) { s.registry = r }
}

// WithNotifier sets the live update notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(simulations store.SimulationStore, st store.Store, eng engine.Engine, cfg *config.Config, policyEngine *policy.Engine, opts ...Option) *Service {
	s := &Service{
		simulations:  simulations,
		store:        st,
		engine:       eng,
		config:       cfg,
		policyEngine: policyEngine,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = registry.New()
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.config == nil {
		s.config = &config.Config{}
	}
	s.logger = s.logger.WithComponent("runner")
	return s
}

// Registry returns the lifecycle registry used by the service.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// EngineName returns the name of the configured simulation engine.
func (s *Service) EngineName() string {
	if s.engine == nil {
		return ""
	}
	return s.engine.Name()
}

// Wait blocks until every in-flight execution has finished or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	return s.registry.Wait(ctx)
}
