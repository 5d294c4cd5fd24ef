package calculator

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/domain"
)

// Service is the bound calculator service. It is created when the first
// client binds and destroyed when the last one unbinds.
type Service struct {
	logger *slog.Logger

	// callMu serializes operations across all connections
	callMu sync.Mutex

	mu          sync.Mutex
	state       domain.ServiceState
	connections map[uuid.UUID]*Connection
}

// NewService creates a Service with no connections.
func NewService(logger *slog.Logger) *Service {
	return &Service{
		logger:      logger.With("component", "calculator_service"),
		state:       domain.ServiceStopped,
		connections: make(map[uuid.UUID]*Connection),
	}
}

// Bind creates a new bound Connection.
func (s *Service) Bind(ctx context.Context) (*Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn := &Connection{
		id:      uuid.New(),
		service: s,
		state:   StateBinding,
	}

	s.mu.Lock()
	if len(s.connections) == 0 {
		s.state = domain.ServiceCreated
		s.logger.Info("calculator service created")
	}
	s.connections[conn.id] = conn
	s.state = domain.ServiceRunning
	s.mu.Unlock()

	conn.setState(StateBound)
	s.logger.Info("client bound to service", "connection_id", conn.id)
	return conn, nil
}

// Connection returns the live connection with id.
func (s *Service) Connection(id uuid.UUID) (*Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.connections[id]
	return conn, ok
}

// ConnectionCount returns the number of live connections.
func (s *Service) ConnectionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.connections)
}

// State returns the service lifecycle state.
func (s *Service) State() domain.ServiceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close unbinds every live connection.
func (s *Service) Close() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for _, c := range s.connections {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Unbind()
	}
}

func (s *Service) release(conn *Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.connections, conn.id)
	s.logger.Info("client unbound from service", "connection_id", conn.id)

	if len(s.connections) == 0 {
		s.state = domain.ServiceStopped
		s.logger.Info("calculator service destroyed")
	}
}
