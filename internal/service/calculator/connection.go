package calculator

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/domain"
)

// ConnectionState is the lifecycle state of a client binding.
type ConnectionState string

// Connection states
const (
	StateUnbound   ConnectionState = "unbound"
	StateBinding   ConnectionState = "binding"
	StateBound     ConnectionState = "bound"
	StateUnbinding ConnectionState = "unbinding"
)

// Connection is one client's binding to the Service.
type Connection struct {
	id      uuid.UUID
	service *Service

	mu    sync.RWMutex
	state ConnectionState
}

// ID returns the connection identifier
func (c *Connection) ID() uuid.UUID {
	return c.id
}

// State returns the current connection state
func (c *Connection) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Connection) setState(state ConnectionState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
}

// Calculator returns the handle for calling the service through this
// connection.
func (c *Connection) Calculator() *Calculator {
	return &Calculator{conn: c}
}

// Unbind releases the connection. Calls through its Calculator fail with
// domain.ErrNotConnected afterwards. Unbinding twice is a no-op.
func (c *Connection) Unbind() {
	c.mu.Lock()
	if c.state != StateBound {
		c.mu.Unlock()
		return
	}
	c.state = StateUnbinding
	c.mu.Unlock()

	c.service.release(c)
	c.setState(StateUnbound)
}

// Calculator is the handle returned at bind time.
type Calculator struct {
	conn *Connection
}

// Add returns a + b
func (c *Calculator) Add(a, b int) (int, error) {
	return call(c, "addition", fmt.Sprintf("%d + %d", a, b), func() (int, error) {
		return a + b, nil
	})
}

// Subtract returns a - b
func (c *Calculator) Subtract(a, b int) (int, error) {
	return call(c, "subtraction", fmt.Sprintf("%d - %d", a, b), func() (int, error) {
		return a - b, nil
	})
}

// Multiply returns a * b
func (c *Calculator) Multiply(a, b int) (int, error) {
	return call(c, "multiplication", fmt.Sprintf("%d * %d", a, b), func() (int, error) {
		return a * b, nil
	})
}

// Divide returns a / b as a float64. It fails with domain.ErrInvalidArgument
// when b is zero.
func (c *Calculator) Divide(a, b int) (float64, error) {
	return call(c, "division", fmt.Sprintf("%d / %d", a, b), func() (float64, error) {
		if b == 0 {
			return 0, fmt.Errorf("%w: cannot divide by zero", domain.ErrInvalidArgument)
		}
		return float64(a) / float64(b), nil
	})
}

// call runs op on the service's serialized call path if the connection is
// still bound.
func call[T any](c *Calculator, name, expr string, op func() (T, error)) (T, error) {
	var zero T

	conn := c.conn
	conn.mu.RLock()
	defer conn.mu.RUnlock()
	if conn.state != StateBound {
		return zero, domain.ErrNotConnected
	}

	svc := conn.service
	svc.callMu.Lock()
	defer svc.callMu.Unlock()

	svc.logger.Debug("performing "+name, "expression", expr, "connection_id", conn.id)
	return op()
}
