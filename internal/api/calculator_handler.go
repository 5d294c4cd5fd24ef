package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/otis-tran/demo-service/internal/api/shared"
	"github.com/otis-tran/demo-service/internal/domain"
	"github.com/otis-tran/demo-service/internal/service/calculator"
)

// CalculatorBinder binds clients to the calculator service.
type CalculatorBinder interface {
	Bind(ctx context.Context) (*calculator.Connection, error)
}

// OperandsRequest carries the operands of a calculator call.
type OperandsRequest struct {
	A *int `json:"a" validate:"required"`
	B *int `json:"b" validate:"required"`
}

// BindResponse is returned by a successful bind.
type BindResponse struct {
	ConnectionID uuid.UUID                  `json:"connection_id"`
	State        calculator.ConnectionState `json:"state"`
}

// OperationResponse carries the result of a calculator call.
type OperationResponse struct {
	Operation string      `json:"operation"`
	A         int         `json:"a"`
	B         int         `json:"b"`
	Result    interface{} `json:"result"`
}

// maxUnboundHandles bounds how many unbound connection IDs are remembered.
const maxUnboundHandles = 1024

// CalculatorHandler exposes bound calculator connections over HTTP. The IDs
// of recently unbound connections are remembered so late calls report that
// the connection is no longer bound instead of unknown.
type CalculatorHandler struct {
	binder     CalculatorBinder
	maxUnbound int

	mu           sync.Mutex
	conns        map[uuid.UUID]*calculator.Connection
	unbound      map[uuid.UUID]struct{}
	unboundOrder []uuid.UUID
}

// NewCalculatorHandler creates a new CalculatorHandler
func NewCalculatorHandler(binder CalculatorBinder) *CalculatorHandler {
	return &CalculatorHandler{
		binder:     binder,
		maxUnbound: maxUnboundHandles,
		conns:      make(map[uuid.UUID]*calculator.Connection),
		unbound:    make(map[uuid.UUID]struct{}),
	}
}

// Bind handles POST /api/calculator/bind
func (h *CalculatorHandler) Bind(w http.ResponseWriter, r *http.Request) {
	conn, err := h.binder.Bind(r.Context())
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	h.mu.Lock()
	// Connections can also be unbound by the service itself, e.g. on Close.
	for id, c := range h.conns {
		if c.State() != calculator.StateBound {
			h.forgetLocked(id)
		}
	}
	h.conns[conn.ID()] = conn
	h.mu.Unlock()

	shared.RespondWithJSON(w, r, http.StatusCreated, BindResponse{
		ConnectionID: conn.ID(),
		State:        conn.State(),
	})
}

// Unbind handles DELETE /api/calculator/{id}. Unbinding twice succeeds.
func (h *CalculatorHandler) Unbind(w http.ResponseWriter, r *http.Request) {
	id, conn, found := h.lookup(w, r)
	if !found {
		return
	}
	if conn != nil {
		conn.Unbind()
		h.mu.Lock()
		h.forgetLocked(id)
		h.mu.Unlock()
	}
	w.WriteHeader(http.StatusNoContent)
}

// Operate handles POST /api/calculator/{id}/{op}
func (h *CalculatorHandler) Operate(w http.ResponseWriter, r *http.Request) {
	_, conn, found := h.lookup(w, r)
	if !found {
		return
	}
	if conn == nil {
		respondWithMappedError(w, r, domain.ErrNotConnected)
		return
	}

	op := chi.URLParam(r, "op")
	var req OperandsRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}
	a, b := *req.A, *req.B
	calc := conn.Calculator()

	var (
		result interface{}
		err    error
	)
	switch op {
	case "add":
		result, err = calc.Add(a, b)
	case "subtract":
		result, err = calc.Subtract(a, b)
	case "multiply":
		result, err = calc.Multiply(a, b)
	case "divide":
		result, err = calc.Divide(a, b)
	default:
		respondError(w, r, http.StatusNotFound, "Unknown operation", nil)
		return
	}
	if err != nil {
		respondWithMappedError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, OperationResponse{
		Operation: op,
		A:         a,
		B:         b,
		Result:    result,
	})
}

// lookup resolves the {id} path parameter, writing an error response when
// it is invalid or unknown. conn is nil for a recently unbound connection.
func (h *CalculatorHandler) lookup(w http.ResponseWriter, r *http.Request) (uuid.UUID, *calculator.Connection, bool) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		respondWithMappedError(w, r, err)
		return uuid.Nil, nil, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.conns[id]; ok {
		if conn.State() == calculator.StateBound {
			return id, conn, true
		}
		h.forgetLocked(id)
	}
	if _, ok := h.unbound[id]; ok {
		return id, nil, true
	}
	respondWithMappedError(w, r, ErrConnectionNotFound)
	return id, nil, false
}

// forgetLocked drops the handle for id and remembers it as unbound, evicting
// the oldest remembered IDs beyond maxUnbound. Callers hold h.mu.
func (h *CalculatorHandler) forgetLocked(id uuid.UUID) {
	delete(h.conns, id)
	if _, ok := h.unbound[id]; ok {
		return
	}
	h.unbound[id] = struct{}{}
	h.unboundOrder = append(h.unboundOrder, id)
	for len(h.unboundOrder) > h.maxUnbound {
		delete(h.unbound, h.unboundOrder[0])
		h.unboundOrder = h.unboundOrder[1:]
	}
}
