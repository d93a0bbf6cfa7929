package handler

import (
	"encoding/json"
	"net/http"

	"github.com/brizuela-go/takeorderhd/internal/enum"
	"github.com/brizuela-go/takeorderhd/internal/model"
	"github.com/brizuela-go/takeorderhd/internal/service"
	"github.com/brizuela-go/takeorderhd/internal/terminal"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SessionHandler handles terminal session endpoints: composing a pending
// order, submitting it, and the mark-as-paid confirmation.
type SessionHandler struct {
	sessions *terminal.Manager
	log      logrus.FieldLogger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *terminal.Manager, log logrus.FieldLogger) *SessionHandler {
	return &SessionHandler{sessions: sessions, log: log}
}

// RegisterRoutes registers session endpoints on the given Chi router.
// Expected to be mounted at /sessions.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Open)
	r.Route("/{sid}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Patch("/", h.Update)
		r.Delete("/", h.Close)
		r.Post("/items", h.AdjustItem)
		r.Post("/submit", h.Submit)
		r.Put("/target", h.Target)
		r.Delete("/target", h.CancelTarget)
		r.Post("/target/confirm", h.ConfirmTarget)
	})
}

// --- Request / Response types ---

type updateSessionRequest struct {
	Waiter        *string `json:"waiter"`
	Table         *string `json:"table"`
	PaymentMethod *string `json:"payment_method"`
	Notes         *string `json:"notes"`
}

type adjustItemRequest struct {
	Item      string `json:"item"`
	Direction string `json:"direction"`
}

type targetRequest struct {
	OrderID int64 `json:"order_id"`
}

type orderResponse struct {
	Order   model.Order    `json:"order"`
	Session terminal.State `json:"session"`
}

// --- Handlers ---

// Open handles POST /sessions.
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Open()
	writeJSON(w, http.StatusCreated, s.Snapshot())
}

// Get handles GET /sessions/{sid}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Update handles PATCH /sessions/{sid}.
func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentMethod != nil && *req.PaymentMethod != "" && !enum.IsValidPaymentMethod(*req.PaymentMethod) {
		writeError(w, http.StatusBadRequest, service.ErrInvalidPaymentMethod.Error())
		return
	}

	st, err := s.Update(terminal.PendingUpdate{
		Waiter:        req.Waiter,
		Table:         req.Table,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
	})
	if err != nil {
		writeServiceError(w, h.log, "update session", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Close handles DELETE /sessions/{sid}.
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return
	}
	if err := h.sessions.Close(id); err != nil {
		writeServiceError(w, h.log, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdjustItem handles POST /sessions/{sid}/items.
func (h *SessionHandler) AdjustItem(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req adjustItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Item == "" {
		writeError(w, http.StatusBadRequest, "item is required")
		return
	}

	state, err := s.Adjust(req.Item, req.Direction)
	if err != nil {
		writeServiceError(w, h.log, "adjust item", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Submit handles POST /sessions/{sid}/submit.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	order, err := s.Submit(r.Context())
	if err != nil {
		writeServiceError(w, h.log, "submit order", err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResponse{Order: order, Session: s.Snapshot()})
}

// Target handles PUT /sessions/{sid}/target.
func (h *SessionHandler) Target(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req targetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID <= 0 {
		writeError(w, http.StatusBadRequest, service.ErrInvalidOrderID.Error())
		return
	}

	order, err := s.TargetOrder(req.OrderID)
	if err != nil {
		writeServiceError(w, h.log, "target order", err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: order, Session: s.Snapshot()})
}

// CancelTarget handles DELETE /sessions/{sid}/target.
func (h *SessionHandler) CancelTarget(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.CancelPaid()
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// ConfirmTarget handles POST /sessions/{sid}/target/confirm.
func (h *SessionHandler) ConfirmTarget(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	order, err := s.ConfirmPaid(r.Context())
	if err != nil {
		writeServiceError(w, h.log, "mark order paid", err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Order: order, Session: s.Snapshot()})
}

// --- Helpers ---

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*terminal.Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session ID")
		return nil, false
	}
	s, err := h.sessions.Get(id)
	if err != nil {
		writeServiceError(w, h.log, "get session", err)
		return nil, false
	}
	return s, true
}
