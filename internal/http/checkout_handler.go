package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/clients"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
)

type CheckoutHandler struct {
	registry *checkout.Registry
	carts    *Carts
	deps     checkout.Deps
	metrics  *metrics.Recorder
	logger   *slog.Logger
	timeout  time.Duration
}

// NewCheckoutHandler serves checkout sessions for the user found in the request
// context. deps.Users is replaced with that context lookup.
func NewCheckoutHandler(registry *checkout.Registry, carts *Carts, deps checkout.Deps, rec *metrics.Recorder, timeout time.Duration) *CheckoutHandler {
	if rec == nil {
		rec = metrics.NewNoop()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.Users = contextUsers{}
	return &CheckoutHandler{
		registry: registry,
		carts:    carts,
		deps:     deps,
		metrics:  rec,
		logger:   deps.Logger,
		timeout:  timeout,
	}
}

type SetAddressRequestDTO struct {
	Mode      checkout.AddressModeKind `json:"mode"`
	AddressID string                   `json:"address_id,omitempty"`
	Draft     *domain.AddressDraft     `json:"draft,omitempty"`
}

type CheckoutErrorResponse struct {
	ErrorResponse
	Fields   checkout.FieldErrors    `json:"fields,omitempty"`
	Problems []checkout.StockProblem `json:"problems,omitempty"`
	Session  *checkout.Session       `json:"session,omitempty"`
}

func (h *CheckoutHandler) Start(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := UserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	unlock := h.carts.Lock(user.ID)
	defer unlock()

	m, err := h.carts.Load(ctx, user.ID)
	if err != nil {
		h.logger.Error("failed to load cart for checkout", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "cart storage is unavailable")
		return
	}

	wf, err := checkout.Start(ctx, h.deps, m)
	if err == nil {
		err = h.registry.Put(user.ID, wf)
	}
	h.metrics.CheckoutOperation(ctx, "start", err)
	if err != nil {
		h.respondCheckoutError(w, nil, err)
		return
	}

	respondJSON(w, http.StatusCreated, wf.Session())
}

func (h *CheckoutHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, wf.Session())
}

func (h *CheckoutHandler) Abort(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	err := h.registry.Remove(user.ID)
	h.metrics.CheckoutOperation(r.Context(), "abort", err)
	if err != nil {
		h.respondCheckoutError(w, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}

	var req domain.Customer
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	s, err := wf.UpdateCustomer(req)
	h.reply(w, r, "customer", s, err)
}

func (h *CheckoutHandler) Next(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}

	s, err := wf.Next(ctx)
	h.reply(w, r, "next", s, err)
}

func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}

	s, err := wf.Back()
	h.reply(w, r, "back", s, err)
}

func (h *CheckoutHandler) SetAddress(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}

	var req SetAddressRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	var (
		s   checkout.Session
		err error
	)
	switch req.Mode {
	case checkout.AddressModeSaved:
		s, err = wf.SelectSavedAddress(req.AddressID)
	case checkout.AddressModeNew:
		s, err = wf.UseNewAddress(req.Draft)
	default:
		respondError(w, http.StatusBadRequest, "invalid_mode", "mode must be saved or new")
		return
	}
	h.reply(w, r, "address", s, err)
}

// Pay holds the user's cart for the whole submission so no cart mutation can
// interleave with the order being placed.
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	wf, ok := h.workflow(w, r)
	if !ok {
		return
	}
	if wf.Step() == checkout.StepSubmitting {
		s := wf.Session()
		h.reply(w, r, "pay", s, checkout.ErrSubmissionInFlight)
		return
	}
	user := UserFromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	unlock := h.carts.Lock(user.ID)
	defer unlock()

	m, err := h.carts.Load(ctx, user.ID)
	if err != nil {
		h.logger.Error("failed to load cart for payment", "user_id", user.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "storage_error", "cart storage is unavailable")
		return
	}

	start := time.Now()
	s, err := wf.Pay(ctx, m)
	if submissionRan(s, err) {
		h.metrics.SubmissionDuration(ctx, time.Since(start), err)
	}
	if s.Step == checkout.StepDone {
		h.registry.Discard(user.ID, wf)
	}
	h.reply(w, r, "pay", s, err)
}

func (h *CheckoutHandler) Regions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, checkout.Regions())
}

func (h *CheckoutHandler) workflow(w http.ResponseWriter, r *http.Request) (*checkout.Workflow, bool) {
	user := UserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return nil, false
	}
	wf, err := h.registry.Get(user.ID)
	if err != nil {
		h.respondCheckoutError(w, nil, err)
		return nil, false
	}
	return wf, true
}

func (h *CheckoutHandler) reply(w http.ResponseWriter, r *http.Request, op string, s checkout.Session, err error) {
	h.metrics.CheckoutOperation(r.Context(), op, err)
	if err != nil {
		h.respondCheckoutError(w, &s, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// submissionRan reports whether Pay got past validation and reached the backend.
func submissionRan(s checkout.Session, err error) bool {
	var (
		serr *checkout.StockError
		cerr *checkout.CollaboratorError
	)
	return s.Step == checkout.StepDone || errors.As(err, &serr) || errors.As(err, &cerr)
}

func (h *CheckoutHandler) respondCheckoutError(w http.ResponseWriter, s *checkout.Session, err error) {
	var (
		verr *checkout.ValidationError
		serr *checkout.StockError
		cerr *checkout.CollaboratorError
	)
	resp := CheckoutErrorResponse{Session: s}
	var status int

	switch {
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
		resp.Code = "validation_failed"
		resp.Error = "please correct the highlighted fields"
		resp.Fields = verr.Fields
	case errors.As(err, &serr):
		status = http.StatusConflict
		resp.Code = "insufficient_stock"
		resp.Error = serr.Message()
		resp.Problems = serr.Problems
	case errors.As(err, &cerr):
		status = http.StatusBadGateway
		resp.Code = "upstream_error"
		if errors.Is(err, clients.ErrUnavailable) {
			status = http.StatusServiceUnavailable
			resp.Code = "upstream_unavailable"
		}
		resp.Error = cerr.Message()
		resp.Details = cerr.Op
	case errors.Is(err, checkout.ErrNotAuthenticated):
		status = http.StatusUnauthorized
		resp.Code = "unauthorized"
		resp.Error = err.Error()
	case errors.Is(err, checkout.ErrNoSession):
		status = http.StatusNotFound
		resp.Code = "no_session"
		resp.Error = err.Error()
	case errors.Is(err, checkout.ErrEmptyCart):
		status = http.StatusConflict
		resp.Code = "empty_cart"
		resp.Error = err.Error()
	case errors.Is(err, checkout.ErrSubmissionInFlight):
		status = http.StatusConflict
		resp.Code = "submission_in_progress"
		resp.Error = err.Error()
	case errors.Is(err, checkout.ErrSessionDone):
		status = http.StatusConflict
		resp.Code = "session_done"
		resp.Error = err.Error()
	case errors.Is(err, checkout.ErrAddressNotAvailable):
		status = http.StatusUnprocessableEntity
		resp.Code = "address_not_available"
		resp.Error = err.Error()
	case errors.Is(err, checkout.ErrIllegalTransition):
		status = http.StatusConflict
		resp.Code = "illegal_transition"
		resp.Error = err.Error()
	default:
		h.logger.Error("checkout request failed", "error", err)
		status = http.StatusInternalServerError
		resp.Code = "internal_error"
		resp.Error = "internal server error"
	}

	respondJSON(w, status, resp)
}
