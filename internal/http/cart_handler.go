package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/clients"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/metrics"
)

type CartHandler struct {
	carts   *Carts
	catalog checkout.ProductCatalog
	metrics *metrics.Recorder
	logger  *slog.Logger
	timeout time.Duration
}

func NewCartHandler(carts *Carts, catalog checkout.ProductCatalog, rec *metrics.Recorder, logger *slog.Logger, timeout time.Duration) *CartHandler {
	if rec == nil {
		rec = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CartHandler{
		carts:   carts,
		catalog: catalog,
		metrics: rec,
		logger:  logger,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartLineDTO struct {
	domain.CartLine
	LineTotal int64 `json:"line_total"`
}

type CartResponse struct {
	Lines  []CartLineDTO `json:"lines"`
	Totals domain.Totals `json:"totals"`
	Notice *cart.Change  `json:"notice,omitempty"`
}

func newCartResponse(m *cart.Manager, change *cart.Change) CartResponse {
	lines := m.Lines()
	resp := CartResponse{
		Lines:  make([]CartLineDTO, 0, len(lines)),
		Totals: m.Totals(),
	}
	for _, l := range lines {
		resp.Lines = append(resp.Lines, CartLineDTO{CartLine: l, LineTotal: l.LineTotal()})
	}
	if change != nil && change.Notice != cart.NoticeNone {
		resp.Notice = change
	}
	return resp
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := UserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	m, err := h.carts.Load(ctx, user.ID)
	if err != nil {
		h.storageError(w, "get", err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(m, nil))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := UserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if req.Quantity < 0 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be greater than 0")
		return
	}

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		h.metrics.CartMutation(ctx, "add", err)
		switch {
		case errors.Is(err, clients.ErrNotFound):
			respondError(w, http.StatusNotFound, "product_not_found", "product not found")
		case errors.Is(err, clients.ErrUnavailable):
			respondError(w, http.StatusServiceUnavailable, "catalog_unavailable", "product catalog is temporarily unavailable")
		default:
			h.logger.Error("failed to fetch product", "product_id", req.ProductID, "error", err)
			respondError(w, http.StatusBadGateway, "catalog_error", "could not load product")
		}
		return
	}
	if !product.Active {
		h.metrics.CartMutation(ctx, "add", cart.ErrOutOfStock)
		respondError(w, http.StatusConflict, "product_unavailable", "product is no longer available")
		return
	}

	unlock := h.carts.Lock(user.ID)
	defer unlock()

	m, err := h.carts.Load(ctx, user.ID)
	if err != nil {
		h.storageError(w, "add", err)
		return
	}

	change, err := m.AddItem(ctx, *product, req.Quantity)
	h.metrics.CartMutation(ctx, "add", err)
	if err != nil {
		h.mutationError(w, "add", err)
		return
	}
	h.recordNotice(ctx, change)

	respondJSON(w, http.StatusCreated, newCartResponse(m, &change))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	user := UserFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	productID := chi.URLParam(r, "product_id")
	var req UpdateQuantityRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	unlock := h.carts.Lock(user.ID)
	defer unlock()

	m, err := h.carts.Load(ctx, user.ID)
	if err != nil {
		h.storageError(w, "update", err)
		return
	}

	change, err := m.SetQuantity(ctx, productID, req.Quantity)
	h.metrics.CartMutation(ctx, "update", err)
	if err != nil {
		h.mutationError(w, "update", err)
		return
	}
	h.recordNotice(ctx, change)

	respondJSON(w, http.StatusOK, newCartResponse(m, &change))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
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
		h.storageError(w, "remove", err)
		return
	}

	err = m.RemoveItem(ctx, chi.URLParam(r, "product_id"))
	h.metrics.CartMutation(ctx, "remove", err)
	if err != nil {
		h.mutationError(w, "remove", err)
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(m, nil))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
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
		h.storageError(w, "clear", err)
		return
	}

	err = m.Clear(ctx)
	h.metrics.CartMutation(ctx, "clear", err)
	if err != nil {
		h.mutationError(w, "clear", err)
		return
	}

	respondJSON(w, http.StatusOK, newCartResponse(m, nil))
}

func (h *CartHandler) recordNotice(ctx context.Context, change cart.Change) {
	if change.Notice != cart.NoticeNone {
		h.metrics.CartNotice(ctx, string(change.Notice))
	}
}

func (h *CartHandler) storageError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("cart storage failed", "operation", op, "error", err)
	respondError(w, http.StatusInternalServerError, "storage_error", "cart storage is unavailable")
}

func (h *CartHandler) mutationError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		respondError(w, http.StatusConflict, "out_of_stock", "product is out of stock")
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be greater than 0")
	case errors.Is(err, cart.ErrInvalidProduct):
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
	case errors.Is(err, cart.ErrInvalidPrice):
		h.logger.Error("catalog returned an invalid product", "operation", op, "error", err)
		respondError(w, http.StatusBadGateway, "catalog_error", "could not load product")
	case errors.Is(err, cart.ErrLineNotFound):
		respondError(w, http.StatusNotFound, "not_in_cart", "product is not in the cart")
	default:
		h.storageError(w, op, err)
	}
}
