package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"FortuneBox/internal/models"
	"FortuneBox/internal/services"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Catalog  services.CatalogService
	Orders   services.OrderService
	Shipping services.ShippingService
	Now      func() time.Time
}

type createOrderRequest struct {
	TierCode string `json:"tier_code"`
}

type createOrderResponse struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	TierCode    string `json:"tier_code"`
	Price       int64  `json:"price"`
}

type paymentRequest struct {
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
}

type paymentResponse struct {
	OrderID int64              `json:"order_id"`
	Status  models.OrderStatus `json:"status"`
}

type breakResponse struct {
	OrderID int64         `json:"order_id"`
	Reward  models.Reward `json:"reward"`
}

type refundRequest struct {
	Reason string `json:"reason"`
}

type refundResponse struct {
	OrderID      int64 `json:"order_id"`
	RefundAmount int64 `json:"refund_amount"`
}

type probabilitiesResponse struct {
	Tier    models.Tier     `json:"tier"`
	Rewards []models.Reward `json:"rewards"`
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func orderIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil || id <= 0 {
		return 0, services.ErrInvalidOrderID
	}
	return id, nil
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) ListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.Catalog.ListTiers(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch tiers")
		return
	}
	writeOK(w, tiers, "")
}

func (h *Handler) GetTier(w http.ResponseWriter, r *http.Request) {
	tier, err := h.Catalog.GetTier(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch tier")
		return
	}
	writeOK(w, tier, "")
}

func (h *Handler) GetProbabilities(w http.ResponseWriter, r *http.Request) {
	tier, err := h.Catalog.GetProbabilities(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch probabilities")
		return
	}
	writeOK(w, probabilitiesResponse{Tier: tier.Tier, Rewards: tier.Rewards}, "")
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body", "")
		return
	}

	order, err := h.Orders.CreateOrder(r.Context(), req.TierCode)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create order")
		return
	}
	writeOK(w, createOrderResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		TierCode:    order.TierCode,
		Price:       order.Price,
	}, "")
}

func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		writeServiceError(w, r, err, "Failed to process payment")
		return
	}
	var req paymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body", "")
		return
	}

	order, err := h.Orders.Pay(r.Context(), orderID, req.PaymentMethod, req.TransactionID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to process payment")
		return
	}
	writeOK(w, paymentResponse{OrderID: order.ID, Status: order.Status}, "Payment successful")
}

func (h *Handler) BreakOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		writeServiceError(w, r, err, "Failed to break box")
		return
	}

	res, err := h.Orders.Break(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to break box")
		return
	}
	writeOK(w, breakResponse{OrderID: res.Order.ID, Reward: res.Reward}, "운이 자산이 되는 순간")
}

func (h *Handler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		writeServiceError(w, r, err, "Failed to process refund")
		return
	}
	var req refundRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body", "")
		return
	}

	order, err := h.Orders.Refund(r.Context(), orderID, req.Reason)
	if err != nil {
		writeServiceError(w, r, err, "Failed to process refund")
		return
	}
	var amount int64
	if order.RefundAmount != nil {
		amount = *order.RefundAmount
	}
	writeOK(w, refundResponse{OrderID: order.ID, RefundAmount: amount}, "Refund processed successfully")
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := orderIDParam(r)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch order")
		return
	}

	details, err := h.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch order")
		return
	}
	writeOK(w, details, "")
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number", "")
			return
		}
		limit = n
	}

	orders, err := h.Orders.ListRecent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch orders")
		return
	}
	writeOK(w, orders, "")
}

func (h *Handler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	var req services.ShippingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body", "")
		return
	}

	sh, _, err := h.Shipping.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to submit shipping information")
		return
	}
	writeOK(w, sh, "Shipping information submitted successfully")
}

func (h *Handler) GetShipping(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil {
		writeServiceError(w, r, services.ErrShippingNotFound, "Failed to fetch shipping information")
		return
	}

	sh, err := h.Shipping.Get(r.Context(), orderID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch shipping information")
		return
	}
	writeOK(w, sh, "")
}
