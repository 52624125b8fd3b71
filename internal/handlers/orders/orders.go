package orders

//go:generate mockgen -source=orders.go -destination=mock_orders.go -package=orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/dto"
	"github.com/GlebRadaev/marketledger/internal/handlers/httperr"
	"github.com/GlebRadaev/marketledger/pkg/auth"
	"github.com/GlebRadaev/marketledger/pkg/utils"
)

type Service interface {
	PlaceOrder(ctx context.Context, buyerID int, lines []domain.CartLine) (*domain.Order, error)
	GetOrder(ctx context.Context, id int) (*domain.Order, error)
	GetOrderByNumber(ctx context.Context, number string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	Ship(ctx context.Context, id int) (*domain.Order, error)
	Complete(ctx context.Context, id int) (*domain.Order, error)
	Cancel(ctx context.Context, id int) (*domain.Order, error)
}

type PaymentService interface {
	ConfirmPayment(ctx context.Context, orderID int) (*domain.Order, error)
	Refund(ctx context.Context, orderID int) (*domain.Order, error)
}

type OrderHandler struct {
	orderService   Service
	paymentService PaymentService
}

func New(orderService Service, paymentService PaymentService) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		paymentService: paymentService,
	}
}

// PlaceOrder godoc
//
//	@Summary		Place an order
//	@Description	Create a PENDING order from cart lines. All lines must belong to one merchant.
//	@Tags			Orders
//	@Accept			json
//	@Produce		json
//	@Param			request	body	dto.PlaceOrderRequestDTO	true	"Cart lines"
//	@Security		BearerAuth
//	@Success		201	{object}	dto.OrderResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid cart"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		404	{object}	utils.Response	"Unknown SKU"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders [post]
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	buyerID, _ := auth.FromContext(r.Context())

	var req dto.PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.orderService.PlaceOrder(r.Context(), buyerID, dto.ToCartLines(req.Lines))
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.FromOrder(order))
}

// GetOrders godoc
//
//	@Summary		List orders
//	@Description	Orders the caller bought (USER) or sold (MERCHANT), newest first.
//	@Tags			Orders
//	@Produce		json
//	@Param			status	query	string	false	"Order status"
//	@Param			limit	query	int		false	"Page size, at most 100"
//	@Param			offset	query	int		false	"Page offset"
//	@Security		BearerAuth
//	@Success		200	{array}		dto.OrderResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid filter"
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/orders [get]
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	accountID, role := auth.FromContext(r.Context())

	filter, err := parseFilter(r)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	if role == auth.RoleMerchant {
		filter.MerchantID = accountID
	} else {
		filter.BuyerID = accountID
	}

	orders, err := h.orderService.ListOrders(r.Context(), filter)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, lo.Map(orders, func(o domain.Order, _ int) dto.OrderResponseDTO {
		return dto.FromOrder(&o)
	}))
}

func parseFilter(r *http.Request) (domain.OrderFilter, error) {
	var filter domain.OrderFilter
	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		status, err := domain.ParseOrderStatus(s)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	for name, target := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return filter, domain.Validationf("%s must be an integer", name)
		}
		*target = v
	}
	return filter, nil
}

// GetOrder godoc
//
//	@Summary		Get an order
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path	int	true	"Order id"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderResponseDTO
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Router			/api/orders/{id} [get]
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.FromOrder(order))
}

// GetOrderByNumber godoc
//
//	@Summary	Get an order by its number
//	@Tags		Orders
//	@Produce	json
//	@Param		number	path	string	true	"Order number"
//	@Security	BearerAuth
//	@Success	200	{object}	dto.OrderResponseDTO
//	@Failure	400	{object}	utils.Response	"Invalid order number"
//	@Failure	404	{object}	utils.Response	"Order not found"
//	@Router		/api/orders/by-number/{number} [get]
func (h *OrderHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	order, err := h.orderService.GetOrderByNumber(r.Context(), number)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	if !ownedBy(r.Context(), order) {
		httperr.Respond(w, fmt.Errorf("order %s: %w", number, domain.ErrNotFound))
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.FromOrder(order))
}

// Pay godoc
//
//	@Summary		Pay for an order
//	@Description	Debits the buyer, credits the merchant and reserves stock in one transaction.
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path	int	true	"Order id"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderResponseDTO
//	@Failure		402	{object}	utils.Response	"Insufficient balance"
//	@Failure		404	{object}	utils.Response	"Order not found"
//	@Failure		409	{object}	utils.Response	"Insufficient stock, wrong status or concurrent update"
//	@Router			/api/orders/{id}/pay [post]
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.paymentService.ConfirmPayment)
}

// Cancel godoc
//
//	@Summary	Cancel a pending order
//	@Tags		Orders
//	@Produce	json
//	@Param		id	path	int	true	"Order id"
//	@Security	BearerAuth
//	@Success	200	{object}	dto.OrderResponseDTO
//	@Failure	409	{object}	utils.Response	"Order is not pending"
//	@Router		/api/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.orderService.Cancel)
}

// Ship godoc
//
//	@Summary	Mark a paid order shipped
//	@Tags		Orders
//	@Produce	json
//	@Param		id	path	int	true	"Order id"
//	@Security	BearerAuth
//	@Success	200	{object}	dto.OrderResponseDTO
//	@Failure	409	{object}	utils.Response	"Order is not paid"
//	@Router		/api/orders/{id}/ship [post]
func (h *OrderHandler) Ship(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.orderService.Ship)
}

// Complete godoc
//
//	@Summary	Mark a shipped order completed
//	@Tags		Orders
//	@Produce	json
//	@Param		id	path	int	true	"Order id"
//	@Security	BearerAuth
//	@Success	200	{object}	dto.OrderResponseDTO
//	@Failure	409	{object}	utils.Response	"Order is not shipped"
//	@Router		/api/orders/{id}/complete [post]
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.orderService.Complete)
}

// Refund godoc
//
//	@Summary		Refund a paid or shipped order
//	@Description	Moves the order total back from the merchant to the buyer.
//	@Tags			Orders
//	@Produce		json
//	@Param			id	path	int	true	"Order id"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.OrderResponseDTO
//	@Failure		402	{object}	utils.Response	"Merchant balance too low"
//	@Failure		409	{object}	utils.Response	"Order cannot be refunded"
//	@Router			/api/orders/{id}/refund [post]
func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, h.paymentService.Refund)
}

func (h *OrderHandler) act(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int) (*domain.Order, error)) {
	order, ok := h.ownedOrder(w, r)
	if !ok {
		return
	}
	updated, err := fn(r.Context(), order.ID)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.FromOrder(updated))
}

// ownedOrder loads the order from the path. Orders of other accounts are
// reported as missing.
func (h *OrderHandler) ownedOrder(w http.ResponseWriter, r *http.Request) (*domain.Order, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid order id")
		return nil, false
	}

	order, err := h.orderService.GetOrder(r.Context(), id)
	if err != nil {
		httperr.Respond(w, err)
		return nil, false
	}

	if !ownedBy(r.Context(), order) {
		httperr.Respond(w, fmt.Errorf("order %d: %w", id, domain.ErrNotFound))
		return nil, false
	}
	return order, true
}

// ownedBy reports whether the principal bought (USER) or sold (MERCHANT) the order.
func ownedBy(ctx context.Context, order *domain.Order) bool {
	accountID, role := auth.FromContext(ctx)
	if role == auth.RoleMerchant {
		return order.MerchantID == accountID
	}
	return order.BuyerID == accountID
}
