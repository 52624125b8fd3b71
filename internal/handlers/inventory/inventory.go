package inventory

//go:generate mockgen -source=inventory.go -destination=mock_inventory.go -package=inventory

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/dto"
	"github.com/GlebRadaev/marketledger/internal/handlers/httperr"
	"github.com/GlebRadaev/marketledger/pkg/auth"
	"github.com/GlebRadaev/marketledger/pkg/utils"
)

type Service interface {
	GetItem(ctx context.Context, sku string) (*domain.InventoryItem, error)
	AddStock(ctx context.Context, item domain.InventoryItem) (*domain.InventoryItem, error)
	SetPrice(ctx context.Context, merchantID int, sku string, price decimal.Decimal) (*domain.InventoryItem, error)
}

type InventoryHandler struct {
	inventoryService Service
}

func New(inventoryService Service) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// AddStock godoc
//
//	@Summary		Add stock for a SKU
//	@Description	Creates the SKU or increases its quantity. The price of an existing SKU is kept.
//	@Tags			Inventory
//	@Accept			json
//	@Produce		json
//	@Param			request	body	dto.AddStockRequestDTO	true	"Stock to add"
//	@Security		BearerAuth
//	@Success		200	{object}	dto.InventoryItemResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid item or SKU owned by another merchant"
//	@Router			/api/inventory [post]
func (h *InventoryHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	merchantID, _ := auth.FromContext(r.Context())

	var req dto.AddStockRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid price")
		return
	}

	item, err := h.inventoryService.AddStock(r.Context(), domain.InventoryItem{
		SKU:         req.SKU,
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		MerchantID:  merchantID,
		Quantity:    req.Quantity,
		Price:       price,
	})
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.FromInventoryItem(item))
}

// GetItem godoc
//
//	@Summary	Get a SKU
//	@Tags		Inventory
//	@Produce	json
//	@Param		sku	path	string	true	"SKU"
//	@Security	BearerAuth
//	@Success	200	{object}	dto.InventoryItemResponseDTO
//	@Failure	404	{object}	utils.Response	"Unknown SKU"
//	@Router		/api/inventory/{sku} [get]
func (h *InventoryHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventoryService.GetItem(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.FromInventoryItem(item))
}

// SetPrice godoc
//
//	@Summary	Change the price of an owned SKU
//	@Tags		Inventory
//	@Accept		json
//	@Produce	json
//	@Param		sku		path	string					true	"SKU"
//	@Param		request	body	dto.SetPriceRequestDTO	true	"New price"
//	@Security	BearerAuth
//	@Success	200	{object}	dto.InventoryItemResponseDTO
//	@Failure	400	{object}	utils.Response	"Invalid price"
//	@Failure	404	{object}	utils.Response	"Unknown SKU"
//	@Router		/api/inventory/{sku}/price [put]
func (h *InventoryHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	merchantID, _ := auth.FromContext(r.Context())

	var req dto.SetPriceRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid price")
		return
	}

	item, err := h.inventoryService.SetPrice(r.Context(), merchantID, chi.URLParam(r, "sku"), price)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.FromInventoryItem(item))
}
