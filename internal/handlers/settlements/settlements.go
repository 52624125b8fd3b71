package settlements

//go:generate mockgen -source=settlements.go -destination=mock_settlements.go -package=settlements

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/dto"
	"github.com/GlebRadaev/marketledger/internal/handlers/httperr"
	"github.com/GlebRadaev/marketledger/internal/settlement"
	"github.com/GlebRadaev/marketledger/pkg/auth"
	"github.com/GlebRadaev/marketledger/pkg/utils"
)

type Service interface {
	RunSettlement(ctx context.Context, merchantID mo.Option[int], date mo.Option[time.Time]) (settlement.Report, error)
	Settlements(ctx context.Context, merchantID int, from, to time.Time) ([]domain.Settlement, error)
}

type SettlementHandler struct {
	settlementService Service
}

func New(settlementService Service) *SettlementHandler {
	return &SettlementHandler{settlementService: settlementService}
}

// Run godoc
//
//	@Summary		Settle the caller's day
//	@Description	Reconciles the caller's orders against the ledger. The date defaults to yesterday (UTC).
//	@Tags			Settlements
//	@Accept			json
//	@Produce		json
//	@Param			request	body	dto.RunSettlementRequestDTO	false	"Date to settle"
//	@Security		BearerAuth
//	@Success		201	{object}	dto.SettlementResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid date"
//	@Failure		409	{object}	utils.Response	"Date already settled"
//	@Router			/api/settlements/run [post]
func (h *SettlementHandler) Run(w http.ResponseWriter, r *http.Request) {
	merchantID, _ := auth.FromContext(r.Context())

	var req dto.RunSettlementRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	date := mo.None[time.Time]()
	if req.Date != "" {
		d, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Date must be YYYY-MM-DD")
			return
		}
		date = mo.Some(d)
	}

	report, err := h.settlementService.RunSettlement(r.Context(), mo.Some(merchantID), date)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	if len(report.Settled) == 0 {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.FromSettlement(&report.Settled[0]))
}

// GetSettlements godoc
//
//	@Summary		List the caller's settlements
//	@Description	Dates are inclusive. Defaults to the last 30 days.
//	@Tags			Settlements
//	@Produce		json
//	@Param			from	query	string	false	"YYYY-MM-DD"
//	@Param			to		query	string	false	"YYYY-MM-DD"
//	@Security		BearerAuth
//	@Success		200	{array}		dto.SettlementResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid range"
//	@Router			/api/settlements [get]
func (h *SettlementHandler) GetSettlements(w http.ResponseWriter, r *http.Request) {
	merchantID, _ := auth.FromContext(r.Context())

	from, err := utils.QueryTime(r, "from")
	if err != nil {
		httperr.Respond(w, domain.Validationf("%s", err))
		return
	}
	to, err := utils.QueryTime(r, "to")
	if err != nil {
		httperr.Respond(w, domain.Validationf("%s", err))
		return
	}

	settlements, err := h.settlementService.Settlements(r.Context(), merchantID, from, to)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, lo.Map(settlements, func(s domain.Settlement, _ int) dto.SettlementResponseDTO {
		return dto.FromSettlement(&s)
	}))
}
