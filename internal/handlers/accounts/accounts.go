package accounts

//go:generate mockgen -source=accounts.go -destination=mock_accounts.go -package=accounts

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/GlebRadaev/marketledger/internal/domain"
	"github.com/GlebRadaev/marketledger/internal/dto"
	"github.com/GlebRadaev/marketledger/internal/handlers/httperr"
	"github.com/GlebRadaev/marketledger/pkg/auth"
	"github.com/GlebRadaev/marketledger/pkg/utils"
)

type Service interface {
	GetAccount(ctx context.Context, id int) (*domain.Account, error)
	Deposit(ctx context.Context, accountID int, amount decimal.Decimal) (*domain.TransactionRecord, error)
}

type LedgerService interface {
	History(ctx context.Context, filter domain.LedgerFilter) ([]domain.TransactionRecord, error)
}

type AccountHandler struct {
	accountService Service
	ledgerService  LedgerService
}

func New(accountService Service, ledgerService LedgerService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		ledgerService:  ledgerService,
	}
}

// GetMe godoc
//
//	@Summary	Get the caller's account
//	@Tags		Accounts
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	dto.AccountResponseDTO
//	@Failure	401	{object}	utils.Response	"User not authorized"
//	@Failure	404	{object}	utils.Response	"Account not found"
//	@Router		/api/accounts/me [get]
func (h *AccountHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.FromContext(r.Context())

	account, err := h.accountService.GetAccount(r.Context(), accountID)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.FromAccount(account))
}

// Deposit godoc
//
//	@Summary	Top up the caller's balance
//	@Tags		Accounts
//	@Accept		json
//	@Produce	json
//	@Param		request	body	dto.DepositRequestDTO	true	"Amount with at most two fraction digits"
//	@Security	BearerAuth
//	@Success	200	{object}	dto.TransactionResponseDTO
//	@Failure	400	{object}	utils.Response	"Invalid amount"
//	@Failure	409	{object}	utils.Response	"Concurrent update, retry"
//	@Router		/api/accounts/me/deposit [post]
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.FromContext(r.Context())

	var req dto.DepositRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	record, err := h.accountService.Deposit(r.Context(), accountID, amount)
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.FromTransaction(*record))
}

// GetTransactions godoc
//
//	@Summary		Ledger history of the caller
//	@Description	Defaults to the last 30 days.
//	@Tags			Accounts
//	@Produce		json
//	@Param			type	query	string	false	"DEPOSIT, PURCHASE, SALE, REFUND_OUT or REFUND_IN"
//	@Param			from	query	string	false	"RFC 3339 or YYYY-MM-DD"
//	@Param			to		query	string	false	"RFC 3339 or YYYY-MM-DD"
//	@Security		BearerAuth
//	@Success		200	{array}		dto.TransactionResponseDTO
//	@Failure		400	{object}	utils.Response	"Invalid filter"
//	@Router			/api/accounts/me/transactions [get]
func (h *AccountHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, role := auth.FromContext(r.Context())

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

	records, err := h.ledgerService.History(r.Context(), domain.LedgerFilter{
		AccountType: domain.AccountType(role),
		AccountID:   accountID,
		Type:        domain.TransactionType(r.URL.Query().Get("type")),
		From:        from,
		To:          to,
	})
	if err != nil {
		httperr.Respond(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, lo.Map(records, func(rec domain.TransactionRecord, _ int) dto.TransactionResponseDTO {
		return dto.FromTransaction(rec)
	}))
}
