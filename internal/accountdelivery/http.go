// Package accountdelivery manages delivery layer of accounts.
package accountdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/amountpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
	"github.com/go-petr/pet-ledger/pkg/web"
)

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id int32) (domain.Account, error)
	Deposit(ctx context.Context, id int32, amount int64) (int64, error)
	Withdraw(ctx context.Context, id int32, amount int64) (int64, error)
	History(ctx context.Context, id int32) ([]string, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) *Handler {
	return &Handler{
		service: as,
	}
}

type accountData struct {
	Account domain.Account `json:"account"`
}

type balanceData struct {
	Balance int64 `json:"balance"`
}

type historyData struct {
	History []string `json:"history"`
}

// writeError maps service errors onto HTTP statuses.
func writeError(gctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		gctx.JSON(http.StatusNotFound, web.Error(err))
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInsufficientFunds):
		gctx.JSON(http.StatusBadRequest, web.Error(err))
	default:
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}

type createRequest struct {
	Owner          string `json:"owner" binding:"required"`
	Email          string `json:"email" binding:"required"`
	InitialDeposit string `json:"initial_deposit" binding:"required"`
	PIN            string `json:"pin" binding:"required,pin"`
	ConfirmPIN     string `json:"confirm_pin" binding:"required,eqfield=PIN"`
}

// Create handles http request to open an account.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req createRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return
	}

	deposit, err := amountpkg.Parse(req.InitialDeposit)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))

		return
	}

	account, err := h.service.Create(ctx, domain.CreateAccountParams{
		Owner:          req.Owner,
		Email:          req.Email,
		InitialDeposit: deposit,
		PIN:            req.PIN,
		ConfirmPIN:     req.ConfirmPIN,
	})
	if err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountData{account}})
}

type idRequest struct {
	ID int32 `uri:"id" binding:"required,min=10000000,max=99999999"`
}

func bindID(gctx *gin.Context) (int32, bool) {
	var req idRequest
	if err := gctx.ShouldBindUri(&req); err != nil {
		zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return 0, false
	}

	return req.ID, true
}

// Get handles http request to get account.
func (h *Handler) Get(gctx *gin.Context) {
	id, ok := bindID(gctx)
	if !ok {
		return
	}

	account, err := h.service.Get(gctx.Request.Context(), id)
	if err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: accountData{account}})
}

type amountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

func (h *Handler) bindAmount(gctx *gin.Context) (int32, int64, bool) {
	l := zerolog.Ctx(gctx.Request.Context())

	id, ok := bindID(gctx)
	if !ok {
		return 0, 0, false
	}

	var req amountRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.BindErrorMsg(err)})

		return 0, 0, false
	}

	amount, err := amountpkg.Parse(req.Amount)
	if err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, web.Error(domain.ErrInvalidAmount))

		return 0, 0, false
	}

	return id, amount, true
}

// Deposit handles http request to deposit money into an account.
func (h *Handler) Deposit(gctx *gin.Context) {
	id, amount, ok := h.bindAmount(gctx)
	if !ok {
		return
	}

	balance, err := h.service.Deposit(gctx.Request.Context(), id, amount)
	if err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: balanceData{balance}})
}

// Withdraw handles http request to withdraw money from an account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	id, amount, ok := h.bindAmount(gctx)
	if !ok {
		return
	}

	balance, err := h.service.Withdraw(gctx.Request.Context(), id, amount)
	if err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: balanceData{balance}})
}

// History handles http request to list account history.
func (h *Handler) History(gctx *gin.Context) {
	id, ok := bindID(gctx)
	if !ok {
		return
	}

	history, err := h.service.History(gctx.Request.Context(), id)
	if err != nil {
		writeError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, web.Response{Data: historyData{history}})
}
