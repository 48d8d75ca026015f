package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/rapidopay/card-gateway/internal/model"
	xhttp "github.com/rapidopay/card-gateway/pkg/http"
)

type AccountService interface {
	Authenticate(ctx context.Context, phone, password string) (*model.Account, error)
	Create(ctx context.Context, p model.AccountCreateRequest) (*model.Account, error)
	List(ctx context.Context) ([]*model.Account, error)
	Delete(ctx context.Context, id int64) error
}

type AccountHandler struct {
	svc AccountService
}

func RegisterAccountRoutes(e *router.Group, h *AccountHandler) {
	e.POST("/accounts/login", h.Login)
	e.POST("/accounts", h.CreateAccount)
	e.GET("/accounts", h.ListAccounts)
	e.DELETE("/accounts/{id}", h.DeleteAccount)
}

func NewAccountHandler(svc AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type createAccountRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *AccountHandler) Login(ctx *xhttp.RequestCtx) {
	var req loginRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	account, err := h.svc.Authenticate(ctx, req.Phone, req.Password)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, account)
}

func (h *AccountHandler) CreateAccount(ctx *xhttp.RequestCtx) {
	var req createAccountRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	account, err := h.svc.Create(ctx, model.AccountCreateRequest{
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     model.AccountRole(req.Role),
	})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(ctx *xhttp.RequestCtx) {
	accounts, err := h.svc.List(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if accounts == nil {
		accounts = []*model.Account{}
	}
	writeJSON(ctx, xhttp.StatusOK, accounts)
}

func (h *AccountHandler) DeleteAccount(ctx *xhttp.RequestCtx) {
	id, err := strconv.ParseInt(routeParam(ctx, "id"), 10, 64)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid account id")
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}
