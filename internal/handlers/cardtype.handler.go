package handlers

import (
	"context"
	"strconv"

	"github.com/fasthttp/router"
	"github.com/rapidopay/card-gateway/internal/model"
	xhttp "github.com/rapidopay/card-gateway/pkg/http"
)

type CardTypeService interface {
	Create(ctx context.Context, t *model.CardType) (*model.CardType, error)
	List(ctx context.Context) ([]*model.CardType, error)
	Delete(ctx context.Context, id int64) error
}

type CardTypeHandler struct {
	svc CardTypeService
}

func RegisterCardTypeRoutes(e *router.Group, h *CardTypeHandler) {
	e.POST("/card-types", h.CreateCardType)
	e.GET("/card-types", h.ListCardTypes)
	e.DELETE("/card-types/{id}", h.DeleteCardType)
}

func NewCardTypeHandler(svc CardTypeService) *CardTypeHandler {
	return &CardTypeHandler{svc: svc}
}

type createCardTypeRequest struct {
	Price       int64 `json:"price"`
	BonusCredit int64 `json:"bonus_credit"`
}

func (h *CardTypeHandler) CreateCardType(ctx *xhttp.RequestCtx) {
	var req createCardTypeRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	created, err := h.svc.Create(ctx, &model.CardType{Price: req.Price, BonusCredit: req.BonusCredit})
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, created)
}

func (h *CardTypeHandler) ListCardTypes(ctx *xhttp.RequestCtx) {
	types, err := h.svc.List(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if types == nil {
		types = []*model.CardType{}
	}
	writeJSON(ctx, xhttp.StatusOK, types)
}

func (h *CardTypeHandler) DeleteCardType(ctx *xhttp.RequestCtx) {
	id, err := strconv.ParseInt(routeParam(ctx, "id"), 10, 64)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid card type id")
		return
	}
	if err := h.svc.Delete(ctx, id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}
