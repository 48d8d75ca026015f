package handlers

import (
	"context"
	"strings"

	"github.com/fasthttp/router"
	"github.com/rapidopay/card-gateway/internal/model"
	"github.com/rapidopay/card-gateway/internal/services"
	xhttp "github.com/rapidopay/card-gateway/pkg/http"
)

type CardService interface {
	TopUp(ctx context.Context, p model.TopUpRequest) (*model.MutationResult, error)
	Block(ctx context.Context, barcode string) error
	Get(ctx context.Context, barcode string) (*model.Card, error)
	List(ctx context.Context, f model.CardFilter) ([]*model.Card, int64, error)
	ListInactiveGrouped(ctx context.Context) ([]*model.InactiveCardGroup, error)
	ListTransactions(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
	UpdateType(ctx context.Context, barcode string, typeID int64) error
	Issue(ctx context.Context, quantity int) ([]*model.Card, error)
}

type TransferService interface {
	Transfer(ctx context.Context, srcBarcode, dstBarcode string) (*model.MutationResult, error)
}

// IdempotencyGuard shields balance mutations from duplicate request
// IDs. Nil-able: without redis the guard is simply skipped.
type IdempotencyGuard interface {
	Begin(ctx context.Context, requestID string) (*services.Reservation, error)
	MarkSuccess(ctx context.Context, r *services.Reservation) error
	Release(ctx context.Context, r *services.Reservation)
}

type CardHandler struct {
	svc      CardService
	transfer TransferService
	guard    IdempotencyGuard
}

func RegisterCardRoutes(e *router.Group, h *CardHandler) {
	e.POST("/cards", h.IssueCards)
	e.GET("/cards", h.ListCards)
	e.GET("/cards/inactive", h.ListInactiveGrouped)
	e.GET("/cards/{barcode}", h.GetCard)
	e.GET("/cards/{barcode}/transactions", h.ListCardTransactions)
	e.POST("/cards/{barcode}/top-up", h.TopUp)
	e.POST("/cards/{barcode}/block", h.BlockCard)
	e.PUT("/cards/{barcode}/type", h.UpdateCardType)
	e.POST("/transfers", h.Transfer)
	e.GET("/transactions", h.ListTransactions)
}

func NewCardHandler(svc CardService, transfer TransferService, guard IdempotencyGuard) *CardHandler {
	return &CardHandler{
		svc:      svc,
		transfer: transfer,
		guard:    guard,
	}
}

type topUpRequest struct {
	Amount     int64  `json:"amount"`
	IsTopUp    bool   `json:"is_top_up"`
	CardTypeID *int64 `json:"card_type_id"`
	Bonus      int64  `json:"bonus"`
}

type issueCardsRequest struct {
	Quantity int `json:"quantity"`
}

type transferRequest struct {
	SourceBarcode      string `json:"source_barcode"`
	DestinationBarcode string `json:"destination_barcode"`
}

type updateTypeRequest struct {
	TypeID int64 `json:"type_id"`
}

type cardListResponse struct {
	Items []*model.Card `json:"items"`
	Total int64         `json:"total"`
}

type transactionListResponse struct {
	Items []*model.Transaction `json:"items"`
	Total int64                `json:"total"`
}

/* --------------------------------- Routes ----------------------------------- */

// TopUp runs one balance mutation on the card: a credit when is_top_up
// is set, otherwise a purchase debit. An X-Request-ID header makes the
// call idempotent.
func (h *CardHandler) TopUp(ctx *xhttp.RequestCtx) {
	var req topUpRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	barcode := routeParam(ctx, "barcode")
	card, err := h.svc.Get(ctx, barcode)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if card.Status == model.CardStatusBlocked {
		// blocked cards only move money through a transfer
		writeServiceError(ctx, services.ErrCardNotActive)
		return
	}

	reservation, ok := h.reserve(ctx)
	if !ok {
		return
	}

	p := model.TopUpRequest{
		Barcode:    barcode,
		Amount:     req.Amount,
		IsTopUp:    req.IsTopUp,
		CardTypeID: req.CardTypeID,
		Bonus:      req.Bonus,
	}
	result, err := h.svc.TopUp(ctx, p)
	if err != nil {
		h.release(ctx, reservation)
		writeServiceError(ctx, err)
		return
	}

	h.settle(ctx, reservation)
	writeJSON(ctx, xhttp.StatusOK, result)
}

func (h *CardHandler) BlockCard(ctx *xhttp.RequestCtx) {
	if err := h.svc.Block(ctx, routeParam(ctx, "barcode")); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]string{"status": string(model.CardStatusBlocked)})
}

// Transfer moves the whole balance of a blocked card to a replacement
// card.
func (h *CardHandler) Transfer(ctx *xhttp.RequestCtx) {
	var req transferRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.SourceBarcode == "" || req.DestinationBarcode == "" {
		writeError(ctx, xhttp.StatusBadRequest, "source_barcode and destination_barcode are required")
		return
	}

	reservation, ok := h.reserve(ctx)
	if !ok {
		return
	}

	result, err := h.transfer.Transfer(ctx, req.SourceBarcode, req.DestinationBarcode)
	if err != nil {
		h.release(ctx, reservation)
		writeServiceError(ctx, err)
		return
	}

	h.settle(ctx, reservation)
	writeJSON(ctx, xhttp.StatusOK, result)
}

func (h *CardHandler) GetCard(ctx *xhttp.RequestCtx) {
	card, err := h.svc.Get(ctx, routeParam(ctx, "barcode"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, card)
}

func (h *CardHandler) ListCards(ctx *xhttp.RequestCtx) {
	var f model.CardFilter

	if v := query(ctx, "status"); v != "" {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				f.Statuses = append(f.Statuses, model.CardStatus(part))
			}
		}
	}
	if n, ok := queryInt(ctx, "type"); ok {
		id := int64(n)
		f.TypeID = &id
	}
	if n, ok := queryInt(ctx, "limit"); ok {
		f.Limit = n
	}
	if n, ok := queryInt(ctx, "offset"); ok {
		f.Offset = n
	}
	if strings.EqualFold(query(ctx, "order"), "desc") {
		f.Desc = true
	}

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, cardListResponse{Items: items, Total: total})
}

func (h *CardHandler) ListInactiveGrouped(ctx *xhttp.RequestCtx) {
	groups, err := h.svc.ListInactiveGrouped(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if groups == nil {
		groups = []*model.InactiveCardGroup{}
	}
	writeJSON(ctx, xhttp.StatusOK, groups)
}

func (h *CardHandler) ListCardTransactions(ctx *xhttp.RequestCtx) {
	barcode := routeParam(ctx, "barcode")
	f := transactionFilter(ctx)
	f.Barcode = &barcode

	items, total, err := h.svc.ListTransactions(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, transactionListResponse{Items: items, Total: total})
}

func (h *CardHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	f := transactionFilter(ctx)
	if v := query(ctx, "barcode"); v != "" {
		f.Barcode = &v
	}

	items, total, err := h.svc.ListTransactions(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, transactionListResponse{Items: items, Total: total})
}

func (h *CardHandler) UpdateCardType(ctx *xhttp.RequestCtx) {
	var req updateTypeRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := h.svc.UpdateType(ctx, routeParam(ctx, "barcode"), req.TypeID); err != nil {
		writeServiceError(ctx, err)
		return
	}
	ctx.SetStatusCode(xhttp.StatusNoContent)
}

func (h *CardHandler) IssueCards(ctx *xhttp.RequestCtx) {
	req := issueCardsRequest{Quantity: 1}
	if body := ctx.PostBody(); len(body) > 0 {
		if err := readJSON(ctx, &req); err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}

	cards, err := h.svc.Issue(ctx, req.Quantity)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, cards)
}

func transactionFilter(ctx *xhttp.RequestCtx) model.TransactionFilter {
	// Ledger listings read newest-first unless the caller asks for
	// chronological order.
	f := model.TransactionFilter{Desc: true}

	if v := query(ctx, "from"); v != "" {
		if t, err := parseTime(v); err == nil {
			f.From = &t
		}
	}
	if v := query(ctx, "to"); v != "" {
		if t, err := parseTime(v); err == nil {
			f.To = &t
		}
	}
	if n, ok := queryInt(ctx, "limit"); ok {
		f.Limit = n
	}
	if n, ok := queryInt(ctx, "offset"); ok {
		f.Offset = n
	}
	if strings.EqualFold(query(ctx, "order"), "asc") {
		f.Desc = false
	}
	return f
}

/* ------------------------------ Idempotency ---------------------------------- */

// reserve claims the request ID if the guard is wired and the client
// sent one. A false return means the response is already written.
func (h *CardHandler) reserve(ctx *xhttp.RequestCtx) (*services.Reservation, bool) {
	if h.guard == nil {
		return nil, true
	}
	requestID := string(ctx.Request.Header.Peek("X-Request-ID"))
	if requestID == "" {
		return nil, true
	}

	reservation, err := h.guard.Begin(ctx, requestID)
	if err != nil {
		writeServiceError(ctx, err)
		return nil, false
	}
	return reservation, true
}

func (h *CardHandler) settle(ctx *xhttp.RequestCtx, r *services.Reservation) {
	if h.guard == nil || r == nil {
		return
	}
	_ = h.guard.MarkSuccess(ctx, r)
}

func (h *CardHandler) release(ctx *xhttp.RequestCtx, r *services.Reservation) {
	if h.guard == nil || r == nil {
		return
	}
	h.guard.Release(ctx, r)
}
