package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/rapidopay/card-gateway/internal/model"
	xhttp "github.com/rapidopay/card-gateway/pkg/http"
)

type ReportService interface {
	Today(ctx context.Context) (*model.TodayReport, error)
	Analytics(ctx context.Context) (*model.Analytics, error)
	WeeklyIncome(ctx context.Context) ([]*model.WeekdayIncome, error)
	TypeDistribution(ctx context.Context) ([]*model.CardTypeCount, error)
}

type ReportHandler struct {
	svc ReportService
}

func RegisterReportRoutes(e *router.Group, h *ReportHandler) {
	e.GET("/reports/today", h.Today)
	e.GET("/reports/analytics", h.Analytics)
	e.GET("/reports/weekly-income", h.WeeklyIncome)
	e.GET("/reports/type-distribution", h.TypeDistribution)
}

func NewReportHandler(svc ReportService) *ReportHandler {
	return &ReportHandler{svc: svc}
}

func (h *ReportHandler) Today(ctx *xhttp.RequestCtx) {
	report, err := h.svc.Today(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, report)
}

func (h *ReportHandler) Analytics(ctx *xhttp.RequestCtx) {
	analytics, err := h.svc.Analytics(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, analytics)
}

func (h *ReportHandler) WeeklyIncome(ctx *xhttp.RequestCtx) {
	buckets, err := h.svc.WeeklyIncome(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, buckets)
}

func (h *ReportHandler) TypeDistribution(ctx *xhttp.RequestCtx) {
	rows, err := h.svc.TypeDistribution(ctx)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if rows == nil {
		rows = []*model.CardTypeCount{}
	}
	writeJSON(ctx, xhttp.StatusOK, rows)
}
