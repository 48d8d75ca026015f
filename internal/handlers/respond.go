package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/rapidopay/card-gateway/internal/services"
	xhttp "github.com/rapidopay/card-gateway/pkg/http"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeServiceError maps service sentinels onto HTTP statuses so every
// handler speaks the same error dialect.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, services.ErrCardNotFound),
		errors.Is(err, services.ErrCardTypeNotFound),
		errors.Is(err, services.ErrAccountNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrCardNotActive),
		errors.Is(err, services.ErrSourceNotBlocked),
		errors.Is(err, services.ErrDestinationNotEligible),
		errors.Is(err, services.ErrNothingToTransfer):
		writeError(ctx, xhttp.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, services.ErrDuplicateRequest):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, services.ErrLockAcquireFailed):
		writeError(ctx, xhttp.StatusTooManyRequests, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(ctx, xhttp.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrDuplicatePhone),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrPromotionNotTopUp),
		errors.Is(err, services.ErrInvalidCardType):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrTransferIncomplete):
		// The withdrawal committed; surface the partial state loudly.
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
	default:
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	}
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func routeParam(ctx *xhttp.RequestCtx, name string) string {
	if v, ok := ctx.UserValue(name).(string); ok {
		return v
	}
	return ""
}

func queryInt(ctx *xhttp.RequestCtx, key string) (int, bool) {
	v := query(ctx, key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseTime(s string) (time.Time, error) {
	// Accept RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
