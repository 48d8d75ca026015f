// The terminal binary is the in-store point-of-sale endpoint: it lets a
// register scan a card, show its history, and debit purchases. It has
// no database access of its own; everything goes through the card
// gateway API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rapidopay/card-gateway/internal/config"
	gateway "github.com/rapidopay/card-gateway/internal/gateways"
)

type purchaseBody struct {
	Barcode   string `json:"barcode" binding:"required"`
	Amount    int64  `json:"amount" binding:"required"`
	RequestID string `json:"request_id"`
}

type Handler struct {
	gateway *gateway.Client
}

func NewHandler(g *gateway.Client) *Handler {
	return &Handler{gateway: g}
}

// GetCard returns the card for a scanned barcode.
func (h *Handler) GetCard(c *gin.Context) {
	barcode := c.Param("barcode")

	card, err := h.gateway.GetCard(c.Request.Context(), barcode)
	if err != nil {
		respondGatewayError(c, err)
		return
	}

	log.Info().
		Str("barcode", barcode).
		Int64("credit", card.Credit).
		Str("status", string(card.Status)).
		Msg("card scanned")

	c.JSON(http.StatusOK, card)
}

// GetTransactions returns the card's ledger history, newest first.
func (h *Handler) GetTransactions(c *gin.Context) {
	txns, err := h.gateway.ListTransactions(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		respondGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, txns)
}

// Purchase debits a sale from the scanned card. The terminal only ever
// debits; top-ups happen on the back-office dashboard.
func (h *Handler) Purchase(c *gin.Context) {
	var body purchaseBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": err.Error(),
		})
		return
	}

	// One ID per sale; a register retry re-sends the same ID and the
	// gateway refuses the duplicate.
	requestID := body.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	result, err := h.gateway.Purchase(c.Request.Context(), body.Barcode, body.Amount, requestID)
	if err != nil {
		log.Warn().
			Str("barcode", body.Barcode).
			Int64("amount", body.Amount).
			Str("request_id", requestID).
			Err(err).
			Msg("purchase refused")
		respondGatewayError(c, err)
		return
	}

	log.Info().
		Str("barcode", body.Barcode).
		Int64("amount", body.Amount).
		Int64("new_balance", result.NewBalance).
		Str("request_id", requestID).
		Msg("purchase completed")

	c.JSON(http.StatusOK, gin.H{
		"new_balance": result.NewBalance,
		"new_status":  result.NewStatus,
		"request_id":  requestID,
	})
}

// HealthCheck reports whether the gateway behind the terminal is up.
func (h *Handler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.gateway.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
	})
}

func respondGatewayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, gateway.ErrCardNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, gateway.ErrRejected):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}

// SetupRouter configures all routes
func SetupRouter(handler *Handler) *gin.Engine {
	router := gin.Default()

	// Request logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Msg("request processed")
	})

	router.GET("/card/:barcode", handler.GetCard)
	router.GET("/transactions/:barcode", handler.GetTransactions)
	router.POST("/top-up", handler.Purchase)
	router.GET("/healthcheck", handler.HealthCheck)

	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := config.Load(""); err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	baseURL := config.Get().TerminalAPIBaseURL
	if baseURL == "" {
		baseURL = "http://127.0.0.1" + config.Get().HttpListenAddr
	}

	client := gateway.NewClient(gateway.DefaultClientConfig(baseURL))
	handler := NewHandler(client)
	router := SetupRouter(handler)

	addr := config.Get().TerminalListenAddr
	log.Info().Str("addr", addr).Str("gateway", baseURL).Msg("terminal listening")
	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("terminal server stopped")
	}
}
