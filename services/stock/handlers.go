package main

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const invalidLookupBodyMessage = "Missing or invalid 'handle' or 'selectedOptions' in request body"

// StockUseCaseInterface define a interface para o use case
type StockUseCaseInterface interface {
	GetVariantID(ctx context.Context, handle string, options []Option) (string, error)
	DecreaseStock(ctx context.Context, handle string, options []Option, decreaseBy int) (*DecreaseStockResult, error)
	SyncStock(ctx context.Context, handle string, options []Option) (*SyncStockResult, error)
}

// StockHandler contém os handlers HTTP de estoque
type StockHandler struct {
	useCase     StockUseCaseInterface
	tracer      trace.Tracer
	serviceName string
}

// NewStockHandler cria uma nova instância de StockHandler
func NewStockHandler(useCase StockUseCaseInterface, tracer trace.Tracer, serviceName string) *StockHandler {
	return &StockHandler{
		useCase:     useCase,
		tracer:      tracer,
		serviceName: serviceName,
	}
}

// RegisterRoutes registra as rotas do serviço no router
func (h *StockHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.HealthCheck)
	r.POST("/get-variant-id", h.GetVariantID)
	r.POST("/decrease-variant-stock", h.DecreaseVariantStock)
	r.POST("/sync-variant-stock", h.SyncVariantStock)
}

// GetVariantID resolve o id da variante (somente Storefront API)
func (h *StockHandler) GetVariantID(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "get_variant_id")
	defer span.End()

	var req VariantLookupRequest
	if err := bindLookup(c, &req); err != nil {
		recordFailure(span, err)
		respondError(c, err)
		return
	}

	span.SetAttributes(attribute.String("handle", req.Handle))

	variantID, err := h.useCase.GetVariantID(ctx, req.Handle, req.SelectedOptions)
	if err != nil {
		recordFailure(span, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"variantId": variantID})
}

// DecreaseVariantStock diminui o metafield custom.store_stock da variante
func (h *StockHandler) DecreaseVariantStock(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "decrease_variant_stock")
	defer span.End()

	var req DecreaseStockRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Handle) == "" {
		err = newValidationError(invalidLookupBodyMessage)
		recordFailure(span, err)
		respondError(c, err)
		return
	}

	decreaseBy, err := parseDecreaseBy(req.DecreaseBy)
	if err != nil {
		recordFailure(span, err)
		respondError(c, err)
		return
	}

	span.SetAttributes(
		attribute.String("handle", req.Handle),
		attribute.Int("decrease_by", decreaseBy),
	)

	result, err := h.useCase.DecreaseStock(ctx, req.Handle, req.SelectedOptions, decreaseBy)
	if err != nil {
		recordFailure(span, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SyncVariantStock copia o inventário real do produto de origem para o
// metafield da variante alvo
func (h *StockHandler) SyncVariantStock(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "sync_variant_stock")
	defer span.End()

	var req VariantLookupRequest
	if err := bindLookup(c, &req); err != nil {
		recordFailure(span, err)
		respondError(c, err)
		return
	}

	span.SetAttributes(attribute.String("handle", req.Handle))

	result, err := h.useCase.SyncStock(ctx, req.Handle, req.SelectedOptions)
	if err != nil {
		recordFailure(span, err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Root responde ao liveness check
func (h *StockHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Variant stock service is running"})
}

// HealthCheck verifica a saúde do serviço
func (h *StockHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.serviceName,
	})
}

func bindLookup(c *gin.Context, req *VariantLookupRequest) error {
	if err := c.ShouldBindJSON(req); err != nil || strings.TrimSpace(req.Handle) == "" {
		return newValidationError(invalidLookupBodyMessage)
	}
	return nil
}

// parseDecreaseBy usa 1 quando o campo está ausente ou não é numérico.
// Números e strings numéricas são truncados; resultado <= 0 é rejeitado.
func parseDecreaseBy(raw any) (int, error) {
	value := 1

	switch v := raw.(type) {
	case float64:
		if n, ok := truncateToInt(v); ok {
			value = n
		}
	case json.Number:
		if f, err := v.Float64(); err == nil {
			if n, ok := truncateToInt(f); ok {
				value = n
			}
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			if n, ok := truncateToInt(f); ok {
				value = n
			}
		}
	}

	if value <= 0 {
		return 0, newValidationError("'decreaseBy' must be a positive integer")
	}
	return value, nil
}

func truncateToInt(f float64) (int, bool) {
	if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(math.Trunc(f)), true
}

// recordFailure marca o span do handler com o erro devolvido
func recordFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// respondError traduz o tipo do erro de domínio em status HTTP
func respondError(c *gin.Context, err error) {
	kind := KindOf(err)
	status := kind.StatusCode()

	logger := zerolog.Ctx(c.Request.Context())
	logger.Error().
		Err(err).
		Str("kind", kind.String()).
		Int("status", status).
		Msg("ℹ️ [STOCK] Request failed")

	switch kind {
	case KindValidation, KindNotFound, KindInsufficientStock:
		c.JSON(status, gin.H{"error": err.Error()})
	default:
		body := gin.H{
			"error":   "Internal server error",
			"details": err.Error(),
		}
		var stockErr *StockError
		if errors.As(err, &stockErr) && len(stockErr.UserErrors) > 0 {
			body["userErrors"] = stockErr.UserErrors
		}
		c.JSON(status, body)
	}
}
