package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StockUseCase contém a lógica de negócio de estoque de variantes
type StockUseCase struct {
	resolver     *VariantResolver
	repository   StockRepository
	locker       VariantLocker
	sourceHandle func(handle string) string
	tracer       trace.Tracer

	decreaseCounter  metric.Int64Counter
	rejectionCounter metric.Int64Counter
	syncCounter      metric.Int64Counter
}

// NewStockUseCase cria uma nova instância de StockUseCase.
// sourceHandle mapeia o handle alvo para o handle cujo inventário real é lido.
func NewStockUseCase(
	repository StockRepository,
	locker VariantLocker,
	sourceHandle func(handle string) string,
	tracer trace.Tracer,
) *StockUseCase {
	meter := otel.Meter("variant-stock-service")
	decreaseCounter, _ := meter.Int64Counter("stock.decrements",
		metric.WithDescription("Successful custom stock decrements"))
	rejectionCounter, _ := meter.Int64Counter("stock.decrement_rejections",
		metric.WithDescription("Decrements rejected for insufficient stock"))
	syncCounter, _ := meter.Int64Counter("stock.syncs",
		metric.WithDescription("Custom stock synchronizations from inventory levels"))

	return &StockUseCase{
		resolver:         NewVariantResolver(repository),
		repository:       repository,
		locker:           locker,
		sourceHandle:     sourceHandle,
		tracer:           tracer,
		decreaseCounter:  decreaseCounter,
		rejectionCounter: rejectionCounter,
		syncCounter:      syncCounter,
	}
}

// GetVariantID resolve a variante usando apenas a Storefront API
func (uc *StockUseCase) GetVariantID(ctx context.Context, handle string, options []Option) (string, error) {
	ctx, span := uc.tracer.Start(ctx, "stock.GetVariantID")
	defer span.End()

	variant, err := uc.resolver.ResolveVariant(ctx, handle, options)
	if err != nil {
		recordSpanError(span, err)
		return "", err
	}

	zerolog.Ctx(ctx).Info().
		Str("handle", handle).
		Str("variant_id", variant.ID).
		Msg("🔎 [LOOKUP] Variant resolved")
	return variant.ID, nil
}

// DecreaseStock diminui o metafield custom.store_stock da variante.
// O read-modify-write roda sob o lock da variante; escritores fora deste
// serviço ainda podem causar lost update.
func (uc *StockUseCase) DecreaseStock(ctx context.Context, handle string, options []Option, decreaseBy int) (*DecreaseStockResult, error) {
	ctx, span := uc.tracer.Start(ctx, "stock.DecreaseStock")
	defer span.End()

	logger := zerolog.Ctx(ctx)
	logger.Info().
		Str("handle", handle).
		Str("options", Options(options).String()).
		Int("decrease_by", decreaseBy).
		Msg("➡️ [DECREASE STOCK] Request received")

	if decreaseBy <= 0 {
		return nil, newValidationError("decreaseBy must be a positive integer")
	}

	// 1. Resolve a variante
	variant, err := uc.resolver.ResolveVariant(ctx, handle, options)
	if err != nil {
		logger.Error().Err(err).Msg("❌ DECREASE FAILED: ResolveVariant")
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("variant_id", variant.ID))

	// 2. Lock da variante até a escrita terminar
	unlock, err := uc.locker.Lock(ctx, variant.ID)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer unlock()

	// 3. Lê o estoque atual
	current, err := uc.readCurrentStock(ctx, variant.ID)
	if err != nil {
		logger.Error().Err(err).Str("variant_id", variant.ID).Msg("❌ DECREASE FAILED: read current stock")
		recordSpanError(span, err)
		return nil, err
	}

	// 4. Regra de negócio: nunca abaixo de zero
	newStock := current - decreaseBy
	if newStock < 0 {
		uc.rejectionCounter.Add(ctx, 1)
		logger.Warn().
			Str("variant_id", variant.ID).
			Int("current_stock", current).
			Int("decrease_by", decreaseBy).
			Msg("❌ DECREASE FAILED: Insufficient stock")
		err := newInsufficientStockError(current, decreaseBy)
		recordSpanError(span, err)
		return nil, err
	}

	// 5. Grava o novo valor
	if _, err := uc.repository.SetVariantStock(ctx, variant.ID, newStock); err != nil {
		logger.Error().Err(err).Str("variant_id", variant.ID).Msg("❌ DECREASE FAILED: SetVariantStock")
		recordSpanError(span, err)
		return nil, err
	}

	uc.decreaseCounter.Add(ctx, 1)
	logger.Info().
		Str("variant_id", variant.ID).
		Int("old_stock", current).
		Int("new_stock", newStock).
		Msg("✅ [DECREASE] Success")

	return &DecreaseStockResult{
		Message:       "Stock decreased successfully",
		VariantGID:    variant.ID,
		ProductHandle: handle,
		Options:       options,
		OldStock:      current,
		NewStock:      newStock,
		DecreasedBy:   decreaseBy,
	}, nil
}

// SyncStock sobrescreve o metafield da variante alvo com o inventário
// "available" somado da variante de origem
func (uc *StockUseCase) SyncStock(ctx context.Context, handle string, options []Option) (*SyncStockResult, error) {
	ctx, span := uc.tracer.Start(ctx, "stock.SyncStock")
	defer span.End()

	sourceHandle := uc.sourceHandle(handle)
	logger := zerolog.Ctx(ctx).With().
		Str("handle", handle).
		Str("source_handle", sourceHandle).
		Logger()
	logger.Info().Str("options", Options(options).String()).Msg("🔄 [SYNC STOCK] Request received")

	target, err := uc.resolver.ResolveVariant(ctx, handle, options)
	if err != nil {
		logger.Error().Err(err).Msg("❌ SYNC FAILED: resolve target variant")
		recordSpanError(span, err)
		return nil, err
	}

	source, err := uc.resolver.ResolveVariant(ctx, sourceHandle, options)
	if err != nil {
		logger.Error().Err(err).Msg("❌ SYNC FAILED: resolve source variant")
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("target_variant_id", target.ID),
		attribute.String("source_variant_id", source.ID),
	)

	available, err := uc.ReadAvailableInventory(ctx, source.ID)
	if err != nil {
		logger.Error().Err(err).Msg("❌ SYNC FAILED: read source inventory")
		recordSpanError(span, err)
		return nil, err
	}

	unlock, err := uc.locker.Lock(ctx, target.ID)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	defer unlock()

	if _, err := uc.repository.SetVariantStock(ctx, target.ID, available); err != nil {
		logger.Error().Err(err).Str("variant_id", target.ID).Msg("❌ SYNC FAILED: SetVariantStock")
		recordSpanError(span, err)
		return nil, err
	}

	uc.syncCounter.Add(ctx, 1)
	logger.Info().
		Str("variant_id", target.ID).
		Int("new_stock", available).
		Msg("✅ [SYNC] Success")

	return &SyncStockResult{
		Message:               "Stock synchronized successfully",
		ProductHandle:         handle,
		InventorySourceHandle: sourceHandle,
		Options:               options,
		MetafieldOwnerGID:     target.ID,
		NewStock:              available,
	}, nil
}

// ReadAvailableInventory soma a quantidade "available" de todas as locations.
// Variante sem níveis de inventário devolve 0; soma negativa vira 0.
func (uc *StockUseCase) ReadAvailableInventory(ctx context.Context, variantID string) (int, error) {
	ctx, span := uc.tracer.Start(ctx, "stock.ReadAvailableInventory")
	defer span.End()

	levels, err := uc.repository.GetInventoryLevels(ctx, variantID)
	if err != nil {
		recordSpanError(span, err)
		return 0, err
	}

	logger := zerolog.Ctx(ctx)
	if len(levels) == 0 {
		logger.Warn().Str("variant_id", variantID).Msg("⚠️ [INVENTORY] No inventory levels found, using 0")
		return 0, nil
	}

	total := 0
	for _, level := range levels {
		total += level.Available
	}
	span.SetAttributes(
		attribute.Int("inventory.locations", len(levels)),
		attribute.Int("inventory.available", total),
	)

	if total < 0 {
		logger.Warn().
			Str("variant_id", variantID).
			Int("available", total).
			Msg("⚠️ [INVENTORY] Negative available inventory, using 0")
		return 0, nil
	}
	return total, nil
}

// readCurrentStock lê e valida o metafield custom.store_stock
func (uc *StockUseCase) readCurrentStock(ctx context.Context, variantID string) (int, error) {
	field, err := uc.repository.GetVariantStock(ctx, variantID)
	if err != nil {
		return 0, err
	}
	if field == nil {
		return 0, newNotFoundError("Metafield %s.%s not found for variant %s",
			StockMetafieldNamespace, StockMetafieldKey, variantID)
	}

	current, ok := parseStockValue(field.Value)
	if !ok {
		return 0, newNotFoundError("Metafield %s.%s for variant %s has invalid value '%s'",
			StockMetafieldNamespace, StockMetafieldKey, variantID, field.Value)
	}
	return current, nil
}

// parseStockValue aceita apenas inteiros base 10 não negativos
func parseStockValue(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, fmt.Sprintf("%s: %s", KindOf(err), err.Error()))
}
