package main

import (
	"context"
	"strings"
)

// VariantResolver encontra a variante identificada por um conjunto de opções
type VariantResolver struct {
	repository StockRepository
}

// NewVariantResolver cria uma nova instância de VariantResolver
func NewVariantResolver(repository StockRepository) *VariantResolver {
	return &VariantResolver{repository: repository}
}

// ResolveVariant busca as variantes do handle e devolve a primeira cujas
// opções contêm todas as opções pedidas
func (r *VariantResolver) ResolveVariant(ctx context.Context, handle string, options []Option) (Variant, error) {
	variants, err := r.repository.GetProductVariants(ctx, handle)
	if err != nil {
		return Variant{}, err
	}

	variant, ok := matchVariant(variants, options)
	if !ok {
		return Variant{}, newNotFoundError("Variant not found for handle '%s' with options [%s]", handle, Options(options))
	}
	return variant, nil
}

// matchVariant devolve a primeira variante, na ordem recebida, que satisfaz
// todas as opções. Nome e valor são comparados sem diferenciar maiúsculas.
func matchVariant(variants []Variant, options []Option) (Variant, bool) {
	for _, variant := range variants {
		if hasAllOptions(variant.SelectedOptions, options) {
			return variant, true
		}
	}
	return Variant{}, false
}

func hasAllOptions(have, want []Option) bool {
	for _, w := range want {
		found := false
		for _, h := range have {
			if sameOption(h, w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sameOption(a, b Option) bool {
	return strings.EqualFold(strings.TrimSpace(a.Name), strings.TrimSpace(b.Name)) &&
		strings.EqualFold(strings.TrimSpace(a.Value), strings.TrimSpace(b.Value))
}
