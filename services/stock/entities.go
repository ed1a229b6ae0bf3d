package main

import "strings"

const (
	StockMetafieldNamespace = "custom"
	StockMetafieldKey       = "store_stock"
	StockMetafieldType      = "number_integer"
)

// Option representa um par nome/valor selecionado (ex: Size=M)
type Option struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value" binding:"required"`
}

func (o Option) String() string {
	return o.Name + "=" + o.Value
}

// Options formata uma lista de opções para logs e mensagens de erro
type Options []Option

func (opts Options) String() string {
	parts := make([]string, 0, len(opts))
	for _, o := range opts {
		parts = append(parts, o.String())
	}
	return strings.Join(parts, ", ")
}

// Variant representa uma variante de produto vinda da Storefront API
type Variant struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	SelectedOptions []Option `json:"selectedOptions"`
}

// InventoryLevel é a quantidade "available" de uma variante em uma location
type InventoryLevel struct {
	LocationID   string
	LocationName string
	Available    int
}

// VariantLookupRequest é o corpo de /get-variant-id e /sync-variant-stock
type VariantLookupRequest struct {
	Handle          string   `json:"handle" binding:"required"`
	SelectedOptions []Option `json:"selectedOptions" binding:"required,min=1,dive"`
}

// DecreaseStockRequest é o corpo de /decrease-variant-stock.
// DecreaseBy é mantido cru para aceitar número, string ou ausência.
type DecreaseStockRequest struct {
	Handle          string   `json:"handle" binding:"required"`
	SelectedOptions []Option `json:"selectedOptions" binding:"required,min=1,dive"`
	DecreaseBy      any      `json:"decreaseBy"`
}

// DecreaseStockResult é o resultado de um decremento bem sucedido
type DecreaseStockResult struct {
	Message       string   `json:"message"`
	VariantGID    string   `json:"variantGid"`
	ProductHandle string   `json:"productHandle"`
	Options       []Option `json:"options"`
	OldStock      int      `json:"oldStock"`
	NewStock      int      `json:"newStock"`
	DecreasedBy   int      `json:"decreasedBy"`
}

// SyncStockResult é o resultado de uma sincronização bem sucedida
type SyncStockResult struct {
	Message               string   `json:"message"`
	ProductHandle         string   `json:"productHandle"`
	InventorySourceHandle string   `json:"inventorySourceHandle"`
	Options               []Option `json:"options"`
	MetafieldOwnerGID     string   `json:"metafieldOwnerGid"`
	NewStock              int      `json:"newStock"`
}
