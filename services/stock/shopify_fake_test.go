package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/r0busta/go-shopify-graphql-model/v4/graph/model"
	"go.opentelemetry.io/otel"
)

// fakeShopify simula a Storefront API e a Admin API em um único servidor
type fakeShopify struct {
	mu sync.Mutex

	products   map[string][]Variant
	metafields map[string]string
	inventory  map[string][]int // "available" por location
	userErrors []model.MetafieldsSetUserError

	writes        []metafieldWrite
	requests      []recordedRequest
	server        *httptest.Server
	storefrontURL string
	adminURL      string
}

// metafieldWrite é o MetafieldsSetInput como chegou no corpo da mutation
type metafieldWrite struct {
	OwnerID   string `json:"ownerId"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

type recordedRequest struct {
	Path    string
	Headers http.Header
	Body    graphqlRequest
}

func newFakeShopify(t *testing.T) *fakeShopify {
	t.Helper()

	f := &fakeShopify{
		products:   make(map[string][]Variant),
		metafields: make(map[string]string),
		inventory:  make(map[string][]int),
	}
	f.server = httptest.NewServer(http.HandlerFunc(f.serve))
	f.storefrontURL = f.server.URL + "/api/2025-01/graphql.json"
	f.adminURL = f.server.URL + "/admin/api/2025-01/graphql.json"
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeShopify) storefront() Endpoint {
	return Endpoint{Name: "storefront", URL: f.storefrontURL, TokenHeader: storefrontTokenHeader, Token: "sf-token"}
}

func (f *fakeShopify) admin() Endpoint {
	return Endpoint{Name: "admin", URL: f.adminURL, TokenHeader: adminTokenHeader, Token: "admin-token"}
}

func (f *fakeShopify) repository() StockRepository {
	client := NewGraphQLClient(defaultTestTimeout, otel.Tracer("test"))
	return NewShopifyRepository(client, f.storefront(), f.admin())
}

func (f *fakeShopify) stock(variantID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.metafields[variantID]
	return v, ok
}

func (f *fakeShopify) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeShopify) lastWrite() metafieldWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[len(f.writes)-1]
}

func (f *fakeShopify) serve(w http.ResponseWriter, r *http.Request) {
	var req graphqlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, recordedRequest{Path: r.URL.Path, Headers: r.Header.Clone(), Body: req})

	var data any
	switch {
	case strings.Contains(req.Query, "VariantsByHandle"):
		data = f.variantsByHandle(req.Variables["handle"].(string))
	case strings.Contains(req.Query, "SetVariantStock"):
		data = f.setVariantStock(req.Variables["metafields"])
	case strings.Contains(req.Query, "VariantStock("):
		data = f.variantStock(req.Variables["id"].(string))
	case strings.Contains(req.Query, "VariantInventory"):
		data = f.variantInventory(req.Variables["id"].(string))
	default:
		http.Error(w, "unknown operation", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func (f *fakeShopify) variantsByHandle(handle string) any {
	variants, ok := f.products[handle]
	if !ok {
		return map[string]any{"product": nil}
	}
	edges := make([]any, 0, len(variants))
	for _, v := range variants {
		edges = append(edges, map[string]any{"node": v})
	}
	return map[string]any{"product": map[string]any{
		"id":       "gid://shopify/Product/" + handle,
		"handle":   handle,
		"variants": map[string]any{"edges": edges},
	}}
}

func (f *fakeShopify) knownVariant(id string) bool {
	for _, variants := range f.products {
		for _, v := range variants {
			if v.ID == id {
				return true
			}
		}
	}
	return false
}

func (f *fakeShopify) variantStock(id string) any {
	if !f.knownVariant(id) {
		return map[string]any{"productVariant": nil}
	}
	var metafield any
	if value, ok := f.metafields[id]; ok {
		metafield = map[string]any{"id": "gid://shopify/Metafield/" + id, "value": value}
	}
	return map[string]any{"productVariant": map[string]any{"id": id, "metafield": metafield}}
}

func (f *fakeShopify) variantInventory(id string) any {
	if !f.knownVariant(id) {
		return map[string]any{"productVariant": nil}
	}
	edges := []any{}
	for i, qty := range f.inventory[id] {
		edges = append(edges, map[string]any{"node": map[string]any{
			"location": map[string]any{"id": "gid://shopify/Location/" + string(rune('A'+i)), "name": "Location"},
			"quantities": []any{
				map[string]any{"name": "available", "quantity": qty},
			},
		}})
	}
	return map[string]any{"productVariant": map[string]any{
		"id": id,
		"inventoryItem": map[string]any{
			"id":              "gid://shopify/InventoryItem/" + id,
			"inventoryLevels": map[string]any{"edges": edges},
		},
	}}
}

func (f *fakeShopify) setVariantStock(raw any) any {
	if len(f.userErrors) > 0 {
		return map[string]any{"metafieldsSet": map[string]any{
			"metafields": []any{},
			"userErrors": f.userErrors,
		}}
	}

	b, _ := json.Marshal(raw)
	var inputs []metafieldWrite
	_ = json.Unmarshal(b, &inputs)

	out := make([]any, 0, len(inputs))
	for _, in := range inputs {
		f.writes = append(f.writes, in)
		f.metafields[in.OwnerID] = in.Value
		out = append(out, map[string]any{"id": "gid://shopify/Metafield/" + in.OwnerID, "namespace": in.Namespace, "key": in.Key, "value": in.Value})
	}
	return map[string]any{"metafieldsSet": map[string]any{
		"metafields": out,
		"userErrors": []any{},
	}}
}
