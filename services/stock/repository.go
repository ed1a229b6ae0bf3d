package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/r0busta/go-shopify-graphql-model/v4/graph/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	storefrontTokenHeader = "X-Shopify-Storefront-Access-Token"
	adminTokenHeader      = "X-Shopify-Access-Token"
)

// StockRepository define as operações na plataforma remota usadas pelos use cases
type StockRepository interface {
	GetProductVariants(ctx context.Context, handle string) ([]Variant, error)
	GetVariantStock(ctx context.Context, variantID string) (*model.Metafield, error)
	GetInventoryLevels(ctx context.Context, variantID string) ([]InventoryLevel, error)
	SetVariantStock(ctx context.Context, variantID string, quantity int) (int, error)
}

// Endpoint é um endpoint GraphQL com seu header de autenticação
type Endpoint struct {
	Name        string
	URL         string
	TokenHeader string
	Token       string
}

// StorefrontEndpoint monta o endpoint da Storefront API a partir da configuração
func StorefrontEndpoint(cfg *Config) Endpoint {
	return Endpoint{
		Name:        "storefront",
		URL:         fmt.Sprintf("https://%s/api/%s/graphql.json", cfg.StoreDomain, cfg.APIVersion),
		TokenHeader: storefrontTokenHeader,
		Token:       cfg.StorefrontToken,
	}
}

// AdminEndpoint monta o endpoint da Admin API a partir da configuração
func AdminEndpoint(cfg *Config) Endpoint {
	return Endpoint{
		Name:        "admin",
		URL:         fmt.Sprintf("https://%s/admin/api/%s/graphql.json", cfg.StoreDomain, cfg.APIVersion),
		TokenHeader: adminTokenHeader,
		Token:       cfg.AdminToken,
	}
}

// GraphQLClient executa queries e mutations GraphQL com uma única tentativa
type GraphQLClient struct {
	http     *resty.Client
	tracer   trace.Tracer
	requests metric.Int64Counter
}

// NewGraphQLClient cria um cliente com timeout por requisição
func NewGraphQLClient(timeout time.Duration, tracer trace.Tracer) *GraphQLClient {
	requests, _ := otel.Meter("variant-stock-service").Int64Counter(
		"shopify.graphql.requests",
		metric.WithDescription("GraphQL calls issued to the platform"),
	)

	return &GraphQLClient{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		tracer:   tracer,
		requests: requests,
	}
}

// Execute envia um POST GraphQL e decodifica "data" em out.
// Falhas de transporte, status não-2xx e erros GraphQL viram KindRemote.
func (c *GraphQLClient) Execute(ctx context.Context, ep Endpoint, query string, variables map[string]any, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "shopify.graphql."+ep.Name, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("http.url", ep.URL),
		attribute.String("http.method", "POST"),
	)

	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		c.requests.Add(ctx, 1, metric.WithAttributes(
			attribute.String("endpoint", ep.Name),
			attribute.String("outcome", outcome),
		))
	}()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(ep.TokenHeader, ep.Token).
		SetBody(graphqlRequest{Query: query, Variables: variables}).
		Post(ep.URL)
	if err != nil {
		return newRemoteError(fmt.Sprintf("Error communicating with Shopify %s API", ep.Name), err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return newRemoteError(
			fmt.Sprintf("Error communicating with Shopify %s API", ep.Name),
			fmt.Errorf("status %s: %s", resp.Status(), strings.TrimSpace(string(resp.Body()))),
		)
	}

	var envelope graphqlResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return newRemoteError(fmt.Sprintf("Invalid response from Shopify %s API", ep.Name), err)
	}

	if len(envelope.Errors) > 0 {
		messages := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			messages = append(messages, e.Message)
		}
		return newRemoteError(
			fmt.Sprintf("Shopify %s API returned errors", ep.Name),
			fmt.Errorf("graphql: %s", strings.Join(messages, "; ")),
		)
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return newRemoteError(fmt.Sprintf("Invalid response from Shopify %s API", ep.Name), err)
	}
	return nil
}

// ShopifyRepository implementa StockRepository usando as APIs GraphQL da Shopify
type ShopifyRepository struct {
	client     *GraphQLClient
	storefront Endpoint
	admin      Endpoint
}

// NewShopifyRepository cria uma nova instância de ShopifyRepository
func NewShopifyRepository(client *GraphQLClient, storefront, admin Endpoint) StockRepository {
	return &ShopifyRepository{
		client:     client,
		storefront: storefront,
		admin:      admin,
	}
}

// GetProductVariants busca até 100 variantes do produto. Produto inexistente
// devolve lista vazia.
func (r *ShopifyRepository) GetProductVariants(ctx context.Context, handle string) ([]Variant, error) {
	var data variantsByHandleData
	err := r.client.Execute(ctx, r.storefront, variantsByHandleQuery, map[string]any{
		"handle": handle,
	}, &data)
	if err != nil {
		return nil, err
	}

	if data.Product == nil {
		return nil, nil
	}

	variants := make([]Variant, 0, len(data.Product.Variants.Edges))
	for _, edge := range data.Product.Variants.Edges {
		variants = append(variants, edge.Node)
	}
	return variants, nil
}

// GetVariantStock lê o metafield custom.store_stock. Metafield ausente devolve nil.
func (r *ShopifyRepository) GetVariantStock(ctx context.Context, variantID string) (*model.Metafield, error) {
	var data adminVariantData
	err := r.client.Execute(ctx, r.admin, variantStockQuery, map[string]any{
		"id":        variantID,
		"namespace": StockMetafieldNamespace,
		"key":       StockMetafieldKey,
	}, &data)
	if err != nil {
		return nil, err
	}

	if data.ProductVariant == nil {
		return nil, newNotFoundError("Variant %s not found", variantID)
	}
	return data.ProductVariant.Metafield, nil
}

// GetInventoryLevels busca a quantidade "available" por location
func (r *ShopifyRepository) GetInventoryLevels(ctx context.Context, variantID string) ([]InventoryLevel, error) {
	var data adminVariantData
	err := r.client.Execute(ctx, r.admin, variantInventoryQuery, map[string]any{
		"id": variantID,
	}, &data)
	if err != nil {
		return nil, err
	}

	if data.ProductVariant == nil {
		return nil, newNotFoundError("Variant %s not found", variantID)
	}
	item := data.ProductVariant.InventoryItem
	if item == nil || item.InventoryLevels == nil {
		return nil, nil
	}

	levels := make([]InventoryLevel, 0, len(item.InventoryLevels.Edges))
	for _, edge := range item.InventoryLevels.Edges {
		if edge.Node == nil {
			continue
		}
		level := InventoryLevel{}
		if edge.Node.Location != nil {
			level.LocationID = edge.Node.Location.ID
			level.LocationName = edge.Node.Location.Name
		}
		for _, q := range edge.Node.Quantities {
			if q.Name == "available" {
				level.Available = q.Quantity
				break
			}
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// SetVariantStock grava o metafield via metafieldsSet (cria ou atualiza por
// owner+namespace+key)
func (r *ShopifyRepository) SetVariantStock(ctx context.Context, variantID string, quantity int) (int, error) {
	var data metafieldsSetData
	err := r.client.Execute(ctx, r.admin, setVariantStockMutation, map[string]any{
		"metafields": []model.MetafieldsSetInput{{
			OwnerID:   variantID,
			Namespace: model.NewString(StockMetafieldNamespace),
			Key:       StockMetafieldKey,
			Type:      model.NewString(StockMetafieldType),
			Value:     strconv.Itoa(quantity),
		}},
	}, &data)
	if err != nil {
		return 0, err
	}

	if data.MetafieldsSet == nil {
		return 0, newRemoteError("Invalid response from Shopify admin API", fmt.Errorf("metafieldsSet payload missing"))
	}
	if len(data.MetafieldsSet.UserErrors) > 0 {
		return 0, newMetafieldUpdateError(data.MetafieldsSet.UserErrors)
	}
	return quantity, nil
}
