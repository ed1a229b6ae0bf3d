package main

import (
	"encoding/json"

	"github.com/r0busta/go-shopify-graphql-model/v4/graph/model"
)

// Storefront API
const variantsByHandleQuery = `
query VariantsByHandle($handle: String!) {
  product(handle: $handle) {
    id
    handle
    variants(first: 100) {
      edges {
        node {
          id
          title
          selectedOptions {
            name
            value
          }
        }
      }
    }
  }
}`

// Admin API
const variantStockQuery = `
query VariantStock($id: ID!, $namespace: String!, $key: String!) {
  productVariant(id: $id) {
    id
    metafield(namespace: $namespace, key: $key) {
      id
      value
    }
  }
}`

const variantInventoryQuery = `
query VariantInventory($id: ID!) {
  productVariant(id: $id) {
    id
    inventoryItem {
      id
      inventoryLevels(first: 100) {
        edges {
          node {
            location {
              id
              name
            }
            quantities(names: ["available"]) {
              name
              quantity
            }
          }
        }
      }
    }
  }
}`

const setVariantStockMutation = `
mutation SetVariantStock($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields {
      id
      namespace
      key
      value
    }
    userErrors {
      field
      message
      code
    }
  }
}`

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// Storefront API: product(handle:) e selectedOptions não existem com esse
// formato no schema Admin, então o envelope é próprio
type variantsByHandleData struct {
	Product *struct {
		ID       string `json:"id"`
		Handle   string `json:"handle"`
		Variants struct {
			Edges []struct {
				Node Variant `json:"node"`
			} `json:"edges"`
		} `json:"variants"`
	} `json:"product"`
}

// Admin API: productVariant, metafield e inventoryLevels seguem o schema
// modelado em graph/model
type adminVariantData struct {
	ProductVariant *model.ProductVariant `json:"productVariant"`
}

type metafieldsSetData struct {
	MetafieldsSet *struct {
		Metafields []model.Metafield              `json:"metafields"`
		UserErrors []model.MetafieldsSetUserError `json:"userErrors"`
	} `json:"metafieldsSet"`
}
