package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shirtVariants() []Variant {
	return []Variant{
		{
			ID:    "gid://shopify/ProductVariant/1",
			Title: "S / Red",
			SelectedOptions: []Option{
				{Name: "Size", Value: "S"},
				{Name: "Color", Value: "Red"},
			},
		},
		{
			ID:    "gid://shopify/ProductVariant/2",
			Title: "M / Red",
			SelectedOptions: []Option{
				{Name: "Size", Value: "M"},
				{Name: "Color", Value: "Red"},
			},
		},
		{
			ID:    "gid://shopify/ProductVariant/3",
			Title: "M / Blue",
			SelectedOptions: []Option{
				{Name: "Size", Value: "M"},
				{Name: "Color", Value: "Blue"},
			},
		},
	}
}

func TestMatchVariant(t *testing.T) {
	tests := []struct {
		name    string
		options []Option
		wantID  string
		wantOK  bool
	}{
		{
			name:    "exact match on all options",
			options: []Option{{Name: "Size", Value: "M"}, {Name: "Color", Value: "Blue"}},
			wantID:  "gid://shopify/ProductVariant/3",
			wantOK:  true,
		},
		{
			name:    "subset returns first match in API order",
			options: []Option{{Name: "Size", Value: "M"}},
			wantID:  "gid://shopify/ProductVariant/2",
			wantOK:  true,
		},
		{
			name:    "name and value are case insensitive",
			options: []Option{{Name: "size", Value: "m"}, {Name: "COLOR", Value: "blue"}},
			wantID:  "gid://shopify/ProductVariant/3",
			wantOK:  true,
		},
		{
			name:    "order of requested options does not matter",
			options: []Option{{Name: "Color", Value: "Red"}, {Name: "Size", Value: "S"}},
			wantID:  "gid://shopify/ProductVariant/1",
			wantOK:  true,
		},
		{
			name:    "unknown value",
			options: []Option{{Name: "Size", Value: "XXL"}},
			wantOK:  false,
		},
		{
			name:    "unknown option name",
			options: []Option{{Name: "Material", Value: "Cotton"}},
			wantOK:  false,
		},
		{
			name:    "one option of the pair does not match",
			options: []Option{{Name: "Size", Value: "S"}, {Name: "Color", Value: "Blue"}},
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			variant, ok := matchVariant(shirtVariants(), tt.options)

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantID, variant.ID)
			}
		})
	}
}

func TestResolveVariant(t *testing.T) {
	// Arrange
	mockRepo := new(MockRepository)
	ctx := context.Background()
	mockRepo.On("GetProductVariants", ctx, "shirt").Return(shirtVariants(), nil)
	resolver := NewVariantResolver(mockRepo)

	// Act
	variant, err := resolver.ResolveVariant(ctx, "shirt", []Option{{Name: "Size", Value: "S"}})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/ProductVariant/1", variant.ID)
	mockRepo.AssertExpectations(t)
}

func TestResolveVariant_NotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	ctx := context.Background()
	mockRepo.On("GetProductVariants", ctx, "shirt").Return(shirtVariants(), nil)
	mockRepo.On("GetProductVariants", ctx, "ghost").Return([]Variant(nil), nil)
	resolver := NewVariantResolver(mockRepo)

	_, err := resolver.ResolveVariant(ctx, "shirt", []Option{{Name: "Size", Value: "XXL"}})
	require.Error(t, err)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "Variant not found for handle 'shirt' with options [Size=XXL]", err.Error())

	_, err = resolver.ResolveVariant(ctx, "ghost", []Option{{Name: "Size", Value: "M"}})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestResolveVariant_RemoteError(t *testing.T) {
	mockRepo := new(MockRepository)
	ctx := context.Background()
	remoteErr := newRemoteError("Error communicating with Shopify storefront API", assert.AnError)
	mockRepo.On("GetProductVariants", ctx, "shirt").Return([]Variant(nil), remoteErr)

	_, err := NewVariantResolver(mockRepo).ResolveVariant(ctx, "shirt", []Option{{Name: "Size", Value: "M"}})

	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, KindRemote, KindOf(err))
}
