package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeShopDomain(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MyStore", "mystore.myshopify.com"},
		{"https://mystore.myshopify.com/", "mystore.myshopify.com"},
		{"  http://Shop.MyShopify.com ", "shop.myshopify.com"},
		{"mystore.myshopify.com", "mystore.myshopify.com"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeShopDomain(tt.in), tt.in)
	}
}
