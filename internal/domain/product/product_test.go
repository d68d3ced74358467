package product

import (
	"testing"

	"github.com/example/ec-fulfillment/internal/apperr"
	"github.com/stretchr/testify/assert"
)

func TestProduct_IsLowOnStock(t *testing.T) {
	tests := []struct {
		stock, threshold int
		want             bool
	}{
		{5, 3, false},
		{3, 3, true},
		{2, 3, true},
		{0, 0, true},
		{1, 0, false},
	}

	for _, tt := range tests {
		p := &Product{Stock: tt.stock, StockThreshold: tt.threshold}
		assert.Equal(t, tt.want, p.IsLowOnStock(), "stock=%d threshold=%d", tt.stock, tt.threshold)
	}
}

func TestErrors_Kinds(t *testing.T) {
	assert.ErrorIs(t, ErrProductNotFound, apperr.ErrNotFound)
	assert.ErrorIs(t, ErrProductUnavailable, apperr.ErrValidation)
	assert.EqualError(t, ErrProductNotFound, "product not found")
}
