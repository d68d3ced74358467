package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"plain", errors.New("boom"), nil},
		{"direct", ErrForbidden, ErrForbidden},
		{"wrapped sentinel", fmt.Errorf("order %w", ErrNotFound), ErrNotFound},
		{"double wrapped", fmt.Errorf("reduce: %w", fmt.Errorf("%w: p1", ErrInsufficientStock)), ErrInsufficientStock},
		{"validation helper", Validation("zip too long"), ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestValidation_Message(t *testing.T) {
	err := Validation("quantity must be positive")
	assert.EqualError(t, err, "validation failed: quantity must be positive")
	assert.ErrorIs(t, err, ErrValidation)
}
