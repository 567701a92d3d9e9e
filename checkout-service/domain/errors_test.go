package domain

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "validation", err: NewValidationError("order must contain at least one item"), want: ErrorKindValidation},
		{name: "wrapped not found", err: errors.Wrap(NewNotFoundError("product %s not found", "p-1"), "failed to reserve"), want: ErrorKindNotFound},
		{name: "inventory", err: NewInsufficientInventoryError(3, 10), want: ErrorKindInsufficientInventory},
		{name: "conflict", err: errors.WithStack(NewConflictError("stale")), want: ErrorKindConflict},
		{name: "plain error", err: errors.New("db down"), want: ErrorKindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
			assert.True(t, IsKind(tt.err, tt.want))
		})
	}

	assert.False(t, IsKind(nil, ErrorKindInternal))
}

func TestInsufficientInventoryMessage(t *testing.T) {
	err := errors.Wrap(NewInsufficientInventoryError(3, 10), "failed to reserve inventory")
	assert.EqualError(t, err, "failed to reserve inventory: insufficient inventory. available: 3, requested: 10")
}
