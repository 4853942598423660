package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("Success_WrapPreservesChain", func(t *testing.T) {
		wrapped := Wrap(ErrKeyNotFound, "loading key")

		assert.True(t, Is(wrapped, ErrKeyNotFound))
		assert.True(t, Is(wrapped, ErrNotFound))
		assert.Equal(t, "loading key: not found: key not found", wrapped.Error())
	})

	t.Run("Success_WrapNilReturnsNil", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "context"))
	})
}

func TestKeyManagementKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		parent error
	}{
		{"InvalidTenantIsInvalidInput", ErrInvalidTenant, ErrInvalidInput},
		{"KeyNotFoundIsNotFound", ErrKeyNotFound, ErrNotFound},
		{"UnauthorizedAccessIsUnauthorized", ErrUnauthorizedAccess, ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Is(tt.err, tt.parent))
			assert.True(t, Is(fmt.Errorf("outer: %w", tt.err), tt.err))
		})
	}
}
