package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuditorError(t *testing.T) {
	base := errors.New("connection refused")
	err := NewError(ErrorCategoryStore, "search policies", base)

	assert.Equal(t, "[store] search policies: connection refused", err.Error())
	assert.ErrorIs(t, err, base)
	assert.True(t, IsCategory(err, ErrorCategoryStore))
	assert.False(t, IsCategory(err, ErrorCategoryConfig))

	wrapped := fmt.Errorf("analyze: %w", err)
	category, ok := CategoryOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, ErrorCategoryStore, category)
}

func TestErrorf(t *testing.T) {
	err := Errorf(ErrorCategoryValidation, "", "content is required")
	assert.Equal(t, "[validation] content is required", err.Error())

	_, ok := CategoryOf(errors.New("plain"))
	assert.False(t, ok)
}
