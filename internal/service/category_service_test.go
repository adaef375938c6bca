package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryService_List(t *testing.T) {
	store := newMemStore()
	store.addProduct("Ring", "10.00", "jewelery")
	store.addProduct("Phone", "100.00", "electronics")

	categories, err := NewCategoryService(store).List(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "electronics", categories[0].Name)
	assert.Equal(t, "jewelery", categories[1].Name)
}
