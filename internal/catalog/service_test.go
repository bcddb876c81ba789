package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/backend-pos/internal/catalog"
)

func setupService(t *testing.T) *catalog.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	svc, err := catalog.NewService(db)
	require.NoError(t, err)
	return svc
}

func TestAddAndList(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "Coffee", 250)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "Muffin", 300)
	require.NoError(t, err)

	products, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Coffee", products[0].Name)
	assert.Equal(t, int64(250), products[0].Price)
	assert.Equal(t, "Muffin", products[1].Name)
}

func TestAddValidation(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "", 100)
	require.ErrorIs(t, err, catalog.ErrInvalidInput)
	_, err = svc.Add(ctx, "Tea", 0)
	require.ErrorIs(t, err, catalog.ErrInvalidInput)
	_, err = svc.Add(ctx, "Tea", -50)
	require.ErrorIs(t, err, catalog.ErrInvalidInput)
}

func TestAddRejectsDuplicateNameCaseInsensitive(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "Coffee", 250)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "coffee", 300)
	require.ErrorIs(t, err, catalog.ErrInvalidInput)

	products, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestGet(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, "Coffee", 250)
	require.NoError(t, err)

	got, err := svc.Get(ctx, "COFFEE")
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.Price)

	_, err = svc.Get(ctx, "Espresso")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestRemove(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, "Coffee", 250)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "Coffee"))
	err = svc.Remove(ctx, "Coffee")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	products, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestListEmptyStore(t *testing.T) {
	svc := setupService(t)
	products, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, products)
}
