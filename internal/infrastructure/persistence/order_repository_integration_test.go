//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/invoicer/internal/domain/invoicing"
	"github.com/erp/invoicer/internal/infrastructure/migration"
	"github.com/erp/invoicer/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("invoicer_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := open(postgres.Open(dsn), &databaseOptions{
		logger:   zap.NewNop(),
		logLevel: gormlogger.Silent,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())

	return db
}

func seedOrder(t *testing.T, db *gorm.DB, withAddress bool) uuid.UUID {
	t.Helper()
	now := time.Date(2024, 3, 5, 9, 30, 0, 0, time.UTC)

	customer := models.CustomerModel{
		BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
	}
	require.NoError(t, db.Create(&customer).Error)

	order := models.OrderModel{
		BaseModel:  models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		CustomerID: customer.ID,
		Validated:  true,
	}
	require.NoError(t, db.Create(&order).Error)

	if withAddress {
		require.NoError(t, db.Create(&models.BillingAddressModel{
			ID:      uuid.New(),
			OrderID: order.ID,
			Street:  "12 Rue de Rivoli",
			ZipCode: "75001",
			City:    "Paris",
			Country: "France",
		}).Error)
	}

	products := []models.ProductModel{
		{BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}, Name: "Pencil"},
		{BaseModel: models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}, Name: "Notebook", ImageURL: "https://cdn.example.com/notebook.png"},
	}
	require.NoError(t, db.Create(&products).Error)

	// inserted out of order to check the position sort
	items := []models.OrderItemModel{
		{ID: uuid.New(), OrderID: order.ID, ProductID: products[0].ID, Position: 2, UnitPriceMinor: 1000, Quantity: 1},
		{ID: uuid.New(), OrderID: order.ID, ProductID: products[1].ID, Position: 1, UnitPriceMinor: 2500, Quantity: 2},
	}
	require.NoError(t, db.Create(&items).Error)

	return order.ID
}

func TestGormOrderRepository_Integration(t *testing.T) {
	db := newPostgres(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	t.Run("full order", func(t *testing.T) {
		id := seedOrder(t, db, true)

		order, err := repo.FindByID(ctx, id)
		require.NoError(t, err)

		assert.Equal(t, "Ada Lovelace", order.Customer.FullName())
		require.NotNil(t, order.BillingAddress)
		assert.Equal(t, "Paris", order.BillingAddress.City)
		require.Len(t, order.LineItems, 2)
		assert.Equal(t, "Notebook", order.LineItems[0].ProductName)
		assert.Equal(t, "Pencil", order.LineItems[1].ProductName)
		assert.Equal(t, int64(6000), order.GrandTotal())
	})

	t.Run("order without address", func(t *testing.T) {
		id := seedOrder(t, db, false)

		order, err := repo.FindByID(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, order.BillingAddress)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, invoicing.ErrOrderNotFound)
	})
}
