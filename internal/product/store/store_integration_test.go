package store

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const skipIntegrationTests = "PRODUCT_SVC_SKIP_INTEGRATION_TESTS"

// ProductStoreSuite is a test suite for the ProductStore implementation.
type ProductStoreSuite struct {
	suite.Suite
	pgContainer *postgres.PostgresContainer
	dbPool      *pgxpool.Pool
	store       ProductStore
	logger      *slog.Logger
	ctx         context.Context
}

// SetupSuite starts a PostgreSQL container and applies the embedded migrations.
func (s *ProductStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("products"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.dbPool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to create pgxpool")

	for i := range 10 {
		s.logger.Info("Pinging PostgreSQL database", "attempt", i+1)
		err = s.dbPool.Ping(s.ctx)
		if err == nil {
			break
		}
		time.Sleep(time.Second * 2)
	}
	require.NoError(s.T(), err, "Failed to connect to PostgreSQL after retries")

	require.NoError(s.T(), Migrate(connStr), "Failed to apply migrations")
	// applying twice is a no-op
	require.NoError(s.T(), Migrate(connStr))

	s.store = NewPgStore(s.dbPool, 5*time.Second)
}

// TearDownSuite cleans up resources after all tests in the suite have run.
func (s *ProductStoreSuite) TearDownSuite() {
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("failed to terminate PostgreSQL container", "error", err)
		}
	}
}

// SetupTest prepares the database for each test by truncating the products table.
func (s *ProductStoreSuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE products")
	require.NoError(s.T(), err, "Failed to truncate products table")
}

func TestProductStoreIntegration(t *testing.T) {
	if os.Getenv(skipIntegrationTests) == "1" {
		t.Skip("Skipping integration tests based on " + skipIntegrationTests + " env var")
	}
	suite.Run(t, new(ProductStoreSuite))
}

func (s *ProductStoreSuite) addTestProduct(name, category string, price float64, qty int32) *Product {
	s.T().Helper()
	product, err := s.store.Add(s.ctx, ProductParams{Name: name, Category: category, UnitPrice: price, QuantityInStock: qty})
	require.NoError(s.T(), err, "addTestProduct helper failed to create product")
	return product
}

func (s *ProductStoreSuite) TestAddAndFindByID() {
	// given
	created := s.addTestProduct("Lamp", "Furniture", 19.99, 10)

	// when
	fetched, err := s.store.FindByID(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err)
	require.NotNil(s.T(), fetched)
	require.NotEqual(s.T(), uuid.Nil, created.ID)
	assert.Equal(s.T(), created.ID, fetched.ID)
	assert.Equal(s.T(), "Lamp", fetched.Name)
	assert.Equal(s.T(), "Furniture", fetched.Category)
	assert.InDelta(s.T(), 19.99, fetched.UnitPrice, 0.0001)
	assert.Equal(s.T(), int32(10), fetched.QuantityInStock)
	assert.False(s.T(), fetched.CreatedAt.IsZero())
}

func (s *ProductStoreSuite) TestAdd_DistinctIDs() {
	first := s.addTestProduct("Lamp", "Furniture", 19.99, 10)
	second := s.addTestProduct("Lamp", "Furniture", 19.99, 10)
	assert.NotEqual(s.T(), first.ID, second.ID)
}

func (s *ProductStoreSuite) TestAdd_ConstraintViolation() {
	_, err := s.store.Add(s.ctx, ProductParams{Name: "Lamp", Category: "Toys", UnitPrice: 1, QuantityInStock: 1})
	require.Error(s.T(), err)
}

func (s *ProductStoreSuite) TestAdd_BlankNameRejected() {
	_, err := s.store.Add(s.ctx, ProductParams{Name: "   ", Category: "Furniture", UnitPrice: 1, QuantityInStock: 1})
	require.Error(s.T(), err)
}

func (s *ProductStoreSuite) TestUnitPriceRoundTrip() {
	testCases := []struct {
		name  string
		price float64
	}{
		{name: "more than two decimals", price: 19.999},
		{name: "large price", price: 1e12},
		{name: "zero", price: 0},
	}
	for _, tc := range testCases {
		s.T().Run(tc.name, func(t *testing.T) {
			// given
			created := s.addTestProduct("Lamp", "Furniture", tc.price, 1)
			require.Equal(t, tc.price, created.UnitPrice)

			// when
			updated, err := s.store.Update(s.ctx, created.ID, ProductParams{Name: "Lamp", Category: "Furniture", UnitPrice: tc.price, QuantityInStock: 2})
			require.NoError(t, err)
			fetched, err := s.store.FindByID(s.ctx, created.ID)

			// then
			require.NoError(t, err)
			assert.Equal(t, tc.price, updated.UnitPrice)
			assert.Equal(t, tc.price, fetched.UnitPrice)
		})
	}
}

func (s *ProductStoreSuite) TestFindByID_NotFound() {
	found, err := s.store.FindByID(s.ctx, uuid.New())
	require.NoError(s.T(), err)
	assert.Nil(s.T(), found)
}

func (s *ProductStoreSuite) TestFindAll() {
	// given
	s.addTestProduct("Sofa", "Furniture", 499, 2)
	s.addTestProduct("Cable", "Accessories", 5, 100)

	// when
	products, err := s.store.FindAll(s.ctx)

	// then
	require.NoError(s.T(), err)
	require.Len(s.T(), products, 2)
	assert.Equal(s.T(), "Cable", products[0].Name)
	assert.Equal(s.T(), "Sofa", products[1].Name)
}

func (s *ProductStoreSuite) TestFindAll_Empty() {
	products, err := s.store.FindAll(s.ctx)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), products)
}

func (s *ProductStoreSuite) TestSearch() {
	s.addTestProduct("Desk Lamp", "Furniture", 19.99, 10)
	s.addTestProduct("Television", "Electronics", 899, 3)
	s.addTestProduct("Toaster", "HomeAppliances", 49, 7)
	s.addTestProduct("100% Cotton Cover", "Accessories", 15, 20)

	testCases := []struct {
		name     string
		term     string
		expected []string
	}{
		{name: "name substring ignoring case", term: "LAMP", expected: []string{"Desk Lamp"}},
		{name: "category substring", term: "appliance", expected: []string{"Toaster"}},
		{name: "matches name or category", term: "t", expected: []string{"100% Cotton Cover", "Desk Lamp", "Television", "Toaster"}},
		{name: "wildcard characters are literal", term: "%", expected: []string{"100% Cotton Cover"}},
		{name: "no match", term: "zzz", expected: []string{}},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			products, err := s.store.Search(s.ctx, tc.term)
			require.NoError(s.T(), err)
			names := make([]string, 0, len(products))
			for _, p := range products {
				names = append(names, p.Name)
			}
			assert.Equal(s.T(), tc.expected, names)
		})
	}
}

func (s *ProductStoreSuite) TestUpdate() {
	// given
	created := s.addTestProduct("Lamp", "Furniture", 19.99, 10)

	// when
	updated, err := s.store.Update(s.ctx, created.ID, ProductParams{Name: "Floor Lamp", Category: "HomeAppliances", UnitPrice: 24.99, QuantityInStock: 0})

	// then
	require.NoError(s.T(), err)
	require.NotNil(s.T(), updated)
	assert.Equal(s.T(), created.ID, updated.ID)
	assert.Equal(s.T(), "Floor Lamp", updated.Name)
	assert.Equal(s.T(), "HomeAppliances", updated.Category)
	assert.InDelta(s.T(), 24.99, updated.UnitPrice, 0.0001)
	assert.Equal(s.T(), int32(0), updated.QuantityInStock)
	assert.False(s.T(), updated.UpdatedAt.Before(created.UpdatedAt))
}

func (s *ProductStoreSuite) TestUpdate_NotFound() {
	updated, err := s.store.Update(s.ctx, uuid.New(), ProductParams{Name: "Ghost", Category: "Furniture"})
	require.NoError(s.T(), err)
	assert.Nil(s.T(), updated)
}

func (s *ProductStoreSuite) TestDelete() {
	// given
	created := s.addTestProduct("Lamp", "Furniture", 19.99, 10)

	// when
	affected, err := s.store.Delete(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), affected)

	// when deleted again
	affected, err = s.store.Delete(s.ctx, created.ID)

	// then
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(0), affected)
	found, err := s.store.FindByID(s.ctx, created.ID)
	require.NoError(s.T(), err)
	assert.Nil(s.T(), found)
}
