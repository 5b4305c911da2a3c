package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	perrors "github.com/abgdnv/productcatalog/internal/product/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = "id, name, category, unit_price, quantity_in_stock, created_at, updated_at"

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db           *pgxpool.Pool
	queryTimeout time.Duration
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
// Every query is bounded by queryTimeout.
func NewPgStore(dbp *pgxpool.Pool, queryTimeout time.Duration) *PgStore {
	return &PgStore{
		db:           dbp,
		queryTimeout: queryTimeout,
	}
}

func (p *PgStore) Add(ctx context.Context, params ProductParams) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	rows, _ := p.db.Query(ctx,
		`INSERT INTO products (id, name, category, unit_price, quantity_in_stock)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+productColumns,
		uuid.New(), params.Name, params.Category, params.UnitPrice, params.QuantityInStock)
	product, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create product: %w", perrors.ErrPersistence, err)
	}
	return &product, nil
}

func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	rows, _ := p.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to find product by ID: %w", perrors.ErrPersistence, err)
	}
	return &product, nil
}

func (p *PgStore) FindAll(ctx context.Context) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	rows, _ := p.db.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY name, id`)
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find all products: %w", perrors.ErrPersistence, err)
	}
	return products, nil
}

// Search matches term literally; LIKE wildcards in term have no special meaning.
func (p *PgStore) Search(ctx context.Context, term string) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	rows, _ := p.db.Query(ctx,
		`SELECT `+productColumns+` FROM products
		 WHERE strpos(lower(name), lower($1)) > 0 OR strpos(lower(category), lower($1)) > 0
		 ORDER BY name, id`, term)
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[Product])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search products: %w", perrors.ErrPersistence, err)
	}
	return products, nil
}

func (p *PgStore) Update(ctx context.Context, id uuid.UUID, params ProductParams) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	rows, _ := p.db.Query(ctx,
		`UPDATE products
		 SET name = $2, category = $3, unit_price = $4, quantity_in_stock = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+productColumns,
		id, params.Name, params.Category, params.UnitPrice, params.QuantityInStock)
	product, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to update product: %w", perrors.ErrPersistence, err)
	}
	return &product, nil
}

func (p *PgStore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, p.queryTimeout)
	defer cancel()

	tag, err := p.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to delete product by ID: %w", perrors.ErrPersistence, err)
	}
	return tag.RowsAffected(), nil
}
