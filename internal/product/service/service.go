// Package service provides the implementation of product-related business logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	perrors "github.com/abgdnv/productcatalog/internal/product/errors"
	"github.com/abgdnv/productcatalog/internal/product/store"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/abgdnv/productcatalog/pkg/messaging/events"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProductService defines the methods for managing products.
// It abstracts the underlying business logic and data access.
type ProductService interface {
	// Create adds a new product to the catalog.
	Create(ctx context.Context, product ProductAddDto) (*ProductDto, error)

	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error)

	// FindAll returns all products.
	// Returns an empty slice if no products exist.
	FindAll(ctx context.Context) ([]ProductDto, error)

	// Search returns products whose name or category contains term, ignoring case.
	// A blank term is equivalent to FindAll.
	Search(ctx context.Context, term string) ([]ProductDto, error)

	// Update overwrites every field of an existing product except its identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	Update(ctx context.Context, product ProductUpdateDto) (*ProductDto, error)

	// Delete removes a product. It reports false when there was nothing to delete.
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service implements ProductService. Successful updates and deletes are
// announced through the publisher; a failed announcement never fails the mutation.
type Service struct {
	store     store.ProductStore
	publisher messaging.Publisher
	logger    *slog.Logger

	notificationsPublished metric.Int64Counter
	notificationsFailed    metric.Int64Counter
}

// NewService creates a new instance of ProductService.
func NewService(productStore store.ProductStore, publisher messaging.Publisher, logger *slog.Logger) *Service {
	meter := otel.Meter("product-service")
	published, err := meter.Int64Counter("product_notifications_published",
		metric.WithDescription("Total number of published product change notifications"))
	if err != nil {
		panic(fmt.Sprintf("failed to create product_notifications_published counter: %v", err))
	}
	failed, err := meter.Int64Counter("product_notifications_failed",
		metric.WithDescription("Total number of product change notifications that could not be published"))
	if err != nil {
		panic(fmt.Sprintf("failed to create product_notifications_failed counter: %v", err))
	}
	return &Service{
		store:                  productStore,
		publisher:              publisher,
		logger:                 logger.With("component", "service"),
		notificationsPublished: published,
		notificationsFailed:    failed,
	}
}

// ProductAddDto is the body of a create request.
// Pointers distinguish an explicit zero from an absent value.
type ProductAddDto struct {
	Name            string   `json:"name"              validate:"required,notblank,max=50"`
	Category        string   `json:"category"          validate:"required,oneof=Electronics HomeAppliances Furniture Accessories"`
	UnitPrice       *float64 `json:"unit_price"        validate:"required,min=0"`
	QuantityInStock *int32   `json:"quantity_in_stock" validate:"required,min=0"`
}

// ProductUpdateDto is the body of an update request. ID must match the addressed product.
type ProductUpdateDto struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"              validate:"required,notblank,max=50"`
	Category        string    `json:"category"          validate:"required,oneof=Electronics HomeAppliances Furniture Accessories"`
	UnitPrice       *float64  `json:"unit_price"        validate:"required,min=0"`
	QuantityInStock *int32    `json:"quantity_in_stock" validate:"required,min=0"`
}

// ProductDto represents the data transfer object for a product.
type ProductDto struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	UnitPrice       float64 `json:"unit_price"`
	QuantityInStock int32   `json:"quantity_in_stock"`
}

func (s *Service) Create(ctx context.Context, product ProductAddDto) (*ProductDto, error) {
	created, err := s.store.Add(ctx, store.ProductParams{
		Name:            product.Name,
		Category:        product.Category,
		UnitPrice:       deref(product.UnitPrice),
		QuantityInStock: deref(product.QuantityInStock),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toDto(created), nil
}

func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*ProductDto, error) {
	product, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	if product == nil {
		return nil, fmt.Errorf("product %s: %w", id, perrors.ErrProductNotFound)
	}
	return toDto(product), nil
}

func (s *Service) FindAll(ctx context.Context) ([]ProductDto, error) {
	products, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return toDtos(products), nil
}

func (s *Service) Search(ctx context.Context, term string) ([]ProductDto, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.FindAll(ctx)
	}
	products, err := s.store.Search(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return toDtos(products), nil
}

// Update reads the product before overwriting it. Concurrent updates of the
// same product are not serialized; the last write wins.
func (s *Service) Update(ctx context.Context, product ProductUpdateDto) (*ProductDto, error) {
	existing, err := s.store.FindByID(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product by ID %s: %w", product.ID, err)
	}
	if existing == nil {
		return nil, fmt.Errorf("product %s: %w", product.ID, perrors.ErrProductNotFound)
	}

	updated, err := s.store.Update(ctx, product.ID, store.ProductParams{
		Name:            product.Name,
		Category:        product.Category,
		UnitPrice:       deref(product.UnitPrice),
		QuantityInStock: deref(product.QuantityInStock),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product with ID %s: %w", product.ID, err)
	}
	// deleted between the read and the write
	if updated == nil {
		return nil, fmt.Errorf("product %s: %w", product.ID, perrors.ErrProductNotFound)
	}

	s.notify(ctx, events.UpdateAttributes(1), events.ProductUpdated{
		ID:              updated.ID,
		Name:            updated.Name,
		Category:        updated.Category,
		UnitPrice:       updated.UnitPrice,
		QuantityInStock: updated.QuantityInStock,
	})
	return toDto(updated), nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to fetch product by ID %s: %w", id, err)
	}
	if existing == nil {
		return false, nil
	}

	affected, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product with ID %s: %w", id, err)
	}
	if affected == 0 {
		return false, nil
	}

	s.notify(ctx, events.DeleteAttributes(affected), events.ProductDeleted{
		ProductID:   id,
		ProductName: existing.Name,
	})
	return true, nil
}

// notify publishes a change notification. Failures are logged and counted only.
// The mutation is already committed, so the publish outlives a canceled request;
// the publisher bounds it with its own timeout.
func (s *Service) notify(ctx context.Context, attrs messaging.Attributes, payload any) {
	ctx = context.WithoutCancel(ctx)
	kind := attribute.String("event", attrs.Event())
	if err := s.publisher.Publish(ctx, attrs, payload); err != nil {
		if !errors.Is(err, messaging.ErrNotification) {
			err = fmt.Errorf("%w: %w", messaging.ErrNotification, err)
		}
		s.logger.ErrorContext(ctx, "Failed to publish product notification", "event", attrs.Event(), "error", err)
		s.notificationsFailed.Add(ctx, 1, metric.WithAttributes(kind))
		return
	}
	s.logger.DebugContext(ctx, "Product notification published", "event", attrs.Event())
	s.notificationsPublished.Add(ctx, 1, metric.WithAttributes(kind))
}

func toDto(product *store.Product) *ProductDto {
	return &ProductDto{
		ID:              product.ID.String(),
		Name:            product.Name,
		Category:        product.Category,
		UnitPrice:       product.UnitPrice,
		QuantityInStock: product.QuantityInStock,
	}
}

func toDtos(products []store.Product) []ProductDto {
	productDTOs := make([]ProductDto, len(products))
	for i, item := range products {
		productDTOs[i] = *toDto(&item)
	}
	return productDTOs
}

func deref[T any](v *T) T {
	if v == nil {
		var zero T
		return zero
	}
	return *v
}
