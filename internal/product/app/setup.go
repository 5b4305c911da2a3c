// Package app contains the application setup for the product catalog service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/productcatalog/internal/product/config"
	"github.com/abgdnv/productcatalog/internal/product/service"
	"github.com/abgdnv/productcatalog/internal/product/store"
	grpcImpl "github.com/abgdnv/productcatalog/internal/product/transport/grpc"
	"github.com/abgdnv/productcatalog/internal/product/transport/rest"
	"github.com/abgdnv/productcatalog/pkg/messaging"
	"github.com/abgdnv/productcatalog/pkg/server"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/grpc"
)

const ServiceName = "product"

type Dependencies struct {
	ProductService service.ProductService
	Health         *grpcImpl.HealthServer
	Logger         *slog.Logger
}

// SetupDependencies wires the store, the notifier and the service.
// Pass messaging.NopPublisher{} when notifications are disabled.
func SetupDependencies(dbPool *pgxpool.Pool, cfg *config.Config, publisher messaging.Publisher, logger *slog.Logger) *Dependencies {
	productStore := store.NewPgStore(dbPool, cfg.Database.QueryTimeout)
	return &Dependencies{
		ProductService: service.NewService(productStore, publisher, logger),
		Health:         grpcImpl.NewHealthServer(logger),
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the router and routes for the product catalog.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the product catalog.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger)
	productHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the product catalog.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	return server.NewHTTPServer(cfg.HTTPServer, ServiceName, SetupHttpHandler(deps))
}

// SetupGrpcServer initializes the operational gRPC server (health, optional reflection).
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, deps.Health.Register)
}
