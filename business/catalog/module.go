// Package catalog implements the item catalog bounded context.
package catalog

import (
	"context"

	catalogDI "github.com/fd1az/albion-market-router/business/catalog/di"
	"github.com/fd1az/albion-market-router/business/catalog/domain"
	"github.com/fd1az/albion-market-router/internal/di"
	"github.com/fd1az/albion-market-router/internal/monolith"
)

// Module implements the item catalog bounded context.
type Module struct{}

// RegisterServices registers the catalog with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, catalogDI.Catalog, func(di.ServiceRegistry) *domain.Catalog {
		return domain.Default()
	})
	return nil
}

// Startup loads the embedded catalog eagerly so a bad asset fails at boot.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cat := catalogDI.GetCatalog(mono.Services())
	mono.Logger().Info(ctx, "catalog module started",
		"known_items", cat.KnownItemCount(),
		"scan_source", cat.ScanSource(),
	)
	return nil
}
