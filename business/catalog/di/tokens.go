// Package di contains dependency injection tokens for the item catalog.
package di

import (
	"github.com/fd1az/albion-market-router/business/catalog/domain"
	"github.com/fd1az/albion-market-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Catalog = di.NewToken[*domain.Catalog]("catalog.Catalog")
)

func GetCatalog(c di.ServiceRegistry) *domain.Catalog {
	return di.GetToken(c, Catalog)
}
