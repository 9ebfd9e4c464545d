// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/fd1az/albion-market-router/internal/clock"
	"github.com/fd1az/albion-market-router/internal/config"
	"github.com/fd1az/albion-market-router/internal/di"
	"github.com/fd1az/albion-market-router/internal/health"
	"github.com/fd1az/albion-market-router/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Clock() clock.Clock
	Health() *health.Server
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config    *config.Config
	logger    logger.LoggerInterface
	clock     clock.Clock
	health    *health.Server
	container di.Container
}

// New creates a new Monolith instance. A nil clock uses wall time.
func New(cfg *config.Config, log logger.LoggerInterface, clk clock.Clock, hs *health.Server) *app {
	if clk == nil {
		clk = clock.New()
	}

	container := di.NewContainer()

	// Register global services
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("clock", clk)
	if hs != nil {
		container.Register("health", hs)
	}

	return &app{
		config:    cfg,
		logger:    log,
		clock:     clk,
		health:    hs,
		container: container,
	}
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Clock() clock.Clock {
	return a.clock
}

// Health returns the health server, or nil when health endpoints are off.
func (a *app) Health() *health.Server {
	return a.health
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
