// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/fd1az/arbitrage-executor/internal/asset"
	"github.com/fd1az/arbitrage-executor/internal/config"
	"github.com/fd1az/arbitrage-executor/internal/di"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	AssetRegistry() *asset.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// Closer is implemented by modules that own resources released on shutdown.
type Closer interface {
	Close(context.Context) error
}

// App is the concrete Monolith owned by main.
type App struct {
	config        *config.Config
	logger        logger.LoggerInterface
	assetRegistry *asset.Registry
	container     di.Container
	modules       []Module
}

// New creates a new Monolith. The configured trade pair is registered in the
// asset registry so every context resolves the same *asset.Asset values.
func New(cfg *config.Config, log logger.LoggerInterface) *App {
	registry := asset.DefaultRegistry()
	registry.Ensure(cfg.Network.ChainID, cfg.Contracts.TokenInAddress(),
		cfg.Strategy.TokenInSymbol, cfg.Strategy.TokenInDecimals)
	registry.Ensure(cfg.Network.ChainID, cfg.Contracts.TokenOutAddress(),
		cfg.Strategy.TokenOutSymbol, cfg.Strategy.TokenOutDecimals)

	container := di.NewContainer()
	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("assetRegistry", registry)

	return &App{
		config:        cfg,
		logger:        log,
		assetRegistry: registry,
		container:     container,
	}
}

func (a *App) Config() *config.Config         { return a.config }
func (a *App) Logger() logger.LoggerInterface { return a.logger }
func (a *App) AssetRegistry() *asset.Registry { return a.assetRegistry }
func (a *App) Services() di.ServiceRegistry   { return a.container }

// Container returns the DI container for module registration.
func (a *App) Container() di.Container {
	return a.container
}

// TokenIn returns the registered trade token.
func (a *App) TokenIn() *asset.Asset {
	t, _ := a.assetRegistry.GetToken(a.config.Network.ChainID, a.config.Contracts.TokenInAddress())
	return t
}

// TokenOut returns the registered intermediate token.
func (a *App) TokenOut() *asset.Asset {
	t, _ := a.assetRegistry.GetToken(a.config.Network.ChainID, a.config.Contracts.TokenOutAddress())
	return t
}

// RegisterModules registers all provided modules.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	a.modules = append(a.modules, modules...)
	return nil
}

// StartModules starts all registered modules in registration order.
func (a *App) StartModules(ctx context.Context) error {
	for _, m := range a.modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close closes module resources in reverse registration order.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	for i := len(a.modules) - 1; i >= 0; i-- {
		c, ok := a.modules[i].(Closer)
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil {
			a.logger.Warn(ctx, "module close failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
