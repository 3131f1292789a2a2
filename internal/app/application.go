package app

import (
	"context"
	"fmt"
	"time"

	"github.com/thriftline/marketplace/internal/app/services/accounts"
	cartsvc "github.com/thriftline/marketplace/internal/app/services/cart"
	"github.com/thriftline/marketplace/internal/app/services/catalog"
	"github.com/thriftline/marketplace/internal/app/services/orders"
	"github.com/thriftline/marketplace/internal/app/services/reviews"
	"github.com/thriftline/marketplace/internal/app/services/sessions"
	"github.com/thriftline/marketplace/internal/app/storage"
	"github.com/thriftline/marketplace/internal/app/storage/memory"
	"github.com/thriftline/marketplace/internal/app/system"
	"github.com/thriftline/marketplace/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Users    storage.UserStore
	Products storage.ProductStore
	Carts    storage.CartStore
	Orders   storage.OrderStore
	Reviews  storage.ReviewStore
	Sessions storage.SessionStore
}

// Options tunes session handling.
type Options struct {
	SessionSecret []byte
	SessionTTL    time.Duration
	SweepSchedule string
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger
	stores  Stores

	Accounts *accounts.Service
	Sessions *sessions.Manager
	Catalog  *catalog.Service
	Cart     *cartsvc.Service
	Orders   *orders.Service
	Reviews  *reviews.Service
	Sweeper  *sessions.Sweeper
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if len(opts.SessionSecret) == 0 {
		return nil, fmt.Errorf("session secret is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 7 * 24 * time.Hour
	}

	mem := memory.New()
	if stores.Users == nil {
		stores.Users = mem
	}
	if stores.Products == nil {
		stores.Products = mem
	}
	if stores.Carts == nil {
		stores.Carts = mem
	}
	if stores.Orders == nil {
		stores.Orders = mem
	}
	if stores.Reviews == nil {
		stores.Reviews = mem
	}
	if stores.Sessions == nil {
		stores.Sessions = mem
	}

	manager := system.NewManager()

	sessionManager := sessions.New(stores.Sessions, stores.Users, opts.SessionSecret, opts.SessionTTL, log.Component("sessions"))
	sweeper := sessions.NewSweeper(sessionManager, opts.SweepSchedule, log.Component("session-sweeper"))

	application := &Application{
		manager:  manager,
		log:      log,
		stores:   stores,
		Accounts: accounts.New(stores.Users, log.Component("accounts")),
		Sessions: sessionManager,
		Catalog:  catalog.New(stores.Products, log.Component("catalog")),
		Cart:     cartsvc.New(stores.Carts, stores.Products, log.Component("cart")),
		Orders:   orders.New(stores.Orders, stores.Products, log.Component("orders")),
		Reviews:  reviews.New(stores.Reviews, stores.Products, stores.Orders, log.Component("reviews")),
		Sweeper:  sweeper,
	}

	for _, name := range []string{"accounts", "catalog", "cart", "orders", "reviews"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}
	if err := manager.Register(sweeper); err != nil {
		return nil, fmt.Errorf("register %s: %w", sweeper.Name(), err)
	}

	return application, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}

// Services lists the lifecycle-managed services in start order.
func (a *Application) Services() []system.Service {
	return a.manager.Services()
}

// Ping checks every distinct store that supports it.
func (a *Application) Ping(ctx context.Context) error {
	seen := make(map[storage.Pinger]bool)
	for _, candidate := range []interface{}{
		a.stores.Users, a.stores.Products, a.stores.Carts,
		a.stores.Orders, a.stores.Reviews, a.stores.Sessions,
	} {
		pinger, ok := candidate.(storage.Pinger)
		if !ok || seen[pinger] {
			continue
		}
		seen[pinger] = true
		if err := pinger.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}
