package app

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/lifecycle"
	"github.com/spec-kit/helpdesk-service/internal/lookup"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// Container holds the wired application graph shared by the API server and
// the CLI.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Tickets *service.TicketService
	// Driver is the store actually in use after fallbacks.
	Driver string

	checks  map[string]handlers.Pinger
	closers []func()
}

type store struct {
	tickets    repository.TicketRepository
	categories lookup.CategoryProvider
	employees  lookup.EmployeeProvider
}

// New connects the configured store and builds the ticket service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	policy, err := lifecycle.ParseReopenPolicy(cfg.Tickets.ReopenClearsNotes)
	if err != nil {
		return nil, err
	}
	seeded, err := lookup.ParseEmployees(cfg.Store.SeedEmployees)
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_EMPLOYEES: %w", err)
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
		checks:  map[string]handlers.Pinger{},
	}

	driver := cfg.Store.Driver
	if driver == config.StoreDriverPostgres && cfg.Postgres.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; using in-memory store")
		driver = config.StoreDriverMemory
	}
	c.Driver = driver

	var st store
	switch driver {
	case config.StoreDriverPostgres:
		st, err = c.openPostgres(ctx, cfg)
	case config.StoreDriverSQLite:
		st, err = c.openSQLite(cfg, seeded)
	default:
		st = store{
			tickets:    repository.NewMemoryTicketRepository(),
			categories: lookup.StaticCategories(domain.DefaultCategories),
			employees:  lookup.StaticEmployees(seeded),
		}
	}
	if err != nil {
		c.Close()
		return nil, err
	}

	if rd := persistence.NewRedis(cfg.Redis, logger); rd != nil {
		c.closers = append(c.closers, rd.Close)
		c.checks["redis"] = rd
		ttl := cfg.Redis.LookupCacheTTL()
		st.categories = lookup.NewCachedCategories(rd.Handle(), ttl, st.categories, logger)
		st.employees = lookup.NewCachedEmployees(rd.Handle(), ttl, st.employees, logger)
	}

	c.warnIfNoEmployees(ctx, st.employees)

	c.Tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo: st.tickets,
		Categories: st.categories,
		Employees:  st.employees,
		Engine:     lifecycle.NewEngine(policy),
		Logger:     logger,
		Outcomes:   c.Metrics,
	})

	logger.Info("ticket store ready",
		zap.String("driver", driver),
		zap.String("reopen_policy", policy.String()))
	return c, nil
}

func (c *Container) openPostgres(ctx context.Context, cfg *config.Config) (store, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, c.Logger)
	if err != nil {
		return store{}, fmt.Errorf("connect postgres: %w", err)
	}
	c.closers = append(c.closers, pg.Close)
	c.checks["postgres"] = pg

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, c.Logger); err != nil {
			return store{}, err
		}
	}

	pool := pg.PoolHandle()
	return store{
		tickets:    repository.NewTicketRepository(pool),
		categories: repository.NewCategoryRepository(pool),
		employees:  repository.NewEmployeeRepository(pool),
	}, nil
}

func (c *Container) openSQLite(cfg *config.Config, employees []domain.Employee) (store, error) {
	lite, err := persistence.NewSQLite(cfg.SQLite, cfg.Logger.Level, c.Logger)
	if err != nil {
		return store{}, err
	}
	c.closers = append(c.closers, lite.Close)
	c.checks["sqlite"] = lite

	if err := repository.AutoMigrateSQLite(lite.DB, employees); err != nil {
		return store{}, fmt.Errorf("migrate sqlite: %w", err)
	}
	return store{
		tickets:    repository.NewSQLiteTicketRepository(lite.DB),
		categories: repository.NewSQLiteCategoryRepository(lite.DB),
		employees:  repository.NewSQLiteEmployeeRepository(lite.DB),
	}, nil
}

// warnIfNoEmployees flags a directory that leaves no ticket closable: the
// terminal statuses require an assigned employee.
func (c *Container) warnIfNoEmployees(ctx context.Context, employees lookup.EmployeeProvider) {
	list, err := employees.ListAll(ctx)
	if err != nil {
		c.Logger.Warn("unable to read employee directory", zap.Error(err))
		return
	}
	if len(list) == 0 {
		c.Logger.Warn("employee directory is empty; tickets cannot be resolved or closed until employees exist",
			zap.String("driver", c.Driver),
			zap.String("hint", "set SEED_EMPLOYEES=id:Full Name,..."))
	}
}

// HTTP builds the fiber application with middlewares and routes.
func (c *Container) HTTP() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               c.Config.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, c.Logger, c.Metrics, c.Config.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(c.Config.App.Name, c.Config.App.Version, c.checks),
		Tickets: handlers.NewTicketsHandler(c.Tickets),
		Lookups: handlers.NewLookupHandler(c.Tickets),
		Metrics: handlers.NewMetricsHandler(c.Metrics),
	})
	return app
}

// Close releases connections in reverse order of opening.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}
