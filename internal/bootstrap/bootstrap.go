// Package bootstrap is the composition root shared by the binaries. It
// selects the store driver, the per-user locker and the event bus, and wires
// the command and query handlers on top of them.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/yogaii/yogaii-streak/config"
	"github.com/yogaii/yogaii-streak/internal/application/command"
	"github.com/yogaii/yogaii-streak/internal/application/eventhandler"
	"github.com/yogaii/yogaii-streak/internal/application/query"
	"github.com/yogaii/yogaii-streak/internal/domain/achievement"
	"github.com/yogaii/yogaii-streak/internal/domain/activity"
	"github.com/yogaii/yogaii-streak/internal/domain/shared"
	"github.com/yogaii/yogaii-streak/internal/domain/streak"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/messaging"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/metrics"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/persistence/memory"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/persistence/postgres"
	rediscache "github.com/yogaii/yogaii-streak/internal/infrastructure/persistence/redis"
	"github.com/yogaii/yogaii-streak/internal/infrastructure/persistence/sqlite"
	"github.com/yogaii/yogaii-streak/pkg/logger"
	"github.com/yogaii/yogaii-streak/pkg/retry"
	"github.com/yogaii/yogaii-streak/pkg/timeutil"
)

// EventBus is the bus the container publishes on.
type EventBus interface {
	shared.EventBus
	Close() error
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Options tune what New builds.
type Options struct {
	// Migrate runs pending postgres migrations after connecting.
	Migrate bool

	// EventHandlers subscribes the achievement and level-up handlers.
	EventHandlers bool

	// Clock overrides the system clock (tests).
	Clock timeutil.Clock
}

// Container holds every long-lived dependency of a binary.
type Container struct {
	Config  *config.Config
	Log     *logger.Logger
	Metrics *metrics.Collectors
	Bus     EventBus
	Catalog *achievement.Catalog

	Activities   activity.Repository
	Profiles     streak.Repository
	Achievements achievement.Repository

	// Postgres is set only for the postgres driver.
	Postgres *postgres.Connection

	Writer                *command.ProfileWriter
	RecordActivity        *command.RecordActivityHandler
	UpdateWeeklyGoal      *command.UpdateWeeklyGoalHandler
	RefreshWeeklyProgress *command.RefreshWeeklyProgressHandler
	ReconcileProfile      *command.ReconcileProfileHandler

	GetStreak           *query.GetStreakHandler
	GetWeeklyActivities *query.GetWeeklyActivitiesHandler
	GetAchievements     *query.GetAchievementsHandler
	GetDashboard        *query.GetDashboardHandler

	// Checks are named dependency probes for the readiness endpoint.
	Checks map[string]HealthCheck

	closers []func() error
}

// NewLogger builds the service logger from the observability settings.
func NewLogger(cfg config.ObservabilityConfig) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.LogLevel)
	if cfg.LogFormat == string(logger.FormatConsole) {
		opts.Format = logger.FormatConsole
	}
	return logger.New(opts)
}

// New opens the stores selected by cfg and wires all handlers. On error
// everything opened so far is closed.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts Options) (*Container, error) {
	if log == nil {
		log = logger.Nop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = timeutil.SystemClock
	}

	c := &Container{
		Config:  cfg,
		Log:     log,
		Metrics: metrics.New(),
		Catalog: achievement.DefaultCatalog(),
		Checks:  make(map[string]HealthCheck),
	}
	if err := c.wire(ctx, clock, opts); err != nil {
		if closeErr := c.Close(); closeErr != nil {
			log.Warn("cleanup after failed startup", logger.Err(closeErr))
		}
		return nil, err
	}

	log.Info("container ready",
		logger.String("driver", cfg.Database.Driver),
		logger.Bool("redis", cfg.Redis.Enabled),
		logger.Bool("redis_event_bus", cfg.Redis.EventBus),
	)
	return c, nil
}

func (c *Container) wire(ctx context.Context, clock timeutil.Clock, opts Options) error {
	if err := c.openStore(ctx, opts.Migrate); err != nil {
		return err
	}

	var locker streak.Locker
	var redisCache *rediscache.Cache
	if c.Config.Redis.Enabled {
		cache, err := c.openRedis(ctx)
		if err != nil {
			return err
		}
		redisCache = cache
		c.Profiles = rediscache.NewProfileCache(c.Profiles, cache, c.Config.Redis.CacheTTL, c.Log)
		locker = rediscache.NewLocker(cache.Client(), c.Config.Redis.LockTTL, c.Log)
	}

	if err := c.openBus(ctx, redisCache); err != nil {
		return err
	}

	c.wireHandlers(locker, clock)

	if opts.EventHandlers {
		return c.registerEventHandlers(clock)
	}
	return nil
}

func (c *Container) openStore(ctx context.Context, migrate bool) error {
	cfg := c.Config.Database

	switch cfg.Driver {
	case config.DriverMemory:
		store := memory.NewStore()
		c.Activities, c.Profiles, c.Achievements = store.Activities(), store.Profiles(), store.Achievements()

	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, c.Log)
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		c.closers = append(c.closers, store.Close)
		c.Activities, c.Profiles, c.Achievements = store.Activities(), store.Profiles(), store.Achievements()
		c.Checks["sqlite"] = func(context.Context) error { return store.Ping() }

	case config.DriverPostgres:
		pgCfg := postgres.DefaultConfig()
		pgCfg.URL = cfg.URL
		pgCfg.MaxConns = cfg.MaxConns
		pgCfg.MinConns = cfg.MinConns
		pgCfg.MaxConnLifetime = cfg.ConnMaxLifetime
		pgCfg.MaxConnIdleTime = cfg.ConnMaxIdleTime

		conn, err := retry.DoWithData(ctx, func(ctx context.Context) (*postgres.Connection, error) {
			return postgres.NewConnection(ctx, pgCfg)
		}, startupOptions(c.Log, "postgres")...)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		c.Postgres = conn
		c.closers = append(c.closers, func() error { conn.Close(); return nil })
		c.Checks["postgres"] = conn.Ping

		if migrate {
			applied, err := postgres.NewMigrator(conn).Migrate(ctx)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			c.Log.Info("database schema is up to date", logger.Int("applied", applied))
		}

		c.Activities = postgres.NewActivityRepository(conn)
		c.Profiles = postgres.NewProfileRepository(conn)
		c.Achievements = postgres.NewAchievementRepository(conn)

	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	return nil
}

func (c *Container) openRedis(ctx context.Context) (*rediscache.Cache, error) {
	cfg := c.Config.Redis
	rc := rediscache.DefaultConfig()
	rc.Addr = cfg.Addr
	rc.Password = cfg.Password
	rc.DB = cfg.DB
	rc.PoolSize = cfg.PoolSize
	rc.MinIdleConns = cfg.MinIdleConns
	rc.DialTimeout = cfg.DialTimeout
	rc.ReadTimeout = cfg.ReadTimeout
	rc.WriteTimeout = cfg.WriteTimeout

	cache, err := retry.DoWithData(ctx, func(ctx context.Context) (*rediscache.Cache, error) {
		return rediscache.NewCache(ctx, rc)
	}, startupOptions(c.Log, "redis")...)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	c.closers = append(c.closers, cache.Close)
	c.Checks["redis"] = cache.Ping
	return cache, nil
}

func (c *Container) openBus(ctx context.Context, cache *rediscache.Cache) error {
	local := messaging.DefaultInMemoryEventBusConfig()
	local.AsyncMode = true
	local.Logger = c.Log
	local.Metrics = c.Metrics

	if c.Config.Redis.EventBus && cache != nil {
		hostname, _ := os.Hostname()
		bus, err := messaging.NewRedisEventBus(ctx, messaging.RedisEventBusConfig{
			Client:         cache.Client(),
			ChannelName:    c.Config.Redis.EventChannel,
			InstanceID:     fmt.Sprintf("%s-%d", hostname, os.Getpid()),
			LocalBusConfig: local,
			Logger:         c.Log,
		})
		if err != nil {
			return fmt.Errorf("redis event bus: %w", err)
		}
		c.Bus = bus
	} else {
		c.Bus = messaging.NewInMemoryEventBus(local)
	}

	// The bus is closed first so in-flight handlers finish before the stores go away.
	c.closers = append([]func() error{c.Bus.Close}, c.closers...)
	return nil
}

func (c *Container) wireHandlers(locker streak.Locker, clock timeutil.Clock) {
	cfg := c.Config.Streak

	writerCfg := command.DefaultProfileWriterConfig()
	writerCfg.DefaultWeeklyGoal = cfg.DefaultWeeklyGoal
	writerCfg.MaxAttempts = cfg.MaxConflictAttempts

	c.Writer = command.NewProfileWriter(c.Profiles, locker, c.Bus, clock, c.Log, writerCfg)
	c.RecordActivity = command.NewRecordActivityHandler(c.Activities, c.Writer, c.Bus, c.Metrics, clock, c.Log)
	c.UpdateWeeklyGoal = command.NewUpdateWeeklyGoalHandler(c.Writer, clock)
	c.RefreshWeeklyProgress = command.NewRefreshWeeklyProgressHandler(c.Activities, c.Profiles, c.Writer, cfg.Location, clock, c.Log)
	c.ReconcileProfile = command.NewReconcileProfileHandler(c.Activities, c.Writer, c.Bus, clock, c.Log)

	c.GetStreak = query.NewGetStreakHandler(c.Writer, cfg.Location, clock)
	c.GetWeeklyActivities = query.NewGetWeeklyActivitiesHandler(c.Activities, cfg.Location, clock)
	c.GetAchievements = query.NewGetAchievementsHandler(c.Catalog, c.Achievements)
	c.GetDashboard = query.NewGetDashboardHandler(c.GetStreak, c.GetWeeklyActivities, c.GetAchievements)
}

func (c *Container) registerEventHandlers(clock timeutil.Clock) error {
	flags := c.Config.Features

	onRecorded := eventhandler.NewOnActivityRecordedHandler(c.Catalog, c.Achievements, c.Bus, clock, c.Log)
	err := c.Bus.Subscribe(shared.EventActivityRecorded, func(event shared.Event) error {
		if flags != nil && !flags.IsEnabled(config.FeatureAchievements, event.AggregateID()) {
			return nil
		}
		return onRecorded.Handle(event)
	})
	if err != nil {
		return fmt.Errorf("subscribe achievements: %w", err)
	}

	if flags == nil || flags.IsEnabled(config.FeatureLevelUpLogging, "") {
		if err := eventhandler.NewOnLevelUpHandler(c.Log).Register(c.Bus); err != nil {
			return fmt.Errorf("subscribe level up: %w", err)
		}
	}
	return nil
}

// Close releases everything in reverse dependency order.
func (c *Container) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

func startupOptions(log *logger.Logger, dependency string) []retry.Option {
	return retry.StartupOptions(func(attempt int, err error, delay time.Duration) {
		log.Warn("dependency not ready, retrying",
			logger.String("dependency", dependency),
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Err(err),
		)
	})
}
