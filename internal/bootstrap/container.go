package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"ai-orchestrator-be/internal/config"
	"ai-orchestrator-be/internal/controller"
	"ai-orchestrator-be/internal/pkg/logger"
	"ai-orchestrator-be/internal/repository/cache"
	"ai-orchestrator-be/internal/repository/implementation"
	"ai-orchestrator-be/internal/repository/memory"
	"ai-orchestrator-be/internal/service"
	"ai-orchestrator-be/internal/websocket"
	"ai-orchestrator-be/pkg/ai/dispatch"
	"ai-orchestrator-be/pkg/ai/executor"
	"ai-orchestrator-be/pkg/ai/pipeline"
	"ai-orchestrator-be/pkg/ai/session"
	"ai-orchestrator-be/pkg/capability"
	"ai-orchestrator-be/pkg/usage"

	pktNats "ai-orchestrator-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	DispatchController controller.IDispatchController
	SessionController  controller.ISessionController
	HealthController   controller.IHealthController

	// Background Services (Exposed for main.go to run)
	PersistenceService service.ISessionPersistenceService

	// Chat channel
	WebSocketHub *websocket.Hub
	Pipeline     *pipeline.Pipeline

	Logger     logger.ILogger
	ChatLogger logger.ILogger

	dispatcher *dispatch.Dispatcher
	recorder   *usage.Recorder
	natsPub    *pktNats.Publisher
	pubSub     *gochannel.GoChannel
	rdb        *redis.Client
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	chatLogger := logger.NewIsolatedLogger(cfg.App.ChatLogFilePath)

	// 2. Event Bus (durable write-through)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 1024},
		watermill.NewStdLogger(false, false),
	)

	// 3. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOT", "Failed to connect to NATS, usage events and NATS capabilities are off", map[string]interface{}{"error": err.Error()})
	}

	// Redis
	rdb := connectRedis(cfg.App.RedisURL, sysLogger)

	// 4. Session tiers
	var fast session.FastStore
	if cfg.Session.FastTier == "redis" && rdb != nil {
		fast = cache.NewSessionCache(rdb, cfg.Session.FastTTL)
		sysLogger.Info("BOOT", "Session fast tier: redis", map[string]interface{}{"ttl": cfg.Session.FastTTL.String()})
	} else {
		fast = memory.NewSessionRepository(cfg.Session.FastTTL)
		sysLogger.Info("BOOT", "Session fast tier: memory", map[string]interface{}{"ttl": cfg.Session.FastTTL.String()})
	}
	durable := session.NewRepositoryStore(implementation.NewSessionRepository(db))

	var persistEvents service.EventPublisher
	if natsPub != nil {
		persistEvents = natsPub
	}
	persistenceService := service.NewSessionPersistenceService(
		pubSub,
		cfg.Session.PersistTopic,
		durable,
		persistEvents,
		cfg.Session.DurableTimeout,
		sysLogger,
	)

	sessions := session.NewManager(fast, durable, persistenceService, session.Config{
		FastTierTimeout: cfg.Session.FastTierTimeout,
		DurableTimeout:  cfg.Session.DurableTimeout,
		RecentTurns:     cfg.Session.RecentTurns,
		Continuity: session.ContinuityConfig{
			HalfLife:     cfg.Session.HalfLife,
			RecencyFloor: cfg.Session.RecencyFloor,
			Smoothing:    cfg.Session.Smoothing,
		},
	}, sysLogger)

	// 5. Capabilities
	registry, err := buildRegistry(cfg, natsPub, sysLogger)
	if err != nil {
		return nil, err
	}

	// 6. Backends
	profiles, err := BuildProfiles(cfg.Ai)
	if err != nil {
		return nil, err
	}
	providers, err := BuildProviders(cfg, profiles)
	if err != nil {
		return nil, err
	}
	pricing, err := usage.ParsePricing(cfg.Usage.Pricing)
	if err != nil {
		return nil, err
	}

	var usagePub usage.Publisher
	if natsPub != nil {
		usagePub = natsPub
	}
	recorder := usage.NewRecorder(usagePub, cfg.Usage.Buffer, sysLogger)

	exec := executor.NewExecutor(providers, registry, recorder, pricing, executor.Config{
		AttemptTimeout:   cfg.Executor.AttemptTimeout,
		AbandonGrace:     cfg.Executor.AbandonGrace,
		MaxToolRounds:    cfg.Executor.MaxToolRounds,
		HistoryTurns:     cfg.Executor.HistoryTurns,
		DefaultMaxTokens: cfg.Executor.DefaultMaxTokens,
	}, sysLogger)

	dispatcher := dispatch.NewDispatcher(exec, dispatch.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Multiplier:  cfg.Retry.Multiplier,
		Jitter:      cfg.Retry.Jitter,
	}, dispatch.BreakerConfig{
		Window:              cfg.Breaker.Window,
		MinRequests:         cfg.Breaker.MinRequests,
		FailureRate:         cfg.Breaker.FailureRate,
		ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
		Cooldown:            cfg.Breaker.Cooldown,
		CooldownMultiplier:  cfg.Breaker.CooldownMultiplier,
		MaxCooldown:         cfg.Breaker.MaxCooldown,
	}, sysLogger)

	// 7. Request path
	deps, pipelineCfg, err := routing(cfg, sysLogger)
	if err != nil {
		return nil, err
	}
	deps.Sessions = sessions
	deps.Dispatcher = dispatcher
	deps.Capabilities = registry
	p := pipeline.NewPipeline(deps, pipelineCfg, sysLogger)

	// 8. Channels
	wsHub := websocket.NewHub(rdb, chatLogger)
	orchestratorService := service.NewOrchestratorService(p, dispatcher, recorder, persistenceService, wsHub)

	return &Container{
		DispatchController: controller.NewDispatchController(orchestratorService),
		SessionController:  controller.NewSessionController(orchestratorService),
		HealthController:   controller.NewHealthController(orchestratorService),
		PersistenceService: persistenceService,
		WebSocketHub:       wsHub,
		Pipeline:           p,
		Logger:             sysLogger,
		ChatLogger:         chatLogger,
		dispatcher:         dispatcher,
		recorder:           recorder,
		natsPub:            natsPub,
		pubSub:             pubSub,
		rdb:                rdb,
	}, nil
}

func connectRedis(url string, log logger.ILogger) *redis.Client {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Warn("BOOT", "Failed to parse Redis URL, using it as an address", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Warn("BOOT", "Failed to connect to Redis, running single-node", map[string]interface{}{"error": err.Error()})
		rdb.Close()
		return nil
	}
	return rdb
}

func buildRegistry(cfg *config.Config, natsPub *pktNats.Publisher, log logger.ILogger) (*capability.Registry, error) {
	registry := capability.NewRegistry(log)

	endpoints, err := capability.ParseEndpoints(cfg.Capabilities.Endpoints)
	if err != nil {
		return nil, err
	}
	for _, ep := range endpoints {
		var c capability.Capability
		switch ep.Transport {
		case "http":
			c = capability.NewHTTPCapability(ep.Manifest(), ep.Address, cfg.Capabilities.HTTPTimeout)
		case "nats":
			if natsPub == nil {
				log.Warn("BOOT", "Skipping NATS capability, no connection", map[string]interface{}{"capability": ep.Name})
				continue
			}
			c = capability.NewNatsCapability(ep.Manifest(), natsPub.Conn(), ep.Address)
		}
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("register capability %s: %w", ep.Name, err)
		}
	}
	return registry, nil
}

// Start launches the background consumers. The hub runs until ctx is done.
func (c *Container) Start(ctx context.Context) error {
	if err := c.PersistenceService.Consume(ctx); err != nil {
		return fmt.Errorf("start session persistence: %w", err)
	}
	go c.WebSocketHub.Run(ctx)
	return nil
}

// Shutdown waits for in-flight dispatches and flushes usage before closing
// the connections they depend on.
func (c *Container) Shutdown(ctx context.Context) error {
	var errs []error
	if err := c.dispatcher.Drain(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain dispatcher: %w", err))
	}
	if err := c.recorder.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close usage recorder: %w", err))
	}
	if err := c.pubSub.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close event bus: %w", err))
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		if err := c.rdb.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	_ = c.Logger.Sync()
	return errors.Join(errs...)
}
