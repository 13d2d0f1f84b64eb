// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"

	"screenplay-wizard/internal/application/events"
	"screenplay-wizard/internal/application/wizard"
	"screenplay-wizard/internal/config"
	"screenplay-wizard/internal/domain/entity"
	"screenplay-wizard/internal/domain/repository"
	"screenplay-wizard/internal/infrastructure/backend"
	"screenplay-wizard/internal/infrastructure/messaging"
	"screenplay-wizard/internal/infrastructure/persistence/memory"
	"screenplay-wizard/internal/infrastructure/persistence/postgres"
	"screenplay-wizard/internal/infrastructure/persistence/redis"
	"screenplay-wizard/internal/infrastructure/templates"
	"screenplay-wizard/internal/interfaces/http/handler"
	"screenplay-wizard/internal/interfaces/http/router"
	"screenplay-wizard/pkg/logger"
)

const (
	driverPostgres = "postgres"
	driverRedis    = "redis"
)

// App 应用依赖容器
type App struct {
	Router *router.Router
	Wizard *wizard.Coordinator
	// Journal 未启用时为 nil
	Journal *messaging.Journal
}

// ProvideBackendClient 提供后端 API 客户端
func ProvideBackendClient(cfg *config.Config) (*backend.Client, error) {
	return backend.NewClient(&cfg.Backend)
}

// ProvidePostgresClient 仅在 persistence.driver=postgres 时连接数据库，否则返回 nil
func ProvidePostgresClient(ctx context.Context, cfg *config.Config) (*postgres.Client, func(), error) {
	if cfg.Persistence.Driver != driverPostgres {
		return nil, func() {}, nil
	}
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	if err := client.EnsureSchema(ctx); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideProjectStore 按配置选择项目存储
func ProvideProjectStore(ctx context.Context, cfg *config.Config, client *backend.Client, pg *postgres.Client) (repository.ProjectStore, error) {
	switch cfg.Persistence.Driver {
	case driverPostgres:
		logger.Info(ctx, "using postgres project store", "database", cfg.Database.Postgres.Database)
		return postgres.NewProjectStore(pg), nil
	case "", "http":
		return backend.NewProjectClient(client), nil
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", cfg.Persistence.Driver)
	}
}

// ProvideRedisClient 仅在 mirror.driver=redis 时连接 Redis，否则返回 nil
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if cfg.Mirror.Driver != driverRedis {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMirror 按配置选择本地镜像
func ProvideMirror(cfg *config.Config, rc *redis.Client) repository.Mirror {
	if rc != nil {
		return redis.NewMirror(rc, &cfg.Mirror)
	}
	return memory.NewMirror(cfg.Mirror.TTL)
}

// ProvideTemplateCatalog 加载模板目录
func ProvideTemplateCatalog(ctx context.Context, cfg *config.Config) (*templates.Catalog, error) {
	return templates.Load(ctx, cfg.Templates.Dir)
}

// ProvideEventHub 提供事件中心
func ProvideEventHub(cfg *config.Config) *events.Hub {
	return events.NewHub(events.HubConfig{
		ReplaySize:        cfg.Events.ReplaySize,
		SubscriberBufSize: cfg.Events.SubscriberBuffer,
	})
}

// ProvideWizardConfig 提供控制器配置
func ProvideWizardConfig(cfg *config.Config) wizard.Config {
	costs := cfg.Generation.UnitCosts
	return wizard.Config{
		Username:     cfg.Backend.Username,
		DefaultModel: cfg.Generation.DefaultModel,
		UnitCosts: map[entity.GenerationLevel]int64{
			entity.LevelStructure:  costs.Structure,
			entity.LevelPlotPoints: costs.PlotPoints,
			entity.LevelScenes:     costs.Scenes,
			entity.LevelDialogue:   costs.Dialogue,
		},
		AutosaveDebounce:       cfg.Generation.AutosaveDebounce,
		DefaultPlotPointBudget: cfg.Generation.DefaultPlotPointBudget,
	}
}

// ProvideHealthHandler 注册就绪探测：项目存储必需，镜像可选
func ProvideHealthHandler(cfg *config.Config, client *backend.Client, pg *postgres.Client, rc *redis.Client) *handler.HealthHandler {
	h := handler.NewHealthHandler(cfg.App.Version)
	if pg != nil {
		h.Require("postgres", pg)
		h.Optional("backend", client)
	} else {
		h.Require("backend", client)
	}
	if rc != nil {
		h.Optional("redis", rc)
	}
	return h
}

// ProvideStreamHandler 提供事件流处理器
func ProvideStreamHandler(cfg *config.Config, hub *events.Hub) *handler.StreamHandler {
	return handler.NewStreamHandler(hub, cfg.Events.Heartbeat)
}

// ProvideJournal 启用且使用 redis 镜像时提供批次日志，否则返回 nil
func ProvideJournal(ctx context.Context, cfg *config.Config, hub *events.Hub, rc *redis.Client) *messaging.Journal {
	jc := cfg.Events.Journal
	if !jc.Enabled {
		return nil
	}
	if rc == nil {
		logger.Warn(ctx, "batch journal requires the redis mirror driver, journal disabled")
		return nil
	}
	producer := messaging.NewProducer(rc.Redis(), jc.MaxLen)
	return messaging.NewJournal(hub, producer, messaging.Stream(jc.Stream))
}
