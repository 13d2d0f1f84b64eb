//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"screenplay-wizard/internal/application/wizard"
	"screenplay-wizard/internal/config"
	"screenplay-wizard/internal/domain/service"
	"screenplay-wizard/internal/infrastructure/backend"
	"screenplay-wizard/internal/infrastructure/templates"
	"screenplay-wizard/internal/interfaces/http/handler"
	"screenplay-wizard/internal/interfaces/http/router"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		BackendSet,
		StorageSet,
		WizardSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// BackendSet 后端 API 客户端集合
var BackendSet = wire.NewSet(
	ProvideBackendClient,
	backend.NewGenerationClient,
	backend.NewCreditClient,
	backend.NewAuthClient,
	wire.Bind(new(service.GenerationService), new(*backend.GenerationClient)),
	wire.Bind(new(service.CreditService), new(*backend.CreditClient)),
	wire.Bind(new(service.AuthService), new(*backend.AuthClient)),
)

// StorageSet 项目存储与镜像集合
var StorageSet = wire.NewSet(
	ProvidePostgresClient,
	ProvideProjectStore,
	ProvideRedisClient,
	ProvideMirror,
)

// WizardSet 向导控制器集合
var WizardSet = wire.NewSet(
	ProvideTemplateCatalog,
	wire.Bind(new(wizard.TemplateSource), new(*templates.Catalog)),
	ProvideEventHub,
	ProvideJournal,
	ProvideWizardConfig,
	wire.Struct(new(wizard.Deps), "*"),
	wizard.New,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	handler.NewProjectHandler,
	handler.NewContentHandler,
	handler.NewGenerationHandler,
	ProvideStreamHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
