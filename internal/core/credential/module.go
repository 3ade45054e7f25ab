package credential

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// Config 配置（可选）
	Config *config.Config `optional:"true"`

	// Registry 插件注册表（可选，缺省为只含内置插件的注册表）
	Registry *Registry `optional:"true"`

	// Service 集成安全服务（可选）
	Service interfaces.SecurityService `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	// Authority 凭证获取与校验
	Authority *Authority

	// CredentialAuthority 接口形式的 Authority
	CredentialAuthority interfaces.CredentialAuthority
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) ModuleOutput {
	cfg := config.NewConfig()
	if input.Config != nil {
		cfg = input.Config
	}

	registry := input.Registry
	if registry == nil {
		registry = NewRegistry()
		// 新建的空注册表不会出现重名
		_ = RegisterBuiltins(registry)
	}

	a := NewAuthority(cfg.Security, registry, input.Service)
	return ModuleOutput{
		Authority:           a,
		CredentialAuthority: a,
	}
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("credential",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC        fx.Lifecycle
	Authority *Authority
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			a := input.Authority
			authInits, authenticators := a.registry.Names()
			log.Info("凭证模块启动",
				"authRequired", a.AuthRequired(),
				"authInit", a.cfg.AuthInit,
				"authenticator", a.cfg.Authenticator,
				"registeredAuthInits", authInits,
				"registeredAuthenticators", authenticators)
			return nil
		},
		OnStop: func(_ context.Context) error {
			log.Info("凭证模块停止")
			return nil
		},
	})
}

// ============================================================================
//                              模块元信息
// ============================================================================

// 模块元信息常量
const (
	Version     = "1.0.0"
	Name        = "credential"
	Description = "握手凭证获取与校验"
)
