// Package security 提供握手共享的进程级安全材料
package security

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/util/logger"
)

var log = logger.Logger("security")

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// Config 配置（可选，缺省使用默认配置）
	Config *config.Config `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	// Material 进程级安全材料
	Material *Material
}

// ============================================================================
//                              服务提供
// ============================================================================

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	cfg := config.NewConfig()
	if input.Config != nil {
		cfg = input.Config
	}

	m, err := NewMaterial(cfg.Security)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{Material: m}, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("security",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC       fx.Lifecycle
	Material *Material
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			m := input.Material
			log.Info("安全模块启动",
				"algorithm", m.Algorithm.String(),
				"serverAuth", m.ServerAuthEnabled(),
				"perSessionKeys", m.PerSessionKeys)
			return nil
		},
		OnStop: func(_ context.Context) error {
			log.Info("安全模块停止")
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
	Name        = "security"
	Description = "握手安全材料：DH 密钥对、对称算法与服务端身份证明"
)
