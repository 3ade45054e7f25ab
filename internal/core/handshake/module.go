package handshake

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/fx"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/core/security"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// Config 配置（可选）
	Config *config.Config `optional:"true"`

	// Material 进程级安全材料
	Material *security.Material

	// Authority 凭证获取与校验
	Authority interfaces.CredentialAuthority

	// Recorder 握手指标（可选）
	Recorder interfaces.HandshakeRecorder `optional:"true"`

	// Member 本服务端成员标识（可选，缺省随机生成）
	Member types.MemberID `name:"server_member" optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	// Acceptor 服务端握手处理器
	Acceptor *Acceptor
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

	member := input.Member
	if member.IsEmpty() {
		member = types.MemberID("gridauth-" + uuid.NewString())
	}

	return ModuleOutput{
		Acceptor: NewAcceptor(cfg.Handshake, input.Material, input.Authority, input.Recorder, member),
	}
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("handshake",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC       fx.Lifecycle
	Acceptor *Acceptor
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			a := input.Acceptor
			log.Info("握手模块启动",
				"member", a.member.String(),
				"readTimeout", a.cfg.ReadTimeout.String(),
				"metrics", a.recorder != nil)
			return nil
		},
		OnStop: func(_ context.Context) error {
			log.Info("握手模块停止")
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
	Name        = "handshake"
	Description = "缓存层连接握手：凭证交换、DH 密钥协商与服务端签名校验"
)
