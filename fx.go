package gridauth

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/dep2p/go-gridauth/internal/core/credential"
	"github.com/dep2p/go-gridauth/internal/core/handshake"
	"github.com/dep2p/go-gridauth/internal/core/metrics"
	"github.com/dep2p/go-gridauth/internal/core/security"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
)

// Modules 返回服务端依赖的全部内部模块
//
// 加载顺序（按依赖）：
//  1. Security: 进程级 DH 密钥与签名材料
//  2. Credential: 凭证获取与校验
//  3. Metrics: 握手指标与流量统计
//  4. Handshake: Acceptor
func Modules() fx.Option {
	return fx.Options(
		security.Module(),
		credential.Module(),
		metrics.Module(),
		handshake.Module(),
	)
}

// buildFxApp 构建 Fx 应用
//
// 配置已在 New 中验证。可选依赖只在对应选项设置时提供，
// 未提供时各模块使用自己的缺省值。
func buildFxApp(o *options, s *Server) *fx.App {
	fxOpts := []fx.Option{
		// 框架日志关闭，模块自行记录生命周期
		fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),

		fx.Supply(o.config),
		Modules(),
	}

	if o.registry != nil {
		fxOpts = append(fxOpts, fx.Supply(o.registry))
	}
	if o.service != nil {
		svc := o.service
		fxOpts = append(fxOpts, fx.Provide(func() interfaces.SecurityService { return svc }))
	}
	if !o.member.IsEmpty() {
		fxOpts = append(fxOpts, fx.Supply(fx.Annotated{Name: "server_member", Target: o.member}))
	}
	if o.registerer != nil {
		reg := o.registerer
		fxOpts = append(fxOpts, fx.Provide(func() prometheus.Registerer { return reg }))
	}

	fxOpts = append(fxOpts, o.fxOptions...)

	fxOpts = append(fxOpts,
		fx.Populate(&s.acceptor),
		fx.Invoke(func(in serverInput) {
			s.traffic = in.Traffic
			s.gatherer = in.Gatherer
			in.LC.Append(fx.Hook{
				OnStart: s.start,
				OnStop:  s.stop,
			})
		}),
	)
	return fx.New(fxOpts...)
}

// serverInput 服务端生命周期依赖
type serverInput struct {
	fx.In

	LC       fx.Lifecycle
	Traffic  *metrics.TrafficCounter `optional:"true"`
	Gatherer prometheus.Gatherer     `optional:"true"`
}
