package metrics

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/util/logger"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
)

var log = logger.Logger("metrics")

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	// Config 配置（可选）
	Config *config.Config `optional:"true"`

	// Registerer 指标注册表（可选，缺省使用新的 Registry）
	Registerer prometheus.Registerer `optional:"true"`
}

// ============================================================================
//                              模块输出服务
// ============================================================================

// ModuleOutput 定义模块输出服务
//
// 指标关闭时各字段为 nil。
type ModuleOutput struct {
	fx.Out

	// Metrics 握手指标
	Metrics *HandshakeMetrics

	// Recorder 接口形式的握手指标
	Recorder interfaces.HandshakeRecorder

	// Traffic 连接流量统计
	Traffic *TrafficCounter

	// Gatherer 供 /metrics 导出的采集器
	Gatherer prometheus.Gatherer
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
	if !cfg.Metrics.Enabled {
		return ModuleOutput{}, nil
	}

	reg := input.Registerer
	var gatherer prometheus.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	traffic := NewTrafficCounter(cfg.Metrics.RateWindow.Duration(), clock.New())
	m, err := NewHandshakeMetrics(cfg.Metrics.Namespace, reg, traffic)
	if err != nil {
		return ModuleOutput{}, err
	}
	return ModuleOutput{
		Metrics:  m,
		Recorder: m,
		Traffic:  traffic,
		Gatherer: gatherer,
	}, nil
}

// ============================================================================
//                              模块定义
// ============================================================================

// Module 返回 fx 模块配置
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// lifecycleInput 生命周期输入参数
type lifecycleInput struct {
	fx.In
	LC      fx.Lifecycle
	Traffic *TrafficCounter `optional:"true"`
}

// registerLifecycle 注册生命周期
func registerLifecycle(input lifecycleInput) {
	input.LC.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			log.Info("指标模块启动", "enabled", input.Traffic != nil)
			return nil
		},
		OnStop: func(_ context.Context) error {
			if t := input.Traffic; t != nil {
				s := t.Totals()
				log.Info("指标模块停止",
					"connections", s.Connections,
					"bytesIn", s.TotalIn,
					"bytesOut", s.TotalOut)
				return nil
			}
			log.Info("指标模块停止")
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
	Name        = "metrics"
	Description = "握手指标：Prometheus 指标与连接流量统计"
)
