package gridauth

import (
	"errors"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/core/credential"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// Option 服务端配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 完整配置
	config *config.Config

	// 认证插件注册表
	registry *credential.Registry

	// 集成安全服务
	service interfaces.SecurityService

	// 本服务端成员标识
	member types.MemberID

	// 指标注册器
	registerer prometheus.Registerer

	// 握手成功后的连接处理
	handler ConnHandler

	// 用户自定义 Fx 选项
	fxOptions []fx.Option
}

// newOptions 创建默认选项
func newOptions() *options {
	return &options{
		config:  config.NewConfig(),
		handler: closeHandler,
	}
}

// apply 依次应用选项
func (o *options) apply(opts ...Option) error {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return err
		}
	}
	return nil
}

// ════════════════════════════════════════════════════════════════════════════
//                              配置
// ════════════════════════════════════════════════════════════════════════════

// WithConfig 使用完整配置
//
// cfg 会被复制，之后对 cfg 的修改不影响服务端。
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return errors.New("config must not be nil")
		}
		o.config = cfg.Clone()
		return nil
	}
}

// WithListenAddr 设置监听地址
//
// 示例：
//
//	gridauth.WithListenAddr("0.0.0.0:40404")
func WithListenAddr(addr string) Option {
	return func(o *options) error {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			return errors.New("listen address must not be empty")
		}
		o.config.Handshake.ListenAddr = addr
		return nil
	}
}

// WithMetricsAddr 设置 Prometheus 指标 HTTP 地址，为空表示不对外暴露
func WithMetricsAddr(addr string) Option {
	return func(o *options) error {
		o.config.Metrics.ListenAddr = strings.TrimSpace(addr)
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              认证
// ════════════════════════════════════════════════════════════════════════════

// WithRegistry 使用自定义认证插件注册表
//
// 内置插件不会被自动加入自定义注册表，需要时调用 credential.RegisterBuiltins。
func WithRegistry(r *credential.Registry) Option {
	return func(o *options) error {
		o.registry = r
		return nil
	}
}

// WithSecurityService 启用集成安全服务
func WithSecurityService(svc interfaces.SecurityService) Option {
	return func(o *options) error {
		o.service = svc
		return nil
	}
}

// WithServerMember 设置写入每个应答的服务端成员标识
//
// 不设置时启动时随机生成。
func WithServerMember(m types.MemberID) Option {
	return func(o *options) error {
		if m.IsEmpty() {
			return errors.New("server member must not be empty")
		}
		o.member = m
		return nil
	}
}

// ════════════════════════════════════════════════════════════════════════════
//                              扩展
// ════════════════════════════════════════════════════════════════════════════

// WithRegisterer 将握手指标注册到外部 Prometheus 注册器
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithHandler 设置握手成功后的连接处理函数
//
// 处理函数负责关闭连接，并应在 ctx 结束后尽快返回。
func WithHandler(h ConnHandler) Option {
	return func(o *options) error {
		if h == nil {
			return errors.New("handler must not be nil")
		}
		o.handler = h
		return nil
	}
}

// WithFxOptions 追加自定义 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
