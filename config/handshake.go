package config

import (
	"errors"
	"fmt"
	"time"
)

// HandshakeConfig 握手与服务端 Accept 配置
type HandshakeConfig struct {
	// ReadTimeout 握手期间每次阻塞读的超时
	ReadTimeout Duration `json:"read_timeout"`

	// ClientReadTimeout 客户端在开场时告知服务端的读超时
	ClientReadTimeout Duration `json:"client_read_timeout"`

	// Conflation 客户端事件合并设置: "default" / "on" / "off"
	Conflation string `json:"conflation"`

	// EndpointType Accept 应答中的端点类型字节
	EndpointType uint8 `json:"endpoint_type"`

	// QueueSize Accept 应答中的队列大小
	QueueSize int32 `json:"queue_size"`

	// DeltaPropagation 是否开启增量传播（非网关通道）
	DeltaPropagation bool `json:"delta_propagation"`

	// DistributedSystemID 本集群 ID（网关通道）
	DistributedSystemID int8 `json:"distributed_system_id"`

	// PDXRegistrySize PDX 类型注册表大小（网关通道）
	PDXRegistrySize int32 `json:"pdx_registry_size"`

	// ListenAddr 服务端监听地址
	ListenAddr string `json:"listen_addr"`

	// AcceptRate 每秒允许处理的新握手数，0 表示不限
	AcceptRate float64 `json:"accept_rate"`

	// AcceptBurst 握手限流突发量
	AcceptBurst int `json:"accept_burst"`
}

// DefaultHandshakeConfig 返回默认握手配置
func DefaultHandshakeConfig() HandshakeConfig {
	return HandshakeConfig{
		ReadTimeout:         Duration(59 * time.Second), // 与缓存服务器默认握手超时一致
		ClientReadTimeout:   Duration(10 * time.Second), // 客户端读超时
		Conflation:          "default",
		DeltaPropagation:    true,
		DistributedSystemID: -1, // 未配置集群 ID
		ListenAddr:          "127.0.0.1:40404",
		AcceptRate:          200,
		AcceptBurst:         50,
	}
}

// Validate 验证握手配置
func (c HandshakeConfig) Validate() error {
	if c.ReadTimeout <= 0 {
		return errors.New("handshake read timeout must be positive")
	}
	if c.ClientReadTimeout < 0 {
		return errors.New("client read timeout must not be negative")
	}
	if time.Duration(c.ClientReadTimeout)/time.Millisecond > 1<<31-1 {
		return errors.New("client read timeout overflows int32 milliseconds")
	}
	switch c.Conflation {
	case "", "default", "on", "off":
	default:
		return fmt.Errorf("conflation must be 'default', 'on' or 'off', got %q", c.Conflation)
	}
	if c.QueueSize < 0 {
		return errors.New("queue size must not be negative")
	}
	if c.AcceptRate < 0 || c.AcceptBurst < 0 {
		return errors.New("accept rate and burst must not be negative")
	}
	if c.AcceptRate > 0 && c.AcceptBurst == 0 {
		return errors.New("accept burst must be positive when accept rate is set")
	}
	return nil
}

// WithReadTimeout 设置握手读超时
func (c HandshakeConfig) WithReadTimeout(d time.Duration) HandshakeConfig {
	c.ReadTimeout = Duration(d)
	return c
}

// WithListenAddr 设置监听地址
func (c HandshakeConfig) WithListenAddr(addr string) HandshakeConfig {
	c.ListenAddr = addr
	return c
}
