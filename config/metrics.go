package config

import (
	"errors"
	"time"
)

// MetricsConfig 握手指标配置
//
// 包含 Prometheus 指标与握手连接的流量统计。
type MetricsConfig struct {
	// Enabled 是否启用指标收集
	// 默认值: true
	Enabled bool `json:"enabled"`

	// Namespace Prometheus 指标命名空间
	// 默认值: "gridauth"
	Namespace string `json:"namespace"`

	// ListenAddr /metrics HTTP 监听地址，为空表示不暴露
	ListenAddr string `json:"listen_addr,omitempty"`

	// RateWindow 流量速率统计窗口
	// 默认值: 60s
	RateWindow Duration `json:"rate_window"`
}

// DefaultMetricsConfig 返回默认的指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    true,
		Namespace:  "gridauth",
		RateWindow: Duration(60 * time.Second),
	}
}

// Validate 验证指标配置的有效性
func (c MetricsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Namespace == "" {
		return errors.New("metrics namespace must not be empty")
	}
	if c.RateWindow < Duration(time.Second) {
		return errors.New("metrics rate window must be at least 1s")
	}
	return nil
}
