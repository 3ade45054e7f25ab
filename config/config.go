// Package config 提供统一的配置管理
//
// 主 Config 结构体嵌入三个子配置，每个子配置在独立文件中定义：
//   - Security: 密钥库、对称算法、认证插件、客户端认证策略
//   - Handshake: 读超时、Accept 应答字段、监听与限流
//   - Metrics: Prometheus 指标与流量统计
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Security.Algorithm = "AES:256"
//
//	// 从缓存层安全属性创建
//	cfg, err := config.FromProperties(map[string]string{
//	    "security-client-dhalgo": "AES:128",
//	})
//
//	// 从 JSON 文件加载
//	cfg, err := config.LoadFile("gridauth.json")
package config

// Config 是 gridauth 的完整配置结构
type Config struct {
	// Security 安全配置
	Security SecurityConfig `json:"security"`

	// Handshake 握手配置
	Handshake HandshakeConfig `json:"handshake"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`
}

// NewConfig 创建默认配置
//
// 默认不启用 DH 加密、不要求客户端认证、不配置密钥库。
func NewConfig() *Config {
	return &Config{
		Security:  DefaultSecurityConfig(),
		Handshake: DefaultHandshakeConfig(),
		Metrics:   DefaultMetricsConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.Security.Validate(); err != nil {
		return err
	}
	if err := c.Handshake.Validate(); err != nil {
		return err
	}
	return c.Metrics.Validate()
}

// Clone 深拷贝配置
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cloned := *c
	if c.Security.Properties != nil {
		cloned.Security.Properties = make(map[string]string, len(c.Security.Properties))
		for k, v := range c.Security.Properties {
			cloned.Security.Properties[k] = v
		}
	}
	return &cloned
}
