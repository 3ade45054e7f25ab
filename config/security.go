package config

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-gridauth/pkg/types"
)

// SecurityConfig 握手安全配置
//
// 字段与缓存层 security-* 属性一一对应，见 FromProperties。
type SecurityConfig struct {
	// ClientTrustStorePath 客户端信任库（服务端证书）路径
	// 为空表示不要求服务端签名
	ClientTrustStorePath string `json:"client_truststore_path,omitempty"`

	// ClientTrustStorePassword 客户端信任库密码
	ClientTrustStorePassword string `json:"client_truststore_password,omitempty"`

	// ServerKeystorePath 服务端签名密钥库路径
	ServerKeystorePath string `json:"server_keystore_path,omitempty"`

	// ServerKeystoreAlias 服务端签名密钥别名
	ServerKeystoreAlias string `json:"server_keystore_alias,omitempty"`

	// ServerKeystorePassword 服务端签名密钥库密码
	ServerKeystorePassword string `json:"server_keystore_password,omitempty"`

	// Algorithm 对称算法 "NAME[:keysize]"
	// 为空表示以明文发送凭证
	Algorithm string `json:"algorithm,omitempty"`

	// ClientAuthRequired 服务端是否要求客户端认证
	ClientAuthRequired bool `json:"client_auth_required"`

	// AuthInit 客户端凭证获取插件名，为空时使用 security-username / security-password
	AuthInit string `json:"auth_init,omitempty"`

	// Authenticator 服务端凭证校验插件名
	Authenticator string `json:"authenticator,omitempty"`

	// PerSessionKeys 每个会话生成独立的 DH 密钥对
	// 默认 false：整个进程共享一对密钥
	PerSessionKeys bool `json:"per_session_keys"`

	// Properties 传给认证插件的安全属性
	Properties map[string]string `json:"properties,omitempty"`
}

// DefaultSecurityConfig 返回默认安全配置
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		Algorithm:          "",    // 不加密：与未配置 security-client-dhalgo 的集群一致
		ClientAuthRequired: false, // 不要求客户端认证
		PerSessionKeys:     false, // 进程级共享 DH 密钥对
	}
}

// CipherAlgorithm 解析对称算法
func (c SecurityConfig) CipherAlgorithm() (types.CipherAlgorithm, error) {
	return types.ParseCipherAlgorithm(c.Algorithm)
}

// ServerAuthRequired 客户端是否要求服务端签名
func (c SecurityConfig) ServerAuthRequired() bool {
	return c.ClientTrustStorePath != ""
}

// SecurityProperties 返回安全属性副本
func (c SecurityConfig) SecurityProperties() types.Properties {
	return types.Properties(c.Properties).Clone()
}

// Validate 验证安全配置
func (c SecurityConfig) Validate() error {
	if _, err := c.CipherAlgorithm(); err != nil {
		return err
	}
	if c.ServerKeystoreAlias != "" && c.ServerKeystorePath == "" {
		return errors.New("server keystore alias set without keystore path")
	}
	if c.ClientAuthRequired && c.Authenticator == "" {
		return fmt.Errorf("client authentication required but no authenticator configured")
	}
	return nil
}

// WithAlgorithm 设置对称算法
func (c SecurityConfig) WithAlgorithm(alg string) SecurityConfig {
	c.Algorithm = alg
	return c
}

// WithClientTrustStore 设置客户端信任库
func (c SecurityConfig) WithClientTrustStore(path, password string) SecurityConfig {
	c.ClientTrustStorePath = path
	c.ClientTrustStorePassword = password
	return c
}

// WithServerKeystore 设置服务端签名密钥库
func (c SecurityConfig) WithServerKeystore(path, alias, password string) SecurityConfig {
	c.ServerKeystorePath = path
	c.ServerKeystoreAlias = alias
	c.ServerKeystorePassword = password
	return c
}

// WithAuthenticator 设置服务端校验插件并要求客户端认证
func (c SecurityConfig) WithAuthenticator(name string) SecurityConfig {
	c.Authenticator = name
	c.ClientAuthRequired = name != ""
	return c
}

// WithCredentials 设置 security-username / security-password
func (c SecurityConfig) WithCredentials(username, password string) SecurityConfig {
	props := make(map[string]string, len(c.Properties)+2)
	for k, v := range c.Properties {
		props[k] = v
	}
	props[PropUsername] = username
	props[PropPassword] = password
	c.Properties = props
	return c
}
