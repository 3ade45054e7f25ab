package config

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/magiconair/properties"
)

// 缓存层安全属性名
const (
	PropClientKeystorePath     = "security-client-kspath"
	PropClientKeystorePassword = "security-client-kspasswd"
	PropServerKeystorePath     = "security-server-kspath"
	PropServerKeystoreAlias    = "security-server-ksalias"
	PropServerKeystorePassword = "security-server-kspasswd"
	PropClientDHAlgo           = "security-client-dhalgo"
	PropClientAuthInit         = "security-client-auth-init"
	PropClientAuthenticator    = "security-client-authenticator"
	PropUsername               = "security-username"
	PropPassword               = "security-password"

	// PropPerSessionKeys 非缓存层属性：每会话 DH 密钥
	PropPerSessionKeys = "security-gridauth-per-session-keys"

	securityPrefix = "security-"
)

// FromProperties 由缓存层属性创建配置
//
// 所有 security-* 属性都会保存在 Security.Properties 中供认证插件使用；
// 配置了 security-client-authenticator 即要求客户端认证。
func FromProperties(props map[string]string) (*Config, error) {
	cfg := NewConfig()
	sec := &cfg.Security

	for k, v := range props {
		if !strings.HasPrefix(k, securityPrefix) {
			continue
		}
		if sec.Properties == nil {
			sec.Properties = make(map[string]string)
		}
		sec.Properties[k] = v
	}

	sec.ClientTrustStorePath = strings.TrimSpace(props[PropClientKeystorePath])
	sec.ClientTrustStorePassword = props[PropClientKeystorePassword]
	sec.ServerKeystorePath = strings.TrimSpace(props[PropServerKeystorePath])
	sec.ServerKeystoreAlias = strings.TrimSpace(props[PropServerKeystoreAlias])
	sec.ServerKeystorePassword = props[PropServerKeystorePassword]
	sec.Algorithm = strings.TrimSpace(props[PropClientDHAlgo])
	sec.AuthInit = strings.TrimSpace(props[PropClientAuthInit])
	sec.Authenticator = strings.TrimSpace(props[PropClientAuthenticator])
	sec.ClientAuthRequired = sec.Authenticator != ""

	if v, ok := props[PropPerSessionKeys]; ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		sec.PerSessionKeys = b
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// propertiesLoader 按 Java 属性文件规则读取：ISO-8859-1 编码，
// 不展开 ${...}
var propertiesLoader = &properties.Loader{
	Encoding:         properties.ISO_8859_1,
	DisableExpansion: true,
}

// LoadProperties 从属性文件加载配置
func LoadProperties(path string) (*Config, error) {
	p, err := propertiesLoader.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read properties %s: %w", path, err)
	}
	return FromProperties(p.Map())
}

// ParseProperties 解析属性文本
//
// 支持 =、: 或空白分隔，# 与 ! 注释，反斜杠转义和续行。
func ParseProperties(r io.Reader) (map[string]string, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	p, err := propertiesLoader.LoadBytes(buf)
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}
