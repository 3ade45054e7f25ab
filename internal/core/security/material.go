package security

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/core/security/certauth"
	"github.com/dep2p/go-gridauth/internal/core/security/dh"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// ChallengeSize 挑战字节数
const ChallengeSize = 64

// Material 进程级安全材料
//
// 构建后不再修改。
type Material struct {
	// Params DH 域参数
	Params dh.Params

	// KeyPair 进程级 DH 密钥对
	KeyPair *dh.PrivateKey

	// Algorithm 对称算法，零值表示以明文发送凭证
	Algorithm types.CipherAlgorithm

	// Authenticator 服务端身份证明
	Authenticator interfaces.ServerAuthenticator

	// PerSessionKeys 每会话生成新的 DH 密钥对
	PerSessionKeys bool

	// Rand 随机源
	Rand io.Reader
}

// NewMaterial 由配置构建安全材料
//
// 加载密钥库并生成 DH 密钥对，失败时应中止启动。
func NewMaterial(cfg config.SecurityConfig) (*Material, error) {
	alg, err := cfg.CipherAlgorithm()
	if err != nil {
		return nil, err
	}

	auth, err := certauth.Load(
		cfg.ClientTrustStorePath, cfg.ClientTrustStorePassword,
		cfg.ServerKeystorePath, cfg.ServerKeystoreAlias, cfg.ServerKeystorePassword,
	)
	if err != nil {
		return nil, err
	}

	return Build(alg, auth, cfg.PerSessionKeys, rand.Reader)
}

// Build 使用给定组件构建安全材料
func Build(alg types.CipherAlgorithm, auth interfaces.ServerAuthenticator, perSession bool, random io.Reader) (*Material, error) {
	if random == nil {
		random = rand.Reader
	}
	params := dh.DefaultParams()
	kp, err := dh.GenerateKey(random, params)
	if err != nil {
		return nil, fmt.Errorf("generate DH key pair: %w", err)
	}

	return &Material{
		Params:         params,
		KeyPair:        kp,
		Algorithm:      alg,
		Authenticator:  auth,
		PerSessionKeys: perSession,
		Rand:           random,
	}, nil
}

// SessionKey 返回会话使用的 DH 私钥
//
// 默认返回进程级密钥对；PerSessionKeys 时生成新的密钥对。
func (m *Material) SessionKey() (*dh.PrivateKey, error) {
	if !m.PerSessionKeys {
		if m.KeyPair == nil {
			return nil, ErrNoKeyPair
		}
		return m.KeyPair, nil
	}
	return dh.GenerateKey(m.Rand, m.Params)
}

// Challenge 生成随机挑战
func (m *Material) Challenge() ([]byte, error) {
	c := make([]byte, ChallengeSize)
	if _, err := io.ReadFull(m.Rand, c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortChallenge, err)
	}
	return c, nil
}

// ServerAuthEnabled 客户端是否要求服务端签名
func (m *Material) ServerAuthEnabled() bool {
	return m.Authenticator != nil && m.Authenticator.Enabled()
}

// Encrypted 是否启用 DH 加密
func (m *Material) Encrypted() bool {
	return !m.Algorithm.IsZero()
}
