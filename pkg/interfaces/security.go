// Package interfaces 定义 gridauth 公共接口
//
// 本文件定义服务端身份证明与加解密接口。
package interfaces

// ServerAuthenticator 基于数字签名的服务端身份证明
//
// 信任库未配置时 Enabled 返回 false，此时不要求 server 签名。
type ServerAuthenticator interface {
	// Enabled 是否配置了信任库
	Enabled() bool

	// Subject 本端证书主体名，无签名密钥时为空
	Subject() string

	// Sign 使用本端私钥签名挑战
	Sign(challenge []byte) ([]byte, error)

	// Verify 使用信任库中 subject 对应的证书校验签名
	//
	// 未知 subject 返回 false。
	Verify(subject string, challenge, signature []byte) bool
}

// Encryptor 握手建立后的凭证加解密
type Encryptor interface {
	// EncryptBytes 加密，非 DH 模式下原样返回
	EncryptBytes(data []byte) ([]byte, error)

	// DecryptBytes 解密，非 DH 模式下原样返回
	DecryptBytes(data []byte) ([]byte, error)
}
