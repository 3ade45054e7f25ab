package certauth

import "errors"

var (
	// ErrNoPrivateKey 未配置服务端签名密钥
	ErrNoPrivateKey = errors.New("no server private key configured")

	// ErrAliasNotFound 密钥库中没有指定别名的私钥
	ErrAliasNotFound = errors.New("keystore alias not found")

	// ErrNoCertificate 密钥库中没有证书
	ErrNoCertificate = errors.New("no certificate in keystore")

	// ErrUnsupportedKey 不支持的私钥类型
	ErrUnsupportedKey = errors.New("unsupported private key type")
)
