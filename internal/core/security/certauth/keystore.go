package certauth

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"strings"

	"go.uber.org/multierr"
	"software.sslmate.com/src/go-pkcs12"
)

const (
	pemTypeCertificate = "CERTIFICATE"
	pemTypePrivateKey  = "PRIVATE KEY"
	pemTypeRSAKey      = "RSA PRIVATE KEY"
	pemTypeECKey       = "EC PRIVATE KEY"

	headerFriendlyName = "friendlyName"
	headerLocalKeyID   = "localKeyId"
)

// readKeystore 读取密钥库文件，判断是否为 PEM 格式
func readKeystore(path string) (data []byte, isPEM bool, err error) {
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read keystore: %w", err)
	}
	return data, bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN")), nil
}

// decodePEM 展开全部 PEM 块
func decodePEM(data []byte) []*pem.Block {
	var blocks []*pem.Block
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return blocks
		}
		blocks = append(blocks, block)
	}
}

// ============================================================================
//                              信任库
// ============================================================================

// TrustStore 证书主体 → 证书
type TrustStore struct {
	certs map[string]*x509.Certificate
}

// NewTrustStore 由证书构造信任库
func NewTrustStore(certs ...*x509.Certificate) *TrustStore {
	t := &TrustStore{certs: make(map[string]*x509.Certificate, len(certs))}
	for _, c := range certs {
		t.certs[SubjectName(c)] = c
	}
	return t
}

// LoadTrustStore 从 PEM 或 PKCS#12 文件加载信任库
//
// 单个证书解析失败不影响其余证书；全部失败时返回聚合错误。
func LoadTrustStore(path, password string) (*TrustStore, error) {
	data, isPEM, err := readKeystore(path)
	if err != nil {
		return nil, err
	}

	var (
		certs []*x509.Certificate
		errs  error
	)
	if isPEM {
		certs, errs = pemCertificates(decodePEM(data))
	} else {
		certs, err = pkcs12Certificates(data, password)
		if err != nil {
			return nil, fmt.Errorf("decode pkcs12 trust store %s: %w", path, err)
		}
	}
	if len(certs) == 0 {
		if errs != nil {
			return nil, errs
		}
		return nil, fmt.Errorf("%w: %s", ErrNoCertificate, path)
	}
	if errs != nil {
		log.Warn("skipped unreadable trust store entries", "path", path, "err", errs)
	}
	return NewTrustStore(certs...), nil
}

// pemCertificates 解析 CERTIFICATE 块，单个失败不影响其余
func pemCertificates(blocks []*pem.Block) ([]*x509.Certificate, error) {
	var (
		certs []*x509.Certificate
		errs  error
	)
	for _, b := range blocks {
		if b.Type != pemTypeCertificate {
			continue
		}
		c, err := x509.ParseCertificate(b.Bytes)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("parse certificate: %w", err))
			continue
		}
		certs = append(certs, c)
	}
	return certs, errs
}

// pkcs12Certificates 读取 PKCS#12 中的证书
//
// 先按 Java 信任库（只含受信证书）解析，失败时按密钥库解析，
// 取其中的证书与证书链。
func pkcs12Certificates(data []byte, password string) ([]*x509.Certificate, error) {
	certs, trustErr := pkcs12.DecodeTrustStore(data, password)
	if trustErr == nil {
		return certs, nil
	}
	_, leaf, chain, chainErr := pkcs12.DecodeChain(data, password)
	if chainErr != nil {
		return nil, multierr.Combine(trustErr, chainErr)
	}
	return append([]*x509.Certificate{leaf}, chain...), nil
}

// Lookup 按主体名查找证书
func (t *TrustStore) Lookup(subject string) (*x509.Certificate, bool) {
	if t == nil {
		return nil, false
	}
	c, ok := t.certs[subject]
	return c, ok
}

// Len 证书数量
func (t *TrustStore) Len() int {
	if t == nil {
		return 0
	}
	return len(t.certs)
}

// ============================================================================
//                              签名密钥
// ============================================================================

// SigningKey 服务端签名密钥与证书
type SigningKey struct {
	Signer      crypto.Signer
	Certificate *x509.Certificate
}

// NewSigningKey 组合私钥与证书，并检查两者匹配
func NewSigningKey(signer crypto.Signer, cert *x509.Certificate) (*SigningKey, error) {
	if signer == nil || cert == nil {
		return nil, ErrNoPrivateKey
	}
	pub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(cert.PublicKey) {
		return nil, fmt.Errorf("private key does not match certificate %q", SubjectName(cert))
	}
	return &SigningKey{Signer: signer, Certificate: cert}, nil
}

// Subject 证书主体名
func (k *SigningKey) Subject() string {
	return SubjectName(k.Certificate)
}

// LoadSigningKey 从 PEM 或 PKCS#12 文件加载指定别名的私钥与证书
//
// alias 为空时取第一个私钥。PEM 文件不区分别名。
func LoadSigningKey(path, alias, password string) (*SigningKey, error) {
	data, isPEM, err := readKeystore(path)
	if err != nil {
		return nil, err
	}
	if isPEM {
		return signingKeyFromBlocks(decodePEM(data), path, alias)
	}

	// 按包展开可按别名选取多条目密钥库中的私钥
	//lint:ignore SA1019 DecodeChain 不暴露 friendlyName
	blocks, bagErr := pkcs12.ToPEM(data, password)
	if bagErr == nil {
		return signingKeyFromBlocks(blocks, path, alias)
	}

	// 含 Java 信任条目等无法按包展开的文件，只能取唯一私钥
	key, cert, _, chainErr := pkcs12.DecodeChain(data, password)
	if chainErr != nil {
		return nil, fmt.Errorf("decode pkcs12 keystore %s: %w", path, multierr.Combine(bagErr, chainErr))
	}
	if alias != "" {
		log.Debug("keystore entries carry no usable alias, using its only key", "path", path, "alias", alias)
	}
	signer, err := asSigner(key)
	if err != nil {
		return nil, err
	}
	return NewSigningKey(signer, cert)
}

// signingKeyFromBlocks 按别名选取私钥块并匹配证书
func signingKeyFromBlocks(blocks []*pem.Block, path, alias string) (*SigningKey, error) {
	var keyBlock *pem.Block
	for _, b := range blocks {
		if !isKeyBlock(b) {
			continue
		}
		name, named := b.Headers[headerFriendlyName]
		if alias == "" || !named || strings.EqualFold(name, alias) {
			keyBlock = b
			break
		}
	}
	if keyBlock == nil {
		return nil, fmt.Errorf("%w: %q in %s", ErrAliasNotFound, alias, path)
	}

	signer, err := parsePrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, err
	}

	cert, err := matchCertificate(blocks, keyBlock, signer)
	if err != nil {
		return nil, err
	}
	return NewSigningKey(signer, cert)
}

func isKeyBlock(b *pem.Block) bool {
	return b.Type == pemTypePrivateKey || b.Type == pemTypeRSAKey || b.Type == pemTypeECKey
}

// matchCertificate 优先按 localKeyId 匹配，其次按公钥匹配
func matchCertificate(blocks []*pem.Block, keyBlock *pem.Block, signer crypto.Signer) (*x509.Certificate, error) {
	keyID := keyBlock.Headers[headerLocalKeyID]
	pub, _ := signer.Public().(interface{ Equal(crypto.PublicKey) bool })

	var byKey *x509.Certificate
	for _, b := range blocks {
		if b.Type != pemTypeCertificate {
			continue
		}
		c, err := x509.ParseCertificate(b.Bytes)
		if err != nil {
			continue
		}
		if keyID != "" && b.Headers[headerLocalKeyID] == keyID {
			return c, nil
		}
		if byKey == nil && pub != nil && pub.Equal(c.PublicKey) {
			byKey = c
		}
	}
	if byKey == nil {
		return nil, ErrNoCertificate
	}
	return byKey, nil
}

// parsePrivateKey 依次尝试 PKCS#8、PKCS#1、SEC1
func parsePrivateKey(der []byte) (crypto.Signer, error) {
	var key any
	var errs error

	k, err := x509.ParsePKCS8PrivateKey(der)
	if err == nil {
		key = k
	} else {
		errs = multierr.Append(errs, err)
		if rk, err := x509.ParsePKCS1PrivateKey(der); err == nil {
			key = rk
		} else if ek, err := x509.ParseECPrivateKey(der); err == nil {
			key = ek
		} else {
			errs = multierr.Append(errs, err)
		}
	}
	if key == nil {
		return nil, fmt.Errorf("parse private key: %w", errs)
	}

	return asSigner(key)
}

// asSigner 限定支持的私钥类型
func asSigner(key any) (crypto.Signer, error) {
	switch key := key.(type) {
	case *rsa.PrivateKey:
		return key, nil
	case *ecdsa.PrivateKey:
		return key, nil
	case ed25519.PrivateKey:
		return key, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}
}
