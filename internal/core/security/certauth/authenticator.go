package certauth

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"io"

	"github.com/dep2p/go-gridauth/internal/util/logger"
)

var log = logger.Logger("certauth")

// Authenticator 服务端身份证明
//
// 加载完成后只读，可被多个握手并发使用。
type Authenticator struct {
	trust *TrustStore
	key   *SigningKey
	rand  io.Reader
}

// New 创建 Authenticator
//
// trust 为 nil 表示未配置信任库（不要求服务端签名）；key 为 nil 表示本端不能签名。
func New(trust *TrustStore, key *SigningKey) *Authenticator {
	return &Authenticator{trust: trust, key: key, rand: rand.Reader}
}

// Load 按路径加载信任库与签名密钥，空路径表示不配置
func Load(trustPath, trustPassword, keyPath, keyAlias, keyPassword string) (*Authenticator, error) {
	var (
		trust *TrustStore
		key   *SigningKey
		err   error
	)
	if trustPath != "" {
		if trust, err = LoadTrustStore(trustPath, trustPassword); err != nil {
			return nil, fmt.Errorf("load client trust store: %w", err)
		}
		log.Info("client trust store loaded", "path", trustPath, "certificates", trust.Len())
	}
	if keyPath != "" {
		if key, err = LoadSigningKey(keyPath, keyAlias, keyPassword); err != nil {
			return nil, fmt.Errorf("load server keystore: %w", err)
		}
		log.Info("server signing key loaded", "path", keyPath, "subject", key.Subject())
	}
	return New(trust, key), nil
}

// Enabled 是否配置了信任库
func (a *Authenticator) Enabled() bool {
	return a != nil && a.trust != nil
}

// Subject 本端证书主体名
func (a *Authenticator) Subject() string {
	if a == nil || a.key == nil {
		return ""
	}
	return a.key.Subject()
}

// Sign 使用本端私钥签名挑战
func (a *Authenticator) Sign(challenge []byte) ([]byte, error) {
	if a == nil || a.key == nil {
		return nil, ErrNoPrivateKey
	}
	alg := SignatureAlgorithm(a.key.Certificate)
	digest, opts, err := prepare(alg, challenge)
	if err != nil {
		return nil, err
	}
	sig, err := a.key.Signer.Sign(a.rand, digest, opts)
	if err != nil {
		return nil, fmt.Errorf("sign challenge: %w", err)
	}
	return sig, nil
}

// Verify 校验 subject 对挑战的签名
//
// 未知 subject 与签名错误都返回 false。
func (a *Authenticator) Verify(subject string, challenge, signature []byte) bool {
	if a == nil {
		return false
	}
	cert, ok := a.trust.Lookup(subject)
	if !ok {
		log.Warn("no trusted certificate for subject", "subject", subject)
		return false
	}
	if err := checkSignature(cert, SignatureAlgorithm(cert), challenge, signature); err != nil {
		log.Warn("server signature rejected", "subject", subject, "err", err)
		return false
	}
	log.Debug("server signature verified", "subject", subject)
	return true
}

// ============================================================================
//                              签名算法
// ============================================================================

// SubjectName 证书主体名（RFC 2253 风格）
func SubjectName(c *x509.Certificate) string {
	return c.Subject.String()
}

// SignatureAlgorithm 确定证书对应密钥的签名算法
func SignatureAlgorithm(c *x509.Certificate) x509.SignatureAlgorithm {
	if keyAlgorithmOf(c.SignatureAlgorithm) == c.PublicKeyAlgorithm {
		return c.SignatureAlgorithm
	}
	switch c.PublicKeyAlgorithm {
	case x509.RSA:
		return x509.SHA256WithRSA
	case x509.ECDSA:
		return x509.ECDSAWithSHA256
	case x509.Ed25519:
		return x509.PureEd25519
	default:
		return x509.UnknownSignatureAlgorithm
	}
}

func keyAlgorithmOf(alg x509.SignatureAlgorithm) x509.PublicKeyAlgorithm {
	switch alg {
	case x509.SHA1WithRSA, x509.SHA256WithRSA, x509.SHA384WithRSA, x509.SHA512WithRSA,
		x509.SHA256WithRSAPSS, x509.SHA384WithRSAPSS, x509.SHA512WithRSAPSS:
		return x509.RSA
	case x509.ECDSAWithSHA1, x509.ECDSAWithSHA256, x509.ECDSAWithSHA384, x509.ECDSAWithSHA512:
		return x509.ECDSA
	case x509.PureEd25519:
		return x509.Ed25519
	default:
		return x509.UnknownPublicKeyAlgorithm
	}
}

// prepare 按签名算法计算摘要与签名选项
func prepare(alg x509.SignatureAlgorithm, msg []byte) ([]byte, crypto.SignerOpts, error) {
	var hash crypto.Hash
	pss := false
	switch alg {
	case x509.SHA1WithRSA, x509.ECDSAWithSHA1:
		hash = crypto.SHA1
	case x509.SHA256WithRSA, x509.ECDSAWithSHA256:
		hash = crypto.SHA256
	case x509.SHA384WithRSA, x509.ECDSAWithSHA384:
		hash = crypto.SHA384
	case x509.SHA512WithRSA, x509.ECDSAWithSHA512:
		hash = crypto.SHA512
	case x509.SHA256WithRSAPSS:
		hash, pss = crypto.SHA256, true
	case x509.SHA384WithRSAPSS:
		hash, pss = crypto.SHA384, true
	case x509.SHA512WithRSAPSS:
		hash, pss = crypto.SHA512, true
	case x509.PureEd25519:
		return msg, crypto.Hash(0), nil
	default:
		return nil, nil, fmt.Errorf("unsupported signature algorithm %s", alg)
	}

	h := hash.New()
	h.Write(msg)
	digest := h.Sum(nil)
	if pss {
		return digest, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: hash}, nil
	}
	return digest, hash, nil
}

// checkSignature 校验签名
//
// x509 拒绝 SHA-1 签名，而旧证书的对端按证书的 SHA1withRSA / SHA1withECDSA
// 签名，这两种算法直接用公钥校验。
func checkSignature(c *x509.Certificate, alg x509.SignatureAlgorithm, msg, sig []byte) error {
	if alg != x509.SHA1WithRSA && alg != x509.ECDSAWithSHA1 {
		return c.CheckSignature(alg, msg, sig)
	}
	digest, _, err := prepare(alg, msg)
	if err != nil {
		return err
	}
	switch pub := c.PublicKey.(type) {
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(pub, crypto.SHA1, digest, sig)
	case *ecdsa.PublicKey:
		if !ecdsa.VerifyASN1(pub, digest, sig) {
			return errors.New("ecdsa verification failure")
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedKey, pub)
	}
}
