package symmetric

import (
	"fmt"

	"github.com/dep2p/go-gridauth/internal/core/security/dh"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// CipherSession 每连接的密码缓存
//
// 每个方向至多创建一次；创建后即使传入不同的对端公钥也不会重新派生。
// 不是并发安全的，由连接所属的 goroutine 独占。
type CipherSession struct {
	local *dh.PrivateKey
	enc   *Cipher
	dec   *Cipher
}

// NewCipherSession 创建密码缓存，local 为本端 DH 私钥
func NewCipherSession(local *dh.PrivateKey) *CipherSession {
	return &CipherSession{local: local}
}

// Cipher 返回指定方向的密码，首次调用时派生
func (s *CipherSession) Cipher(dir Direction, alg types.CipherAlgorithm, peer *dh.PublicKey) (*Cipher, error) {
	slot := &s.enc
	if dir == Decrypt {
		slot = &s.dec
	}
	if *slot != nil {
		return *slot, nil
	}

	if s.local == nil {
		return nil, fmt.Errorf("%s cipher: no local key", dir)
	}
	secret, err := s.local.Agree(peer)
	if err != nil {
		return nil, fmt.Errorf("%s cipher: %w", dir, err)
	}
	c, err := NewCipher(dir, alg, secret)
	if err != nil {
		return nil, err
	}
	*slot = c
	return c, nil
}

// Encrypt 使用缓存的加密密码
func (s *CipherSession) Encrypt(alg types.CipherAlgorithm, peer *dh.PublicKey, plaintext []byte) ([]byte, error) {
	c, err := s.Cipher(Encrypt, alg, peer)
	if err != nil {
		return nil, err
	}
	return c.Apply(plaintext)
}

// Decrypt 使用缓存的解密密码
func (s *CipherSession) Decrypt(alg types.CipherAlgorithm, peer *dh.PublicKey, ciphertext []byte) ([]byte, error) {
	c, err := s.Cipher(Decrypt, alg, peer)
	if err != nil {
		return nil, err
	}
	return c.Apply(ciphertext)
}

// Cached 返回是否已创建指定方向的密码
func (s *CipherSession) Cached(dir Direction) bool {
	if dir == Decrypt {
		return s.dec != nil
	}
	return s.enc != nil
}
