package symmetric

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"errors"
	"fmt"

	"golang.org/x/crypto/blowfish"

	"github.com/dep2p/go-gridauth/pkg/types"
)

var (
	// ErrUnsupportedAlgorithm 不支持的对称算法
	ErrUnsupportedAlgorithm = errors.New("unsupported symmetric algorithm")

	// ErrBadPadding 解密后填充非法（密钥不一致或数据被篡改）
	ErrBadPadding = errors.New("bad padding")

	// ErrShortSecret 共享秘密不足以派生密钥与 IV
	ErrShortSecret = errors.New("shared secret too short")
)

// Direction 加密或解密
type Direction int

const (
	// Encrypt 加密方向
	Encrypt Direction = iota
	// Decrypt 解密方向
	Decrypt
)

// String 返回方向名称
func (d Direction) String() string {
	if d == Encrypt {
		return "encrypt"
	}
	return "decrypt"
}

// Sizes 返回算法的密钥与 IV 字节长度
//
// DESede、Blowfish、AES 使用 CBC 模式。其余名称按密钥协商提供方的默认
// 行为处理：DES 与 TripleDES 取共享秘密开头的密钥字节，ECB 模式，IV 长度为 0；
// 提供方无法生成密钥的名称（如 RC4）返回 ErrUnsupportedAlgorithm。
func Sizes(alg types.CipherAlgorithm) (keyLen, ivLen int, err error) {
	switch {
	case alg.Is("DESede"):
		return 24, des.BlockSize, nil
	case alg.Is("Blowfish"):
		keyLen = 16
		if alg.KeySize > 128 {
			keyLen = alg.KeySize / 8
		}
		return keyLen, blowfish.BlockSize, nil
	case alg.Is("AES"):
		keyLen = 16
		if alg.KeySize == 192 || alg.KeySize == 256 {
			keyLen = alg.KeySize / 8
		}
		return keyLen, aes.BlockSize, nil
	case alg.Is("DES"):
		return 8, 0, nil
	case alg.Is("TripleDES"):
		return 24, 0, nil
	default:
		return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg.String())
	}
}

func newBlock(alg types.CipherAlgorithm, key []byte) (cipher.Block, error) {
	switch {
	case alg.Is("DESede"), alg.Is("TripleDES"):
		return des.NewTripleDESCipher(key)
	case alg.Is("Blowfish"):
		return blowfish.NewCipher(key)
	case alg.Is("AES"):
		return aes.NewCipher(key)
	case alg.Is("DES"):
		return des.NewCipher(key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg.String())
	}
}

// Cipher 单方向的分组密码，iv 为空时使用 ECB 模式
type Cipher struct {
	alg   types.CipherAlgorithm
	dir   Direction
	block cipher.Block
	iv    []byte
}

// NewCipher 从共享秘密派生密码
func NewCipher(dir Direction, alg types.CipherAlgorithm, secret []byte) (*Cipher, error) {
	keyLen, ivLen, err := Sizes(alg)
	if err != nil {
		return nil, err
	}
	if len(secret) < keyLen+ivLen {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortSecret, keyLen+ivLen, len(secret))
	}

	key := append([]byte(nil), secret[:keyLen]...)
	var iv []byte
	if ivLen > 0 {
		iv = append([]byte(nil), secret[keyLen:keyLen+ivLen]...)
	}
	block, err := newBlock(alg, key)
	if err != nil {
		return nil, fmt.Errorf("init %s: %w", alg, err)
	}
	return &Cipher{alg: alg, dir: dir, block: block, iv: iv}, nil
}

// Algorithm 返回算法
func (c *Cipher) Algorithm() types.CipherAlgorithm {
	return c.alg
}

// Direction 返回方向
func (c *Cipher) Direction() Direction {
	return c.dir
}

// Apply 按方向处理一段完整数据
func (c *Cipher) Apply(data []byte) ([]byte, error) {
	if c.dir == Encrypt {
		return c.encrypt(data), nil
	}
	return c.decrypt(data)
}

func (c *Cipher) encrypt(plaintext []byte) []byte {
	padded := pad(plaintext, c.block.BlockSize())
	out := make([]byte, len(padded))
	c.encrypter().CryptBlocks(out, padded)
	return out
}

func (c *Cipher) decrypt(ciphertext []byte) ([]byte, error) {
	bs := c.block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d", ErrBadPadding, len(ciphertext))
	}
	out := make([]byte, len(ciphertext))
	c.decrypter().CryptBlocks(out, ciphertext)
	return unpad(out, bs)
}

func (c *Cipher) encrypter() cipher.BlockMode {
	if c.iv == nil {
		return ecb{block: c.block, fn: c.block.Encrypt}
	}
	return cipher.NewCBCEncrypter(c.block, c.iv)
}

func (c *Cipher) decrypter() cipher.BlockMode {
	if c.iv == nil {
		return ecb{block: c.block, fn: c.block.Decrypt}
	}
	return cipher.NewCBCDecrypter(c.block, c.iv)
}

// ecb 逐块独立处理
type ecb struct {
	block cipher.Block
	fn    func(dst, src []byte)
}

func (e ecb) BlockSize() int { return e.block.BlockSize() }

func (e ecb) CryptBlocks(dst, src []byte) {
	bs := e.block.BlockSize()
	for len(src) > 0 {
		e.fn(dst[:bs], src[:bs])
		src, dst = src[bs:], dst[bs:]
	}
}

// pad PKCS#5 填充，总是追加 1..blockSize 字节
func pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	for i := 0; i < n; i++ {
		out = append(out, byte(n))
	}
	return out
}

func unpad(b []byte, blockSize int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, ErrBadPadding
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, ErrBadPadding
		}
	}
	return b[:len(b)-n], nil
}
