// Package dh 实现握手使用的有限域 Diffie-Hellman 密钥协商
//
// 集群内所有进程共享同一组固定参数（1023 位私钥长度）。参数不一致时
// 协商不会报错，只会得到不同的共享秘密，随后表现为解密失败。
package dh

import (
	"errors"
	"fmt"
	"io"
	"math/big"
)

var (
	// ErrInvalidParams 参数非法
	ErrInvalidParams = errors.New("invalid DH parameters")

	// ErrInvalidPublicKey 对端公钥非法或编码错误
	ErrInvalidPublicKey = errors.New("invalid DH public key")
)

const (
	defaultPrime = "13528702063991073999718992897071702177131142188276542919088770094024269" +
		"73079899070080419278066109785292538223079165925365098181867673946" +
		"34756714063947534092593553024224277712367371302394452615862654308" +
		"11180902979719649450105660478776364198726078338308557022096810447" +
		"3500348898008043285865193451061481841186553"

	defaultGenerator = "13058345680719715096166513407513969537624553636623932169016704425008150" +
		"56576152779768716554354314319087014857769741104157332735258102835" +
		"93126577393912282416840649805564834470583437473176415335737232689" +
		"81480201869671811010996732593655666464627559582258861254878896534" +
		"1273697569202082715873518528062345259949959"

	// DefaultPrivateBits 私钥位长
	DefaultPrivateBits = 1023
)

// Params DH 域参数
type Params struct {
	P *big.Int
	G *big.Int
	// L 私钥位长，0 表示未指定
	L int
}

// DefaultParams 返回集群共享的固定参数
func DefaultParams() Params {
	p, _ := new(big.Int).SetString(defaultPrime, 10)
	g, _ := new(big.Int).SetString(defaultGenerator, 10)
	return Params{P: p, G: g, L: DefaultPrivateBits}
}

// Validate 检查参数
func (p Params) Validate() error {
	if p.P == nil || p.G == nil {
		return fmt.Errorf("%w: missing prime or generator", ErrInvalidParams)
	}
	if p.P.Sign() <= 0 || p.P.Bit(0) == 0 || p.P.BitLen() < 512 {
		return fmt.Errorf("%w: prime must be odd and at least 512 bits", ErrInvalidParams)
	}
	pMinus1 := new(big.Int).Sub(p.P, big.NewInt(1))
	if p.G.Cmp(big.NewInt(1)) <= 0 || p.G.Cmp(pMinus1) >= 0 {
		return fmt.Errorf("%w: generator out of range", ErrInvalidParams)
	}
	if p.L < 0 || p.L > p.P.BitLen() {
		return fmt.Errorf("%w: private length %d", ErrInvalidParams, p.L)
	}
	return nil
}

// Equal 比较两组参数（忽略 L）
func (p Params) Equal(other Params) bool {
	if p.P == nil || p.G == nil || other.P == nil || other.G == nil {
		return false
	}
	return p.P.Cmp(other.P) == 0 && p.G.Cmp(other.G) == 0
}

// SecretLen 共享秘密字节长度（素数字节长）
func (p Params) SecretLen() int {
	return (p.P.BitLen() + 7) / 8
}

// PublicKey DH 公钥
type PublicKey struct {
	Params Params
	Y      *big.Int
}

// PrivateKey DH 私钥
type PrivateKey struct {
	PublicKey
	X *big.Int
}

// GenerateKey 生成密钥对
//
// 私钥取 L 位随机数（L 为 0 时取素数位长减一），并保证落在 [2, p-2]。
func GenerateKey(rand io.Reader, params Params) (*PrivateKey, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	bits := params.L
	if bits == 0 {
		bits = params.P.BitLen() - 1
	}
	limit := new(big.Int).Lsh(big.NewInt(1), uint(bits))
	pMinus2 := new(big.Int).Sub(params.P, big.NewInt(2))
	if limit.Cmp(pMinus2) > 0 {
		limit = pMinus2
	}

	buf := make([]byte, (bits+7)/8)
	for {
		if _, err := io.ReadFull(rand, buf); err != nil {
			return nil, fmt.Errorf("read entropy: %w", err)
		}
		x := new(big.Int).SetBytes(buf)
		x.Mod(x, limit)
		if x.Cmp(big.NewInt(2)) < 0 {
			continue
		}
		y := new(big.Int).Exp(params.G, x, params.P)
		return &PrivateKey{PublicKey: PublicKey{Params: params, Y: y}, X: x}, nil
	}
}

// Public 返回公钥
func (k *PrivateKey) Public() *PublicKey {
	return &k.PublicKey
}

// Agree 计算共享秘密 peer.Y^x mod p
//
// 结果左补零到素数字节长。对同一对密钥结果确定。
func (k *PrivateKey) Agree(peer *PublicKey) ([]byte, error) {
	if peer == nil || peer.Y == nil {
		return nil, fmt.Errorf("%w: missing key", ErrInvalidPublicKey)
	}
	p := k.Params.P
	pMinus1 := new(big.Int).Sub(p, big.NewInt(1))
	if peer.Y.Cmp(big.NewInt(1)) <= 0 || peer.Y.Cmp(pMinus1) >= 0 {
		return nil, fmt.Errorf("%w: value out of range", ErrInvalidPublicKey)
	}
	z := new(big.Int).Exp(peer.Y, k.X, p)
	return z.FillBytes(make([]byte, k.Params.SecretLen())), nil
}
