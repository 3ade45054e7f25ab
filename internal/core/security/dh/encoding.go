package dh

import (
	encasn1 "encoding/asn1"
	"fmt"
	"math/big"

	"golang.org/x/crypto/cryptobyte"
	"golang.org/x/crypto/cryptobyte/asn1"
)

// oidDHKeyAgreement PKCS#3 dhKeyAgreement
var oidDHKeyAgreement = encasn1.ObjectIdentifier{1, 2, 840, 113549, 1, 3, 1}

// Marshal 编码为 X.509 SubjectPublicKeyInfo DER
//
//	SEQUENCE {
//	  SEQUENCE { OID dhKeyAgreement, SEQUENCE { p, g, [l] } }
//	  BIT STRING { INTEGER y }
//	}
func (k *PublicKey) Marshal() ([]byte, error) {
	var b cryptobyte.Builder
	b.AddASN1(asn1.SEQUENCE, func(spki *cryptobyte.Builder) {
		spki.AddASN1(asn1.SEQUENCE, func(alg *cryptobyte.Builder) {
			alg.AddASN1ObjectIdentifier(oidDHKeyAgreement)
			alg.AddASN1(asn1.SEQUENCE, func(params *cryptobyte.Builder) {
				params.AddASN1BigInt(k.Params.P)
				params.AddASN1BigInt(k.Params.G)
				if k.Params.L > 0 {
					params.AddASN1Int64(int64(k.Params.L))
				}
			})
		})
		spki.AddASN1(asn1.BIT_STRING, func(bs *cryptobyte.Builder) {
			bs.AddUint8(0)
			bs.AddASN1BigInt(k.Y)
		})
	})
	return b.Bytes()
}

// ParsePublicKey 解析 SubjectPublicKeyInfo DER 编码的 DH 公钥
//
// 只校验结构与 OID；参数是否与本端一致由调用方决定。
func ParsePublicKey(der []byte) (*PublicKey, error) {
	input := cryptobyte.String(der)
	var spki, alg, params cryptobyte.String
	var oid encasn1.ObjectIdentifier
	var bits encasn1.BitString
	p, g, y := new(big.Int), new(big.Int), new(big.Int)
	var l int64

	if !input.ReadASN1(&spki, asn1.SEQUENCE) || !input.Empty() {
		return nil, fmt.Errorf("%w: malformed SubjectPublicKeyInfo", ErrInvalidPublicKey)
	}
	if !spki.ReadASN1(&alg, asn1.SEQUENCE) ||
		!alg.ReadASN1ObjectIdentifier(&oid) ||
		!alg.ReadASN1(&params, asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: malformed algorithm identifier", ErrInvalidPublicKey)
	}
	if !oid.Equal(oidDHKeyAgreement) {
		return nil, fmt.Errorf("%w: unexpected algorithm %s", ErrInvalidPublicKey, oid)
	}
	if !params.ReadASN1Integer(p) || !params.ReadASN1Integer(g) {
		return nil, fmt.Errorf("%w: malformed parameters", ErrInvalidPublicKey)
	}
	if !params.Empty() && !params.ReadASN1Integer(&l) {
		return nil, fmt.Errorf("%w: malformed private length", ErrInvalidPublicKey)
	}
	if !spki.ReadASN1BitString(&bits) || !spki.Empty() {
		return nil, fmt.Errorf("%w: malformed key bits", ErrInvalidPublicKey)
	}

	keyBytes := cryptobyte.String(bits.RightAlign())
	if !keyBytes.ReadASN1Integer(y) || !keyBytes.Empty() {
		return nil, fmt.Errorf("%w: malformed key value", ErrInvalidPublicKey)
	}
	if y.Sign() <= 0 || p.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive value", ErrInvalidPublicKey)
	}

	return &PublicKey{Params: Params{P: p, G: g, L: int(l)}, Y: y}, nil
}
