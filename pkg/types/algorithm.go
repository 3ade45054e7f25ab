package types

import (
	"fmt"
	"strconv"
	"strings"
)

// CipherAlgorithm 对称加密算法描述
//
// 配置格式为 "NAME" 或 "NAME:keysize"，例如 "AES:256"。
// 在配置阶段解析一次，线上按原始格式回写。
type CipherAlgorithm struct {
	// Name 算法名（大小写不敏感）
	Name string

	// KeySize 可选密钥长度（位），0 表示未指定
	KeySize int
}

// ParseCipherAlgorithm 解析 "NAME[:keysize]"
//
// 空字符串返回零值，表示不启用 DH 加密。
func ParseCipherAlgorithm(s string) (CipherAlgorithm, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CipherAlgorithm{}, nil
	}
	name, sizeStr, hasSize := strings.Cut(s, ":")
	if name == "" {
		return CipherAlgorithm{}, fmt.Errorf("invalid cipher algorithm %q: empty name", s)
	}
	alg := CipherAlgorithm{Name: name}
	if hasSize {
		size, err := strconv.Atoi(sizeStr)
		if err != nil || size <= 0 {
			return CipherAlgorithm{}, fmt.Errorf("invalid cipher algorithm %q: bad key size", s)
		}
		alg.KeySize = size
	}
	return alg, nil
}

// IsZero 是否未配置
func (a CipherAlgorithm) IsZero() bool {
	return a.Name == ""
}

// Is 忽略大小写比较算法名
func (a CipherAlgorithm) Is(name string) bool {
	return strings.EqualFold(a.Name, name)
}

// String 返回线上格式
func (a CipherAlgorithm) String() string {
	if a.KeySize > 0 {
		return a.Name + ":" + strconv.Itoa(a.KeySize)
	}
	return a.Name
}
