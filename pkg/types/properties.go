package types

import (
	"bytes"
	"encoding/hex"
	"sort"
)

// ============================================================================
//                              Properties - 凭证属性包
// ============================================================================

// Properties 字符串键值属性包
//
// nil 表示"没有凭证"，与空包不同。
type Properties map[string]string

// Clone 复制属性包，nil 保持 nil
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys 返回排序后的键，编码时按此顺序写出
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get 读取属性
func (p Properties) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// ============================================================================
//                              MemberID - 成员标识
// ============================================================================

// MemberID 不透明的成员标识
//
// 由集群成员子系统拥有，握手只按字节块读写。
type MemberID []byte

// Equal 比较两个成员标识
func (m MemberID) Equal(other MemberID) bool {
	return bytes.Equal(m, other)
}

// IsEmpty 是否为空
func (m MemberID) IsEmpty() bool {
	return len(m) == 0
}

// String 返回十六进制前缀（用于日志）
func (m MemberID) String() string {
	if len(m) == 0 {
		return "<none>"
	}
	if len(m) > 8 {
		return hex.EncodeToString(m[:8]) + "..."
	}
	return hex.EncodeToString(m)
}

// ============================================================================
//                              Principal - 认证主体
// ============================================================================

// Principal 认证成功后得到的主体
type Principal interface {
	Name() string
}

// NamedPrincipal 仅包含名称的主体
type NamedPrincipal string

// Name 返回主体名称
func (p NamedPrincipal) Name() string {
	return string(p)
}
