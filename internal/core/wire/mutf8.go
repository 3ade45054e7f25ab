package wire

import (
	"errors"
	"unicode/utf16"
	"unicode/utf8"
)

var errMalformedUTF = errors.New("malformed modified UTF-8")

// utf16Units 将字符串转换为 UTF-16 码元
//
// 非法 UTF-8 字节按 U+FFFD 处理。
func utf16Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

// isASCII 所有码元都在 [1, 0x7F] 内
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == 0 || s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// mutf8Len 计算 modified UTF-8 编码长度
func mutf8Len(units []uint16) int {
	n := 0
	for _, c := range units {
		switch {
		case c >= 0x0001 && c <= 0x007F:
			n++
		case c > 0x07FF:
			n += 3
		default:
			n += 2
		}
	}
	return n
}

// appendMUTF8 追加 modified UTF-8 编码
//
// U+0000 编码为两字节，补充平面字符按代理对逐个编码为三字节。
func appendMUTF8(dst []byte, units []uint16) []byte {
	for _, c := range units {
		switch {
		case c >= 0x0001 && c <= 0x007F:
			dst = append(dst, byte(c))
		case c > 0x07FF:
			dst = append(dst,
				byte(0xE0|(c>>12)&0x0F),
				byte(0x80|(c>>6)&0x3F),
				byte(0x80|c&0x3F))
		default:
			dst = append(dst,
				byte(0xC0|(c>>6)&0x1F),
				byte(0x80|c&0x3F))
		}
	}
	return dst
}

// decodeMUTF8 解码 modified UTF-8
func decodeMUTF8(b []byte) (string, error) {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0:
			if i+1 >= len(b) || b[i+1]&0xC0 != 0x80 {
				return "", errMalformedUTF
			}
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0:
			if i+2 >= len(b) || b[i+1]&0xC0 != 0x80 || b[i+2]&0xC0 != 0x80 {
				return "", errMalformedUTF
			}
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			return "", errMalformedUTF
		}
	}
	return string(utf16.Decode(units)), nil
}
