package wire

import (
	"errors"
	"fmt"
)

// 编解码错误
var (
	// ErrUnsupportedCode 未知的对象类型码
	ErrUnsupportedCode = errors.New("unsupported type code")

	// ErrStringTooLong UTF 字符串超过 65535 字节
	ErrStringTooLong = errors.New("utf string too long")

	// ErrNegativeLength 负数组长度（-1 之外）
	ErrNegativeLength = errors.New("negative array length")
)

func unsupportedCode(code byte) error {
	return fmt.Errorf("%w: %d", ErrUnsupportedCode, code)
}
