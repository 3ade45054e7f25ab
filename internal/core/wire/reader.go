package wire

import (
	"encoding/binary"
	"io"
	"unicode/utf16"

	"github.com/dep2p/go-gridauth/pkg/types"
)

// MaxArrayLength 单个字节数组或属性包允许的最大长度
var MaxArrayLength = 1 << 24

// Reader 从流中读取线上值
type Reader struct {
	r       io.Reader
	version types.Version
	scratch [8]byte
}

// NewReader 创建 Reader，version 为对端协议版本
func NewReader(r io.Reader, version types.Version) *Reader {
	return &Reader{r: r, version: version}
}

// Version 返回对端协议版本
func (r *Reader) Version() types.Version {
	return r.version
}

// SetVersion 在协商出对端版本后更新
func (r *Reader) SetVersion(v types.Version) {
	r.version = v
}

func (r *Reader) readFull(op string, b []byte) error {
	if _, err := io.ReadFull(r.r, b); err != nil {
		return types.NewTransportError(op, err)
	}
	return nil
}

// ReadByte 读取一个字节
func (r *Reader) ReadByte() (byte, error) {
	if err := r.readFull("read byte", r.scratch[:1]); err != nil {
		return 0, err
	}
	return r.scratch[0], nil
}

// ReadBool 读取布尔值（非零为 true）
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	return b != 0, err
}

// ReadInt16 读取大端 int16
func (r *Reader) ReadInt16() (int16, error) {
	if err := r.readFull("read int16", r.scratch[:2]); err != nil {
		return 0, err
	}
	return int16(binary.BigEndian.Uint16(r.scratch[:2])), nil
}

// ReadInt32 读取大端 int32
func (r *Reader) ReadInt32() (int32, error) {
	if err := r.readFull("read int32", r.scratch[:4]); err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(r.scratch[:4])), nil
}

// ReadArrayLength 读取压缩数组长度，-1 表示 nil
func (r *Reader) ReadArrayLength() (int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case arrayLengthNull:
		return -1, nil
	case arrayLengthShort:
		if err := r.readFull("read array length", r.scratch[:2]); err != nil {
			return 0, err
		}
		return int(binary.BigEndian.Uint16(r.scratch[:2])), nil
	case arrayLengthInt:
		n, err := r.ReadInt32()
		if err != nil {
			return 0, err
		}
		if n < 0 {
			return 0, types.NewProtocolMismatch("negative array length %d", n)
		}
		return int(n), nil
	default:
		return int(b), nil
	}
}

func (r *Reader) readBytes(op string, n int) ([]byte, error) {
	if n > MaxArrayLength {
		return nil, types.NewProtocolMismatch("%s: length %d exceeds limit %d", op, n, MaxArrayLength)
	}
	b := make([]byte, n)
	if err := r.readFull(op, b); err != nil {
		return nil, err
	}
	return b, nil
}

// ReadByteArray 读取长度前缀字节数组，长度 -1 返回 nil
func (r *Reader) ReadByteArray() ([]byte, error) {
	n, err := r.ReadArrayLength()
	if err != nil || n < 0 {
		return nil, err
	}
	return r.readBytes("read byte array", n)
}

// ReadMember 读取成员标识块
func (r *Reader) ReadMember() (types.MemberID, error) {
	b, err := r.ReadByteArray()
	if err != nil {
		return nil, err
	}
	return types.MemberID(b), nil
}

// ReadUTF 读取 uint16 长度 + modified UTF-8 字符串
func (r *Reader) ReadUTF() (string, error) {
	if err := r.readFull("read utf length", r.scratch[:2]); err != nil {
		return "", err
	}
	b, err := r.readBytes("read utf", int(binary.BigEndian.Uint16(r.scratch[:2])))
	if err != nil {
		return "", err
	}
	s, err := decodeMUTF8(b)
	if err != nil {
		return "", &types.ProtocolMismatchError{Reason: "read utf", Err: err}
	}
	return s, nil
}

// ReadString 读取对象字符串
//
// 返回值 ok 为 false 表示线上为 null 字符串。
func (r *Reader) ReadString() (s string, ok bool, err error) {
	code, err := r.ReadByte()
	if err != nil {
		return "", false, err
	}
	return r.readStringBody(code)
}

func (r *Reader) readStringBody(code byte) (string, bool, error) {
	switch code {
	case codeNull, codeNullString:
		return "", false, nil
	case codeString:
		s, err := r.ReadUTF()
		return s, err == nil, err
	case codeStringBytes:
		if err := r.readFull("read string length", r.scratch[:2]); err != nil {
			return "", false, err
		}
		b, err := r.readBytes("read string", int(binary.BigEndian.Uint16(r.scratch[:2])))
		return string(b), err == nil, err
	case codeHugeStringBytes:
		n, err := r.ReadInt32()
		if err != nil {
			return "", false, err
		}
		if n < 0 {
			return "", false, types.NewProtocolMismatch("negative string length %d", n)
		}
		b, err := r.readBytes("read huge string", int(n))
		return string(b), err == nil, err
	case codeHugeString:
		n, err := r.ReadInt32()
		if err != nil {
			return "", false, err
		}
		if n < 0 || int(n) > MaxArrayLength/2 {
			return "", false, types.NewProtocolMismatch("bad string length %d", n)
		}
		b, err := r.readBytes("read huge string", int(n)*2)
		if err != nil {
			return "", false, err
		}
		units := make([]uint16, n)
		for i := range units {
			units[i] = binary.BigEndian.Uint16(b[2*i:])
		}
		return string(utf16.Decode(units)), true, nil
	default:
		return "", false, &types.ProtocolMismatchError{Reason: "read string", Err: unsupportedCode(code)}
	}
}

// ReadProperties 读取属性包，长度 -1 返回 nil
func (r *Reader) ReadProperties() (types.Properties, error) {
	n, err := r.ReadArrayLength()
	if err != nil || n < 0 {
		return nil, err
	}
	if n > MaxArrayLength {
		return nil, types.NewProtocolMismatch("property count %d exceeds limit", n)
	}
	props := make(types.Properties, n)
	for i := 0; i < n; i++ {
		key, ok, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, types.NewProtocolMismatch("null property key")
		}
		value, ok, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, types.NewProtocolMismatch("null value for property %q", key)
		}
		props[key] = value
	}
	return props, nil
}

// ReadVersionOrdinal 读取压缩版本序号
func (r *Reader) ReadVersionOrdinal() (types.Version, error) {
	b, err := r.ReadByte()
	if err != nil {
		return types.Version{}, err
	}
	if b != versionOrdinalEscape {
		return types.VersionFromOrdinal(int16(int8(b))), nil
	}
	ordinal, err := r.ReadInt16()
	if err != nil {
		return types.Version{}, err
	}
	return types.VersionFromOrdinal(ordinal), nil
}
