package wire

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/dep2p/go-gridauth/pkg/types"
)

// Writer 向流中写入线上值
//
// 首个错误会被记住，之后的写入全部跳过，Flush / Err 返回该错误。
type Writer struct {
	w       *bufio.Writer
	version types.Version
	err     error
	scratch [8]byte
}

// NewWriter 创建 Writer，version 为对端协议版本
func NewWriter(w io.Writer, version types.Version) *Writer {
	return &Writer{w: bufio.NewWriter(w), version: version}
}

// Version 返回对端协议版本
func (w *Writer) Version() types.Version {
	return w.version
}

// SetVersion 在协商出对端版本后更新
func (w *Writer) SetVersion(v types.Version) {
	w.version = v
}

// Err 返回首个写入错误
func (w *Writer) Err() error {
	return w.err
}

// Flush 将缓冲写入底层流
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.w.Flush(); err != nil {
		w.err = types.NewTransportError("flush", err)
	}
	return w.err
}

func (w *Writer) write(b []byte) {
	if w.err != nil {
		return
	}
	if _, err := w.w.Write(b); err != nil {
		w.err = types.NewTransportError("write", err)
	}
}

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// AddByte 写入一个字节
func (w *Writer) AddByte(b byte) {
	w.scratch[0] = b
	w.write(w.scratch[:1])
}

// AddBool 写入布尔值
func (w *Writer) AddBool(v bool) {
	if v {
		w.AddByte(1)
	} else {
		w.AddByte(0)
	}
}

// AddInt16 写入大端 int16
func (w *Writer) AddInt16(v int16) {
	binary.BigEndian.PutUint16(w.scratch[:2], uint16(v))
	w.write(w.scratch[:2])
}

// AddInt32 写入大端 int32
func (w *Writer) AddInt32(v int32) {
	binary.BigEndian.PutUint32(w.scratch[:4], uint32(v))
	w.write(w.scratch[:4])
}

// AddArrayLength 写入压缩数组长度，-1 表示 nil
func (w *Writer) AddArrayLength(n int) {
	switch {
	case n == -1:
		w.AddByte(arrayLengthNull)
	case n < 0:
		w.fail(ErrNegativeLength)
	case n <= arrayLengthMax1:
		w.AddByte(byte(n))
	case n <= 0xFFFF:
		w.AddByte(arrayLengthShort)
		binary.BigEndian.PutUint16(w.scratch[:2], uint16(n))
		w.write(w.scratch[:2])
	default:
		w.AddByte(arrayLengthInt)
		w.AddInt32(int32(n))
	}
}

// AddByteArray 写入长度前缀字节数组，nil 写为长度 -1
func (w *Writer) AddByteArray(b []byte) {
	if b == nil {
		w.AddArrayLength(-1)
		return
	}
	w.AddArrayLength(len(b))
	w.write(b)
}

// AddMember 写入成员标识块
func (w *Writer) AddMember(m types.MemberID) {
	w.AddByteArray([]byte(m))
}

// AddUTF 写入 uint16 长度 + modified UTF-8 字符串
func (w *Writer) AddUTF(s string) {
	units := utf16Units(s)
	n := mutf8Len(units)
	if n > 0xFFFF {
		w.fail(ErrStringTooLong)
		return
	}
	buf := make([]byte, 2, 2+n)
	binary.BigEndian.PutUint16(buf, uint16(n))
	w.write(appendMUTF8(buf, units))
}

// AddString 写入对象字符串
//
// ASCII 字符串写原始字节，其余按 modified UTF-8；超长时改用 int 长度编码。
func (w *Writer) AddString(s string) {
	if isASCII(s) {
		if len(s) <= 0xFFFF {
			w.AddByte(codeStringBytes)
			w.AddInt16(int16(uint16(len(s))))
		} else {
			w.AddByte(codeHugeStringBytes)
			w.AddInt32(int32(len(s)))
		}
		w.write([]byte(s))
		return
	}

	units := utf16Units(s)
	if mutf8Len(units) <= 0xFFFF {
		w.AddByte(codeString)
		w.AddUTF(s)
		return
	}
	w.AddByte(codeHugeString)
	w.AddInt32(int32(len(units)))
	buf := make([]byte, 2*len(units))
	for i, u := range units {
		binary.BigEndian.PutUint16(buf[2*i:], u)
	}
	w.write(buf)
}

// AddNullString 写入 null 字符串
func (w *Writer) AddNullString() {
	w.AddByte(codeNullString)
}

// AddProperties 写入属性包，nil 写为长度 -1
//
// 键按字典序写出。
func (w *Writer) AddProperties(p types.Properties) {
	if p == nil {
		w.AddArrayLength(-1)
		return
	}
	w.AddArrayLength(len(p))
	for _, k := range p.Keys() {
		w.AddString(k)
		w.AddString(p[k])
	}
}

// AddVersionOrdinal 写入压缩版本序号
func (w *Writer) AddVersionOrdinal(v types.Version) {
	if v.Ordinal >= 0 && v.Ordinal <= 127 {
		w.AddByte(byte(v.Ordinal))
		return
	}
	w.AddByte(versionOrdinalEscape)
	w.AddInt16(v.Ordinal)
}
