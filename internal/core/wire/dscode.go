package wire

// 对象类型码（与缓存层 DSCODE 一致，仅列出握手用到的）
const (
	codeNull            byte = 41
	codeString          byte = 42
	codeNullString      byte = 69
	codeStringBytes     byte = 87
	codeHugeStringBytes byte = 88
	codeHugeString      byte = 89
)

// 压缩数组长度标记
const (
	arrayLengthNull  byte = 0xFF
	arrayLengthShort byte = 0xFE
	arrayLengthInt   byte = 0xFD
	arrayLengthMax1  int  = 252
)

// 压缩版本序号标记：序号超出单字节时写 -1 再写 int16
const versionOrdinalEscape byte = 0xFF
