// Package wire 实现握手使用的线上基础值编解码
//
// 编码与缓存层的数据序列化格式一致：
//   - 多字节整数大端
//   - 数组长度为压缩编码（1 / 3 / 5 字节）
//   - UTF 字符串为 uint16 长度 + modified UTF-8
//   - 对象字符串以类型码（DSCODE）开头，按内容选择 ASCII / UTF / 超长编码
//   - 属性包为数组长度 + 交替的键值对象
//   - 协议版本为压缩序号（1 或 3 字节）
//
// Reader 不做缓冲，绝不多读底层流；Writer 带缓冲，错误为粘滞错误，
// 在 Flush 时统一返回。读写错误均已归类为 types.TransportError 或
// types.ProtocolMismatchError。
package wire
