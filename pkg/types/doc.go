// Package types 定义 gridauth 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他 gridauth 内部包。
// 所有类型都是纯值类型，用于在握手各组件之间传递数据。
//
// # 文件组织
//
// 协议常量:
//   - enums.go      - ReplyCode, SecurityMode, Conflation, CommunicationMode
//   - version.go    - Version（协议版本序号）
//
// 握手数据:
//   - properties.go - Properties（凭证属性包）, MemberID, Principal
//   - algorithm.go  - CipherAlgorithm（对称算法名 + 可选密钥长度）
//
// 错误:
//   - errors.go     - 握手错误分类（传输 / 协议 / 凭证缺失 / 认证失败 / 拒绝）
package types
