// Package certauth 实现基于数字签名的服务端身份证明
//
// 客户端持有信任库（证书主体 → 证书），服务端持有签名密钥库（私钥 + 证书）。
// 客户端发出随机挑战，服务端用私钥签名并附上证书主体名，客户端在信任库中
// 查找该主体并校验签名。
//
// 两侧使用同一规则确定签名算法：证书自身的签名算法与证书公钥类型相容时
// 沿用之，否则取该公钥类型的默认算法。
//
// 密钥库格式：
//   - PEM（CERTIFICATE / PRIVATE KEY 块）
//   - PKCS#12（仅支持传统 PBE 加密，按 friendlyName 匹配别名）
package certauth
