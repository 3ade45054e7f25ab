// Package security 提供握手共享的进程级安全材料
//
// Material 在接受任何连接之前构建一次，之后只读，可被所有握手并发使用：
//
//   - DH 域参数与进程级密钥对（默认所有会话共享，PerSessionKeys 时每会话生成）
//   - 对称算法（由 "NAME[:keysize]" 在配置阶段解析一次）
//   - 服务端身份证明（客户端信任库 + 服务端签名密钥）
//   - 挑战随机源
//
// # 子包
//
//   - dh: Diffie-Hellman 密钥协商与公钥编码
//   - symmetric: 从共享秘密派生对称密码并按会话缓存
//   - certauth: 信任库 / 签名密钥加载与签名校验
//
// # Fx 模块
//
//	app := fx.New(
//	    fx.Supply(cfg),
//	    security.Module(),
//	    handshake.Module(),
//	)
//
// 架构层：Core Layer
// 公共接口：pkg/interfaces/security.go
package security
