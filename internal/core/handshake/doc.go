// Package handshake 实现缓存层客户端与服务端之间的连接握手
//
// 一次握手由 Session 驱动，按以下状态推进：
//
//	AwaitOpenCode → AwaitPeerParams → AwaitCredentials → (KeyExchange →)
//	CredentialsResolved → Established
//
// 任一步失败都会进入终态 Failed。
//
// # 服务端
//
//	mode, version, err := handshake.ReadPreamble(conn)
//	s, err := handshake.NewServerSession(conn, mode, version, opts)
//	if err := s.Open(); err != nil { ... }
//	principal, err := s.Verify()
//	err = s.Accept(params)
//
// Acceptor.Process 封装了上述流程：认证类错误会向对端写出拒绝应答并返回
// StatusRefused，传输错误与协议错误直接返回 error，调用方应关闭连接。
//
// # 客户端
//
//	handshake.WritePreamble(conn, mode, types.VersionCurrent)
//	c, err := handshake.NewClientSession(conn, mode, opts)
//	err = c.WriteOpening(opening)
//	reply, err := c.ReadAcceptReply()
//
// # 凭证
//
// 凭证总是一次交换的最后一项。PLAIN 模式直接写出属性包；DH 模式先交换
// DH 公钥与挑战，可选地校验服务端签名，再把 {属性包, 回显挑战} 加密为一个
// 字节数组发送。网关通道与 GFE_65 之前的对端使用携带属性包的变体，
// 新版本客户端通道只证明持有共享密钥，凭证随后经 EncryptBytes 单独发送。
//
// Session 不是并发安全的，由处理连接的 goroutine 独占；security.Material
// 在启动时构建一次，之后可被所有会话并发读取。
package handshake
