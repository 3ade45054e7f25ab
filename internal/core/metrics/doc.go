// Package metrics 提供握手指标收集
//
// metrics 模块包含两部分：
//   - HandshakeMetrics：Prometheus 指标（握手耗时、结果计数、错误分类），
//     实现 interfaces.HandshakeRecorder，由 handshake.Acceptor 调用
//   - TrafficCounter：握手连接的字节流量与速率统计，通过 Wrap 包装连接
//
// # 快速开始
//
//	traffic := metrics.NewTrafficCounter(time.Minute, clock.New())
//	m, err := metrics.NewHandshakeMetrics("gridauth", prometheus.NewRegistry(), traffic)
//
//	conn = traffic.Wrap(conn)
//	out, session, err := acceptor.Process(conn)
//
// # 指标
//
//	gridauth_handshake_duration_seconds{role,status,mode}   握手耗时
//	gridauth_handshakes_total{role,status}                   握手结果
//	gridauth_handshake_errors_total{role,kind}               错误分类
//	gridauth_handshake_bytes_received_total                  入站字节
//	gridauth_handshake_bytes_sent_total                      出站字节
//	gridauth_handshake_connections_total                     包装的连接数
//
// # Fx 模块
//
//	app := fx.New(
//	    metrics.Module(),
//	    fx.Invoke(func(r interfaces.HandshakeRecorder) { ... }),
//	)
//
// 配置 Metrics.Enabled=false 时 Recorder 为 nil，Acceptor 不记录指标。
//
// # 并发安全
//
// 所有类型都是并发安全的。
package metrics
