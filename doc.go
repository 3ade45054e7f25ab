// Package gridauth 实现缓存层客户端与服务端之间的连接握手
//
// 握手在一条已建立的字节流上完成：交换版本与成员标识，按安全模式传递
// 凭证（明文、DH 加密或委托），可选地校验服务端签名，最后由服务端写出
// 接受或拒绝应答。握手结束后双方持有同一份对称会话，可继续用于加密
// 后续的属性数据。
//
// # 服务端
//
//	srv, err := gridauth.New(
//	    gridauth.WithConfig(cfg),
//	    gridauth.WithListenAddr("0.0.0.0:40404"),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	defer srv.Stop(context.Background())
//
// 服务端对每个入站连接调用 handshake.Acceptor.Process。被拒绝或失败的
// 连接会被关闭，握手成功的连接交给 WithHandler 指定的处理函数。
//
// # 客户端
//
//	opts, err := gridauth.NewClientOptions(cfg, nil)
//	conn, err := gridauth.Dial(ctx, "127.0.0.1:40404",
//	    types.ModeClientToServer, gridauth.NewOpening(cfg, member), opts)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
// # 架构分层
//
//	gridauth (根包)          Server / Dial / Option
//	    ↓
//	internal/core/handshake  会话状态机、Acceptor
//	    ↓
//	internal/core/credential 凭证获取与校验插件
//	internal/core/security   DH 密钥、对称会话、证书签名
//	internal/core/metrics    握手指标与流量统计
//	    ↓
//	internal/core/wire       线上编码
//
// 各层由 fx 组装，见 Modules。
package gridauth
