package gridauth

import (
	"context"
	"net"
	"time"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/core/credential"
	"github.com/dep2p/go-gridauth/internal/core/handshake"
	"github.com/dep2p/go-gridauth/internal/core/security"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// Conn 握手完成的客户端连接
type Conn struct {
	net.Conn

	// Session 已进入 Established 的客户端会话
	Session *handshake.Session

	// Reply 服务端接受应答
	Reply handshake.AcceptReply
}

// NewClientOptions 由配置构造客户端会话依赖
//
// registry 为 nil 时使用只含内置插件的注册表。
func NewClientOptions(cfg *config.Config, registry *credential.Registry) (handshake.Options, error) {
	material, err := security.NewMaterial(cfg.Security)
	if err != nil {
		return handshake.Options{}, err
	}
	if registry == nil {
		registry = credential.NewRegistry()
		if err := credential.RegisterBuiltins(registry); err != nil {
			return handshake.Options{}, err
		}
	}
	return handshake.Options{
		Material:    material,
		Authority:   credential.NewAuthority(cfg.Security, registry, nil),
		ReadTimeout: cfg.Handshake.ReadTimeout.Duration(),
	}, nil
}

// NewOpening 由配置构造客户端开场数据
func NewOpening(cfg *config.Config, member types.MemberID) handshake.Opening {
	var conflation types.Conflation
	switch cfg.Handshake.Conflation {
	case "on":
		conflation = types.ConflationOn
	case "off":
		conflation = types.ConflationOff
	default:
		conflation = types.ConflationDefault
	}
	return handshake.Opening{
		ReadTimeout: cfg.Handshake.ClientReadTimeout.Millis(),
		Member:      member,
		Options:     types.ClientOptions(0).WithConflation(conflation),
	}
}

// Dial 连接 addr 并完成客户端握手
//
// ctx 结束会中断进行中的握手。握手失败时连接已关闭。
func Dial(ctx context.Context, addr string, mode types.CommunicationMode, opening handshake.Opening, opts handshake.Options) (*Conn, error) {
	var d net.Dialer
	nc, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, types.NewTransportError("dial "+addr, err)
	}
	raw := handshake.TrackDeadlines(nc)

	// 已过期的截止时间让阻塞中的读写立即返回
	stop := context.AfterFunc(ctx, func() { _ = raw.SetDeadline(time.Unix(1, 0)) })
	session, reply, err := handshake.ClientHandshake(raw, mode, opening, opts)
	if !stop() {
		_ = raw.Close()
		if err == nil {
			err = types.NewTransportError("handshake", ctx.Err())
		}
		return nil, err
	}
	if err != nil {
		_ = raw.Close()
		return nil, err
	}

	log.Debug("客户端握手完成",
		"addr", addr,
		"mode", mode.String(),
		"server", reply.ServerMember.String())
	return &Conn{Conn: raw, Session: session, Reply: reply}, nil
}
