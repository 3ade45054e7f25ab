package handshake

import (
	"errors"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-gridauth/config"
	"github.com/dep2p/go-gridauth/internal/core/security"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// Acceptor 服务端握手处理器
//
// 每个连接调用一次 Process，可被多个 goroutine 并发使用。
type Acceptor struct {
	cfg       config.HandshakeConfig
	material  *security.Material
	authority interfaces.CredentialAuthority
	recorder  interfaces.HandshakeRecorder
	member    types.MemberID
	clock     clock.Clock
}

// NewAcceptor 创建 Acceptor
//
// recorder 可为 nil。member 为本服务端的成员标识，写入每个应答。
func NewAcceptor(cfg config.HandshakeConfig, material *security.Material, authority interfaces.CredentialAuthority,
	recorder interfaces.HandshakeRecorder, member types.MemberID) *Acceptor {
	return &Acceptor{
		cfg:       cfg,
		material:  material,
		authority: authority,
		recorder:  recorder,
		member:    member,
		clock:     clock.New(),
	}
}

// WithClock 替换时钟（测试用）
func (a *Acceptor) WithClock(clk clock.Clock) *Acceptor {
	a.clock = clk
	return a
}

// Member 本服务端成员标识
func (a *Acceptor) Member() types.MemberID {
	return a.member
}

// Process 在 conn 上完成一次服务端握手
//
// 认证类失败会写出拒绝应答并返回 StatusRefused 与 nil error；传输与协议
// 错误返回 StatusFailed 与非 nil error，调用方应关闭连接。
func (a *Acceptor) Process(conn Conn) (Outcome, *Session, error) {
	start := a.clock.Now()
	out, s, err := a.process(conn)
	elapsed := a.clock.Since(start)

	if a.recorder != nil {
		a.recorder.RecordHandshake(RoleServer.String(), out.Status.String(), out.Mode.String(), elapsed)
		if out.Reason != nil {
			a.recorder.RecordError(RoleServer.String(), ErrorKind(out.Reason))
		}
	}
	return out, s, err
}

func (a *Acceptor) process(conn Conn) (Outcome, *Session, error) {
	var (
		mode    types.CommunicationMode
		version types.Version
	)
	err := withReadDeadline(conn, a.clock, a.cfg.ReadTimeout.Duration(), func() (err error) {
		mode, version, err = ReadPreamble(conn)
		return err
	})
	if err != nil {
		return failed(err), nil, err
	}

	s, err := NewServerSession(conn, mode, version, Options{
		Material:    a.material,
		Authority:   a.authority,
		ReadTimeout: a.cfg.ReadTimeout.Duration(),
		Clock:       a.clock,
	})
	if err != nil {
		return failed(err), nil, err
	}

	if err := s.Open(); err != nil {
		return a.refuseOrFail(s, err)
	}
	if s.PayloadBearing() {
		if _, err := s.Verify(); err != nil {
			return a.refuseOrFail(s, err)
		}
	}

	err = s.Accept(AcceptParams{
		EndpointType:        a.cfg.EndpointType,
		QueueSize:           a.cfg.QueueSize,
		ServerMember:        a.member,
		DeltaPropagation:    a.cfg.DeltaPropagation,
		DistributedSystemID: a.cfg.DistributedSystemID,
		PDXRegistrySize:     a.cfg.PDXRegistrySize,
	})
	if err != nil {
		out := failed(err)
		out.Mode = s.SecurityMode()
		return out, s, err
	}

	return Outcome{
		Status:    StatusAccepted,
		Code:      s.Code(),
		Mode:      s.SecurityMode(),
		Principal: s.Principal(),
	}, s, nil
}

// refuseOrFail 认证类错误写出拒绝应答，其余错误直接返回
func (a *Acceptor) refuseOrFail(s *Session, err error) (Outcome, *Session, error) {
	code, message, ok := refusalFor(err)
	if !ok {
		out := failed(err)
		out.Mode = s.SecurityMode()
		return out, s, err
	}
	if rerr := s.Refuse(code, message, a.member); rerr != nil {
		out := failed(rerr)
		out.Mode = s.SecurityMode()
		return out, s, rerr
	}
	return Outcome{
		Status: StatusRefused,
		Code:   code,
		Mode:   s.SecurityMode(),
		Reason: err,
	}, s, nil
}

func failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Reason: err}
}

// ErrorKind 返回错误类别，用于指标标签
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, types.ErrTransport):
		return "transport"
	case errors.Is(err, types.ErrProtocolMismatch):
		return "protocol_mismatch"
	case errors.Is(err, types.ErrCredentialsRequired):
		return "credentials_required"
	case errors.Is(err, types.ErrAuthenticationFailed):
		return "authentication_failed"
	case errors.Is(err, types.ErrConnectionRefused):
		return "connection_refused"
	default:
		return "other"
	}
}
