package handshake

import (
	"github.com/dep2p/go-gridauth/pkg/types"
)

// Opening 客户端开场数据
type Opening struct {
	// ReadTimeout 告知服务端的客户端读超时（毫秒）
	ReadTimeout int32

	// Member 本端成员标识
	Member types.MemberID

	// Options 选项字节
	Options types.ClientOptions

	// Server 目标服务端成员标识，传给凭证获取插件，可为空
	Server types.MemberID

	// IsPeer 本端是否为集群对等成员
	IsPeer bool
}

// AcceptReply 客户端读到的接受应答
type AcceptReply struct {
	// Code 应答码
	Code types.ReplyCode

	// ServerVersion 服务端版本（仅网关通道）
	ServerVersion types.Version

	// EndpointType 端点类型
	EndpointType byte

	// QueueSize 队列大小
	QueueSize int32

	// ServerMember 服务端成员标识
	ServerMember types.MemberID

	// DeltaPropagation 增量传播开关（非网关通道，GFE_61 起）
	DeltaPropagation bool

	// DistributedSystemID 对端集群 ID（网关通道，GFE_66 起），否则为 -1
	DistributedSystemID int8

	// PDXRegistrySize 对端 PDX 注册表大小（网关通道，GFE_80 起）
	PDXRegistrySize int32

	// PeerPrincipal 网关对端凭证的认证主体
	PeerPrincipal types.Principal
}

// ============================================================================
//                              WriteOpening
// ============================================================================

// WriteOpening 写出开场码、读超时、成员标识、选项字节与凭证
//
// 凭证通过 CredentialAuthority 获取。DH 模式下本调用会完成密钥交换，
// 期间读取服务端的中间应答。
func (s *Session) WriteOpening(o Opening) error {
	if err := s.expect("write opening", StateAwaitOpenCode); err != nil {
		return err
	}
	if s.role != RoleClient {
		return ErrInvalidState
	}

	s.member = o.Member
	s.options = o.Options
	s.clientReadTimeout = o.ReadTimeout

	s.w.AddByte(byte(types.ReplyOK))
	s.w.AddInt32(o.ReadTimeout)
	s.w.AddMember(o.Member)
	if s.version.Before(types.VersionGFE603) {
		s.w.AddByte(byte(o.Options.Conflation()))
	} else {
		s.w.AddByte(byte(o.Options))
	}

	creds, err := s.authority.Acquire(o.Server, o.IsPeer)
	if err != nil {
		return s.fail(err)
	}
	s.credentials = creds

	s.state = StateAwaitCredentials
	err = s.withReadDeadline(func() error {
		if s.PayloadBearing() {
			return s.WriteCredentials(creds)
		}
		_, err := s.WriteCredential()
		return err
	})
	if err != nil {
		return s.fail(err)
	}
	s.state = StateCredentialsResolved
	return nil
}

// ============================================================================
//                              ReadAcceptReply
// ============================================================================

// ReadAcceptReply 读取服务端应答
//
// 拒绝码映射为 CredentialsRequired、AuthenticationFailed 或 ConnectionRefused。
// 网关通道收到 WAN_CREDENTIALS 时，若本端发送过凭证则读取并校验对端凭证。
func (s *Session) ReadAcceptReply() (AcceptReply, error) {
	reply := AcceptReply{DistributedSystemID: -1}
	if err := s.expect("read accept reply", StateCredentialsResolved); err != nil {
		return reply, err
	}
	if err := s.withReadDeadline(func() error { return s.readAcceptReply(&reply) }); err != nil {
		return reply, s.fail(err)
	}
	s.state = StateEstablished
	s.log.Debug("handshake established", "code", reply.Code.String(), "server", reply.ServerMember.String())
	return reply, nil
}

func (s *Session) readAcceptReply(reply *AcceptReply) error {
	b, err := s.r.ReadByte()
	if err != nil {
		return err
	}
	code := types.ReplyCode(b)
	s.code = code
	reply.Code = code
	if code == types.ReplyServerIsLocator {
		return &types.ConnectionRefusedError{Code: code, Message: "remote process is a locator, not a cache server"}
	}

	wan := s.mode.IsWAN()
	if wan && code != types.ReplyAuthRequired && code != types.ReplyAuthFailed {
		if reply.ServerVersion, err = s.r.ReadVersionOrdinal(); err != nil {
			return err
		}
	}
	if reply.EndpointType, err = s.r.ReadByte(); err != nil {
		return err
	}
	if reply.QueueSize, err = s.r.ReadInt32(); err != nil {
		return err
	}
	if reply.ServerMember, err = s.r.ReadMember(); err != nil {
		return err
	}
	message, err := s.r.ReadUTF()
	if err != nil {
		return err
	}

	switch {
	case code == types.ReplyWANCredentials:
		if reply.PeerPrincipal, err = s.checkWANSite(reply.ServerMember); err != nil {
			return err
		}
	case code == types.ReplyOK && message == "":
	default:
		return refusalError(code, message, reply.ServerMember)
	}

	if !wan && s.version.AtLeast(types.VersionGFE61) {
		if reply.DeltaPropagation, err = s.r.ReadBool(); err != nil {
			return err
		}
	}
	if wan && s.version.AtLeast(types.VersionGFE66) && reply.ServerVersion.AtLeast(types.VersionGFE66) {
		if b, err = s.r.ReadByte(); err != nil {
			return err
		}
		reply.DistributedSystemID = int8(b)
	}
	if wan && s.version.AtLeast(types.VersionGFE80) && reply.ServerVersion.AtLeast(types.VersionGFE80) {
		if reply.PDXRegistrySize, err = s.r.ReadInt32(); err != nil {
			return err
		}
	}
	return nil
}

// checkWANSite 读取并校验网关对端发来的凭证
//
// 本端未发送凭证时对端也不会发送，直接返回。
func (s *Session) checkWANSite(server types.MemberID) (types.Principal, error) {
	if s.credentials == nil {
		return nil, nil
	}
	peerCreds, err := s.ReadCredentials()
	if err != nil {
		return nil, err
	}
	principal, err := s.authority.Verify(peerCreds, server)
	if err != nil {
		return nil, types.AsAuthFailed("verify wan site credentials", err)
	}
	return principal, nil
}

// ============================================================================
//                              客户端完整握手
// ============================================================================

// ClientHandshake 在 conn 上完成一次客户端握手
//
// 依次写出前导与开场数据并读取应答。返回的会话已进入 Established，
// 可继续用于 EncryptBytes / DecryptBytes。
func ClientHandshake(conn Conn, mode types.CommunicationMode, o Opening, opts Options) (*Session, AcceptReply, error) {
	s, err := NewClientSession(conn, mode, opts)
	if err != nil {
		return nil, AcceptReply{}, err
	}
	if err := WritePreamble(conn, mode, s.version); err != nil {
		return s, AcceptReply{}, s.fail(err)
	}
	if err := s.WriteOpening(o); err != nil {
		return s, AcceptReply{}, err
	}
	reply, err := s.ReadAcceptReply()
	return s, reply, err
}
