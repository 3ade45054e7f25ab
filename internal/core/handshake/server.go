package handshake

import (
	"errors"

	"github.com/dep2p/go-gridauth/pkg/types"
)

// AcceptParams Accept 应答内容
type AcceptParams struct {
	// EndpointType 端点类型字节
	EndpointType byte

	// QueueSize 订阅队列大小
	QueueSize int32

	// ServerMember 服务端成员标识
	ServerMember types.MemberID

	// ServerVersion 服务端版本，零值为 VersionCurrent
	ServerVersion types.Version

	// DeltaPropagation 增量传播开关（非网关通道）
	DeltaPropagation bool

	// DistributedSystemID 本集群 ID（网关通道）
	DistributedSystemID int8

	// PDXRegistrySize PDX 类型注册表大小（网关通道）
	PDXRegistrySize int32
}

// ============================================================================
//                              Open
// ============================================================================

// Open 读取客户端的开场数据
//
// 依次读取开场码、读超时、成员标识、选项字节与凭证。成功后会话进入
// CredentialsResolved；凭证校验由 Verify 单独完成。
func (s *Session) Open() error {
	if err := s.expect("open", StateAwaitOpenCode); err != nil {
		return err
	}
	if s.role != RoleServer {
		return ErrInvalidState
	}
	if err := s.withReadDeadline(s.open); err != nil {
		s.log.Debug("handshake open failed", "state", s.state.String(), "err", err)
		return s.fail(err)
	}
	s.state = StateCredentialsResolved
	return nil
}

func (s *Session) open() error {
	b, err := s.r.ReadByte()
	if err != nil {
		return err
	}
	s.code = types.ReplyCode(b)
	if s.code != types.ReplyOK {
		return types.NewProtocolMismatch("handshake open code is %d, expected %d", b, byte(types.ReplyOK))
	}

	s.state = StateAwaitPeerParams
	if s.clientReadTimeout, err = s.r.ReadInt32(); err != nil {
		return err
	}
	if s.member, err = s.r.ReadMember(); err != nil {
		return err
	}
	if b, err = s.r.ReadByte(); err != nil {
		return err
	}
	if err := s.setOptions(b); err != nil {
		return err
	}

	// 凭证必须是开场数据的最后一项
	s.state = StateAwaitCredentials
	if s.PayloadBearing() {
		s.credentials, err = s.ReadCredentials()
		return err
	}
	return s.ReadCredential()
}

// setOptions 解析选项字节
//
// GFE_603 之前的对端只发送合并设置，之后发送完整的覆盖字节，保留位不做校验。
func (s *Session) setOptions(b byte) error {
	if s.version.Before(types.VersionGFE603) {
		c := types.Conflation(b)
		if !c.Valid() {
			return types.NewProtocolMismatch("illegal client conflation %d", b)
		}
		s.options = types.ClientOptions(0).WithConflation(c)
		return nil
	}
	opts := types.ClientOptions(b)
	if !opts.Conflation().Valid() {
		return types.NewProtocolMismatch("illegal client conflation %d in overrides 0x%02x", byte(opts.Conflation()), b)
	}
	s.options = opts
	return nil
}

// ============================================================================
//                              Verify
// ============================================================================

// Verify 将收到的凭证交给 CredentialAuthority 校验
//
// 任何失败都以 AuthenticationFailed 返回，会话进入 Failed。
func (s *Session) Verify() (types.Principal, error) {
	if err := s.expect("verify", StateCredentialsResolved); err != nil {
		return nil, err
	}
	principal, err := s.authority.Verify(s.credentials, s.member)
	if err != nil {
		return nil, s.fail(types.AsAuthFailed("verify credentials", err))
	}
	s.principal = principal
	if principal != nil {
		s.log.Debug("credentials verified", "principal", principal.Name())
	}
	return principal, nil
}

// ============================================================================
//                              Accept / Refuse
// ============================================================================

// Accept 写出接受应答
//
// 网关通道且对端已认证时应答码为 WAN_CREDENTIALS，并随后发送本端凭证。
// 尾部字段由通道类型与双方版本决定。
func (s *Session) Accept(p AcceptParams) error {
	if err := s.expect("accept", StateCredentialsResolved); err != nil {
		return err
	}
	if err := s.withReadDeadline(func() error { return s.accept(p) }); err != nil {
		return s.fail(err)
	}
	s.state = StateEstablished
	s.log.Debug("handshake accepted", "code", s.code.String(), "member", s.member.String())
	return nil
}

func (s *Session) accept(p AcceptParams) error {
	serverVersion := p.ServerVersion
	if serverVersion == (types.Version{}) {
		serverVersion = types.VersionCurrent
	}
	wan := s.mode.IsWAN()
	relay := wan && s.principal != nil

	s.code = types.ReplyOK
	if relay {
		s.code = types.ReplyWANCredentials
	}
	s.w.AddByte(byte(s.code))
	if wan {
		s.w.AddVersionOrdinal(serverVersion)
	}
	s.w.AddByte(p.EndpointType)
	s.w.AddInt32(p.QueueSize)
	s.w.AddMember(p.ServerMember)
	s.w.AddUTF("")

	if !wan && s.version.AtLeast(types.VersionGFE61) {
		s.w.AddBool(p.DeltaPropagation)
	}
	if relay {
		s.sendCredentialsForWAN()
	}
	if wan && s.version.AtLeast(types.VersionGFE66) && serverVersion.AtLeast(types.VersionGFE66) {
		s.w.AddByte(byte(p.DistributedSystemID))
	}
	if wan && s.version.AtLeast(types.VersionGFE80) && serverVersion.AtLeast(types.VersionGFE80) {
		s.w.AddInt32(p.PDXRegistrySize)
	}
	return s.flush()
}

// sendCredentialsForWAN 向网关对端发送本端凭证
//
// 获取或发送失败只记录日志；获取失败时发送 NONE。
func (s *Session) sendCredentialsForWAN() {
	creds, err := s.authority.Acquire(s.member, true)
	if err != nil {
		s.log.Error("an exception was thrown while acquiring wan credentials", "err", err)
		creds = nil
	}
	if err := s.writeCredentials(creds, s.material.Algorithm); err != nil {
		s.log.Error("an exception was thrown while sending wan credentials", "err", err)
	}
}

// Refuse 写出拒绝应答并结束会话
//
// 网关通道的非认证类拒绝会附带服务端版本，与客户端的读取方式一致。
func (s *Session) Refuse(code types.ReplyCode, message string, serverMember types.MemberID) error {
	if s.state == StateEstablished {
		return ErrInvalidState
	}
	s.code = code
	s.w.AddByte(byte(code))
	if s.mode.IsWAN() && code != types.ReplyAuthRequired && code != types.ReplyAuthFailed {
		s.w.AddVersionOrdinal(types.VersionCurrent)
	}
	s.w.AddByte(0)
	s.w.AddInt32(0)
	s.w.AddMember(serverMember)
	s.w.AddUTF(message)
	err := s.flush()
	s.state = StateFailed
	s.log.Warn("handshake refused", "code", code.String(), "message", message, "member", s.member.String())
	return err
}

// refusalFor 根据错误类别选择拒绝码，非认证类错误返回 false
func refusalFor(err error) (types.ReplyCode, string, bool) {
	var required *types.CredentialsRequiredError
	if errors.As(err, &required) {
		return types.ReplyAuthRequired, reasonOf(required.Reason, err), true
	}
	var failed *types.AuthenticationFailedError
	if errors.As(err, &failed) {
		return types.ReplyAuthFailed, reasonOf(failed.Reason, err), true
	}
	return 0, "", false
}

func reasonOf(reason string, err error) string {
	if reason != "" {
		return reason
	}
	return err.Error()
}
