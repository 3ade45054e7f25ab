package handshake

import (
	"github.com/dep2p/go-gridauth/pkg/types"
)

// Template 从已完成开场的会话中提取的身份字段
//
// 用于为同一客户端的后续连接创建会话，不携带任何密码状态。
type Template struct {
	Role              Role
	Mode              types.CommunicationMode
	Version           types.Version
	Code              types.ReplyCode
	ClientReadTimeout int32
	Options           types.ClientOptions
	Credentials       types.Properties
	Member            types.MemberID
	Principal         types.Principal
}

// Template 返回会话的身份模板
func (s *Session) Template() *Template {
	return &Template{
		Role:              s.role,
		Mode:              s.mode,
		Version:           s.version,
		Code:              s.code,
		ClientReadTimeout: s.clientReadTimeout,
		Options:           s.options,
		Credentials:       s.credentials.Clone(),
		Member:            append(types.MemberID(nil), s.member...),
		Principal:         s.principal,
	}
}

// NewSession 在新连接上创建携带模板身份的会话
//
// 新会话处于 CredentialsResolved，密码缓存为空，安全模式为 NONE。
func (t *Template) NewSession(conn Conn, opts Options) (*Session, error) {
	opts.Version = t.Version
	s, err := newSession(conn, t.Role, t.Mode, t.Version, opts)
	if err != nil {
		return nil, err
	}
	s.state = StateCredentialsResolved
	s.code = t.Code
	s.clientReadTimeout = t.ClientReadTimeout
	s.options = t.Options
	s.credentials = t.Credentials.Clone()
	s.member = append(types.MemberID(nil), t.Member...)
	s.principal = t.Principal
	if t.Role == RoleClient {
		s.algorithm = opts.Material.Algorithm
	}
	return s, nil
}
