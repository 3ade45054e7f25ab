package handshake

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dep2p/go-gridauth/internal/core/security"
	"github.com/dep2p/go-gridauth/internal/core/security/dh"
	"github.com/dep2p/go-gridauth/internal/core/security/symmetric"
	"github.com/dep2p/go-gridauth/internal/core/wire"
	"github.com/dep2p/go-gridauth/internal/util/logger"
	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
)

var log = logger.Logger("handshake")

var (
	// ErrNoMaterial 未提供安全材料
	ErrNoMaterial = errors.New("handshake: security material is required")

	// ErrNoAuthority 未提供凭证校验方
	ErrNoAuthority = errors.New("handshake: credential authority is required")

	// ErrInvalidState 在错误的状态调用操作
	ErrInvalidState = errors.New("handshake: invalid session state")

	// ErrNoPeerKey DH 模式下尚未获得对端公钥
	ErrNoPeerKey = errors.New("handshake: peer public key not established")
)

// Conn 握手使用的连接
//
// net.Conn 满足该接口。
type Conn interface {
	io.Reader
	io.Writer
	SetReadDeadline(t time.Time) error
}

// Options 会话依赖
type Options struct {
	// Material 进程级安全材料
	Material *security.Material

	// Authority 凭证获取与校验
	Authority interfaces.CredentialAuthority

	// ReadTimeout 握手期间阻塞读的超时，0 表示不设置
	ReadTimeout time.Duration

	// Version 客户端会话声明的本端版本，零值为 VersionCurrent；服务端忽略
	Version types.Version

	// Clock 时钟，nil 使用系统时钟
	Clock clock.Clock
}

// Session 一条连接上的握手会话
//
// 不是并发安全的。
type Session struct {
	id    string
	role  Role
	state State
	conn  Conn
	r     *wire.Reader
	w     *wire.Writer
	log   *slog.Logger

	material    *security.Material
	authority   interfaces.CredentialAuthority
	readTimeout time.Duration
	clock       clock.Clock

	code              types.ReplyCode
	mode              types.CommunicationMode
	version           types.Version
	clientReadTimeout int32
	member            types.MemberID
	options           types.ClientOptions
	credentials       types.Properties
	principal         types.Principal

	secureMode types.SecurityMode
	algorithm  types.CipherAlgorithm
	local      *dh.PrivateKey
	peerKey    *dh.PublicKey
	ciphers    *symmetric.CipherSession
}

func newSession(conn Conn, role Role, mode types.CommunicationMode, version types.Version, opts Options) (*Session, error) {
	if opts.Material == nil {
		return nil, ErrNoMaterial
	}
	if opts.Authority == nil {
		return nil, ErrNoAuthority
	}
	if !mode.Valid() {
		return nil, types.NewProtocolMismatch("unknown communication mode %d", byte(mode))
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	id := uuid.New().String()
	return &Session{
		id:          id,
		role:        role,
		state:       StateAwaitOpenCode,
		conn:        conn,
		r:           wire.NewReader(conn, version),
		w:           wire.NewWriter(conn, version),
		log:         logger.ForSession("handshake", id).With("role", role.String(), "mode", mode.String()),
		material:    opts.Material,
		authority:   opts.Authority,
		readTimeout: opts.ReadTimeout,
		clock:       clk,
		mode:        mode,
		version:     version,
	}, nil
}

// NewServerSession 为已读出前导的连接创建服务端会话
//
// peerVersion 为前导中的客户端版本，之后的读写都按该版本编码。
func NewServerSession(conn Conn, mode types.CommunicationMode, peerVersion types.Version, opts Options) (*Session, error) {
	return newSession(conn, RoleServer, mode, peerVersion, opts)
}

// NewClientSession 创建客户端会话
//
// 调用方应已通过 WritePreamble 写出通信模式与 opts.Version。
func NewClientSession(conn Conn, mode types.CommunicationMode, opts Options) (*Session, error) {
	version := opts.Version
	if version == (types.Version{}) {
		version = types.VersionCurrent
	}
	s, err := newSession(conn, RoleClient, mode, version, opts)
	if err != nil {
		return nil, err
	}
	s.algorithm = opts.Material.Algorithm
	return s, nil
}

// ============================================================================
//                              访问器
// ============================================================================

// ID 会话标识，仅用于日志关联
func (s *Session) ID() string { return s.id }

// Role 会话角色
func (s *Session) Role() Role { return s.role }

// State 当前状态
func (s *Session) State() State { return s.state }

// Code 最近一次读到或写出的应答码
func (s *Session) Code() types.ReplyCode { return s.code }

// IsOK 应答码是否为 OK
func (s *Session) IsOK() bool { return s.code == types.ReplyOK }

// CommunicationMode 通信模式
func (s *Session) CommunicationMode() types.CommunicationMode { return s.mode }

// Version 协商后的对端版本（客户端为本端声明的版本）
func (s *Session) Version() types.Version { return s.version }

// ClientReadTimeout 客户端声明的读超时（毫秒）
func (s *Session) ClientReadTimeout() int32 { return s.clientReadTimeout }

// Membership 对端成员标识
func (s *Session) Membership() types.MemberID { return s.member }

// Options 客户端选项字节
func (s *Session) Options() types.ClientOptions { return s.options }

// Conflation 客户端合并设置
func (s *Session) Conflation() types.Conflation { return s.options.Conflation() }

// Credentials 解码出的凭证，未收到时为 nil
func (s *Session) Credentials() types.Properties { return s.credentials }

// HasCredentials 是否收到了凭证
func (s *Session) HasCredentials() bool { return s.credentials != nil }

// Principal 认证主体
func (s *Session) Principal() types.Principal { return s.principal }

// SecurityMode 安全模式
func (s *Session) SecurityMode() types.SecurityMode { return s.secureMode }

// Algorithm 协商的对称算法
func (s *Session) Algorithm() types.CipherAlgorithm { return s.algorithm }

// PayloadBearing 凭证交换是否携带属性包
//
// 网关通道与 GFE_65 之前的对端在握手中发送属性包，其余只证明持有共享密钥。
func (s *Session) PayloadBearing() bool {
	return s.mode.IsWAN() || s.version.Before(types.VersionGFE65)
}

// String 返回会话摘要
func (s *Session) String() string {
	return fmt.Sprintf("Session{id=%s role=%s state=%s code=%s mode=%s version=%s member=%s secure=%s}",
		s.id, s.role, s.state, s.code, s.mode, s.version, s.member, s.secureMode)
}

// ============================================================================
//                              加解密
// ============================================================================

var _ interfaces.Encryptor = (*Session)(nil)

// EncryptBytes 使用会话缓存的加密密码，非 DH 模式原样返回
func (s *Session) EncryptBytes(data []byte) ([]byte, error) {
	if s.secureMode != types.SecurityDHEncrypted {
		return data, nil
	}
	if s.peerKey == nil {
		return nil, ErrNoPeerKey
	}
	ciphers, err := s.cipherSession()
	if err != nil {
		return nil, err
	}
	return ciphers.Encrypt(s.algorithm, s.peerKey, data)
}

// DecryptBytes 使用会话缓存的解密密码，非 DH 模式原样返回
func (s *Session) DecryptBytes(data []byte) ([]byte, error) {
	if s.secureMode != types.SecurityDHEncrypted {
		return data, nil
	}
	if s.peerKey == nil {
		return nil, ErrNoPeerKey
	}
	ciphers, err := s.cipherSession()
	if err != nil {
		return nil, err
	}
	return ciphers.Decrypt(s.algorithm, s.peerKey, data)
}

// localKey 返回本会话使用的 DH 私钥，首次调用时从 Material 获取
func (s *Session) localKey() (*dh.PrivateKey, error) {
	if s.local != nil {
		return s.local, nil
	}
	k, err := s.material.SessionKey()
	if err != nil {
		return nil, err
	}
	s.local = k
	return k, nil
}

func (s *Session) cipherSession() (*symmetric.CipherSession, error) {
	if s.ciphers != nil {
		return s.ciphers, nil
	}
	k, err := s.localKey()
	if err != nil {
		return nil, err
	}
	s.ciphers = symmetric.NewCipherSession(k)
	return s.ciphers, nil
}

// ============================================================================
//                              内部辅助
// ============================================================================

// withReadDeadline 在作用域内为连接设置读超时，返回前恢复
func (s *Session) withReadDeadline(fn func() error) error {
	return withReadDeadline(s.conn, s.clock, s.readTimeout, fn)
}

// expect 检查当前状态
func (s *Session) expect(op string, states ...State) error {
	for _, st := range states {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s in state %s", ErrInvalidState, op, s.state)
}

// fail 进入 Failed 状态并返回 err
func (s *Session) fail(err error) error {
	s.state = StateFailed
	return err
}

// flush 刷新写缓冲
func (s *Session) flush() error {
	return s.w.Flush()
}
