package handshake

import (
	"fmt"

	"github.com/dep2p/go-gridauth/pkg/types"
)

// ============================================================================
//                              State
// ============================================================================

// State 会话状态
type State int

const (
	// StateAwaitOpenCode 等待开场码
	StateAwaitOpenCode State = iota
	// StateAwaitPeerParams 等待读超时、成员标识与选项字节
	StateAwaitPeerParams
	// StateAwaitCredentials 等待安全模式字节
	StateAwaitCredentials
	// StateKeyExchange DH 交换进行中
	StateKeyExchange
	// StateCredentialsResolved 凭证已解码，可校验并应答
	StateCredentialsResolved
	// StateEstablished 握手完成
	StateEstablished
	// StateFailed 终态
	StateFailed
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateAwaitOpenCode:
		return "await-open-code"
	case StateAwaitPeerParams:
		return "await-peer-params"
	case StateAwaitCredentials:
		return "await-credentials"
	case StateKeyExchange:
		return "key-exchange"
	case StateCredentialsResolved:
		return "credentials-resolved"
	case StateEstablished:
		return "established"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Role 会话角色
type Role int

const (
	// RoleServer 服务端
	RoleServer Role = iota
	// RoleClient 客户端
	RoleClient
)

// String 返回角色名称
func (r Role) String() string {
	if r == RoleClient {
		return "client"
	}
	return "server"
}

// ============================================================================
//                              Outcome
// ============================================================================

// Status 握手结果类别
type Status int

const (
	// StatusAccepted 已接受
	StatusAccepted Status = iota
	// StatusRefused 已向对端发送拒绝应答
	StatusRefused
	// StatusFailed 致命错误，连接应关闭
	StatusFailed
)

// String 返回结果类别名称
func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusRefused:
		return "refused"
	default:
		return "failed"
	}
}

// Outcome 一次服务端握手的结果
type Outcome struct {
	// Status 结果类别
	Status Status

	// Code 写给对端的应答码，StatusFailed 时为 0
	Code types.ReplyCode

	// Mode 对端使用的安全模式
	Mode types.SecurityMode

	// Principal 认证主体，未认证时为 nil
	Principal types.Principal

	// Reason 拒绝或失败的原因
	Reason error
}

// String 返回结果摘要
func (o Outcome) String() string {
	if o.Reason == nil {
		return fmt.Sprintf("%s(%s)", o.Status, o.Code)
	}
	return fmt.Sprintf("%s(%s): %v", o.Status, o.Code, o.Reason)
}
