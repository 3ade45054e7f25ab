package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              错误分类哨兵
// ============================================================================

var (
	// ErrTransport 底层流读写失败或提前结束
	ErrTransport = errors.New("transport error")

	// ErrProtocolMismatch 对端发送了意外的码或字段
	ErrProtocolMismatch = errors.New("protocol mismatch")

	// ErrCredentialsRequired 服务端要求凭证而客户端未提供，或凭证获取失败
	ErrCredentialsRequired = errors.New("credentials required")

	// ErrAuthenticationFailed 认证失败（凭证错误、挑战不匹配、签名错误）
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrConnectionRefused 服务端拒绝连接
	ErrConnectionRefused = errors.New("connection refused")
)

// ============================================================================
//                              类型化错误
// ============================================================================

// TransportError 传输错误
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "transport error: " + e.Op
	}
	return fmt.Sprintf("transport error: %s: %v", e.Op, e.Err)
}

// Unwrap 返回底层错误
func (e *TransportError) Unwrap() error { return e.Err }

// Is 匹配 ErrTransport
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// ProtocolMismatchError 协议不匹配
type ProtocolMismatchError struct {
	Reason string
	Err    error
}

func (e *ProtocolMismatchError) Error() string {
	if e.Err == nil {
		return "protocol mismatch: " + e.Reason
	}
	return fmt.Sprintf("protocol mismatch: %s: %v", e.Reason, e.Err)
}

// Unwrap 返回底层错误
func (e *ProtocolMismatchError) Unwrap() error { return e.Err }

// Is 匹配 ErrProtocolMismatch
func (e *ProtocolMismatchError) Is(target error) bool { return target == ErrProtocolMismatch }

// CredentialsRequiredError 缺少凭证
type CredentialsRequiredError struct {
	Reason string
	Err    error
}

func (e *CredentialsRequiredError) Error() string {
	if e.Err == nil {
		return "credentials required: " + e.Reason
	}
	return fmt.Sprintf("credentials required: %s: %v", e.Reason, e.Err)
}

// Unwrap 返回底层错误
func (e *CredentialsRequiredError) Unwrap() error { return e.Err }

// Is 匹配 ErrCredentialsRequired
func (e *CredentialsRequiredError) Is(target error) bool { return target == ErrCredentialsRequired }

// AuthenticationFailedError 认证失败
type AuthenticationFailedError struct {
	Reason string
	Err    error
}

func (e *AuthenticationFailedError) Error() string {
	if e.Err == nil {
		return "authentication failed: " + e.Reason
	}
	return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
}

// Unwrap 返回底层错误
func (e *AuthenticationFailedError) Unwrap() error { return e.Err }

// Is 匹配 ErrAuthenticationFailed
func (e *AuthenticationFailedError) Is(target error) bool { return target == ErrAuthenticationFailed }

// ConnectionRefusedError 服务端拒绝
//
// 携带拒绝码、服务端消息以及服务端成员标识。
type ConnectionRefusedError struct {
	Code    ReplyCode
	Message string
	Member  MemberID
}

func (e *ConnectionRefusedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("connection refused (%s)", e.Code)
	}
	return fmt.Sprintf("connection refused (%s): %s", e.Code, e.Message)
}

// Is 匹配 ErrConnectionRefused
func (e *ConnectionRefusedError) Is(target error) bool { return target == ErrConnectionRefused }

// ============================================================================
//                              构造辅助
// ============================================================================

// NewTransportError 包装传输错误
func NewTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// NewProtocolMismatch 构造协议不匹配错误
func NewProtocolMismatch(format string, args ...any) error {
	return &ProtocolMismatchError{Reason: fmt.Sprintf(format, args...)}
}

// NewCredentialsRequired 构造缺少凭证错误
func NewCredentialsRequired(reason string, err error) error {
	return &CredentialsRequiredError{Reason: reason, Err: err}
}

// NewAuthFailed 构造认证失败错误
func NewAuthFailed(reason string, err error) error {
	return &AuthenticationFailedError{Reason: reason, Err: err}
}

// AsAuthFailed 将任意错误归入认证失败，已分类的认证类错误原样返回
func AsAuthFailed(reason string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrCredentialsRequired) {
		return err
	}
	return NewAuthFailed(reason, err)
}
