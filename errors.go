package gridauth

import (
	"errors"

	"github.com/dep2p/go-gridauth/pkg/types"
)

// 公共错误定义
var (
	// ────────────────────────────────────────────────────────────────────────
	// 服务端生命周期错误
	// ────────────────────────────────────────────────────────────────────────

	// ErrNotStarted 服务端未启动
	ErrNotStarted = errors.New("server not started")

	// ErrAlreadyStarted 服务端已启动
	ErrAlreadyStarted = errors.New("server already started")

	// ────────────────────────────────────────────────────────────────────────
	// 握手错误（与 pkg/types 同一实例，可直接用 errors.Is 比较）
	// ────────────────────────────────────────────────────────────────────────

	// ErrTransport 底层读写失败或对端提前关闭
	ErrTransport = types.ErrTransport

	// ErrProtocolMismatch 对端数据不符合协议
	ErrProtocolMismatch = types.ErrProtocolMismatch

	// ErrCredentialsRequired 需要凭证但无法获取
	ErrCredentialsRequired = types.ErrCredentialsRequired

	// ErrAuthenticationFailed 凭证或签名校验失败
	ErrAuthenticationFailed = types.ErrAuthenticationFailed

	// ErrConnectionRefused 服务端拒绝连接
	ErrConnectionRefused = types.ErrConnectionRefused
)
