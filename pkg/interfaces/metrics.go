// Package interfaces 定义 gridauth 公共接口
//
// 本文件定义握手指标接口。
package interfaces

import "time"

// HandshakeRecorder 握手指标记录
type HandshakeRecorder interface {
	// RecordHandshake 记录一次握手结果
	//
	// role 为 "server" 或 "client"，status 为 accepted / refused / failed，
	// mode 为安全模式名称。
	RecordHandshake(role, status, mode string, elapsed time.Duration)

	// RecordError 记录一次握手错误（按错误分类）
	RecordError(role, kind string)
}
