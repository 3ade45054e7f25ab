// Package security 提供握手共享的进程级安全材料
package security

import "errors"

var (
	// ErrNoKeyPair 安全材料未包含 DH 密钥对
	ErrNoKeyPair = errors.New("security: no DH key pair")

	// ErrShortChallenge 随机源无法提供完整挑战
	ErrShortChallenge = errors.New("security: short challenge read")
)
