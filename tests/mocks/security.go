package mocks

import (
	"bytes"
	"errors"
	"sync"
	"time"

	"github.com/dep2p/go-gridauth/pkg/interfaces"
)

// MockServerAuthenticator 模拟 ServerAuthenticator 接口实现
//
// 默认签名为 "sig:" + challenge，Verify 按同一规则校验。
type MockServerAuthenticator struct {
	EnabledValue bool
	SubjectValue string

	SignFunc   func(challenge []byte) ([]byte, error)
	VerifyFunc func(subject string, challenge, signature []byte) bool

	SignCalls   int
	VerifyCalls int
}

var _ interfaces.ServerAuthenticator = (*MockServerAuthenticator)(nil)

// Enabled 是否启用
func (m *MockServerAuthenticator) Enabled() bool { return m.EnabledValue }

// Subject 主体名
func (m *MockServerAuthenticator) Subject() string { return m.SubjectValue }

// Sign 签名
func (m *MockServerAuthenticator) Sign(challenge []byte) ([]byte, error) {
	m.SignCalls++
	if m.SignFunc != nil {
		return m.SignFunc(challenge)
	}
	if m.SubjectValue == "" {
		return nil, errors.New("mock: no private key")
	}
	return append([]byte("sig:"), challenge...), nil
}

// Verify 校验签名
func (m *MockServerAuthenticator) Verify(subject string, challenge, signature []byte) bool {
	m.VerifyCalls++
	if m.VerifyFunc != nil {
		return m.VerifyFunc(subject, challenge, signature)
	}
	return subject == m.SubjectValue && bytes.Equal(signature, append([]byte("sig:"), challenge...))
}

// ============================================================================
//                              MockRecorder
// ============================================================================

// HandshakeRecord 一次握手记录
type HandshakeRecord struct {
	Role    string
	Status  string
	Mode    string
	Elapsed time.Duration
}

// MockRecorder 模拟 HandshakeRecorder 接口实现
type MockRecorder struct {
	mu         sync.Mutex
	Handshakes []HandshakeRecord
	Errors     []string
}

var _ interfaces.HandshakeRecorder = (*MockRecorder)(nil)

// RecordHandshake 记录握手
func (m *MockRecorder) RecordHandshake(role, status, mode string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handshakes = append(m.Handshakes, HandshakeRecord{Role: role, Status: status, Mode: mode, Elapsed: elapsed})
}

// RecordError 记录错误
func (m *MockRecorder) RecordError(role, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors = append(m.Errors, role+"/"+kind)
}

// Snapshot 返回记录副本
func (m *MockRecorder) Snapshot() ([]HandshakeRecord, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]HandshakeRecord(nil), m.Handshakes...), append([]string(nil), m.Errors...)
}
