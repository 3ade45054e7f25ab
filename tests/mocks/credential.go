package mocks

import (
	"sync"

	"github.com/dep2p/go-gridauth/pkg/interfaces"
	"github.com/dep2p/go-gridauth/pkg/types"
)

// ============================================================================
//                              MockAuthInitializer
// ============================================================================

// MockAuthInitializer 模拟 AuthInitializer 接口实现
type MockAuthInitializer struct {
	// Credentials GetCredentials 默认返回值
	Credentials types.Properties

	InitFunc           func() error
	GetCredentialsFunc func(props types.Properties, server types.MemberID, isPeer bool) (types.Properties, error)
	CloseFunc          func() error

	mu         sync.Mutex
	InitCalls  int
	GetCalls   []GetCredentialsCall
	CloseCalls int
}

// GetCredentialsCall 记录 GetCredentials 调用参数
type GetCredentialsCall struct {
	Props  types.Properties
	Server types.MemberID
	IsPeer bool
}

var _ interfaces.AuthInitializer = (*MockAuthInitializer)(nil)

// Init 初始化
func (m *MockAuthInitializer) Init() error {
	m.mu.Lock()
	m.InitCalls++
	m.mu.Unlock()
	if m.InitFunc != nil {
		return m.InitFunc()
	}
	return nil
}

// GetCredentials 返回凭证
func (m *MockAuthInitializer) GetCredentials(props types.Properties, server types.MemberID, isPeer bool) (types.Properties, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, GetCredentialsCall{Props: props, Server: server, IsPeer: isPeer})
	m.mu.Unlock()
	if m.GetCredentialsFunc != nil {
		return m.GetCredentialsFunc(props, server, isPeer)
	}
	return m.Credentials, nil
}

// Close 关闭
func (m *MockAuthInitializer) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// ============================================================================
//                              MockAuthenticator
// ============================================================================

// MockAuthenticator 模拟 Authenticator 接口实现
//
// 未设置 AuthenticateFunc 时，凭证与 Expected 完全一致才认证通过。
type MockAuthenticator struct {
	// Expected 期望的凭证
	Expected types.Properties

	InitFunc         func(props types.Properties) error
	AuthenticateFunc func(creds types.Properties, member types.MemberID) (types.Principal, error)
	CloseFunc        func() error

	mu                sync.Mutex
	InitCalls         int
	AuthenticateCalls []types.Properties
	CloseCalls        int
}

var _ interfaces.Authenticator = (*MockAuthenticator)(nil)

// Init 初始化
func (m *MockAuthenticator) Init(props types.Properties) error {
	m.mu.Lock()
	m.InitCalls++
	m.mu.Unlock()
	if m.InitFunc != nil {
		return m.InitFunc(props)
	}
	return nil
}

// Authenticate 校验凭证
func (m *MockAuthenticator) Authenticate(creds types.Properties, member types.MemberID) (types.Principal, error) {
	m.mu.Lock()
	m.AuthenticateCalls = append(m.AuthenticateCalls, creds.Clone())
	m.mu.Unlock()
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(creds, member)
	}
	if len(creds) != len(m.Expected) {
		return nil, types.NewAuthFailed("credentials mismatch", nil)
	}
	for k, v := range m.Expected {
		if got, ok := creds[k]; !ok || got != v {
			return nil, types.NewAuthFailed("credentials mismatch", nil)
		}
	}
	return types.NamedPrincipal(creds["security-username"]), nil
}

// Close 关闭
func (m *MockAuthenticator) Close() error {
	m.mu.Lock()
	m.CloseCalls++
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Calls 返回 Init / Authenticate / Close 调用次数
func (m *MockAuthenticator) Calls() (init, authenticate, closeCalls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.InitCalls, len(m.AuthenticateCalls), m.CloseCalls
}

// ============================================================================
//                              MockSecurityService
// ============================================================================

// MockSecurityService 模拟 SecurityService 接口实现
type MockSecurityService struct {
	ClientSecurityRequired bool
	IntegratedSecurity     bool

	LoginFunc func(creds types.Properties) (types.Principal, error)

	LoginCalls []types.Properties
}

var _ interfaces.SecurityService = (*MockSecurityService)(nil)

// IsClientSecurityRequired 是否要求客户端认证
func (m *MockSecurityService) IsClientSecurityRequired() bool { return m.ClientSecurityRequired }

// IsIntegratedSecurity 是否集成安全
func (m *MockSecurityService) IsIntegratedSecurity() bool { return m.IntegratedSecurity }

// Login 登录
func (m *MockSecurityService) Login(creds types.Properties) (types.Principal, error) {
	m.LoginCalls = append(m.LoginCalls, creds.Clone())
	if m.LoginFunc != nil {
		return m.LoginFunc(creds)
	}
	return types.NamedPrincipal(creds["security-username"]), nil
}

// ============================================================================
//                              MockCredentialAuthority
// ============================================================================

// MockCredentialAuthority 模拟 CredentialAuthority 接口实现
type MockCredentialAuthority struct {
	Required    bool
	Credentials types.Properties

	AcquireFunc func(server types.MemberID, isPeer bool) (types.Properties, error)
	VerifyFunc  func(creds types.Properties, member types.MemberID) (types.Principal, error)

	mu          sync.Mutex
	VerifyCalls []types.Properties
}

var _ interfaces.CredentialAuthority = (*MockCredentialAuthority)(nil)

// AuthRequired 是否要求认证
func (m *MockCredentialAuthority) AuthRequired() bool { return m.Required }

// Acquire 获取凭证
func (m *MockCredentialAuthority) Acquire(server types.MemberID, isPeer bool) (types.Properties, error) {
	if m.AcquireFunc != nil {
		return m.AcquireFunc(server, isPeer)
	}
	return m.Credentials.Clone(), nil
}

// Verify 校验凭证
func (m *MockCredentialAuthority) Verify(creds types.Properties, member types.MemberID) (types.Principal, error) {
	m.mu.Lock()
	m.VerifyCalls = append(m.VerifyCalls, creds.Clone())
	m.mu.Unlock()
	if m.VerifyFunc != nil {
		return m.VerifyFunc(creds, member)
	}
	if !m.Required {
		return nil, nil
	}
	return types.NamedPrincipal(creds["security-username"]), nil
}
