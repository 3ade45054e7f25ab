// Package mocks 提供统一的测试 Mock 实现
//
// 每个 Mock 都支持通过 XxxFunc 字段注入自定义行为，并记录关键调用，
// 便于断言握手过程中插件的调用顺序。
//
// # 凭证插件 Mock
//
//   - MockAuthInitializer: 模拟 interfaces.AuthInitializer
//   - MockAuthenticator: 模拟 interfaces.Authenticator
//   - MockSecurityService: 模拟 interfaces.SecurityService
//   - MockCredentialAuthority: 模拟 interfaces.CredentialAuthority
//
// # 安全 Mock
//
//   - MockServerAuthenticator: 模拟 interfaces.ServerAuthenticator
//
// # 指标 Mock
//
//   - MockRecorder: 模拟 interfaces.HandshakeRecorder
//
// # 使用示例
//
//	auth := &mocks.MockAuthenticator{
//	    AuthenticateFunc: func(creds types.Properties, member types.MemberID) (types.Principal, error) {
//	        return nil, errors.New("bad password")
//	    },
//	}
//	reg.RegisterAuthenticator("mock", func() interfaces.Authenticator { return auth })
package mocks
