// Package credential 实现握手的凭证获取与校验
//
// 客户端通过 Authority.Acquire 获取要发送的凭证：未配置 auth-init 时
// 直接使用 security-username / security-password，否则调用注册的
// AuthInitializer。服务端通过 Authority.Verify 校验收到的凭证：
// 不要求认证时跳过，配置集成安全时调用 SecurityService.Login，
// 否则调用注册的 Authenticator。
//
// 插件按名称注册在 Registry 中：
//
//	reg := credential.NewRegistry()
//	reg.RegisterAuthenticator("ldap", func() interfaces.Authenticator { return newLDAP() })
//	auth := credential.NewAuthority(cfg.Security, reg, nil)
//
// 内置插件 "static"（StaticAuthenticator）以服务端自身的 security-username /
// security-password 校验凭证，密码可以是 bcrypt 哈希。Fx 模块在未注入
// Registry 时自动注册内置插件。
//
// 获取失败统一归为 CredentialsRequired，校验失败统一归为 AuthenticationFailed。
package credential
